package types

import (
	"cosmossdk.io/math"
)

// BookLevel is the aggregate of all resting orders sharing one price on
// one side of a book.
type BookLevel struct {
	Price  math.Int `json:"price"`
	Amount math.Int `json:"amount"`
	Orders int      `json:"orders"`
}
