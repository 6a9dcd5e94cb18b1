package types

import (
	"cosmossdk.io/math"
)

// LimitOrder is a maker's resting offer to trade up to Amount base tokens at
// a fixed Price. Orders live in an arena (Book.Orders) and are linked into
// one of the book's two price-ordered chains through NextID; ids are opaque
// handles, never addresses.
type LimitOrder struct {
	// ID is the unique, unpredictable identifier of the order. Zero is
	// reserved as the end-of-chain sentinel and never assigned.
	ID uint64 `json:"id"`
	// Maker is the account that placed the order and receives its proceeds.
	Maker string `json:"maker"`
	// IsBuy reports which side of the book the order rests on.
	IsBuy bool `json:"is_buy"`
	// Price is quote units per base unit, scaled by the book's QuoteScale.
	Price math.Int `json:"price"`
	// Amount is the remaining base-token quantity. Always positive while
	// the order rests; an order at zero is unlinked, never left in place.
	Amount math.Int `json:"amount"`
	// NextID links to the next order in this side's chain (0 = end).
	NextID uint64 `json:"next_id"`
}

// Validate checks the stored-order invariants.
func (o *LimitOrder) Validate() error {
	if o.ID == 0 {
		return ErrInvalidAmount.Wrap("order id cannot be zero")
	}
	if o.Maker == "" {
		return ErrInvalidAmount.Wrap("order maker cannot be empty")
	}
	if o.Price.IsNil() || !o.Price.IsPositive() {
		return ErrInvalidAmount.Wrapf("order price must be positive, got %s", o.Price)
	}
	if o.Amount.IsNil() || !o.Amount.IsPositive() {
		return ErrInvalidAmount.Wrapf("order amount must be positive, got %s", o.Amount)
	}
	return nil
}

// Clone returns a deep copy of the order.
func (o *LimitOrder) Clone() *LimitOrder {
	c := *o
	return &c
}

// Book is the per-pair order book: two singly linked chains of resting
// orders plus the arena that owns them. The buy chain is sorted by price
// descending (best bid first), the sell chain ascending (best ask first);
// within a price level, chain order is insertion order.
type Book struct {
	// Base is the asset being priced.
	Base string `json:"base"`
	// Quote is the pricing currency.
	Quote string `json:"quote"`
	// QuoteScale is the fixed-point scale applied to prices.
	QuoteScale math.Int `json:"quote_scale"`
	// FirstBuyID is the head of the buy chain (0 = empty).
	FirstBuyID uint64 `json:"first_buy_id"`
	// FirstSellID is the head of the sell chain (0 = empty).
	FirstSellID uint64 `json:"first_sell_id"`
	// Orders maps order id to the stored order record.
	Orders map[uint64]*LimitOrder `json:"-"`
}

// NewBook returns an empty book for the given pair.
func NewBook(base, quote string, quoteScale math.Int) *Book {
	return &Book{
		Base:       base,
		Quote:      quote,
		QuoteScale: quoteScale,
		Orders:     make(map[uint64]*LimitOrder),
	}
}

// Pair returns the canonical pair key of the book.
func (b *Book) Pair() string {
	return PairKey(b.Base, b.Quote)
}

// Head returns the first order id of one side's chain.
func (b *Book) Head(isBuy bool) uint64 {
	if isBuy {
		return b.FirstBuyID
	}
	return b.FirstSellID
}

// SetHead replaces the first order id of one side's chain.
func (b *Book) SetHead(isBuy bool, id uint64) {
	if isBuy {
		b.FirstBuyID = id
	} else {
		b.FirstSellID = id
	}
}

// Clone returns a deep copy of the book, arena included.
func (b *Book) Clone() *Book {
	c := *b
	c.Orders = make(map[uint64]*LimitOrder, len(b.Orders))
	for id, o := range b.Orders {
		c.Orders[id] = o.Clone()
	}
	return &c
}
