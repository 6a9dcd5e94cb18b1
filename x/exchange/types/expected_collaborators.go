package types

import (
	"context"
	"time"

	"cosmossdk.io/math"
)

// BankKeeper defines the expected token custody collaborator. Transfer must
// be atomic: it either fully moves amount of token from one account to the
// other or fails without effect. Any failure aborts the enclosing exchange
// operation.
type BankKeeper interface {
	Transfer(ctx context.Context, token, from, to string, amount math.Int) error
}

// Authorizer defines the expected authentication collaborator. Authorize
// reports whether caller may act as principal (order maker, trader).
type Authorizer interface {
	Authorize(ctx context.Context, caller, principal string) bool
}

// Clock supplies the current time for deadline validation. Deadlines are
// checked once at operation entry and never re-checked mid-execution.
type Clock interface {
	Now() time.Time
}

// Entropy supplies randomness for unused-id generation only; it plays no
// part in pricing or matching.
type Entropy interface {
	Rand64() uint64
}

// BatchOpType discriminates the operations of a Store batch.
type BatchOpType int

const (
	BatchSet BatchOpType = iota
	BatchDelete
)

// BatchOp is a single write of a Store batch.
type BatchOp struct {
	Type  BatchOpType
	Key   []byte
	Value []byte
}

// Store defines the expected durable-storage collaborator. Entities are
// keyed per keys.go; Batch must apply all operations atomically.
type Store interface {
	Get(ctx context.Context, key []byte) ([]byte, bool, error)
	Set(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
	Batch(ctx context.Context, ops []BatchOp) error
	// Iterate visits every key with the given prefix in lexicographic
	// order until fn returns false or an error.
	Iterate(ctx context.Context, prefix []byte, fn func(key, value []byte) (bool, error)) error
}
