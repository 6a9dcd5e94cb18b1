package keeper

import (
	"context"

	"github.com/gridexchange/gridex/x/exchange/types"
)

// Structural invariants. These never fire in correct operation; a
// violation means a matching or routing bug and is fatal to the caller.

// checkBookChains verifies a book's structural invariants: each side's
// chain sorted (buy descending, sell ascending), every resting amount
// positive, and an exact bijection between chain nodes and arena entries.
func checkBookChains(book *types.Book) error {
	seen := make(map[uint64]bool, len(book.Orders))
	for _, isBuy := range []bool{true, false} {
		prevID := uint64(0)
		currID := book.Head(isBuy)
		for currID != 0 {
			curr, ok := book.Orders[currID]
			if !ok {
				return types.ErrInvariantViolation.Wrapf(
					"chain references order %d missing from arena", currID)
			}
			if seen[currID] {
				return types.ErrInvariantViolation.Wrapf(
					"order %d reachable from more than one chain position", currID)
			}
			seen[currID] = true
			if curr.IsBuy != isBuy {
				return types.ErrInvariantViolation.Wrapf(
					"order %d linked into wrong side", currID)
			}
			if !curr.Amount.IsPositive() {
				return types.ErrInvariantViolation.Wrapf(
					"resting order %d has non-positive amount %s", currID, curr.Amount)
			}
			if prevID != 0 {
				prev := book.Orders[prevID]
				if priceWorse(isBuy, prev.Price, curr.Price) {
					return types.ErrInvariantViolation.Wrapf(
						"chain out of order at %d -> %d (%s -> %s)",
						prevID, currID, prev.Price, curr.Price)
				}
			}
			prevID, currID = currID, curr.NextID
		}
	}
	if len(seen) != len(book.Orders) {
		return types.ErrInvariantViolation.Wrapf(
			"arena holds %d orders, chains reach %d", len(book.Orders), len(seen))
	}
	return nil
}

// checkPool verifies a pool's reserves are non-negative.
func checkPool(pool *types.Pool) error {
	if pool.ReserveBase.IsNegative() || pool.ReserveQuote.IsNegative() {
		return types.ErrInvariantViolation.Wrapf(
			"pool %s reserves negative: (%s, %s)", pool.Pair(), pool.ReserveBase, pool.ReserveQuote)
	}
	return nil
}

// VerifyInvariants checks every registered book and pool. Intended for
// tests and operational spot checks, not the hot path.
func (k *Keeper) VerifyInvariants(ctx context.Context) error {
	k.state.mu.RLock()
	defer k.state.mu.RUnlock()

	for pair, book := range k.state.books {
		if err := checkBookChains(book); err != nil {
			return types.ErrInvariantViolation.Wrapf("book %s: %v", pair, err)
		}
	}
	for pair, pool := range k.state.pools {
		if err := checkPool(pool); err != nil {
			return types.ErrInvariantViolation.Wrapf("pool %s: %v", pair, err)
		}
	}
	return nil
}
