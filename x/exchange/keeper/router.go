package keeper

import (
	"context"

	"cosmossdk.io/math"

	"github.com/gridexchange/gridex/x/exchange/types"
)

// Router. One hop's execution plan splits the trade between the book and
// the pool. Because the pool's marginal price moves continuously with each
// unit traded while the book offers liquidity only at discrete price
// points, price-optimal execution saturates whichever venue is currently
// cheaper before moving to the next book level: both venues' marginal
// costs are non-decreasing in quantity, so the greedy split is optimal.

// Strategy is the per-hop execution plan: how much input goes to each
// venue and what each venue returns.
type Strategy struct {
	TokenIn  string `json:"token_in"`
	TokenOut string `json:"token_out"`
	// AmountToBook is the input routed to the order book (quote units for
	// a buy hop, base units for a sell hop).
	AmountToBook math.Int `json:"amount_to_book"`
	// AmountToPool is the input routed to the constant-product pool.
	AmountToPool math.Int `json:"amount_to_pool"`
	// BookOut and PoolOut are the corresponding outputs in tokenOut units.
	BookOut math.Int `json:"book_out"`
	PoolOut math.Int `json:"pool_out"`
	// LastBookPrice is the worst book level touched, zero when the plan
	// never consumed the book. Settlement bounds its market order by it.
	LastBookPrice math.Int `json:"last_book_price"`
}

func newStrategy(tokenIn, tokenOut string) Strategy {
	return Strategy{
		TokenIn:       tokenIn,
		TokenOut:      tokenOut,
		AmountToBook:  math.ZeroInt(),
		AmountToPool:  math.ZeroInt(),
		BookOut:       math.ZeroInt(),
		PoolOut:       math.ZeroInt(),
		LastBookPrice: math.ZeroInt(),
	}
}

// TotalIn is the input consumed by the plan.
func (s Strategy) TotalIn() math.Int { return s.AmountToBook.Add(s.AmountToPool) }

// TotalOut is the output produced by the plan.
func (s Strategy) TotalOut() math.Int { return s.BookOut.Add(s.PoolOut) }

// poolFavorable reports whether the pool's marginal price currently beats
// a book level for the taker.
func poolFavorable(takerIsBuy bool, poolPrice, levelPrice math.Int) bool {
	if takerIsBuy {
		return poolPrice.LT(levelPrice)
	}
	return poolPrice.GT(levelPrice)
}

// hopVenues resolves the two venues of one hop. The book may be nil (pool
// only); a missing pool with a present book is allowed until the book runs
// out of levels. Both missing is ErrNotFound.
func hopVenues(st *staging, tokenIn, tokenOut string) (*types.Pool, *types.Book, error) {
	if tokenIn == tokenOut || tokenIn == "" || tokenOut == "" {
		return nil, nil, types.ErrInvalidTokenPair.Wrapf("hop %s -> %s", tokenIn, tokenOut)
	}
	pair := types.PairKey(tokenIn, tokenOut)
	pool, poolErr := st.pool(pair)
	book, bookErr := st.book(pair)
	if poolErr != nil && bookErr != nil {
		return nil, nil, types.ErrNotFound.Wrapf("no venue for pair %s", pair)
	}
	return pool, book, nil
}

// strategyExactInput computes the greedy split of amountIn between the
// pool and the book for one hop. Pool reserves are simulated locally; the
// live entries are never re-read mid-loop.
func (k *Keeper) strategyExactInput(pool *types.Pool, book *types.Book, tokenIn, tokenOut string, amountIn math.Int) (Strategy, error) {
	if amountIn.IsNil() || !amountIn.IsPositive() {
		return Strategy{}, types.ErrInvalidAmount.Wrapf("swap input must be positive, got %s", amountIn)
	}
	s := newStrategy(tokenIn, tokenOut)
	remaining := amountIn

	routeAllToPool := func() (Strategy, error) {
		if pool == nil {
			return Strategy{}, types.ErrNotFound.Wrapf(
				"book liquidity exhausted and no pool for pair %s", types.PairKey(tokenIn, tokenOut))
		}
		rIn, rOut, _ := pool.Reserves(tokenIn)
		rIn = rIn.Add(s.AmountToPool)
		rOut = rOut.Sub(s.PoolOut)
		out, err := AmountOut(remaining, rIn, rOut)
		if err != nil {
			return Strategy{}, err
		}
		s.AmountToPool = s.AmountToPool.Add(remaining)
		s.PoolOut = s.PoolOut.Add(out)
		remaining = math.ZeroInt()
		return s, nil
	}

	if book == nil {
		return routeAllToPool()
	}
	isBuy, err := takerSide(book, tokenIn, tokenOut)
	if err != nil {
		return Strategy{}, err
	}
	if book.Head(!isBuy) == 0 {
		if pool == nil {
			return Strategy{}, types.ErrNotFound.Wrapf(
				"pair %s has neither resting orders nor a pool", book.Pair())
		}
		return routeAllToPool()
	}

	// Local reserve simulation, oriented base/quote for price derivation.
	var rBase, rQuote math.Int
	if pool != nil {
		rBase, rQuote, _ = pool.Reserves(book.Base)
	}

	currID := book.Head(!isBuy)
	for remaining.IsPositive() && currID != 0 {
		level := book.Orders[currID]

		if pool != nil {
			poolPrice, err := PoolPrice(rBase, rQuote, book.QuoteScale)
			if err != nil {
				return Strategy{}, err
			}
			if poolFavorable(isBuy, poolPrice, level.Price) {
				rIn, rOut := rQuote, rBase
				if !isBuy {
					rIn, rOut = rBase, rQuote
				}
				maxIn, err := AmountInTillPrice(isBuy, level.Price, book.QuoteScale, rIn, rOut)
				if err != nil {
					return Strategy{}, err
				}
				if maxIn.GT(remaining) {
					maxIn = remaining
				}
				if maxIn.IsPositive() {
					out, err := AmountOut(maxIn, rIn, rOut)
					if err != nil {
						return Strategy{}, err
					}
					s.AmountToPool = s.AmountToPool.Add(maxIn)
					s.PoolOut = s.PoolOut.Add(out)
					remaining = remaining.Sub(maxIn)
					if isBuy {
						rQuote = rQuote.Add(maxIn)
						rBase = rBase.Sub(out)
					} else {
						rBase = rBase.Add(maxIn)
						rQuote = rQuote.Sub(out)
					}
					continue
				}
			}
		}

		if isBuy {
			// Input is quote; the level offers level.Amount base.
			levelQuote, err := quoteAmount(book, level.Amount, level.Price)
			if err != nil {
				return Strategy{}, err
			}
			if levelQuote.LTE(remaining) {
				s.AmountToBook = s.AmountToBook.Add(levelQuote)
				s.BookOut = s.BookOut.Add(level.Amount)
				s.LastBookPrice = level.Price
				remaining = remaining.Sub(levelQuote)
				currID = level.NextID
				continue
			}
			base, err := SafeMulDiv(remaining, book.QuoteScale, level.Price)
			if err != nil {
				return Strategy{}, err
			}
			if base.IsZero() {
				break
			}
			spent, err := quoteAmount(book, base, level.Price)
			if err != nil {
				return Strategy{}, err
			}
			s.AmountToBook = s.AmountToBook.Add(spent)
			s.BookOut = s.BookOut.Add(base)
			s.LastBookPrice = level.Price
			remaining = remaining.Sub(spent)
			break
		}

		// Input is base; the level absorbs up to level.Amount of it.
		if level.Amount.LTE(remaining) {
			levelQuote, err := quoteAmount(book, level.Amount, level.Price)
			if err != nil {
				return Strategy{}, err
			}
			s.AmountToBook = s.AmountToBook.Add(level.Amount)
			s.BookOut = s.BookOut.Add(levelQuote)
			s.LastBookPrice = level.Price
			remaining = remaining.Sub(level.Amount)
			currID = level.NextID
			continue
		}
		fillQuote, err := quoteAmount(book, remaining, level.Price)
		if err != nil {
			return Strategy{}, err
		}
		s.AmountToBook = s.AmountToBook.Add(remaining)
		s.BookOut = s.BookOut.Add(fillQuote)
		s.LastBookPrice = level.Price
		remaining = math.ZeroInt()
	}

	if remaining.IsPositive() {
		return routeAllToPool()
	}
	return s, nil
}

// strategyExactOutput mirrors strategyExactInput working backward from a
// target output. Where the pool must produce part of the target, the input
// is derived with AmountIn (rounded up) instead of AmountInTillPrice.
func (k *Keeper) strategyExactOutput(pool *types.Pool, book *types.Book, tokenIn, tokenOut string, amountOut math.Int) (Strategy, error) {
	if amountOut.IsNil() || !amountOut.IsPositive() {
		return Strategy{}, types.ErrInvalidAmount.Wrapf("swap output must be positive, got %s", amountOut)
	}
	s := newStrategy(tokenIn, tokenOut)
	remainingOut := amountOut

	remainderFromPool := func() (Strategy, error) {
		if pool == nil {
			return Strategy{}, types.ErrNotFound.Wrapf(
				"book liquidity exhausted and no pool for pair %s", types.PairKey(tokenIn, tokenOut))
		}
		rIn, rOut, _ := pool.Reserves(tokenIn)
		rIn = rIn.Add(s.AmountToPool)
		rOut = rOut.Sub(s.PoolOut)
		needIn, err := AmountIn(remainingOut, rIn, rOut)
		if err != nil {
			return Strategy{}, err
		}
		s.AmountToPool = s.AmountToPool.Add(needIn)
		s.PoolOut = s.PoolOut.Add(remainingOut)
		remainingOut = math.ZeroInt()
		return s, nil
	}

	if book == nil {
		return remainderFromPool()
	}
	isBuy, err := takerSide(book, tokenIn, tokenOut)
	if err != nil {
		return Strategy{}, err
	}
	if book.Head(!isBuy) == 0 {
		if pool == nil {
			return Strategy{}, types.ErrNotFound.Wrapf(
				"pair %s has neither resting orders nor a pool", book.Pair())
		}
		return remainderFromPool()
	}

	var rBase, rQuote math.Int
	if pool != nil {
		rBase, rQuote, _ = pool.Reserves(book.Base)
	}

	currID := book.Head(!isBuy)
	for remainingOut.IsPositive() && currID != 0 {
		level := book.Orders[currID]

		if pool != nil {
			poolPrice, err := PoolPrice(rBase, rQuote, book.QuoteScale)
			if err != nil {
				return Strategy{}, err
			}
			if poolFavorable(isBuy, poolPrice, level.Price) {
				rIn, rOut := rQuote, rBase
				if !isBuy {
					rIn, rOut = rBase, rQuote
				}
				maxIn, err := AmountInTillPrice(isBuy, level.Price, book.QuoteScale, rIn, rOut)
				if err != nil {
					return Strategy{}, err
				}
				if maxIn.IsPositive() {
					outCap, err := AmountOut(maxIn, rIn, rOut)
					if err != nil {
						return Strategy{}, err
					}
					if outCap.GTE(remainingOut) {
						// The pool alone can finish the target before its
						// price degrades to this level.
						needIn, err := AmountIn(remainingOut, rIn, rOut)
						if err != nil {
							return Strategy{}, err
						}
						s.AmountToPool = s.AmountToPool.Add(needIn)
						s.PoolOut = s.PoolOut.Add(remainingOut)
						remainingOut = math.ZeroInt()
						break
					}
					s.AmountToPool = s.AmountToPool.Add(maxIn)
					s.PoolOut = s.PoolOut.Add(outCap)
					remainingOut = remainingOut.Sub(outCap)
					if isBuy {
						rQuote = rQuote.Add(maxIn)
						rBase = rBase.Sub(outCap)
					} else {
						rBase = rBase.Add(maxIn)
						rQuote = rQuote.Sub(outCap)
					}
					continue
				}
			}
		}

		if isBuy {
			// Output is base.
			if level.Amount.LTE(remainingOut) {
				levelQuote, err := quoteAmount(book, level.Amount, level.Price)
				if err != nil {
					return Strategy{}, err
				}
				s.AmountToBook = s.AmountToBook.Add(levelQuote)
				s.BookOut = s.BookOut.Add(level.Amount)
				s.LastBookPrice = level.Price
				remainingOut = remainingOut.Sub(level.Amount)
				currID = level.NextID
				continue
			}
			cost, err := quoteAmount(book, remainingOut, level.Price)
			if err != nil {
				return Strategy{}, err
			}
			s.AmountToBook = s.AmountToBook.Add(cost)
			s.BookOut = s.BookOut.Add(remainingOut)
			s.LastBookPrice = level.Price
			remainingOut = math.ZeroInt()
			break
		}

		// Output is quote; the level can deliver up to its base worth.
		levelQuote, err := quoteAmount(book, level.Amount, level.Price)
		if err != nil {
			return Strategy{}, err
		}
		if levelQuote.LTE(remainingOut) {
			s.AmountToBook = s.AmountToBook.Add(level.Amount)
			s.BookOut = s.BookOut.Add(levelQuote)
			s.LastBookPrice = level.Price
			remainingOut = remainingOut.Sub(levelQuote)
			currID = level.NextID
			continue
		}
		base, err := baseAmountCeil(book, remainingOut, level.Price)
		if err != nil {
			return Strategy{}, err
		}
		if base.GT(level.Amount) {
			base = level.Amount
		}
		delivered, err := quoteAmount(book, base, level.Price)
		if err != nil {
			return Strategy{}, err
		}
		s.AmountToBook = s.AmountToBook.Add(base)
		s.BookOut = s.BookOut.Add(delivered)
		s.LastBookPrice = level.Price
		if delivered.GTE(remainingOut) {
			remainingOut = math.ZeroInt()
		} else {
			remainingOut = remainingOut.Sub(delivered)
		}
		break
	}

	if remainingOut.IsPositive() {
		return remainderFromPool()
	}
	return s, nil
}

// StrategyForExactInput computes a single-hop execution plan against a
// consistent snapshot, without mutating state.
func (k *Keeper) StrategyForExactInput(ctx context.Context, tokenIn, tokenOut string, amountIn math.Int) (Strategy, error) {
	st := k.state.begin()
	pool, book, err := hopVenues(st, tokenIn, tokenOut)
	if err != nil {
		return Strategy{}, err
	}
	return k.strategyExactInput(pool, book, tokenIn, tokenOut, amountIn)
}

// StrategyForExactOutput computes a single-hop plan for a target output
// against a consistent snapshot, without mutating state.
func (k *Keeper) StrategyForExactOutput(ctx context.Context, tokenIn, tokenOut string, amountOut math.Int) (Strategy, error) {
	st := k.state.begin()
	pool, book, err := hopVenues(st, tokenIn, tokenOut)
	if err != nil {
		return Strategy{}, err
	}
	return k.strategyExactOutput(pool, book, tokenIn, tokenOut, amountOut)
}
