package keeper

import (
	"context"
	"time"

	"cosmossdk.io/math"

	"github.com/gridexchange/gridex/x/exchange/types"
)

// Multi-hop routing and settlement. A path is a token chain; each
// consecutive pair is one hop. Settlement executes hops strictly in path
// order against the staged state and commits all of them, or none.

// validatePath checks the token chain: at least one hop, no empty tokens,
// and no pair visited twice. Reverse planning prices every hop against the
// untouched snapshot, so a repeated pair would settle against stale state.
func validatePath(path []string) error {
	if len(path) < 2 {
		return types.ErrInvalidPath.Wrapf("got %d tokens", len(path))
	}
	seen := make(map[string]struct{}, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		if path[i] == "" || path[i+1] == "" || path[i] == path[i+1] {
			return types.ErrInvalidTokenPair.Wrapf("hop %d: %q -> %q", i, path[i], path[i+1])
		}
		pair := types.PairKey(path[i], path[i+1])
		if _, dup := seen[pair]; dup {
			return types.ErrInvalidPath.Wrapf("pair %s appears twice in path", pair)
		}
		seen[pair] = struct{}{}
	}
	return nil
}

// bookLegBound widens the worst touched book price by the slippage
// tolerance so the settlement market order survives harmless rounding,
// while still failing fast on anything larger.
func bookLegBound(isBuy bool, lastBookPrice math.Int) (math.Int, error) {
	bp := math.NewInt(types.SlippageToleranceBP)
	if isBuy {
		return SafeCeilDiv(lastBookPrice, bp.AddRaw(1), bp)
	}
	bound, err := SafeMulDiv(lastBookPrice, bp.SubRaw(1), bp)
	if err != nil {
		return math.Int{}, err
	}
	if bound.IsZero() {
		bound = math.OneInt()
	}
	return bound, nil
}

// executeHop settles one hop of a precomputed strategy against the staged
// state: the book leg as a bounded market order that must fully fill, then
// the pool leg with the constant-product invariant verified. The vault
// acts as the taker, so intermediate outputs never leave custody.
func (k *Keeper) executeHop(st *staging, strat Strategy) error {
	pair := types.PairKey(strat.TokenIn, strat.TokenOut)

	if strat.AmountToBook.IsPositive() {
		book, err := st.book(pair)
		if err != nil {
			return err
		}
		isBuy, err := takerSide(book, strat.TokenIn, strat.TokenOut)
		if err != nil {
			return err
		}
		bound, err := bookLegBound(isBuy, strat.LastBookPrice)
		if err != nil {
			return err
		}
		baseAmount := strat.BookOut
		if !isBuy {
			baseAmount = strat.AmountToBook
		}

		res, err := k.marketFill(st, book, isBuy, types.ModuleAccount, bound, baseAmount, false)
		if err != nil {
			return err
		}
		if res.Unfilled.IsPositive() {
			// The plan was computed against this same staged snapshot; a
			// remainder means the fill diverged from the plan.
			return types.ErrNotFullyFilled.Wrapf(
				"book leg on %s left %s unfilled", pair, res.Unfilled)
		}
		bookIn, bookOut := res.QuoteFilled, res.BaseFilled
		if !isBuy {
			bookIn, bookOut = res.BaseFilled, res.QuoteFilled
		}
		if !bookIn.Equal(strat.AmountToBook) || !bookOut.Equal(strat.BookOut) {
			return types.ErrInvariantViolation.Wrapf(
				"book leg on %s settled (%s, %s), planned (%s, %s)",
				pair, bookIn, bookOut, strat.AmountToBook, strat.BookOut)
		}
	}

	if strat.AmountToPool.IsPositive() {
		pool, err := st.pool(pair)
		if err != nil {
			return err
		}
		rIn, rOut, ok := pool.Reserves(strat.TokenIn)
		if !ok {
			return types.ErrInvalidTokenPair.Wrapf("token %s not in pool %s", strat.TokenIn, pair)
		}
		if err := CheckConstantProduct(rIn, rOut, strat.AmountToPool, strat.PoolOut); err != nil {
			return err
		}
		if err := pool.ApplySwap(strat.TokenIn, strat.AmountToPool, strat.PoolOut); err != nil {
			return err
		}
	}

	return nil
}

// routePath plans and settles an exact-input trade hop by hop against the
// staged state, feeding each hop's output into the next.
func (k *Keeper) routePath(st *staging, path []string, amountIn math.Int) ([]Strategy, math.Int, error) {
	strategies := make([]Strategy, 0, len(path)-1)
	current := amountIn
	for i := 0; i+1 < len(path); i++ {
		pool, book, err := hopVenues(st, path[i], path[i+1])
		if err != nil {
			return nil, math.Int{}, err
		}
		strat, err := k.strategyExactInput(pool, book, path[i], path[i+1], current)
		if err != nil {
			return nil, math.Int{}, err
		}
		if err := k.executeHop(st, strat); err != nil {
			return nil, math.Int{}, err
		}
		strategies = append(strategies, strat)
		current = strat.TotalOut()
		if !current.IsPositive() {
			return nil, math.Int{}, types.ErrInvalidAmount.Wrapf(
				"hop %s -> %s produced no output", path[i], path[i+1])
		}
	}
	return strategies, current, nil
}

// routePathReverse plans an exact-output trade from the last hop backward,
// then settles the hops forward. The backward pass runs against the
// untouched staged snapshot, mirroring how the forward pass simulates
// reserves locally.
func (k *Keeper) routePathReverse(st *staging, path []string, amountOut math.Int) ([]Strategy, math.Int, error) {
	strategies := make([]Strategy, len(path)-1)
	required := amountOut
	for i := len(path) - 2; i >= 0; i-- {
		pool, book, err := hopVenues(st, path[i], path[i+1])
		if err != nil {
			return nil, math.Int{}, err
		}
		strat, err := k.strategyExactOutput(pool, book, path[i], path[i+1], required)
		if err != nil {
			return nil, math.Int{}, err
		}
		strategies[i] = strat
		required = strat.TotalIn()
	}
	for _, strat := range strategies {
		if err := k.executeHop(st, strat); err != nil {
			return nil, math.Int{}, err
		}
	}
	return strategies, required, nil
}

// StrategiesForPath computes the per-hop plans for an exact-input trade
// along a token path without mutating state.
func (k *Keeper) StrategiesForPath(ctx context.Context, path []string, amountIn math.Int) ([]Strategy, math.Int, error) {
	if err := validatePath(path); err != nil {
		return nil, math.Int{}, err
	}
	return k.routePath(k.state.begin(), path, amountIn)
}

// StrategiesForPathReverse computes the per-hop plans for an exact-output
// trade, working from the last hop to the first, without mutating state.
func (k *Keeper) StrategiesForPathReverse(ctx context.Context, path []string, amountOut math.Int) ([]Strategy, math.Int, error) {
	if err := validatePath(path); err != nil {
		return nil, math.Int{}, err
	}
	return k.routePathReverse(k.state.begin(), path, amountOut)
}

// QuoteExactInput returns the output an exact-input trade would produce.
func (k *Keeper) QuoteExactInput(ctx context.Context, path []string, amountIn math.Int) (math.Int, error) {
	_, out, err := k.StrategiesForPath(ctx, path, amountIn)
	if err != nil {
		return math.Int{}, err
	}
	return out, nil
}

// QuoteExactOutput returns the input an exact-output trade would require.
func (k *Keeper) QuoteExactOutput(ctx context.Context, path []string, amountOut math.Int) (math.Int, error) {
	_, in, err := k.StrategiesForPathReverse(ctx, path, amountOut)
	if err != nil {
		return math.Int{}, err
	}
	return in, nil
}

// SwapExactInput settles an exact-input trade along a path. The caller's
// deadline is validated once at entry; the final output must reach
// minAmountOut or the whole settlement is discarded.
func (k *Keeper) SwapExactInput(ctx context.Context, trader string, path []string, amountIn, minAmountOut math.Int, deadline time.Time) (math.Int, error) {
	if err := validatePath(path); err != nil {
		return math.Int{}, err
	}
	start := time.Now()
	pairLabel := types.PairKey(path[0], path[len(path)-1])

	out, err := k.swapExactInput(ctx, trader, path, amountIn, minAmountOut, deadline)
	status := "ok"
	if err != nil {
		status = "failed"
	}
	k.metrics.SwapsTotal.WithLabelValues(pairLabel, status).Inc()
	k.metrics.SwapLatency.Observe(time.Since(start).Seconds())
	return out, err
}

func (k *Keeper) swapExactInput(ctx context.Context, trader string, path []string, amountIn, minAmountOut math.Int, deadline time.Time) (math.Int, error) {
	if err := validatePath(path); err != nil {
		return math.Int{}, err
	}
	if amountIn.IsNil() || !amountIn.IsPositive() {
		return math.Int{}, types.ErrInvalidAmount.Wrapf("swap input must be positive, got %s", amountIn)
	}
	if !deadline.IsZero() && k.clock.Now().After(deadline) {
		return math.Int{}, types.ErrDeadlineExceeded.Wrapf("deadline %s", deadline)
	}

	k.state.settle.Lock()
	defer k.state.settle.Unlock()

	st := k.state.begin()
	st.queueTransfer(path[0], trader, types.ModuleAccount, amountIn)

	strategies, out, err := k.routePath(st, path, amountIn)
	if err != nil {
		return math.Int{}, err
	}
	if !minAmountOut.IsNil() && out.LT(minAmountOut) {
		return math.Int{}, types.ErrSlippageExceeded.Wrapf(
			"output %s below minimum %s", out, minAmountOut)
	}
	st.queueTransfer(path[len(path)-1], types.ModuleAccount, trader, out)

	if err := k.commit(ctx, st); err != nil {
		return math.Int{}, err
	}

	k.logger.Info("swap settled", "trader", trader, "path", path,
		"amount_in", amountIn.String(), "amount_out", out.String(), "hops", len(strategies))
	return out, nil
}

// SwapExactOutput settles an exact-output trade along a path. The computed
// input requirement must not exceed maxAmountIn.
func (k *Keeper) SwapExactOutput(ctx context.Context, trader string, path []string, amountOut, maxAmountIn math.Int, deadline time.Time) (math.Int, error) {
	if err := validatePath(path); err != nil {
		return math.Int{}, err
	}
	start := time.Now()
	pairLabel := types.PairKey(path[0], path[len(path)-1])

	in, err := k.swapExactOutput(ctx, trader, path, amountOut, maxAmountIn, deadline)
	status := "ok"
	if err != nil {
		status = "failed"
	}
	k.metrics.SwapsTotal.WithLabelValues(pairLabel, status).Inc()
	k.metrics.SwapLatency.Observe(time.Since(start).Seconds())
	return in, err
}

func (k *Keeper) swapExactOutput(ctx context.Context, trader string, path []string, amountOut, maxAmountIn math.Int, deadline time.Time) (math.Int, error) {
	if err := validatePath(path); err != nil {
		return math.Int{}, err
	}
	if amountOut.IsNil() || !amountOut.IsPositive() {
		return math.Int{}, types.ErrInvalidAmount.Wrapf("swap output must be positive, got %s", amountOut)
	}
	if !deadline.IsZero() && k.clock.Now().After(deadline) {
		return math.Int{}, types.ErrDeadlineExceeded.Wrapf("deadline %s", deadline)
	}

	k.state.settle.Lock()
	defer k.state.settle.Unlock()

	st := k.state.begin()
	strategies, in, err := k.routePathReverse(st, path, amountOut)
	if err != nil {
		return math.Int{}, err
	}
	if !maxAmountIn.IsNil() && in.GT(maxAmountIn) {
		return math.Int{}, types.ErrSlippageExceeded.Wrapf(
			"input %s above maximum %s", in, maxAmountIn)
	}

	delivered := strategies[len(strategies)-1].TotalOut()
	st.queueTransferFirst(path[0], trader, types.ModuleAccount, in)
	st.queueTransfer(path[len(path)-1], types.ModuleAccount, trader, delivered)

	if err := k.commit(ctx, st); err != nil {
		return math.Int{}, err
	}

	k.logger.Info("swap settled", "trader", trader, "path", path,
		"amount_out", delivered.String(), "amount_in", in.String(), "hops", len(strategies))
	return in, nil
}
