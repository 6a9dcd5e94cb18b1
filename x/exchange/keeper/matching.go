package keeper

import (
	"context"

	"cosmossdk.io/math"

	"github.com/gridexchange/gridex/x/exchange/types"
)

// Matching engine. Market-style fills walk the opposite chain from its
// head in price/time priority. Settlement on both full and partial fills
// pays the maker at the resting order's own price, never the taker's
// limit; price improvement accrues to the taker.

// fillResult summarizes one market-style walk, simulated or real.
type fillResult struct {
	// BaseFilled is the base-token quantity matched.
	BaseFilled math.Int
	// QuoteFilled is the quote-token quantity paid at resting prices.
	QuoteFilled math.Int
	// Unfilled is the taker amount left unmatched.
	Unfilled math.Int
}

// crosses reports whether a resting price satisfies the taker's limit.
func crosses(takerIsBuy bool, resting, limit math.Int) bool {
	if takerIsBuy {
		return resting.LTE(limit)
	}
	return resting.GTE(limit)
}

// quoteAmount converts a base quantity at a price into quote units:
// floor(base * price / quoteScale).
func quoteAmount(book *types.Book, base, price math.Int) (math.Int, error) {
	return SafeMulDiv(base, price, book.QuoteScale)
}

// baseAmountCeil converts a quote target at a price into the base
// quantity needed to produce it, rounded up so the fill never
// under-delivers the target.
func baseAmountCeil(book *types.Book, quote, price math.Int) (math.Int, error) {
	return SafeCeilDiv(quote, book.QuoteScale, price)
}

// simulateFill performs the matching walk without mutation or payment.
// Its arithmetic is identical to the real fill step by step, so the totals
// it reports are exactly what settlement will move.
func simulateFill(book *types.Book, takerIsBuy bool, limit, amount math.Int) (fillResult, error) {
	res := fillResult{
		BaseFilled:  math.ZeroInt(),
		QuoteFilled: math.ZeroInt(),
		Unfilled:    amount,
	}
	currID := book.Head(!takerIsBuy)
	for res.Unfilled.IsPositive() && currID != 0 {
		curr := book.Orders[currID]
		if !crosses(takerIsBuy, curr.Price, limit) {
			break
		}
		fill := curr.Amount
		if fill.GT(res.Unfilled) {
			fill = res.Unfilled
		}
		quote, err := quoteAmount(book, fill, curr.Price)
		if err != nil {
			return fillResult{}, err
		}
		res.BaseFilled = res.BaseFilled.Add(fill)
		res.QuoteFilled = res.QuoteFilled.Add(quote)
		res.Unfilled = res.Unfilled.Sub(fill)
		currID = curr.NextID
	}
	return res, nil
}

// marketFill executes the matching walk against a staged book. When
// collect is set the taker's payment for the simulated fill total is
// queued before any mutation; the caller passes collect=false when the
// funds are already escrowed (limit placement, router settlement). The
// taker's receipts and every maker payout are queued per fill.
func (k *Keeper) marketFill(st *staging, book *types.Book, takerIsBuy bool, taker string, limit, amount math.Int, collect bool) (fillResult, error) {
	if limit.IsNil() || !limit.IsPositive() || amount.IsNil() || !amount.IsPositive() {
		return fillResult{}, types.ErrInvalidAmount.Wrapf("market order price %s amount %s", limit, amount)
	}

	sim, err := simulateFill(book, takerIsBuy, limit, amount)
	if err != nil {
		return fillResult{}, err
	}
	if sim.BaseFilled.IsZero() {
		return sim, nil
	}

	if collect {
		if takerIsBuy {
			st.queueTransfer(book.Quote, taker, types.ModuleAccount, sim.QuoteFilled)
		} else {
			st.queueTransfer(book.Base, taker, types.ModuleAccount, sim.BaseFilled)
		}
	}

	pair := book.Pair()
	remaining := amount
	currID := book.Head(!takerIsBuy)
	for remaining.IsPositive() && currID != 0 {
		curr := book.Orders[currID]
		if !crosses(takerIsBuy, curr.Price, limit) {
			break
		}

		if curr.Amount.LTE(remaining) {
			// Full fill: pay the maker at the resting price, unlink.
			quote, err := quoteAmount(book, curr.Amount, curr.Price)
			if err != nil {
				return fillResult{}, err
			}
			if takerIsBuy {
				st.queueTransfer(book.Quote, types.ModuleAccount, curr.Maker, quote)
				st.queueTransfer(book.Base, types.ModuleAccount, taker, curr.Amount)
			} else {
				st.queueTransfer(book.Base, types.ModuleAccount, curr.Maker, curr.Amount)
				st.queueTransfer(book.Quote, types.ModuleAccount, taker, quote)
			}
			remaining = remaining.Sub(curr.Amount)
			next := curr.NextID
			if !removeOrder(book, curr.ID, curr.IsBuy) {
				return fillResult{}, types.ErrInvariantViolation.Wrapf("order %d vanished mid-fill", curr.ID)
			}
			st.dropOrder(pair, curr.ID)
			side := sideLabel(curr.IsBuy)
			st.reportOnCommit(func() {
				k.metrics.OrdersFilled.WithLabelValues(pair, side).Inc()
				k.metrics.RestingOrders.WithLabelValues(pair, side).Dec()
			})
			currID = next
			continue
		}

		// Partial fill: reduce the resting amount in place and stop.
		quote, err := quoteAmount(book, remaining, curr.Price)
		if err != nil {
			return fillResult{}, err
		}
		if takerIsBuy {
			st.queueTransfer(book.Quote, types.ModuleAccount, curr.Maker, quote)
			st.queueTransfer(book.Base, types.ModuleAccount, taker, remaining)
		} else {
			st.queueTransfer(book.Base, types.ModuleAccount, curr.Maker, remaining)
			st.queueTransfer(book.Quote, types.ModuleAccount, taker, quote)
		}
		curr.Amount = curr.Amount.Sub(remaining)
		if !curr.Amount.IsPositive() {
			return fillResult{}, types.ErrInvariantViolation.Wrapf(
				"order %d amount %s after partial fill", curr.ID, curr.Amount)
		}
		remaining = math.ZeroInt()
		side := sideLabel(curr.IsBuy)
		st.reportOnCommit(func() {
			k.metrics.OrdersPartial.WithLabelValues(pair, side).Inc()
		})
	}

	if !remaining.Equal(sim.Unfilled) {
		return fillResult{}, types.ErrInvariantViolation.Wrapf(
			"fill diverged from simulation: unfilled %s, simulated %s", remaining, sim.Unfilled)
	}
	return sim, nil
}

// DealMarketOrder executes an immediate trade of amount base tokens
// at-or-better-than the limit price, consuming resting orders. It returns
// the unfilled remainder, zero when fully matched. The taker's payment for
// the simulated fill total is collected before any book mutation.
func (k *Keeper) DealMarketOrder(ctx context.Context, tokenFrom, tokenTo, taker string, price, amount math.Int) (math.Int, error) {
	k.state.settle.Lock()
	defer k.state.settle.Unlock()

	st := k.state.begin()
	book, err := st.book(types.PairKey(tokenFrom, tokenTo))
	if err != nil {
		return math.Int{}, err
	}
	isBuy, err := takerSide(book, tokenFrom, tokenTo)
	if err != nil {
		return math.Int{}, err
	}

	res, err := k.marketFill(st, book, isBuy, taker, price, amount, true)
	if err != nil {
		return math.Int{}, err
	}
	if err := k.commit(ctx, st); err != nil {
		return math.Int{}, err
	}
	return res.Unfilled, nil
}

// DealLimitOrder first attempts an immediate market fill at the limit
// price; whatever remains unfilled is deposited as a new resting order.
// The maker escrows funds for the full requested amount up front; any
// surplus left by price improvement on the filled portion is refunded.
// Returns the resting order id, zero when the order filled completely.
func (k *Keeper) DealLimitOrder(ctx context.Context, tokenFrom, tokenTo, maker string, price, amount math.Int) (uint64, error) {
	if price.IsNil() || !price.IsPositive() || amount.IsNil() || !amount.IsPositive() {
		return 0, types.ErrInvalidAmount.Wrapf("limit order price %s amount %s", price, amount)
	}

	k.state.settle.Lock()
	defer k.state.settle.Unlock()

	st := k.state.begin()
	book, err := st.book(types.PairKey(tokenFrom, tokenTo))
	if err != nil {
		return 0, err
	}
	isBuy, err := takerSide(book, tokenFrom, tokenTo)
	if err != nil {
		return 0, err
	}

	escrow := amount
	if isBuy {
		if escrow, err = quoteAmount(book, amount, price); err != nil {
			return 0, err
		}
		if escrow.IsZero() {
			return 0, types.ErrInvalidAmount.Wrapf(
				"order of %s base at price %s is worth zero quote units", amount, price)
		}
		st.queueTransfer(book.Quote, maker, types.ModuleAccount, escrow)
	} else {
		st.queueTransfer(book.Base, maker, types.ModuleAccount, escrow)
	}

	res, err := k.marketFill(st, book, isBuy, maker, price, amount, false)
	if err != nil {
		return 0, err
	}

	pair := book.Pair()
	var restingID uint64
	if res.Unfilled.IsPositive() {
		order := &types.LimitOrder{
			ID:     k.newOrderID(book),
			Maker:  maker,
			IsBuy:  isBuy,
			Price:  price,
			Amount: res.Unfilled,
		}
		insertOrder(book, order)
		restingID = order.ID
		side := sideLabel(isBuy)
		st.reportOnCommit(func() {
			k.metrics.OrdersPlaced.WithLabelValues(pair, side).Inc()
			k.metrics.RestingOrders.WithLabelValues(pair, side).Inc()
		})
	}

	if isBuy {
		// The filled portion was paid at resting prices and the rest is
		// re-escrowed at the limit price; refund the rounding surplus.
		restEscrow := math.ZeroInt()
		if res.Unfilled.IsPositive() {
			if restEscrow, err = quoteAmount(book, res.Unfilled, price); err != nil {
				return 0, err
			}
		}
		surplus := escrow.Sub(res.QuoteFilled).Sub(restEscrow)
		if surplus.IsNegative() {
			return 0, types.ErrInvariantViolation.Wrapf(
				"limit order escrow %s under-funds fill %s + rest %s", escrow, res.QuoteFilled, restEscrow)
		}
		st.queueTransfer(book.Quote, types.ModuleAccount, maker, surplus)
	}

	if err := k.commit(ctx, st); err != nil {
		return 0, err
	}

	k.logger.Info("limit order dealt", "pair", pair, "maker", maker,
		"price", price.String(), "amount", amount.String(),
		"filled", res.BaseFilled.String(), "resting_id", restingID)
	return restingID, nil
}

// CancelOrder removes a maker's resting order and refunds its remaining
// escrow: quote for buy orders, base for sell orders. The caller must be
// authorized to act as the order's maker.
func (k *Keeper) CancelOrder(ctx context.Context, tokenFrom, tokenTo string, id uint64, isBuy bool, caller string) error {
	k.state.settle.Lock()
	defer k.state.settle.Unlock()

	st := k.state.begin()
	book, err := st.book(types.PairKey(tokenFrom, tokenTo))
	if err != nil {
		return err
	}

	order, ok := book.Orders[id]
	if !ok || order.IsBuy != isBuy {
		return types.ErrNotFound.Wrapf("order %d not resting on pair %s", id, book.Pair())
	}
	if !k.auth.Authorize(ctx, caller, order.Maker) {
		return types.ErrUnauthorized.Wrapf("caller %s is not maker of order %d", caller, id)
	}

	if !removeOrder(book, id, isBuy) {
		return types.ErrInvariantViolation.Wrapf("order %d present in arena but not linked", id)
	}
	st.dropOrder(book.Pair(), id)

	if order.IsBuy {
		refund, err := quoteAmount(book, order.Amount, order.Price)
		if err != nil {
			return err
		}
		st.queueTransfer(book.Quote, types.ModuleAccount, order.Maker, refund)
	} else {
		st.queueTransfer(book.Base, types.ModuleAccount, order.Maker, order.Amount)
	}

	if err := k.commit(ctx, st); err != nil {
		return err
	}

	k.metrics.OrdersCancel.WithLabelValues(book.Pair(), sideLabel(isBuy)).Inc()
	k.metrics.RestingOrders.WithLabelValues(book.Pair(), sideLabel(isBuy)).Dec()
	return nil
}

// TryMatch simulates a market order without mutating anything, returning
// the base filled, the quote paid at resting prices, and the unfilled
// remainder. Its results are bit-identical to what the corresponding real
// fill would settle.
func (k *Keeper) TryMatch(ctx context.Context, tokenFrom, tokenTo string, price, amount math.Int) (baseFilled, quotePaid, unfilled math.Int, err error) {
	_, book := k.state.snapshotPair(types.PairKey(tokenFrom, tokenTo))
	if book == nil {
		return math.Int{}, math.Int{}, math.Int{}, types.ErrNotFound.Wrapf(
			"no order book for pair %s", types.PairKey(tokenFrom, tokenTo))
	}
	isBuy, err := takerSide(book, tokenFrom, tokenTo)
	if err != nil {
		return math.Int{}, math.Int{}, math.Int{}, err
	}
	if price.IsNil() || !price.IsPositive() || amount.IsNil() || !amount.IsPositive() {
		return math.Int{}, math.Int{}, math.Int{}, types.ErrInvalidAmount.Wrapf(
			"market order price %s amount %s", price, amount)
	}
	res, err := simulateFill(book, isBuy, price, amount)
	if err != nil {
		return math.Int{}, math.Int{}, math.Int{}, err
	}
	return res.BaseFilled, res.QuoteFilled, res.Unfilled, nil
}

// GetTotalPayment returns what a taker must pay up front for a market
// order: quote units when buying base, base units when selling it.
func (k *Keeper) GetTotalPayment(ctx context.Context, tokenFrom, tokenTo string, price, amount math.Int) (math.Int, error) {
	baseFilled, quotePaid, _, err := k.TryMatch(ctx, tokenFrom, tokenTo, price, amount)
	if err != nil {
		return math.Int{}, err
	}
	_, book := k.state.snapshotPair(types.PairKey(tokenFrom, tokenTo))
	isBuy, err := takerSide(book, tokenFrom, tokenTo)
	if err != nil {
		return math.Int{}, err
	}
	if isBuy {
		return quotePaid, nil
	}
	return baseFilled, nil
}
