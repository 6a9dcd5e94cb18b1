package keeper

import (
	"context"

	"cosmossdk.io/math"

	"github.com/gridexchange/gridex/x/exchange/types"
)

// Order book store: registration, the two price-ordered chains, and the
// read-only views over them. The chains are walked from the head on every
// insert and removal; resting-order counts are bounded by the economic
// cost of placing and cancelling, so the O(n) walk is deliberate.

// RegisterBook creates the order book for a pair. Registration is
// idempotent at the pair level: a second call for the same canonical pair
// returns ErrBookExists without mutating anything, regardless of argument
// order.
func (k *Keeper) RegisterBook(ctx context.Context, base, quote string, quoteScale math.Int) error {
	if base == "" || quote == "" || base == quote {
		return types.ErrInvalidTokenPair.Wrapf("invalid book pair %q/%q", base, quote)
	}
	if quoteScale.IsNil() || !quoteScale.IsPositive() {
		return types.ErrInvalidAmount.Wrapf("quote scale must be positive, got %s", quoteScale)
	}

	k.state.settle.Lock()
	defer k.state.settle.Unlock()

	pair := types.PairKey(base, quote)
	k.state.mu.RLock()
	_, exists := k.state.books[pair]
	k.state.mu.RUnlock()
	if exists {
		return types.ErrBookExists.Wrapf("pair %s", pair)
	}

	st := k.state.begin()
	st.stageBook(types.NewBook(base, quote, quoteScale))
	if err := k.commit(ctx, st); err != nil {
		return err
	}

	k.metrics.BooksTotal.Inc()
	k.logger.Info("order book registered", "pair", pair, "quote_scale", quoteScale.String())
	return nil
}

// CreatePool seeds the constant-product venue for a pair, collecting both
// initial reserves from the creator.
func (k *Keeper) CreatePool(ctx context.Context, creator, base, quote string, reserveBase, reserveQuote math.Int) error {
	pool := types.NewPool(base, quote, reserveBase, reserveQuote)
	if err := pool.Validate(); err != nil {
		return err
	}
	if !reserveBase.IsPositive() || !reserveQuote.IsPositive() {
		return types.ErrInvalidAmount.Wrap("initial reserves must be positive")
	}

	k.state.settle.Lock()
	defer k.state.settle.Unlock()

	pair := pool.Pair()
	k.state.mu.RLock()
	_, exists := k.state.pools[pair]
	k.state.mu.RUnlock()
	if exists {
		return types.ErrPoolExists.Wrapf("pair %s", pair)
	}

	st := k.state.begin()
	st.stagePool(pool)
	st.queueTransfer(base, creator, types.ModuleAccount, reserveBase)
	st.queueTransfer(quote, creator, types.ModuleAccount, reserveQuote)
	if err := k.commit(ctx, st); err != nil {
		return err
	}

	k.logger.Info("pool created", "pair", pair,
		"reserve_base", reserveBase.String(), "reserve_quote", reserveQuote.String())
	return nil
}

// newOrderID draws an unused, unpredictable order id from the entropy
// collaborator. Zero is the chain sentinel and is never assigned.
func (k *Keeper) newOrderID(book *types.Book) uint64 {
	for {
		id := k.entropy.Rand64()
		if id == 0 {
			continue
		}
		if _, taken := book.Orders[id]; !taken {
			return id
		}
	}
}

// insertOrder links a new order into its side's chain: before the first
// node whose price is strictly worse, after every node with an equal or
// better price. Equal-price orders therefore keep insertion order, which
// realizes price priority with a FIFO tie-break.
func insertOrder(book *types.Book, order *types.LimitOrder) {
	var prevID uint64
	currID := book.Head(order.IsBuy)
	for currID != 0 {
		curr := book.Orders[currID]
		if priceWorse(order.IsBuy, curr.Price, order.Price) {
			break
		}
		prevID, currID = currID, curr.NextID
	}

	order.NextID = currID
	if prevID == 0 {
		book.SetHead(order.IsBuy, order.ID)
	} else {
		book.Orders[prevID].NextID = order.ID
	}
	book.Orders[order.ID] = order
}

// removeOrder unlinks an order anywhere in its side's chain and deletes it
// from the arena. Returns false when the id is not linked on that side.
func removeOrder(book *types.Book, id uint64, isBuy bool) bool {
	var prevID uint64
	currID := book.Head(isBuy)
	for currID != 0 {
		curr := book.Orders[currID]
		if currID == id {
			if prevID == 0 {
				book.SetHead(isBuy, curr.NextID)
			} else {
				book.Orders[prevID].NextID = curr.NextID
			}
			delete(book.Orders, id)
			return true
		}
		prevID, currID = currID, curr.NextID
	}
	return false
}

// priceWorse reports whether a resting price sorts strictly after a new
// order's price on the given side: lower bids are worse, higher asks are
// worse.
func priceWorse(isBuy bool, resting, incoming math.Int) bool {
	if isBuy {
		return resting.LT(incoming)
	}
	return resting.GT(incoming)
}

// takerSide derives which side of the book a taker trading tokenFrom for
// tokenTo hits: paying quote for base is a buy, the reverse a sell.
func takerSide(book *types.Book, tokenFrom, tokenTo string) (bool, error) {
	switch {
	case tokenFrom == book.Quote && tokenTo == book.Base:
		return true, nil
	case tokenFrom == book.Base && tokenTo == book.Quote:
		return false, nil
	default:
		return false, types.ErrInvalidTokenPair.Wrapf(
			"tokens %s/%s do not match book %s/%s", tokenFrom, tokenTo, book.Base, book.Quote)
	}
}

// GetMarketPrice returns the best price a taker trading tokenFrom for
// tokenTo would face, i.e. the opposite side's head price, or zero when
// that side is empty.
func (k *Keeper) GetMarketPrice(ctx context.Context, tokenFrom, tokenTo string) (math.Int, error) {
	_, book := k.state.snapshotPair(types.PairKey(tokenFrom, tokenTo))
	if book == nil {
		return math.Int{}, types.ErrNotFound.Wrapf("no order book for pair %s", types.PairKey(tokenFrom, tokenTo))
	}
	isBuy, err := takerSide(book, tokenFrom, tokenTo)
	if err != nil {
		return math.Int{}, err
	}
	head := book.Head(!isBuy)
	if head == 0 {
		return math.ZeroInt(), nil
	}
	return book.Orders[head].Price, nil
}

// GetBookLevels aggregates one side of a book into price levels, best
// first, up to limit levels (0 = no limit).
func (k *Keeper) GetBookLevels(ctx context.Context, base, quote string, isBuy bool, limit int) ([]types.BookLevel, error) {
	_, book := k.state.snapshotPair(types.PairKey(base, quote))
	if book == nil {
		return nil, types.ErrNotFound.Wrapf("no order book for pair %s", types.PairKey(base, quote))
	}

	var levels []types.BookLevel
	currID := book.Head(isBuy)
	for currID != 0 {
		curr := book.Orders[currID]
		if n := len(levels); n > 0 && levels[n-1].Price.Equal(curr.Price) {
			levels[n-1].Amount = levels[n-1].Amount.Add(curr.Amount)
			levels[n-1].Orders++
		} else {
			if limit > 0 && len(levels) == limit {
				break
			}
			levels = append(levels, types.BookLevel{Price: curr.Price, Amount: curr.Amount, Orders: 1})
		}
		currID = curr.NextID
	}
	return levels, nil
}

// GetBookLevel returns the n-th best price level of one side (0 = best).
func (k *Keeper) GetBookLevel(ctx context.Context, base, quote string, isBuy bool, index int) (types.BookLevel, error) {
	levels, err := k.GetBookLevels(ctx, base, quote, isBuy, index+1)
	if err != nil {
		return types.BookLevel{}, err
	}
	if index < 0 || index >= len(levels) {
		return types.BookLevel{}, types.ErrNotFound.Wrapf("book side has no level %d", index)
	}
	return levels[index], nil
}

// OrdersByMaker lists a maker's resting orders on a book, both sides.
func (k *Keeper) OrdersByMaker(ctx context.Context, base, quote, maker string) ([]*types.LimitOrder, error) {
	_, book := k.state.snapshotPair(types.PairKey(base, quote))
	if book == nil {
		return nil, types.ErrNotFound.Wrapf("no order book for pair %s", types.PairKey(base, quote))
	}

	var orders []*types.LimitOrder
	for _, isBuy := range []bool{true, false} {
		currID := book.Head(isBuy)
		for currID != 0 {
			curr := book.Orders[currID]
			if curr.Maker == maker {
				orders = append(orders, curr.Clone())
			}
			currID = curr.NextID
		}
	}
	return orders, nil
}

// GetBook returns a consistent snapshot of a book, primarily for the API
// and tests.
func (k *Keeper) GetBook(ctx context.Context, base, quote string) (*types.Book, error) {
	_, book := k.state.snapshotPair(types.PairKey(base, quote))
	if book == nil {
		return nil, types.ErrNotFound.Wrapf("no order book for pair %s", types.PairKey(base, quote))
	}
	return book, nil
}

// GetPool returns a consistent snapshot of a pair's pool.
func (k *Keeper) GetPool(ctx context.Context, tokenA, tokenB string) (*types.Pool, error) {
	pool, _ := k.state.snapshotPair(types.PairKey(tokenA, tokenB))
	if pool == nil {
		return nil, types.ErrNotFound.Wrapf("no pool for pair %s", types.PairKey(tokenA, tokenB))
	}
	return pool, nil
}
