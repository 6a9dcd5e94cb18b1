package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	keepertest "github.com/gridexchange/gridex/testutil/keeper"
	"github.com/gridexchange/gridex/x/exchange/keeper"
	"github.com/gridexchange/gridex/x/exchange/types"
)

// newHybridFixture builds a pair with both venues: a 1e6/1e6 pool
// (marginal price 1000 at scale 1000) and an order book.
func newHybridFixture(t *testing.T) *keepertest.Fixture {
	t.Helper()
	f := keepertest.ExchangeKeeper()
	require.NoError(t, f.Keeper.RegisterBook(f.Ctx, base, quote, math.NewInt(1000)))
	f.Fund("lp", base, 10_000_000)
	f.Fund("lp", quote, 10_000_000)
	require.NoError(t, f.Keeper.CreatePool(f.Ctx, "lp", base, quote,
		math.NewInt(1_000_000), math.NewInt(1_000_000)))
	return f
}

func TestStrategyExactInput_PoolOnly(t *testing.T) {
	f := newHybridFixture(t)

	// Empty book: everything routes to the pool.
	strat, err := f.Keeper.StrategyForExactInput(f.Ctx, quote, base, math.NewInt(10_000))
	require.NoError(t, err)
	require.True(t, strat.AmountToBook.IsZero())
	require.Equal(t, math.NewInt(10_000), strat.AmountToPool)
	require.True(t, strat.LastBookPrice.IsZero())

	wantOut, err := keeper.AmountOut(math.NewInt(10_000), math.NewInt(1_000_000), math.NewInt(1_000_000))
	require.NoError(t, err)
	require.Equal(t, wantOut, strat.PoolOut)
}

func TestStrategyExactInput_BookOnly(t *testing.T) {
	f := keepertest.ExchangeKeeper()
	require.NoError(t, f.Keeper.RegisterBook(f.Ctx, base, quote, math.NewInt(1000)))
	f.Fund("maker", base, 10_000)
	_, err := f.Keeper.DealLimitOrder(f.Ctx, base, quote, "maker", math.NewInt(1100), math.NewInt(5000))
	require.NoError(t, err)

	// The level holds 5000 base worth 5500 quote.
	strat, err := f.Keeper.StrategyForExactInput(f.Ctx, quote, base, math.NewInt(5500))
	require.NoError(t, err)
	require.True(t, strat.AmountToPool.IsZero())
	require.Equal(t, math.NewInt(5500), strat.AmountToBook)
	require.Equal(t, math.NewInt(5000), strat.BookOut)
	require.Equal(t, math.NewInt(1100), strat.LastBookPrice)

	// More input than the book holds with no pool behind it.
	_, err = f.Keeper.StrategyForExactInput(f.Ctx, quote, base, math.NewInt(100_000))
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestStrategyExactInput_InterleavesVenues(t *testing.T) {
	f := newHybridFixture(t)
	f.Fund("maker", base, 10_000)
	_, err := f.Keeper.DealLimitOrder(f.Ctx, base, quote, "maker", math.NewInt(1100), math.NewInt(5000))
	require.NoError(t, err)

	strat, err := f.Keeper.StrategyForExactInput(f.Ctx, quote, base, math.NewInt(200_000))
	require.NoError(t, err)

	// Pool is cheaper than the 1100 ask at first, so both venues see flow,
	// and the split conserves the input exactly.
	require.True(t, strat.AmountToPool.IsPositive())
	require.True(t, strat.AmountToBook.IsPositive())
	require.Equal(t, math.NewInt(200_000), strat.TotalIn())

	// The whole 1100 level was consumed at its resting price.
	require.Equal(t, math.NewInt(5000), strat.BookOut)
	require.Equal(t, math.NewInt(5500), strat.AmountToBook)
	require.Equal(t, math.NewInt(1100), strat.LastBookPrice)
	require.True(t, strat.TotalOut().IsPositive())
}

func TestStrategyExactInput_BookBeatsPoolFirst(t *testing.T) {
	f := newHybridFixture(t)
	f.Fund("maker", base, 10_000)
	// Ask below the pool's 1000: the book must fill before the pool.
	_, err := f.Keeper.DealLimitOrder(f.Ctx, base, quote, "maker", math.NewInt(900), math.NewInt(100))
	require.NoError(t, err)

	strat, err := f.Keeper.StrategyForExactInput(f.Ctx, quote, base, math.NewInt(50_000))
	require.NoError(t, err)
	// floor(100*900/1000) = 90 quote consumed the entire cheap level.
	require.Equal(t, math.NewInt(90), strat.AmountToBook)
	require.Equal(t, math.NewInt(100), strat.BookOut)
	require.Equal(t, math.NewInt(49_910), strat.AmountToPool)
}

func TestStrategyExactOutput_PoolOnly(t *testing.T) {
	f := newHybridFixture(t)

	strat, err := f.Keeper.StrategyForExactOutput(f.Ctx, quote, base, math.NewInt(10_000))
	require.NoError(t, err)
	require.True(t, strat.AmountToBook.IsZero())
	require.Equal(t, math.NewInt(10_000), strat.PoolOut)

	wantIn, err := keeper.AmountIn(math.NewInt(10_000), math.NewInt(1_000_000), math.NewInt(1_000_000))
	require.NoError(t, err)
	require.Equal(t, wantIn, strat.AmountToPool)
}

func TestStrategyExactOutput_TargetMet(t *testing.T) {
	f := newHybridFixture(t)
	f.Fund("maker", base, 10_000)
	_, err := f.Keeper.DealLimitOrder(f.Ctx, base, quote, "maker", math.NewInt(1100), math.NewInt(5000))
	require.NoError(t, err)

	target := math.NewInt(60_000)
	strat, err := f.Keeper.StrategyForExactOutput(f.Ctx, quote, base, target)
	require.NoError(t, err)
	require.True(t, strat.TotalOut().GTE(target))
	require.True(t, strat.AmountToPool.IsPositive())
	require.True(t, strat.AmountToBook.IsPositive())
}

func TestStrategy_InvalidArgs(t *testing.T) {
	f := newHybridFixture(t)
	_, err := f.Keeper.StrategyForExactInput(f.Ctx, quote, base, math.ZeroInt())
	require.ErrorIs(t, err, types.ErrInvalidAmount)
	_, err = f.Keeper.StrategyForExactInput(f.Ctx, quote, quote, math.NewInt(1))
	require.ErrorIs(t, err, types.ErrInvalidTokenPair)
	_, err = f.Keeper.StrategyForExactInput(f.Ctx, "eth", "dai", math.NewInt(1))
	require.ErrorIs(t, err, types.ErrNotFound)
}
