package keeper_test

import (
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/gridexchange/gridex/x/exchange/keeper"
)

func TestSafeMulDiv_Floor(t *testing.T) {
	got, err := keeper.SafeMulDiv(math.NewInt(7), math.NewInt(3), math.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, math.NewInt(10), got)
}

func TestSafeMulDiv_DivisionByZero(t *testing.T) {
	_, err := keeper.SafeMulDiv(math.NewInt(1), math.NewInt(1), math.ZeroInt())
	require.Error(t, err)
}

func TestSafeCeilDiv_RoundsUp(t *testing.T) {
	got, err := keeper.SafeCeilDiv(math.NewInt(7), math.NewInt(3), math.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, math.NewInt(11), got)

	// Exact division must not round.
	got, err = keeper.SafeCeilDiv(math.NewInt(8), math.NewInt(3), math.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, math.NewInt(12), got)
}

func TestSafeSub_Underflow(t *testing.T) {
	_, err := keeper.SafeSub(math.NewInt(1), math.NewInt(2))
	require.Error(t, err)

	got, err := keeper.SafeSub(math.NewInt(5), math.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, math.NewInt(3), got)
}

func TestIntegerSqrt(t *testing.T) {
	cases := map[int64]int64{
		0:  0,
		1:  1,
		2:  1,
		3:  1,
		4:  2,
		8:  2,
		9:  3,
		15: 3,
		16: 4,
		99: 9,
	}
	for in, want := range cases {
		got := keeper.IntegerSqrt(big.NewInt(in))
		require.Equal(t, want, got.Int64(), "sqrt(%d)", in)
	}
}

func TestIntegerSqrt_Large(t *testing.T) {
	// (10^18)^2 must round-trip exactly.
	root, _ := new(big.Int).SetString("1000000000000000000", 10)
	square := new(big.Int).Mul(root, root)
	require.Equal(t, 0, keeper.IntegerSqrt(square).Cmp(root))

	// One below a perfect square floors to the previous root.
	squareMinus := new(big.Int).Sub(square, big.NewInt(1))
	wantFloor := new(big.Int).Sub(root, big.NewInt(1))
	require.Equal(t, 0, keeper.IntegerSqrt(squareMinus).Cmp(wantFloor))
}
