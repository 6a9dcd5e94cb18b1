package ledger_test

import (
	"context"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/gridexchange/gridex/internal/ledger"
)

func TestLedger_MintAndBalance(t *testing.T) {
	l := ledger.New()
	require.True(t, l.Balance("alice", "atom").IsZero())

	l.Mint("alice", "atom", math.NewInt(100))
	l.Mint("alice", "atom", math.NewInt(50))
	require.Equal(t, math.NewInt(150), l.Balance("alice", "atom"))

	// Non-positive mints are ignored.
	l.Mint("alice", "atom", math.NewInt(-10))
	require.Equal(t, math.NewInt(150), l.Balance("alice", "atom"))
}

func TestLedger_Transfer(t *testing.T) {
	l := ledger.New()
	ctx := context.Background()
	l.Mint("alice", "atom", math.NewInt(100))

	require.NoError(t, l.Transfer(ctx, "atom", "alice", "bob", math.NewInt(40)))
	require.Equal(t, math.NewInt(60), l.Balance("alice", "atom"))
	require.Equal(t, math.NewInt(40), l.Balance("bob", "atom"))

	err := l.Transfer(ctx, "atom", "alice", "bob", math.NewInt(61))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	require.Equal(t, math.NewInt(60), l.Balance("alice", "atom"))

	require.ErrorIs(t, l.Transfer(ctx, "atom", "alice", "bob", math.NewInt(-1)), ledger.ErrInvalidTransfer)

	// Zero and self transfers are no-ops.
	require.NoError(t, l.Transfer(ctx, "atom", "alice", "bob", math.ZeroInt()))
	require.NoError(t, l.Transfer(ctx, "atom", "alice", "alice", math.NewInt(10)))
	require.Equal(t, math.NewInt(60), l.Balance("alice", "atom"))
}

func TestLedger_BalancesAndTokens(t *testing.T) {
	l := ledger.New()
	l.Mint("alice", "usdc", math.NewInt(5))
	l.Mint("alice", "atom", math.NewInt(7))

	require.Equal(t, []string{"atom", "usdc"}, l.Tokens("alice"))
	balances := l.Balances("alice")
	require.Len(t, balances, 2)
	require.Equal(t, math.NewInt(7), balances["atom"])
}
