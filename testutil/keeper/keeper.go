// Package keepertest builds fully wired exchange keepers for tests, with
// deterministic collaborators in place of the production ones.
package keepertest

import (
	"context"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"

	"github.com/gridexchange/gridex/internal/ledger"
	"github.com/gridexchange/gridex/internal/storage/memory"
	"github.com/gridexchange/gridex/x/exchange/keeper"
	"github.com/gridexchange/gridex/x/exchange/types"
)

// FakeClock is a settable clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SeqEntropy hands out 1, 2, 3, ... so order ids are predictable.
type SeqEntropy struct {
	mu sync.Mutex
	n  uint64
}

func (e *SeqEntropy) Rand64() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.n++
	return e.n
}

// SelfAuth authorizes an account for itself only.
type SelfAuth struct{}

func (SelfAuth) Authorize(_ context.Context, caller, principal string) bool {
	return caller == principal
}

// Fixture bundles a keeper with its test collaborators.
type Fixture struct {
	Keeper *keeper.Keeper
	Bank   *ledger.Ledger
	Clock  *FakeClock
	Store  *memory.Store
	Ctx    context.Context
}

// ExchangeKeeper builds a keeper over an in-memory store and ledger.
func ExchangeKeeper() *Fixture {
	clock := NewFakeClock()
	bank := ledger.New()
	store := memory.New()
	k := keeper.NewKeeper(bank, SelfAuth{}, clock, &SeqEntropy{}, store, log.NewNopLogger())
	return &Fixture{
		Keeper: k,
		Bank:   bank,
		Clock:  clock,
		Store:  store,
		Ctx:    context.Background(),
	}
}

// Fund mints balances so the account can trade.
func (f *Fixture) Fund(account, token string, amount int64) {
	f.Bank.Mint(account, token, math.NewInt(amount))
}

// Deadline returns a deadline comfortably in the fixture clock's future.
func (f *Fixture) Deadline() time.Time {
	return f.Clock.Now().Add(time.Hour)
}

// VaultBalance reads the module vault's holdings of a token.
func (f *Fixture) VaultBalance(token string) math.Int {
	return f.Bank.Balance(types.ModuleAccount, token)
}
