// Package ledger holds token balances for the node. It implements the
// exchange keeper's bank collaborator and backs the account endpoints.
package ledger

import (
	"context"
	"sort"
	"sync"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
)

var (
	ErrInsufficientFunds = errors.Register("ledger", 1, "insufficient funds")
	ErrInvalidTransfer   = errors.Register("ledger", 2, "invalid transfer")
)

// Ledger is an in-memory balance book. Safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	balances map[string]map[string]math.Int // account -> token -> amount
}

func New() *Ledger {
	return &Ledger{balances: make(map[string]map[string]math.Int)}
}

// Mint credits amount of token to account out of thin air.
func (l *Ledger) Mint(account, token string, amount math.Int) {
	if !amount.IsPositive() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(account, token, amount)
}

// Balance reports the amount of token held by account.
func (l *Ledger) Balance(account, token string) math.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if acct, ok := l.balances[account]; ok {
		if bal, ok := acct[token]; ok {
			return bal
		}
	}
	return math.ZeroInt()
}

// Balances returns every non-zero balance of account, sorted by token.
func (l *Ledger) Balances(account string) map[string]math.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]math.Int, len(l.balances[account]))
	for token, bal := range l.balances[account] {
		if !bal.IsZero() {
			out[token] = bal
		}
	}
	return out
}

// Tokens returns the sorted list of tokens account holds.
func (l *Ledger) Tokens(account string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tokens := make([]string, 0, len(l.balances[account]))
	for token, bal := range l.balances[account] {
		if !bal.IsZero() {
			tokens = append(tokens, token)
		}
	}
	sort.Strings(tokens)
	return tokens
}

// Transfer moves amount of token from one account to another. It either
// applies fully or not at all.
func (l *Ledger) Transfer(ctx context.Context, token, from, to string, amount math.Int) error {
	if amount.IsNegative() {
		return ErrInvalidTransfer.Wrapf("negative amount %s", amount)
	}
	if amount.IsZero() || from == to {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := math.ZeroInt()
	if acct, ok := l.balances[from]; ok {
		if b, ok := acct[token]; ok {
			bal = b
		}
	}
	if bal.LT(amount) {
		return ErrInsufficientFunds.Wrapf("%s has %s %s, needs %s", from, bal, token, amount)
	}
	l.balances[from][token] = bal.Sub(amount)
	l.credit(to, token, amount)
	return nil
}

// credit assumes l.mu is held.
func (l *Ledger) credit(account, token string, amount math.Int) {
	acct, ok := l.balances[account]
	if !ok {
		acct = make(map[string]math.Int)
		l.balances[account] = acct
	}
	if bal, ok := acct[token]; ok {
		acct[token] = bal.Add(amount)
	} else {
		acct[token] = amount
	}
}
