package types

import (
	"cosmossdk.io/math"
)

// Pool holds the two reserve balances of a constant-product pair. Reserves
// are read and written only through the keeper's quote/swap interface.
type Pool struct {
	// Base is the asset being priced.
	Base string `json:"base"`
	// Quote is the pricing currency.
	Quote string `json:"quote"`
	// ReserveBase is the pooled balance of the base token.
	ReserveBase math.Int `json:"reserve_base"`
	// ReserveQuote is the pooled balance of the quote token.
	ReserveQuote math.Int `json:"reserve_quote"`
}

// NewPool returns a pool with the given initial reserves.
func NewPool(base, quote string, reserveBase, reserveQuote math.Int) *Pool {
	return &Pool{
		Base:         base,
		Quote:        quote,
		ReserveBase:  reserveBase,
		ReserveQuote: reserveQuote,
	}
}

// Pair returns the canonical pair key of the pool.
func (p *Pool) Pair() string {
	return PairKey(p.Base, p.Quote)
}

// Reserves returns the reserves oriented for a swap selling tokenIn.
// The second return is false when tokenIn is neither side of the pair.
func (p *Pool) Reserves(tokenIn string) (reserveIn, reserveOut math.Int, ok bool) {
	switch tokenIn {
	case p.Base:
		return p.ReserveBase, p.ReserveQuote, true
	case p.Quote:
		return p.ReserveQuote, p.ReserveBase, true
	default:
		return math.Int{}, math.Int{}, false
	}
}

// ApplySwap moves amountIn of tokenIn into the pool and amountOut out of it.
func (p *Pool) ApplySwap(tokenIn string, amountIn, amountOut math.Int) error {
	switch tokenIn {
	case p.Base:
		p.ReserveBase = p.ReserveBase.Add(amountIn)
		p.ReserveQuote = p.ReserveQuote.Sub(amountOut)
	case p.Quote:
		p.ReserveQuote = p.ReserveQuote.Add(amountIn)
		p.ReserveBase = p.ReserveBase.Sub(amountOut)
	default:
		return ErrInvalidTokenPair.Wrapf("token %s not in pool %s", tokenIn, p.Pair())
	}
	if p.ReserveBase.IsNegative() || p.ReserveQuote.IsNegative() {
		return ErrInvariantViolation.Wrapf("pool %s reserves went negative", p.Pair())
	}
	return nil
}

// Validate checks the stored-pool invariants.
func (p *Pool) Validate() error {
	if p.Base == "" || p.Quote == "" || p.Base == p.Quote {
		return ErrInvalidTokenPair.Wrapf("invalid pool pair %q/%q", p.Base, p.Quote)
	}
	if p.ReserveBase.IsNil() || p.ReserveBase.IsNegative() ||
		p.ReserveQuote.IsNil() || p.ReserveQuote.IsNegative() {
		return ErrInvalidAmount.Wrap("pool reserves cannot be negative")
	}
	return nil
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	c := *p
	return &c
}
