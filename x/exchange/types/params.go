package types

import (
	"cosmossdk.io/math"
)

const (
	// FeeNumerator and FeeDenominator encode the fixed 0.3% swap fee
	// (997/1000) applied to every pool leg.
	FeeNumerator   = 997
	FeeDenominator = 1000

	// SlippageToleranceBP bounds the price of the book leg issued during
	// settlement, in basis-points-of-basis-points terms: the market order
	// limit is widened by 1/SlippageToleranceBP (0.01%).
	SlippageToleranceBP = 10000
)

// Params holds the module parameters.
type Params struct {
	FeeNumerator   math.Int `json:"fee_numerator" mapstructure:"fee_numerator"`
	FeeDenominator math.Int `json:"fee_denominator" mapstructure:"fee_denominator"`
}

// DefaultParams returns default parameters for the exchange module.
func DefaultParams() Params {
	return Params{
		FeeNumerator:   math.NewInt(FeeNumerator),
		FeeDenominator: math.NewInt(FeeDenominator),
	}
}

// Validate checks parameter sanity.
func (p Params) Validate() error {
	if p.FeeNumerator.IsNil() || p.FeeDenominator.IsNil() {
		return ErrInvalidAmount.Wrap("fee parameters cannot be nil")
	}
	if !p.FeeDenominator.IsPositive() || p.FeeNumerator.IsNegative() {
		return ErrInvalidAmount.Wrap("fee parameters out of range")
	}
	if p.FeeNumerator.GT(p.FeeDenominator) {
		return ErrInvalidAmount.Wrap("fee numerator cannot exceed denominator")
	}
	return nil
}
