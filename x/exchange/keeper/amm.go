package keeper

import (
	"math/big"

	"cosmossdk.io/math"

	"github.com/gridexchange/gridex/x/exchange/types"
)

// Constant-product pricing. All functions are pure integer math over a
// pair's two reserve balances; none of them touch state.

// Quote returns the proportional amount of token B for amountA of token A
// given the pair reserves: floor(amountA * reserveB / reserveA). No fee is
// applied; this is the spot ratio, used for liquidity quoting.
func Quote(amountA, reserveA, reserveB math.Int) (math.Int, error) {
	if err := requirePositive(amountA, reserveA, reserveB); err != nil {
		return math.Int{}, err
	}
	return SafeMulDiv(amountA, reserveB, reserveA)
}

// AmountOut returns the pool output for amountIn after the 0.3% fee:
// floor(amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997)).
func AmountOut(amountIn, reserveIn, reserveOut math.Int) (math.Int, error) {
	if err := requirePositive(amountIn, reserveIn, reserveOut); err != nil {
		return math.Int{}, err
	}
	amountInWithFee := amountIn.MulRaw(types.FeeNumerator)
	denominator := reserveIn.MulRaw(types.FeeDenominator).Add(amountInWithFee)
	return SafeMulDiv(amountInWithFee, reserveOut, denominator)
}

// AmountIn returns the pool input required to withdraw amountOut, rounded
// up so the fee-adjusted output is never under-delivered:
// floor(reserveIn*amountOut*1000 / ((reserveOut-amountOut)*997)) + 1.
func AmountIn(amountOut, reserveIn, reserveOut math.Int) (math.Int, error) {
	if err := requirePositive(amountOut, reserveIn, reserveOut); err != nil {
		return math.Int{}, err
	}
	if amountOut.GTE(reserveOut) {
		return math.Int{}, types.ErrInvalidAmount.Wrapf(
			"amount out %s exceeds reserve %s", amountOut, reserveOut)
	}
	numerator := reserveIn.Mul(amountOut).MulRaw(types.FeeDenominator)
	denominator := reserveOut.Sub(amountOut).MulRaw(types.FeeNumerator)
	amountIn, err := SafeMulDiv(numerator, math.OneInt(), denominator)
	if err != nil {
		return math.Int{}, err
	}
	return amountIn.AddRaw(1), nil
}

// PoolPrice returns the pool's marginal price in quote units per base unit,
// scaled by quoteScale: floor(reserveQuote*quoteScale / reserveBase).
func PoolPrice(reserveBase, reserveQuote, quoteScale math.Int) (math.Int, error) {
	if err := requirePositive(reserveBase, reserveQuote, quoteScale); err != nil {
		return math.Int{}, err
	}
	return SafeMulDiv(reserveQuote, quoteScale, reserveBase)
}

// AmountInTillPrice returns how much input the pool can absorb before its
// post-fee marginal price degrades to targetPrice. For a buy the input is
// quote (price rises toward the target); for a sell it is base (price falls
// toward it). The post-fee marginal price of a buy is
// rIn'*1000*scale/(997*rOut'); setting it equal to the target and using
// rIn'*rOut' = k gives the closed form
//
//	x = sqrt(reserveIn * reserveOut * 997 * target / (1000 * scale))   (buy)
//	x = sqrt(reserveIn * reserveOut * 997 * scale / (1000 * target))   (sell)
//	amountIn = max(x - reserveIn, 0)
//
// The square root is the monotone Newton floor sqrt, so the result never
// overshoots the target level.
func AmountInTillPrice(isBuy bool, targetPrice, quoteScale, reserveIn, reserveOut math.Int) (math.Int, error) {
	if err := requirePositive(targetPrice, quoteScale, reserveIn, reserveOut); err != nil {
		return math.Int{}, err
	}
	numerator := new(big.Int).Mul(reserveIn.BigInt(), reserveOut.BigInt())
	numerator.Mul(numerator, big.NewInt(types.FeeNumerator))
	if isBuy {
		numerator.Mul(numerator, targetPrice.BigInt())
		numerator.Quo(numerator, quoteScale.BigInt())
	} else {
		numerator.Mul(numerator, quoteScale.BigInt())
		numerator.Quo(numerator, targetPrice.BigInt())
	}
	numerator.Quo(numerator, big.NewInt(types.FeeDenominator))

	x := IntegerSqrt(numerator)
	if x.Cmp(reserveIn.BigInt()) <= 0 {
		return math.ZeroInt(), nil
	}
	return math.NewIntFromBigInt(x.Sub(x, reserveIn.BigInt())), nil
}

// CheckConstantProduct verifies the fee-bearing swap invariant
//
//	(balIn*1000 - amountIn*3) * balOut*1000 >= reserveIn*reserveOut*1_000_000
//
// where balIn/balOut are the post-swap balances. The fee is discounted only
// against the amount paid in of each token; the output side pays nothing
// in, so its balance enters undiscounted. A violation indicates a pricing
// bug and is fatal to the enclosing operation.
func CheckConstantProduct(reserveIn, reserveOut, amountIn, amountOut math.Int) error {
	balanceIn := reserveIn.Add(amountIn)
	balanceOut := reserveOut.Sub(amountOut)
	if balanceOut.IsNegative() {
		return types.ErrInvariantViolation.Wrapf(
			"swap output %s exceeds reserve %s", amountOut, reserveOut)
	}

	feeBps := big.NewInt(types.FeeDenominator - types.FeeNumerator)
	adjustedIn := new(big.Int).Mul(balanceIn.BigInt(), big.NewInt(types.FeeDenominator))
	adjustedIn.Sub(adjustedIn, new(big.Int).Mul(amountIn.BigInt(), feeBps))
	adjustedOut := new(big.Int).Mul(balanceOut.BigInt(), big.NewInt(types.FeeDenominator))

	lhs := new(big.Int).Mul(adjustedIn, adjustedOut)
	rhs := new(big.Int).Mul(reserveIn.BigInt(), reserveOut.BigInt())
	rhs.Mul(rhs, big.NewInt(types.FeeDenominator*types.FeeDenominator))

	if lhs.Cmp(rhs) < 0 {
		return types.ErrInvariantViolation.Wrapf(
			"constant product decreased: reserves (%s, %s), swap in %s out %s",
			reserveIn, reserveOut, amountIn, amountOut)
	}
	return nil
}

func requirePositive(values ...math.Int) error {
	for _, v := range values {
		if v.IsNil() || !v.IsPositive() {
			return types.ErrInvalidAmount.Wrapf("value must be positive, got %s", v)
		}
	}
	return nil
}
