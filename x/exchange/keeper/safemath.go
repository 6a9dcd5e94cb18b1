package keeper

import (
	"math/big"

	"cosmossdk.io/math"

	"github.com/gridexchange/gridex/x/exchange/types"
)

// Overflow-safe arithmetic helpers for exchange math. All intermediate
// products run over big.Int and are range-checked before conversion back,
// so a hostile amount cannot panic the keeper.

var maxInt256 = new(big.Int).Exp(big.NewInt(2), big.NewInt(256), nil)

// SafeAdd adds two math.Int values with overflow checking.
func SafeAdd(a, b math.Int) (math.Int, error) {
	result := new(big.Int).Add(a.BigInt(), b.BigInt())
	if result.Cmp(maxInt256) >= 0 {
		return math.Int{}, types.ErrInvariantViolation.Wrap("overflow: addition result exceeds maximum value")
	}
	return math.NewIntFromBigInt(result), nil
}

// SafeSub subtracts b from a with underflow checking.
func SafeSub(a, b math.Int) (math.Int, error) {
	if a.LT(b) {
		return math.Int{}, types.ErrInvariantViolation.Wrapf("underflow: cannot subtract %s from %s", b, a)
	}
	return a.Sub(b), nil
}

// SafeMulDiv computes floor(a * b / c) with overflow protection.
func SafeMulDiv(a, b, c math.Int) (math.Int, error) {
	if c.IsZero() {
		return math.Int{}, types.ErrInvalidAmount.Wrap("division by zero")
	}
	intermediate := new(big.Int).Mul(a.BigInt(), b.BigInt())
	if intermediate.Cmp(maxInt256) >= 0 {
		return math.Int{}, types.ErrInvariantViolation.Wrap("overflow in multiplication step")
	}
	result := intermediate.Quo(intermediate, c.BigInt())
	return math.NewIntFromBigInt(result), nil
}

// SafeCeilDiv computes ceil(a * b / c) with overflow protection.
func SafeCeilDiv(a, b, c math.Int) (math.Int, error) {
	if c.IsZero() {
		return math.Int{}, types.ErrInvalidAmount.Wrap("division by zero")
	}
	intermediate := new(big.Int).Mul(a.BigInt(), b.BigInt())
	if intermediate.Cmp(maxInt256) >= 0 {
		return math.Int{}, types.ErrInvariantViolation.Wrap("overflow in multiplication step")
	}
	quo, rem := new(big.Int).QuoRem(intermediate, c.BigInt(), new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return math.NewIntFromBigInt(quo), nil
}

// IntegerSqrt returns floor(sqrt(x)) using Newton's method. The iteration
// is monotonically decreasing from an over-estimate, so it terminates at
// the exact floor for every non-negative input.
func IntegerSqrt(x *big.Int) *big.Int {
	if x.Sign() <= 0 {
		return big.NewInt(0)
	}
	z := new(big.Int).Set(x)
	y := new(big.Int).Add(x, big.NewInt(1))
	y.Rsh(y, 1)
	t := new(big.Int)
	for y.Cmp(z) < 0 {
		z.Set(y)
		t.Quo(x, z)
		y.Add(z, t)
		y.Rsh(y, 1)
	}
	return z
}
