package credit

import (
	"math"

	"github.com/holiman/uint256"
)

const bpsDenominator = 10_000

// mulDiv computes floor(a*b/denom) with a 256-bit intermediate. A zero
// denominator or a result that does not fit in 64 bits is an overflow.
func mulDiv(a, b, denom uint64) (uint64, error) {
	if denom == 0 {
		return 0, ErrMathOverflow
	}
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	product.Div(product, uint256.NewInt(denom))
	if !product.IsUint64() {
		return 0, ErrMathOverflow
	}
	return product.Uint64(), nil
}

// mulDivSaturating is mulDiv for callers that clamp instead of failing. The
// boolean is false when the result does not fit in 64 bits.
func mulDivSaturating(a, b, denom uint64) (uint64, bool) {
	v, err := mulDiv(a, b, denom)
	if err != nil {
		return math.MaxUint64, false
	}
	return v, true
}

func checkedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrMathOverflow
	}
	return a + b, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrMathOverflow
	}
	return a - b, nil
}

func checkedMul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxUint64/b {
		return 0, ErrMathOverflow
	}
	return a * b, nil
}

// checkedAddSeconds offsets a unix timestamp by a non-negative duration.
func checkedAddSeconds(ts, seconds int64) (int64, error) {
	if seconds < 0 {
		return 0, ErrMathOverflow
	}
	if ts > math.MaxInt64-seconds {
		return 0, ErrMathOverflow
	}
	return ts + seconds, nil
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// sharesForDeposit mints shares at the current exchange rate, 1:1 for an
// empty pool. A pool whose assets were written off to zero counts as empty.
func sharesForDeposit(amount, totalShares, totalAssets uint64) (uint64, error) {
	if totalShares == 0 || totalAssets == 0 {
		return amount, nil
	}
	return mulDiv(amount, totalShares, totalAssets)
}

// assetsForShares redeems shares at the current exchange rate, rounding down
// in favour of the pool.
func assetsForShares(shares, totalShares, totalAssets uint64) (uint64, error) {
	if totalShares == 0 {
		return 0, ErrInsufficientLiquidity
	}
	return mulDiv(shares, totalAssets, totalShares)
}
