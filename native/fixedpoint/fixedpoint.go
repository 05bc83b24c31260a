package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// Precision is the fixed-point scale shared by token amounts and round prices:
// a price is the base-asset cost of Precision units of the sold token.
const Precision = 1_000_000_000

// PercentDenominator is the basis-point denominator for fee percentages.
const PercentDenominator = 10_000

var (
	// ErrOverflow reports an intermediate or final value outside the
	// supported unsigned 256-bit range. Callers must abort the transition.
	ErrOverflow = errors.New("fixedpoint: arithmetic overflow")
	// ErrNegative reports a negative operand; money paths never carry signs.
	ErrNegative = errors.New("fixedpoint: negative operand")
	// ErrDivisionByZero reports a zero denominator.
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
)

func fromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return uint256.NewInt(0), nil
	}
	if v.Sign() < 0 {
		return nil, ErrNegative
	}
	converted, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrOverflow
	}
	return converted, nil
}

// MulDiv computes floor(a*b/denom) with overflow-checked 256-bit arithmetic.
// It is the single multiply-divide primitive every money computation in the
// engine goes through.
func MulDiv(a, b, denom *big.Int) (*big.Int, error) {
	x, err := fromBig(a)
	if err != nil {
		return nil, err
	}
	y, err := fromBig(b)
	if err != nil {
		return nil, err
	}
	d, err := fromBig(denom)
	if err != nil {
		return nil, err
	}
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	product := new(uint256.Int)
	if _, overflow := product.MulOverflow(x, y); overflow {
		return nil, ErrOverflow
	}
	return new(uint256.Int).Div(product, d).ToBig(), nil
}

// MulDivCeil computes ceil(a*b/denom) under the same overflow rules as MulDiv.
func MulDivCeil(a, b, denom *big.Int) (*big.Int, error) {
	x, err := fromBig(a)
	if err != nil {
		return nil, err
	}
	y, err := fromBig(b)
	if err != nil {
		return nil, err
	}
	d, err := fromBig(denom)
	if err != nil {
		return nil, err
	}
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	product := new(uint256.Int)
	if _, overflow := product.MulOverflow(x, y); overflow {
		return nil, ErrOverflow
	}
	bump := new(uint256.Int).SubUint64(d, 1)
	if _, overflow := product.AddOverflow(product, bump); overflow {
		return nil, ErrOverflow
	}
	return new(uint256.Int).Div(product, d).ToBig(), nil
}

// Cost converts a token amount at a fixed-point unit price into base-asset
// units, rounding down.
func Cost(amount, price *big.Int) (*big.Int, error) {
	return MulDiv(amount, price, big.NewInt(Precision))
}

// Bps applies a basis-point percentage to an amount, rounding down.
func Bps(amount *big.Int, bps uint32) (*big.Int, error) {
	return MulDiv(amount, new(big.Int).SetUint64(uint64(bps)), big.NewInt(PercentDenominator))
}
