package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMulDivFloorsResult(t *testing.T) {
	got, err := MulDiv(big.NewInt(7), big.NewInt(3), big.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, int64(10), got.Int64())
}

func TestMulDivCeilRoundsUp(t *testing.T) {
	got, err := MulDivCeil(big.NewInt(7), big.NewInt(3), big.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, int64(11), got.Int64())

	// Exact divisions must not be bumped.
	got, err = MulDivCeil(big.NewInt(6), big.NewInt(3), big.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, int64(9), got.Int64())
}

func TestMulDivRejectsNegativeOperands(t *testing.T) {
	_, err := MulDiv(big.NewInt(-1), big.NewInt(3), big.NewInt(2))
	require.ErrorIs(t, err, ErrNegative)
	_, err = MulDivCeil(big.NewInt(1), big.NewInt(-3), big.NewInt(2))
	require.ErrorIs(t, err, ErrNegative)
}

func TestMulDivRejectsZeroDenominator(t *testing.T) {
	_, err := MulDiv(big.NewInt(1), big.NewInt(1), big.NewInt(0))
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestMulDivOverflow(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 200)
	_, err := MulDiv(huge, huge, big.NewInt(1))
	require.ErrorIs(t, err, ErrOverflow)

	tooWide := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = MulDiv(tooWide, big.NewInt(1), big.NewInt(1))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestCostUsesPrecisionScale(t *testing.T) {
	// 100 whole units at a price of 0.5 base per unit.
	amount := new(big.Int).Mul(big.NewInt(100), big.NewInt(Precision))
	price := big.NewInt(Precision / 2)
	got, err := Cost(amount, price)
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Mul(big.NewInt(50), big.NewInt(Precision)), got)
}

func TestBps(t *testing.T) {
	got, err := Bps(big.NewInt(10_000), 250)
	require.NoError(t, err)
	require.Equal(t, int64(250), got.Int64())

	got, err = Bps(big.NewInt(999), 100)
	require.NoError(t, err)
	require.Equal(t, int64(9), got.Int64(), "fee must round down")

	got, err = Bps(big.NewInt(10_000), 0)
	require.NoError(t, err)
	require.Zero(t, got.Sign())
}
