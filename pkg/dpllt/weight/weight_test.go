package weight

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixedAddOverflowReported(t *testing.T) {
	a := FromInt64(Fixed, fixedSafeBound)
	b := FromInt64(Fixed, fixedSafeBound)
	_, err := a.Add(b)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestFixedAddWithinBoundSucceeds(t *testing.T) {
	a := FromInt64(Fixed, 10)
	b := FromInt64(Fixed, 20)
	sum, err := a.Add(b)
	require.NoError(t, err)
	require.Equal(t, int64(30), sum.Int64())
}

func TestFixedMulOverflowReported(t *testing.T) {
	a := FromInt64(Fixed, fixedSafeBound)
	b := FromInt64(Fixed, 4)
	_, err := a.Mul(b)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestArbitraryModeNeverOverflows(t *testing.T) {
	a := FromInt64(Arbitrary, fixedSafeBound)
	b := FromInt64(Arbitrary, fixedSafeBound)
	sum, err := a.Add(b)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Cmp(FromInt64(Arbitrary, fixedSafeBound)))
}

func TestCmpOrdersFixedWeights(t *testing.T) {
	small := FromInt64(Fixed, 3)
	big := FromInt64(Fixed, 9)
	require.Equal(t, -1, small.Cmp(big))
	require.Equal(t, 1, big.Cmp(small))
	require.Equal(t, 0, small.Cmp(FromInt64(Fixed, 3)))
}

func TestPosInfNegInfOrdering(t *testing.T) {
	require.Equal(t, 1, PosInf(Fixed).Cmp(FromInt64(Fixed, 1000)))
	require.Equal(t, -1, NegInf(Fixed).Cmp(FromInt64(Fixed, -1000)))
}
