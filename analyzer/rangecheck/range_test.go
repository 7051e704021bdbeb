package rangecheck_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sleuthgo/sleuthgo/analyzer/rangecheck"
)

func rangesEqual(t *testing.T, want, got rangecheck.Range) {
	t.Helper()
	require.True(t, rangecheck.Equal(want.Lo, got.Lo), "lo: want %v got %v", want.Lo, got.Lo)
	require.True(t, rangecheck.Equal(want.Hi, got.Hi), "hi: want %v got %v", want.Hi, got.Hi)
}

func TestRangeCompositionIdentities(t *testing.T) {
	r := rangecheck.Scalars(0, 9)

	rangesEqual(t, r, rangecheck.Union(r, rangecheck.Empty()))
	rangesEqual(t, rangecheck.Full(), rangecheck.Union(r, rangecheck.Full()))
	rangesEqual(t, r, rangecheck.Intersect(r, rangecheck.Full()))
	rangesEqual(t, rangecheck.Empty(), rangecheck.Intersect(r, rangecheck.Empty()))
}

func TestRangeArithmetic(t *testing.T) {
	r := rangecheck.Scalars(0, 9)

	rangesEqual(t, rangecheck.Scalars(0, 18), rangecheck.AddRange(r, r))
	rangesEqual(t, rangecheck.Scalars(-9, 9), rangecheck.SubRange(r, r))
}

func TestMulRangeCorners(t *testing.T) {
	// [-2,3] * [2,2] must span both sign outcomes: -4 .. 6.
	a := rangecheck.Scalars(-2, 3)
	b := rangecheck.Scalars(2, 2)
	rangesEqual(t, rangecheck.Scalars(-4, 6), rangecheck.MulRange(a, b))
}

func TestDivRangeWidensOnStraddlingDivisor(t *testing.T) {
	a := rangecheck.Scalars(-10, 10)
	straddling := rangecheck.Scalars(-1, 1)
	rangesEqual(t, rangecheck.Full(), rangecheck.DivRange(a, straddling))

	positive := rangecheck.Scalars(2, 5)
	got := rangecheck.DivRange(a, positive)
	lo, hi, ok := rangecheck.ToScalarRange(got)
	require.True(t, ok)
	require.Equal(t, int64(-5), lo)
	require.Equal(t, int64(5), hi)
}

func TestToScalarRange(t *testing.T) {
	lo, hi, ok := rangecheck.ToScalarRange(rangecheck.Scalars(3, 7))
	require.True(t, ok)
	require.Equal(t, int64(3), lo)
	require.Equal(t, int64(7), hi)

	_, _, ok = rangecheck.ToScalarRange(rangecheck.Full())
	require.False(t, ok)
}
