package rangecheck_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sleuthgo/sleuthgo/analyzer/rangecheck"
	"github.com/sleuthgo/sleuthgo/ir"
)

// fakeVar is a minimal ir.Value good enough to anchor VarExpr atoms in
// these algebra-only tests, which never touch a real instruction stream.
type fakeVar struct{ name string }

func (f *fakeVar) Type() ir.Type        { return ir.IntT(32) }
func (f *fakeVar) Name() string         { return f.name }
func (f *fakeVar) Referrers() []ir.Value { return nil }

func TestLatticeLaws(t *testing.T) {
	x := rangecheck.VarExpr(&fakeVar{"x"})
	y := rangecheck.VarExpr(&fakeVar{"y"})
	top, bot := rangecheck.Top(), rangecheck.Bot()

	for _, e := range []rangecheck.Expr{x, y, top, bot, rangecheck.Scalar(5)} {
		require.True(t, rangecheck.Equal(rangecheck.Meet(e, e), e), "meet(a,a) = a for %v", e)
		require.True(t, rangecheck.Equal(rangecheck.Join(e, e), e), "join(a,a) = a for %v", e)
	}

	pairs := [][2]rangecheck.Expr{
		{x, y}, {rangecheck.Scalar(3), rangecheck.Scalar(9)}, {x, top}, {x, bot}, {top, bot},
	}
	for _, p := range pairs {
		a, b := p[0], p[1]
		require.True(t, rangecheck.Equal(rangecheck.Meet(a, b), rangecheck.Meet(b, a)), "meet commutes for %v, %v", a, b)
		require.True(t, rangecheck.Equal(rangecheck.Join(a, b), rangecheck.Join(b, a)), "join commutes for %v, %v", a, b)
	}

	// a <= join(a,b); meet(a,b) <= a
	require.True(t, rangecheck.Le(x, rangecheck.Join(x, y)))
	require.True(t, rangecheck.Le(rangecheck.Meet(x, y), x))

	// bot <= a <= top, for every a including the sentinels themselves.
	for _, e := range []rangecheck.Expr{x, y, top, bot, rangecheck.Scalar(0)} {
		require.True(t, rangecheck.Le(bot, e))
		require.True(t, rangecheck.Le(e, top))
	}
}

func TestArithmeticLaws(t *testing.T) {
	x := rangecheck.VarExpr(&fakeVar{"x"})

	// a + (-a) reduces to the zero scalar via atom cancellation.
	sum := rangecheck.Add(x, rangecheck.Negate(x))
	scalar, ok := rangecheck.ToScalar(sum)
	require.True(t, ok, "x + (-x) must collapse to a pure scalar")
	require.Equal(t, int64(0), scalar)

	// (a + b) * 0 = 0, scalar absorption regardless of a's symbolic shape.
	y := rangecheck.VarExpr(&fakeVar{"y"})
	apb := rangecheck.Add(x, y)
	zero := rangecheck.Mul(apb, rangecheck.Scalar(0))
	s, ok := rangecheck.ToScalar(zero)
	require.True(t, ok)
	require.Equal(t, int64(0), s)

	// to_scalar(k + 0*atom) = Some(k): a purely-numeric expression always
	// round-trips through ToScalar.
	k := rangecheck.Scalar(7)
	s2, ok := rangecheck.ToScalar(k)
	require.True(t, ok)
	require.Equal(t, int64(7), s2)
}

func TestSentinelArithmeticDominates(t *testing.T) {
	x := rangecheck.VarExpr(&fakeVar{"x"})
	top, bot := rangecheck.Top(), rangecheck.Bot()

	require.True(t, rangecheck.Equal(rangecheck.Negate(top), bot))
	require.True(t, rangecheck.Equal(rangecheck.Negate(bot), top))

	// Mixing a normal expression with a sentinel yields the sentinel.
	require.True(t, rangecheck.Equal(rangecheck.Add(x, top), top))
	require.True(t, rangecheck.Equal(rangecheck.Add(bot, x), bot))
}

func TestLeNeverGuesses(t *testing.T) {
	x := rangecheck.VarExpr(&fakeVar{"x"})
	y := rangecheck.VarExpr(&fakeVar{"y"})
	// Two unrelated opaque symbols: neither provably <= the other.
	require.False(t, rangecheck.Le(x, y))
	require.False(t, rangecheck.Le(y, x))
}

func TestAtomCancellationTerminatesComparator(t *testing.T) {
	// x - x must reduce to the scalar 0 however x is shaped, since this is
	// the mechanism that lets the comparator terminate on loop-carried
	// (self-referential) expressions instead of comparing infinite atom
	// trees.
	v := &fakeVar{"i"}
	x := rangecheck.VarExpr(v)
	scaled := rangecheck.Add(rangecheck.Mul(rangecheck.Scalar(3), x), rangecheck.Scalar(2))
	diff := rangecheck.Sub(scaled, scaled)
	s, ok := rangecheck.ToScalar(diff)
	require.True(t, ok)
	require.Equal(t, int64(0), s)
}
