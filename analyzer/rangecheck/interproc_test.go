package rangecheck

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sleuthgo/sleuthgo/ir"
)

// These tests exercise the interprocedural Trigger/discharge machinery
// directly (white-box, internal package) rather than through a full
// def-range walk: the engine only ever builds an argument-only symbolic
// bound from a parameter whose own summary is still unknown, a shape this
// package's def_range_internal never happens to produce for a bare
// integer parameter (it saturates to the type's signed range instead, per
// solver.go's typeOrSymRange). Constructing the Range/Trigger values by
// hand tests the resolution algebra itself — scenario 3's "same static
// access resolves differently at two callsites" — independent of that.

func TestDischargeTriggersPerCallsite(t *testing.T) {
	b := ir.NewBuilder("m")
	i32 := ir.IntT(32)
	f := b.Func("f", i32, i32) // params: size, idx
	sizeParam := b.Param(0)
	idxParam := b.Param(1)
	buf := b.AllocDynamic(i32, sizeParam, true)
	gep := b.GEP(buf, idxParam)
	b.Return(nil)

	b.Func("caller")
	five := b.Const(i32, 5)
	three := b.Const(i32, 3)
	call1 := b.Call(f, nil, five, three) // size=5, idx=3: never overflows
	ten := b.Const(i32, 10)
	call2 := b.Call(f, nil, ten, ten) // size=10, idx=10: overflows

	ctx := NewContext(ir.DefaultOracle, nil)
	ctx.addTrigger(f, Trigger{Lhs: VarExpr(sizeParam), Rhs: VarExpr(idxParam), Instr: gep})

	results1 := dischargeTriggers(ctx, call1, f)
	require.Len(t, results1, 1)
	require.Equal(t, DecisionNo, results1[0].Decision)

	results2 := dischargeTriggers(ctx, call2, f)
	require.Len(t, results2, 1)
	require.Equal(t, DecisionYes, results2[0].Decision)
	require.Same(t, gep, results2[0].Instr)
}

func TestCheckOverflowDefersOnArgumentOnlyBounds(t *testing.T) {
	b := ir.NewBuilder("m")
	i32 := ir.IntT(32)
	f := b.Func("f", i32, i32)
	sizeParam := b.Param(0)
	idxParam := b.Param(1)
	buf := b.AllocDynamic(i32, sizeParam, true)
	gep := b.GEP(buf, idxParam)
	b.Return(nil)

	ctx := NewContext(ir.DefaultOracle, nil)
	size := Range{Lo: Scalar(1), Hi: VarExpr(sizeParam)}
	// idx.Lo is deliberately anchored on a non-parameter atom so only the
	// size-vs-index trigger (not the separate negative-index trigger)
	// gets registered, keeping this test's trigger count unambiguous.
	idx := Range{Lo: VarExpr(buf), Hi: VarExpr(idxParam)}

	decision, deferred := checkOverflow(ctx, size, idx, gep, f)
	require.Equal(t, DecisionMaybe, decision)
	require.True(t, deferred)
	require.Len(t, ctx.triggers[f], 1)
	require.True(t, Equal(VarExpr(sizeParam), ctx.triggers[f][0].Lhs))
	require.True(t, Equal(VarExpr(idxParam), ctx.triggers[f][0].Rhs))
}

func TestMergeArgRangeIsMonotoneUnion(t *testing.T) {
	ctx := NewContext(ir.DefaultOracle, nil)
	key := ArgKey{Func: nil, Index: 0}
	ctx.mergeArgRange(key, Scalars(0, 5))
	ctx.mergeArgRange(key, Scalars(3, 10))

	require.True(t, Equal(Scalar(0), ctx.argRanges[key].Lo))
	require.True(t, Equal(Scalar(10), ctx.argRanges[key].Hi))

	// A third, fully-contained merge must not shrink the accumulated
	// union (§8: "union into arg_ranges is monotonic").
	ctx.mergeArgRange(key, Scalars(4, 6))
	require.True(t, Equal(Scalar(0), ctx.argRanges[key].Lo))
	require.True(t, Equal(Scalar(10), ctx.argRanges[key].Hi))
}

func TestIsArgumentOnlyThroughLinearScaling(t *testing.T) {
	b := ir.NewBuilder("m")
	i32 := ir.IntT(32)
	b.Func("f", i32)
	p := b.Param(0)

	scaled := Expr{Coeff: 1, Atom: &Atom{Kind: AtomLinear, Inner: VarAtom(p), K: 3}, Delta: 2}
	require.True(t, isArgumentOnly(scaled))

	nonParam := b.Alloc(i32, 1)
	require.False(t, isArgumentOnly(VarExpr(nonParam)))
}

// TestDefRangeDegradesOnNullOperand covers the §7 malformed-IR path: a
// BinOp missing an operand must degrade to full and record a warning,
// never panic or propagate a zero Expr.
func TestDefRangeDegradesOnNullOperand(t *testing.T) {
	b := ir.NewBuilder("m")
	i32 := ir.IntT(32)
	b.Func("f")
	c := b.Const(i32, 5)
	bo := b.BinOp(ir.Add, c, c)
	bo.Y = nil // simulate a malformed instruction stream

	ctx := NewContext(ir.DefaultOracle, nil)
	r := defRange(ctx, bo)

	require.True(t, Equal(Bot(), r.Lo))
	require.True(t, Equal(Top(), r.Hi))
	require.Len(t, ctx.Warnings, 1)
}
