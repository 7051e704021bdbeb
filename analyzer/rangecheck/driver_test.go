package rangecheck_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sleuthgo/sleuthgo/analyzer/rangecheck"
	"github.com/sleuthgo/sleuthgo/ir"
)

// recordingReporter captures every finding Run produces, in order, so
// tests can assert on both the verdict counters and the reported detail.
type recordingReporter struct {
	findings []rangecheck.ReportedFinding
}

func (r *recordingReporter) Report(f rangecheck.ReportedFinding) {
	r.findings = append(r.findings, f)
}

func TestFixedSizeDefinitelySafe(t *testing.T) {
	b := ir.NewBuilder("m")
	i32 := ir.IntT(32)
	b.Func("f")
	a := b.Alloc(i32, 10)
	idx := b.Const(i32, 3)
	b.GEP(a, idx)
	b.Return(nil)

	rec := &recordingReporter{}
	ctx := (&rangecheck.Analyzer{Oracle: ir.DefaultOracle, Reporter: rec}).Run(b.Module())

	require.Equal(t, 0, ctx.TotalOverflows)
	require.Equal(t, 1, ctx.TotalCorrect)
	require.Empty(t, rec.findings, "a definitely-safe access reports nothing")
}

func TestFixedSizeDefiniteOverflow(t *testing.T) {
	b := ir.NewBuilder("m")
	i32 := ir.IntT(32)
	b.Func("f")
	a := b.Alloc(i32, 10)
	idx := b.Const(i32, 15)
	b.GEP(a, idx)
	b.Return(nil)

	rec := &recordingReporter{}
	ctx := (&rangecheck.Analyzer{Oracle: ir.DefaultOracle, Reporter: rec}).Run(b.Module())

	require.Equal(t, 1, ctx.TotalOverflows)
	require.Equal(t, 0, ctx.TotalCorrect)
	require.Len(t, rec.findings, 1)
	require.Equal(t, rangecheck.SeverityDefinite, rec.findings[0].Severity)
}

// TestLoopWithGuardSplitsSafeAndOverflow builds:
//
//	a = malloc(7)
//	for (x = 0; x < 10; x++) {
//	    if (x < 7) a[x] = 5;   // guarded: provably in-bounds
//	    a[x] = 6;              // unguarded: x can reach 9 against a size-7 buffer
//	}
//
// matching the first worked example in the range-check write-up: the
// dominator-scoped inner guard tightens one access to safety while the
// other, reachable on both sides of that guard, stays bound only by the
// outer loop condition and overflows.
func TestLoopWithGuardSplitsSafeAndOverflow(t *testing.T) {
	b := ir.NewBuilder("m")
	i32 := ir.IntT(32)
	fn := b.Func("loopWithGuard")
	entry := fn.Blocks[0]
	header := b.Block()
	body := b.Block()
	thenBlk := b.Block()
	mergeBlk := b.Block()
	latch := b.Block()
	exit := b.Block()

	b.SetBlock(entry)
	buf := b.Alloc(i32, 7)
	zero := b.Const(i32, 0)
	b.Jump(header)

	b.SetBlock(header)
	x := b.Phi(i32)
	ten := b.Const(i32, 10)
	outer := b.ICmp(ir.SLT, x, ten)
	b.If(outer, body, exit)

	b.SetBlock(body)
	seven := b.Const(i32, 7)
	inner := b.ICmp(ir.SLT, x, seven)
	b.If(inner, thenBlk, mergeBlk)

	b.SetBlock(thenBlk)
	five := b.Const(i32, 5)
	guarded := b.GEP(buf, x)
	b.Store(guarded, five)
	b.Jump(mergeBlk)

	b.SetBlock(mergeBlk)
	six := b.Const(i32, 6)
	unguarded := b.GEP(buf, x)
	b.Store(unguarded, six)
	b.Jump(latch)

	b.SetBlock(latch)
	one := b.Const(i32, 1)
	xNext := b.BinOp(ir.Add, x, one)
	b.Jump(header)

	b.SetBlock(exit)
	b.Return(nil)

	b.AddEdge(x, entry, zero, nil)
	b.AddEdge(x, latch, xNext, nil)

	rec := &recordingReporter{}
	ctx := (&rangecheck.Analyzer{Oracle: ir.DefaultOracle, Reporter: rec}).Run(b.Module())

	require.Equal(t, 1, ctx.TotalOverflows, "only the unguarded access should overflow")
	require.Equal(t, 1, ctx.TotalCorrect, "the guarded access should be proven safe")
	require.Len(t, rec.findings, 1)
	require.Equal(t, rangecheck.SeverityDefinite, rec.findings[0].Severity)
	require.Equal(t, unguarded.Name(), rec.findings[0].Instr)
}

// buildCountedLoop constructs `a = malloc(n); for (x = 0; x <|<= n; x++) a[x] = 1;`
// with strict (< ) or inclusive (<=) bound, returning the built module.
func buildCountedLoop(t *testing.T, name string, n int, strict bool) *ir.Module {
	t.Helper()
	b := ir.NewBuilder("m")
	i32 := ir.IntT(32)
	fn := b.Func(name)
	entry := fn.Blocks[0]
	header := b.Block()
	body := b.Block()
	exit := b.Block()

	b.SetBlock(entry)
	buf := b.Alloc(i32, n)
	zero := b.Const(i32, 0)
	b.Jump(header)

	b.SetBlock(header)
	x := b.Phi(i32)
	bound := b.Const(i32, int64(n))
	pred := ir.SLT
	if !strict {
		pred = ir.SLE
	}
	cond := b.ICmp(pred, x, bound)
	b.If(cond, body, exit)

	b.SetBlock(body)
	one := b.Const(i32, 1)
	gep := b.GEP(buf, x)
	b.Store(gep, one)
	xNext := b.BinOp(ir.Add, x, one)
	b.Jump(header)

	b.SetBlock(exit)
	b.Return(nil)

	b.AddEdge(x, entry, zero, nil)
	b.AddEdge(x, body, xNext, nil)

	return b.Module()
}

// TestTwoLoopsOneSafeOneOverflowing mirrors a module with two independent
// functions over equally-sized buffers: a strict `x < n` loop bound stays
// in range, while the off-by-one `x <= n` loop overflows on the final
// iteration.
func TestTwoLoopsOneSafeOneOverflowing(t *testing.T) {
	safe := buildCountedLoop(t, "safeLoop", 10, true)
	overflow := buildCountedLoop(t, "overflowLoop", 10, false)

	mod := &ir.Module{Name: "m", Functions: append(safe.Functions, overflow.Functions...)}

	rec := &recordingReporter{}
	ctx := (&rangecheck.Analyzer{Oracle: ir.DefaultOracle, Reporter: rec}).Run(mod)

	require.Equal(t, 1, ctx.TotalCorrect)
	require.Equal(t, 1, ctx.TotalOverflows)
}

// TestEqRefinementPinsIndexDespiteWideBaseRange builds:
//
//	a = malloc(10)
//	if (x == 5) a[x] = 1;
//
// where x is an otherwise-unconstrained int parameter. The EQ branch
// predicate must pin x's use-range to the singleton [5,5] at the guarded
// access regardless of how wide x's own def-range is, proving the access
// safe.
func TestEqRefinementPinsIndexDespiteWideBaseRange(t *testing.T) {
	b := ir.NewBuilder("m")
	i32 := ir.IntT(32)
	fn := b.Func("eqGuard", i32)
	x := b.Param(0)
	entry := fn.Blocks[0]
	thenBlk := b.Block()
	exit := b.Block()

	b.SetBlock(entry)
	buf := b.Alloc(i32, 10)
	five := b.Const(i32, 5)
	cond := b.ICmp(ir.EQ, x, five)
	b.If(cond, thenBlk, exit)

	b.SetBlock(thenBlk)
	one := b.Const(i32, 1)
	gep := b.GEP(buf, x)
	b.Store(gep, one)
	b.Jump(exit)

	b.SetBlock(exit)
	b.Return(nil)

	rec := &recordingReporter{}
	ctx := (&rangecheck.Analyzer{Oracle: ir.DefaultOracle, Reporter: rec}).Run(b.Module())

	require.Equal(t, 1, ctx.TotalCorrect)
	require.Equal(t, 0, ctx.TotalOverflows)
	require.Empty(t, rec.findings)
}
