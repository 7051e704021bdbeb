package rangecheck

import "github.com/sleuthgo/sleuthgo/ir"

// useRange is the solver's public entry point (§4.2's use_range): v's
// def-range, refined by every predicate known to hold at the program
// point at.
func useRange(ctx *Context, v ir.Value, at ir.Instruction) Range {
	return refine(ctx, defRange(ctx, v), v, at)
}

// defRange is the demand-driven, memoized def-range (§4.2). A function
// argument with an accumulated interprocedural summary, and a constant,
// both short-circuit the general dispatch; everything else goes through
// the cycle-breaking machinery so a loop-carried value's own def-range
// computation can refer back to itself without recursing forever.
func defRange(ctx *Context, v ir.Value) Range {
	if r, ok := ctx.defRanges[v]; ok {
		return r
	}
	if p, ok := v.(*ir.Param); ok {
		if r, ok := ctx.argRanges[ArgKey{Func: p.Parent(), Index: p.ArgNo}]; ok {
			ctx.defRanges[v] = r
			return r
		}
	}
	if c, ok := v.(*ir.Const); ok {
		r := Scalars(c.Val, c.Val)
		ctx.defRanges[v] = r
		return r
	}

	id := ctx.vid(v)
	ctx.newValSet.Insert(id)
	ctx.defRanges[v] = Full() // provisional seed: a reentrant def_range(v) sees [⊥,⊤]
	r := defRangeInternal(ctx, v)
	ctx.defRanges[v] = r
	updateDefRange(ctx, v)
	ctx.newValSet.Remove(id)
	return r
}

// defRangeInternal computes v's def-range from its defining instruction,
// or from its type/identity when it has none (§4.2). A value with no
// recognized structure becomes its own opaque symbol — the "null
// identifier" case in spec terms — unless its type lets it fall back to
// a numeric signed-range bound instead.
func defRangeInternal(ctx *Context, v ir.Value) Range {
	switch val := v.(type) {
	case *ir.BinOp:
		if val.X == nil || val.Y == nil {
			ctx.warnf("binop %s: null operand, degrading to full", val.Name())
			return Full()
		}
		x := useRange(ctx, val.X, val)
		y := useRange(ctx, val.Y, val)
		switch val.Op {
		case ir.Add:
			return AddRange(x, y)
		case ir.Sub:
			return SubRange(x, y)
		case ir.Mul:
			return MulRange(x, y)
		case ir.SDiv:
			return DivRange(x, y)
		default:
			return typeOrSymRange(v)
		}

	case *ir.Phi:
		return phiDefRange(ctx, val)

	case *ir.Load:
		if r, ok := constAggregateLoadRange(ctx, val); ok {
			return r
		}
		return typeOrSymRange(v)

	case *ir.SExt:
		if val.X == nil {
			ctx.warnf("sext %s: null operand, degrading to full", val.Name())
			return Full()
		}
		return useRange(ctx, val.X, val)

	case *ir.ZExt:
		// Treated identically to SExt; see ir.ZExt's doc comment.
		if val.X == nil {
			ctx.warnf("zext %s: null operand, degrading to full", val.Name())
			return Full()
		}
		return useRange(ctx, val.X, val)

	default:
		return typeOrSymRange(v)
	}
}

// typeOrSymRange is the fallback pair spec.md closes def_range_internal
// with: an integer-typed value with no deeper info saturates to its
// type's signed min/max, and everything else becomes its own symbol.
func typeOrSymRange(v ir.Value) Range {
	if it, ok := v.Type().(*ir.IntType); ok {
		return Scalars(it.SignedMin(), it.SignedMax())
	}
	return varSymRange(v)
}

func varSymRange(v ir.Value) Range {
	e := VarExpr(v)
	return Range{Lo: e, Hi: e}
}

// phiDefRange unions every incoming edge's (gate-refined) range, then
// tightens the result with the monotony hypothesis when the phi is a
// recognized induction variable (§4.2): a ≤ φ for an increasing
// induction, φ ≤ a for a decreasing one.
func phiDefRange(ctx *Context, phi *ir.Phi) Range {
	result := Empty()
	for _, edge := range phi.Edges {
		r := useRange(ctx, edge.Value, phi)
		if edge.Gate != nil {
			for _, p := range gatePredicates(edge.Gate, phi) {
				r = refineInternal(ctx, r, edge.Value, p)
			}
		}
		result = Union(result, r)
	}

	if base, dir, _, ok := PhiInduction(phi); ok {
		switch dir {
		case MonoInc:
			result = refineInternal(ctx, result, phi, Predicate{Kind: PredLE, Lhs: base, Rhs: phi, At: phi})
		case MonoDec:
			result = refineInternal(ctx, result, phi, Predicate{Kind: PredLE, Lhs: phi, Rhs: base, At: phi})
		}
	}
	return result
}

// constAggregateLoadRange handles a Load through a GetElementPtr of a
// ConstAggregate (§4.4, SPEC_FULL §D.1): an index provably outside
// [0, Len) is the supplemented "vulnerable access of constant
// aggregate" finding, reported immediately since this access never
// participates in the ordinary overflow decision. An in-bounds (or
// inconclusive) index falls through to the caller's numeric fallback —
// this engine doesn't model concrete aggregate element values, only
// their count.
func constAggregateLoadRange(ctx *Context, load *ir.Load) (Range, bool) {
	gep, ok := load.Addr.(*ir.GetElementPtr)
	if !ok {
		return Range{}, false
	}
	agg, ok := gep.Base.(*ir.ConstAggregate)
	if !ok {
		return Range{}, false
	}
	idx := useRange(ctx, gep.Idx, load)
	lo, hi, scalar := ToScalarRange(idx)
	if !scalar {
		return Range{}, false
	}
	if lo < 0 || hi >= int64(agg.Len) {
		reportConstAggregateViolation(ctx, load, idx, Scalars(0, int64(agg.Len)))
		return Empty(), true
	}
	return Range{}, false
}

func reportConstAggregateViolation(ctx *Context, load *ir.Load, idx, size Range) {
	if ctx.Reporter == nil {
		return
	}
	fn := ""
	if blk := load.Block(); blk != nil && blk.Parent != nil {
		fn = blk.Parent.Name
	}
	ctx.Reporter.Report(ReportedFinding{
		Pos:       load.Pos(),
		Func:      fn,
		Instr:     load.Name(),
		IdxRange:  idx.String(),
		SizeRange: size.String(),
		Severity:  SeverityConstAggregate,
	})
	ctx.TotalOverflows++
}

// updateDefRange propagates a just-tightened def-range to every
// referrer still on the new_val_set reentrancy barrier (§4.2): those
// are the only values that could have observed the provisional [⊥,⊤]
// seed and need recomputing now that v's real range is known. Recurses
// only when the recomputation is a strict tightening, so this always
// terminates.
func updateDefRange(ctx *Context, v ir.Value) {
	for _, u := range v.Referrers() {
		id := ctx.vid(u)
		if !ctx.newValSet.Has(id) {
			continue
		}
		old, ok := ctx.defRanges[u]
		if !ok {
			continue
		}
		recomputed := defRangeInternal(ctx, u)
		tightened := Intersect(old, recomputed)
		if rangesEqual(tightened, old) {
			continue
		}
		ctx.defRanges[u] = tightened
		updateDefRange(ctx, u)
	}
}

func rangesEqual(a, b Range) bool {
	return Equal(a.Lo, b.Lo) && Equal(a.Hi, b.Hi)
}
