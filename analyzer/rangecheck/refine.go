package rangecheck

import (
	"fmt"

	"github.com/sleuthgo/sleuthgo/ir"
)

// reachabilityVisitLimit bounds the custom BFS predicate collection uses
// to determine which branch outcome holds along every path to a block
// (§4.3, §9: "a deliberate soundness-vs-completeness knob").
const reachabilityVisitLimit = 32

// refine computes v's use-range at program point at: its def-range,
// tightened by every predicate known to hold at at (§4.3).
func refine(ctx *Context, r Range, v ir.Value, at ir.Instruction) Range {
	for _, pred := range collectPredicates(ctx, at) {
		r = refineInternal(ctx, r, v, pred)
	}
	return r
}

// collectPredicates gathers every predicate proven to hold at the
// program point at, from conditional branches that properly dominate
// at's block.
func collectPredicates(ctx *Context, at ir.Instruction) []Predicate {
	blk := at.Block()
	if blk == nil || blk.Parent == nil {
		return nil
	}
	dom := blk.Parent.Dominators()
	var preds []Predicate
	for _, cand := range blk.Parent.Blocks {
		if !dom.ProperlyDominates(cand, blk) {
			continue
		}
		br, ok := cand.Terminator().(*ir.If)
		if !ok {
			continue
		}
		cmp, ok := br.Cond.(*ir.ICmp)
		if !ok {
			continue
		}
		reachTrue := reachableExcluding(br.Then, blk, cand, reachabilityVisitLimit)
		reachFalse := reachableExcluding(br.Else, blk, cand, reachabilityVisitLimit)
		switch {
		case reachTrue && !reachFalse:
			preds = append(preds, basePredicateFromICmp(cmp, at))
		case reachFalse && !reachTrue:
			preds = append(preds, negatePredicate(basePredicateFromICmp(cmp, at)))
		default:
			// both or neither reachable: ambiguous, no predicate added.
		}
	}
	return preds
}

// reachableExcluding reports whether to is reachable from from without
// stepping through excluded (the dominating branch block itself — see
// §4.3), via a BFS bounded by limit. Exhausting the limit errs toward
// "reachable", per §9.
func reachableExcluding(from, to, excluded *ir.BasicBlock, limit int) bool {
	if from == to {
		return true
	}
	visited := map[*ir.BasicBlock]bool{from: true, excluded: true}
	queue := []*ir.BasicBlock{from}
	visitedCount := 1
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, s := range cur.Succs {
			if s == to {
				return true
			}
			if visited[s] {
				continue
			}
			visited[s] = true
			visitedCount++
			if visitedCount > limit {
				return true
			}
			queue = append(queue, s)
		}
	}
	return false
}

// basePredicateFromICmp normalizes an ICmp into the {EQ,NE,LT,LE} shape,
// swapping operands to keep LT/LE directional (§4.3). This engine makes
// no bitwidth-exact distinction between signed and unsigned comparisons
// (§1 Non-goals), so the unsigned predicates share the signed mapping.
func basePredicateFromICmp(cmp *ir.ICmp, at ir.Instruction) Predicate {
	x, y := cmp.X, cmp.Y
	switch cmp.Pred {
	case ir.EQ:
		return Predicate{Kind: PredEQ, Lhs: x, Rhs: y, At: at}
	case ir.NE:
		return Predicate{Kind: PredNE, Lhs: x, Rhs: y, At: at}
	case ir.SLT, ir.ULT:
		return Predicate{Kind: PredLT, Lhs: x, Rhs: y, At: at}
	case ir.SLE, ir.ULE:
		return Predicate{Kind: PredLE, Lhs: x, Rhs: y, At: at}
	case ir.SGT, ir.UGT:
		return Predicate{Kind: PredLT, Lhs: y, Rhs: x, At: at}
	case ir.SGE, ir.UGE:
		return Predicate{Kind: PredLE, Lhs: y, Rhs: x, At: at}
	default:
		return Predicate{Kind: PredEQ, Lhs: x, Rhs: x, At: at} // degenerate, always true
	}
}

// negatePredicate computes the logical negation of a normalized
// predicate, used when the branch's false side is the one proven to hold.
func negatePredicate(p Predicate) Predicate {
	switch p.Kind {
	case PredEQ:
		return Predicate{Kind: PredNE, Lhs: p.Lhs, Rhs: p.Rhs, At: p.At}
	case PredNE:
		return Predicate{Kind: PredEQ, Lhs: p.Lhs, Rhs: p.Rhs, At: p.At}
	case PredLT:
		// not(lhs < rhs) == rhs <= lhs
		return Predicate{Kind: PredLE, Lhs: p.Rhs, Rhs: p.Lhs, At: p.At}
	case PredLE:
		// not(lhs <= rhs) == rhs < lhs
		return Predicate{Kind: PredLT, Lhs: p.Rhs, Rhs: p.Lhs, At: p.At}
	default:
		return p
	}
}

// matchAffine searches for scalars (c1, c2) with v = c1*u + c2 for u one
// of the predicate's two operands, trying first the case where u IS v
// (the trivial (1,0) match), then the two supported structural forms:
// u defined as a binary op over v and a constant, or v defined as a
// binary op over u and a constant (§4.3). Multiplication is only matched
// in the second (v-is-the-binop) direction, where the coefficient falls
// out directly rather than needing inversion; division is not matched in
// either direction.
func matchAffine(v, u ir.Value) (c1, c2 int64, ok bool) {
	if v == u {
		return 1, 0, true
	}
	if bo, isBinOp := u.(*ir.BinOp); isBinOp {
		if bo.X == v {
			if c, isConst := bo.Y.(*ir.Const); isConst {
				switch bo.Op {
				case ir.Add: // u = v+c => v = u-c
					return 1, -c.Val, true
				case ir.Sub: // u = v-c => v = u+c
					return 1, c.Val, true
				}
			}
		}
		if bo.Y == v {
			if c, isConst := bo.X.(*ir.Const); isConst {
				switch bo.Op {
				case ir.Add: // u = c+v => v = u-c
					return 1, -c.Val, true
				case ir.Sub: // u = c-v => v = c-u = -1*u+c
					return -1, c.Val, true
				}
			}
		}
	}
	if bo, isBinOp := v.(*ir.BinOp); isBinOp {
		if bo.X == u {
			if c, isConst := bo.Y.(*ir.Const); isConst {
				switch bo.Op {
				case ir.Add: // v = u+c
					return 1, c.Val, true
				case ir.Sub: // v = u-c
					return 1, -c.Val, true
				case ir.Mul: // v = u*c
					return c.Val, 0, true
				}
			}
		}
		if bo.Y == u {
			if c, isConst := bo.X.(*ir.Const); isConst {
				switch bo.Op {
				case ir.Add: // v = c+u
					return 1, c.Val, true
				case ir.Sub: // v = c-u
					return -1, c.Val, true
				case ir.Mul: // v = c*u
					return c.Val, 0, true
				}
			}
		}
	}
	return 0, 0, false
}

// refineInternal applies a single predicate to R for value v (§4.3).
func refineInternal(ctx *Context, r Range, v ir.Value, pred Predicate) Range {
	if pred.Kind == PredNE {
		if tightened, ok := refineInductionNE(ctx, r, v, pred); ok {
			return tightened
		}
	}

	c1, c2, matchedLhs, ok := tryMatch(v, pred)
	if !ok {
		return r
	}
	var op2 ir.Value
	if matchedLhs {
		op2 = pred.Rhs
	} else {
		op2 = pred.Lhs
	}
	op2Range := useRange(ctx, op2, pred.At)

	switch pred.Kind {
	case PredEQ:
		bound := scaleRange(op2Range, c1, c2)
		return debugIntersect(ctx, r, bound, pred)
	case PredLT:
		opEqualsRhs := matchedLhs
		if opEqualsRhs != (c1 < 0) {
			k := Add(Add(Mul(Scalar(c1), op2Range.Hi), Scalar(c2)), Scalar(-1))
			return debugIntersect(ctx, r, Range{Lo: Bot(), Hi: k}, pred)
		}
		lo := Add(Add(Mul(Scalar(c1), op2Range.Lo), Scalar(c2)), Scalar(1))
		return debugIntersect(ctx, r, Range{Lo: lo, Hi: Top()}, pred)
	case PredLE:
		opEqualsRhs := matchedLhs
		if opEqualsRhs != (c1 < 0) {
			k := Add(Mul(Scalar(c1), op2Range.Hi), Scalar(c2))
			return debugIntersect(ctx, r, Range{Lo: Bot(), Hi: k}, pred)
		}
		lo := Add(Mul(Scalar(c1), op2Range.Lo), Scalar(c2))
		return debugIntersect(ctx, r, Range{Lo: lo, Hi: Top()}, pred)
	case PredNE:
		lo, hi, singleton := ToScalarRange(op2Range)
		if !singleton || lo != hi {
			return r
		}
		s2 := c1*lo + c2
		if s, ok := ToScalar(r.Lo); ok && s == s2 {
			r.Lo = Scalar(s2 + 1)
		} else if s, ok := ToScalar(r.Hi); ok && s == s2 {
			r.Hi = Scalar(s2 - 1)
		}
		return r
	default:
		return r
	}
}

func scaleRange(r Range, c1, c2 int64) Range {
	lo := Add(Mul(Scalar(c1), r.Lo), Scalar(c2))
	hi := Add(Mul(Scalar(c1), r.Hi), Scalar(c2))
	if c1 < 0 {
		lo, hi = hi, lo
	}
	return Range{Lo: lo, Hi: hi}
}

func tryMatch(v ir.Value, pred Predicate) (c1, c2 int64, matchedLhs, ok bool) {
	if c1, c2, ok = matchAffine(v, pred.Lhs); ok {
		return c1, c2, true, true
	}
	if c1, c2, ok = matchAffine(v, pred.Rhs); ok {
		return c1, c2, false, true
	}
	return 0, 0, false, false
}

// refineInductionNE is the induction-variable special case of NE
// refinement (§4.3): a φ stepping by a constant t away from a base a,
// compared for inequality against y, proves the one-sided bound
// [⊥, y-1] or [y+1, ⊤] once (y-a)/t is known to be an exact scalar
// constant — the signature of the canonical `for(i=0;i<n;++i)` /
// `i != n` loop-exit idiom.
func refineInductionNE(ctx *Context, r Range, v ir.Value, pred Predicate) (Range, bool) {
	phi, isPhi := v.(*ir.Phi)
	if !isPhi {
		return r, false
	}
	base, dir, t, ok := PhiInduction(phi)
	if !ok || t == 0 || dir == MonoNone {
		return r, false
	}
	var y ir.Value
	switch {
	case pred.Lhs == ir.Value(phi):
		y = pred.Rhs
	case pred.Rhs == ir.Value(phi):
		y = pred.Lhs
	default:
		return r, false
	}

	aExpr := shallowExpr(base)
	yExpr := shallowExpr(y)
	diff := Sub(yExpr, aExpr)
	s, isScalar := ToScalar(diff)
	if !isScalar || s%t != 0 {
		return r, false
	}

	yRange := useRange(ctx, y, pred.At)
	var bound Range
	if dir == MonoInc {
		bound = Range{Lo: Bot(), Hi: Sub(yRange.Hi, Scalar(1))}
	} else {
		bound = Range{Lo: Add(yRange.Lo, Scalar(1)), Hi: Top()}
	}
	return debugIntersect(ctx, r, bound, pred), true
}

// shallowExpr represents v as a bare expression without invoking the
// solver: a constant collapses to its scalar, anything else becomes its
// own opaque symbol. This lets Sub prove "(y-a) is a scalar constant"
// when both are constants or y and a are the same IR value, without the
// recursion and cycle-tracking the full def_range machinery needs. A y
// computed from a (e.g. a+5) gets its own symbol and is not matched.
func shallowExpr(v ir.Value) Expr {
	if c, ok := v.(*ir.Const); ok {
		return Scalar(c.Val)
	}
	return VarExpr(v)
}

// debugIntersect performs the intersection and, when --debug is set,
// emits the "control dependency leads to intersection with ..." trace
// line original_source prints (SPEC_FULL §D.4).
func debugIntersect(ctx *Context, r, bound Range, pred Predicate) Range {
	out := Intersect(r, bound)
	if ctx.Debug && ctx.Trace != nil {
		ctx.Trace(fmt.Sprintf("control dependency leads to intersection with %s", bound))
	}
	return out
}
