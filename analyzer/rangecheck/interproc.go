package rangecheck

import "github.com/sleuthgo/sleuthgo/ir"

// onCall processes one callsite during the currently-analyzed function's
// walk (§4.6): merge each actual's value- and size-range into the
// callee's per-parameter summaries, then discharge the callee's pending
// triggers against this callsite's own actuals.
func onCall(ctx *Context, call *ir.Call) []TriggerResult {
	f := call.Callee
	if f == nil {
		// Indirect/unresolved call: degrade gracefully, nothing to merge
		// or discharge (§7).
		return nil
	}
	for i, actual := range call.Args {
		if i >= len(f.Params) {
			break
		}
		key := ArgKey{Func: f, Index: i}
		ctx.mergeArgRange(key, useRange(ctx, actual, call))
		ctx.mergeArgSize(key, bufferSizeRange(ctx, actual))
	}
	return dischargeTriggers(ctx, call, f)
}

// TriggerResult is the verdict of discharging one pending Trigger against
// one callsite's actuals.
type TriggerResult struct {
	Instr    ir.Instruction
	Decision Decision
}

// dischargeTriggers evaluates every trigger pinned to f against call's
// actuals (§4.6). Triggers are read, never consumed: a function called
// from several sites is re-evaluated at each one, since each callsite may
// supply different actuals (this is how scenario 3 — f(5) then f(10) —
// resolves to "not triggered" then "definite overflow" for the very same
// static access).
func dischargeTriggers(ctx *Context, call *ir.Call, f *ir.Function) []TriggerResult {
	trigs := ctx.triggers[f]
	if len(trigs) == 0 {
		return nil
	}
	results := make([]TriggerResult, 0, len(trigs))
	for _, trig := range trigs {
		l := resolveExprArg(ctx, trig.Lhs, call, f)
		r := resolveExprArg(ctx, trig.Rhs, call, f)
		var d Decision
		switch {
		case Le(l.Hi, r.Lo):
			d = DecisionYes
		case Le(r.Hi, Add(l.Lo, Scalar(1))):
			// Asymmetric "not triggered" rule (§9 Open Questions): the +1
			// compensates for the comparator's lack of strict inequality
			// but is deliberately asymmetric vs. the Yes rule above.
			// Preserved as-is.
			d = DecisionNo
		default:
			d = DecisionMaybe
		}
		results = append(results, TriggerResult{Instr: trig.Instr, Decision: d})
	}
	return results
}

// resolveExprArg evaluates e as a Range, substituting every atom that
// references a parameter of f with that parameter's actual argument's
// use-range at call (§4.6's resolve_expr_arg).
func resolveExprArg(ctx *Context, e Expr, call *ir.Call, f *ir.Function) Range {
	if e.IsTop() {
		return Range{Lo: Top(), Hi: Top()}
	}
	if e.IsBot() {
		return Range{Lo: Bot(), Hi: Bot()}
	}
	atomRange := resolveAtomArg(ctx, e.Atom, call, f)
	scaled := MulExpr(atomRange, Scalar(e.Coeff))
	return AddRange(scaled, Scalars(e.Delta, e.Delta))
}

func resolveAtomArg(ctx *Context, a *Atom, call *ir.Call, f *ir.Function) Range {
	if a == nil {
		return Scalars(0, 0)
	}
	switch a.Kind {
	case AtomVar:
		if p, ok := a.Var.(*ir.Param); ok && p.Parent() == f {
			if p.ArgNo < len(call.Args) {
				return useRange(ctx, call.Args[p.ArgNo], call)
			}
			return Full()
		}
		return Range{Lo: VarExpr(a.Var), Hi: VarExpr(a.Var)}
	case AtomLinear:
		return MulExpr(resolveAtomArg(ctx, a.Inner, call, f), Scalar(a.K))
	case AtomBinOp:
		l := resolveAtomArg(ctx, a.L, call, f)
		r := resolveAtomArg(ctx, a.R, call, f)
		switch a.Op {
		case OpAdd:
			return AddRange(l, r)
		case OpSub:
			return SubRange(l, r)
		case OpMul:
			return MulRange(l, r)
		case OpDiv:
			return DivRange(l, r)
		default:
			return Full()
		}
	case AtomConst:
		return Scalars(a.Const, a.Const)
	default:
		return Full()
	}
}
