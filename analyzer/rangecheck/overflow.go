package rangecheck

import "github.com/sleuthgo/sleuthgo/ir"

// checkOverflow is the three-valued overflow decision (§4.5). When the
// verdict is indeterminate, argument-only endpoints are pinned as
// deferred Triggers on owner, the function containing instr; deferred
// reports true when at least one trigger was registered, telling the
// driver this access's finding, if any, arrives later via a callsite
// discharge rather than now.
func checkOverflow(ctx *Context, size, idx Range, instr ir.Instruction, owner *ir.Function) (decision Decision, deferred bool) {
	if le(size.Hi, idx.Hi) || le(idx.Lo, Scalar(-1)) {
		return DecisionYes, false
	}
	if le(Scalar(0), idx.Lo) && le(idx.Hi, Sub(size.Lo, Scalar(1))) {
		return DecisionNo, false
	}

	if isArgumentOnly(size.Hi) && isArgumentOnly(idx.Hi) {
		ctx.addTrigger(owner, Trigger{Lhs: size.Hi, Rhs: idx.Hi, Instr: instr})
		deferred = true
	}
	if isArgumentOnly(idx.Lo) {
		ctx.addTrigger(owner, Trigger{Lhs: idx.Lo, Rhs: Scalar(-1), Instr: instr})
		deferred = true
	}
	return DecisionMaybe, deferred
}

// le is a small local alias kept for readability at call sites that read
// like the spec's math (`s_hi ≤ i_hi`) rather than the algebra package's
// exported Le.
func le(a, b Expr) bool { return Le(a, b) }

// isArgumentOnly reports whether e's every atom is (transitively, through
// linear scalings — extensions never introduce a new atom tag, since
// SExt/ZExt pass their operand's range through unchanged) a reference to
// a function parameter (§4.5).
func isArgumentOnly(e Expr) bool {
	if e.sent != normal {
		return false
	}
	return isArgOnlyAtom(e.Atom)
}

func isArgOnlyAtom(a *Atom) bool {
	if a == nil {
		return true
	}
	switch a.Kind {
	case AtomVar:
		_, ok := a.Var.(*ir.Param)
		return ok
	case AtomLinear:
		return isArgOnlyAtom(a.Inner)
	case AtomBinOp:
		return isArgOnlyAtom(a.L) && isArgOnlyAtom(a.R)
	case AtomConst:
		return true
	default:
		return false
	}
}
