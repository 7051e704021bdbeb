package rangecheck

import "github.com/sleuthgo/sleuthgo/ir"

// gatePredicates translates a φ incoming edge's GatingCond into the
// normalized Predicate shape refine_internal already knows how to fold
// (§4.3: "these are translated into the same predicate shape"). A nil
// gate (the common case — see ConstructGating) translates to nothing.
func gatePredicates(gate ir.GatingCond, at ir.Instruction) []Predicate {
	switch g := gate.(type) {
	case ir.SimpleGate:
		if cmp, ok := g.Cond.(*ir.ICmp); ok {
			return []Predicate{basePredicateFromICmp(cmp, at)}
		}
		return nil
	case ir.NegatedGate:
		inner := gatePredicates(g.Inner, at)
		out := make([]Predicate, len(inner))
		for i, p := range inner {
			out[i] = negatePredicate(p)
		}
		return out
	case ir.ConjGate:
		return append(gatePredicates(g.A, at), gatePredicates(g.B, at)...)
	default:
		return nil
	}
}

// ConstructGating is the Gated-SSA construction stub §9's Open Questions
// call for: deriving a φ edge's gating condition purely from CFG shape
// (which predecessor block, under which branch, feeds this edge) is only
// partially realized in original_source, and inventing the missing
// semantics isn't warranted. This always reports "no gating condition" —
// callers that already carry an explicit ir.PhiEdge.Gate (hand-built test
// fixtures, or a future richer loader) still get it honored by
// gatePredicates above; this stub only governs the fallback when no gate
// was supplied at all.
func ConstructGating(edge ir.PhiEdge, fn *ir.Function) ir.GatingCond {
	return nil
}
