package rangecheck

import "github.com/sleuthgo/sleuthgo/ir"

// MonotonyKind is the direction of an induction variable's affine update,
// isolated as its own pure-function result per §9 ("φ-node monotony
// detection... isolate as pure functions over two IR operands returning
// {None, Inc, Dec}").
type MonotonyKind int

const (
	MonoNone MonotonyKind = iota
	MonoInc
	MonoDec
)

// inductionDelta recognizes the single update shape original_source
// matches: cand == phiVal + k (Add) or phiVal - k (Sub), for a constant
// k. step is the signed per-iteration delta (k, or -k for Sub).
func inductionDelta(phiVal ir.Value, cand ir.Value) (step int64, ok bool) {
	bo, isBinOp := cand.(*ir.BinOp)
	if !isBinOp || bo.X != phiVal {
		return 0, false
	}
	c, isConst := bo.Y.(*ir.Const)
	if !isConst {
		return 0, false
	}
	switch bo.Op {
	case ir.Add:
		return c.Val, true
	case ir.Sub:
		return -c.Val, true
	default:
		return 0, false
	}
}

func classify(step int64) MonotonyKind {
	switch {
	case step > 0:
		return MonoInc
	case step < 0:
		return MonoDec
	default:
		return MonoNone
	}
}

// PhiInduction inspects a two-incoming-edge phi for the "base, then
// affine self-update" shape (§4.2's monotony refinement, §4.3's NE
// induction-variable refinement). It reports the base (non-recursive)
// edge value, the direction and magnitude of the update, and whether the
// phi matched the shape at all — phis with any other number of edges, or
// neither of whose edges is a recognized affine self-update, report ok=false.
func PhiInduction(phi *ir.Phi) (base ir.Value, dir MonotonyKind, step int64, ok bool) {
	if len(phi.Edges) != 2 {
		return nil, MonoNone, 0, false
	}
	a, b := phi.Edges[0], phi.Edges[1]
	if s, matched := inductionDelta(phi, b.Value); matched {
		return a.Value, classify(s), s, true
	}
	if s, matched := inductionDelta(phi, a.Value); matched {
		return b.Value, classify(s), s, true
	}
	return nil, MonoNone, 0, false
}
