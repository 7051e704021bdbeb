// Package rangecheck implements the symbolic range analysis engine: the
// atom/expression algebra, the demand-driven range solver, refinement,
// buffer-size inference, the overflow decision, and interprocedural
// propagation over triggers and argument summaries.
package rangecheck

import (
	"fmt"

	"github.com/sleuthgo/sleuthgo/ir"
)

// AtomKind tags the variant of an Atom, modeled as the tagged sum §9
// prescribes rather than an interface-per-kind hierarchy, since atoms
// are small, numerous, and compared structurally far more often than
// they're dispatched on.
type AtomKind int

const (
	AtomVar AtomKind = iota
	AtomLinear
	AtomBinOp
	// AtomConst exists only for the internal to_atom embedding div() needs
	// to hand a whole expression (atom *and* delta) to a BinOp(÷) atom.
	// Every other constructor in this file lifts a constant to scalar
	// form and never builds this variant, per the data model's "Const(s)
	// lifted to scalar form, never kept as atom".
	AtomConst
)

// BinOpKind is the operator of an AtomBinOp.
type BinOpKind int

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpDiv
)

func (op BinOpKind) String() string {
	return [...]string{"+", "-", "*", "/"}[op]
}

// Atom is an immutable node in the symbolic-expression DAG: a constant, a
// stable reference to an IR value, a linear scaling of another atom, or a
// binary combination of two atoms. Atoms are many-owner and compared by
// recursive structural equality, never by pointer identity — the atom
// cancellation rule in add() depends on structurally-equal sub-atoms
// collapsing even when built independently.
type Atom struct {
	Kind AtomKind

	// AtomVar
	Var ir.Value

	// AtomLinear: K * Inner
	Inner *Atom
	K     int64

	// AtomBinOp
	Op   BinOpKind
	L, R *Atom

	// AtomConst
	Const int64
}

// Equal reports structural equality, recursing into sub-atoms.
func (a *Atom) Equal(b *Atom) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case AtomVar:
		return a.Var == b.Var
	case AtomLinear:
		return a.K == b.K && a.Inner.Equal(b.Inner)
	case AtomBinOp:
		return a.Op == b.Op && a.L.Equal(b.L) && a.R.Equal(b.R)
	case AtomConst:
		return a.Const == b.Const
	default:
		return false
	}
}

func (a *Atom) String() string {
	if a == nil {
		return "<nil>"
	}
	switch a.Kind {
	case AtomVar:
		return a.Var.Name()
	case AtomLinear:
		return fmt.Sprintf("%d*%s", a.K, a.Inner)
	case AtomBinOp:
		return fmt.Sprintf("(%s %s %s)", a.L, a.Op, a.R)
	case AtomConst:
		return fmt.Sprintf("%d", a.Const)
	default:
		return "?"
	}
}

// VarAtom builds an opaque reference to an IR value's own identity, the
// "the value becomes its own opaque symbol" fallback (§4.2).
func VarAtom(v ir.Value) *Atom { return &Atom{Kind: AtomVar, Var: v} }

// sentinel tags an Expr as top, bottom, or a genuine normal form.
type sentinel int

const (
	normal sentinel = iota
	top             // +inf / unknown upper
	bot             // -inf / unknown lower
)

// Expr is a symbolic expression: either a sentinel (⊤/⊥) or the normal
// form coeff·atom + delta, with atom == nil iff coeff == 0 (§3).
type Expr struct {
	sent  sentinel
	Coeff int64
	Atom  *Atom
	Delta int64
}

// Top is the ⊤ sentinel ("unknown upper").
func Top() Expr { return Expr{sent: top} }

// Bot is the ⊥ sentinel ("unknown lower").
func Bot() Expr { return Expr{sent: bot} }

// Scalar builds a purely-numeric expression.
func Scalar(v int64) Expr { return Expr{Delta: v} }

// VarExpr builds the expression "1*v + 0", a value's own opaque symbol.
func VarExpr(v ir.Value) Expr { return Expr{Coeff: 1, Atom: VarAtom(v)} }

// IsTop reports whether e is the ⊤ sentinel.
func (e Expr) IsTop() bool { return e.sent == top }

// IsBot reports whether e is the ⊥ sentinel.
func (e Expr) IsBot() bool { return e.sent == bot }

// IsSentinel reports whether e is ⊤ or ⊥.
func (e Expr) IsSentinel() bool { return e.sent != normal }

// ToScalar returns (delta, true) when e has no symbolic atom.
func ToScalar(e Expr) (int64, bool) {
	if e.sent != normal || e.Coeff != 0 {
		return 0, false
	}
	return e.Delta, true
}

func (e Expr) String() string {
	switch e.sent {
	case top:
		return "+inf"
	case bot:
		return "-inf"
	}
	if e.Coeff == 0 {
		return fmt.Sprintf("%d", e.Delta)
	}
	if e.Delta == 0 {
		return fmt.Sprintf("%d*%s", e.Coeff, e.Atom)
	}
	return fmt.Sprintf("%d*%s+%d", e.Coeff, e.Atom, e.Delta)
}

// Negate computes -e: the sentinel flips (-⊤=⊥, -⊥=⊤); a normal form
// negates coeff and delta, leaving the atom itself untouched.
func Negate(e Expr) Expr {
	switch e.sent {
	case top:
		return Bot()
	case bot:
		return Top()
	}
	return Expr{Coeff: -e.Coeff, Atom: e.Atom, Delta: -e.Delta}
}

// atomProjection returns the atom representing coeff·atom as a single
// atom node ("the no-delta atom projection"), or nil when coeff is 0.
func atomProjection(e Expr) *Atom {
	if e.Coeff == 0 {
		return nil
	}
	if e.Coeff == 1 {
		return e.Atom
	}
	return &Atom{Kind: AtomLinear, Inner: e.Atom, K: e.Coeff}
}

// Add computes a+b per §4.1: sentinels dominate; deltas always sum;
// atoms combine by the cancellation/merge/fresh-BinOp rule.
func Add(a, b Expr) Expr {
	if a.sent != normal {
		return a
	}
	if b.sent != normal {
		return b
	}
	delta := a.Delta + b.Delta
	switch {
	case a.Coeff == 0 && b.Coeff == 0:
		return Scalar(delta)
	case a.Coeff == 0:
		return Expr{Coeff: b.Coeff, Atom: b.Atom, Delta: delta}
	case b.Coeff == 0:
		return Expr{Coeff: a.Coeff, Atom: a.Atom, Delta: delta}
	case a.Atom.Equal(b.Atom):
		if a.Coeff == -b.Coeff {
			return Scalar(delta)
		}
		return Expr{Coeff: a.Coeff + b.Coeff, Atom: a.Atom, Delta: delta}
	default:
		pa, pb := atomProjection(a), atomProjection(b)
		return Expr{Coeff: 1, Atom: &Atom{Kind: AtomBinOp, Op: OpAdd, L: pa, R: pb}, Delta: delta}
	}
}

// Sub computes a-b as Add(a, Negate(b)).
func Sub(a, b Expr) Expr { return Add(a, Negate(b)) }

// Mul computes a*b per §4.1. Both-symbolic expansion is done by repeated
// Add calls over the four expanded terms (a_c*b_c·X·Y + a_c*b_d·X +
// b_c*a_d·Y + a_d*b_d), letting Add's own atom-cancellation logic
// simplify cross terms that happen to share an atom.
func Mul(a, b Expr) Expr {
	if a.sent != normal {
		return a
	}
	if b.sent != normal {
		return b
	}
	switch {
	case a.Coeff == 0 && b.Coeff == 0:
		return Scalar(a.Delta * b.Delta)
	case a.Coeff == 0:
		if a.Delta == 0 {
			return Scalar(0)
		}
		return Expr{Coeff: b.Coeff * a.Delta, Atom: b.Atom, Delta: b.Delta * a.Delta}
	case b.Coeff == 0:
		if b.Delta == 0 {
			return Scalar(0)
		}
		return Expr{Coeff: a.Coeff * b.Delta, Atom: a.Atom, Delta: a.Delta * b.Delta}
	default:
		term1 := Expr{Coeff: a.Coeff * b.Coeff, Atom: &Atom{Kind: AtomBinOp, Op: OpMul, L: a.Atom, R: b.Atom}}
		term2 := Expr{Coeff: a.Coeff * b.Delta, Atom: a.Atom}
		term3 := Expr{Coeff: b.Coeff * a.Delta, Atom: b.Atom}
		return Add(Add(Add(term1, term2), term3), Scalar(a.Delta*b.Delta))
	}
}

// toAtom embeds a full expression (coeff·atom plus delta) as a single
// atom, the black-box form Div's BinOp(÷) atom is built over. Callers
// outside this file never need it: Add/Mul/Le/Equal operate on Expr
// directly, and division is the one place the algebra needs an opaque
// atom standing in for an entire sub-expression.
func toAtom(e Expr) *Atom {
	core := atomProjection(e)
	if e.Delta == 0 {
		if core != nil {
			return core
		}
		return &Atom{Kind: AtomConst, Const: 0}
	}
	if core == nil {
		return &Atom{Kind: AtomConst, Const: e.Delta}
	}
	return &Atom{Kind: AtomBinOp, Op: OpAdd, L: core, R: &Atom{Kind: AtomConst, Const: e.Delta}}
}

// Div computes a/b. Caller ensures b is not the scalar zero (§4.1).
func Div(a, b Expr) Expr {
	if a.sent != normal {
		return a
	}
	if b.sent != normal {
		return b
	}
	if a.Coeff == 0 && b.Coeff == 0 {
		return Scalar(a.Delta / b.Delta)
	}
	return Expr{Coeff: 1, Atom: &Atom{Kind: AtomBinOp, Op: OpDiv, L: toAtom(a), R: toAtom(b)}}
}

// Le reports a ≤ b, soundly: ⊥ ≤ anything, anything ≤ ⊤; otherwise only
// returns true when a-b provably reduces to a non-positive scalar.
// Never guesses "true" on an inconclusive comparison (§4.1).
func Le(a, b Expr) bool {
	if a.IsBot() || b.IsTop() {
		return true
	}
	if a.sent != normal || b.sent != normal {
		return false
	}
	d := Sub(a, b)
	s, ok := ToScalar(d)
	return ok && s <= 0
}

// Equal reports structural equality of two expressions (sentinels only
// equal themselves; normal forms compare coeff/delta/atom).
func Equal(a, b Expr) bool {
	if a.sent != b.sent {
		return false
	}
	if a.sent != normal {
		return true
	}
	return a.Coeff == b.Coeff && a.Delta == b.Delta && a.Atom.Equal(b.Atom)
}

// Meet returns whichever of a, b is ≤ the other; ⊥ if neither provably
// is (§4.1).
func Meet(a, b Expr) Expr {
	if Le(a, b) {
		return a
	}
	if Le(b, a) {
		return b
	}
	return Bot()
}

// Join returns whichever of a, b the other is ≤; ⊤ if neither provably
// is.
func Join(a, b Expr) Expr {
	if Le(a, b) {
		return b
	}
	if Le(b, a) {
		return a
	}
	return Top()
}
