package ir

// Const is an integer constant.
type Const struct {
	refs
	typ Type
	Val int64
}

func (c *Const) Type() Type { return c.typ }
func (c *Const) Name() string {
	return intToName(c.Val)
}

// ConstAggregate is a constant-initialized array, e.g. a string literal or
// a `static const` array, used by the buffer-size inference's constant
// aggregate length rule and by the constant-aggregate-out-of-bounds check.
type ConstAggregate struct {
	refs
	typ Type
	// Len is the aggregate's element count, the same quantity
	// buffer_size_range reports for an Alloca of this type.
	Len int
}

func (c *ConstAggregate) Type() Type   { return c.typ }
func (c *ConstAggregate) Name() string { return "constaggregate" }

// Global is a module-level variable, addressed directly rather than via an
// Alloca.
type Global struct {
	refs
	name string
	typ  Type
}

func (g *Global) Type() Type   { return g.typ }
func (g *Global) Name() string { return g.name }

// Alloc is a stack (or heap, for recognized-allocator calls — see
// AllocationOracle) allocation of N elements of Elem. It is the primal
// source of a buffer's size range (§4.4).
type Alloc struct {
	instrBase
	typ  Type
	Elem Type
	// Count is the instruction producing the element count, or nil for a
	// fixed-size allocation (Count == nil means "exactly N", carried in N).
	Count Value
	N     int
	// Heap distinguishes a recognized-allocator call (e.g. malloc) from a
	// stack Alloca; both are modeled identically by buffer_size_range.
	Heap bool
}

func (a *Alloc) Type() Type   { return a.typ }
func (a *Alloc) Name() string { return "alloc" }

// Opcode is a BinOp's operator.
type Opcode int

const (
	Add Opcode = iota
	Sub
	Mul
	SDiv
)

func (op Opcode) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case SDiv:
		return "/"
	default:
		return "?"
	}
}

// BinOp is a binary arithmetic instruction over two integer operands.
type BinOp struct {
	instrBase
	typ     Type
	Op      Opcode
	X, Y    Value
}

func (b *BinOp) Type() Type   { return b.typ }
func (b *BinOp) Name() string { return "binop" }

// GatingCond is a Gated-SSA condition attached to a Phi incoming edge,
// per the Gated-SSA construction spec.md's Open Questions leave
// unspecified in detail (§4.3). The concrete variants mirror
// original_source's gsa/cond.h: a simple branch condition, its negation,
// or a conjunction of two conditions.
type GatingCond interface {
	isGatingCond()
}

// SimpleGate is the gating condition "this edge is taken when Cond holds",
// where Cond is the ICmp (or other boolean-valued) instruction controlling
// the branch.
type SimpleGate struct {
	Cond Value
}

func (SimpleGate) isGatingCond() {}

// NegatedGate is the logical negation of an inner gating condition.
type NegatedGate struct {
	Inner GatingCond
}

func (NegatedGate) isGatingCond() {}

// ConjGate is the conjunction of two gating conditions.
type ConjGate struct {
	A, B GatingCond
}

func (ConjGate) isGatingCond() {}

// PhiEdge is one incoming edge of a Phi: the value flowing in from Pred,
// optionally guarded by a Gate (nil when no gating condition was
// recovered, the default per spec.md's Open Question on GSA support).
type PhiEdge struct {
	Pred  *BasicBlock
	Value Value
	Gate  GatingCond
}

// Phi merges values from multiple predecessor blocks. A Phi one of whose
// Edges feeds back from a block the Phi itself dominates is loop-carried,
// the case the solver's reentrancy barrier (§4.2) exists for.
type Phi struct {
	instrBase
	typ   Type
	Edges []PhiEdge
}

func (p *Phi) Type() Type   { return p.typ }
func (p *Phi) Name() string { return "phi" }

// Load reads through a pointer.
type Load struct {
	instrBase
	typ  Type
	Addr Value
}

func (l *Load) Type() Type   { return l.typ }
func (l *Load) Name() string { return "load" }

// Store writes Val through Addr. Store produces no usable result; Type and
// Name exist only to satisfy Value so it can appear in an instruction
// stream uniformly.
type Store struct {
	instrBase
	Addr Value
	Val  Value
}

func (s *Store) Type() Type   { return nil }
func (s *Store) Name() string { return "store" }

// GetElementPtr computes the address of the Idx-th element of Base. Per
// SPEC_FULL §D.5, only this single-level form (one index, relative to
// Base's own element type) is modeled — a non-zero "first index" GEP as
// seen in LLVM IR is out of scope, matching original_source.
type GetElementPtr struct {
	instrBase
	typ  Type
	Base Value
	Idx  Value
}

func (g *GetElementPtr) Type() Type   { return g.typ }
func (g *GetElementPtr) Name() string { return "gep" }

// BitCast reinterprets a pointer as a pointer to a differently-sized
// element type, the byte/element reinterpretation case buffer_size_range
// rescales for (§4.4).
type BitCast struct {
	instrBase
	typ Type
	X   Value
}

func (b *BitCast) Type() Type   { return b.typ }
func (b *BitCast) Name() string { return "bitcast" }

// SExt is a sign-extending integer widening conversion.
type SExt struct {
	instrBase
	typ Type
	X   Value
}

func (s *SExt) Type() Type   { return s.typ }
func (s *SExt) Name() string { return "sext" }

// ZExt is a zero-extending integer widening conversion. The range
// algebra treats ZExt identically to SExt, passing the operand's range
// through unchanged. This is not sound for a negative operand value,
// which zero-extension turns into a large positive one that the passed
// through range does not cover.
type ZExt struct {
	instrBase
	typ Type
	X   Value
}

func (z *ZExt) Type() Type   { return z.typ }
func (z *ZExt) Name() string { return "zext" }

// Pred is an ICmp comparison predicate.
type Pred int

const (
	EQ Pred = iota
	NE
	SLT
	SLE
	SGT
	SGE
	ULT
	ULE
	UGT
	UGE
)

// ICmp compares X against Y and produces a boolean (i1) result, consumed
// either directly by an If terminator or indirectly via a GatingCond.
type ICmp struct {
	instrBase
	typ  Type
	Pred Pred
	X, Y Value
}

func (c *ICmp) Type() Type   { return c.typ }
func (c *ICmp) Name() string { return "icmp" }

// If is a conditional branch terminator.
type If struct {
	instrBase
	Cond        Value
	Then, Else  *BasicBlock
}

func (i *If) Type() Type   { return nil }
func (i *If) Name() string { return "if" }

// Jump is an unconditional branch terminator.
type Jump struct {
	instrBase
	Target *BasicBlock
}

func (j *Jump) Type() Type   { return nil }
func (j *Jump) Name() string { return "jump" }

// Return is a function-exit terminator.
type Return struct {
	instrBase
	Result Value // nil for a void return
}

func (r *Return) Type() Type   { return nil }
func (r *Return) Name() string { return "return" }

// Call invokes Callee (resolved by the loader; nil for an indirect or
// unresolved call, which the driver treats per §7's degrade rules) with
// Args, producing Result (accessed as the Call's own Value identity).
type Call struct {
	instrBase
	typ    Type
	Callee *Function
	Args   []Value
}

func (c *Call) Type() Type   { return c.typ }
func (c *Call) Name() string { return "call " + calleeName(c.Callee) }

func calleeName(f *Function) string {
	if f == nil {
		return "<indirect>"
	}
	return f.Name
}

func intToName(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [24]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
