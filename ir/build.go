package ir

// AllocationOracle recognizes calls to external allocator functions (e.g.
// malloc, calloc) by name, the "recognized-allocator-calls" source of a
// buffer's size range alongside Alloca (§4.4). The range-check analyzer
// substitutes DefaultOracle when it is given a nil oracle.
type AllocationOracle interface {
	// Allocator reports whether name is a known allocator and, if so, the
	// size (in bytes) of the element type it allocates. buffer_size_range
	// does not use this size: it takes the call's first argument as the
	// element count, and only a following BitCast rescales it.
	Allocator(name string) (elemSize int, ok bool)
}

// DefaultOracle recognizes the handful of libc allocator names
// original_source/src/analyzer/analyzer.cpp special-cases, each assumed to
// allocate single bytes (the caller's own BitCast, if any, rescales).
var DefaultOracle AllocationOracle = defaultOracle{}

type defaultOracle struct{}

func (defaultOracle) Allocator(name string) (int, bool) {
	switch name {
	case "malloc", "calloc", "realloc", "alloca":
		return 1, true
	}
	return 0, false
}

// Builder hand-constructs a Module one function/block/instruction at a
// time, wiring Referrers() as it goes. It exists for tests (there is no
// object-file or bitcode frontend in scope, §1) and for the CLI's minimal
// JSON module loader, both of which need a convenient, correct-by-
// construction way to build IR fixtures — the role golang.org/x/tools/go/ssa's
// own Builder plays for knil, minus the source-language frontend.
type Builder struct {
	mod *Module
	fn  *Function
	blk *BasicBlock
}

// NewBuilder starts a new module named name.
func NewBuilder(name string) *Builder {
	return &Builder{mod: &Module{Name: name}}
}

// Module returns the module built so far. Call this once all functions
// are complete.
func (b *Builder) Module() *Module { return b.mod }

// Func starts a new function with the given parameter types and makes it
// current. The function's entry block is also created and made current.
func (b *Builder) Func(name string, paramTypes ...Type) *Function {
	f := &Function{Name: name}
	for i, t := range paramTypes {
		f.Params = append(f.Params, &Param{name: paramName(i), typ: t, ArgNo: i, parent: f})
	}
	b.mod.Functions = append(b.mod.Functions, f)
	b.fn = f
	b.Block()
	return f
}

// Param returns the i-th formal parameter of the current function.
func (b *Builder) Param(i int) *Param { return b.fn.Params[i] }

// Block appends and selects a new, empty basic block in the current
// function.
func (b *Builder) Block() *BasicBlock {
	blk := &BasicBlock{Index: len(b.fn.Blocks), Parent: b.fn}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	b.blk = blk
	return blk
}

// SetBlock makes blk the current block subsequent instructions append to.
func (b *Builder) SetBlock(blk *BasicBlock) { b.blk = blk }

// Edge records a CFG edge from a block to its successor. Terminator
// instructions (If, Jump) call this internally; tests building
// irregular/unreachable CFGs can call it directly.
func (b *Builder) Edge(from, to *BasicBlock) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// IntT is a convenience constructor for a Width-bit integer type.
func IntT(width int) *IntType { return &IntType{Width: width} }

// PtrT is a convenience constructor for a pointer-to-Elem type.
func PtrT(elem Type) *PointerType { return &PointerType{Elem: elem} }

func use(v Value, user Value) {
	if v == nil {
		return
	}
	switch r := v.(type) {
	case *Const:
		r.addUser(user)
	case *ConstAggregate:
		r.addUser(user)
	case *Global:
		r.addUser(user)
	case *Param:
		r.addUser(user)
	case *Alloc:
		r.addUser(user)
	case *BinOp:
		r.addUser(user)
	case *Phi:
		r.addUser(user)
	case *Load:
		r.addUser(user)
	case *GetElementPtr:
		r.addUser(user)
	case *BitCast:
		r.addUser(user)
	case *SExt:
		r.addUser(user)
	case *ZExt:
		r.addUser(user)
	case *ICmp:
		r.addUser(user)
	case *Call:
		r.addUser(user)
	}
}

func (b *Builder) append(instr Instruction) {
	b.blk.Instrs = append(b.blk.Instrs, instr)
}

// Const builds an integer constant of type t.
func (b *Builder) Const(t Type, v int64) *Const { return &Const{typ: t, Val: v} }

// ConstAggregate builds a constant aggregate of the given element count.
func (b *Builder) ConstAggregate(elem Type, length int) *ConstAggregate {
	return &ConstAggregate{typ: &ArrayType{Elem: elem, Len: length}, Len: length}
}

// Global declares a module-level variable.
func (b *Builder) Global(name string, t Type) *Global {
	g := &Global{name: name, typ: t}
	b.mod.Globals = append(b.mod.Globals, g)
	return g
}

// Alloc appends a fixed-size, N-element allocation of elem.
func (b *Builder) Alloc(elem Type, n int) *Alloc {
	a := &Alloc{typ: PtrT(elem), Elem: elem, N: n}
	a.block = b.blk
	b.append(a)
	return a
}

// AllocDynamic appends an allocation whose element count is itself the
// runtime value count (e.g. a VLA, or a malloc(n * sizeof(elem)) call).
func (b *Builder) AllocDynamic(elem Type, count Value, heap bool) *Alloc {
	a := &Alloc{typ: PtrT(elem), Elem: elem, Count: count, Heap: heap}
	a.block = b.blk
	use(count, a)
	b.append(a)
	return a
}

// BinOp appends a binary arithmetic instruction.
func (b *Builder) BinOp(op Opcode, x, y Value) *BinOp {
	v := &BinOp{typ: x.Type(), Op: op, X: x, Y: y}
	v.block = b.blk
	use(x, v)
	use(y, v)
	b.append(v)
	return v
}

// Phi appends a phi node of the given type; edges are added with AddEdge
// once all predecessor blocks and incoming values are known.
func (b *Builder) Phi(t Type) *Phi {
	p := &Phi{typ: t}
	p.block = b.blk
	b.append(p)
	return p
}

// AddEdge adds one incoming edge to a Phi built with Builder.Phi.
func (b *Builder) AddEdge(p *Phi, pred *BasicBlock, val Value, gate GatingCond) {
	p.Edges = append(p.Edges, PhiEdge{Pred: pred, Value: val, Gate: gate})
	use(val, p)
}

// Load appends a load through addr.
func (b *Builder) Load(addr Value) *Load {
	pt, _ := addr.Type().(*PointerType)
	var t Type
	if pt != nil {
		t = pt.Elem
	}
	l := &Load{typ: t, Addr: addr}
	l.block = b.blk
	use(addr, l)
	b.append(l)
	return l
}

// Store appends a store of val through addr.
func (b *Builder) Store(addr, val Value) *Store {
	s := &Store{Addr: addr, Val: val}
	s.block = b.blk
	use(addr, s)
	use(val, s)
	b.append(s)
	return s
}

// GEP appends a single-level getelementptr computing the address of the
// idx-th element of base.
func (b *Builder) GEP(base, idx Value) *GetElementPtr {
	g := &GetElementPtr{typ: base.Type(), Base: base, Idx: idx}
	g.block = b.blk
	use(base, g)
	use(idx, g)
	b.append(g)
	return g
}

// BitCast appends a pointer reinterpretation of x to type t.
func (b *Builder) BitCast(x Value, t Type) *BitCast {
	v := &BitCast{typ: t, X: x}
	v.block = b.blk
	use(x, v)
	b.append(v)
	return v
}

// SExt appends a sign-extension of x to type t.
func (b *Builder) SExt(x Value, t Type) *SExt {
	v := &SExt{typ: t, X: x}
	v.block = b.blk
	use(x, v)
	b.append(v)
	return v
}

// ZExt appends a zero-extension of x to type t.
func (b *Builder) ZExt(x Value, t Type) *ZExt {
	v := &ZExt{typ: t, X: x}
	v.block = b.blk
	use(x, v)
	b.append(v)
	return v
}

// ICmp appends a comparison of x against y.
func (b *Builder) ICmp(pred Pred, x, y Value) *ICmp {
	v := &ICmp{typ: IntT(1), Pred: pred, X: x, Y: y}
	v.block = b.blk
	use(x, v)
	use(y, v)
	b.append(v)
	return v
}

// If terminates the current block with a conditional branch and wires the
// CFG edges to then/els.
func (b *Builder) If(cond Value, then, els *BasicBlock) *If {
	v := &If{Cond: cond, Then: then, Else: els}
	v.block = b.blk
	use(cond, v)
	b.append(v)
	b.Edge(b.blk, then)
	b.Edge(b.blk, els)
	return v
}

// Jump terminates the current block with an unconditional branch and
// wires the CFG edge to target.
func (b *Builder) Jump(target *BasicBlock) *Jump {
	v := &Jump{Target: target}
	v.block = b.blk
	b.append(v)
	b.Edge(b.blk, target)
	return v
}

// Return terminates the current block. result may be nil for a void
// return.
func (b *Builder) Return(result Value) *Return {
	v := &Return{Result: result}
	v.block = b.blk
	use(result, v)
	b.append(v)
	return v
}

// Call appends a call to callee (nil for an unresolved/indirect call) with
// the given arguments.
func (b *Builder) Call(callee *Function, resultType Type, args ...Value) *Call {
	v := &Call{typ: resultType, Callee: callee, Args: args}
	v.block = b.blk
	for _, a := range args {
		use(a, v)
	}
	b.append(v)
	return v
}

func paramName(i int) string {
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	if i < len(names) {
		return names[i]
	}
	return "p"
}
