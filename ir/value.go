package ir

// Value is anything that produces a usable result: an instruction, a
// parameter, a constant, or a global. Identity is by Go pointer equality of
// the concrete implementing type (every constructor in this package returns
// a pointer) — ir never defines a custom Equal method, matching spec's
// "pointer-equal comparison is its identity" for IR values.
type Value interface {
	// Type is the static type of the value.
	Type() Type
	// Name is a short human-readable name, used only for disassembly
	// snippets in findings.
	Name() string
	// Referrers returns the instructions that use this value as an
	// operand, in the order they were registered. It is nil for a value
	// that no instruction uses.
	Referrers() []Value
}

// refs is embedded by every concrete Value to track its users. It is
// populated by Builder.wire, mirroring how golang.org/x/tools/go/ssa fills
// in Value.Referrers() as instructions are appended to a block.
type refs struct {
	users []Value
}

func (r *refs) Referrers() []Value { return r.users }

func (r *refs) addUser(v Value) { r.users = append(r.users, v) }

// Instruction is a Value that additionally belongs to a basic block and
// carries a source position.
type Instruction interface {
	Value
	Block() *BasicBlock
	Pos() Position
}

// instrBase is embedded by every concrete instruction type.
type instrBase struct {
	refs
	block *BasicBlock
	pos   Position
}

func (i *instrBase) Block() *BasicBlock { return i.block }
func (i *instrBase) Pos() Position      { return i.pos }

// SetPos records the source position an instruction was built from.
// Builder's own construction methods leave pos zero (Position{}'s
// String() reports "<unknown>"); a loader that has debug info available
// (e.g. cmd/rangecheck's JSON module loader, §6) calls this after
// appending the instruction.
func (i *instrBase) SetPos(p Position) { i.pos = p }
