package rangecheck

import (
	"github.com/pkg/errors"
	"golang.org/x/tools/container/intsets"

	"github.com/sleuthgo/sleuthgo/ir"
)

// Decision is the three-valued verdict on a memory access (§3).
type Decision int

const (
	DecisionMaybe Decision = iota
	DecisionYes
	DecisionNo
)

func (d Decision) String() string {
	switch d {
	case DecisionYes:
		return "yes"
	case DecisionNo:
		return "no"
	default:
		return "maybe"
	}
}

// VulnerabilityInfo is the cached classification of one IR value's access
// (§3).
type VulnerabilityInfo struct {
	Decision  Decision
	IdxRange  Range
	SizeRange Range
}

// ArgKey identifies a formal parameter by its owning function and
// position, the key argument/size summaries accumulate on (§3).
type ArgKey struct {
	Func  *ir.Function
	Index int
}

// Trigger is the deferred interprocedural obligation "if lhs ≤ rhs holds
// on the actuals at a later callsite, the access at Instr overflows"
// (§3, §4.5).
type Trigger struct {
	Lhs, Rhs Expr
	Instr    ir.Instruction
}

// PredKind is the normalized predicate relation refinement folds into a
// range (§4.3).
type PredKind int

const (
	PredEQ PredKind = iota
	PredNE
	PredLT
	PredLE
)

// Predicate is a normalized fact known to hold at a program point:
// `lhs <relation> rhs`, over the IR operands of the comparison that
// produced it (the affine match in refine_internal needs their def-use
// structure, not yet-resolved ranges). LT always means lhs < rhs
// (operands are swapped at collection time to keep the relation
// directional).
type Predicate struct {
	Kind     PredKind
	Lhs, Rhs ir.Value
	At       ir.Instruction
}

// valueIDs assigns small, stable integers to IR values on first sight,
// the keys golang.org/x/tools/container/intsets.Sparse needs (it indexes
// dense bitsets by int, not by arbitrary comparable keys) for the
// new_val_set reentrancy barrier.
type valueIDs struct {
	ids  map[ir.Value]int
	next int
}

func newValueIDs() *valueIDs { return &valueIDs{ids: make(map[ir.Value]int)} }

func (t *valueIDs) id(v ir.Value) int {
	if id, ok := t.ids[v]; ok {
		return id
	}
	id := t.next
	t.next++
	t.ids[v] = id
	return id
}

// blockIDs is the same scheme for *ir.BasicBlock. Context builds one, but
// the bounded reachability BFS in refine.go keys its visited set by block
// pointer in a plain map and does not use these IDs.
type blockIDs struct {
	ids  map[*ir.BasicBlock]int
	next int
}

func newBlockIDs() *blockIDs { return &blockIDs{ids: make(map[*ir.BasicBlock]int)} }

func (t *blockIDs) id(b *ir.BasicBlock) int {
	if id, ok := t.ids[b]; ok {
		return id
	}
	id := t.next
	t.next++
	t.ids[b] = id
	return id
}

// Context is the process-scoped shared state a single Analyzer run owns
// exclusively (§3, §5): the def-range memo, the cycle barrier, the
// vulnerability cache, and the interprocedural summary tables. It is
// mutated only by the solver/refine/interproc code, on the analyzer's
// single owning goroutine.
type Context struct {
	defRanges map[ir.Value]Range
	newValSet intsets.Sparse
	vulnInfo  map[ir.Value]*VulnerabilityInfo
	argRanges map[ArgKey]Range
	argSizes  map[ArgKey]Range
	triggers  map[*ir.Function][]Trigger
	values    *valueIDs
	blocks    *blockIDs
	oracle    ir.AllocationOracle

	Reporter Reporter
	Debug    bool          // --debug: trace refinement intersections (SPEC_FULL §D.4)
	Trace    func(s string) // sink for Debug trace lines; nil discards them

	TotalOverflows     int
	TotalIndeterminate int
	TotalCorrect       int

	// Warnings accumulates the degrade-path notices for a null operand
	// (on a binop, sext, zext, bitcast or gep): the analysis never aborts
	// on these, but a caller inspecting the run afterward can see where it
	// had to fall back to a conservative range. Other unrecognized
	// constructs fall back to a conservative range without a warning.
	// github.com/pkg/errors.Errorf attaches a stack trace to each one, so
	// a warning survives past the single log line knil's own ignore.go
	// warnings got.
	Warnings []error
}

// warnf records a degrade-path warning (§7) without aborting the pass.
// If Debug and Trace are set, the warning is also traced immediately,
// matching how refine.go's intersection trace works.
func (c *Context) warnf(format string, args ...interface{}) {
	err := errors.Errorf(format, args...)
	c.Warnings = append(c.Warnings, err)
	if c.Debug && c.Trace != nil {
		c.Trace("warn: " + err.Error())
	}
}

// Reporter is the subset of report.Reporter the analyzer needs, declared
// locally so this package doesn't import report just to accept its
// interface (report already imports ir; this avoids requiring callers to
// depend on report's third-party stack just to run the core analyzer in
// tests).
type Reporter interface {
	Report(f ReportedFinding)
}

// ReportedFinding is the analyzer's view of a finding, translated to
// report.Finding by cmd/rangecheck's adapter.
type ReportedFinding struct {
	Pos       ir.Position
	Func      string
	Instr     string
	IdxRange  string
	SizeRange string
	Severity  FindingSeverity
}

// FindingSeverity mirrors report.Severity without importing it.
type FindingSeverity int

const (
	SeverityDefinite FindingSeverity = iota
	SeverityIndeterminate
	SeverityConstAggregate
)

// NewContext creates an empty shared-state table set for one analyzer run.
// A nil oracle is replaced by ir.DefaultOracle.
func NewContext(oracle ir.AllocationOracle, reporter Reporter) *Context {
	if oracle == nil {
		oracle = ir.DefaultOracle
	}
	return &Context{
		defRanges: make(map[ir.Value]Range),
		vulnInfo:  make(map[ir.Value]*VulnerabilityInfo),
		argRanges: make(map[ArgKey]Range),
		argSizes:  make(map[ArgKey]Range),
		triggers:  make(map[*ir.Function][]Trigger),
		values:    newValueIDs(),
		blocks:    newBlockIDs(),
		oracle:    oracle,
		Reporter:  reporter,
	}
}

func (c *Context) vid(v ir.Value) int { return c.values.id(v) }

func (c *Context) addTrigger(f *ir.Function, t Trigger) {
	c.triggers[f] = append(c.triggers[f], t)
}

// mergeArgRange merges range into arg_ranges[(f,i)] by monotone union
// (§4.6, §8: "union into arg_ranges is monotonic").
func (c *Context) mergeArgRange(key ArgKey, r Range) {
	if cur, ok := c.argRanges[key]; ok {
		c.argRanges[key] = Union(cur, r)
		return
	}
	c.argRanges[key] = r
}

func (c *Context) mergeArgSize(key ArgKey, r Range) {
	if cur, ok := c.argSizes[key]; ok {
		c.argSizes[key] = Union(cur, r)
		return
	}
	c.argSizes[key] = r
}
