// Package report defines the structured findings the analyzer emits and a
// default colorized sink for them. Per spec, the reporter is an external
// collaborator: the core never formats output itself, it only produces
// Finding values and a final summary.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/k0kubun/pp"
	"github.com/mattn/go-colorable"

	"github.com/sleuthgo/sleuthgo/ir"
)

// Severity classifies a reported Finding. Safe accesses are never
// reported as findings (only counted in the run summary) — Severity only
// distinguishes the cases worth a reader's attention.
type Severity int

const (
	Definite Severity = iota
	Indeterminate
	// ConstAggregateViolation is the supplemented "vulnerable access of
	// constant aggregate" finding (SPEC_FULL §D.1): a constant-indexed
	// load proven out of bounds, reported independently of the GEP
	// overflow check on the outer access.
	ConstAggregateViolation
)

func (s Severity) String() string {
	switch s {
	case Definite:
		return "definite"
	case Indeterminate:
		return "indeterminate"
	case ConstAggregateViolation:
		return "const-aggregate-oob"
	default:
		return "unknown"
	}
}

// Finding is one reported memory access (§6). IdxRange/SizeRange are
// already formatted by the analyzer (report never depends on the range
// algebra) so this package stays a leaf with no dependency back into
// analyzer/rangecheck.
type Finding struct {
	Pos       ir.Position
	Func      string
	Instr     string
	IdxRange  string
	SizeRange string
	Severity  Severity
}

// Reporter is the sink findings and the terminal summary are pushed to.
type Reporter interface {
	Report(f Finding)
	Summary(totalOverflows, totalIndeterminate, totalCorrect int)
}

// ColorReporter is the default Reporter: colorized, single-line findings
// on a colorable writer (so ANSI codes degrade gracefully on Windows
// terminals the way knil's go.mod already anticipated via
// github.com/mattn/go-colorable), plus a pp-backed --debug structured
// dump.
type ColorReporter struct {
	Out     io.Writer
	Verbose bool // include Indeterminate findings in the printed stream
	Debug   bool // pp-dump the full Finding, not just the summary line

	def  *color.Color
	ind  *color.Color
	safe *color.Color
}

// NewColorReporter builds a ColorReporter writing to a colorable stdout
// wrapper, matching knil's anticipated terminal handling.
func NewColorReporter(out io.Writer, verbose, debug bool) *ColorReporter {
	if out == nil {
		out = colorable.NewColorableStdout()
	}
	return &ColorReporter{
		Out:     out,
		Verbose: verbose,
		Debug:   debug,
		def:     color.New(color.FgRed, color.Bold),
		ind:     color.New(color.FgYellow),
		safe:    color.New(color.FgGreen),
	}
}

// Report prints f, subject to the --verbose gate on Indeterminate
// findings (SPEC_FULL §D.3): Definite and ConstAggregateViolation
// findings are always printed, Indeterminate only when Verbose is set.
func (r *ColorReporter) Report(f Finding) {
	if f.Severity == Indeterminate && !r.Verbose {
		return
	}
	c := r.def
	if f.Severity == Indeterminate {
		c = r.ind
	}
	c.Fprintf(r.Out, "%s: %s in %s: index %s, size %s [%s]\n",
		f.Pos, f.Instr, f.Func, f.IdxRange, f.SizeRange, f.Severity)
	if r.Debug {
		pp.Fprintln(r.Out, f)
	}
}

// Summary prints the per-run totals (SPEC_FULL §D.2).
func (r *ColorReporter) Summary(totalOverflows, totalIndeterminate, totalCorrect int) {
	fmt.Fprintf(r.Out, "overflows: %d, indeterminate: %d, correct: %d\n",
		totalOverflows, totalIndeterminate, totalCorrect)
}
