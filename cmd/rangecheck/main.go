// Command rangecheck loads one or more IR module descriptions and runs
// the symbolic range overflow analysis over each (§6). This is the
// peripheral CLI surface: flag parsing and the JSON module loader live
// here, not in analyzer/rangecheck.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/sleuthgo/sleuthgo/analyzer/rangecheck"
	"github.com/sleuthgo/sleuthgo/ir"
	"github.com/sleuthgo/sleuthgo/report"
)

func main() {
	verbose := flag.Bool("verbose", false, "include indeterminate findings in output")
	debug := flag.Bool("debug", false, "trace refinement steps and spew-dump the final range lattice state")
	jobs := flag.Int("jobs", 4, "maximum number of modules analyzed concurrently")
	flag.Parse()

	if err := run(flag.Args(), *verbose, *debug, *jobs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(paths []string, verbose, debug bool, jobs int) error {
	if len(paths) == 0 {
		return xerrors.New("usage: rangecheck [--verbose] [--debug] [--jobs N] module.json [module.json ...]")
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(jobs)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			return analyzeFile(path, verbose, debug)
		})
	}
	return g.Wait()
}

// analyzeFile loads and analyzes a single module (§5: "concurrency is
// across instances, never inside one" — each call owns its own Analyzer
// and Context). A load failure is the one error kind surfaced all the
// way to the driver (§7); every other degradation is absorbed internally
// and shows up only as a widened range or a skipped refinement.
func analyzeFile(path string, verbose, debug bool) error {
	mod, err := loadModule(path)
	if err != nil {
		return xerrors.Errorf("%s: %w", path, err)
	}

	reporter := report.NewColorReporter(nil, verbose, debug)
	adapter := &reporterAdapter{r: reporter}
	a := &rangecheck.Analyzer{
		Oracle:   ir.DefaultOracle,
		Reporter: adapter,
		Debug:    debug,
		Trace: func(s string) {
			if debug {
				fmt.Fprintln(os.Stderr, s)
			}
		},
	}
	ctx := a.Run(mod)
	if debug {
		// go-spew dump of the final shared-state tables, mirroring knil's
		// own --debug convention of spew-dumping its SSA facts at the end
		// of a pass.
		spew.Fdump(os.Stderr, ctx)
	}
	return nil
}

// reporterAdapter translates analyzer-internal ReportedFinding/
// FindingSeverity values into report.Finding/report.Severity, keeping
// analyzer/rangecheck free of a direct dependency on report's own
// third-party stack (facts.go's Reporter doc comment explains why).
type reporterAdapter struct {
	r *report.ColorReporter
}

func (a *reporterAdapter) Report(f rangecheck.ReportedFinding) {
	a.r.Report(report.Finding{
		Pos:       f.Pos,
		Func:      f.Func,
		Instr:     f.Instr,
		IdxRange:  f.IdxRange,
		SizeRange: f.SizeRange,
		Severity:  severityOf(f.Severity),
	})
}

func (a *reporterAdapter) Summary(totalOverflows, totalIndeterminate, totalCorrect int) {
	a.r.Summary(totalOverflows, totalIndeterminate, totalCorrect)
}

func severityOf(s rangecheck.FindingSeverity) report.Severity {
	switch s {
	case rangecheck.SeverityDefinite:
		return report.Definite
	case rangecheck.SeverityConstAggregate:
		return report.ConstAggregateViolation
	default:
		return report.Indeterminate
	}
}
