package rangecheck

import "github.com/sleuthgo/sleuthgo/ir"

// Analyzer runs the range-check pass over a Module (§2, §6). It owns no
// state of its own beyond the oracle/reporter configuration handed to
// NewContext; all per-run state lives in the Context it builds in Run.
type Analyzer struct {
	Oracle   ir.AllocationOracle
	Reporter Reporter
	Debug    bool
	Trace    func(s string)
}

// Run walks mod in callee-before-caller order (§4.6) and checks every
// memory access it finds, returning the Context so callers (tests, the
// CLI) can inspect its final counters directly.
func (a *Analyzer) Run(mod *ir.Module) *Context {
	ctx := NewContext(a.Oracle, a.Reporter)
	ctx.Debug = a.Debug
	ctx.Trace = a.Trace

	cg := buildCallGraph(mod)
	calledFuncs := make(map[*ir.Function]bool)

	for _, f := range cg.postorder() {
		for _, blk := range f.Blocks {
			for _, instr := range blk.Instrs {
				switch v := instr.(type) {
				case *ir.GetElementPtr:
					a.checkAccess(ctx, v, f)
				case *ir.Call:
					if v.Callee != nil {
						calledFuncs[v.Callee] = true
					}
					for _, tr := range onCall(ctx, v) {
						a.reportDischarge(ctx, tr)
					}
				}
			}
		}
	}

	a.flushOrphanTriggers(ctx, mod, calledFuncs)

	if ctx.Reporter != nil {
		if s, ok := ctx.Reporter.(summarizer); ok {
			s.Summary(ctx.TotalOverflows, ctx.TotalIndeterminate, ctx.TotalCorrect)
		}
	}
	return ctx
}

// summarizer is the optional extra method report.Reporter carries; kept
// separate from the minimal Reporter interface in facts.go so plain
// Report-only test doubles don't need to implement it.
type summarizer interface {
	Summary(totalOverflows, totalIndeterminate, totalCorrect int)
}

// checkAccess is the per-GetElementPtr overflow check (§4.5, §8:
// "vulnerability_info[v] assigned at most once per pass"). A Maybe
// verdict backed by a registered Trigger reports nothing now — its
// finding, if any, arrives later from a callsite discharge.
func (a *Analyzer) checkAccess(ctx *Context, gep *ir.GetElementPtr, owner *ir.Function) {
	if _, done := ctx.vulnInfo[gep]; done {
		return
	}
	if gep.Base == nil || gep.Idx == nil {
		ctx.warnf("gep %s: null operand, skipping access (§7 malformed-IR degrade)", gep.Name())
		return
	}
	idx := useRange(ctx, gep.Idx, gep)
	size := bufferSizeRange(ctx, gep.Base)
	decision, deferred := checkOverflow(ctx, size, idx, gep, owner)
	ctx.vulnInfo[gep] = &VulnerabilityInfo{Decision: decision, IdxRange: idx, SizeRange: size}

	switch decision {
	case DecisionYes:
		a.report(ctx, gep, owner, idx, size, SeverityDefinite)
		ctx.TotalOverflows++
	case DecisionNo:
		ctx.TotalCorrect++
	case DecisionMaybe:
		if !deferred {
			a.report(ctx, gep, owner, idx, size, SeverityIndeterminate)
			ctx.TotalIndeterminate++
		}
	}
}

// reportDischarge turns one callsite's trigger-discharge verdict into a
// finding and counter update, tied to the original access instruction
// the trigger was pinned on (§4.6).
func (a *Analyzer) reportDischarge(ctx *Context, tr TriggerResult) {
	switch tr.Decision {
	case DecisionYes:
		a.reportInstr(ctx, tr.Instr, SeverityDefinite)
		ctx.TotalOverflows++
	case DecisionNo:
		ctx.TotalCorrect++
	case DecisionMaybe:
		a.reportInstr(ctx, tr.Instr, SeverityIndeterminate)
		ctx.TotalIndeterminate++
	}
}

// flushOrphanTriggers reports, as indeterminate, every Trigger pinned to
// a function that is never called anywhere in mod (§7: a library entry
// point, or dead code) — such triggers would otherwise be silently
// dropped, since no callsite will ever exist to discharge them.
func (a *Analyzer) flushOrphanTriggers(ctx *Context, mod *ir.Module, calledFuncs map[*ir.Function]bool) {
	for _, f := range mod.Functions {
		if calledFuncs[f] {
			continue
		}
		for _, trig := range ctx.triggers[f] {
			a.reportInstr(ctx, trig.Instr, SeverityIndeterminate)
			ctx.TotalIndeterminate++
		}
	}
}

func (a *Analyzer) report(ctx *Context, gep *ir.GetElementPtr, owner *ir.Function, idx, size Range, sev FindingSeverity) {
	if ctx.Reporter == nil {
		return
	}
	ctx.Reporter.Report(ReportedFinding{
		Pos:       gep.Pos(),
		Func:      owner.Name,
		Instr:     gep.Name(),
		IdxRange:  idx.String(),
		SizeRange: size.String(),
		Severity:  sev,
	})
}

func (a *Analyzer) reportInstr(ctx *Context, instr ir.Instruction, sev FindingSeverity) {
	if ctx.Reporter == nil || instr == nil {
		return
	}
	fn := ""
	if blk := instr.Block(); blk != nil && blk.Parent != nil {
		fn = blk.Parent.Name
	}
	ctx.Reporter.Report(ReportedFinding{
		Pos:      instr.Pos(),
		Func:     fn,
		Instr:    instr.Name(),
		Severity: sev,
	})
}
