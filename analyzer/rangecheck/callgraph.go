package rangecheck

import (
	"github.com/katalvlaran/lvlath/core"

	"github.com/sleuthgo/sleuthgo/ir"
)

// callGraph wraps a lvlath directed graph keyed by function name, built by
// walking every function's call instructions once (§4.6: "edges caller →
// callee discovered by walking each function's call instructions").
type callGraph struct {
	g     *core.Graph
	funcs map[string]*ir.Function
}

func buildCallGraph(mod *ir.Module) *callGraph {
	cg := &callGraph{
		g:     core.NewGraph(core.WithDirected(true)),
		funcs: make(map[string]*ir.Function, len(mod.Functions)),
	}
	for _, f := range mod.Functions {
		cg.funcs[f.Name] = f
		_ = cg.g.AddVertex(f.Name)
	}
	for _, f := range mod.Functions {
		for _, b := range f.Blocks {
			for _, inst := range b.Instrs {
				call, ok := inst.(*ir.Call)
				if !ok || call.Callee == nil {
					continue
				}
				if !cg.g.HasVertex(call.Callee.Name) {
					_ = cg.g.AddVertex(call.Callee.Name)
					cg.funcs[call.Callee.Name] = call.Callee
				}
				_, _ = cg.g.AddEdge(f.Name, call.Callee.Name, 0)
			}
		}
	}
	return cg
}

// postorder returns functions in callee-before-caller order. Grounded on
// original_source/src/analyzer/sort.cpp's plain visited-set DFS: a
// function already visited (including one on the current recursion stack,
// i.e. a cycle) is simply skipped, never an error — lvlath's own
// dfs.TopologicalSort rejects cycles outright, which spec.md's "recursion
// is broken implicitly by the visited set" rules out, so the traversal
// here is hand-rolled over core.Graph's vertex/edge storage instead.
func (cg *callGraph) postorder() []*ir.Function {
	visited := make(map[string]bool, len(cg.funcs))
	var order []*ir.Function

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		edges, err := cg.g.Neighbors(name)
		if err == nil {
			for _, e := range edges {
				visit(e.To)
			}
		}
		if f := cg.funcs[name]; f != nil {
			order = append(order, f)
		}
	}
	for _, name := range cg.g.Vertices() {
		visit(name)
	}
	return order
}
