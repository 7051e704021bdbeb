package ir

// DomTree is a function's dominator tree, queried by the refinement
// subsystem (§4.3) to find the conditional branches that properly
// dominate a given block. Construction follows the standard
// Cooper-Harvey-Kennedy iterative algorithm ("A Simple, Fast Dominance
// Algorithm"), the same engineering golang.org/x/tools/go/ssa uses to
// compute Block.Idom/Block.Dominees for knil's CFG walks.
type DomTree struct {
	idom []*BasicBlock // idom[b.Index] is b's immediate dominator, nil for the entry
	kids [][]*BasicBlock
}

func buildDomTree(f *Function) *DomTree {
	n := len(f.Blocks)
	if n == 0 {
		return &DomTree{}
	}
	postorder := postorderBlocks(f)
	index := make(map[*BasicBlock]int, n)
	for i, b := range postorder {
		index[b] = i
	}

	idoms := make([]*BasicBlock, n) // indexed by BasicBlock.Index
	entry := f.Blocks[0]
	idoms[entry.Index] = entry

	changed := true
	for changed {
		changed = false
		// Process in reverse postorder, skipping the entry.
		for i := len(postorder) - 2; i >= 0; i-- {
			b := postorder[i]
			var newIdom *BasicBlock
			for _, p := range b.Preds {
				if idoms[p.Index] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idoms, index)
			}
			if newIdom != nil && idoms[b.Index] != newIdom {
				idoms[b.Index] = newIdom
				changed = true
			}
		}
	}
	idoms[entry.Index] = nil

	kids := make([][]*BasicBlock, n)
	for _, b := range f.Blocks {
		if p := idoms[b.Index]; p != nil {
			kids[p.Index] = append(kids[p.Index], b)
		}
	}
	return &DomTree{idom: idoms, kids: kids}
}

func intersect(a, b *BasicBlock, idoms []*BasicBlock, postIndex map[*BasicBlock]int) *BasicBlock {
	for a != b {
		for postIndex[a] < postIndex[b] {
			a = idoms[a.Index]
		}
		for postIndex[b] < postIndex[a] {
			b = idoms[b.Index]
		}
	}
	return a
}

func postorderBlocks(f *Function) []*BasicBlock {
	seen := make(map[*BasicBlock]bool, len(f.Blocks))
	var order []*BasicBlock
	var visit func(b *BasicBlock)
	visit = func(b *BasicBlock) {
		if seen[b] {
			return
		}
		seen[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		order = append(order, b)
	}
	visit(f.Blocks[0])
	return order
}

// IDom returns b's immediate dominator, or nil if b is the entry block or
// unreachable.
func (t *DomTree) IDom(b *BasicBlock) *BasicBlock {
	if b.Index >= len(t.idom) {
		return nil
	}
	return t.idom[b.Index]
}

// Dominates reports whether a dominates b, inclusive (a dominates itself).
func (t *DomTree) Dominates(a, b *BasicBlock) bool {
	for b != nil {
		if b == a {
			return true
		}
		b = t.IDom(b)
	}
	return false
}

// ProperlyDominates reports whether a dominates b and a != b — the
// relation the refinement subsystem collects predicates over (§4.3: only
// properly-dominating conditional branches contribute a predicate).
func (t *DomTree) ProperlyDominates(a, b *BasicBlock) bool {
	return a != b && t.Dominates(a, b)
}
