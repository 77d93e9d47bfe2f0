// Package simplify implements the graph-simplification passes: block
// coalescing, unreachable-block removal, copy propagation, and dead-copy
// removal.
package simplify

import (
	"ssaflow/internal/srcctx"
	"ssaflow/internal/ssair"
)

// Pass is the common shape every simplification pass is also packaged as,
// so Pipeline can run either the canonical sequence or a caller-supplied
// subset.
type Pass interface {
	Name() string
	Description() string
	Apply(fn *ssair.Function) bool // reports whether it changed anything
}

// Pipeline runs passes in order over fn, once each, returning whether any
// of them changed the graph. Each pass loops to its own fixpoint
// internally.
type Pipeline struct {
	Passes []Pass
}

// CanonicalPipeline is the combine/unreachable/copy-propagation/dead-copy
// subsequence of the driver pipeline (the dominator and SSA steps live in
// internal/domtree and internal/ssaconv).
func CanonicalPipeline() Pipeline {
	return Pipeline{Passes: []Pass{
		CombineBlocksPass{},
		RemoveUnreachablePass{},
		PropagateThroughCopiesPass{},
		RemoveUselessCopiesPass{},
	}}
}

func (p Pipeline) Run(fn *ssair.Function) bool {
	changed := false
	for _, pass := range p.Passes {
		if pass.Apply(fn) {
			changed = true
		}
	}
	return changed
}

// singularBlockList reports whether every entry in list refers to the same
// block.
func singularBlockList(list []ssair.BlockID) bool {
	if len(list) == 0 {
		return false
	}
	first := list[0]
	for _, b := range list {
		if b != first {
			return false
		}
	}
	return true
}

// CombineBlocksPass removes pointless branch instructions and merges
// blocks that are each other's sole neighbor, looping to fixpoint.
type CombineBlocksPass struct{}

func (CombineBlocksPass) Name() string { return "combine_blocks" }
func (CombineBlocksPass) Description() string {
	return "coalesce single-successor/predecessor blocks and drop branches whose targets all coincide"
}

func (CombineBlocksPass) Apply(fn *ssair.Function) bool {
	return CombineBlocks(fn)
}

// CombineBlocks is the Pass-free entry point, useful to callers (the CLI
// driver, the REPL) that want to name the canonical sequence explicitly
// rather than go through Pipeline.
func CombineBlocks(fn *ssair.Function) bool {
	assertWellFormedForCombine(fn)

	anyChange := false
	change := true
	for change {
		change = false

		for _, bb := range fn.Blocks() {
			if bb.ID() == fn.Exit() {
				continue
			}

			if term := bb.Terminator(); term != nil {
				if singularBlockList(bb.Successors()) {
					fn.DestroyInsn(term.ID())
					change = true
					continue
				}
			}

			if bb.ID() != fn.Entry() && len(bb.Successors()) == 1 {
				succID := bb.FallThrough()
				if succID.Valid() && succID != bb.ID() && succID != fn.Exit() {
					succ := fn.Block(succID)
					if len(succ.Predecessors()) == 1 {
						for len(succ.Insns()) > 0 {
							bb.AddInsn(succ.Insns()[0])
						}
						bb.SetFallThrough(succ.FallThrough())
						succ.SetFallThrough(0)
						change = true
					}
				}
			} else {
				for _, succID := range append([]ssair.BlockID(nil), bb.Successors()...) {
					if !succID.Valid() || succID == fn.Exit() || succID == bb.ID() {
						continue
					}
					succ := fn.Block(succID)
					if !succ.IsEmpty() {
						continue
					}

					newSucc := succ.FallThrough()
					if newSucc == succID {
						continue
					}

					if len(succ.Predecessors()) == 1 {
						succ.SetFallThrough(0)
					}

					bb.ChangeSuccessor(succID, newSucc)
					change = true
					break
				}
			}
		}

		if change {
			anyChange = true
		}
	}

	assertWellFormedForCombine(fn)
	return anyChange
}

func assertWellFormedForCombine(fn *ssair.Function) {
	if exitID := fn.Exit(); exitID.Valid() {
		srcctx.Assert(len(fn.Block(exitID).Successors()) == 0, "exit block has successors around combine_blocks")
	}
	entry := fn.Block(fn.Entry())
	srcctx.Assert(fn.Exit() != fn.Entry() && len(entry.Successors()) > 0, "entry block has no successors around combine_blocks")
}

// RemoveUnreachablePass destroys every non-entry block without
// predecessors, and each block that loses its last predecessor as a
// result; an unreachable cycle keeps its predecessors and is not destroyed.
type RemoveUnreachablePass struct{}

func (RemoveUnreachablePass) Name() string { return "remove_unreachable" }
func (RemoveUnreachablePass) Description() string {
	return "destroy every non-entry block left without predecessors (unreachable cycles are kept)"
}

func (RemoveUnreachablePass) Apply(fn *ssair.Function) bool {
	return RemoveUnreachable(fn)
}

// RemoveUnreachable BFS-seeds from every non-entry block with an empty
// predecessor list, then iteratively strips outgoing edges (which may
// expose more unreachable blocks) before destroying each one. Blocks of a
// cycle that the entry does not reach keep their predecessors and are not
// removed.
func RemoveUnreachable(fn *ssair.Function) bool {
	var queue []ssair.BlockID
	queued := map[ssair.BlockID]bool{}
	for _, b := range fn.Blocks() {
		if b.ID() != fn.Entry() && len(b.Predecessors()) == 0 {
			queue = append(queue, b.ID())
			queued[b.ID()] = true
		}
	}

	changed := len(queue) > 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		bb := fn.Block(id)

		for _, succID := range append([]ssair.BlockID(nil), bb.Successors()...) {
			bb.RemoveSuccessor(succID)
			if succ := fn.Block(succID); len(succ.Predecessors()) == 0 && !queued[succID] {
				queue = append(queue, succID)
				queued[succID] = true
			}
		}

		fn.DestroyBlock(id)
	}

	return changed
}

// PropagateThroughCopiesPass forwards copy sources into the uses of copy
// results.
type PropagateThroughCopiesPass struct{}

func (PropagateThroughCopiesPass) Name() string { return "propagate_through_copies" }
func (PropagateThroughCopiesPass) Description() string {
	return "rewrite uses of a singly-defined copy's result to use its source instead"
}

func (PropagateThroughCopiesPass) Apply(fn *ssair.Function) bool {
	changed := false
	for PropagateThroughCopies(fn) {
		changed = true
	}
	return changed
}

// PropagateThroughCopies rewrites every use of a register r with exactly
// one definition, when that definition is a Copy whose source s also has
// exactly one definition, to use s instead — valid because s's single
// definition must dominate the copy, which dominates every use of r.
// Does not chase transitively in one pass; iterate to fixpoint by
// re-running.
func PropagateThroughCopies(fn *ssair.Function) bool {
	changed := false

	for _, reg := range fn.Registers() {
		defs := reg.Defs()
		if len(defs) != 1 {
			continue
		}
		copyInsn, ok := fn.Insn(defs[0]).(*ssair.Copy)
		if !ok {
			continue
		}

		results := copyInsn.Results()
		for i, result := range results {
			if result != reg.ID() {
				continue
			}
			srcReg := fn.Register(copyInsn.Args()[i])
			if len(srcReg.Defs()) != 1 {
				continue
			}

			for uses := reg.Uses(); len(uses) > 0; uses = reg.Uses() {
				fn.Insn(uses[0]).ChangeArg(reg.ID(), srcReg.ID())
				changed = true
			}
		}
	}

	return changed
}

// RemoveUselessCopiesPass deletes copies whose results are never read.
type RemoveUselessCopiesPass struct{}

func (RemoveUselessCopiesPass) Name() string { return "remove_useless_copies" }
func (RemoveUselessCopiesPass) Description() string {
	return "delete every Copy instruction whose result has no remaining uses"
}

func (RemoveUselessCopiesPass) Apply(fn *ssair.Function) bool {
	return RemoveUselessCopies(fn)
}

// RemoveUselessCopies deletes every Copy whose result register has an
// empty use list, repeating until none is left, since deleting one copy can
// leave the copy that defined its source unused.
func RemoveUselessCopies(fn *ssair.Function) bool {
	changed := false

	for _, bb := range fn.Blocks() {
		for _, insnID := range append([]ssair.InsnID(nil), bb.Insns()...) {
			copyInsn, ok := fn.Insn(insnID).(*ssair.Copy)
			if !ok {
				continue
			}

			resultUsed := false
			for _, result := range copyInsn.Results() {
				if len(fn.Register(result).Uses()) > 0 {
					resultUsed = true
					break
				}
			}

			if !resultUsed {
				fn.DestroyInsn(insnID)
				changed = true
			}
		}
	}

	if changed {
		RemoveUselessCopies(fn)
	}
	return changed
}
