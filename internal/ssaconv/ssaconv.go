// Package ssaconv converts an ssair.Function to and from SSA form.
package ssaconv

import (
	"ssaflow/internal/domtree"
	"ssaflow/internal/srcctx"
	"ssaflow/internal/ssair"
)

// ConvertToSSA puts fn into SSA form: phi-function insertion at dominance
// frontiers, followed by dominator-tree-driven renaming. Requires
// fn.DominatorsValid (callers should domtree.Update(fn) first).
func ConvertToSSA(fn *ssair.Function) {
	insertPhiFunctions(fn)
	renameDominatorSubtree(fn, fn.Entry(), nil)
}

// insertPhiFunctions places a PhiFun at the start of every block in the
// dominance frontier of a block B, for every register locally defined in
// B, unless one is already present.
func insertPhiFunctions(fn *ssair.Function) {
	for _, b := range fn.Blocks() {
		var locallyDefined []ssair.RegID
		seen := map[ssair.RegID]bool{}
		for _, insnID := range b.Insns() {
			for _, r := range fn.Insn(insnID).Results() {
				if !seen[r] {
					seen[r] = true
					locallyDefined = append(locallyDefined, r)
				}
			}
		}

		for _, frontierID := range domtree.Frontier(fn, ssair.Forward, b.ID()) {
			frontier := fn.Block(frontierID)
			for _, reg := range locallyDefined {
				if !hasPhiFunctionFor(fn, frontier, reg) {
					phi := ssair.NewPhiFun(fn, reg)
					frontier.PrependInsn(phi.ID())
				}
			}
		}
	}
}

// hasPhiFunctionFor searches the phi-functions at the start of block
// (which occur contiguously) for one whose result is reg. Search halts at
// the first non-PhiFun instruction.
func hasPhiFunctionFor(fn *ssair.Function, block *ssair.Block, reg ssair.RegID) bool {
	for _, insnID := range block.Insns() {
		phi, ok := fn.Insn(insnID).(*ssair.PhiFun)
		if !ok {
			break
		}
		if phi.Result() == reg {
			return true
		}
	}
	return false
}

// regEnv is a hierarchical environment mapping pre-SSA "proto" registers
// to their current SSA value register, one level per dominator-tree
// depth.
type regEnv struct {
	parent  *regEnv
	mapping map[ssair.RegID]ssair.RegID
}

func (e *regEnv) add(from, to ssair.RegID) {
	e.mapping[from] = to
}

func (e *regEnv) lookup(from ssair.RegID) ssair.RegID {
	if to, ok := e.mapping[from]; ok {
		return to
	}
	if e.parent != nil {
		return e.parent.lookup(from)
	}
	return 0
}

// renameDominatorSubtree renames every register touched in block to its
// current SSA value, recurses into the blocks block immediately dominates,
// then feeds one PhiFunInp per leading phi-function of each control
// successor — placed in this block, before its branch.
func renameDominatorSubtree(fn *ssair.Function, blockID ssair.BlockID, parentEnv *regEnv) {
	env := &regEnv{parent: parentEnv, mapping: map[ssair.RegID]ssair.RegID{}}
	block := fn.Block(blockID)

	for _, insnID := range block.Insns() {
		insn := fn.Insn(insnID)

		for i, arg := range insn.Args() {
			if newArg := env.lookup(arg); newArg.Valid() && newArg != arg {
				insn.ChangeArgAt(i, newArg)
			}
		}

		for i, result := range insn.Results() {
			proto := result
			newResult := fn.Register(proto).MakeSSAValue()
			insn.ChangeResultAt(i, newResult.ID())
			env.add(proto, newResult.ID())
		}
	}

	for _, child := range block.Dominatees(ssair.Forward) {
		renameDominatorSubtree(fn, child, env)
	}

	for _, succID := range block.Successors() {
		succ := fn.Block(succID)
		for _, insnID := range succ.Insns() {
			phi, ok := fn.Insn(insnID).(*ssair.PhiFun)
			if !ok {
				break
			}
			proto := fn.Register(phi.Result()).SSAProto
			argValue := env.lookup(proto)
			srcctx.Assert(argValue.Valid(), "phi input has no value in predecessor")

			input := ssair.NewPhiFunInp(fn, phi.ID(), argValue)
			block.AddInsnBeforeBranch(input.ID())
		}
	}
}

// ConvertFromSSA eliminates every PhiFun in fn by splitting critical
// edges and replacing each phi with a Copy on each incoming edge. After it
// returns, no PhiFun or PhiFunInp remains in fn.
func ConvertFromSSA(fn *ssair.Function) {
	splitCriticalEdges(fn)

	for _, b := range fn.Blocks() {
		var phis []*ssair.PhiFun
		for _, insnID := range b.Insns() {
			phi, ok := fn.Insn(insnID).(*ssair.PhiFun)
			if !ok {
				break
			}
			phis = append(phis, phi)
		}

		for _, phi := range phis {
			for _, inputID := range append([]ssair.InsnID(nil), phi.Inputs()...) {
				input := fn.Insn(inputID).(*ssair.PhiFunInp)
				homeBlock := fn.Block(input.Block())
				copy := ssair.NewCopy(fn, input.Args()[0], phi.Result())
				homeBlock.AddInsnBeforeBranch(copy.ID())
				fn.DestroyInsn(inputID)
			}
			fn.DestroyInsn(phi.ID())
		}
	}
}

// splitCriticalEdges interposes a fresh block on every critical edge (a
// source with multiple successors whose target has a PhiFunInp waiting for
// it), rerouting the edge and migrating the relevant PhiFunInp
// instructions into the new block so the copy inserted by phi elimination
// has a non-shared home.
func splitCriticalEdges(fn *ssair.Function) {
	for _, src := range fn.Blocks() {
		if len(src.Successors()) <= 1 {
			continue
		}

		term := src.Terminator()
		if term == nil {
			continue
		}

		// Group this source's trailing PhiFunInp instructions by the
		// block that owns their target PhiFun, in first-seen order so the
		// interposed blocks come out numbered the same way every run.
		byTarget := map[ssair.BlockID][]ssair.InsnID{}
		var targets []ssair.BlockID
		for _, insnID := range src.Insns() {
			input, ok := fn.Insn(insnID).(*ssair.PhiFunInp)
			if !ok {
				continue
			}
			phi := fn.Insn(input.PhiFun).(*ssair.PhiFun)
			if _, ok := byTarget[phi.Block()]; !ok {
				targets = append(targets, phi.Block())
			}
			byTarget[phi.Block()] = append(byTarget[phi.Block()], insnID)
		}

		for _, targetID := range targets {
			inputs := byTarget[targetID]
			splitID := fn.AddBlock()
			split := fn.Block(splitID)
			split.SetFallThrough(targetID)
			src.ChangeSuccessor(targetID, splitID)

			for _, inputID := range inputs {
				split.AddInsnBeforeBranch(inputID)
			}
		}
	}
}
