package simplify_test

import (
	"testing"

	"ssaflow/internal/simplify"
	"ssaflow/internal/ssair"
)

func TestCombineBlocksMergesSoleSuccessor(t *testing.T) {
	// entry -> mid1 -> mid2 -> exit. mid1 is mid2's sole predecessor and
	// mid2 is mid1's sole (non-exit) successor, so mid2's instruction
	// folds into mid1 and mid1's fall-through is rewired straight to
	// exit.
	fn := ssair.NewFunction("f")
	entry := fn.Block(fn.Entry())
	mid1 := fn.AddBlock()
	mid2 := fn.AddBlock()

	r := fn.NewRegister("r")
	s := fn.NewRegister("s")
	one := fn.NewConstRegister(fn.NewValue(1))

	entry.SetFallThrough(mid1)
	fn.Block(mid1).AddInsn(ssair.NewCopy(fn, one.ID(), r.ID()).ID())
	fn.Block(mid2).AddInsn(ssair.NewCopy(fn, r.ID(), s.ID()).ID())
	fn.Block(mid1).SetFallThrough(mid2)
	fn.Block(mid2).SetFallThrough(fn.Exit())

	changed := simplify.CombineBlocks(fn)
	if !changed {
		t.Fatal("expected CombineBlocks to report a change")
	}

	if len(fn.Block(mid1).Insns()) != 2 {
		t.Fatalf("expected mid2's instruction folded into mid1, got %d instructions", len(fn.Block(mid1).Insns()))
	}
	if fn.Block(mid1).FallThrough() != fn.Exit() {
		t.Fatalf("mid1's fall-through should now point at exit, got %d", fn.Block(mid1).FallThrough())
	}
}

func TestCombineBlocksDropsSingularBranch(t *testing.T) {
	fn := ssair.NewFunction("f")
	entry := fn.Block(fn.Entry())
	target := fn.AddBlock()

	c := fn.NewRegister("c")
	cb := ssair.NewCondBranch(fn, c.ID(), target)
	entry.AddInsn(cb.ID())
	entry.SetFallThrough(target)
	fn.Block(target).SetFallThrough(fn.Exit())

	simplify.CombineBlocks(fn)

	for _, insnID := range entry.Insns() {
		if _, ok := fn.Insn(insnID).(*ssair.CondBranch); ok {
			t.Fatal("expected the singular-successor branch to be removed")
		}
	}
}

func TestRemoveUnreachableDestroysOrphanBlocks(t *testing.T) {
	fn := ssair.NewFunction("f")
	entry := fn.Block(fn.Entry())
	reachable := fn.AddBlock()
	orphan := fn.AddBlock()

	entry.SetFallThrough(reachable)
	fn.Block(reachable).SetFallThrough(fn.Exit())
	fn.Block(orphan).SetFallThrough(fn.Exit())

	changed := simplify.RemoveUnreachable(fn)
	if !changed {
		t.Fatal("expected RemoveUnreachable to report a change")
	}

	for _, b := range fn.Blocks() {
		if b.ID() == orphan {
			t.Fatal("orphan block should have been destroyed")
		}
	}
}

func TestRemoveUnreachableCompleteness(t *testing.T) {
	fn := ssair.NewFunction("f")
	entry := fn.Block(fn.Entry())
	reachable := fn.AddBlock()
	orphan := fn.AddBlock()

	entry.SetFallThrough(reachable)
	fn.Block(reachable).SetFallThrough(fn.Exit())
	fn.Block(orphan).SetFallThrough(fn.Exit())

	simplify.RemoveUnreachable(fn)

	seen := map[ssair.BlockID]bool{fn.Entry(): true}
	queue := []ssair.BlockID{fn.Entry()}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, succ := range fn.Block(cur).Successors() {
			if !seen[succ] {
				seen[succ] = true
				queue = append(queue, succ)
			}
		}
	}
	for _, b := range fn.Blocks() {
		if !seen[b.ID()] {
			t.Fatalf("block %d survives remove_unreachable but is not reachable from entry", b.Num)
		}
	}
}

func TestPropagateThroughCopiesRewritesUses(t *testing.T) {
	fn := ssair.NewFunction("f")
	entry := fn.Block(fn.Entry())

	a := fn.NewRegister("a")
	bReg := fn.NewRegister("b")
	cReg := fn.NewRegister("c")

	one := fn.NewConstRegister(fn.NewValue(1))
	entry.AddInsn(ssair.NewCopy(fn, one.ID(), a.ID()).ID())
	entry.AddInsn(ssair.NewCopy(fn, a.ID(), bReg.ID()).ID())
	entry.AddInsn(ssair.NewCopy(fn, bReg.ID(), cReg.ID()).ID())

	fr := ssair.NewFunResult(fn, 0, cReg.ID())
	fn.Block(fn.Exit()).AddInsn(fr.ID())

	for simplify.PropagateThroughCopies(fn) {
	}

	if fr.Args()[0] != a.ID() {
		t.Fatalf("expected the copy chain fully propagated to a, fun_result still reads %d", fr.Args()[0])
	}
}

func TestRemoveUselessCopiesDeletesDeadCopies(t *testing.T) {
	fn := ssair.NewFunction("f")
	entry := fn.Block(fn.Entry())

	a := fn.NewRegister("a")
	bReg := fn.NewRegister("b")
	cReg := fn.NewRegister("c")

	one := fn.NewConstRegister(fn.NewValue(1))
	entry.AddInsn(ssair.NewCopy(fn, one.ID(), a.ID()).ID())
	entry.AddInsn(ssair.NewCopy(fn, a.ID(), bReg.ID()).ID())
	entry.AddInsn(ssair.NewCopy(fn, bReg.ID(), cReg.ID()).ID())

	fr := ssair.NewFunResult(fn, 0, cReg.ID())
	fn.Block(fn.Exit()).AddInsn(fr.ID())

	for simplify.PropagateThroughCopies(fn) {
	}
	changed := simplify.RemoveUselessCopies(fn)
	if !changed {
		t.Fatal("expected dead copies to be removed")
	}

	for _, insnID := range entry.Insns() {
		if cp, ok := fn.Insn(insnID).(*ssair.Copy); ok {
			if cp.To() == bReg.ID() || cp.To() == cReg.ID() {
				t.Fatalf("copy into dead register %d should have been removed", cp.To())
			}
		}
	}
}

func TestCombineBlocksToleratesSelfLoop(t *testing.T) {
	// entry falls into a block that loops back to itself and never
	// reaches exit; the entry-has-successors assertion must not fire and
	// the loop must survive untouched.
	fn := ssair.NewFunction("selfloop")
	entry := fn.Block(fn.Entry())
	loop := fn.AddBlock()

	entry.SetFallThrough(loop)
	fn.Block(loop).AddInsn(ssair.NewNop(fn).ID())
	fn.Block(loop).SetFallThrough(loop)

	simplify.CombineBlocks(fn)

	if fn.Block(loop).FallThrough() != loop {
		t.Fatal("self-loop must survive combine_blocks")
	}
}

func TestRemoveUnreachableDestroysPredecessorlessExit(t *testing.T) {
	// Same self-loop shape: no path reaches exit, so exit has an empty
	// predecessor list and remove_unreachable destroys it; the loop stays
	// because it is reachable from entry.
	fn := ssair.NewFunction("selfloop")
	entry := fn.Block(fn.Entry())
	loop := fn.AddBlock()

	entry.SetFallThrough(loop)
	fn.Block(loop).AddInsn(ssair.NewNop(fn).ID())
	fn.Block(loop).SetFallThrough(loop)

	exit := fn.Exit()
	simplify.RemoveUnreachable(fn)

	if fn.Exit().Valid() {
		t.Fatal("a predecessor-less exit block must be destroyed")
	}
	for _, b := range fn.Blocks() {
		if b.ID() == exit {
			t.Fatal("destroyed exit block still present in the function")
		}
	}
	foundLoop := false
	for _, b := range fn.Blocks() {
		if b.ID() == loop {
			foundLoop = true
		}
	}
	if !foundLoop {
		t.Fatal("reachable self-loop must survive remove_unreachable")
	}
}

func TestCombineBlocksIdempotent(t *testing.T) {
	fn := ssair.NewFunction("f")
	entry := fn.Block(fn.Entry())
	mid := fn.AddBlock()

	entry.SetFallThrough(mid)
	fn.Block(mid).SetFallThrough(fn.Exit())

	simplify.CombineBlocks(fn)
	firstPass := len(fn.Blocks())
	changed := simplify.CombineBlocks(fn)
	if changed {
		t.Fatal("a second run of CombineBlocks should report no further change")
	}
	if len(fn.Blocks()) != firstPass {
		t.Fatal("a second run of CombineBlocks must not change the block count")
	}
}
