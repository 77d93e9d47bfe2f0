package domtree_test

import (
	"testing"

	"ssaflow/internal/domtree"
	"ssaflow/internal/ssair"
)

// buildDiamond constructs entry -> {a,b} -> j -> exit, entry branching
// on c.
func buildDiamond() (fn *ssair.Function, a, b, j ssair.BlockID) {
	fn = ssair.NewFunction("diamond")
	entry := fn.Block(fn.Entry())
	a = fn.AddBlock()
	b = fn.AddBlock()
	j = fn.AddBlock()

	c := fn.NewRegister("c")
	cb := ssair.NewCondBranch(fn, c.ID(), a)
	entry.AddInsn(cb.ID())
	entry.SetFallThrough(b)

	fn.Block(a).SetFallThrough(j)
	fn.Block(b).SetFallThrough(j)
	fn.Block(j).SetFallThrough(fn.Exit())

	return fn, a, b, j
}

func TestComputeDiamondDominators(t *testing.T) {
	fn, a, b, j := buildDiamond()
	domtree.Update(fn)

	if got := fn.Block(a).Dom(ssair.Forward); got != fn.Entry() {
		t.Fatalf("dom(a) = %d, want entry %d", got, fn.Entry())
	}
	if got := fn.Block(b).Dom(ssair.Forward); got != fn.Entry() {
		t.Fatalf("dom(b) = %d, want entry %d", got, fn.Entry())
	}
	if got := fn.Block(j).Dom(ssair.Forward); got != fn.Entry() {
		t.Fatalf("dom(j) = %d, want entry %d (join point is not dominated by either branch)", got, fn.Entry())
	}
}

func TestUpdateIsIdempotentOnValidFlag(t *testing.T) {
	fn, _, _, j := buildDiamond()
	domtree.Update(fn)
	domBefore := fn.Block(j).Dom(ssair.Forward)

	// Mutate the dominator field directly to prove a second Update, with
	// the flag still true, does not recompute.
	fn.SetDominator(ssair.Forward, j, 0)
	domtree.Update(fn)

	if fn.Block(j).Dom(ssair.Forward) != 0 {
		t.Fatal("Update recomputed despite DominatorsValid being true")
	}
	_ = domBefore
}

func TestDominanceFrontierOfBranchArms(t *testing.T) {
	fn, a, b, j := buildDiamond()
	domtree.Update(fn)

	for _, arm := range []ssair.BlockID{a, b} {
		frontier := domtree.Frontier(fn, ssair.Forward, arm)
		if len(frontier) != 1 || frontier[0] != j {
			t.Fatalf("frontier(%d) = %v, want [%d] (each arm dominates a predecessor of the join but not the join)", arm, frontier, j)
		}
	}
}

func TestDominatorDeterminismOnIsomorphicGraphs(t *testing.T) {
	fn1, a1, b1, j1 := buildDiamond()
	fn2, a2, b2, j2 := buildDiamond()

	domtree.Update(fn1)
	domtree.Update(fn2)

	check := func(id1, id2 ssair.BlockID) {
		d1 := fn1.Block(id1).Dom(ssair.Forward)
		d2 := fn2.Block(id2).Dom(ssair.Forward)
		want := d1 == fn1.Entry()
		got := d2 == fn2.Entry()
		if want != got {
			t.Fatalf("isomorphic graphs disagree on whether %d/%d is entry-dominated", id1, id2)
		}
	}
	check(a1, a2)
	check(b1, b2)
	check(j1, j2)
}

func TestSelfLoopIsDominatedByEntry(t *testing.T) {
	fn := ssair.NewFunction("selfloop")
	entry := fn.Block(fn.Entry())
	loop := fn.AddBlock()

	entry.SetFallThrough(loop)
	ssair.NewNop(fn)
	fn.Block(loop).SetFallThrough(loop)

	domtree.Update(fn)
	domtree.UpdatePost(fn)

	if got := fn.Block(loop).Dom(ssair.Forward); got != fn.Entry() {
		t.Fatalf("dom(loop) = %d, want entry %d", got, fn.Entry())
	}
}
