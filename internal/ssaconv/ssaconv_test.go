package ssaconv_test

import (
	"testing"

	"ssaflow/internal/domtree"
	"ssaflow/internal/ssaconv"
	"ssaflow/internal/ssair"
)

// buildDiamond builds a diamond: entry branches on c to a (falling
// through to b otherwise); a writes r:=1, b writes r:=2, both fall to j;
// j falls to exit, whose fun_result reads r.
func buildDiamond(t *testing.T) (fn *ssair.Function, a, b, j ssair.BlockID, proto ssair.RegID) {
	t.Helper()
	fn = ssair.NewFunction("diamond")
	entry := fn.Block(fn.Entry())
	a = fn.AddBlock()
	b = fn.AddBlock()
	j = fn.AddBlock()

	c := fn.NewRegister("c")
	r := fn.NewRegister("r")

	cb := ssair.NewCondBranch(fn, c.ID(), a)
	entry.AddInsn(cb.ID())
	entry.SetFallThrough(b)

	one := fn.NewConstRegister(fn.NewValue(1))
	two := fn.NewConstRegister(fn.NewValue(2))

	fn.Block(a).AddInsn(ssair.NewCopy(fn, one.ID(), r.ID()).ID())
	fn.Block(a).SetFallThrough(j)

	fn.Block(b).AddInsn(ssair.NewCopy(fn, two.ID(), r.ID()).ID())
	fn.Block(b).SetFallThrough(j)

	fn.Block(j).SetFallThrough(fn.Exit())

	fr := ssair.NewFunResult(fn, 0, r.ID())
	fn.Block(fn.Exit()).AddInsn(fr.ID())

	return fn, a, b, j, r.ID()
}

func TestConvertToSSAInsertsPhiAtJoin(t *testing.T) {
	fn, _, _, j, proto := buildDiamond(t)
	domtree.Update(fn)
	domtree.UpdatePost(fn)

	ssaconv.ConvertToSSA(fn)
	fn.CheckWellFormed()

	jBlock := fn.Block(j)
	if len(jBlock.Insns()) == 0 {
		t.Fatal("expected a phi-function at the join block")
	}
	phi, ok := fn.Insn(jBlock.Insns()[0]).(*ssair.PhiFun)
	if !ok {
		t.Fatalf("expected first instruction in join block to be a PhiFun, got %T", fn.Insn(jBlock.Insns()[0]))
	}
	if len(phi.Inputs()) != 2 {
		t.Fatalf("expected 2 phi inputs (one per predecessor), got %d", len(phi.Inputs()))
	}

	if defs := fn.Register(proto).Defs(); len(defs) != 0 {
		t.Fatalf("proto register must have no direct defs once renamed away from, got %d", len(defs))
	}
}

func TestConvertToSSARewritesDownstreamUse(t *testing.T) {
	fn, _, _, j, proto := buildDiamond(t)
	domtree.Update(fn)
	domtree.UpdatePost(fn)

	ssaconv.ConvertToSSA(fn)

	phi := fn.Insn(fn.Block(j).Insns()[0]).(*ssair.PhiFun)
	ssaResult := phi.Result()
	if ssaResult == proto {
		t.Fatal("phi's result must be a fresh SSA value, not the proto register")
	}

	exitInsns := fn.Block(fn.Exit()).Insns()
	fr := fn.Insn(exitInsns[len(exitInsns)-1]).(*ssair.FunResult)
	if fr.Args()[0] != ssaResult {
		t.Fatalf("fun_result must read the phi's SSA result %d, got %d", ssaResult, fr.Args()[0])
	}
}

func TestConvertFromSSARemovesAllPhis(t *testing.T) {
	fn, a, b, j, _ := buildDiamond(t)
	domtree.Update(fn)
	domtree.UpdatePost(fn)
	ssaconv.ConvertToSSA(fn)
	phiResult := fn.Insn(fn.Block(j).Insns()[0]).(*ssair.PhiFun).Result()

	ssaconv.ConvertFromSSA(fn)
	fn.CheckWellFormed()

	for _, blk := range fn.Blocks() {
		for _, insnID := range blk.Insns() {
			switch fn.Insn(insnID).(type) {
			case *ssair.PhiFun, *ssair.PhiFunInp:
				t.Fatalf("block %d still has a phi-related instruction after ConvertFromSSA", blk.Num)
			}
		}
	}

	// Each arm must now carry a Copy into the phi's old result register.
	for _, armID := range []ssair.BlockID{a, b} {
		arm := fn.Block(armID)
		sawCopy := false
		for _, insnID := range arm.Insns() {
			if cp, ok := fn.Insn(insnID).(*ssair.Copy); ok && cp.To() == phiResult {
				sawCopy = true
			}
		}
		if !sawCopy {
			t.Fatalf("expected arm block %d to contain a copy after SSA destruction", arm.Num)
		}
	}
}

func TestConvertFromSSASplitsCriticalEdge(t *testing.T) {
	// Source S has two successors T1, T2; T1 has a phi fed by S. This is
	// a critical edge and must be split.
	fn := ssair.NewFunction("crit")
	entry := fn.Block(fn.Entry())
	t1 := fn.AddBlock()
	t2 := fn.AddBlock()

	a := fn.NewRegister("a")
	x := fn.NewRegister("x")

	c := fn.NewRegister("c")
	cb := ssair.NewCondBranch(fn, c.ID(), t1)
	entry.AddInsn(cb.ID())
	entry.SetFallThrough(t2)

	phi := ssair.NewPhiFun(fn, x.ID())
	fn.Block(t1).AddInsn(phi.ID())
	inp := ssair.NewPhiFunInp(fn, phi.ID(), a.ID())
	entry.AddInsnBeforeBranch(inp.ID())

	fn.Block(t1).SetFallThrough(fn.Exit())
	fn.Block(t2).SetFallThrough(fn.Exit())

	beforeBlocks := len(fn.Blocks())

	ssaconv.ConvertFromSSA(fn)
	fn.CheckWellFormed()

	if len(fn.Blocks()) <= beforeBlocks {
		t.Fatal("expected a new block interposed to split the critical edge")
	}

	for _, succID := range entry.Successors() {
		if succID == t1 {
			t.Fatal("the S->T1 edge must be rerouted through the split block, not direct anymore")
		}
	}
}
