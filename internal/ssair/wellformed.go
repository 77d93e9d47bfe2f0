package ssair

import "ssaflow/internal/srcctx"

// CheckWellFormed re-checks the structural invariants a pass could
// plausibly break without the mutation API catching it immediately:
// branch placement, phi prologue/epilogue placement, fun_arg/fun_result
// confinement to the entry/exit blocks, and the "no instruction follows a
// fun_result" rule. The driver calls this after every pass so a violation
// aborts loudly instead of silently miscompiling downstream passes.
func (fn *Function) CheckWellFormed() {
	if fn.entry.Valid() {
		srcctx.Assert(len(fn.Block(fn.entry).preds) == 0, "entry block has predecessors")
	}
	if fn.exit.Valid() {
		srcctx.Assert(len(fn.Block(fn.exit).succs) == 0, "exit block has successors")
	}

	for _, b := range fn.Blocks() {
		seenBranch := false
		seenNonPhi := false
		seenPhiInp := false
		seenFunResult := false

		for idx, insnID := range b.insns {
			insn := fn.Insn(insnID)

			srcctx.Assert(!seenBranch, "instruction follows branch in block %d", b.Num)
			if _, isFunResult := insn.(*FunResult); !isFunResult {
				srcctx.Assert(!seenFunResult, "instruction follows fun_result in block %d", b.Num)
			}

			switch insn.(type) {
			case *PhiFun:
				srcctx.Assert(!seenNonPhi, "phi-function not at block prologue in block %d", b.Num)
			case *PhiFunInp:
				seenNonPhi = true
				seenPhiInp = true
			case *FunArg:
				srcctx.Assert(b.id == fn.entry, "fun_arg outside entry block")
				srcctx.Assert(idx == 0 || isFunArg(fn.Insn(b.insns[idx-1])), "fun_arg not at block prologue")
				seenNonPhi = true
			case *FunResult:
				srcctx.Assert(b.id == fn.exit, "fun_result outside exit block")
				seenNonPhi = true
				seenFunResult = true
			default:
				srcctx.Assert(!seenPhiInp || insn.IsBranch(), "phi input not at block epilogue in block %d", b.Num)
				seenNonPhi = true
			}

			if insn.IsBranch() {
				seenBranch = true
			}
		}
	}
}

func isFunArg(insn Insn) bool {
	_, ok := insn.(*FunArg)
	return ok
}
