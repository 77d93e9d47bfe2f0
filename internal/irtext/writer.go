package irtext

import (
	"fmt"
	"io"
	"strings"

	"ssaflow/internal/domtree"
	"ssaflow/internal/ssair"
)

// Writer emits a Program in the reader's textual format, depth-first with
// fall-through successors first and the exit block last. The entry block's
// label line is suppressed (nothing may branch to the entry, so the label
// is never referenced), and the exit block's is too when no goto or
// branch needs it. That keeps the emitted text inside the reader's own
// grammar — fun_arg lines stay ahead of the first label — so parsing the
// output reproduces the program.
type Writer struct{}

// NewWriter returns a Writer. Writers are stateless and safe to reuse.
func NewWriter() *Writer { return &Writer{} }

// WriteProgram writes every function in p to w, in the order they were
// added to the program.
func (*Writer) WriteProgram(w io.Writer, p *ssair.Program) error {
	for _, fn := range p.Functions() {
		if _, err := fmt.Fprintf(w, "fun %s\n", fn.Name); err != nil {
			return err
		}
		if err := writeFun(w, fn); err != nil {
			return err
		}
	}
	return nil
}

// blockOrder computes the emission order of fn's blocks: depth-first from
// the entry, preferring the fall-through successor, queueing the others,
// and appending the exit last regardless of where it was discovered.
func blockOrder(fn *ssair.Function) []ssair.BlockID {
	exit := fn.Exit()
	queued := map[ssair.BlockID]bool{}
	var order, queue []ssair.BlockID

	if fn.Entry().Valid() {
		queue = append(queue, fn.Entry())
		queued[fn.Entry()] = true
	}

	for len(queue) > 0 {
		block := queue[0]
		queue = queue[1:]

		blk := fn.Block(block)
		fallThrough := blk.FallThrough()

		// Prefer the fall-through block next.
		if fallThrough.Valid() && fallThrough != exit && !queued[fallThrough] {
			queue = append([]ssair.BlockID{fallThrough}, queue...)
			queued[fallThrough] = true
		}

		for _, succ := range blk.Successors() {
			if succ != exit && succ != fallThrough && !queued[succ] {
				queue = append(queue, succ)
				queued[succ] = true
			}
		}

		if block != exit && exit.Valid() && len(queue) == 0 {
			queue = append(queue, exit)
		}

		order = append(order, block)
	}

	return order
}

// exitLabelNeeded reports whether the emitted text will reference the exit
// block's label: a goto to a non-adjacent exit fall-through, or a branch
// targeting the exit directly.
func exitLabelNeeded(fn *ssair.Function, order []ssair.BlockID) bool {
	exit := fn.Exit()
	for i, id := range order {
		if id == exit {
			continue
		}
		blk := fn.Block(id)
		if cb, ok := blk.Terminator().(*ssair.CondBranch); ok && cb.Target == exit {
			return true
		}
		if blk.FallThrough() == exit && (i+1 >= len(order) || order[i+1] != exit) {
			return true
		}
	}
	return false
}

// writeFun writes one function's register declarations followed by its
// blocks in traversal order.
func writeFun(w io.Writer, fn *ssair.Function) error {
	if _, err := io.WriteString(w, "{\n"); err != nil {
		return err
	}

	for _, reg := range fn.Registers() {
		if reg.IsConstant() {
			continue
		}
		nuses, ndefs := len(reg.Uses()), len(reg.Defs())
		usesWord, defsWord := "uses", "defs"
		if nuses == 1 {
			usesWord = "use"
		}
		if ndefs == 1 {
			defsWord = "def"
		}
		padding := strings.Repeat(" ", paddingWidth(reg.Name))
		if _, err := fmt.Fprintf(w, "   reg %s%s# (%d %s, %d %s)\n",
			reg.Name, padding, nuses, usesWord, ndefs, defsWord); err != nil {
			return err
		}
	}

	order := blockOrder(fn)
	labelExit := exitLabelNeeded(fn, order)

	for i, id := range order {
		var next ssair.BlockID
		if i+1 < len(order) {
			next = order[i+1]
		}
		withLabel := id != fn.Entry() && (id != fn.Exit() || labelExit)
		if err := writeBlock(w, fn, id, next, withLabel); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "}\n")
	return err
}

func paddingWidth(name string) int {
	if len(name) > 18 {
		return 2
	}
	return 20 - len(name)
}

func blockLabel(fn *ssair.Function, id ssair.BlockID) string {
	return fmt.Sprintf("_%d", fn.Block(id).Num)
}

func blockListLabels(fn *ssair.Function, ids []ssair.BlockID) string {
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = blockLabel(fn, id)
	}
	return strings.Join(labels, ", ")
}

// writeBlock writes one block's label, annotations, and instructions.
// next is the block that will be written immediately afterward, if any —
// used to suppress a redundant goto between adjacent blocks.
func writeBlock(w io.Writer, fn *ssair.Function, id, next ssair.BlockID, withLabel bool) error {
	blk := fn.Block(id)

	if withLabel {
		if _, err := fmt.Fprintf(w, "%s:\n", blockLabel(fn, id)); err != nil {
			return err
		}
	}

	if id == fn.Entry() {
		if _, err := io.WriteString(w, "   # entry\n"); err != nil {
			return err
		}
	}
	if id == fn.Exit() {
		if _, err := io.WriteString(w, "   # exit\n"); err != nil {
			return err
		}
	}

	if preds := blk.Predecessors(); len(preds) > 0 {
		if _, err := fmt.Fprintf(w, "   # preds: %s\n", blockListLabels(fn, preds)); err != nil {
			return err
		}
	}

	if fn.DominatorsValid {
		if dom := blk.Dom(ssair.Forward); dom.Valid() {
			if _, err := fmt.Fprintf(w, "   # dominator: %s\n", blockLabel(fn, dom)); err != nil {
				return err
			}
			frontier := domtree.Frontier(fn, ssair.Forward, id)
			if _, err := fmt.Fprintf(w, "   # dominance frontier: %s\n", blockListLabels(fn, frontier)); err != nil {
				return err
			}
		}
	}

	for _, insnID := range blk.Insns() {
		if _, err := fmt.Fprintf(w, "   %s\n", fn.Insn(insnID).String()); err != nil {
			return err
		}
	}

	if ft := blk.FallThrough(); ft.Valid() && ft != next {
		if _, err := fmt.Fprintf(w, "   goto %s\n", blockLabel(fn, ft)); err != nil {
			return err
		}
	}

	if fn.PostDominatorsValid {
		if postDom := blk.Dom(ssair.Post); postDom.Valid() {
			if _, err := fmt.Fprintf(w, "   # post-dominator: %s\n", blockLabel(fn, postDom)); err != nil {
				return err
			}
		}
	}

	if succs := blk.Successors(); len(succs) > 0 {
		if _, err := fmt.Fprintf(w, "   # succs: %s\n", blockListLabels(fn, succs)); err != nil {
			return err
		}
	}

	return nil
}
