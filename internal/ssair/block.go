package ssair

// DomKind selects which of a block's two dominator-tree slots an operation
// addresses: Forward (predecessor-driven, rooted at the entry block) or
// Post (successor-driven, rooted at the exit block). A single enum keeps
// the dominator algorithms generic over both trees.
type DomKind int

const (
	Forward DomKind = iota
	Post
)

// domNode is one of a Block's two dominator-tree slots: the immediate
// dominator, the list of immediate dominatees, and the depth in that tree
// (root = 0).
type domNode struct {
	idom       BlockID
	dominatees []BlockID
	depth      int
}

// Block is a basic block: a maximal straight-line instruction sequence with
// a single entry and exit, owned by one Function.
type Block struct {
	id  BlockID
	fn  *Function
	Num int // unique within the owning function, assigned at creation

	insns       []InsnID
	fallThrough BlockID
	preds       []BlockID
	succs       []BlockID

	dom [2]domNode
}

func (b *Block) ID() BlockID        { return b.id }
func (b *Block) Function() *Function { return b.fn }
func (b *Block) IsEmpty() bool      { return len(b.insns) == 0 }

// Insns returns the instructions contained in this block, in order.
func (b *Block) Insns() []InsnID { return b.insns }

// FallThrough returns the block reached when control runs off the end of
// this block without an explicit branch, or zero if there is none.
func (b *Block) FallThrough() BlockID { return b.fallThrough }

// Predecessors returns this block's predecessor edges.
func (b *Block) Predecessors() []BlockID { return b.preds }

// Successors returns this block's successor edges: the fall-through, if
// any, union the explicit targets of its branch instructions.
func (b *Block) Successors() []BlockID { return b.succs }

// Dom returns the immediate dominator in the given tree, zero if this
// block is that tree's root or not yet analyzed.
func (b *Block) Dom(kind DomKind) BlockID { return b.dom[kind].idom }

// Dominatees returns the blocks immediately dominated by this one in the
// given tree.
func (b *Block) Dominatees(kind DomKind) []BlockID { return b.dom[kind].dominatees }

// Depth returns this block's depth in the given dominator tree (root = 0).
func (b *Block) Depth(kind DomKind) int { return b.dom[kind].depth }

func (b *Block) addSuccEdge(succ *Block) {
	b.succs = append(b.succs, succ.id)
	succ.preds = append(succ.preds, b.id)
}

// removeSuccEdge drops one b->succ edge: a single occurrence from each
// list, so a second edge to the same block (fall-through plus branch)
// survives.
func (b *Block) removeSuccEdge(succ *Block) {
	b.succs = removeFirstBlockID(b.succs, succ.id)
	succ.preds = removeFirstBlockID(succ.preds, b.id)
}

func removeFirstBlockID(list []BlockID, target BlockID) []BlockID {
	for i, x := range list {
		if x == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func removeBlockID(list []BlockID, target BlockID) []BlockID {
	out := list[:0]
	for _, x := range list {
		if x != target {
			out = append(out, x)
		}
	}
	return out
}

// AddSuccessor adds a control-flow edge reflecting that succ is now a
// successor of this block.
func (b *Block) AddSuccessor(succ BlockID) {
	b.addSuccEdge(b.fn.Block(succ))
	b.fn.invalidateBoth()
}

// RemoveSuccessor removes the control-flow edge to succ, if present.
// Every occurrence is dropped, so a block reached both by fall-through and
// by a branch loses both entries at once.
func (b *Block) RemoveSuccessor(succ BlockID) {
	s := b.fn.Block(succ)
	b.succs = removeBlockID(b.succs, succ)
	s.preds = removeBlockID(s.preds, b.id)
	b.fn.invalidateBoth()
}

// SetFallThrough swaps the fall-through edge, adjusting the successor and
// predecessor lists exactly once and invalidating both dominator trees on
// the owning function when the edge actually changes.
func (b *Block) SetFallThrough(to BlockID) {
	if to == b.fallThrough {
		return
	}
	if b.fallThrough.Valid() {
		b.removeSuccEdge(b.fn.Block(b.fallThrough))
	}
	if to.Valid() {
		b.addSuccEdge(b.fn.Block(to))
	}
	b.fallThrough = to
	b.fn.invalidateBoth()
}

// ChangeSuccessor replaces from with to in this block's successor edges:
// if the fall-through equals from, it is rerouted; otherwise the
// terminator (if any) is retargeted. to may be zero, meaning "undefined".
func (b *Block) ChangeSuccessor(from, to BlockID) {
	if b.fallThrough == from {
		b.SetFallThrough(to)
		return
	}
	// Not the fall-through edge, so it must be an explicit branch
	// target; retargeting the terminator (CondBranch.ChangeBranchTarget)
	// manages the edge lists itself.
	if last := b.lastInsn(); last != nil {
		last.ChangeBranchTarget(from, to)
	}
}

func (b *Block) lastInsn() Insn {
	if len(b.insns) == 0 {
		return nil
	}
	return b.fn.Insn(b.insns[len(b.insns)-1])
}

// Terminator returns this block's branch instruction, if its last
// instruction is one. A branch may only appear as a block's last
// instruction, so nothing else is searched.
func (b *Block) Terminator() Insn {
	last := b.lastInsn()
	if last != nil && last.IsBranch() {
		return last
	}
	return nil
}

// AddInsn appends insn to the end of this block, detaching it from any
// block it currently belongs to first.
func (b *Block) AddInsn(id InsnID) {
	b.fn.relocateInsn(id, b.id)
	b.insns = append(b.insns, id)
}

// PrependInsn inserts insn at the start of this block.
func (b *Block) PrependInsn(id InsnID) {
	b.fn.relocateInsn(id, b.id)
	b.insns = append([]InsnID{id}, b.insns...)
}

// AddInsnBeforeBranch inserts insn immediately before this block's
// terminator, or at the end if there is none.
func (b *Block) AddInsnBeforeBranch(id InsnID) {
	b.fn.relocateInsn(id, b.id)
	if term := b.Terminator(); term != nil {
		idx := len(b.insns) - 1
		b.insns = append(b.insns, 0)
		copy(b.insns[idx+1:], b.insns[idx:])
		b.insns[idx] = id
	} else {
		b.insns = append(b.insns, id)
	}
}

// RemoveInsn removes insn from this block's instruction list without
// destroying it.
func (b *Block) RemoveInsn(id InsnID) {
	out := b.insns[:0]
	for _, x := range b.insns {
		if x != id {
			out = append(out, x)
		}
	}
	b.insns = out
}
