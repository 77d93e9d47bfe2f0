package ssair

// This file holds the per-node dominator-tree primitives that are tied to
// Block storage: re-parenting, depth maintenance, common-ancestor and
// ancestry queries. The iterative fixpoint that drives them lives one
// layer up, in internal/domtree, to avoid domtree and ssair importing
// each other.

// SetDominator re-parents b to dom in the given tree, removing it from its
// old parent's dominatee list first and updating subtree depths. dom may
// be zero, meaning "no dominator" (the tree root).
func (fn *Function) SetDominator(kind DomKind, b, dom BlockID) {
	blk := fn.Block(b)
	node := &blk.dom[kind]

	if node.idom.Valid() {
		oldDom := fn.Block(node.idom)
		oldDom.dom[kind].dominatees = removeBlockID(oldDom.dom[kind].dominatees, b)
		node.idom = 0
	}

	if dom.Valid() {
		domBlk := fn.Block(dom)
		// Prepend, not append. The rename walk in internal/ssaconv
		// depends on this: a join block's dominator only stabilizes
		// once its predecessors' do, so it tends to be (re-)parented
		// on a later fixpoint iteration than its predecessors and so
		// ends up visited *before* them when the dominatee list is
		// walked front-to-back, which is exactly the order SSA
		// renaming needs (a phi's home block is renamed before a
		// predecessor tries to read its proto's current value).
		domBlk.dom[kind].dominatees = append([]BlockID{b}, domBlk.dom[kind].dominatees...)
		node.idom = dom
		fn.updateDominatorDepths(kind, b, domBlk.dom[kind].depth+1)
	} else if node.depth != 0 {
		fn.updateDominatorDepths(kind, b, 0)
	}
}

// updateDominatorDepths sets b's depth in the given tree and recurses into
// its dominatees.
func (fn *Function) updateDominatorDepths(kind DomKind, b BlockID, depth int) {
	blk := fn.Block(b)
	blk.dom[kind].depth = depth
	for _, child := range blk.dom[kind].dominatees {
		fn.updateDominatorDepths(kind, child, depth+1)
	}
}

// CommonDominator returns the nearest common ancestor of a and b in the
// given tree, or zero if none: both are walked upward in lockstep once
// their depths are equalized.
func (fn *Function) CommonDominator(kind DomKind, a, b BlockID) BlockID {
	if !b.Valid() {
		return 0
	}
	x, y := a, b
	for x.Valid() && fn.Block(x).dom[kind].depth > fn.Block(y).dom[kind].depth {
		x = fn.Block(x).dom[kind].idom
	}
	for y.Valid() && fn.Block(y).dom[kind].depth > fn.Block(x).dom[kind].depth {
		y = fn.Block(y).dom[kind].idom
	}
	for x.Valid() && x != y {
		x = fn.Block(x).dom[kind].idom
		y = fn.Block(y).dom[kind].idom
	}
	return x
}

// Dominates reports whether a is an ancestor of b in the given dominator
// tree — i.e., a dominates b. If strict is false, a block dominates
// itself.
func (fn *Function) Dominates(kind DomKind, a, b BlockID, strict bool) bool {
	if strict && a == b {
		return false
	}
	depthA := fn.Block(a).dom[kind].depth
	cur := b
	for cur.Valid() && fn.Block(cur).dom[kind].depth > depthA {
		cur = fn.Block(cur).dom[kind].idom
	}
	return cur == a
}

// Dominates reports whether this block strictly dominates other in the
// given tree (used by Insn.Dominates for cross-block queries).
func (b *Block) Dominates(other BlockID, kind DomKind) bool {
	return b.fn.Dominates(kind, b.id, other, true)
}
