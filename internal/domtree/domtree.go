// Package domtree computes and queries forward and post-dominator trees
// over an ssair.Function's flow graph.
//
// The iterative fixpoint (Compute) and dominance-frontier walk (Frontier)
// live here; the per-node bookkeeping they call into (SetDominator,
// CommonDominator, Dominates) lives in ssair itself, since it is tied to
// Block's own storage. Splitting the packages this way avoids domtree and
// ssair importing each other, and a single Compute body parameterized by
// ssair.DomKind serves both trees.
package domtree

import "ssaflow/internal/ssair"

// neighbors returns the blocks Compute treats as b's predecessors for the
// purpose of this dominator tree: true predecessors for Forward, true
// successors for Post.
func neighbors(kind ssair.DomKind, b *ssair.Block) []ssair.BlockID {
	if kind == ssair.Forward {
		return b.Predecessors()
	}
	return b.Successors()
}

// frontierNeighbors returns the edges extend_dominance_frontier walks when
// looking for escapees: the dual of neighbors — a forward tree's frontier
// looks at true successors, a post tree's frontier looks at true
// predecessors.
func frontierNeighbors(kind ssair.DomKind, b *ssair.Block) []ssair.BlockID {
	if kind == ssair.Forward {
		return b.Successors()
	}
	return b.Predecessors()
}

func root(kind ssair.DomKind, fn *ssair.Function) ssair.BlockID {
	if kind == ssair.Forward {
		return fn.Entry()
	}
	return fn.Exit()
}

// Compute runs an iterative data-flow fixpoint over every block in fn,
// populating the given dominator tree. It does not consult or set fn's
// validity flags; callers needing the lazy-recompute contract should use
// Update/UpdatePost.
func Compute(fn *ssair.Function, kind ssair.DomKind) {
	blocks := fn.Blocks()
	rootID := root(kind, fn)

	for _, b := range blocks {
		fn.SetDominator(kind, b.ID(), 0)
	}

	change := true
	for change {
		change = false
		for _, b := range blocks {
			if b.ID() == rootID {
				continue
			}

			oldDom := b.Dom(kind)
			var newDom ssair.BlockID

			for _, pred := range neighbors(kind, b) {
				// Skip any predecessor that is currently a descendant of
				// b in the partially-built tree — this is how back-edges
				// are ignored during the fixpoint.
				if fn.Dominates(kind, b.ID(), pred, false) {
					continue
				}
				if !newDom.Valid() {
					newDom = pred
				} else {
					newDom = fn.CommonDominator(kind, newDom, pred)
				}
			}

			if newDom != oldDom {
				fn.SetDominator(kind, b.ID(), newDom)
				change = true
			}
		}
	}
}

// Update recomputes the forward dominator tree only if fn.DominatorsValid
// is false, then marks it valid. This is the sole coherence contract
// between graph mutation and analysis: callers must not read dominator
// state without calling Update first.
func Update(fn *ssair.Function) {
	if !fn.DominatorsValid {
		Compute(fn, ssair.Forward)
		fn.DominatorsValid = true
	}
}

// UpdatePost is Update's post-dominator counterpart.
func UpdatePost(fn *ssair.Function) {
	if !fn.PostDominatorsValid {
		Compute(fn, ssair.Post)
		fn.PostDominatorsValid = true
	}
}

// Dominates reports whether a dominates b in the given tree. strict=false
// makes a block dominate itself.
func Dominates(fn *ssair.Function, kind ssair.DomKind, a, b ssair.BlockID, strict bool) bool {
	return fn.Dominates(kind, a, b, strict)
}

// Frontier computes the dominance frontier of b in the given tree: blocks X
// such that b dominates a predecessor of X but does not strictly dominate X
// itself. Implemented as a DFS of b's dominator subtree: for every
// descendant D (including b), every neighbor of D not strictly dominated
// by b is added to the frontier, each block appearing once.
func Frontier(fn *ssair.Function, kind ssair.DomKind, b ssair.BlockID) []ssair.BlockID {
	var frontier []ssair.BlockID
	seen := make(map[ssair.BlockID]bool)

	var walk func(node ssair.BlockID)
	walk = func(node ssair.BlockID) {
		for _, neigh := range frontierNeighbors(kind, fn.Block(node)) {
			if !fn.Dominates(kind, b, neigh, true) && !seen[neigh] {
				seen[neigh] = true
				frontier = append(frontier, neigh)
			}
		}
		for _, child := range fn.Block(node).Dominatees(kind) {
			walk(child)
		}
	}
	walk(b)

	return frontier
}
