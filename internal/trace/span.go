package trace

import (
	"github.com/sirkon/rbtree"
)

// spanNode stores a [start,end] slot span for a rewrite and, if needed, a
// nested RB-tree for rewrites whose spans are fully contained in this one.
type spanNode struct {
	start int
	end   int

	rec      Record
	children *rbtree.Tree[*spanNode]
}

// Cmp defines ordering for the RB-tree as "disjoint by position".
// - return -1 if this span is strictly before other (ends before other's start)
// - return  1 if this span is strictly after  other (starts after other's end)
// - return  0 if spans overlap in any way (including containment).
//
// Rewrite windows recorded for one block either nest or stay disjoint: an
// outer pattern is only rewritten after any pattern inside its window is
// gone, so "equal" (0) always means superspan/subspan here. The RB-tree's
// InsertReturn hands back the overlapping node so the containment fix-up
// can be done in place.
func (n *spanNode) Cmp(other *spanNode) int {
	if n.end < other.start { // strictly before
		return -1
	}
	if n.start > other.end { // strictly after
		return 1
	}
	return 0 // overlapping (containment or equal boundaries)
}

func contains(a, b *spanNode) bool {
	return a.start <= b.start && a.end >= b.end
}

// attachInto inserts span s into RB-tree t, using the following containment rules:
//   - If t has no overlapping node, s is inserted as a sibling in t.
//   - If an overlapping node r exists and s contains r, mutate r in-place to
//     become s, then re-attach the old r as a child of the new s. This avoids
//     needing a "Replace" operation.
//   - If r contains s, recursively attach s into r.children.
func attachInto(t *rbtree.Tree[*spanNode], s *spanNode) {
	r := t.InsertReturn(s)
	if r == s {
		// Disjoint: brand new top-level entry.
		return
	}

	// Overlap found. Decide by containment.
	if contains(s, r) {
		// s is the superspan, overwrite r in-place.
		old := *r
		*r = *s

		if r.children == nil {
			r.children = rbtree.New[*spanNode]()
		}
		attachInto(r.children, &old)
		return
	}

	if contains(r, s) {
		// The new span is a subspan of the existing node r, descend.
		if r.children == nil {
			r.children = rbtree.New[*spanNode]()
		}

		n := *s
		*s = *r

		attachInto(s.children, &n)
		return
	}

	// Partial overlap violates the nest-or-disjoint invariant of rewrite
	// windows; keeping it a panic catches data issues during development.
	panic("attachInto: partial-overlap spans are not supported")
}

func descendSearch(n *spanNode, pos int) *Record {
	if n == nil {
		return nil
	}
	if n.children == nil {
		return &n.rec
	}
	probe := &spanNode{start: pos, end: pos}
	child := n.children.Search(probe)
	if child == nil {
		return &n.rec
	}
	if v := descendSearch(child, pos); v != nil {
		return v
	}
	return &n.rec
}
