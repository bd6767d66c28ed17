// Package postdom computes post-dominance information for a function:
// instruction B post-dominates instruction A when every control-flow path
// leaving A passes through B before the function can return.
//
// The computation is the classic iterative dominator dataflow run on the
// reversed control-flow graph, rooted at a virtual exit node joined to
// every returning block.
package postdom

import (
	"golang.org/x/tools/container/intsets"

	"github.com/obruchev/guardpeep/ir"
)

const none = -1

// Info answers post-dominance queries for one function. Removing
// instructions does not change the block graph, so a pass may keep using
// the same Info across rewrites within a single invocation.
type Info struct {
	fn    *ir.Func
	exit  int
	ipdom []int // immediate post-dominator per block index; none = unreachable from exit
}

// Compute builds post-dominance information for fn.
func Compute(fn *ir.Func) *Info {
	blocks := fn.Blocks()
	n := len(blocks)
	exit := n

	// Successors in the reversed graph are CFG predecessors; the virtual
	// exit points back at every returning block.
	rsucc := make([][]int, n+1)
	for _, b := range blocks {
		succs := b.Succs()
		for _, s := range succs {
			rsucc[s.Index()] = append(rsucc[s.Index()], b.Index())
		}
		if len(succs) == 0 {
			rsucc[exit] = append(rsucc[exit], b.Index())
		}
	}

	// Predecessors in the reversed graph are CFG successors, plus the exit
	// edge for returning blocks.
	rpred := make([][]int, n+1)
	for _, b := range blocks {
		v := b.Index()
		succs := b.Succs()
		for _, s := range succs {
			rpred[v] = append(rpred[v], s.Index())
		}
		if len(succs) == 0 {
			rpred[v] = append(rpred[v], exit)
		}
	}

	// DFS postorder over the reversed graph from the virtual exit. Blocks
	// of infinite loops never show up and stay non-post-dominated.
	var seen intsets.Sparse
	type frame struct {
		node int
		next int
	}
	order := make([]int, 0, n+1)
	stack := make([]frame, 0, 32)
	stack = append(stack, frame{node: exit})
	seen.Insert(exit)
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(rsucc[top.node]) {
			s := rsucc[top.node][top.next]
			top.next++
			if seen.Insert(s) {
				stack = append(stack, frame{node: s})
			}
			continue
		}
		order = append(order, top.node)
		stack = stack[:len(stack)-1]
	}

	ponum := make([]int, n+1)
	for i := range ponum {
		ponum[i] = none
	}
	for i, v := range order {
		ponum[v] = i
	}

	ipdom := make([]int, n+1)
	for i := range ipdom {
		ipdom[i] = none
	}
	ipdom[exit] = exit

	for changed := true; changed; {
		changed = false
		// Reverse postorder; order ends with the exit, skip it.
		for i := len(order) - 2; i >= 0; i-- {
			v := order[i]
			nv := none
			for _, p := range rpred[v] {
				if ipdom[p] == none {
					continue
				}
				if nv == none {
					nv = p
					continue
				}
				nv = intersect(nv, p, ponum, ipdom)
			}
			if nv != ipdom[v] {
				ipdom[v] = nv
				changed = true
			}
		}
	}

	return &Info{fn: fn, exit: exit, ipdom: ipdom}
}

// intersect walks the immediate-post-dominator chains of b and c up to
// their closest common post-dominator, guided by postorder numbers.
func intersect(b, c int, ponum, ipdom []int) int {
	for b != c {
		for ponum[b] < ponum[c] {
			b = ipdom[b]
		}
		for ponum[c] < ponum[b] {
			c = ipdom[c]
		}
	}
	return b
}

// ProperlyPostDominates reports whether later lies on every path leaving
// earlier before the function can return. Within a single block that is
// plain position order; across blocks it is a walk up the
// immediate-post-dominator chain.
func (inf *Info) ProperlyPostDominates(later, earlier ir.Instr) bool {
	lb, eb := later.Parent(), earlier.Parent()
	if lb == nil || eb == nil {
		return false
	}
	if lb == eb {
		return later.Pos() > earlier.Pos()
	}
	return inf.postDominatesBlock(lb.Index(), eb.Index())
}

func (inf *Info) postDominatesBlock(a, b int) bool {
	v := inf.ipdom[b]
	for v != none && v != inf.exit {
		if v == a {
			return true
		}
		v = inf.ipdom[v]
	}
	return false
}
