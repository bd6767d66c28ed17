// Package trace records approved rewrites and indexes them by instruction
// position, so a later query can tell which rewrite covered a given slot of
// a block. It is an observability aid; the optimizer behaves the same with
// tracing off.
package trace

import (
	"sync"

	"github.com/sirkon/rbtree"
)

// Record describes one approved rewrite: the function and block it fired
// in, the [Start,End] slot span of the removed window, and how many
// instructions were deleted.
type Record struct {
	Fn      string
	Block   string
	Start   int
	End     int
	Removed int
}

// Collector accumulates rewrite records. It is safe for use from multiple
// pass invocations running on different functions.
type Collector struct {
	mu    sync.Mutex
	recs  []Record
	trees map[string]*rbtree.Tree[*spanNode]
}

// New is the [Collector] constructor.
func New() *Collector {
	return &Collector{trees: map[string]*rbtree.Tree[*spanNode]{}}
}

// Rewrite records one approved rewrite.
func (c *Collector) Rewrite(fn, block string, start, end, removed int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := Record{Fn: fn, Block: block, Start: start, End: end, Removed: removed}
	c.recs = append(c.recs, rec)

	key := fn + "." + block
	t, ok := c.trees[key]
	if !ok {
		t = rbtree.New[*spanNode]()
		c.trees[key] = t
	}
	attachInto(t, &spanNode{start: start, end: end, rec: rec})
}

// Records returns a copy of everything recorded so far, in firing order.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Record, len(c.recs))
	copy(out, c.recs)
	return out
}

// Covering returns the innermost recorded rewrite whose span contains slot
// pos of the given block, or nil when no rewrite touched it.
func (c *Collector) Covering(fn, block string, pos int) *Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.trees[fn+"."+block]
	if !ok {
		return nil
	}
	probe := &spanNode{start: pos, end: pos}
	n := t.Search(probe)
	if n == nil {
		return nil
	}
	return descendSearch(n, pos)
}
