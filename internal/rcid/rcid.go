// Package rcid resolves values to their reference-count identity roots:
// two differently named references to the same underlying object resolve to
// the same root value and can thereby be compared for retain/release
// matching.
package rcid

import (
	"github.com/obruchev/guardpeep/ir"
)

// Info resolves identity roots for a single function. Results are memoized
// and dropped whenever the function's mutation generation moves, so the
// same Info stays safe to use across rewrites within one pass invocation.
type Info struct {
	fn   *ir.Func
	gen  int
	memo map[*ir.Value]*ir.Value
}

// For creates a resolver bound to fn.
func For(fn *ir.Func) *Info {
	return &Info{
		fn:   fn,
		gen:  fn.Generation(),
		memo: map[*ir.Value]*ir.Value{},
	}
}

// Root returns the canonical representative for all aliases of the
// reference-counted object v refers to. Pair projections and forwarding
// instructions are looked through; builtins are not: the guarded alias a
// guaranteed-begin produces stays rooted at the begin's result, which is
// what lets the peephole tell "alias of the guarded value" apart from the
// original operand.
func (inf *Info) Root(v *ir.Value) *ir.Value {
	if g := inf.fn.Generation(); g != inf.gen {
		inf.gen = g
		clear(inf.memo)
	}
	return inf.root(v)
}

func (inf *Info) root(v *ir.Value) *ir.Value {
	if r, ok := inf.memo[v]; ok {
		return r
	}
	r := v
	switch def := v.Def().(type) {
	case *ir.Extract:
		r = inf.root(def.Operands()[0])
	case *ir.Generic:
		if def.Forwards {
			r = inf.root(def.Operands()[0])
		}
	}
	inf.memo[v] = r
	return r
}
