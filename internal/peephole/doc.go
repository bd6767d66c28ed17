// Package peephole removes retain/release pairs that a paired
// guaranteed-begin/guaranteed-end scope proves redundant.
//
// The pattern looks like this before the rewrite:
//
//	retain %x
//	%p = builtin guaranteed.begin(%x)
//	%v = extract %p, 0
//	%t = extract %p, 1
//	%r = apply beep(%v)
//	release %v
//	builtin guaranteed.end(%t)
//
// The begin/end pair asserts that another reference keeps %x alive for the
// enclosed window, so the extra retain/release around it is bookkeeping
// with no effect. Once the soundness conditions hold, the whole scaffolding
// collapses to:
//
//	%r = apply beep(%x)
//
// Every unmet condition is a silent "no match": the pass never raises
// diagnostics, it either rewrites or leaves the function alone.
package peephole
