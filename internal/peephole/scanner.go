package peephole

import (
	"github.com/obruchev/guardpeep/ir"
)

// scanBlock walks the block left to right keeping the most recent
// unconsumed retain per identity root, and fires the validator whenever a
// guaranteed-begin shows up with a matching retain still in scope. After an
// approved rewrite the scan rewinds to just before the deleted retain's
// slot so newly adjacent instructions get re-examined.
func (p *Pass) scanBlock(bb *ir.Block, postdomFor func() PostDom) bool {
	changed := false
	lastRetain := make(map[*ir.Value]ir.Instr)

	for i := 0; i < bb.Len(); {
		in := bb.At(i)
		i++
		if in == nil { // tombstone
			continue
		}

		if ret, ok := in.(*ir.Retain); ok {
			lastRetain[p.opts.Resolve.Root(ret.Operands()[0])] = ret
			continue
		}

		begin, ok := in.(*ir.Builtin)
		if !ok || begin.Kind != ir.GuaranteedBegin {
			// Any non-exempt effect invalidates every pending retain: the
			// window between a retain and its begin must stay free of
			// unknown effects.
			if !p.opts.Exempt(in) {
				clear(lastRetain)
			}
			continue
		}

		root := p.opts.Resolve.Root(begin.Operands()[0])
		retain, ok := lastRetain[root]
		if !ok {
			continue
		}
		if !p.contiguous(bb, retain, begin) {
			continue
		}

		if p.capReached() {
			return changed
		}
		m := p.validate(retain, begin, postdomFor)
		if m == nil {
			continue
		}

		i = p.rewrite(m)
		p.rewrites++
		changed = true

		// Keep the map across the rewind: retains recorded earlier in the
		// block are still live candidates. Only entries whose retain was
		// just deleted must go.
		for r, ret := range lastRetain {
			if ret.Parent() == nil {
				delete(lastRetain, r)
			}
		}
	}
	return changed
}

// contiguous requires every instruction between the retain and the begin to
// be exempt. An unknown effect in between means the retain may be serving
// that operation instead of the guaranteed scope, so the candidate is
// dropped.
func (p *Pass) contiguous(bb *ir.Block, retain ir.Instr, begin *ir.Builtin) bool {
	for i := retain.Pos() + 1; i < begin.Pos(); i++ {
		in := bb.At(i)
		if in == nil {
			continue
		}
		if !p.opts.Exempt(in) {
			return false
		}
	}
	return true
}
