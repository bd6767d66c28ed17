package peephole

import (
	"github.com/obruchev/guardpeep/ir"
)

// rewrite deletes the approved pattern in one step relative to the scan:
// queued inner pairs first, then the outer retain/release, the end marker,
// every debug-only use of the projections, and finally the projections and
// the begin itself with all remaining uses rewired to the original operand.
// It returns the slot the scan resumes from, just before the deleted
// retain's original position.
func (p *Pass) rewrite(m *match) int {
	bb := m.retain.Parent()
	fnName := bb.Func().Name()
	blockName := bb.Name()
	retainPos := m.retain.Pos()
	hi := m.begin.Pos()
	removed := 0

	remove := func(in ir.Instr) {
		blk := in.Parent()
		if blk == nil {
			return
		}
		if blk == bb && in.Pos() > hi {
			hi = in.Pos()
		}
		blk.Remove(in)
		removed++
	}

	for _, in := range p.innerPairs(m) {
		remove(in)
	}

	remove(m.retain)
	remove(m.release)
	remove(m.end)

	pair := m.begin.Results()[0]
	guardedValue := m.value.Results()[0]
	tokenValue := m.token.Results()[0]
	removeDebugUses(guardedValue, remove)
	removeDebugUses(tokenValue, remove)
	removeDebugUses(pair, remove)

	ir.ReplaceAllUses(guardedValue, m.operand)
	remove(m.value)
	remove(m.token)
	ir.ReplaceAllUses(pair, m.operand)
	remove(m.begin)

	if p.opts.Tracer != nil {
		p.opts.Tracer.Rewrite(fnName, blockName, retainPos, hi, removed)
	}

	if retainPos <= 0 {
		return 0
	}
	return retainPos - 1
}

// removeDebugUses deletes every debug annotation reading v.
func removeDebugUses(v *ir.Value, remove func(ir.Instr)) {
	uses := append([]ir.Use(nil), v.Uses()...)
	for _, use := range uses {
		if dbg, ok := use.User.(*ir.DebugValue); ok {
			remove(dbg)
		}
	}
}
