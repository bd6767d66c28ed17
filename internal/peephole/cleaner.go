package peephole

import (
	"github.com/obruchev/guardpeep/ir"
)

// innerPairs finds retain/release pairs of the outer pattern's root sitting
// fully inside the window between the begin and whichever of the release or
// the end comes first. It only fires when all four anchors share one block;
// cross-block windows are skipped, not an error.
//
// While scanning, the most recent same-root retain is the pending
// candidate. Effect-free instructions, debug annotations and plain calls
// are transparent; any other side effect between a candidate and a release
// forbids pairing across it and resets the candidate.
func (p *Pass) innerPairs(m *match) []ir.Instr {
	if !p.opts.CleanNested {
		return nil
	}
	bb := m.begin.Parent()
	if m.end.Parent() != bb || m.retain.Parent() != bb || m.release.Parent() != bb {
		return nil
	}

	guarded := m.begin.Results()[0]
	outerRoot := p.opts.Resolve.Root(m.operand)
	sameRoot := func(v *ir.Value) bool {
		r := p.opts.Resolve.Root(v)
		return r == guarded || r == outerRoot
	}

	var candidate ir.Instr
	var doomed []ir.Instr
	for i := m.begin.Pos() + 1; i < bb.Len(); i++ {
		in := bb.At(i)
		if in == nil {
			continue
		}
		if in == m.release || in == m.end {
			break
		}

		if ret, ok := in.(*ir.Retain); ok && sameRoot(ret.Operands()[0]) {
			candidate = in
			continue
		}

		if !in.MayHaveSideEffects() {
			continue
		}
		switch in.(type) {
		case *ir.Apply, *ir.PartialApply:
			continue
		}

		if rel, ok := in.(*ir.Release); ok && candidate != nil && sameRoot(rel.Operands()[0]) {
			doomed = append(doomed, candidate, in)
		}

		// Whatever this was, nothing can pair across it.
		candidate = nil
	}
	return doomed
}
