package peephole

import (
	"github.com/obruchev/guardpeep/ir"
)

// match is an approved rewrite: the four anchors, the two projections and
// the original operand everything gets rewired back to.
type match struct {
	retain  ir.Instr
	begin   *ir.Builtin
	value   *ir.Extract // guarded value projection, pair position 0
	token   *ir.Extract // token projection, pair position 1
	end     *ir.Builtin
	release ir.Instr
	operand *ir.Value
}

// validate runs the soundness gates in order, short-circuiting on the first
// failure. A nil result means "no match", never an error: a missed
// optimization is always safe, a wrong one is not.
func (p *Pass) validate(retain ir.Instr, begin *ir.Builtin, postdomFor func() PostDom) *match {
	value, token := beginProjections(begin)
	if value == nil {
		return nil
	}

	end := tokenConsumer(token)
	if end == nil {
		return nil
	}

	// The end must lie on every path out of the begin: the rewrite removes
	// the release along all exits, so any path dodging the end would see
	// the object kept alive for a shorter window than the original code
	// guaranteed.
	if !postdomFor().ProperlyPostDominates(end, begin) {
		return nil
	}

	release := p.findRelease(begin, end)
	if release == nil {
		return nil
	}

	return &match{
		retain:  retain,
		begin:   begin,
		value:   value,
		token:   token,
		end:     end,
		release: release,
		operand: begin.Operands()[0],
	}
}

// beginProjections demands the begin's pair result to be consumed by
// exactly one position-0 and one position-1 projection and nothing else.
// No uses, duplicate extracts or non-extract uses all disqualify.
func beginProjections(begin *ir.Builtin) (value, token *ir.Extract) {
	pair := begin.Results()[0]
	for _, use := range pair.Uses() {
		ext, ok := use.User.(*ir.Extract)
		if !ok {
			return nil, nil
		}
		switch ext.Index {
		case 0:
			if value != nil {
				return nil, nil
			}
			value = ext
		case 1:
			if token != nil {
				return nil, nil
			}
			token = ext
		default:
			return nil, nil
		}
	}
	if value == nil || token == nil {
		return nil, nil
	}
	return value, token
}

// tokenConsumer returns the single guaranteed-end consuming the token, nil
// when there is fan-out or no consumer at all.
func tokenConsumer(token *ir.Extract) *ir.Builtin {
	uses := token.Results()[0].Uses()
	if len(uses) != 1 {
		return nil
	}
	end, ok := uses[0].User.(*ir.Builtin)
	if !ok || end.Kind != ir.GuaranteedEnd {
		return nil
	}
	return end
}

// findRelease locates the release paired with the guarded value: a release
// whose operand roots at the begin's pair, scanning backward from the end
// marker first (stopping at the begin when both share a block) and forward
// after it otherwise. Two candidates in the searched direction make the
// pairing ambiguous and reject the match.
func (p *Pass) findRelease(begin, end *ir.Builtin) ir.Instr {
	bb := end.Parent()
	guarded := begin.Results()[0]

	matches := func(in ir.Instr) bool {
		rel, ok := in.(*ir.Release)
		if !ok {
			return false
		}
		return p.opts.Resolve.Root(rel.Operands()[0]) == guarded
	}

	lo := 0
	if begin.Parent() == bb {
		lo = begin.Pos() + 1
	}

	var found ir.Instr
	for i := end.Pos() - 1; i >= lo; i-- {
		in := bb.At(i)
		if in == nil || !matches(in) {
			continue
		}
		if found != nil {
			return nil
		}
		found = in
	}
	if found != nil {
		return found
	}

	for i := end.Pos() + 1; i < bb.Len(); i++ {
		in := bb.At(i)
		if in == nil || !matches(in) {
			continue
		}
		if found != nil {
			return nil
		}
		found = in
	}
	return found
}
