package ir

// Block is an ordered sequence of instructions closed by a terminator.
// Instruction positions are stable for the duration of a scan: removal
// leaves a tombstone behind, and Compact squeezes tombstones out once the
// scan is over. This keeps forward iteration safe across in-place deletion.
type Block struct {
	fn     *Func
	name   string
	index  int
	instrs []Instr
	term   Terminator
}

// Name returns the block label.
func (b *Block) Name() string { return b.name }

// Func returns the function owning the block.
func (b *Block) Func() *Func { return b.fn }

// Index returns the position of the block within its function.
func (b *Block) Index() int { return b.index }

// Len returns the number of instruction slots, tombstones included.
func (b *Block) Len() int { return len(b.instrs) }

// At returns the instruction at slot i, or nil for a tombstone.
func (b *Block) At(i int) Instr { return b.instrs[i] }

// Instrs returns the live instructions in order, terminator excluded.
func (b *Block) Instrs() []Instr {
	out := make([]Instr, 0, len(b.instrs))
	for _, in := range b.instrs {
		if in != nil {
			out = append(out, in)
		}
	}
	return out
}

// Term returns the block terminator, nil while the block is still being
// built.
func (b *Block) Term() Terminator { return b.term }

// Succs returns the control-flow successors named by the terminator.
func (b *Block) Succs() []*Block {
	if b.term == nil {
		return nil
	}
	return b.term.Successors()
}

func (b *Block) append(in Instr) {
	base := in.base()
	base.block = b
	base.pos = len(b.instrs)
	b.instrs = append(b.instrs, in)
	attachUses(in)
}

func (b *Block) setTerm(t Terminator) {
	base := t.base()
	base.block = b
	base.pos = -1
	b.term = t
	attachUses(t)
}

func attachUses(in Instr) {
	for i, op := range in.base().operands {
		op.addUse(in, i)
	}
}

// Remove tombstones the instruction and detaches it from the use lists of
// its operands. The slot keeps its position until Compact runs; removing an
// instruction twice is a no-op.
func (b *Block) Remove(in Instr) {
	base := in.base()
	if base.block != b || base.pos < 0 || b.instrs[base.pos] != in {
		return
	}
	for i, op := range base.operands {
		op.removeUse(in, i)
	}
	b.instrs[base.pos] = nil
	base.block = nil
	b.fn.gen++
}

// Compact drops tombstones and renumbers the remaining instructions.
func (b *Block) Compact() {
	live := b.instrs[:0]
	dropped := false
	for _, in := range b.instrs {
		if in == nil {
			dropped = true
			continue
		}
		in.base().pos = len(live)
		live = append(live, in)
	}
	b.instrs = live
	if dropped {
		b.fn.gen++
	}
}
