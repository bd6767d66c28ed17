package ir

// Builder constructs functions instruction by instruction. It is the only
// way to create IR: the optimizer never builds new instructions, it only
// deletes them and rewires operands.
type Builder struct {
	fn  *Func
	cur *Block
}

// NewBuilder starts a function with the given name.
func NewBuilder(fnName string) *Builder {
	return &Builder{fn: &Func{name: fnName}}
}

// Func returns the function under construction.
func (b *Builder) Func() *Func { return b.fn }

// Param declares a function parameter value.
func (b *Builder) Param(name string) *Value {
	v := b.fn.newValue(name, nil)
	b.fn.params = append(b.fn.params, v)
	return v
}

// Block creates a new basic block and makes it the insertion point if none
// is set yet. The first created block becomes the function entry.
func (b *Builder) Block(name string) *Block {
	blk := &Block{fn: b.fn, name: name, index: len(b.fn.blocks)}
	b.fn.blocks = append(b.fn.blocks, blk)
	if b.cur == nil {
		b.cur = blk
	}
	return blk
}

// SetBlock switches the insertion point.
func (b *Builder) SetBlock(blk *Block) { b.cur = blk }

func (b *Builder) emit(in Instr) { b.cur.append(in) }

func (b *Builder) result(in Instr) *Value {
	v := b.fn.newValue("", in)
	in.base().results = []*Value{v}
	return v
}

// Retain emits a reference-count increment of v.
func (b *Builder) Retain(v *Value) *Retain {
	in := &Retain{instrBase: instrBase{operands: []*Value{v}}}
	b.emit(in)
	return in
}

// Release emits a reference-count decrement of v.
func (b *Builder) Release(v *Value) *Release {
	in := &Release{instrBase: instrBase{operands: []*Value{v}}}
	b.emit(in)
	return in
}

// GuaranteedBegin emits the scope-opening builtin and returns its pair
// result. The guarded value and the token are read from the pair through
// Extract with indexes 0 and 1.
func (b *Builder) GuaranteedBegin(v *Value) *Value {
	in := &Builtin{instrBase: instrBase{operands: []*Value{v}}, Kind: GuaranteedBegin}
	res := b.result(in)
	b.emit(in)
	return res
}

// GuaranteedEnd emits the scope-closing builtin consuming the token.
func (b *Builder) GuaranteedEnd(token *Value) *Builtin {
	in := &Builtin{instrBase: instrBase{operands: []*Value{token}}, Kind: GuaranteedEnd}
	b.emit(in)
	return in
}

// Intrinsic emits an opaque builtin call with an explicit side-effect flag.
func (b *Builder) Intrinsic(name string, effects bool, args ...*Value) *Value {
	in := &Builtin{instrBase: instrBase{operands: args}, Kind: OpaqueBuiltin, Name: name, effects: effects}
	res := b.result(in)
	b.emit(in)
	return res
}

// Extract emits a projection of element index out of a pair value.
func (b *Builder) Extract(pair *Value, index int) *Value {
	in := &Extract{instrBase: instrBase{operands: []*Value{pair}}, Index: index}
	res := b.result(in)
	b.emit(in)
	return res
}

// Apply emits an ordinary call.
func (b *Builder) Apply(callee string, args ...*Value) *Value {
	in := &Apply{instrBase: instrBase{operands: args}, Callee: callee}
	res := b.result(in)
	b.emit(in)
	return res
}

// PartialApply emits a partial application.
func (b *Builder) PartialApply(callee string, args ...*Value) *Value {
	in := &PartialApply{instrBase: instrBase{operands: args}, Callee: callee}
	res := b.result(in)
	b.emit(in)
	return res
}

// DebugValue emits a debug annotation tracking v.
func (b *Builder) DebugValue(v *Value) *DebugValue {
	in := &DebugValue{instrBase: instrBase{operands: []*Value{v}}}
	b.emit(in)
	return in
}

// Effect emits a side-effecting instruction with no result, e.g. a store.
func (b *Builder) Effect(name string, args ...*Value) *Generic {
	in := &Generic{instrBase: instrBase{operands: args}, Name: name, Effects: true}
	b.emit(in)
	return in
}

// Pure emits an effect-free instruction producing one result.
func (b *Builder) Pure(name string, args ...*Value) *Value {
	in := &Generic{instrBase: instrBase{operands: args}, Name: name}
	res := b.result(in)
	b.emit(in)
	return res
}

// Forward emits an identity-preserving instruction: its result aliases the
// same reference-counted object as v.
func (b *Builder) Forward(name string, v *Value) *Value {
	in := &Generic{instrBase: instrBase{operands: []*Value{v}}, Name: name, Forwards: true}
	res := b.result(in)
	b.emit(in)
	return res
}

// Br terminates the current block with an unconditional branch.
func (b *Builder) Br(target *Block) {
	b.cur.setTerm(&Branch{Target: target})
}

// CondBr terminates the current block with a two-way conditional branch.
func (b *Builder) CondBr(cond *Value, then, els *Block) {
	b.cur.setTerm(&CondBranch{instrBase: instrBase{operands: []*Value{cond}}, Then: then, Else: els})
}

// Ret terminates the current block with a return.
func (b *Builder) Ret(vals ...*Value) {
	b.cur.setTerm(&Return{instrBase: instrBase{operands: vals}})
}
