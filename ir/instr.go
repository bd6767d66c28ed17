package ir

// Instr is the closed set of instruction kinds the optimizer understands.
// The interface is sealed: only types of this package implement it, so a
// type switch over the variants is exhaustive.
type Instr interface {
	// Parent returns the block the instruction currently belongs to, nil
	// once the instruction has been removed.
	Parent() *Block

	// Pos returns the stable slot position within the parent block.
	// Positions survive removal of other instructions until Compact runs.
	Pos() int

	// Operands returns the values the instruction reads, in order.
	Operands() []*Value

	// Results returns the values the instruction produces, possibly empty.
	Results() []*Value

	// MayHaveSideEffects reports whether the instruction can write memory,
	// change reference counts or otherwise affect observable state.
	MayHaveSideEffects() bool

	base() *instrBase
}

type instrBase struct {
	block    *Block
	pos      int
	operands []*Value
	results  []*Value
}

func (b *instrBase) Parent() *Block     { return b.block }
func (b *instrBase) Pos() int           { return b.pos }
func (b *instrBase) Operands() []*Value { return b.operands }
func (b *instrBase) Results() []*Value  { return b.results }
func (b *instrBase) base() *instrBase   { return b }

// Retain increments the reference count of its single operand.
type Retain struct {
	instrBase
}

func (*Retain) MayHaveSideEffects() bool { return true }

// Release decrements the reference count of its single operand.
type Release struct {
	instrBase
}

func (*Release) MayHaveSideEffects() bool { return true }

// BuiltinKind tags compiler-known builtin calls.
type BuiltinKind int

const (
	// OpaqueBuiltin is a builtin this pass has no knowledge of.
	OpaqueBuiltin BuiltinKind = iota

	// GuaranteedBegin opens a scope asserting its operand is kept alive by
	// another reference. Its single result is a pair: position 0 holds the
	// guarded value, position 1 an opaque token, both read through Extract
	// projections.
	GuaranteedBegin

	// GuaranteedEnd closes the scope opened by the begin whose token it
	// consumes.
	GuaranteedEnd
)

func (k BuiltinKind) String() string {
	switch k {
	case OpaqueBuiltin:
		return "opaque"
	case GuaranteedBegin:
		return "guaranteed.begin"
	case GuaranteedEnd:
		return "guaranteed.end"
	default:
		return "invalid"
	}
}

// Builtin is a compiler-known call carrying a builtin kind tag.
type Builtin struct {
	instrBase
	Kind BuiltinKind
	Name string // set for OpaqueBuiltin only

	effects bool // opaque builtins only; the guaranteed pair always has effects
}

func (b *Builtin) MayHaveSideEffects() bool {
	if b.Kind == OpaqueBuiltin {
		return b.effects
	}
	return true
}

// Extract projects a single element out of a pair-producing instruction's
// result.
type Extract struct {
	instrBase
	Index int
}

func (*Extract) MayHaveSideEffects() bool { return false }

// Apply is an ordinary function call.
type Apply struct {
	instrBase
	Callee string
}

func (*Apply) MayHaveSideEffects() bool { return true }

// PartialApply captures arguments into a callable without invoking it.
type PartialApply struct {
	instrBase
	Callee string
}

func (*PartialApply) MayHaveSideEffects() bool { return true }

// DebugValue is a debug-info annotation tracking a value. It has no runtime
// semantics and never blocks a rewrite.
type DebugValue struct {
	instrBase
}

func (*DebugValue) MayHaveSideEffects() bool { return false }

// Generic stands for any instruction the optimizer has no special knowledge
// of. Its side-effect behavior is declared explicitly when it is built.
type Generic struct {
	instrBase
	Name    string
	Effects bool

	// Forwards marks identity-preserving instructions: the single result
	// refers to the same reference-counted object as operand 0.
	Forwards bool
}

func (g *Generic) MayHaveSideEffects() bool { return g.Effects }

// Terminator ends a basic block and names its control-flow successors.
type Terminator interface {
	Instr
	Successors() []*Block
}

// Branch transfers control to a single successor.
type Branch struct {
	instrBase
	Target *Block
}

func (*Branch) MayHaveSideEffects() bool { return false }
func (b *Branch) Successors() []*Block { return []*Block{b.Target} }

// CondBranch transfers control to one of two successors depending on its
// operand.
type CondBranch struct {
	instrBase
	Then *Block
	Else *Block
}

func (*CondBranch) MayHaveSideEffects() bool { return false }
func (b *CondBranch) Successors() []*Block { return []*Block{b.Then, b.Else} }

// Return leaves the function, yielding its operands if any.
type Return struct {
	instrBase
}

func (*Return) MayHaveSideEffects() bool { return false }
func (*Return) Successors() []*Block    { return nil }
