package peephole

import (
	"github.com/obruchev/guardpeep/ir"
)

// Resolver yields the reference-count identity root of a value, so that two
// differently named aliases of one object compare equal.
type Resolver interface {
	Root(v *ir.Value) *ir.Value
}

// PostDom answers whether one instruction lies on every path leaving
// another before the function can return.
type PostDom interface {
	ProperlyPostDominates(later, earlier ir.Instr) bool
}

// Tracer observes approved rewrites. Calls arrive from the single goroutine
// running the pass.
type Tracer interface {
	Rewrite(fn, block string, start, end, removed int)
}

// Options configures one pass instance.
type Options struct {
	Resolve Resolver

	// PostDomFor is called at most once per Run, and only when a
	// structurally valid candidate shows up: building the info is the
	// expensive part and most functions have no candidates at all.
	PostDomFor func(fn *ir.Func) PostDom

	// Exempt reports instructions that do not break the retain-to-begin
	// contiguity window. Nil falls back to DefaultExempt.
	Exempt func(in ir.Instr) bool

	// CleanNested enables removal of fully enclosed retain/release pairs
	// of the pattern's own root.
	CleanNested bool

	// MaxRewrites caps rewrites per Run; 0 means unlimited.
	MaxRewrites int

	Tracer Tracer
}

// Pass is the guaranteed-scope retain/release peephole. One instance runs
// one function at a time; the caller owns the function exclusively for the
// duration of Run.
type Pass struct {
	opts     Options
	rewrites int
}

// New creates a pass instance from opts.
func New(opts Options) *Pass {
	if opts.Exempt == nil {
		opts.Exempt = DefaultExempt
	}
	return &Pass{opts: opts}
}

// DefaultExempt is the conservative contiguity policy: further retains,
// effect-free instructions and debug annotations do not break a window.
func DefaultExempt(in ir.Instr) bool {
	switch in.(type) {
	case *ir.Retain:
		return true
	case *ir.DebugValue:
		return true
	}
	return !in.MayHaveSideEffects()
}

// Run scans every block of fn, rewriting each approved pattern, and reports
// whether any instruction was deleted or rewritten. Running it again right
// away finds nothing and reports false.
func (p *Pass) Run(fn *ir.Func) bool {
	p.rewrites = 0

	// Post-dominance is built lazily, once per invocation.
	var pdi PostDom
	postdomFor := func() PostDom {
		if pdi == nil {
			pdi = p.opts.PostDomFor(fn)
		}
		return pdi
	}

	changed := false
	for _, bb := range fn.Blocks() {
		if p.capReached() {
			break
		}
		if p.scanBlock(bb, postdomFor) {
			changed = true
		}
	}
	if changed {
		for _, bb := range fn.Blocks() {
			bb.Compact()
		}
	}
	return changed
}

func (p *Pass) capReached() bool {
	return p.opts.MaxRewrites > 0 && p.rewrites >= p.opts.MaxRewrites
}
