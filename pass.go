package guardpeep

import (
	"github.com/obruchev/guardpeep/internal/peephole"
	"github.com/obruchev/guardpeep/internal/postdom"
	"github.com/obruchev/guardpeep/internal/rcid"
	"github.com/obruchev/guardpeep/internal/trace"
	"github.com/obruchev/guardpeep/ir"
)

// IdentityResolver resolves a value to the canonical representative of the
// reference-counted object it aliases. Implementations must be
// deterministic within one mutation generation of the function and must
// recompute once the generation moves.
type IdentityResolver interface {
	Root(v *ir.Value) *ir.Value
}

// PostDomInfo answers whether one instruction lies on every path leaving
// another before the function can return.
type PostDomInfo interface {
	ProperlyPostDominates(later, earlier ir.Instr) bool
}

// PostDomOracle builds post-dominance information for a function. The pass
// calls it lazily, at most once per Run, and only when a structurally valid
// candidate shows up.
type PostDomOracle interface {
	Get(fn *ir.Func) PostDomInfo
}

// Option tweaks a Pass.
type Option func(*Pass)

// WithResolver overrides the built-in identity resolver.
func WithResolver(r IdentityResolver) Option {
	return func(p *Pass) { p.resolver = r }
}

// WithOracle overrides the built-in post-dominance oracle.
func WithOracle(o PostDomOracle) Option {
	return func(p *Pass) { p.oracle = o }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg *Config) Option {
	return func(p *Pass) { p.cfg = cfg }
}

// WithExempt replaces the contiguity exemption predicate, overriding
// whatever the configured policy selects.
func WithExempt(f func(in ir.Instr) bool) Option {
	return func(p *Pass) { p.exempt = f }
}

// Pass removes retain/release pairs proven redundant by paired
// guaranteed-begin/guaranteed-end scopes.
type Pass struct {
	cfg      *Config
	resolver IdentityResolver
	oracle   PostDomOracle
	exempt   func(in ir.Instr) bool
	tracer   *trace.Collector
}

// New creates a pass instance. One instance may be reused across functions
// and even concurrently across different functions; a single Run owns its
// function exclusively for the duration of the call.
func New(opts ...Option) *Pass {
	p := &Pass{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg.Trace {
		p.tracer = trace.New()
	}
	return p
}

// Run executes the peephole over fn and reports whether any instruction was
// deleted or rewritten. The hosting pipeline must treat changed=true as an
// invalidation signal for instruction-level analyses it caches, the
// identity resolver and post-dominance results included.
func (p *Pass) Run(fn *ir.Func) bool {
	resolve := IdentityResolver(p.resolver)
	if resolve == nil {
		resolve = rcid.For(fn)
	}

	exempt := p.exempt
	if exempt == nil {
		exempt = p.cfg.Exempt.predicate()
	}

	opts := peephole.Options{
		Resolve: resolve,
		PostDomFor: func(fn *ir.Func) peephole.PostDom {
			if p.oracle != nil {
				return p.oracle.Get(fn)
			}
			return postdom.Compute(fn)
		},
		Exempt:      exempt,
		CleanNested: p.cfg.CleanNested,
		MaxRewrites: p.cfg.MaxRewrites,
	}
	if p.tracer != nil {
		opts.Tracer = p.tracer
	}

	return peephole.New(opts).Run(fn)
}

// Rewrite describes one recorded rewrite when tracing is enabled: where it
// fired, the slot span of the removed window and the number of deleted
// instructions.
type Rewrite struct {
	Fn      string
	Block   string
	Start   int
	End     int
	Removed int
}

// Rewrites returns the rewrites recorded so far, in firing order. Always
// empty unless the configuration enables tracing.
func (p *Pass) Rewrites() []Rewrite {
	if p.tracer == nil {
		return nil
	}
	recs := p.tracer.Records()
	out := make([]Rewrite, len(recs))
	for i, r := range recs {
		out[i] = Rewrite{Fn: r.Fn, Block: r.Block, Start: r.Start, End: r.End, Removed: r.Removed}
	}
	return out
}
