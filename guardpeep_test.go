package guardpeep_test

import (
	"reflect"
	"testing"

	"github.com/sirkon/deepequal"

	"github.com/obruchev/guardpeep"
	"github.com/obruchev/guardpeep/ir"
)

// buildCanonical returns the canonical pattern:
//
//	retain %x
//	%v2 = builtin guaranteed.begin(%x)
//	%v3 = extract %v2, 0
//	%v4 = extract %v2, 1
//	%v5 = apply beep(%v3)
//	release %v3
//	builtin guaranteed.end(%v4)
//	return
func buildCanonical() (*ir.Func, *ir.Block) {
	b := ir.NewBuilder("canonical")
	x := b.Param("x")
	blk := b.Block("bb0")

	b.Retain(x)
	pair := b.GuaranteedBegin(x)
	v := b.Extract(pair, 0)
	tok := b.Extract(pair, 1)
	b.Apply("beep", v)
	b.Release(v)
	b.GuaranteedEnd(tok)
	b.Ret()
	return b.Func(), blk
}

func TestCanonicalPattern(t *testing.T) {
	fn, blk := buildCanonical()

	p := guardpeep.New()
	if !p.Run(fn) {
		t.Fatal("the canonical pattern must fire")
	}

	want := []string{
		"%v5 = apply beep(%x)",
		"return",
	}
	got := ir.BlockStrings(blk)
	if !reflect.DeepEqual(want, got) {
		deepequal.SideBySide(t, "instructions", want, got)
	}
}

func TestIdempotence(t *testing.T) {
	fn, blk := buildCanonical()

	p := guardpeep.New()
	if !p.Run(fn) {
		t.Fatal("the first run must fire")
	}
	after := ir.BlockStrings(blk)

	if p.Run(fn) {
		t.Fatal("the second run must report no change")
	}
	got := ir.BlockStrings(blk)
	if !reflect.DeepEqual(after, got) {
		deepequal.SideBySide(t, "instructions", after, got)
	}
}

func TestNestedPairRemoved(t *testing.T) {
	b := ir.NewBuilder("nested")
	x := b.Param("x")
	blk := b.Block("bb0")

	b.Retain(x)
	pair := b.GuaranteedBegin(x)
	v := b.Extract(pair, 0)
	tok := b.Extract(pair, 1)
	b.Retain(x)
	b.Release(x)
	b.Apply("beep", v)
	b.Release(v)
	b.GuaranteedEnd(tok)
	b.Ret()

	fn := b.Func()
	if !guardpeep.New().Run(fn) {
		t.Fatal("the outer pattern must fire")
	}

	want := []string{
		"%v5 = apply beep(%x)",
		"return",
	}
	got := ir.BlockStrings(blk)
	if !reflect.DeepEqual(want, got) {
		deepequal.SideBySide(t, "instructions", want, got)
	}
}

func TestNestedPairKeptAcrossUnknownEffect(t *testing.T) {
	// An unrecognized effect strictly between an inner retain and its
	// release forbids deleting that inner pair; the outer pattern still
	// fires.
	b := ir.NewBuilder("nested")
	x := b.Param("x")
	blk := b.Block("bb0")

	b.Retain(x)
	pair := b.GuaranteedBegin(x)
	v := b.Extract(pair, 0)
	tok := b.Extract(pair, 1)
	b.Retain(x)
	b.Effect("store", x)
	b.Release(x)
	b.Release(v)
	b.GuaranteedEnd(tok)
	b.Ret()

	fn := b.Func()
	if !guardpeep.New().Run(fn) {
		t.Fatal("the outer pattern must fire")
	}

	want := []string{
		"retain %x",
		"store(%x)",
		"release %x",
		"return",
	}
	got := ir.BlockStrings(blk)
	if !reflect.DeepEqual(want, got) {
		deepequal.SideBySide(t, "instructions", want, got)
	}
}

func TestContiguityRejection(t *testing.T) {
	b := ir.NewBuilder("contiguity")
	x := b.Param("x")
	b.Block("bb0")

	b.Retain(x)
	b.Effect("store", x)
	pair := b.GuaranteedBegin(x)
	v := b.Extract(pair, 0)
	tok := b.Extract(pair, 1)
	b.Release(v)
	b.GuaranteedEnd(tok)
	b.Ret()

	fn := b.Func()
	if guardpeep.New().Run(fn) {
		t.Fatal("an effect between the retain and the begin must block the match")
	}
}

func TestRetainOfOtherRootIsTransparent(t *testing.T) {
	b := ir.NewBuilder("contiguity")
	x := b.Param("x")
	y := b.Param("y")
	b.Block("bb0")

	b.Retain(x)
	b.Retain(y)
	pair := b.GuaranteedBegin(x)
	v := b.Extract(pair, 0)
	tok := b.Extract(pair, 1)
	b.Release(v)
	b.GuaranteedEnd(tok)
	b.Ret()

	fn := b.Func()
	if !guardpeep.New().Run(fn) {
		t.Fatal("a retain of a different root between retain and begin is exempt")
	}
}

func TestStrictPolicyRejectsInterveningRetain(t *testing.T) {
	b := ir.NewBuilder("contiguity")
	x := b.Param("x")
	y := b.Param("y")
	b.Block("bb0")

	b.Retain(x)
	b.Retain(y)
	pair := b.GuaranteedBegin(x)
	v := b.Extract(pair, 0)
	tok := b.Extract(pair, 1)
	b.Release(v)
	b.GuaranteedEnd(tok)
	b.Ret()

	cfg := guardpeep.DefaultConfig()
	cfg.Exempt = guardpeep.ExemptPolicyStrict

	fn := b.Func()
	if guardpeep.New(guardpeep.WithConfig(cfg)).Run(fn) {
		t.Fatal("the strict policy must treat an intervening retain as a break")
	}
}

func TestTokenFanOutRejection(t *testing.T) {
	b := ir.NewBuilder("fanout")
	x := b.Param("x")
	b.Block("bb0")

	b.Retain(x)
	pair := b.GuaranteedBegin(x)
	v := b.Extract(pair, 0)
	tok := b.Extract(pair, 1)
	b.Release(v)
	b.GuaranteedEnd(tok)
	b.GuaranteedEnd(tok)
	b.Ret()

	fn := b.Func()
	if guardpeep.New().Run(fn) {
		t.Fatal("a token with two consumers must not match")
	}
}

func TestPostDominanceRejection(t *testing.T) {
	// The end sits on one arm of a branch; the other arm exits without
	// passing it, so deleting the release would shorten the guaranteed
	// window on that path.
	b := ir.NewBuilder("postdom")
	x := b.Param("x")
	c := b.Param("c")

	entry := b.Block("entry")
	arm := b.Block("arm")
	out := b.Block("out")

	b.SetBlock(entry)
	b.Retain(x)
	pair := b.GuaranteedBegin(x)
	v := b.Extract(pair, 0)
	tok := b.Extract(pair, 1)
	b.CondBr(c, arm, out)

	b.SetBlock(arm)
	b.Release(v)
	b.GuaranteedEnd(tok)
	b.Br(out)

	b.SetBlock(out)
	b.Ret()

	fn := b.Func()
	if guardpeep.New().Run(fn) {
		t.Fatal("an end off the common path must not match")
	}
}

func TestMultiBlockOuterWithCrossBlockInnerPair(t *testing.T) {
	// The outer anchors span two blocks: the outer pattern is still
	// approved, but the nested cleaner must leave the inner pair alone.
	b := ir.NewBuilder("multiblock")
	x := b.Param("x")

	entry := b.Block("entry")
	next := b.Block("next")

	b.SetBlock(entry)
	b.Retain(x)
	pair := b.GuaranteedBegin(x)
	v := b.Extract(pair, 0)
	tok := b.Extract(pair, 1)
	b.Br(next)

	b.SetBlock(next)
	b.Retain(x)
	b.Release(x)
	b.Apply("beep", v)
	b.Release(v)
	b.GuaranteedEnd(tok)
	b.Ret()

	fn := b.Func()
	if !guardpeep.New().Run(fn) {
		t.Fatal("the outer pattern must fire across blocks")
	}

	wantEntry := []string{
		"br next",
	}
	wantNext := []string{
		"retain %x",
		"release %x",
		"%v5 = apply beep(%x)",
		"return",
	}
	if got := ir.BlockStrings(entry); !reflect.DeepEqual(wantEntry, got) {
		deepequal.SideBySide(t, "entry", wantEntry, got)
	}
	if got := ir.BlockStrings(next); !reflect.DeepEqual(wantNext, got) {
		deepequal.SideBySide(t, "next", wantNext, got)
	}
}

func TestDebugUsesRemoved(t *testing.T) {
	b := ir.NewBuilder("debug")
	x := b.Param("x")
	blk := b.Block("bb0")

	b.Retain(x)
	pair := b.GuaranteedBegin(x)
	v := b.Extract(pair, 0)
	tok := b.Extract(pair, 1)
	b.DebugValue(v)
	b.Release(v)
	b.GuaranteedEnd(tok)
	b.Ret()

	fn := b.Func()
	if !guardpeep.New().Run(fn) {
		t.Fatal("a debug-only use of the guarded value must not block the match")
	}

	want := []string{
		"return",
	}
	got := ir.BlockStrings(blk)
	if !reflect.DeepEqual(want, got) {
		deepequal.SideBySide(t, "instructions", want, got)
	}
}

// refcountTimeline simulates reference-count bookkeeping over a
// straight-line block: the running net count of retains minus releases
// before and after each instruction, in instruction order.
func refcountTimeline(blk *ir.Block) []int {
	count := 0
	var out []int
	for _, in := range blk.Instrs() {
		switch in.(type) {
		case *ir.Retain:
			count++
		case *ir.Release:
			count--
		}
		out = append(out, count)
	}
	return out
}

func TestRewriteNeverReleasesEarlier(t *testing.T) {
	fn, blk := buildCanonical()

	pre := refcountTimeline(blk)
	for _, c := range pre {
		if c < 0 {
			t.Fatal("the input program must be balanced to begin with")
		}
	}

	if !guardpeep.New().Run(fn) {
		t.Fatal("the canonical pattern must fire")
	}

	post := refcountTimeline(blk)
	for i, c := range post {
		if c < 0 {
			t.Fatalf("rewrite introduced an early release at step %d", i)
		}
	}
	if len(post) > 0 && post[len(post)-1] != pre[len(pre)-1] {
		t.Fatalf("rewrite changed the net count: %d before, %d after", pre[len(pre)-1], post[len(post)-1])
	}
}

type orderOracle struct {
	calls int
}

func (o *orderOracle) Get(fn *ir.Func) guardpeep.PostDomInfo {
	o.calls++
	return orderInfo{}
}

// orderInfo answers post-dominance by plain position order; sufficient for
// single-block functions.
type orderInfo struct{}

func (orderInfo) ProperlyPostDominates(later, earlier ir.Instr) bool {
	return later.Parent() == earlier.Parent() && later.Pos() > earlier.Pos()
}

func TestInjectedOracleUsedLazily(t *testing.T) {
	oracle := &orderOracle{}

	fn, _ := buildCanonical()
	p := guardpeep.New(guardpeep.WithOracle(oracle))
	if !p.Run(fn) {
		t.Fatal("the canonical pattern must fire with an injected oracle")
	}
	if oracle.calls != 1 {
		t.Fatalf("the oracle must be consulted exactly once, got %d", oracle.calls)
	}

	// A function without candidates never consults it.
	b := ir.NewBuilder("plain")
	x := b.Param("x")
	b.Block("bb0")
	b.Apply("beep", x)
	b.Ret()

	before := oracle.calls
	if p.Run(b.Func()) {
		t.Fatal("nothing to rewrite here")
	}
	if oracle.calls != before {
		t.Fatal("the oracle must not be consulted without a candidate")
	}
}

func TestTracingRecordsRewrites(t *testing.T) {
	cfg := guardpeep.DefaultConfig()
	cfg.Trace = true

	fn, _ := buildCanonical()
	p := guardpeep.New(guardpeep.WithConfig(cfg))
	if !p.Run(fn) {
		t.Fatal("the canonical pattern must fire")
	}

	recs := p.Rewrites()
	if len(recs) != 1 {
		t.Fatalf("expected one recorded rewrite, got %d", len(recs))
	}
	rec := recs[0]
	if rec.Fn != "canonical" || rec.Block != "bb0" {
		t.Fatalf("rewrite recorded in the wrong place: %s.%s", rec.Fn, rec.Block)
	}
	if rec.Start != 0 {
		t.Fatalf("the window must start at the retain slot, got %d", rec.Start)
	}
	if rec.Removed != 6 {
		t.Fatalf("expected 6 removed instructions, got %d", rec.Removed)
	}
}

func BenchmarkRunNoCandidates(b *testing.B) {
	build := func() *ir.Func {
		bld := ir.NewBuilder("bench")
		x := bld.Param("x")
		bld.Block("bb0")
		for i := 0; i < 200; i++ {
			bld.Pure("probe", x)
		}
		bld.Ret()
		return bld.Func()
	}
	p := guardpeep.New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		fn := build()
		b.StartTimer()
		p.Run(fn)
	}
}

func BenchmarkRunCanonical(b *testing.B) {
	p := guardpeep.New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		fn, _ := buildCanonical()
		b.StartTimer()
		p.Run(fn)
	}
}
