// Package slide implements the slide-and-fold pass: the single top-down
// walk that decides, for every buffer produced inside a serial loop, how
// much of its storage can be reused across consecutive loop iterations
// instead of holding the full extent live for the loop's whole run.
//
// For each enclosing serial loop the pass tracks the loop's own symbol,
// its original (pre-rewrite) minimum, its declared bounds, and its step.
// When a stage's output box grows monotonically with the loop variable
// and the loop runs with a unit step, the pass narrows storage to the
// box's extent (folding) and, if needed, widens the loop's own lower
// bound to warm up the window before steady state. When the box is
// provably disjoint across iterations, only folding applies. Anything
// else — a box that depends on the loop variable in a way the prover
// can't classify, or a parallel loop, whose iterations may run out of
// order — is left untouched.
package slide

import (
	"context"

	"loomcc/internal/config"
	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/symbols"
	"loomcc/internal/trace"
)

// foldEntry records the fold factor decided for one dimension of a
// buffer, alongside the dimension index it applies to. A buffer carries
// at most one: the algorithm only ever slides a single dimension of any
// given buffer, so a later decision simply overwrites an earlier one.
type foldEntry struct {
	dim    int
	factor ir.Expr
}

// loopRecord is the slide pass's view of one enclosing serial loop: its
// symbol, the fresh lower-bound symbol the loop rule introduces so it can
// detect whether anything actually used it, and the loop's own bounds and
// step (bounds.Min starts as a reference to origMin and may be rewritten
// in place by stage() as slides are discovered).
type loopRecord struct {
	sym     symbols.ID
	origMin symbols.ID
	bounds  ir.Interval
	step    ir.Expr
}

// Slider holds the scoped state threaded through a single Slide call.
type Slider struct {
	tab      *symbols.Table
	report   diag.Reporter
	tracer   trace.Tracer
	tunables config.Tunables

	bufferBounds *symbols.Map[ir.Box]
	foldFactors  *symbols.Map[foldEntry]
	loops        []*loopRecord

	// x is a single fresh unknown allocated once at construction and
	// reused across every warm-up solve this call performs, mirroring
	// the one _x the source allocates in its constructor rather than
	// minting a fresh symbol per stage.
	x symbols.ID

	err error
}

// Slide runs the slide-and-fold pass over root, narrowing storage for
// buffers produced inside serial loops wherever the prover can show it's
// safe, and returns the rewritten tree. report receives a notice for
// every case the pass fell back on conservatively (an unprovable
// predicate, or a parallel loop skipped by design); none of those abort
// compilation.
func Slide(ctx context.Context, tab *symbols.Table, report diag.Reporter, tunables config.Tunables, root ir.Stmt) (ir.Stmt, error) {
	sl := &Slider{
		tab:          tab,
		report:       report,
		tracer:       trace.FromContext(ctx),
		tunables:     tunables,
		bufferBounds: symbols.NewMapT[ir.Box](),
		foldFactors:  symbols.NewMapT[foldEntry](),
		x:            tab.InsertUnique("_slide_x"),
	}

	span := trace.Begin(sl.tracer, trace.ScopePass, "slide", 0)
	out := sl.stmt(ctx, root)
	span.End("")

	if sl.err != nil {
		return out, sl.err
	}
	return out, nil
}

func (sl *Slider) fail(code diag.Code, sym symbols.ID, detail, msg string) {
	at := diag.Location{Pass: "slide", Symbol: sl.tab.Name(sym), Detail: detail}
	diag.ReportError(sl.report, code, at, msg)
	sl.err = diag.Append(sl.err, diag.NewError(code, at, msg))
}

func (sl *Slider) notice(code diag.Code, sym symbols.ID, detail, msg string) {
	var name string
	if sym.IsValid() {
		name = sl.tab.Name(sym)
	}
	at := diag.Location{Pass: "slide", Symbol: name, Detail: detail}
	diag.Notice(sl.report, code, at, msg)
}

// pushBufferBounds scopes buffer_bounds[sym] to box for the duration of
// the returned Binding.
func (sl *Slider) pushBufferBounds(sym symbols.ID, box ir.Box) *symbols.Binding[ir.Box] {
	return sl.bufferBounds.Bind(sym, box)
}

