// Package pipeline chains the middle end's three components into the one
// exported entry point a driver program needs: bounds inference, then
// slide-and-fold, then the post-pass pipeline, in the fixed order the
// rest of this module's passes assume. Nothing else in this repo calls
// bounds.Infer, slide.Slide, or postpass.Postpass directly outside of
// their own package's tests.
package pipeline

import (
	"context"
	"errors"

	"loomcc/internal/bounds"
	"loomcc/internal/config"
	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/observ"
	"loomcc/internal/plancache"
	"loomcc/internal/postpass"
	"loomcc/internal/slide"
	"loomcc/internal/symbols"
	"loomcc/internal/trace"
)

// Options bundles the knobs Compile threads through every stage. A nil
// Report is treated as diag.NopReporter{}; a nil Cache disables the plan
// cache entirely, which is the default (PlanCacheDir empty).
type Options struct {
	Tunables config.Tunables
	Report   diag.Reporter
	Timer    *observ.Timer
	Cache    *plancache.DiskCache
}

// Compile runs bounds inference, slide-and-fold, and the post-pass
// pipeline over tree in that order, per §2. inputs lists the pipeline's
// input buffer symbols, used only to key the optional plan cache — every
// pass itself discovers a buffer's role (pipeline input vs. locally
// allocated) from the tree's own make_buffer/allocate nodes, not from
// this list.
//
// ctx carries the trace.Tracer the passes read via trace.FromContext,
// and is checked for cancellation once per component (never inside a
// single pass's recursion), per §5.
func Compile(ctx context.Context, tab *symbols.Table, tree ir.Stmt, inputs []symbols.ID, opts Options) (ir.Stmt, error) {
	report := opts.Report
	if report == nil {
		report = diag.NopReporter{}
	}

	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "compile", 0)
	defer span.End("")

	var key plancache.Digest
	cacheKeyed := false
	if opts.Cache != nil {
		key = digestOf(tab, tree, inputs)
		cacheKeyed = true
		if body, err := opts.Cache.Get(key); err == nil {
			if cached, decErr := decodeStmt(body); decErr == nil {
				return cached, nil
			}
		} else if !errors.Is(err, plancache.ErrMiss) {
			at := diag.Location{Pass: "pipeline.compile", Detail: "plan_cache_read"}
			diag.Notice(report, diag.PlanCacheUnavailable, at, "plan cache lookup failed, recompiling: "+err.Error())
		}
	}

	out, err := runPhase(opts.Timer, "bounds", func() (ir.Stmt, error) {
		return bounds.Infer(ctx, tab, report, tree)
	})
	if err != nil {
		return out, err
	}
	if ctxDone(ctx) {
		return out, nil
	}

	out, err = runPhase(opts.Timer, "slide_fold", func() (ir.Stmt, error) {
		return slide.Slide(ctx, tab, report, opts.Tunables, out)
	})
	if err != nil {
		return out, err
	}
	if ctxDone(ctx) {
		return out, nil
	}

	out, err = postpass.Postpass(ctx, tab, report, opts.Tunables, opts.Timer, out)
	if err != nil {
		return out, err
	}

	if cacheKeyed {
		if body, encErr := encodeStmt(out); encErr == nil {
			if putErr := opts.Cache.Put(key, body); putErr != nil {
				at := diag.Location{Pass: "pipeline.compile", Detail: "plan_cache_write"}
				diag.Notice(report, diag.PlanCacheUnavailable, at, "plan cache write failed: "+putErr.Error())
			}
		}
	}

	return out, nil
}

func runPhase(timer *observ.Timer, name string, fn func() (ir.Stmt, error)) (ir.Stmt, error) {
	idx := beginPhase(timer, name)
	out, err := fn()
	endPhase(timer, idx)
	return out, err
}

func beginPhase(timer *observ.Timer, name string) int {
	if timer == nil {
		return -1
	}
	return timer.Begin(name)
}

func endPhase(timer *observ.Timer, idx int) {
	if timer == nil || idx < 0 {
		return
	}
	timer.End(idx, "")
}

func ctxDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
