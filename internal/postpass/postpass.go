// Package postpass implements the four rewrites that run after
// bounds inference and slide-and-fold have settled every buffer's
// storage: dropping crops nobody ever writes through, shrinking a
// scope's body down to the statements that actually use its symbol,
// aliasing an elementwise-consumed allocation onto its consumer's own
// output buffer, and the (currently identity) copy-optimization hook.
// Postpass runs them in a fixed order, twice through the simplifier and
// scope reducer since each of the other two can expose further
// opportunities the other introduced.
package postpass

import (
	"context"

	"loomcc/internal/config"
	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/observ"
	"loomcc/internal/symbols"
	"loomcc/internal/trace"
)

// Postpass runs the post-pass pipeline over root and returns the
// rewritten tree. timer may be nil, in which case no per-phase timing is
// recorded; report and tunables behave the same as every other pass in
// this module.
func Postpass(ctx context.Context, tab *symbols.Table, report diag.Reporter, tunables config.Tunables, timer *observ.Timer, root ir.Stmt) (ir.Stmt, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "postpass", 0)
	defer span.End("")

	run := func(name string, fn func() ir.Stmt) ir.Stmt {
		idx := beginPhase(timer, name)
		sub := trace.Begin(tracer, trace.ScopePass, name, span.ID())
		out := fn()
		sub.End("")
		endPhase(timer, idx)
		return out
	}
	runErr := func(name string, fn func() (ir.Stmt, error)) (ir.Stmt, error) {
		idx := beginPhase(timer, name)
		sub := trace.Begin(tracer, trace.ScopePass, name, span.ID())
		out, err := fn()
		sub.End("")
		endPhase(timer, idx)
		return out, err
	}

	var err error
	root, err = runErr("postpass.remove_dead_crops", func() (ir.Stmt, error) {
		return removeDeadInputCrops(tab, report, root)
	})
	if err != nil {
		return root, err
	}
	if ctxDone(ctx) {
		return root, nil
	}

	root = run("postpass.simplify", func() ir.Stmt { return simplifyTree(root) })

	if tunables.EnableScopeReduction {
		root = run("postpass.reduce_scopes", func() ir.Stmt { return reduceScopes(root) })
	}
	if ctxDone(ctx) {
		return root, nil
	}

	if tunables.EnableBufferAliasing {
		root, err = runErr("postpass.alias_buffers", func() (ir.Stmt, error) {
			return aliasBuffers(tab, report, root)
		})
		if err != nil {
			return root, err
		}
	}

	root = run("postpass.optimize_copies", func() ir.Stmt { return optimizeCopies(root) })
	root = run("postpass.simplify_2", func() ir.Stmt { return simplifyTree(root) })

	if tunables.EnableScopeReduction {
		root = run("postpass.reduce_scopes_2", func() ir.Stmt { return reduceScopes(root) })
	}

	return root, nil
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
