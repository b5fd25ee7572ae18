package slide

import (
	"context"

	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/symbols"
	"loomcc/internal/traverse"
)

// loop implements the loop rule: a parallel loop's iterations may run out
// of order, so neither sliding nor folding is sound there — the body is
// left completely untouched and a notice records why. A serial loop
// pushes a loop_info record that stage() and the crop handlers consult
// and potentially rewrite, then closes over whatever they decided.
func (sl *Slider) loop(ctx context.Context, s ir.Stmt) ir.Stmt {
	d, _ := ir.AsStmt[ir.LoopData](s)

	if d.Mode == ir.Parallel {
		sl.notice(diag.SlideSkippedParallel, d.Sym, "loop",
			"parallel loop body left untouched by slide-and-fold")
		return s
	}

	origMin := sl.tab.InsertUnique(sl.tab.Name(d.Sym) + ".min_orig")
	rec := &loopRecord{
		sym:     d.Sym,
		origMin: origMin,
		bounds:  ir.Interval{Min: ir.Var(origMin), Max: d.Bounds.Max},
		step:    d.Step,
	}
	sl.loops = append(sl.loops, rec)
	body := sl.stmt(ctx, d.Body)
	sl.loops = sl.loops[:len(sl.loops)-1]

	loopMin := rec.bounds.Min
	if ir.Match(loopMin, ir.Var(origMin)) {
		loopMin = d.Bounds.Min
	}

	if !isVarSym(loopMin, origMin) || stmtDependsOn(body, origMin) {
		result := ir.Loop(d.Sym, d.Mode, ir.Interval{Min: loopMin, Max: d.Bounds.Max}, d.Step, body)
		return ir.LetStmt(origMin, d.Bounds.Min, result)
	}

	return ir.Loop(d.Sym, d.Mode, d.Bounds, d.Step, body)
}

func isVarSym(e ir.Expr, sym symbols.ID) bool {
	if e.Kind != ir.ExprVar {
		return false
	}
	v, _ := ir.As[ir.VarData](e)
	return v.Sym == sym
}

// stmtDependsOn reports whether any expression reachable from s mentions
// sym, used to detect the warm-up select() the loop rule may have buried
// inside a crop further down the tree even when the loop's own bounds
// were left referencing orig_min.
func stmtDependsOn(s ir.Stmt, sym symbols.ID) bool {
	found := false
	traverse.VisitStmt(s, func(ir.Stmt) bool {
		return !found
	}, func(e ir.Expr) bool {
		if isVarSym(e, sym) {
			found = true
		}
		return !found
	})
	return found
}
