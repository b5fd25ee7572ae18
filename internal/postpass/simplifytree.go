package postpass

import (
	"loomcc/internal/ir"
	"loomcc/internal/simplify"
	"loomcc/internal/traverse"
)

// simplifyTree runs the expression simplifier over every scalar
// expression reachable from root — loop bounds, dim bounds, crop boxes,
// check conditions — without touching the statement shape itself. The
// two simplify phases in the post-pass pipeline exist because each of
// scope reduction and buffer aliasing can expose further algebraic
// simplification opportunities the other introduced.
func simplifyTree(root ir.Stmt) ir.Stmt {
	var m traverse.Mutator
	m.RewriteExpr = func(_ *traverse.Mutator, e ir.Expr) (ir.Expr, bool) {
		return simplify.Simplify(e), true
	}
	return m.MutateStmt(root)
}
