// Package subst implements structural substitution and free-variable
// queries over the expression IR: substitute, depends_on,
// substitute_bounds, and substitute_fold_factor, the primitives every
// later pass (simplifier, bounds inferrer, slide-and-fold) builds on.
package subst

import (
	"loomcc/internal/ir"
	"loomcc/internal/symbols"
	"loomcc/internal/traverse"
)

// Substitute replaces every occurrence of k inside e with v, stopping
// inside a let binder that rebinds a symbol free in k — a substitution
// keyed on k cannot reach into a scope where k's meaning has changed.
func Substitute(e, k, v ir.Expr) ir.Expr {
	free := freeVars(k)
	var m traverse.Mutator
	m.RewriteExpr = func(mm *traverse.Mutator, node ir.Expr) (ir.Expr, bool) {
		if ir.Match(node, k) {
			return v, true
		}
		if node.Kind != ir.ExprLet {
			return node, false
		}
		d, _ := ir.As[ir.LetData](node)
		if !free[d.Sym] {
			return node, false
		}
		// d.Sym shadows a symbol k depends on: the binding's value is
		// still evaluated in the outer scope, but the body is not.
		value := mm.MutateExpr(d.Value)
		return ir.LetExpr(d.Sym, value, d.Body), true
	}
	return m.MutateExpr(e)
}

func freeVars(e ir.Expr) map[symbols.ID]bool {
	out := make(map[symbols.ID]bool)
	traverse.VisitExpr(e, func(n ir.Expr) bool {
		if n.Kind == ir.ExprVar {
			d, _ := ir.As[ir.VarData](n)
			out[d.Sym] = true
		}
		if n.Kind == ir.ExprIntrinsic {
			d, _ := ir.As[ir.IntrinsicData](n)
			if d.Func != ir.Abs {
				out[d.Buf] = true
			}
		}
		return true
	})
	return out
}

// DependsOn reports whether e mentions sym outside a binder that shadows it.
func DependsOn(e ir.Expr, sym symbols.ID) bool {
	if !e.Defined() {
		return false
	}
	switch e.Kind {
	case ir.ExprVar:
		d, _ := ir.As[ir.VarData](e)
		return d.Sym == sym
	case ir.ExprLet:
		d, _ := ir.As[ir.LetData](e)
		if DependsOn(d.Value, sym) {
			return true
		}
		if d.Sym == sym {
			return false
		}
		return DependsOn(d.Body, sym)
	case ir.ExprBinary:
		d, _ := ir.As[ir.BinaryData](e)
		return DependsOn(d.A, sym) || DependsOn(d.B, sym)
	case ir.ExprNot:
		d, _ := ir.As[ir.NotData](e)
		return DependsOn(d.X, sym)
	case ir.ExprSelect:
		d, _ := ir.As[ir.SelectData](e)
		return DependsOn(d.Cond, sym) || DependsOn(d.T, sym) || DependsOn(d.F, sym)
	case ir.ExprIntrinsic:
		d, _ := ir.As[ir.IntrinsicData](e)
		if d.Func != ir.Abs && d.Buf == sym {
			return true
		}
		if DependsOn(d.Dim, sym) {
			return true
		}
		for _, a := range d.Args {
			if DependsOn(a, sym) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// dimIndex returns the literal dimension index a buffer-field intrinsic's
// Dim expression denotes, if it has already been simplified to a
// constant. A symbolic dim index cannot be substituted here.
func dimIndex(dim ir.Expr) (int, bool) {
	c, ok := ir.As[ir.ConstData](dim)
	if !ok || c.Kind != ir.ConstFinite {
		return 0, false
	}
	return int(c.Value), true
}

// SubstituteBounds replaces buffer_min(buf, d), buffer_max(buf, d), and
// buffer_extent(buf, d) with bounds[d]'s corresponding field, for every d
// that resolves to a literal index within range. Strides and fold
// factors are untouched.
func SubstituteBounds(e ir.Expr, buf symbols.ID, bounds ir.Box) ir.Expr {
	var m traverse.Mutator
	m.RewriteExpr = func(_ *traverse.Mutator, node ir.Expr) (ir.Expr, bool) {
		if node.Kind != ir.ExprIntrinsic {
			return node, false
		}
		d, _ := ir.As[ir.IntrinsicData](node)
		if d.Buf != buf {
			return node, false
		}
		switch d.Func {
		case ir.BufferMin, ir.BufferMax, ir.BufferExtent:
		default:
			return node, false
		}
		idx, ok := dimIndex(d.Dim)
		if !ok || idx < 0 || idx >= len(bounds) {
			return node, false
		}
		switch d.Func {
		case ir.BufferMin:
			return bounds[idx].Min, true
		case ir.BufferMax:
			return bounds[idx].Max, true
		case ir.BufferExtent:
			return bounds[idx].Extent(), true
		}
		return node, false
	}
	return m.MutateExpr(e)
}

// SubstituteFoldFactor replaces buffer_fold_factor(buf, dim) with factor,
// and buffer_fold_factor(buf, d) for every other dimension d of buf with
// +∞ (unfolded) — used once per allocate in the slide-and-fold pass, right
// before that allocate's dims are rewritten to carry factor themselves.
func SubstituteFoldFactor(e ir.Expr, buf symbols.ID, dim int, factor ir.Expr) ir.Expr {
	var m traverse.Mutator
	m.RewriteExpr = func(_ *traverse.Mutator, node ir.Expr) (ir.Expr, bool) {
		if node.Kind != ir.ExprIntrinsic {
			return node, false
		}
		d, _ := ir.As[ir.IntrinsicData](node)
		if d.Buf != buf || d.Func != ir.BufferFoldFactor {
			return node, false
		}
		idx, ok := dimIndex(d.Dim)
		if !ok {
			return node, false
		}
		if idx == dim {
			return factor, true
		}
		return ir.PosInf(), true
	}
	return m.MutateExpr(e)
}
