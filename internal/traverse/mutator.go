// Package traverse implements the generic bottom-up rewriter every pass
// from the simplifier through the post-passes is built on: a Mutator
// visits each node kind, and the default case reconstructs a node only if
// one of its children actually changed, otherwise it returns the original
// value untouched. A derived pass overrides only the variants it cares
// about; every other variant falls through to the default descent.
//
// Scoping across binders (let, loop, allocate, ...) is the caller's job,
// using symbols.Map's Bind/Release — this package only guarantees that
// a RewriteExpr/RewriteStmt hook sees a node before its children are
// visited, so a pass can push a binding, call m.MutateExpr/MutateStmt on
// the body itself, and pop the binding on the way back out even if the
// hook returns early.
package traverse

import "loomcc/internal/ir"

// ExprHook is called on e before its children are visited (pre-order). If
// handled is true, m stops here and returns out as-is without descending
// into e's children itself — the hook is responsible for recursing into
// whatever subtrees it wants visited, typically via m.MutateExpr. If
// handled is false, the Mutator performs its default bottom-up descent.
type ExprHook func(m *Mutator, e ir.Expr) (out ir.Expr, handled bool)

// StmtHook is the statement-side counterpart of ExprHook.
type StmtHook func(m *Mutator, s ir.Stmt) (out ir.Stmt, handled bool)

// Mutator is a rewriter over both IR trees. The zero value is the
// identity transform: every node is visited but nothing changes.
type Mutator struct {
	RewriteExpr ExprHook
	RewriteStmt StmtHook
}

// MutateExpr rewrites e, consulting RewriteExpr first and falling back to
// the default per-kind descent when the hook is nil or declines the node.
func (m *Mutator) MutateExpr(e ir.Expr) ir.Expr {
	if !e.Defined() {
		return e
	}
	if m.RewriteExpr != nil {
		if out, handled := m.RewriteExpr(m, e); handled {
			return out
		}
	}
	out, _ := m.descendExpr(e)
	return out
}

// mutateExprChild visits e as a child slot and reports whether the result
// differs from the input, so the parent can decide whether it needs to
// allocate a new Data struct of its own.
func (m *Mutator) mutateExprChild(e ir.Expr) (ir.Expr, bool) {
	if !e.Defined() {
		return e, false
	}
	if m.RewriteExpr != nil {
		if out, handled := m.RewriteExpr(m, e); handled {
			return out, true
		}
	}
	return m.descendExpr(e)
}

// descendExpr performs the default bottom-up reconstruction: visit every
// child, and only build a new node if at least one child actually changed.
func (m *Mutator) descendExpr(e ir.Expr) (ir.Expr, bool) {
	switch e.Kind {
	case ir.ExprInvalid, ir.ExprConst, ir.ExprVar, ir.ExprWildcard:
		return e, false

	case ir.ExprLet:
		d, _ := ir.As[ir.LetData](e)
		value, cv := m.mutateExprChild(d.Value)
		body, cb := m.mutateExprChild(d.Body)
		if !cv && !cb {
			return e, false
		}
		return ir.LetExpr(d.Sym, value, body), true

	case ir.ExprBinary:
		d, _ := ir.As[ir.BinaryData](e)
		a, ca := m.mutateExprChild(d.A)
		b, cb := m.mutateExprChild(d.B)
		if !ca && !cb {
			return e, false
		}
		return ir.Binary(d.Op, a, b), true

	case ir.ExprNot:
		d, _ := ir.As[ir.NotData](e)
		x, cx := m.mutateExprChild(d.X)
		if !cx {
			return e, false
		}
		return ir.Not(x), true

	case ir.ExprSelect:
		d, _ := ir.As[ir.SelectData](e)
		cond, cc := m.mutateExprChild(d.Cond)
		t, ct := m.mutateExprChild(d.T)
		f, cf := m.mutateExprChild(d.F)
		if !cc && !ct && !cf {
			return e, false
		}
		return ir.SelectExpr(cond, t, f), true

	case ir.ExprIntrinsic:
		d, _ := ir.As[ir.IntrinsicData](e)
		changed := false
		dim := d.Dim
		if d.Dim.Defined() {
			if nd, c := m.mutateExprChild(d.Dim); c {
				dim, changed = nd, true
			}
		}
		var args []ir.Expr
		if len(d.Args) > 0 {
			args = make([]ir.Expr, len(d.Args))
			for i, a := range d.Args {
				na, c := m.mutateExprChild(a)
				args[i] = na
				if c {
					changed = true
				}
			}
		}
		if !changed {
			return e, false
		}
		return ir.Expr{Kind: ir.ExprIntrinsic, Data: ir.IntrinsicData{
			Func: d.Func, Buf: d.Buf, Dim: dim, Args: args,
		}}, true

	default:
		return e, false
	}
}

// MutateStmt rewrites s, consulting RewriteStmt first and falling back to
// the default per-kind descent when the hook is nil or declines the node.
func (m *Mutator) MutateStmt(s ir.Stmt) ir.Stmt {
	if !s.Defined() {
		return s
	}
	if m.RewriteStmt != nil {
		if out, handled := m.RewriteStmt(m, s); handled {
			return out
		}
	}
	out, _ := m.descendStmt(s)
	return out
}

func (m *Mutator) mutateStmtChild(s ir.Stmt) (ir.Stmt, bool) {
	if !s.Defined() {
		return s, false
	}
	if m.RewriteStmt != nil {
		if out, handled := m.RewriteStmt(m, s); handled {
			return out, true
		}
	}
	return m.descendStmt(s)
}

func (m *Mutator) descendStmt(s ir.Stmt) (ir.Stmt, bool) {
	switch s.Kind {
	case ir.StmtInvalid:
		return s, false

	case ir.StmtLet:
		d, _ := ir.AsStmt[ir.LetStmtData](s)
		value, cv := m.mutateExprChild(d.Value)
		body, cb := m.mutateStmtChild(d.Body)
		if !cv && !cb {
			return s, false
		}
		return ir.LetStmt(d.Sym, value, body), true

	case ir.StmtBlock:
		d, _ := ir.AsStmt[ir.BlockData](s)
		a, ca := m.mutateStmtChild(d.A)
		b, cb := m.mutateStmtChild(d.B)
		if !ca && !cb {
			return s, false
		}
		return ir.MakeBlock(a, b), true

	case ir.StmtLoop:
		d, _ := ir.AsStmt[ir.LoopData](s)
		min, cMin := m.mutateExprChild(d.Bounds.Min)
		max, cMax := m.mutateExprChild(d.Bounds.Max)
		step, cStep := m.mutateExprChild(d.Step)
		body, cBody := m.mutateStmtChild(d.Body)
		if !cMin && !cMax && !cStep && !cBody {
			return s, false
		}
		return ir.Loop(d.Sym, d.Mode, ir.Interval{Min: min, Max: max}, step, body), true

	case ir.StmtIfThenElse:
		d, _ := ir.AsStmt[ir.IfThenElseData](s)
		cond, cc := m.mutateExprChild(d.Cond)
		then, ct := m.mutateStmtChild(d.Then)
		els, ce := m.mutateStmtChild(d.Else)
		if !cc && !ct && !ce {
			return s, false
		}
		return ir.IfThenElse(cond, then, els), true

	case ir.StmtAllocate:
		d, _ := ir.AsStmt[ir.AllocateData](s)
		elemSize, ce := m.mutateExprChild(d.ElemSize)
		dims, cd := m.mutateDims(d.Dims)
		body, cb := m.mutateStmtChild(d.Body)
		if !ce && !cd && !cb {
			return s, false
		}
		return ir.Allocate(d.Sym, d.Storage, elemSize, dims, body), true

	case ir.StmtMakeBuffer:
		d, _ := ir.AsStmt[ir.MakeBufferData](s)
		base, cbase := m.mutateExprChild(d.Base)
		elemSize, ce := m.mutateExprChild(d.ElemSize)
		dims, cd := m.mutateDims(d.Dims)
		body, cb := m.mutateStmtChild(d.Body)
		if !cbase && !ce && !cd && !cb {
			return s, false
		}
		return ir.MakeBufferStmt(d.Sym, base, elemSize, dims, body), true

	case ir.StmtCropBuffer:
		d, _ := ir.AsStmt[ir.CropBufferData](s)
		box, cbox := m.mutateBox(d.Box)
		body, cb := m.mutateStmtChild(d.Body)
		if !cbox && !cb {
			return s, false
		}
		return ir.CropBuffer(d.Sym, box, body), true

	case ir.StmtCropDim:
		d, _ := ir.AsStmt[ir.CropDimData](s)
		min, cMin := m.mutateExprChild(d.Bounds.Min)
		max, cMax := m.mutateExprChild(d.Bounds.Max)
		body, cb := m.mutateStmtChild(d.Body)
		if !cMin && !cMax && !cb {
			return s, false
		}
		return ir.CropDim(d.Sym, d.Dim, ir.Interval{Min: min, Max: max}, body), true

	case ir.StmtSliceBuffer:
		d, _ := ir.AsStmt[ir.SliceBufferData](s)
		at, cAt := m.mutateExprSlice(d.At)
		body, cb := m.mutateStmtChild(d.Body)
		if !cAt && !cb {
			return s, false
		}
		return ir.SliceBuffer(d.Sym, at, body), true

	case ir.StmtSliceDim:
		d, _ := ir.AsStmt[ir.SliceDimData](s)
		at, cAt := m.mutateExprChild(d.At)
		body, cb := m.mutateStmtChild(d.Body)
		if !cAt && !cb {
			return s, false
		}
		return ir.SliceDim(d.Sym, d.Dim, at, body), true

	case ir.StmtTruncateRank:
		d, _ := ir.AsStmt[ir.TruncateRankData](s)
		body, cb := m.mutateStmtChild(d.Body)
		if !cb {
			return s, false
		}
		return ir.TruncateRank(d.Sym, d.Rank, body), true

	case ir.StmtCall:
		return s, false

	case ir.StmtCopy:
		d, _ := ir.AsStmt[ir.CopyStmtData](s)
		padding, cp := m.mutateExprChild(d.Padding)
		if !cp {
			return s, false
		}
		return ir.CopyStmt(d.Src, d.Dst, padding), true

	case ir.StmtCheck:
		d, _ := ir.AsStmt[ir.CheckData](s)
		cond, cc := m.mutateExprChild(d.Cond)
		if !cc {
			return s, false
		}
		return ir.Check(cond), true

	default:
		return s, false
	}
}

func (m *Mutator) mutateExprSlice(in []ir.Expr) ([]ir.Expr, bool) {
	if len(in) == 0 {
		return in, false
	}
	changed := false
	out := make([]ir.Expr, len(in))
	for i, e := range in {
		ne, c := m.mutateExprChild(e)
		out[i] = ne
		if c {
			changed = true
		}
	}
	if !changed {
		return in, false
	}
	return out, true
}

func (m *Mutator) mutateDims(in []ir.Dim) ([]ir.Dim, bool) {
	if len(in) == 0 {
		return in, false
	}
	changed := false
	out := make([]ir.Dim, len(in))
	for i, d := range in {
		min, cMin := m.mutateExprChild(d.Bounds.Min)
		max, cMax := m.mutateExprChild(d.Bounds.Max)
		stride, cStride := m.mutateExprChild(d.Stride)
		fold := d.FoldFactor
		cFold := false
		if d.FoldFactor.Defined() {
			fold, cFold = m.mutateExprChild(d.FoldFactor)
		}
		out[i] = ir.Dim{Bounds: ir.Interval{Min: min, Max: max}, Stride: stride, FoldFactor: fold}
		if cMin || cMax || cStride || cFold {
			changed = true
		}
	}
	if !changed {
		return in, false
	}
	return out, true
}

func (m *Mutator) mutateBox(in ir.Box) (ir.Box, bool) {
	if len(in) == 0 {
		return in, false
	}
	changed := false
	out := make(ir.Box, len(in))
	for i, iv := range in {
		min, cMin := m.mutateExprChild(iv.Min)
		max, cMax := m.mutateExprChild(iv.Max)
		out[i] = ir.Interval{Min: min, Max: max}
		if cMin || cMax {
			changed = true
		}
	}
	if !changed {
		return in, false
	}
	return out, true
}
