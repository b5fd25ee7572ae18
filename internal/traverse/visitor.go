package traverse

import "loomcc/internal/ir"

// VisitExpr calls fn on e and every expression it transitively contains,
// pre-order. fn returning false prunes that subtree (its children are not
// visited), mirroring early-exit searches like depends_on.
func VisitExpr(e ir.Expr, fn func(ir.Expr) bool) {
	if !e.Defined() || !fn(e) {
		return
	}
	switch e.Kind {
	case ir.ExprLet:
		d, _ := ir.As[ir.LetData](e)
		VisitExpr(d.Value, fn)
		VisitExpr(d.Body, fn)
	case ir.ExprBinary:
		d, _ := ir.As[ir.BinaryData](e)
		VisitExpr(d.A, fn)
		VisitExpr(d.B, fn)
	case ir.ExprNot:
		d, _ := ir.As[ir.NotData](e)
		VisitExpr(d.X, fn)
	case ir.ExprSelect:
		d, _ := ir.As[ir.SelectData](e)
		VisitExpr(d.Cond, fn)
		VisitExpr(d.T, fn)
		VisitExpr(d.F, fn)
	case ir.ExprIntrinsic:
		d, _ := ir.As[ir.IntrinsicData](e)
		VisitExpr(d.Dim, fn)
		for _, a := range d.Args {
			VisitExpr(a, fn)
		}
	}
}

// VisitStmt calls fn on s and every statement and expression it
// transitively contains, pre-order, sharing the same fn signature over
// Expr as VisitExpr by accepting a pair of callbacks.
func VisitStmt(s ir.Stmt, onStmt func(ir.Stmt) bool, onExpr func(ir.Expr) bool) {
	if !s.Defined() {
		return
	}
	if onStmt != nil && !onStmt(s) {
		return
	}
	visitExprIn := func(e ir.Expr) {
		if onExpr != nil {
			VisitExpr(e, onExpr)
		}
	}
	switch s.Kind {
	case ir.StmtLet:
		d, _ := ir.AsStmt[ir.LetStmtData](s)
		visitExprIn(d.Value)
		VisitStmt(d.Body, onStmt, onExpr)
	case ir.StmtBlock:
		d, _ := ir.AsStmt[ir.BlockData](s)
		VisitStmt(d.A, onStmt, onExpr)
		VisitStmt(d.B, onStmt, onExpr)
	case ir.StmtLoop:
		d, _ := ir.AsStmt[ir.LoopData](s)
		visitExprIn(d.Bounds.Min)
		visitExprIn(d.Bounds.Max)
		visitExprIn(d.Step)
		VisitStmt(d.Body, onStmt, onExpr)
	case ir.StmtIfThenElse:
		d, _ := ir.AsStmt[ir.IfThenElseData](s)
		visitExprIn(d.Cond)
		VisitStmt(d.Then, onStmt, onExpr)
		VisitStmt(d.Else, onStmt, onExpr)
	case ir.StmtAllocate:
		d, _ := ir.AsStmt[ir.AllocateData](s)
		visitExprIn(d.ElemSize)
		for _, dim := range d.Dims {
			visitExprIn(dim.Bounds.Min)
			visitExprIn(dim.Bounds.Max)
			visitExprIn(dim.Stride)
			visitExprIn(dim.FoldFactor)
		}
		VisitStmt(d.Body, onStmt, onExpr)
	case ir.StmtMakeBuffer:
		d, _ := ir.AsStmt[ir.MakeBufferData](s)
		visitExprIn(d.Base)
		visitExprIn(d.ElemSize)
		for _, dim := range d.Dims {
			visitExprIn(dim.Bounds.Min)
			visitExprIn(dim.Bounds.Max)
			visitExprIn(dim.Stride)
			visitExprIn(dim.FoldFactor)
		}
		VisitStmt(d.Body, onStmt, onExpr)
	case ir.StmtCropBuffer:
		d, _ := ir.AsStmt[ir.CropBufferData](s)
		for _, iv := range d.Box {
			visitExprIn(iv.Min)
			visitExprIn(iv.Max)
		}
		VisitStmt(d.Body, onStmt, onExpr)
	case ir.StmtCropDim:
		d, _ := ir.AsStmt[ir.CropDimData](s)
		visitExprIn(d.Bounds.Min)
		visitExprIn(d.Bounds.Max)
		VisitStmt(d.Body, onStmt, onExpr)
	case ir.StmtSliceBuffer:
		d, _ := ir.AsStmt[ir.SliceBufferData](s)
		for _, a := range d.At {
			visitExprIn(a)
		}
		VisitStmt(d.Body, onStmt, onExpr)
	case ir.StmtSliceDim:
		d, _ := ir.AsStmt[ir.SliceDimData](s)
		visitExprIn(d.At)
		VisitStmt(d.Body, onStmt, onExpr)
	case ir.StmtTruncateRank:
		d, _ := ir.AsStmt[ir.TruncateRankData](s)
		VisitStmt(d.Body, onStmt, onExpr)
	case ir.StmtCopy:
		d, _ := ir.AsStmt[ir.CopyStmtData](s)
		visitExprIn(d.Padding)
	case ir.StmtCheck:
		d, _ := ir.AsStmt[ir.CheckData](s)
		visitExprIn(d.Cond)
	}
}
