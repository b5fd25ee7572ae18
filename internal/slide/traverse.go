package slide

import (
	"context"

	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/symbols"
)

// stmt rewrites s bottom-up, dispatching to the handler the spec assigns
// each node kind. Kinds with no rule of their own (let, if_then_else,
// check) just recurse into their bodies unchanged.
func (sl *Slider) stmt(ctx context.Context, s ir.Stmt) ir.Stmt {
	if sl.err != nil || !s.Defined() {
		return s
	}
	select {
	case <-ctx.Done():
		return s
	default:
	}

	switch s.Kind {
	case ir.StmtLet:
		d, _ := ir.AsStmt[ir.LetStmtData](s)
		return ir.LetStmt(d.Sym, d.Value, sl.stmt(ctx, d.Body))

	case ir.StmtBlock:
		return sl.block(ctx, s)

	case ir.StmtIfThenElse:
		d, _ := ir.AsStmt[ir.IfThenElseData](s)
		return ir.IfThenElse(d.Cond, sl.stmt(ctx, d.Then), sl.stmt(ctx, d.Else))

	case ir.StmtLoop:
		return sl.loop(ctx, s)

	case ir.StmtAllocate:
		return sl.allocate(ctx, s)

	case ir.StmtMakeBuffer:
		// Caller-supplied storage; slide has nothing to narrow there, but
		// its body can still carry buffers this pass does own.
		d, _ := ir.AsStmt[ir.MakeBufferData](s)
		return ir.MakeBufferStmt(d.Sym, d.Base, d.ElemSize, d.Dims, sl.stmt(ctx, d.Body))

	case ir.StmtCropBuffer:
		return sl.cropBuffer(ctx, s)

	case ir.StmtCropDim:
		return sl.cropDim(ctx, s)

	case ir.StmtSliceBuffer:
		d, _ := ir.AsStmt[ir.SliceBufferData](s)
		sl.fail(diag.SliceBeforeInfer, d.Sym, "slice_buffer", "slide ran before slice_buffer was lowered away")
		return s

	case ir.StmtSliceDim:
		d, _ := ir.AsStmt[ir.SliceDimData](s)
		sl.fail(diag.SliceBeforeInfer, d.Sym, "slice_dim", "slide ran before slice_dim was lowered away")
		return s

	case ir.StmtTruncateRank:
		d, _ := ir.AsStmt[ir.TruncateRankData](s)
		sl.fail(diag.SliceBeforeInfer, d.Sym, "truncate_rank", "slide ran before truncate_rank was lowered away")
		return s

	case ir.StmtCall:
		d, _ := ir.AsStmt[ir.CallStmtData](s)
		sl.stage(d.Outputs)
		return s

	case ir.StmtCopy:
		d, _ := ir.AsStmt[ir.CopyStmtData](s)
		sl.stage([]symbols.ID{d.Dst})
		return s

	default:
		return s
	}
}

// block visits b before a (reverse of construction order), mirroring the
// source: a later statement's demand on a shared buffer needs to be known
// before an earlier one decides how to fold it.
func (sl *Slider) block(ctx context.Context, s ir.Stmt) ir.Stmt {
	d, _ := ir.AsStmt[ir.BlockData](s)
	b := sl.stmt(ctx, d.B)
	a := sl.stmt(ctx, d.A)
	return ir.MakeBlock(a, b)
}
