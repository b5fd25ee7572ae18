package slide

import (
	"context"

	"loomcc/internal/ir"
	"loomcc/internal/subst"
	"loomcc/internal/trace"
)

// allocate implements the allocate rule: push the node's own declared
// dims as this buffer's bounds (set by the bounds inferrer, not
// recomputed here), recurse, then resolve every buffer_fold_factor
// reference the bounds inferrer left symbolic in this buffer's own dims
// against whatever dimension stage() decided to fold — or to +∞,
// meaning unfolded, when nothing did.
func (sl *Slider) allocate(ctx context.Context, s ir.Stmt) ir.Stmt {
	d, _ := ir.AsStmt[ir.AllocateData](s)

	declared := make(ir.Box, len(d.Dims))
	for i, dim := range d.Dims {
		declared[i] = dim.Bounds
	}
	binding := sl.pushBufferBounds(d.Sym, declared)
	span := trace.Begin(sl.tracer, trace.ScopeBuffer, "slide:"+sl.tab.Name(d.Sym), 0)
	body := sl.stmt(ctx, d.Body)
	span.End("")
	binding.Release()

	if sl.err != nil {
		return ir.Allocate(d.Sym, d.Storage, d.ElemSize, d.Dims, body)
	}

	entry, hasFold := sl.foldFactors.Get(d.Sym)
	foldDim := -1
	var factor ir.Expr
	if hasFold {
		foldDim = entry.dim
		factor = entry.factor
	}

	newDims := make([]ir.Dim, len(d.Dims))
	for i, od := range d.Dims {
		nd := ir.Dim{
			Bounds: ir.Interval{
				Min: subst.SubstituteFoldFactor(od.Bounds.Min, d.Sym, foldDim, factor),
				Max: subst.SubstituteFoldFactor(od.Bounds.Max, d.Sym, foldDim, factor),
			},
			Stride:     subst.SubstituteFoldFactor(od.Stride, d.Sym, foldDim, factor),
			FoldFactor: od.FoldFactor,
		}
		if i == foldDim {
			nd.FoldFactor = factor
		}
		newDims[i] = nd
	}
	sl.foldFactors.Clear(d.Sym)

	return ir.Allocate(d.Sym, d.Storage, d.ElemSize, newDims, body)
}
