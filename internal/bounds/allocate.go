package bounds

import (
	"context"
	"fmt"

	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/simplify"
	"loomcc/internal/subst"
	"loomcc/internal/symbols"
	"loomcc/internal/trace"
)

// allocate implements §4.E rule 1: push an empty demand box for the new
// buffer, recurse, then size the allocation to exactly what was demanded
// (validating any user-supplied override along the way) and propagate the
// now-concrete bounds into every sibling demand still open.
func (inf *Inferrer) allocate(ctx context.Context, s ir.Stmt) ir.Stmt {
	d, _ := ir.AsStmt[ir.AllocateData](s)
	rank := len(d.Dims)
	inf.ranks.Set(d.Sym, rank)

	binding := inf.infer.Bind(d.Sym, emptyBoxOfRank(rank))
	span := trace.Begin(inf.tracer, trace.ScopeBuffer, "allocate:"+inf.tab.Name(d.Sym), 0)
	body := inf.stmt(ctx, d.Body)
	span.End("")
	demand, _ := inf.infer.Get(d.Sym)
	binding.Release()

	if inf.err != nil {
		return ir.Allocate(d.Sym, d.Storage, d.ElemSize, d.Dims, body)
	}

	for i, dim := range d.Dims {
		if !dim.Bounds.Min.Defined() || !dim.Bounds.Max.Defined() {
			continue
		}
		missesLow := simplify.Simplify(ir.BinLt(demand[i].Min, dim.Bounds.Min))
		missesHigh := simplify.Simplify(ir.BinLt(dim.Bounds.Max, demand[i].Max))
		if isConstTrue(missesLow) || isConstTrue(missesHigh) {
			inf.fail(diag.DimOverrideTooSmall, d.Sym, fmt.Sprintf("dim %d", i),
				"user-supplied allocate dim is narrower than the inferred demand")
			return ir.Allocate(d.Sym, d.Storage, d.ElemSize, d.Dims, body)
		}
	}

	newDims := computeDims(d.Sym, d.ElemSize, d.Dims, demand)

	inf.propagateIntoSiblings(d.Sym, demand)
	inf.infer.Clear(d.Sym)

	return ir.Allocate(d.Sym, d.Storage, d.ElemSize, newDims, body)
}

// computeDims builds the concrete dims vector from the accumulated
// demand, following the accumulated_stride recurrence: stride_0 =
// elem_size, stride_{d+1} = stride_d * min(extent_d, fold_factor(sym,d)).
// A dimension's fold factor is left symbolic (buffer_fold_factor(sym,d))
// when the caller never pre-specified one, since slide-and-fold hasn't
// decided fold factors yet at this point in the pipeline.
func computeDims(sym symbols.ID, elemSize ir.Expr, orig []ir.Dim, demand ir.Box) []ir.Dim {
	rank := len(orig)
	strides := make([]ir.Expr, rank)
	if rank > 0 {
		strides[0] = elemSize
	}
	for d := 1; d < rank; d++ {
		fold := orig[d-1].FoldFactor
		if !fold.Defined() {
			fold = ir.BufferField(ir.BufferFoldFactor, sym, ir.Const(int64(d-1)))
		}
		extent := demand[d-1].Extent()
		strides[d] = simplify.Simplify(ir.BinMul(strides[d-1], ir.BinMin(extent, fold)))
	}
	out := make([]ir.Dim, rank)
	for d := 0; d < rank; d++ {
		out[d] = ir.Dim{
			Bounds:     ir.Interval{Min: demand[d].Min, Max: demand[d].Max},
			Stride:     strides[d],
			FoldFactor: orig[d].FoldFactor,
		}
	}
	return out
}

// propagateIntoSiblings rewrites every other buffer's still-open demand
// box, substituting sym's now-concrete bounds for any buffer_min/max/
// extent(sym, *) reference it contains — allocation bounds flow outward
// into whatever else was already demanding a view of this buffer.
func (inf *Inferrer) propagateIntoSiblings(sym symbols.ID, demand ir.Box) {
	type update struct {
		buf symbols.ID
		box ir.Box
	}
	var updates []update
	inf.infer.Each(func(buf symbols.ID, box ir.Box) {
		if buf == sym {
			return
		}
		next := make(ir.Box, len(box))
		for i, iv := range box {
			next[i] = ir.Interval{
				Min: subst.SubstituteBounds(iv.Min, sym, demand),
				Max: subst.SubstituteBounds(iv.Max, sym, demand),
			}
		}
		updates = append(updates, update{buf: buf, box: next})
	})
	for _, u := range updates {
		inf.infer.Set(u.buf, u.box)
	}
}

func isConstTrue(e ir.Expr) bool {
	c, ok := ir.As[ir.ConstData](e)
	return ok && c.Kind == ir.ConstFinite && c.Value != 0
}
