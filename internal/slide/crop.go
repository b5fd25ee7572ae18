package slide

import (
	"context"

	"loomcc/internal/ir"
	"loomcc/internal/subst"
	"loomcc/internal/symbols"
)

// mergeCropBox overrides cur's defined endpoints with box's, growing cur
// to box's rank (as the unbounded interval) if cur is empty, mirroring
// merge_crop's handling of a buffer with no prior scoped bounds.
func mergeCropBox(cur ir.Box, box ir.Box) ir.Box {
	rank := len(box)
	if len(cur) < rank {
		grown := unboundedBoxOfRank(rank)
		copy(grown, cur)
		cur = grown
	}
	next := cur.Clone()
	for d := range box {
		if box[d].Min.Defined() {
			next[d].Min = box[d].Min
		}
		if box[d].Max.Defined() {
			next[d].Max = box[d].Max
		}
	}
	return next
}

// mergeCropDim is mergeCropBox specialized to a single dimension.
func mergeCropDim(cur ir.Box, dim int, bounds ir.Interval) ir.Box {
	rank := dim + 1
	if len(cur) < rank {
		grown := unboundedBoxOfRank(rank)
		copy(grown, cur)
		cur = grown
	}
	next := cur.Clone()
	if bounds.Min.Defined() {
		next[dim].Min = bounds.Min
	}
	if bounds.Max.Defined() {
		next[dim].Max = bounds.Max
	}
	return next
}

func unboundedBoxOfRank(rank int) ir.Box {
	out := make(ir.Box, rank)
	for d := range out {
		out[d] = ir.UnboundedInterval()
	}
	return out
}

// inlineKnownBounds rewrites every buffer_min/max/extent reference inside
// box against every other buffer this call currently knows the bounds
// of, so a crop expressed in terms of a sibling buffer's extent sees that
// buffer's latest scoped value rather than a dangling metadata query.
func (sl *Slider) inlineKnownBounds(box ir.Box) ir.Box {
	type fact struct {
		sym symbols.ID
		box ir.Box
	}
	var facts []fact
	sl.bufferBounds.Each(func(sym symbols.ID, b ir.Box) {
		facts = append(facts, fact{sym: sym, box: b})
	})
	out := box.Clone()
	for _, f := range facts {
		for d := range out {
			out[d].Min = subst.SubstituteBounds(out[d].Min, f.sym, f.box)
			out[d].Max = subst.SubstituteBounds(out[d].Max, f.sym, f.box)
		}
	}
	return out
}

// cropBuffer implements the crop_buffer rule: merge the crop into this
// call's view of the buffer's bounds, inline what's known about other
// buffers into the result, recurse, and rebuild using whatever stage()
// decided while it was in scope.
func (sl *Slider) cropBuffer(ctx context.Context, s ir.Stmt) ir.Stmt {
	d, _ := ir.AsStmt[ir.CropBufferData](s)
	cur, _ := sl.bufferBounds.Get(d.Sym)
	merged := sl.inlineKnownBounds(mergeCropBox(cur, d.Box))

	binding := sl.bufferBounds.Bind(d.Sym, merged)
	body := sl.stmt(ctx, d.Body)
	newBounds, ok := sl.bufferBounds.Get(d.Sym)
	binding.Release()

	if ok {
		return ir.CropBuffer(d.Sym, newBounds, body)
	}
	return ir.CropBuffer(d.Sym, d.Box, body)
}

// cropDim is cropBuffer specialized to a single dimension.
func (sl *Slider) cropDim(ctx context.Context, s ir.Stmt) ir.Stmt {
	d, _ := ir.AsStmt[ir.CropDimData](s)
	cur, _ := sl.bufferBounds.Get(d.Sym)
	merged := sl.inlineKnownBounds(mergeCropDim(cur, d.Dim, d.Bounds))

	binding := sl.bufferBounds.Bind(d.Sym, merged)
	body := sl.stmt(ctx, d.Body)
	newBounds, ok := sl.bufferBounds.Get(d.Sym)
	binding.Release()

	if ok && d.Dim < len(newBounds) {
		return ir.CropDim(d.Sym, d.Dim, newBounds[d.Dim], body)
	}
	return ir.CropDim(d.Sym, d.Dim, d.Bounds, body)
}
