package bounds

import (
	"context"

	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/simplify"
	"loomcc/internal/subst"
	"loomcc/internal/symbols"
)

// stmt rewrites s bottom-up, threading crops/infer through every node
// §4.E assigns a rule to. Statement kinds it has no rule for (let, block,
// if_then_else, check) just recurse into their own bodies unchanged.
func (inf *Inferrer) stmt(ctx context.Context, s ir.Stmt) ir.Stmt {
	if inf.err != nil || !s.Defined() {
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
		return ir.LetStmt(d.Sym, d.Value, inf.stmt(ctx, d.Body))

	case ir.StmtBlock:
		d, _ := ir.AsStmt[ir.BlockData](s)
		return ir.MakeBlock(inf.stmt(ctx, d.A), inf.stmt(ctx, d.B))

	case ir.StmtIfThenElse:
		d, _ := ir.AsStmt[ir.IfThenElseData](s)
		return ir.IfThenElse(d.Cond, inf.stmt(ctx, d.Then), inf.stmt(ctx, d.Else))

	case ir.StmtLoop:
		return inf.loop(ctx, s)

	case ir.StmtAllocate:
		return inf.allocate(ctx, s)

	case ir.StmtMakeBuffer:
		return inf.makeBuffer(ctx, s)

	case ir.StmtCropBuffer:
		d, _ := ir.AsStmt[ir.CropBufferData](s)
		b := inf.pushCropBuffer(d.Sym, d.Box)
		body := inf.stmt(ctx, d.Body)
		b.Release()
		return ir.CropBuffer(d.Sym, d.Box, body)

	case ir.StmtCropDim:
		d, _ := ir.AsStmt[ir.CropDimData](s)
		b := inf.pushCropDim(d.Sym, d.Dim, d.Bounds)
		body := inf.stmt(ctx, d.Body)
		b.Release()
		return ir.CropDim(d.Sym, d.Dim, d.Bounds, body)

	case ir.StmtSliceBuffer:
		d, _ := ir.AsStmt[ir.SliceBufferData](s)
		inf.fail(diag.SliceBeforeInfer, d.Sym, "slice_buffer", "slice_buffer must not appear before bounds inference has run")
		return s

	case ir.StmtSliceDim:
		d, _ := ir.AsStmt[ir.SliceDimData](s)
		inf.fail(diag.SliceBeforeInfer, d.Sym, "slice_dim", "slice_dim must not appear before bounds inference has run")
		return s

	case ir.StmtTruncateRank:
		d, _ := ir.AsStmt[ir.TruncateRankData](s)
		inf.fail(diag.SliceBeforeInfer, d.Sym, "truncate_rank", "truncate_rank must not appear before bounds inference has run")
		return s

	case ir.StmtCall:
		d, _ := ir.AsStmt[ir.CallStmtData](s)
		inf.consume(d.Inputs)
		return s

	case ir.StmtCopy:
		d, _ := ir.AsStmt[ir.CopyStmtData](s)
		inf.consume([]symbols.ID{d.Src})
		return s

	default:
		return s
	}
}

// consume folds each input's current crop into its accumulated demand
// (§4.E rule 2). A symbol with no enclosing allocate/make_buffer is a
// malformed-input bug: nothing ever pushed an infer[*] entry for it.
func (inf *Inferrer) consume(inputs []symbols.ID) {
	for _, i := range inputs {
		cur, ok := inf.infer.Get(i)
		if !ok {
			inf.fail(diag.MissingAllocation, i, "", "buffer consumed with no enclosing allocate or pipeline input")
			return
		}
		crop, ok := inf.crops.Get(i)
		if !ok {
			crop = unboundedBoxOfRank(len(cur))
		}
		inf.infer.Set(i, unionBox(cur, crop))
	}
}

// loop recurses into the body, then for every buffer whose accumulated
// demand still mentions the loop variable, substitutes the loop's own
// min/max for it and takes the symbolic hull — the demand as seen from
// outside the loop can no longer depend on a variable that doesn't exist
// out there (§4.E rule 4).
func (inf *Inferrer) loop(ctx context.Context, s ir.Stmt) ir.Stmt {
	d, _ := ir.AsStmt[ir.LoopData](s)
	body := inf.stmt(ctx, d.Body)
	if inf.err != nil {
		return ir.Loop(d.Sym, d.Mode, d.Bounds, d.Step, body)
	}

	result := ir.Loop(d.Sym, d.Mode, d.Bounds, d.Step, body)

	type projection struct {
		sym symbols.ID
		box ir.Box
	}
	var projected []projection

	inf.infer.Each(func(sym symbols.ID, box ir.Box) {
		if !boxMentions(box, d.Sym) {
			return
		}
		next := make(ir.Box, len(box))
		for i, iv := range box {
			atMin := subst.Substitute(iv.Min, ir.Var(d.Sym), d.Bounds.Min)
			atMax := subst.Substitute(iv.Max, ir.Var(d.Sym), d.Bounds.Max)
			atMinHigh := subst.Substitute(iv.Min, ir.Var(d.Sym), d.Bounds.Max)
			atMaxLow := subst.Substitute(iv.Max, ir.Var(d.Sym), d.Bounds.Min)
			next[i] = ir.Interval{
				Min: simplify.Simplify(ir.BinMin(atMin, atMinHigh)),
				Max: simplify.Simplify(ir.BinMax(atMax, atMaxLow)),
			}
		}
		projected = append(projected, projection{sym: sym, box: next})
	})

	for _, p := range projected {
		inf.infer.Set(p.sym, p.box)
		result = ir.CropBuffer(p.sym, p.box, result)
	}
	return result
}

func boxMentions(box ir.Box, sym symbols.ID) bool {
	for _, iv := range box {
		if subst.DependsOn(iv.Min, sym) || subst.DependsOn(iv.Max, sym) {
			return true
		}
	}
	return false
}

// emitInputChecks builds the input-sufficiency checks §4.E closes with:
// one triple of check statements per pipeline input, run before anything
// else so a caller-supplied buffer too small for what the pipeline needs
// is caught immediately rather than mid-run.
func (inf *Inferrer) emitInputChecks() ir.Stmt {
	var out ir.Stmt
	for _, in := range inf.inputs {
		demand := in.demand
		for d := 0; d < in.rank; d++ {
			min := ir.BufferField(ir.BufferMin, in.sym, ir.Const(int64(d)))
			max := ir.BufferField(ir.BufferMax, in.sym, ir.Const(int64(d)))
			fold := ir.BufferField(ir.BufferFoldFactor, in.sym, ir.Const(int64(d)))
			out = ir.MakeBlock(out, ir.Check(ir.BinLe(min, demand[d].Min)))
			out = ir.MakeBlock(out, ir.Check(ir.BinLe(demand[d].Max, max)))
			out = ir.MakeBlock(out, ir.Check(ir.BinLe(demand[d].Extent(), fold)))
		}
	}
	return out
}
