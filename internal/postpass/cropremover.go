package postpass

import (
	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/symbols"
	"loomcc/internal/traverse"
)

// removeDeadInputCrops drops a crop_buffer/crop_dim whose symbol is never
// written by a call_stmt or copy_stmt anywhere inside it: once bounds
// inference and slide-and-fold have run, such a crop only ever narrows an
// input nobody reads through the narrowed view for writing, so keeping it
// around serves no purpose but clutter.
func removeDeadInputCrops(tab *symbols.Table, report diag.Reporter, root ir.Stmt) (ir.Stmt, error) {
	cr := &cropRemover{tab: tab, report: report, usedAsOutput: symbols.NewMapT[bool]()}
	var m traverse.Mutator
	m.RewriteStmt = cr.rewrite
	out := m.MutateStmt(root)
	return out, cr.err
}

type cropRemover struct {
	tab          *symbols.Table
	report       diag.Reporter
	usedAsOutput *symbols.Map[bool]
	err          error
}

func (cr *cropRemover) fail(sym symbols.ID, detail, msg string) {
	at := diag.Location{Pass: "postpass.remove_dead_crops", Symbol: cr.tab.Name(sym), Detail: detail}
	diag.ReportError(cr.report, diag.SliceBeforeInfer, at, msg)
	cr.err = diag.Append(cr.err, diag.NewError(diag.SliceBeforeInfer, at, msg))
}

func (cr *cropRemover) rewrite(m *traverse.Mutator, s ir.Stmt) (ir.Stmt, bool) {
	switch s.Kind {
	case ir.StmtCall, ir.StmtCopy:
		for _, out := range ir.OutputsOf(s) {
			cr.usedAsOutput.Set(out, true)
		}
		return s, true

	case ir.StmtCropBuffer:
		d, _ := ir.AsStmt[ir.CropBufferData](s)
		return cr.dropIfDead(m, d.Sym, d.Body, func(body ir.Stmt) ir.Stmt {
			return ir.CropBuffer(d.Sym, d.Box, body)
		}), true

	case ir.StmtCropDim:
		d, _ := ir.AsStmt[ir.CropDimData](s)
		return cr.dropIfDead(m, d.Sym, d.Body, func(body ir.Stmt) ir.Stmt {
			return ir.CropDim(d.Sym, d.Dim, d.Bounds, body)
		}), true

	case ir.StmtSliceBuffer:
		d, _ := ir.AsStmt[ir.SliceBufferData](s)
		cr.fail(d.Sym, "slice_buffer", "input-crop removal ran before slice_buffer was lowered away")
		return s, true

	case ir.StmtSliceDim:
		d, _ := ir.AsStmt[ir.SliceDimData](s)
		cr.fail(d.Sym, "slice_dim", "input-crop removal ran before slice_dim was lowered away")
		return s, true

	case ir.StmtTruncateRank:
		d, _ := ir.AsStmt[ir.TruncateRankData](s)
		cr.fail(d.Sym, "truncate_rank", "input-crop removal ran before truncate_rank was lowered away")
		return s, true

	default:
		return s, false
	}
}

// dropIfDead scopes sym's used_as_output bit to false, recurses into
// body, and either drops the crop (replacing it with its rewritten body)
// or rebuilds it with rebuild, depending on whether the recursion ever
// set the bit back to true.
func (cr *cropRemover) dropIfDead(m *traverse.Mutator, sym symbols.ID, body ir.Stmt, rebuild func(ir.Stmt) ir.Stmt) ir.Stmt {
	binding := cr.usedAsOutput.Bind(sym, false)
	newBody := m.MutateStmt(body)
	used, _ := cr.usedAsOutput.Get(sym)
	binding.Release()

	if !used {
		return newBody
	}
	return rebuild(newBody)
}
