package postpass

import (
	"loomcc/internal/ir"
	"loomcc/internal/symbols"
	"loomcc/internal/traverse"
)

// reduceScopes narrows every scoping node (let, allocate, make_buffer,
// crop_buffer, crop_dim, slice_buffer, slice_dim, truncate_rank) to the
// smallest sub-block of its body that actually depends on the symbol it
// binds: statements before the first dependent one, and statements after
// the last one, are hoisted outside the scope entirely. A scope whose
// body turns out not to depend on its own symbol at all is elided,
// leaving just the hoisted statements behind.
func reduceScopes(root ir.Stmt) ir.Stmt {
	var m traverse.Mutator
	m.RewriteStmt = rewriteScope
	return m.MutateStmt(root)
}

func rewriteScope(m *traverse.Mutator, s ir.Stmt) (ir.Stmt, bool) {
	switch s.Kind {
	case ir.StmtLet:
		d, _ := ir.AsStmt[ir.LetStmtData](s)
		value := m.MutateExpr(d.Value)
		return reduceScope(m, d.Sym, d.Body, func(body ir.Stmt) ir.Stmt {
			return ir.LetStmt(d.Sym, value, body)
		}), true

	case ir.StmtAllocate:
		d, _ := ir.AsStmt[ir.AllocateData](s)
		return reduceScope(m, d.Sym, d.Body, func(body ir.Stmt) ir.Stmt {
			return ir.Allocate(d.Sym, d.Storage, d.ElemSize, d.Dims, body)
		}), true

	case ir.StmtMakeBuffer:
		d, _ := ir.AsStmt[ir.MakeBufferData](s)
		return reduceScope(m, d.Sym, d.Body, func(body ir.Stmt) ir.Stmt {
			return ir.MakeBufferStmt(d.Sym, d.Base, d.ElemSize, d.Dims, body)
		}), true

	case ir.StmtCropBuffer:
		d, _ := ir.AsStmt[ir.CropBufferData](s)
		return reduceScope(m, d.Sym, d.Body, func(body ir.Stmt) ir.Stmt {
			return ir.CropBuffer(d.Sym, d.Box, body)
		}), true

	case ir.StmtCropDim:
		d, _ := ir.AsStmt[ir.CropDimData](s)
		return reduceScope(m, d.Sym, d.Body, func(body ir.Stmt) ir.Stmt {
			return ir.CropDim(d.Sym, d.Dim, d.Bounds, body)
		}), true

	case ir.StmtSliceBuffer:
		d, _ := ir.AsStmt[ir.SliceBufferData](s)
		return reduceScope(m, d.Sym, d.Body, func(body ir.Stmt) ir.Stmt {
			return ir.SliceBuffer(d.Sym, d.At, body)
		}), true

	case ir.StmtSliceDim:
		d, _ := ir.AsStmt[ir.SliceDimData](s)
		return reduceScope(m, d.Sym, d.Body, func(body ir.Stmt) ir.Stmt {
			return ir.SliceDim(d.Sym, d.Dim, d.At, body)
		}), true

	case ir.StmtTruncateRank:
		d, _ := ir.AsStmt[ir.TruncateRankData](s)
		return reduceScope(m, d.Sym, d.Body, func(body ir.Stmt) ir.Stmt {
			return ir.TruncateRank(d.Sym, d.Rank, body)
		}), true

	default:
		return s, false
	}
}

// reduceScope recurses into body (so nested scopes are reduced first,
// innermost out), splits the result around sym's live range, and either
// elides the scope (sym's own body never used it) or rebuilds it around
// just the live middle.
func reduceScope(m *traverse.Mutator, sym symbols.ID, body ir.Stmt, rebuild func(ir.Stmt) ir.Stmt) ir.Stmt {
	newBody := m.MutateStmt(body)
	before, middle, after := splitBody(newBody, sym)
	if !middle.Defined() {
		return ir.MakeBlock(before, after)
	}
	return ir.MakeBlock(ir.MakeBlock(before, rebuild(middle)), after)
}

// splitBody flattens body's top-level block chain and partitions it into
// a leading run that doesn't depend on sym, a trailing run (scanned from
// the end of what's left) that also doesn't, and whatever's left in
// between.
func splitBody(body ir.Stmt, sym symbols.ID) (before, middle, after ir.Stmt) {
	stmts := flattenBlock(body)

	i := 0
	for i < len(stmts) && !stmtDependsOn(stmts[i], sym) {
		i++
	}
	rest := stmts[i:]

	j := len(rest)
	for j > 0 && !stmtDependsOn(rest[j-1], sym) {
		j--
	}

	return ir.Blocks(stmts[:i]...), ir.Blocks(rest[:j]...), ir.Blocks(rest[j:]...)
}

// flattenBlock unfolds a left-associative chain of block nodes into an
// ordered slice of its leaf statements, so splitBody can scan and
// re-partition them without rebuilding the block tree by hand.
func flattenBlock(s ir.Stmt) []ir.Stmt {
	if !s.Defined() {
		return nil
	}
	if s.Kind != ir.StmtBlock {
		return []ir.Stmt{s}
	}
	d, _ := ir.AsStmt[ir.BlockData](s)
	return append(flattenBlock(d.A), flattenBlock(d.B)...)
}

// stmtDependsOn reports whether any statement or expression reachable
// from s mentions sym: as a bound variable, as a call_stmt/copy_stmt
// input or output, or as the buffer a nested crop/slice/truncate names.
// A buffer symbol is referenced by its statement nodes directly (never
// wrapped in a var expression the way a scalar is), so this checks both.
func stmtDependsOn(s ir.Stmt, sym symbols.ID) bool {
	found := false
	traverse.VisitStmt(s, func(n ir.Stmt) bool {
		if stmtNamesSymbol(n, sym) {
			found = true
		}
		return !found
	}, func(e ir.Expr) bool {
		if v, ok := ir.As[ir.VarData](e); ok && v.Sym == sym {
			found = true
		}
		return !found
	})
	return found
}

func stmtNamesSymbol(s ir.Stmt, sym symbols.ID) bool {
	switch s.Kind {
	case ir.StmtCall:
		d, _ := ir.AsStmt[ir.CallStmtData](s)
		for _, in := range d.Inputs {
			if in == sym {
				return true
			}
		}
		for _, out := range d.Outputs {
			if out == sym {
				return true
			}
		}
	case ir.StmtCopy:
		d, _ := ir.AsStmt[ir.CopyStmtData](s)
		return d.Src == sym || d.Dst == sym
	case ir.StmtCropBuffer:
		d, _ := ir.AsStmt[ir.CropBufferData](s)
		return d.Sym == sym
	case ir.StmtCropDim:
		d, _ := ir.AsStmt[ir.CropDimData](s)
		return d.Sym == sym
	case ir.StmtSliceBuffer:
		d, _ := ir.AsStmt[ir.SliceBufferData](s)
		return d.Sym == sym
	case ir.StmtSliceDim:
		d, _ := ir.AsStmt[ir.SliceDimData](s)
		return d.Sym == sym
	case ir.StmtTruncateRank:
		d, _ := ir.AsStmt[ir.TruncateRankData](s)
		return d.Sym == sym
	case ir.StmtMakeBuffer:
		d, _ := ir.AsStmt[ir.MakeBufferData](s)
		return d.Sym == sym
	}
	return false
}
