package postpass

import (
	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/symbols"
	"loomcc/internal/traverse"
)

// aliasInfo is the per-allocate bookkeeping buffer aliasing accumulates
// while it recurses into an allocate's body: every output symbol that
// consumed this buffer elementwise is a candidate to alias it to, unless
// some consumer turned out not to be elementwise at all, in which case
// the buffer can never be aliased away no matter how many candidates it
// collected before that point.
type aliasInfo struct {
	candidates map[symbols.ID]bool
	elementwise bool
}

// aliasBuffers rewrites an allocate whose buffer is consumed elementwise
// by every call_stmt that reads it, and by nothing else afterward, into a
// let binding that points the allocation's symbol straight at one of its
// consumer's output buffers instead of giving it storage of its own.
func aliasBuffers(tab *symbols.Table, report diag.Reporter, root ir.Stmt) (ir.Stmt, error) {
	al := &aliaser{
		tab:          tab,
		report:       report,
		info:         symbols.NewMapT[*aliasInfo](),
		bufferBounds: symbols.NewMapT[ir.Box](),
		aliases:      symbols.NewMapT[symbols.ID](),
	}
	var m traverse.Mutator
	m.RewriteStmt = al.rewrite
	out := m.MutateStmt(root)
	return out, al.err
}

type aliaser struct {
	tab          *symbols.Table
	report       diag.Reporter
	info         *symbols.Map[*aliasInfo]
	bufferBounds *symbols.Map[ir.Box]
	aliases      *symbols.Map[symbols.ID]
	err          error
}

func (al *aliaser) fail(sym symbols.ID, detail, msg string) {
	at := diag.Location{Pass: "postpass.alias_buffers", Symbol: al.tab.Name(sym), Detail: detail}
	diag.ReportError(al.report, diag.SliceBeforeInfer, at, msg)
	al.err = diag.Append(al.err, diag.NewError(diag.SliceBeforeInfer, at, msg))
}

func (al *aliaser) rewrite(m *traverse.Mutator, s ir.Stmt) (ir.Stmt, bool) {
	switch s.Kind {
	case ir.StmtAllocate:
		return al.visitAllocate(m, s), true

	case ir.StmtCall:
		al.visitCall(s)
		return s, true

	case ir.StmtCropBuffer:
		d, _ := ir.AsStmt[ir.CropBufferData](s)
		cur, _ := al.bufferBounds.Get(d.Sym)
		binding := al.bufferBounds.Bind(d.Sym, mergeCropBox(cur, d.Box))
		body := m.MutateStmt(d.Body)
		binding.Release()
		return ir.CropBuffer(d.Sym, d.Box, body), true

	case ir.StmtCropDim:
		d, _ := ir.AsStmt[ir.CropDimData](s)
		cur, _ := al.bufferBounds.Get(d.Sym)
		binding := al.bufferBounds.Bind(d.Sym, mergeCropDim(cur, d.Dim, d.Bounds))
		body := m.MutateStmt(d.Body)
		binding.Release()
		return ir.CropDim(d.Sym, d.Dim, d.Bounds, body), true

	case ir.StmtSliceBuffer:
		d, _ := ir.AsStmt[ir.SliceBufferData](s)
		al.fail(d.Sym, "slice_buffer", "buffer aliasing ran before slice_buffer was lowered away")
		return s, true

	case ir.StmtSliceDim:
		d, _ := ir.AsStmt[ir.SliceDimData](s)
		al.fail(d.Sym, "slice_dim", "buffer aliasing ran before slice_dim was lowered away")
		return s, true

	case ir.StmtTruncateRank:
		d, _ := ir.AsStmt[ir.TruncateRankData](s)
		al.fail(d.Sym, "truncate_rank", "buffer aliasing ran before truncate_rank was lowered away")
		return s, true

	default:
		return s, false
	}
}

func (al *aliaser) visitAllocate(m *traverse.Mutator, s ir.Stmt) ir.Stmt {
	d, _ := ir.AsStmt[ir.AllocateData](s)

	bounds := make(ir.Box, len(d.Dims))
	for i, dim := range d.Dims {
		bounds[i] = dim.Bounds
	}
	boundsBinding := al.bufferBounds.Bind(d.Sym, bounds)

	info := &aliasInfo{candidates: map[symbols.ID]bool{}, elementwise: true}
	infoBinding := al.info.Bind(d.Sym, info)
	body := m.MutateStmt(d.Body)
	infoBinding.Release()
	boundsBinding.Release()

	if info.elementwise && len(info.candidates) > 0 {
		target := pickCandidate(info.candidates)
		al.aliases.Set(d.Sym, target)
		al.forgetCandidate(target)

		check := ir.Check(aliasSafetyCheck(target, len(d.Dims)))
		return ir.LetStmt(d.Sym, ir.Var(target), ir.MakeBlock(check, body))
	}

	return ir.Allocate(d.Sym, d.Storage, d.ElemSize, d.Dims, body)
}

// forgetCandidate removes target from every other allocate's still-live
// candidate set, so a second allocate never also aliases to a buffer the
// first one already claimed.
func (al *aliaser) forgetCandidate(target symbols.ID) {
	al.info.Each(func(_ symbols.ID, info *aliasInfo) {
		delete(info.candidates, target)
	})
}

func (al *aliaser) visitCall(s ir.Stmt) {
	d, _ := ir.AsStmt[ir.CallStmtData](s)
	for _, out := range d.Outputs {
		for _, in := range d.Inputs {
			inBounds, hasBounds := al.bufferBounds.Get(in)
			info, hasInfo := al.info.Get(in)
			if !hasInfo {
				// Not a buffer this call has an allocate record for (an
				// input to the whole compilation, say): nothing to alias.
				continue
			}
			if !hasBounds || !isElementwise(inBounds, out) {
				info.elementwise = false
				return
			}
			info.candidates[out] = true
		}
	}
}

// isElementwise reports whether inX's bounds literally match out's own
// declared bounds dimension-for-dimension: a structural over-approximation
// of "every output point is a function of the same point of the input,"
// not a semantic proof (the bounds inferrer may have already rewritten
// inX in terms of the same buffer_min/buffer_max calls on out that a true
// elementwise stage would produce, which is what makes the match fire).
func isElementwise(inX ir.Box, out symbols.ID) bool {
	for d := range inX {
		if !ir.Match(inX[d].Min, ir.BufferField(ir.BufferMin, out, ir.Const(int64(d)))) {
			return false
		}
		if !ir.Match(inX[d].Max, ir.BufferField(ir.BufferMax, out, ir.Const(int64(d)))) {
			return false
		}
	}
	return true
}

// pickCandidate returns the smallest symbol ID in candidates, keeping
// the choice deterministic regardless of Go's randomized map iteration.
func pickCandidate(candidates map[symbols.ID]bool) symbols.ID {
	best := symbols.Invalid
	for c := range candidates {
		if best == symbols.Invalid || c < best {
			best = c
		}
	}
	return best
}

// aliasSafetyCheck builds the runtime assertion emitted whenever an
// alias decision is taken: each dimension of the aliased target must
// still have a non-empty range at the point of aliasing. The source this
// pass is grounded on speaks of asserting the aliased buffer has exactly
// one producer, which isn't something this IR's intrinsics can query
// directly; this per-dimension sanity check is the substitute.
func aliasSafetyCheck(target symbols.ID, rank int) ir.Expr {
	var cond ir.Expr
	for d := 0; d < rank; d++ {
		dim := ir.Const(int64(d))
		clause := ir.BinLe(ir.BufferField(ir.BufferMin, target, dim), ir.BufferField(ir.BufferMax, target, dim))
		if !cond.Defined() {
			cond = clause
			continue
		}
		cond = ir.BinAnd(cond, clause)
	}
	if !cond.Defined() {
		return ir.Const(1)
	}
	return cond
}
