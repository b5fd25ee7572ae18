// Package bounds implements the bounds inferrer: the pass that walks a
// statement tree top-down, accumulates per-buffer storage demand from
// every crop and every call_stmt/copy_stmt input, and rewrites each
// allocate's dims to the smallest box that demand justifies. Buffers fed
// from outside the pipeline get a runtime check instead, since their
// storage is not this compiler's to resize.
package bounds

import (
	"context"

	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/simplify"
	"loomcc/internal/symbols"
	"loomcc/internal/trace"
)

// inputInfo records a pipeline input's symbol, rank, and the demand box
// accumulated for it by the time its make_buffer scope closed, so the
// final check-emission step doesn't need to re-read a map slot that has
// since been released back to "unbound".
type inputInfo struct {
	sym    symbols.ID
	rank   int
	demand ir.Box
}

// Inferrer holds the scoped state a single Infer call threads through the
// traversal: crops[sym] is the intersection of every enclosing crop_* on
// that symbol, infer[sym] is the storage demand accumulated so far.
type Inferrer struct {
	tab    *symbols.Table
	report diag.Reporter
	tracer trace.Tracer

	crops *symbols.Map[ir.Box]
	infer *symbols.Map[ir.Box]
	ranks *symbols.Map[int]

	inputs []inputInfo
	err    error
}

// Infer runs the bounds inferrer over root, rewriting every allocate's
// dims to the demand its body actually places on it and prefixing the
// result with one input-sufficiency check per pipeline input buffer.
// report receives every diagnostic raised along the way; a SevError one
// also comes back as the returned error, since a malformed-input finding
// here aborts compilation rather than falling back to something weaker.
func Infer(ctx context.Context, tab *symbols.Table, report diag.Reporter, root ir.Stmt) (ir.Stmt, error) {
	inf := &Inferrer{
		tab:    tab,
		report: report,
		tracer: trace.FromContext(ctx),
		crops:  symbols.NewMapT[ir.Box](),
		infer:  symbols.NewMapT[ir.Box](),
		ranks:  symbols.NewMapT[int](),
	}

	span := trace.Begin(inf.tracer, trace.ScopePass, "bounds", 0)
	out := inf.stmt(ctx, root)
	span.End("")

	if inf.err != nil {
		return out, inf.err
	}

	checks := inf.emitInputChecks()
	return ir.Blocks(checks, out), nil
}

func (inf *Inferrer) fail(code diag.Code, sym symbols.ID, detail, msg string) {
	at := diag.Location{Pass: "bounds", Symbol: inf.tab.Name(sym), Detail: detail}
	diag.ReportError(inf.report, code, at, msg)
	inf.err = diag.Append(inf.err, diag.NewError(code, at, msg))
}

// emptyBoxOfRank builds the "nothing demanded yet" sentinel box: every
// dimension's interval is empty (min=+inf, max=-inf), which Union'd
// against any real demand folds away to exactly that demand (§4.E, §9).
func emptyBoxOfRank(rank int) ir.Box {
	out := make(ir.Box, rank)
	for d := range out {
		out[d] = ir.Interval{Min: ir.PosInf(), Max: ir.NegInf()}
	}
	return out
}

// unboundedBoxOfRank builds the "no crop in scope" box: every dimension
// is the full (-inf, +inf) range.
func unboundedBoxOfRank(rank int) ir.Box {
	out := make(ir.Box, rank)
	for d := range out {
		out[d] = ir.UnboundedInterval()
	}
	return out
}

// unionBox folds a and b pointwise through the simplifier, so repeated
// accumulation (one Union per call_stmt input, one per loop exit) doesn't
// build up deeply nested, never-evaluated min/max chains.
func unionBox(a, b ir.Box) ir.Box {
	if len(a) == 0 {
		return b.Clone()
	}
	if len(b) == 0 {
		return a.Clone()
	}
	out := make(ir.Box, len(a))
	for d := range a {
		out[d] = ir.Interval{
			Min: simplify.Simplify(ir.BinMin(a[d].Min, b[d].Min)),
			Max: simplify.Simplify(ir.BinMax(a[d].Max, b[d].Max)),
		}
	}
	return out
}

func (inf *Inferrer) rankOf(sym symbols.ID) int {
	if r, ok := inf.ranks.Get(sym); ok {
		return r
	}
	if b, ok := inf.infer.Get(sym); ok {
		return len(b)
	}
	if b, ok := inf.crops.Get(sym); ok {
		return len(b)
	}
	return 0
}

// pushCropDim narrows crops[sym]'s dimension d to bounds, leaving every
// other dimension as whatever crops[sym] already held (or unbounded if
// sym has no enclosing crop yet).
func (inf *Inferrer) pushCropDim(sym symbols.ID, d int, bounds ir.Interval) *symbols.Binding[ir.Box] {
	cur, ok := inf.crops.Get(sym)
	rank := inf.rankOf(sym)
	if !ok {
		cur = unboundedBoxOfRank(rank)
	}
	next := cur.Clone()
	if d >= 0 && d < len(next) {
		next[d] = bounds
	}
	return inf.crops.Bind(sym, next)
}

// pushCropBuffer narrows crops[sym] by box, one dimension at a time: a
// defined endpoint in box overrides the current crop, an undefined one
// leaves it alone.
func (inf *Inferrer) pushCropBuffer(sym symbols.ID, box ir.Box) *symbols.Binding[ir.Box] {
	cur, ok := inf.crops.Get(sym)
	rank := len(box)
	if rank == 0 {
		rank = inf.rankOf(sym)
	}
	if !ok {
		cur = unboundedBoxOfRank(rank)
	}
	next := cur.Clone()
	for d := range box {
		if d >= len(next) {
			break
		}
		if box[d].Min.Defined() {
			next[d].Min = box[d].Min
		}
		if box[d].Max.Defined() {
			next[d].Max = box[d].Max
		}
	}
	return inf.crops.Bind(sym, next)
}
