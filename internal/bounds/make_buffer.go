package bounds

import (
	"context"

	"loomcc/internal/ir"
	"loomcc/internal/trace"
)

// makeBuffer tracks demand for a buffer backed by caller-supplied memory
// the same way allocate does, but never rewrites its dims — this module
// doesn't own that storage and can't resize it. Instead the accumulated
// demand is recorded for emitInputChecks to turn into a runtime assertion
// once the whole tree has been walked.
func (inf *Inferrer) makeBuffer(ctx context.Context, s ir.Stmt) ir.Stmt {
	d, _ := ir.AsStmt[ir.MakeBufferData](s)
	rank := len(d.Dims)
	inf.ranks.Set(d.Sym, rank)

	binding := inf.infer.Bind(d.Sym, emptyBoxOfRank(rank))
	span := trace.Begin(inf.tracer, trace.ScopeBuffer, "make_buffer:"+inf.tab.Name(d.Sym), 0)
	body := inf.stmt(ctx, d.Body)
	span.End("")
	demand, _ := inf.infer.Get(d.Sym)
	binding.Release()

	if inf.err == nil {
		inf.inputs = append(inf.inputs, inputInfo{sym: d.Sym, rank: rank, demand: demand})
	}

	return ir.MakeBufferStmt(d.Sym, d.Base, d.ElemSize, d.Dims, body)
}
