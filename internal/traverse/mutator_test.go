package traverse_test

import (
	"testing"

	"loomcc/internal/ir"
	"loomcc/internal/symbols"
	"loomcc/internal/traverse"
)

func TestMutateExprDefaultDescendRewritesConsts(t *testing.T) {
	tab := symbols.NewTable(0)
	x := tab.Insert("x")

	e := ir.BinAdd(ir.Var(x), ir.BinMul(ir.Const(2), ir.Const(3)))

	m := &traverse.Mutator{
		RewriteExpr: func(_ *traverse.Mutator, e ir.Expr) (ir.Expr, bool) {
			if e.Kind != ir.ExprConst {
				return e, false
			}
			c, _ := ir.As[ir.ConstData](e)
			if c.Kind != ir.ConstFinite {
				return e, false
			}
			return ir.Const(c.Value * 10), true
		},
	}

	got := m.MutateExpr(e)
	bin, ok := ir.As[ir.BinaryData](got)
	if !ok || bin.Op != ir.Add {
		t.Fatalf("expected top-level add, got %#v", got)
	}
	inner, ok := ir.As[ir.BinaryData](bin.B)
	if !ok {
		t.Fatalf("expected nested binary, got %#v", bin.B)
	}
	ca, _ := ir.As[ir.ConstData](inner.A)
	cb, _ := ir.As[ir.ConstData](inner.B)
	if ca.Value != 20 || cb.Value != 30 {
		t.Fatalf("constants not rewritten: got %v, %v", ca.Value, cb.Value)
	}
}

func TestMutateExprReturnsUnchangedWhenNoHookFires(t *testing.T) {
	tab := symbols.NewTable(0)
	x := tab.Insert("x")
	e := ir.BinAdd(ir.Var(x), ir.Const(1))

	m := &traverse.Mutator{}
	got := m.MutateExpr(e)

	if !ir.Match(e, got) {
		t.Fatalf("expected structurally identical result, got %#v", got)
	}
}

func TestMutateStmtDescendsThroughBlockAndLoop(t *testing.T) {
	tab := symbols.NewTable(0)
	i := tab.Insert("i")
	buf := tab.Insert("buf")

	body := ir.Check(ir.BinLt(ir.Var(i), ir.Const(7)))
	loop := ir.Loop(i, ir.Serial, ir.Interval{Min: ir.Const(0), Max: ir.Const(7)}, ir.Const(1), body)
	alloc := ir.Allocate(buf, ir.StackStorage, ir.Const(4), []ir.Dim{
		{Bounds: ir.Interval{Min: ir.Const(0), Max: ir.Const(7)}, Stride: ir.Const(1)},
	}, loop)

	var seenChecks int
	m := &traverse.Mutator{
		RewriteExpr: func(_ *traverse.Mutator, e ir.Expr) (ir.Expr, bool) {
			if e.Kind != ir.ExprConst {
				return e, false
			}
			c, _ := ir.As[ir.ConstData](e)
			if c.Kind == ir.ConstFinite && c.Value == 7 {
				return ir.Const(8), true
			}
			return e, false
		},
	}
	out := m.MutateStmt(alloc)

	traverse.VisitStmt(out, func(s ir.Stmt) bool {
		if s.Kind == ir.StmtCheck {
			seenChecks++
		}
		return true
	}, nil)
	if seenChecks != 1 {
		t.Fatalf("expected exactly one check statement, saw %d", seenChecks)
	}

	ad, _ := ir.AsStmt[ir.AllocateData](out)
	if ad.Dims[0].Bounds.Max.Data.(ir.ConstData).Value != 8 {
		t.Fatalf("expected allocate dim max rewritten to 8, got %#v", ad.Dims[0].Bounds.Max)
	}
	ld, _ := ir.AsStmt[ir.LoopData](ad.Body)
	if ld.Bounds.Max.Data.(ir.ConstData).Value != 8 {
		t.Fatalf("expected loop bound rewritten to 8, got %#v", ld.Bounds.Max)
	}
}

func TestVisitExprPruneStopsDescent(t *testing.T) {
	tab := symbols.NewTable(0)
	x := tab.Insert("x")
	e := ir.BinAdd(ir.Var(x), ir.BinMul(ir.Const(2), ir.Const(3)))

	var sawConst bool
	traverse.VisitExpr(e, func(n ir.Expr) bool {
		if n.Kind == ir.ExprConst {
			sawConst = true
		}
		// Prune as soon as we reach the multiplication, before its operands.
		if n.Kind == ir.ExprBinary {
			if bin, ok := ir.As[ir.BinaryData](n); ok && bin.Op == ir.Mul {
				return false
			}
		}
		return true
	})

	if sawConst {
		t.Fatalf("expected pruning to skip the multiplication's constant operands")
	}
}
