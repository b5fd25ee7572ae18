package bounds_test

import (
	"context"
	"testing"

	"loomcc/internal/bounds"
	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/simplify"
	"loomcc/internal/symbols"
	"loomcc/internal/traverse"
)

func mustAllocate(t *testing.T, s ir.Stmt) ir.AllocateData {
	t.Helper()
	d, ok := ir.AsStmt[ir.AllocateData](s)
	if !ok {
		t.Fatalf("expected allocate, got kind %v", s.Kind)
	}
	return d
}

// findAllocate walks out looking for the (single) allocate node the test
// built, skipping over the check-statement prefix Infer adds.
func findAllocate(s ir.Stmt) (ir.Stmt, bool) {
	var found ir.Stmt
	var ok bool
	traverse.VisitStmt(s, func(n ir.Stmt) bool {
		if n.Kind == ir.StmtAllocate {
			found, ok = n, true
			return false
		}
		return true
	}, func(ir.Expr) bool { return true })
	return found, ok
}

func TestInferSizesAllocateToCallDemand(t *testing.T) {
	tab := symbols.NewTable(0)
	buf := tab.Insert("buf")

	tree := ir.Allocate(buf, ir.HeapStorage, ir.Const(4), []ir.Dim{{}},
		ir.CropDim(buf, 0, ir.Interval{Min: ir.Const(2), Max: ir.Const(5)},
			ir.CallStmt("f", []symbols.ID{buf}, nil)))

	out, err := bounds.Infer(context.Background(), tab, diag.NopReporter{}, tree)
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}

	alloc, ok := findAllocate(out)
	if !ok {
		t.Fatalf("expected an allocate in the rewritten tree")
	}
	d := mustAllocate(t, alloc)
	if !ir.Match(d.Dims[0].Bounds.Min, ir.Const(2)) || !ir.Match(d.Dims[0].Bounds.Max, ir.Const(5)) {
		t.Fatalf("expected dim sized to [2,5], got %#v", d.Dims[0].Bounds)
	}
	if !ir.Match(d.Dims[0].Stride, ir.Const(4)) {
		t.Fatalf("expected the single dim's stride to be elem_size, got %#v", d.Dims[0].Stride)
	}
}

func TestInferUnionsTwoConsumers(t *testing.T) {
	tab := symbols.NewTable(0)
	buf := tab.Insert("buf")

	first := ir.CropDim(buf, 0, ir.Interval{Min: ir.Const(0), Max: ir.Const(3)},
		ir.CallStmt("f", []symbols.ID{buf}, nil))
	second := ir.CropDim(buf, 0, ir.Interval{Min: ir.Const(5), Max: ir.Const(9)},
		ir.CallStmt("g", []symbols.ID{buf}, nil))

	tree := ir.Allocate(buf, ir.HeapStorage, ir.Const(4), []ir.Dim{{}}, ir.MakeBlock(first, second))

	out, err := bounds.Infer(context.Background(), tab, diag.NopReporter{}, tree)
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}
	alloc, _ := findAllocate(out)
	d := mustAllocate(t, alloc)
	if !ir.Match(d.Dims[0].Bounds.Min, ir.Const(0)) || !ir.Match(d.Dims[0].Bounds.Max, ir.Const(9)) {
		t.Fatalf("expected the union [0,9], got %#v", d.Dims[0].Bounds)
	}
}

func TestInferProjectsLoopVariableOut(t *testing.T) {
	tab := symbols.NewTable(0)
	buf := tab.Insert("buf")
	i := tab.Insert("i")

	loopBody := ir.CropDim(buf, 0, ir.Interval{Min: ir.Var(i), Max: ir.Var(i)},
		ir.CallStmt("f", []symbols.ID{buf}, nil))
	loop := ir.Loop(i, ir.Serial, ir.Interval{Min: ir.Const(0), Max: ir.Const(9)}, ir.Const(1), loopBody)

	tree := ir.Allocate(buf, ir.HeapStorage, ir.Const(4), []ir.Dim{{}}, loop)

	out, err := bounds.Infer(context.Background(), tab, diag.NopReporter{}, tree)
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}
	alloc, _ := findAllocate(out)
	d := mustAllocate(t, alloc)
	if !ir.Match(d.Dims[0].Bounds.Min, ir.Const(0)) || !ir.Match(d.Dims[0].Bounds.Max, ir.Const(9)) {
		t.Fatalf("expected the loop's own range [0,9] after projection, got %#v", d.Dims[0].Bounds)
	}
}

func TestInferMultiDimStrideRecurrence(t *testing.T) {
	tab := symbols.NewTable(0)
	buf := tab.Insert("buf")

	tree := ir.Allocate(buf, ir.HeapStorage, ir.Const(4), []ir.Dim{{}, {}},
		ir.CropBuffer(buf, ir.Box{
			{Min: ir.Const(0), Max: ir.Const(3)},
			{Min: ir.Const(0), Max: ir.Const(1)},
		}, ir.CallStmt("f", []symbols.ID{buf}, nil)))

	out, err := bounds.Infer(context.Background(), tab, diag.NopReporter{}, tree)
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}
	alloc, _ := findAllocate(out)
	d := mustAllocate(t, alloc)

	if !ir.Match(d.Dims[0].Stride, ir.Const(4)) {
		t.Fatalf("expected dim 0's stride to be elem_size, got %#v", d.Dims[0].Stride)
	}
	// stride_1 = elem_size * min(extent_0, fold_factor(buf,0)); extent_0
	// folds to the constant 4 (0..3) but dim 0 carries no fold factor, so
	// the fold side of the min stays the symbolic buffer_fold_factor(buf,0).
	want := simplify.Simplify(ir.BinMul(ir.Const(4), ir.BinMin(ir.Const(4), ir.BufferField(ir.BufferFoldFactor, buf, ir.Const(0)))))
	if !ir.Match(d.Dims[1].Stride, want) {
		t.Fatalf("stride_1 = %#v, want %#v", d.Dims[1].Stride, want)
	}
}

func TestInferRaisesDimOverrideTooSmall(t *testing.T) {
	tab := symbols.NewTable(0)
	buf := tab.Insert("buf")

	tooSmall := ir.Dim{Bounds: ir.Interval{Min: ir.Const(0), Max: ir.Const(3)}}
	tree := ir.Allocate(buf, ir.HeapStorage, ir.Const(4), []ir.Dim{tooSmall},
		ir.CropDim(buf, 0, ir.Interval{Min: ir.Const(0), Max: ir.Const(9)},
			ir.CallStmt("f", []symbols.ID{buf}, nil)))

	bag := diag.NewBag()
	_, err := bounds.Infer(context.Background(), tab, diag.BagReporter{Bag: bag}, tree)
	if err == nil {
		t.Fatalf("expected an error for a too-narrow allocate override")
	}
	if !bag.HasErrors() {
		t.Fatalf("expected the reporter to receive the diagnostic")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.DimOverrideTooSmall {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a DimOverrideTooSmall diagnostic, got %#v", bag.Items())
	}
}

func TestInferRaisesMissingAllocationForUntrackedInput(t *testing.T) {
	tab := symbols.NewTable(0)
	buf := tab.Insert("buf")

	tree := ir.CallStmt("f", []symbols.ID{buf}, nil)

	bag := diag.NewBag()
	_, err := bounds.Infer(context.Background(), tab, diag.BagReporter{Bag: bag}, tree)
	if err == nil {
		t.Fatalf("expected an error consuming a buffer with no enclosing allocate")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.MissingAllocation {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a MissingAllocation diagnostic, got %#v", bag.Items())
	}
}

func TestInferEmitsInputSufficiencyChecks(t *testing.T) {
	tab := symbols.NewTable(0)
	in := tab.Insert("in")

	tree := ir.MakeBufferStmt(in, ir.Const(0), ir.Const(4), []ir.Dim{{}},
		ir.CropDim(in, 0, ir.Interval{Min: ir.Const(0), Max: ir.Const(9)},
			ir.CallStmt("f", []symbols.ID{in}, nil)))

	out, err := bounds.Infer(context.Background(), tab, diag.NopReporter{}, tree)
	if err != nil {
		t.Fatalf("Infer returned error: %v", err)
	}

	var checks int
	traverse.VisitStmt(out, func(n ir.Stmt) bool {
		if n.Kind == ir.StmtCheck {
			checks++
		}
		return true
	}, func(ir.Expr) bool { return true })

	if checks != 3 {
		t.Fatalf("expected 3 check statements (min, max, fold), got %d", checks)
	}

	// make_buffer's own dims must be untouched — this module doesn't own
	// that storage.
	var mb ir.MakeBufferData
	found := false
	traverse.VisitStmt(out, func(n ir.Stmt) bool {
		if n.Kind == ir.StmtMakeBuffer {
			mb, found = ir.AsStmt[ir.MakeBufferData](n)
			return false
		}
		return true
	}, func(ir.Expr) bool { return true })
	if !found {
		t.Fatalf("expected make_buffer to survive in the rewritten tree")
	}
	if mb.Dims[0].Bounds.Min.Defined() {
		t.Fatalf("expected make_buffer's dims to be left untouched, got %#v", mb.Dims[0])
	}
}

func TestInferRejectsSliceBeforeInfer(t *testing.T) {
	tab := symbols.NewTable(0)
	buf := tab.Insert("buf")

	tree := ir.SliceDim(buf, 0, ir.Const(0), ir.CallStmt("f", nil, []symbols.ID{buf}))

	bag := diag.NewBag()
	_, err := bounds.Infer(context.Background(), tab, diag.BagReporter{Bag: bag}, tree)
	if err == nil {
		t.Fatalf("expected an error for slice_dim seen before inference")
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.SliceBeforeInfer {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a SliceBeforeInfer diagnostic, got %#v", bag.Items())
	}
}
