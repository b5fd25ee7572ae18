package slide_test

import (
	"context"
	"testing"

	"loomcc/internal/config"
	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/slide"
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

func findLoop(s ir.Stmt) (ir.LoopData, bool) {
	var found ir.LoopData
	var ok bool
	traverse.VisitStmt(s, func(n ir.Stmt) bool {
		if n.Kind == ir.StmtLoop {
			found, ok = ir.AsStmt[ir.LoopData](n)
			return false
		}
		return true
	}, func(ir.Expr) bool { return true })
	return found, ok
}

// TestSlideFoldsMonotonicIncreasingStencil covers a serial loop whose
// output window grows by one sample each iteration (a radius-1 stencil):
// storage should fold to the window's constant extent, and the loop's own
// lower bound should widen enough to cover the warm-up region without a
// select() fallback.
func TestSlideFoldsMonotonicIncreasingStencil(t *testing.T) {
	tab := symbols.NewTable(0)
	i := tab.Insert("i")
	out := tab.Insert("out")

	window := ir.Interval{Min: ir.BinSub(ir.Var(i), ir.Const(1)), Max: ir.BinAdd(ir.Var(i), ir.Const(1))}
	dim := ir.Dim{Bounds: window, Stride: ir.Const(1)}
	call := ir.CallStmt("f", nil, []symbols.ID{out})
	loop := ir.Loop(i, ir.Serial, ir.Interval{Min: ir.Const(0), Max: ir.Const(9)}, ir.Const(1), call)
	tree := ir.Allocate(out, ir.HeapStorage, ir.Const(4), []ir.Dim{dim}, loop)

	outTree, err := slide.Slide(context.Background(), tab, diag.NopReporter{}, config.Defaults(), tree)
	if err != nil {
		t.Fatalf("Slide returned error: %v", err)
	}

	alloc, ok := findAllocate(outTree)
	if !ok {
		t.Fatalf("expected an allocate in the rewritten tree")
	}
	d := mustAllocate(t, alloc)
	if !d.Dims[0].Folded() {
		t.Fatalf("expected dim 0 to carry a fold factor, got %#v", d.Dims[0])
	}
	if !ir.Match(d.Dims[0].FoldFactor, ir.Const(3)) {
		t.Fatalf("expected the stencil window's extent (3) as the fold factor, got %#v", d.Dims[0].FoldFactor)
	}
	// The window's own bounds are left as the bounds inferrer wrote them —
	// slide only ever narrows buffer_fold_factor references, never a dim's
	// declared extent.
	if !ir.Match(d.Dims[0].Bounds.Min, window.Min) || !ir.Match(d.Dims[0].Bounds.Max, window.Max) {
		t.Fatalf("expected the allocate's own dim bounds untouched, got %#v", d.Dims[0].Bounds)
	}

	lp, ok := findLoop(outTree)
	if !ok {
		t.Fatalf("expected a loop in the rewritten tree")
	}
	if ir.Match(lp.Bounds.Min, ir.Const(0)) {
		t.Fatalf("expected the loop's lower bound to widen for warm-up, got it left at the original 0")
	}
}

// TestSlideFoldsDisjointTiles covers a serial loop writing disjoint tiles
// of a buffer (no overlap between consecutive iterations): storage should
// fold to the tile width, but the loop's own bounds are left completely
// alone since nothing needs to slide.
func TestSlideFoldsDisjointTiles(t *testing.T) {
	tab := symbols.NewTable(0)
	i := tab.Insert("i")
	out := tab.Insert("out")

	tileBase := ir.BinMul(ir.Var(i), ir.Const(4))
	tile := ir.Interval{Min: tileBase, Max: ir.BinAdd(tileBase, ir.Const(3))}
	dim := ir.Dim{Bounds: tile, Stride: ir.Const(1)}
	call := ir.CallStmt("f", nil, []symbols.ID{out})
	loopBounds := ir.Interval{Min: ir.Const(0), Max: ir.Const(9)}
	loop := ir.Loop(i, ir.Serial, loopBounds, ir.Const(1), call)
	tree := ir.Allocate(out, ir.HeapStorage, ir.Const(4), []ir.Dim{dim}, loop)

	outTree, err := slide.Slide(context.Background(), tab, diag.NopReporter{}, config.Defaults(), tree)
	if err != nil {
		t.Fatalf("Slide returned error: %v", err)
	}

	alloc, ok := findAllocate(outTree)
	if !ok {
		t.Fatalf("expected an allocate in the rewritten tree")
	}
	d := mustAllocate(t, alloc)
	if !ir.Match(d.Dims[0].FoldFactor, ir.Const(4)) {
		t.Fatalf("expected the tile width (4) as the fold factor, got %#v", d.Dims[0].FoldFactor)
	}

	lp, ok := findLoop(outTree)
	if !ok {
		t.Fatalf("expected a loop in the rewritten tree")
	}
	if !ir.Match(lp.Bounds.Min, loopBounds.Min) || !ir.Match(lp.Bounds.Max, loopBounds.Max) {
		t.Fatalf("expected the loop's own bounds untouched by a fold-only decision, got %#v", lp.Bounds)
	}
}

// TestSlideSkipsParallelLoop covers a parallel loop: its iterations may
// run out of order, so slide must leave the body untouched and record a
// notice rather than silently doing nothing.
func TestSlideSkipsParallelLoop(t *testing.T) {
	tab := symbols.NewTable(0)
	i := tab.Insert("i")
	out := tab.Insert("out")

	window := ir.Interval{Min: ir.BinSub(ir.Var(i), ir.Const(1)), Max: ir.BinAdd(ir.Var(i), ir.Const(1))}
	dim := ir.Dim{Bounds: window, Stride: ir.Const(1)}
	call := ir.CallStmt("f", nil, []symbols.ID{out})
	loop := ir.Loop(i, ir.Parallel, ir.Interval{Min: ir.Const(0), Max: ir.Const(9)}, ir.Const(1), call)
	tree := ir.Allocate(out, ir.HeapStorage, ir.Const(4), []ir.Dim{dim}, loop)

	bag := diag.NewBag()
	outTree, err := slide.Slide(context.Background(), tab, diag.BagReporter{Bag: bag}, config.Defaults(), tree)
	if err != nil {
		t.Fatalf("Slide returned error: %v", err)
	}

	alloc, ok := findAllocate(outTree)
	if !ok {
		t.Fatalf("expected an allocate in the rewritten tree")
	}
	d := mustAllocate(t, alloc)
	if d.Dims[0].Folded() {
		t.Fatalf("expected a parallel loop's output to stay unfolded, got %#v", d.Dims[0])
	}

	lp, ok := findLoop(outTree)
	if !ok {
		t.Fatalf("expected the parallel loop to survive untouched")
	}
	if !ir.Match(lp.Bounds.Min, ir.Const(0)) || !ir.Match(lp.Bounds.Max, ir.Const(9)) {
		t.Fatalf("expected a parallel loop's bounds left exactly as written, got %#v", lp.Bounds)
	}

	found := false
	for _, item := range bag.Items() {
		if item.Code == diag.SlideSkippedParallel {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a SlideSkippedParallel notice, got %#v", bag.Items())
	}
}

// TestSlideLeavesMonotonicDecreasingUnfolded covers an output window that
// shrinks across iterations: neither fold nor slide is sound there (a
// later iteration can't reuse storage a narrower one already released),
// so slide must leave it alone and record why.
func TestSlideLeavesMonotonicDecreasingUnfolded(t *testing.T) {
	tab := symbols.NewTable(0)
	i := tab.Insert("i")
	out := tab.Insert("out")

	// A unit window sliding toward the loop's near end as i grows: [8-i, 9-i].
	window := ir.Interval{Min: ir.BinSub(ir.Const(8), ir.Var(i)), Max: ir.BinSub(ir.Const(9), ir.Var(i))}
	dim := ir.Dim{Bounds: window, Stride: ir.Const(1)}
	call := ir.CallStmt("f", nil, []symbols.ID{out})
	loop := ir.Loop(i, ir.Serial, ir.Interval{Min: ir.Const(0), Max: ir.Const(9)}, ir.Const(1), call)
	tree := ir.Allocate(out, ir.HeapStorage, ir.Const(4), []ir.Dim{dim}, loop)

	bag := diag.NewBag()
	outTree, err := slide.Slide(context.Background(), tab, diag.BagReporter{Bag: bag}, config.Defaults(), tree)
	if err != nil {
		t.Fatalf("Slide returned error: %v", err)
	}

	alloc, ok := findAllocate(outTree)
	if !ok {
		t.Fatalf("expected an allocate in the rewritten tree")
	}
	d := mustAllocate(t, alloc)
	if d.Dims[0].Folded() {
		t.Fatalf("expected a monotonic-decreasing output to stay unfolded, got %#v", d.Dims[0])
	}

	found := false
	for _, item := range bag.Items() {
		if item.Code == diag.UnprovablePredicate {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an UnprovablePredicate notice, got %#v", bag.Items())
	}
}

// TestSlideIgnoresBufferNotDependingOnLoop covers an output whose bounds
// never mention the enclosing loop's variable at all: nothing to slide or
// fold, and the dims must come through completely untouched.
func TestSlideIgnoresBufferNotDependingOnLoop(t *testing.T) {
	tab := symbols.NewTable(0)
	i := tab.Insert("i")
	out := tab.Insert("out")

	whole := ir.Interval{Min: ir.Const(0), Max: ir.Const(63)}
	dim := ir.Dim{Bounds: whole, Stride: ir.Const(1)}
	call := ir.CallStmt("f", nil, []symbols.ID{out})
	loop := ir.Loop(i, ir.Serial, ir.Interval{Min: ir.Const(0), Max: ir.Const(9)}, ir.Const(1), call)
	tree := ir.Allocate(out, ir.HeapStorage, ir.Const(4), []ir.Dim{dim}, loop)

	outTree, err := slide.Slide(context.Background(), tab, diag.NopReporter{}, config.Defaults(), tree)
	if err != nil {
		t.Fatalf("Slide returned error: %v", err)
	}

	alloc, ok := findAllocate(outTree)
	if !ok {
		t.Fatalf("expected an allocate in the rewritten tree")
	}
	d := mustAllocate(t, alloc)
	if d.Dims[0].Folded() {
		t.Fatalf("expected a loop-invariant output to stay unfolded, got %#v", d.Dims[0])
	}
	if !ir.Match(d.Dims[0].Bounds.Min, whole.Min) || !ir.Match(d.Dims[0].Bounds.Max, whole.Max) {
		t.Fatalf("expected the dim's bounds untouched, got %#v", d.Dims[0].Bounds)
	}
}
