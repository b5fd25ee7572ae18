package pipeline_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"loomcc/internal/config"
	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/observ"
	"loomcc/internal/pipeline"
	"loomcc/internal/plancache"
	"loomcc/internal/symbols"
	"loomcc/internal/traverse"
)

func findAllocate(s ir.Stmt) (ir.AllocateData, bool) {
	var found ir.AllocateData
	var ok bool
	traverse.VisitStmt(s, func(n ir.Stmt) bool {
		if n.Kind == ir.StmtAllocate {
			found, ok = ir.AsStmt[ir.AllocateData](n)
			return false
		}
		return true
	}, func(ir.Expr) bool { return true })
	return found, ok
}

func buildTree(tab *symbols.Table, buf symbols.ID) ir.Stmt {
	crop := ir.CropDim(buf, 0, ir.Interval{Min: ir.Const(2), Max: ir.Const(5)},
		ir.CallStmt("f", []symbols.ID{buf}, nil))
	return ir.Allocate(buf, ir.HeapStorage, ir.Const(4), []ir.Dim{{}}, crop)
}

// TestCompileChainsBoundsSlidePostpass covers the E->F->G chain on a tree
// too simple to exercise slide or any post-pass rewrite: bounds inference
// is the only stage that should visibly change anything, sizing the
// allocate to the crop's demand, and the call should survive all three
// stages untouched.
func TestCompileChainsBoundsSlidePostpass(t *testing.T) {
	tab := symbols.NewTable(0)
	buf := tab.Insert("buf")
	tree := buildTree(tab, buf)

	out, err := pipeline.Compile(context.Background(), tab, tree, []symbols.ID{buf}, pipeline.Options{
		Tunables: config.Defaults(),
		Report:   diag.NopReporter{},
	})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}

	alloc, ok := findAllocate(out)
	if !ok {
		t.Fatalf("expected an allocate to survive in the compiled tree, got %#v", out)
	}
	if !ir.Match(alloc.Dims[0].Bounds.Min, ir.Const(2)) || !ir.Match(alloc.Dims[0].Bounds.Max, ir.Const(5)) {
		t.Fatalf("expected bounds inference to size the allocate to [2,5], got %#v", alloc.Dims[0].Bounds)
	}
}

// TestCompilePlanCacheHitSkipsEveryStage covers the plan cache side
// channel: compiling the same tree and inputs a second time against a
// populated cache must return the first run's result without invoking
// any of E, F, or G again. Since every stage the first run executed
// records a named phase on the Timer passed in, and a cache hit returns
// before any of them run, an empty phase list on the second call is the
// observable proof the cache, not the pipeline, answered it.
func TestCompilePlanCacheHitSkipsEveryStage(t *testing.T) {
	tab := symbols.NewTable(0)
	buf := tab.Insert("buf")
	tree := buildTree(tab, buf)

	cache, err := plancache.OpenDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCache failed: %v", err)
	}

	firstTimer := observ.NewTimer()
	first, err := pipeline.Compile(context.Background(), tab, tree, []symbols.ID{buf}, pipeline.Options{
		Tunables: config.Defaults(),
		Report:   diag.NopReporter{},
		Timer:    firstTimer,
		Cache:    cache,
	})
	if err != nil {
		t.Fatalf("first Compile returned error: %v", err)
	}
	if len(firstTimer.Report().Phases) == 0 {
		t.Fatalf("expected the first (cold) call to record phase timings")
	}

	secondTimer := observ.NewTimer()
	second, err := pipeline.Compile(context.Background(), tab, tree, []symbols.ID{buf}, pipeline.Options{
		Tunables: config.Defaults(),
		Report:   diag.NopReporter{},
		Timer:    secondTimer,
		Cache:    cache,
	})
	if err != nil {
		t.Fatalf("second Compile returned error: %v", err)
	}
	if len(secondTimer.Report().Phases) != 0 {
		t.Fatalf("expected the second (cached) call to skip every stage, got phases %#v", secondTimer.Report().Phases)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("expected the cached result to match the freshly compiled one, diff:\n%s", diff)
	}
}
