package stagegraph

import "testing"

func idsToNames(idx Index, ids []StageID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[id]
	}
	return out
}

func TestBuildIndexIncludesDependencies(t *testing.T) {
	metas := []StageMeta{
		{Name: "blur_y", Consumes: []string{"blur_x"}},
		{Name: "blur_x", Consumes: []string{"in"}},
	}
	idx := BuildIndex(metas)
	if len(idx.IDToName) != 3 {
		t.Fatalf("stage count = %d, want 3", len(idx.IDToName))
	}
	if _, ok := idx.NameToID["in"]; !ok {
		t.Fatalf("expected implicit dependency %q to be indexed", "in")
	}
}

func TestToposortOrdersProducersBeforeConsumers(t *testing.T) {
	metas := []StageMeta{
		{Name: "blur_y", Consumes: []string{"blur_x"}},
		{Name: "blur_x", Consumes: []string{"in"}},
		{Name: "in"},
	}
	idx := BuildIndex(metas)
	g, err := BuildGraph(idx, metas)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	topo := Toposort(g)
	if topo.Cyclic {
		t.Fatalf("unexpected cycle: %+v", topo)
	}
	order := idsToNames(idx, topo.Order)
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	if pos["in"] >= pos["blur_x"] || pos["blur_x"] >= pos["blur_y"] {
		t.Fatalf("order %v does not place producers before consumers", order)
	}
}

func TestToposortDetectsCycle(t *testing.T) {
	metas := []StageMeta{
		{Name: "a", Consumes: []string{"b"}},
		{Name: "b", Consumes: []string{"a"}},
	}
	idx := BuildIndex(metas)
	g, err := BuildGraph(idx, metas)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	topo := Toposort(g)
	if !topo.Cyclic || len(topo.Cycles) != 2 {
		t.Fatalf("expected a two-stage cycle, got %+v", topo)
	}
}

func TestBuildGraphRejectsUnknownDependency(t *testing.T) {
	metas := []StageMeta{{Name: "a", Consumes: []string{"missing"}}}
	idx := BuildIndex(metas)
	if _, err := BuildGraph(idx, metas); err == nil {
		t.Fatalf("expected error for unknown dependency")
	}
}
