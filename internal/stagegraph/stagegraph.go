// Package stagegraph builds and orders the producer/consumer dependency
// graph between pipeline stages (the func/buffer DAG a front end would
// hand the middle end). Tests use it to assemble multi-stage fixtures
// (e.g. an input feeding blur_x feeding blur_y) and to catch an
// accidentally-cyclic fixture before it reaches a pass under test.
package stagegraph

import (
	"fmt"
	"slices"
	"sort"

	"fortio.org/safecast"
)

// StageID is a dense index into a Graph, assigned by BuildIndex in sorted
// name order.
type StageID uint32

// StageMeta describes one pipeline stage: a producer that writes Name and
// reads from Consumes.
type StageMeta struct {
	Name     string
	Consumes []string
}

// Index maps stage names to dense IDs, including names that only appear
// as a Consumes entry (an input with no producer of its own).
type Index struct {
	NameToID map[string]StageID
	IDToName []string
}

// BuildIndex collects the unique set of stage names referenced by metas,
// either as a producer or as a dependency, and assigns IDs in sorted order.
func BuildIndex(metas []StageMeta) Index {
	uniq := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if m.Name != "" {
			uniq[m.Name] = struct{}{}
		}
		for _, dep := range m.Consumes {
			if dep != "" {
				uniq[dep] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	sort.Strings(names)

	nameToID := make(map[string]StageID, len(names))
	for i, name := range names {
		nameToID[name] = StageID(i)
	}
	return Index{NameToID: nameToID, IDToName: names}
}

// Graph is the adjacency-list form of a stage dependency graph: Edges[s]
// lists the stages s consumes from.
type Graph struct {
	Edges [][]StageID
	Indeg []int
	// Present marks stages with an actual StageMeta, as opposed to a
	// name that appears only as someone else's dependency.
	Present []bool
}

// BuildGraph wires an edge from each dependency to its dependent stage (so
// Toposort visits producers before consumers), returning an error for any
// dependency with no matching producer and for a stage that lists itself
// as a dependency.
func BuildGraph(idx Index, metas []StageMeta) (Graph, error) {
	n := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]StageID, n),
		Indeg:   make([]int, n),
		Present: make([]bool, n),
	}
	for _, m := range metas {
		if m.Name == "" {
			continue
		}
		id, ok := idx.NameToID[m.Name]
		if !ok {
			continue
		}
		g.Present[id] = true
	}

	var errs []error
	for _, m := range metas {
		if m.Name == "" || len(m.Consumes) == 0 {
			continue
		}
		consumer := idx.NameToID[m.Name]
		seen := make(map[StageID]struct{}, len(m.Consumes))
		for _, dep := range m.Consumes {
			if dep == "" {
				continue
			}
			producer, ok := idx.NameToID[dep]
			if !ok {
				errs = append(errs, fmt.Errorf("stage %q consumes unknown stage %q", m.Name, dep))
				continue
			}
			if producer == consumer {
				errs = append(errs, fmt.Errorf("stage %q consumes itself", m.Name))
				continue
			}
			if _, dup := seen[producer]; dup {
				continue
			}
			seen[producer] = struct{}{}
			g.Edges[producer] = append(g.Edges[producer], consumer)
			g.Indeg[consumer]++
		}
	}
	for i := range g.Edges {
		if len(g.Edges[i]) > 1 {
			slices.Sort(g.Edges[i])
		}
	}
	if len(errs) > 0 {
		return g, fmt.Errorf("stagegraph: %d error(s): %w", len(errs), errs[0])
	}
	return g, nil
}

// Topo is a topological ordering of a Graph's present stages.
type Topo struct {
	Order   []StageID
	Batches [][]StageID // waves of mutually independent stages
	Cyclic  bool
	Cycles  []StageID
}

// Toposort runs Kahn's algorithm over g, visiting producers before their
// consumers (a stage only appears once every stage it Consumes has been
// ordered already).
func Toposort(g Graph) Topo {
	n := len(g.Edges)
	indeg := make([]int, len(g.Indeg))
	copy(indeg, g.Indeg)

	topo := Topo{Order: make([]StageID, 0, n), Batches: make([][]StageID, 0)}

	active := 0
	for i := range n {
		if g.Present[i] {
			active++
		}
	}

	current := make([]StageID, 0, n)
	for i := range n {
		if g.Present[i] && indeg[i] == 0 {
			id, err := safecast.Conv[StageID](i)
			if err != nil {
				panic(fmt.Errorf("stage id overflow: %w", err))
			}
			current = append(current, id)
		}
	}
	slices.Sort(current)

	visited := 0
	for len(current) > 0 {
		batch := slices.Clone(current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]StageID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			visited++
			for _, to := range g.Edges[id] {
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != active {
		topo.Cyclic = true
		for i := range n {
			if g.Present[i] && indeg[i] > 0 {
				id, err := safecast.Conv[StageID](i)
				if err != nil {
					panic(fmt.Errorf("stage id overflow: %w", err))
				}
				topo.Cycles = append(topo.Cycles, id)
			}
		}
		slices.Sort(topo.Cycles)
	}
	return topo
}
