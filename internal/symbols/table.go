// Package symbols provides the dense name<->ID table shared by the IR,
// mirroring a node_context: every name used by a compilation is interned
// once and referenced thereafter by its ID.
package symbols

import (
	"fmt"

	"fortio.org/safecast"
)

// Table is a bijection between strings and dense IDs, insertion-only for
// the lifetime of a single compilation. It never removes entries: rewrites
// produce new IR referencing existing IDs, they never need to free one.
type Table struct {
	names []string
	byName map[string]ID
}

// NewTable builds an empty table with an optional capacity hint.
func NewTable(hint int) *Table {
	if hint < 0 {
		hint = 0
	}
	return &Table{
		names:  make([]string, 0, hint),
		byName: make(map[string]ID, hint),
	}
}

// Insert returns the ID for name, allocating a fresh one if name has not
// been seen before.
func (t *Table) Insert(name string) ID {
	if id, ok := t.byName[name]; ok {
		return id
	}
	idx, err := safecast.Conv[uint32](len(t.names))
	if err != nil {
		panic(fmt.Errorf("symbol table overflow: %w", err))
	}
	id := ID(idx)
	t.names = append(t.names, name)
	t.byName[name] = id
	return id
}

// InsertUnique allocates a fresh ID under a name derived from base,
// disambiguating with a numeric suffix if base is already taken. It is used
// to name synthetic symbols introduced by a pass (e.g. a loop's warm-up
// bound) that must not collide with anything the caller already declared.
func (t *Table) InsertUnique(base string) ID {
	if _, taken := t.byName[base]; !taken {
		return t.Insert(base)
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%d", base, i)
		if _, taken := t.byName[candidate]; !taken {
			return t.Insert(candidate)
		}
	}
}

// Lookup returns the ID assigned to name, or (Invalid, false) if name was
// never inserted.
func (t *Table) Lookup(name string) (ID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Name returns the name assigned to id. It panics on an ID this table did
// not allocate, since that indicates a bug crossing table boundaries.
func (t *Table) Name(id ID) string {
	if int(id) >= len(t.names) {
		panic(fmt.Errorf("symbols: id %d not known to this table", id))
	}
	return t.names[id]
}

// Len reports how many symbols have been allocated.
func (t *Table) Len() int { return len(t.names) }
