package symbols

// Map is a dense, ID-indexed map with an explicit "defined" bit per slot,
// mirroring a symbol_map<T>: lookups on an ID nobody has bound return the
// zero value and false rather than panicking, and growth is automatic.
type Map[T any] struct {
	slots []mapSlot[T]
}

type mapSlot[T any] struct {
	value   T
	defined bool
}

// NewMapT constructs an empty Map. The name avoids colliding with the
// generic type Map itself at call sites that want a type-inferred literal.
func NewMapT[T any]() *Map[T] {
	return &Map[T]{}
}

func (m *Map[T]) ensure(n int) {
	if n < len(m.slots) {
		return
	}
	grown := make([]mapSlot[T], n+1)
	copy(grown, m.slots)
	m.slots = grown
}

// Get returns the value bound to id, if any.
func (m *Map[T]) Get(id ID) (T, bool) {
	if int(id) >= len(m.slots) {
		var zero T
		return zero, false
	}
	s := m.slots[id]
	return s.value, s.defined
}

// Contains reports whether id currently has a value bound.
func (m *Map[T]) Contains(id ID) bool {
	_, ok := m.Get(id)
	return ok
}

// Set assigns value to id unconditionally, overwriting any scope that a
// Binding may later try to restore. Passes that are not scoping a value
// (e.g. accumulating into an already-pushed slot) use this directly.
func (m *Map[T]) Set(id ID, value T) {
	m.ensure(int(id))
	m.slots[id] = mapSlot[T]{value: value, defined: true}
}

// Clear removes the binding for id, as if it had never been set.
func (m *Map[T]) Clear(id ID) {
	if int(id) >= len(m.slots) {
		return
	}
	m.slots[id] = mapSlot[T]{}
}

// Binding is a scope guard: Release restores the slot to whatever it held
// before Bind was called, so recursive traversal across binders is correct
// even if the caller returns early.
type Binding[T any] struct {
	m        *Map[T]
	id       ID
	prev     mapSlot[T]
	released bool
}

// Bind sets id's value for the duration of the returned Binding's scope.
func (m *Map[T]) Bind(id ID, value T) *Binding[T] {
	m.ensure(int(id))
	prev := m.slots[id]
	m.slots[id] = mapSlot[T]{value: value, defined: true}
	return &Binding[T]{m: m, id: id, prev: prev}
}

// Release restores the value the slot held before Bind. Safe to call via
// defer; idempotent.
func (b *Binding[T]) Release() {
	if b == nil || b.released {
		return
	}
	b.m.slots[b.id] = b.prev
	b.released = true
}

// Each calls fn for every slot that currently holds a value, in ID order.
func (m *Map[T]) Each(fn func(id ID, value T)) {
	for i, s := range m.slots {
		if s.defined {
			fn(ID(i), s.value)
		}
	}
}

// Len returns the number of slots allocated, i.e. one past the greatest ID
// ever bound in this map (not the number of defined entries).
func (m *Map[T]) Len() int { return len(m.slots) }
