package symbols

// ID identifies a symbol inside a Table. IDs are dense, non-negative, and
// assigned in insertion order starting at zero.
type ID uint32

// Invalid marks the absence of a symbol reference.
const Invalid ID = ^ID(0)

// IsValid reports whether id was returned by a Table rather than being the
// zero value of an uninitialized field.
func (id ID) IsValid() bool { return id != Invalid }
