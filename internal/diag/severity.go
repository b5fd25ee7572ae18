package diag

// Severity classifies how serious a diagnostic is.
type Severity uint8

const (
	// SevInfo is for informational diagnostics, never a reason to abort.
	SevInfo Severity = iota
	// SevWarning flags something suspicious but not fatal to compilation.
	SevWarning
	// SevError marks malformed input; compilation does not produce a tree.
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	default:
		return "unknown"
	}
}
