package diag

// Diagnostic is a single reported event: a malformed-input failure, or a
// notice about a conservative fallback a pass took.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	At       Location
}

func (d Diagnostic) String() string {
	return d.Severity.String() + " [" + d.Code.String() + "] " + d.At.String() + ": " + d.Message
}
