package diag

// Reporter is the minimal contract a pass uses to surface a diagnostic
// without depending on how it is ultimately collected.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter adapts a Bag to the Reporter interface.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag != nil {
		r.Bag.Add(d)
	}
}

// NopReporter discards every diagnostic; useful when a caller wants the
// rewritten tree but does not care about notices.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}

// ReportError reports a SevError diagnostic built from the given fields.
func ReportError(r Reporter, code Code, at Location, msg string) {
	if r == nil {
		return
	}
	r.Report(Diagnostic{Severity: SevError, Code: code, Message: msg, At: at})
}

// Notice reports a SevInfo diagnostic, used for the conservative fallbacks
// that slide-and-fold takes when it cannot prove a predicate.
func Notice(r Reporter, code Code, at Location, msg string) {
	if r == nil {
		return
	}
	r.Report(Diagnostic{Severity: SevInfo, Code: code, Message: msg, At: at})
}
