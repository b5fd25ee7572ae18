package diag

import "fmt"

// Location pinpoints where in the middle end a diagnostic arose. There is
// no source text to point into here (the front end that owns spans is out
// of scope), so a location is a breadcrumb: which pass was running, which
// symbol it was visiting, and what node shape it expected.
type Location struct {
	Pass   string
	Symbol string
	Detail string
}

func (l Location) String() string {
	switch {
	case l.Symbol == "" && l.Detail == "":
		return l.Pass
	case l.Detail == "":
		return fmt.Sprintf("%s: %s", l.Pass, l.Symbol)
	case l.Symbol == "":
		return fmt.Sprintf("%s: %s", l.Pass, l.Detail)
	default:
		return fmt.Sprintf("%s: %s (%s)", l.Pass, l.Symbol, l.Detail)
	}
}
