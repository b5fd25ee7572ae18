package ir

// Interval is the inclusive range {x : Min ≤ x ≤ Max} of §3. An interval
// is empty iff Min > Max; unbounded endpoints are the explicit PosInf/
// NegInf sentinels, never the zero Expr.
type Interval struct {
	Min Expr
	Max Expr
}

// UnboundedInterval is (−∞, +∞), the widest possible demand.
func UnboundedInterval() Interval { return Interval{Min: NegInf(), Max: PosInf()} }

// PointInterval is the degenerate interval [x, x].
func PointInterval(x Expr) Interval { return Interval{Min: x, Max: x} }

// Extent returns max − min + 1 as an (unsimplified) expression.
func (iv Interval) Extent() Expr { return BinAdd(BinSub(iv.Max, iv.Min), Const(1)) }

// Union returns the symbolic hull (min(a.min,b.min), max(a.max,b.max)).
// This is a hull, not a set union — the result may contain points outside
// both operands.
func (a Interval) Union(b Interval) Interval {
	return Interval{Min: BinMin(a.Min, b.Min), Max: BinMax(a.Max, b.Max)}
}

// Intersect returns (max(a.min,b.min), min(a.max,b.max)).
func (a Interval) Intersect(b Interval) Interval {
	return Interval{Min: BinMax(a.Min, b.Min), Max: BinMin(a.Max, b.Max)}
}

// EmptyTest builds the expression "this interval is empty": min > max.
func (iv Interval) EmptyTest() Expr { return Binary(Lt, iv.Max, iv.Min) }

// Substitute rewrites both endpoints with f, used by passes that shift
// an interval by a symbol substitution (e.g. sym := sym - step).
func (iv Interval) Substitute(f func(Expr) Expr) Interval {
	return Interval{Min: f(iv.Min), Max: f(iv.Max)}
}

// Box is an ordered sequence of intervals, one per buffer dimension.
type Box []Interval

// Clone returns a shallow copy of b (Intervals are value types, so this
// is a deep-enough copy for a caller about to mutate one slot).
func (b Box) Clone() Box {
	out := make(Box, len(b))
	copy(out, b)
	return out
}

// Union returns the pointwise hull of a and b. Panics if ranks differ —
// a rank mismatch between boxes of the same buffer is a malformed-input
// bug by construction (§3's rank invariant), not a runtime condition to
// recover from.
func (a Box) Union(b Box) Box {
	if len(a) == 0 {
		return b.Clone()
	}
	if len(b) == 0 {
		return a.Clone()
	}
	if len(a) != len(b) {
		panic("ir: box rank mismatch in Union")
	}
	out := make(Box, len(a))
	for d := range a {
		out[d] = a[d].Union(b[d])
	}
	return out
}

// Intersect returns the pointwise intersection of a and b.
func (a Box) Intersect(b Box) Box {
	if len(a) != len(b) {
		panic("ir: box rank mismatch in Intersect")
	}
	out := make(Box, len(a))
	for d := range a {
		out[d] = a[d].Intersect(b[d])
	}
	return out
}

// Dim is a dimension descriptor: bounds, storage stride, and an optional
// fold factor (undefined means unfolded).
type Dim struct {
	Bounds     Interval
	Stride     Expr
	FoldFactor Expr // Expr{} (undefined) means unfolded
}

// Folded reports whether this dimension has a defined fold factor.
func (d Dim) Folded() bool { return d.FoldFactor.Defined() }
