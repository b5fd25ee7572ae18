// Package simplify implements the bottom-up rewrite table over the
// expression IR (constant folding, identity/annihilator laws, comparison
// canonicalization) plus the three auxiliary routines the slide-and-fold
// pass needs: ProveTrue, BoundsOf, and WhereTrue.
package simplify

import (
	"fmt"

	"loomcc/internal/ir"
	"loomcc/internal/subst"
	"loomcc/internal/symbols"
)

// Facts is a standing set of known bounds per symbol, consulted by
// BoundsOf/ProveTrue/WhereTrue in place of ±∞ when a free variable has no
// other binder in scope. A nil *Facts behaves as an empty set.
type Facts = symbols.Map[ir.Interval]

// Simplify rewrites e bottom-up against the fixed rule table. Every
// rewrite here must preserve value under any assignment of free variables
// within the representable integer range; when a rule's soundness can't
// be established for some shape, it declines rather than guesses.
func Simplify(e ir.Expr) ir.Expr {
	if !e.Defined() {
		return e
	}
	switch e.Kind {
	case ir.ExprConst, ir.ExprVar, ir.ExprWildcard:
		return e
	case ir.ExprLet:
		d, _ := ir.As[ir.LetData](e)
		value := Simplify(d.Value)
		body := Simplify(d.Body)
		return ir.LetExpr(d.Sym, value, body)
	case ir.ExprBinary:
		d, _ := ir.As[ir.BinaryData](e)
		return foldBinary(d.Op, Simplify(d.A), Simplify(d.B))
	case ir.ExprNot:
		d, _ := ir.As[ir.NotData](e)
		return foldNot(Simplify(d.X))
	case ir.ExprSelect:
		d, _ := ir.As[ir.SelectData](e)
		return foldSelect(Simplify(d.Cond), Simplify(d.T), Simplify(d.F))
	case ir.ExprIntrinsic:
		d, _ := ir.As[ir.IntrinsicData](e)
		dim := d.Dim
		if dim.Defined() {
			dim = Simplify(dim)
		}
		var args []ir.Expr
		if len(d.Args) > 0 {
			args = make([]ir.Expr, len(d.Args))
			for i, a := range d.Args {
				args[i] = Simplify(a)
			}
		}
		return foldIntrinsic(d.Func, d.Buf, dim, args)
	default:
		return e
	}
}

func finite(e ir.Expr) (int64, bool) {
	c, ok := ir.As[ir.ConstData](e)
	if !ok || c.Kind != ir.ConstFinite {
		return 0, false
	}
	return c.Value, true
}

func isPosInf(e ir.Expr) bool {
	c, ok := ir.As[ir.ConstData](e)
	return ok && c.Kind == ir.ConstPosInf
}

func isNegInf(e ir.Expr) bool {
	c, ok := ir.As[ir.ConstData](e)
	return ok && c.Kind == ir.ConstNegInf
}

func isIndeterminate(e ir.Expr) bool {
	c, ok := ir.As[ir.ConstData](e)
	return ok && c.Kind == ir.ConstIndeterminate
}

func isInf(e ir.Expr) bool { return isPosInf(e) || isNegInf(e) }

func isZeroConst(e ir.Expr) bool { v, ok := finite(e); return ok && v == 0 }
func isOneConst(e ir.Expr) bool  { v, ok := finite(e); return ok && v == 1 }

// signOfInfinite returns +1/-1 for the ±∞ sentinels, 0 otherwise.
func signOfInfinite(e ir.Expr) int {
	switch {
	case isPosInf(e):
		return 1
	case isNegInf(e):
		return -1
	default:
		return 0
	}
}

func foldBinary(op ir.BinaryOp, a, b ir.Expr) ir.Expr {
	if isIndeterminate(a) || isIndeterminate(b) {
		switch op {
		case ir.Min, ir.Max:
			// fall through: min/max with a known-finite other operand can
			// still be decided by the infinity rules below, which check
			// isPosInf/isNegInf directly and are unaffected by indeterminate.
		default:
			return ir.Indeterminate()
		}
	}

	if av, aok := finite(a); aok {
		if bv, bok := finite(b); bok {
			if res, ok := evalFiniteBinary(op, av, bv); ok {
				return ir.Const(res)
			}
		}
	}

	switch op {
	case ir.Add:
		if r, ok := foldAddInf(a, b); ok {
			return r
		}
	case ir.Sub:
		if r, ok := foldSubInf(a, b); ok {
			return r
		}
	case ir.Mul:
		if r, ok := foldMulInf(a, b); ok {
			return r
		}
	case ir.Min:
		if isPosInf(a) {
			return b
		}
		if isPosInf(b) {
			return a
		}
		if isNegInf(a) || isNegInf(b) {
			return ir.NegInf()
		}
	case ir.Max:
		if isNegInf(a) {
			return b
		}
		if isNegInf(b) {
			return a
		}
		if isPosInf(a) || isPosInf(b) {
			return ir.PosInf()
		}
	}

	switch op {
	case ir.Add, ir.Sub:
		// Reassociate a trailing ±constant on either operand so chains built
		// by loop-shift substitution (e.g. (i-1)+1) collapse back to the
		// bare variable instead of sitting unevaluated as a deeper tree.
		if r, ok := normalizeAddSub(op, a, b); ok {
			return r
		}
	}

	switch op {
	case ir.Add:
		if isZeroConst(b) {
			return a
		}
		if isZeroConst(a) {
			return b
		}
	case ir.Sub:
		if isZeroConst(b) {
			return a
		}
	case ir.Mul:
		if isOneConst(b) {
			return a
		}
		if isOneConst(a) {
			return b
		}
		if isZeroConst(a) || isZeroConst(b) {
			return ir.Const(0)
		}
	case ir.Div:
		if isOneConst(b) {
			return a
		}
	}

	if op == ir.Eq || op == ir.Ne {
		// Eq/Ne are symmetric, so moving a lone constant to the right is
		// always sound; Lt/Le have no mirrored opcode to flip into, so
		// they are left as written rather than guessed at.
		_, aConst := finite(a)
		_, bConst := finite(b)
		if aConst && !bConst {
			return ir.Binary(op, b, a)
		}
	}
	return ir.Binary(op, a, b)
}

func foldAddInf(a, b ir.Expr) (ir.Expr, bool) {
	sa, ia := signOfInfinite(a), isInf(a)
	sb, ib := signOfInfinite(b), isInf(b)
	if !ia && !ib {
		return ir.Expr{}, false
	}
	if ia && ib {
		if sa != sb {
			return ir.Indeterminate(), true
		}
		if sa > 0 {
			return ir.PosInf(), true
		}
		return ir.NegInf(), true
	}
	if ia {
		return a, true
	}
	return b, true
}

func foldSubInf(a, b ir.Expr) (ir.Expr, bool) {
	sa, ia := signOfInfinite(a), isInf(a)
	sb, ib := signOfInfinite(b), isInf(b)
	if !ia && !ib {
		return ir.Expr{}, false
	}
	if ia && ib {
		if sa == sb {
			return ir.Indeterminate(), true
		}
		if sa > 0 {
			return ir.PosInf(), true
		}
		return ir.NegInf(), true
	}
	if ia {
		return a, true
	}
	if sb > 0 {
		return ir.NegInf(), true
	}
	return ir.PosInf(), true
}

func foldMulInf(a, b ir.Expr) (ir.Expr, bool) {
	ia, ib := isInf(a), isInf(b)
	if !ia && !ib {
		return ir.Expr{}, false
	}
	signA, signB := signOfOperand(a), signOfOperand(b)
	if signA == 0 || signB == 0 {
		return ir.Indeterminate(), true
	}
	if signA*signB > 0 {
		return ir.PosInf(), true
	}
	return ir.NegInf(), true
}

// signOfOperand returns the sign of an operand that is either a known
// ±∞ sentinel or a nonzero finite constant, and 0 (unknown/zero) otherwise.
func signOfOperand(e ir.Expr) int {
	if s := signOfInfinite(e); s != 0 {
		return s
	}
	if v, ok := finite(e); ok {
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		default:
			return 0
		}
	}
	return 0
}

// splitConst peels a single trailing ± finite constant off the top of an
// add/sub node, e.g. (x-1) -> (x, -1), (x+1) -> (x, 1) or (1+x) -> (x, 1).
// Anything else (including a bare constant, already handled by the
// finite-finite fold above) reports ok=false.
func splitConst(e ir.Expr) (rest ir.Expr, k int64, ok bool) {
	if e.Kind != ir.ExprBinary {
		return ir.Expr{}, 0, false
	}
	d, _ := ir.As[ir.BinaryData](e)
	switch d.Op {
	case ir.Add:
		if v, fok := finite(d.B); fok {
			return d.A, v, true
		}
		if v, fok := finite(d.A); fok {
			return d.B, v, true
		}
	case ir.Sub:
		if v, fok := finite(d.B); fok {
			return d.A, -v, true
		}
	}
	return ir.Expr{}, 0, false
}

// normalizeAddSub folds a constant already wrapped around one operand of
// an add/sub into the constant being combined with it, e.g.
// (x-1)+1 -> x+0 -> x, or (x+2)-5 -> x-3.
func normalizeAddSub(op ir.BinaryOp, a, b ir.Expr) (ir.Expr, bool) {
	if bv, ok := finite(b); ok {
		if rest, k, ok2 := splitConst(a); ok2 {
			if op == ir.Add {
				return foldBinary(ir.Add, rest, ir.Const(k+bv)), true
			}
			return foldBinary(ir.Add, rest, ir.Const(k-bv)), true
		}
	}
	if op == ir.Add {
		if av, ok := finite(a); ok {
			if rest, k, ok2 := splitConst(b); ok2 {
				return foldBinary(ir.Add, rest, ir.Const(av+k)), true
			}
		}
	}
	return ir.Expr{}, false
}

func evalFiniteBinary(op ir.BinaryOp, a, b int64) (int64, bool) {
	switch op {
	case ir.Add:
		return a + b, true
	case ir.Sub:
		return a - b, true
	case ir.Mul:
		return a * b, true
	case ir.Div:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case ir.Mod:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	case ir.Min:
		if a < b {
			return a, true
		}
		return b, true
	case ir.Max:
		if a > b {
			return a, true
		}
		return b, true
	case ir.Eq:
		return boolInt(a == b), true
	case ir.Ne:
		return boolInt(a != b), true
	case ir.Lt:
		return boolInt(a < b), true
	case ir.Le:
		return boolInt(a <= b), true
	case ir.And:
		return boolInt(a != 0 && b != 0), true
	case ir.Or:
		return boolInt(a != 0 || b != 0), true
	case ir.BitAnd:
		return a & b, true
	case ir.BitOr:
		return a | b, true
	case ir.BitXor:
		return a ^ b, true
	case ir.Shl:
		if b < 0 || b >= 64 {
			return 0, false
		}
		return a << uint(b), true
	case ir.Shr:
		if b < 0 || b >= 64 {
			return 0, false
		}
		return a >> uint(b), true
	default:
		return 0, false
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func foldNot(x ir.Expr) ir.Expr {
	if v, ok := finite(x); ok {
		return ir.Const(boolInt(v == 0))
	}
	return ir.Not(x)
}

func foldSelect(cond, t, f ir.Expr) ir.Expr {
	if v, ok := finite(cond); ok {
		if v != 0 {
			return t
		}
		return f
	}
	return ir.SelectExpr(cond, t, f)
}

func foldIntrinsic(fn ir.IntrinsicFunc, buf symbols.ID, dim ir.Expr, args []ir.Expr) ir.Expr {
	if fn == ir.Abs && len(args) == 1 {
		if v, ok := finite(args[0]); ok {
			if v < 0 {
				v = -v
			}
			return ir.Const(v)
		}
		if isInf(args[0]) {
			return ir.PosInf()
		}
	}
	if fn.TakesDim() {
		return ir.BufferField(fn, buf, dim)
	}
	if fn == ir.BufferAt {
		return ir.BufferAtExpr(buf, args...)
	}
	if fn == ir.Abs {
		return ir.AbsExpr(args[0])
	}
	return ir.BufferWhole(fn, buf)
}

// ProveTrue returns true iff e can be shown to simplify to a nonzero
// constant under facts. It never returns true on an uncertain input — an
// interval whose bounds don't exclude zero is reported as unproven.
//
// Plain interval bounding can't settle a predicate that compares two
// expressions sharing a free variable (the same i on both sides of an
// overlap test, say), since bounding each side separately throws away the
// correlation between them. Before falling back to BoundsOf, ProveTrue
// recurses through and/or, distributes min/max out of either side of a
// comparison (min(a,b) < c <=> a<c || b<c, and symmetric forms), and tries
// to reduce a comparison to a bare integer by linearizing its two sides
// and cancelling common terms — exactly what the slide-and-fold pass needs
// to decide disjointness and monotonicity of shifted buffer bounds.
func ProveTrue(e ir.Expr, facts *Facts) bool {
	if e.Kind == ir.ExprBinary {
		d, _ := ir.As[ir.BinaryData](e)
		switch d.Op {
		case ir.And:
			return ProveTrue(d.A, facts) && ProveTrue(d.B, facts)
		case ir.Or:
			return ProveTrue(d.A, facts) || ProveTrue(d.B, facts)
		case ir.Lt, ir.Le:
			if rewritten, ok := distributeMinMax(d.Op, d.A, d.B); ok {
				return ProveTrue(rewritten, facts)
			}
			if proven, ok := proveCompareAffine(d.Op, d.A, d.B); ok {
				return proven
			}
		case ir.Eq, ir.Ne:
			if proven, ok := proveCompareAffine(d.Op, d.A, d.B); ok {
				return proven
			}
		}
	}

	iv := BoundsOf(e, facts)
	if lo, ok := finite(iv.Min); ok && lo > 0 {
		return true
	}
	if hi, ok := finite(iv.Max); ok && hi < 0 {
		return true
	}
	if lo, lok := finite(iv.Min); lok {
		if hi, hok := finite(iv.Max); hok && lo == hi && lo != 0 {
			return true
		}
	}
	return false
}

// distributeMinMax rewrites a comparison with a min/max on either side
// into an equivalent and/or of simpler comparisons, so ProveTrue can keep
// recursing instead of giving up at the first min/max it meets.
func distributeMinMax(op ir.BinaryOp, a, b ir.Expr) (ir.Expr, bool) {
	if a.Kind == ir.ExprBinary {
		d, _ := ir.As[ir.BinaryData](a)
		switch d.Op {
		case ir.Min: // min(x,y) OP b  <=>  x OP b || y OP b
			return ir.Binary(ir.Or, ir.Binary(op, d.A, b), ir.Binary(op, d.B, b)), true
		case ir.Max: // max(x,y) OP b  <=>  x OP b && y OP b
			return ir.Binary(ir.And, ir.Binary(op, d.A, b), ir.Binary(op, d.B, b)), true
		}
	}
	if b.Kind == ir.ExprBinary {
		d, _ := ir.As[ir.BinaryData](b)
		switch d.Op {
		case ir.Min: // a OP min(x,y)  <=>  a OP x && a OP y
			return ir.Binary(ir.And, ir.Binary(op, a, d.A), ir.Binary(op, a, d.B)), true
		case ir.Max: // a OP max(x,y)  <=>  a OP x || a OP y
			return ir.Binary(ir.Or, ir.Binary(op, a, d.A), ir.Binary(op, a, d.B)), true
		}
	}
	return ir.Expr{}, false
}

// proveCompareAffine decides op(a,b) by linearizing b-a into a sum of
// coefficient*atom terms plus a constant; if every atom's coefficient
// cancels to zero, the comparison reduces to comparing that constant
// against zero. ok is false when something symbolic survives cancellation
// (an unproven comparison, not a disproven one).
func proveCompareAffine(op ir.BinaryOp, a, b ir.Expr) (proven, ok bool) {
	diff := newLinearForm()
	diff.merge(linearize(b), 1)
	diff.merge(linearize(a), -1)
	c, isConst := diff.asConstant()
	if !isConst {
		return false, false
	}
	switch op {
	case ir.Lt:
		return c > 0, true
	case ir.Le:
		return c >= 0, true
	case ir.Eq:
		return c == 0, true
	case ir.Ne:
		return c != 0, true
	}
	return false, false
}

// linearForm is a sum of coefficient*atom terms plus a constant offset,
// where an atom is any subexpression add/sub/const-mul couldn't decompose
// further. Used only to let a comparison's two sides cancel a shared
// symbolic term (the same loop variable on both sides of a shifted bound)
// that bottom-up constant folding, which never looks across sibling
// subtrees, can't reach.
type linearForm struct {
	terms    map[string]int64
	constant int64
}

func newLinearForm() *linearForm {
	return &linearForm{terms: map[string]int64{}}
}

func (l *linearForm) merge(o *linearForm, scale int64) {
	for k, c := range o.terms {
		l.terms[k] += c * scale
	}
	l.constant += o.constant * scale
}

func (l *linearForm) asConstant() (int64, bool) {
	for _, c := range l.terms {
		if c != 0 {
			return 0, false
		}
	}
	return l.constant, true
}

func exprKey(e ir.Expr) string { return fmt.Sprintf("%#v", e) }

func linearize(e ir.Expr) *linearForm {
	l := newLinearForm()
	if !e.Defined() {
		return l
	}
	if v, ok := finite(e); ok {
		l.constant += v
		return l
	}
	if e.Kind == ir.ExprBinary {
		d, _ := ir.As[ir.BinaryData](e)
		switch d.Op {
		case ir.Add:
			l.merge(linearize(d.A), 1)
			l.merge(linearize(d.B), 1)
			return l
		case ir.Sub:
			l.merge(linearize(d.A), 1)
			l.merge(linearize(d.B), -1)
			return l
		case ir.Mul:
			if v, ok := finite(d.A); ok {
				l.merge(linearize(d.B), v)
				return l
			}
			if v, ok := finite(d.B); ok {
				l.merge(linearize(d.A), v)
				return l
			}
		}
	}
	l.terms[exprKey(e)] = 1
	return l
}

// BoundsOf computes a conservative {min, max} for e, treating every free
// variable as ranging over ±∞ unless facts has a tighter bound in scope.
func BoundsOf(e ir.Expr, facts *Facts) ir.Interval {
	if !e.Defined() {
		return ir.UnboundedInterval()
	}
	switch e.Kind {
	case ir.ExprConst:
		c, _ := ir.As[ir.ConstData](e)
		switch c.Kind {
		case ir.ConstFinite:
			return ir.PointInterval(e)
		case ir.ConstPosInf:
			return ir.Interval{Min: ir.PosInf(), Max: ir.PosInf()}
		case ir.ConstNegInf:
			return ir.Interval{Min: ir.NegInf(), Max: ir.NegInf()}
		default:
			return ir.UnboundedInterval()
		}
	case ir.ExprVar:
		d, _ := ir.As[ir.VarData](e)
		if facts != nil {
			if iv, ok := facts.Get(d.Sym); ok {
				return iv
			}
		}
		return ir.UnboundedInterval()
	case ir.ExprLet:
		d, _ := ir.As[ir.LetData](e)
		vb := BoundsOf(d.Value, facts)
		if facts == nil {
			facts = symbols.NewMapT[ir.Interval]()
		}
		binding := facts.Bind(d.Sym, vb)
		defer binding.Release()
		return BoundsOf(d.Body, facts)
	case ir.ExprBinary:
		d, _ := ir.As[ir.BinaryData](e)
		if d.Op == ir.Add || d.Op == ir.Sub {
			// A sum/difference of two occurrences of the same free variable
			// (a shifted buffer bound minus its unshifted twin, typically)
			// has an exact width no matter how wide that variable's own
			// range is; bounding each side of the subtraction separately
			// below would lose that cancellation and widen to ±∞.
			if c, ok := linearize(e).asConstant(); ok {
				return ir.PointInterval(ir.Const(c))
			}
		}
		return boundsOfBinary(d.Op, BoundsOf(d.A, facts), BoundsOf(d.B, facts))
	case ir.ExprNot:
		return ir.Interval{Min: ir.Const(0), Max: ir.Const(1)}
	case ir.ExprSelect:
		d, _ := ir.As[ir.SelectData](e)
		return BoundsOf(d.T, facts).Union(BoundsOf(d.F, facts))
	case ir.ExprIntrinsic:
		d, _ := ir.As[ir.IntrinsicData](e)
		if d.Func == ir.Abs && len(d.Args) == 1 {
			return boundsOfAbs(BoundsOf(d.Args[0], facts))
		}
		return ir.UnboundedInterval()
	default:
		return ir.UnboundedInterval()
	}
}

func boundsOfAbs(x ir.Interval) ir.Interval {
	lo, lok := finite(x.Min)
	hi, hok := finite(x.Max)
	if !lok || !hok {
		return ir.Interval{Min: ir.Const(0), Max: ir.PosInf()}
	}
	if lo >= 0 {
		return ir.Interval{Min: ir.Const(lo), Max: ir.Const(hi)}
	}
	if hi <= 0 {
		return ir.Interval{Min: ir.Const(-hi), Max: ir.Const(-lo)}
	}
	absLo, absHi := -lo, hi
	max := absLo
	if absHi > max {
		max = absHi
	}
	return ir.Interval{Min: ir.Const(0), Max: ir.Const(max)}
}

func boundsOfBinary(op ir.BinaryOp, a, b ir.Interval) ir.Interval {
	switch op {
	case ir.Add:
		return ir.Interval{Min: Simplify(ir.BinAdd(a.Min, b.Min)), Max: Simplify(ir.BinAdd(a.Max, b.Max))}
	case ir.Sub:
		return ir.Interval{Min: Simplify(ir.BinSub(a.Min, b.Max)), Max: Simplify(ir.BinSub(a.Max, b.Min))}
	case ir.Min:
		return ir.Interval{Min: Simplify(ir.BinMin(a.Min, b.Min)), Max: Simplify(ir.BinMin(a.Max, b.Max))}
	case ir.Max:
		return ir.Interval{Min: Simplify(ir.BinMax(a.Min, b.Min)), Max: Simplify(ir.BinMax(a.Max, b.Max))}
	case ir.Mul:
		return boundsOfMul(a, b)
	case ir.Div:
		if v, ok := finite(b.Min); ok && v > 0 {
			if ir.Match(b.Min, b.Max) {
				return ir.Interval{Min: Simplify(ir.BinDiv(a.Min, b.Min)), Max: Simplify(ir.BinDiv(a.Max, b.Min))}
			}
		}
		return ir.UnboundedInterval()
	case ir.Mod:
		if v, ok := finite(b.Min); ok && v > 0 && ir.Match(b.Min, b.Max) {
			return ir.Interval{Min: ir.Const(0), Max: ir.Const(v - 1)}
		}
		return ir.UnboundedInterval()
	case ir.Eq, ir.Ne, ir.Lt, ir.Le, ir.And, ir.Or:
		return ir.Interval{Min: ir.Const(0), Max: ir.Const(1)}
	default:
		return ir.UnboundedInterval()
	}
}

func boundsOfMul(a, b ir.Interval) ir.Interval {
	products := [4]ir.Expr{
		Simplify(ir.BinMul(a.Min, b.Min)),
		Simplify(ir.BinMul(a.Min, b.Max)),
		Simplify(ir.BinMul(a.Max, b.Min)),
		Simplify(ir.BinMul(a.Max, b.Max)),
	}
	min, max := products[0], products[0]
	for _, p := range products[1:] {
		min = Simplify(ir.BinMin(min, p))
		max = Simplify(ir.BinMax(max, p))
	}
	return ir.Interval{Min: min, Max: max}
}

// WhereTrue returns an interval of values of x for which cond is provably
// true. Only a limited set of monotonic comparison shapes is recognized;
// anything else conservatively reports the empty interval (nothing is
// claimed to hold) rather than over-approximating.
func WhereTrue(cond ir.Expr, x symbols.ID, facts *Facts) ir.Interval {
	result := whereTrue(cond, x)
	if facts != nil {
		if fact, ok := facts.Get(x); ok {
			result = result.Intersect(fact)
		}
	}
	return result
}

func emptyInterval() ir.Interval { return ir.Interval{Min: ir.PosInf(), Max: ir.NegInf()} }

func isVarSym(e ir.Expr, x symbols.ID) bool {
	d, ok := ir.As[ir.VarData](e)
	return ok && d.Sym == x
}

// isolateVar reports whether e is exactly x plus some finite offset (x
// itself, x+k, or x-k), peeling at most one layer of add/sub the way
// splitConst does. Lets whereTrue solve a condition like (x+1)<=c the same
// way it solves x<=c, which the loop-shift substitutions slide-and-fold
// builds routinely produce.
func isolateVar(e ir.Expr, x symbols.ID) (int64, bool) {
	if isVarSym(e, x) {
		return 0, true
	}
	if rest, k, ok := splitConst(e); ok {
		if innerK, ok2 := isolateVar(rest, x); ok2 {
			return innerK + k, true
		}
	}
	return 0, false
}

func whereTrue(cond ir.Expr, x symbols.ID) ir.Interval {
	if cond.Kind != ir.ExprBinary {
		return emptyInterval()
	}
	d, _ := ir.As[ir.BinaryData](cond)
	switch d.Op {
	case ir.And:
		return whereTrue(d.A, x).Intersect(whereTrue(d.B, x))
	case ir.Lt:
		if k, ok := isolateVar(d.A, x); ok && !subst.DependsOn(d.B, x) {
			return ir.Interval{Min: ir.NegInf(), Max: Simplify(ir.BinSub(ir.BinSub(d.B, ir.Const(k)), ir.Const(1)))}
		}
		if k, ok := isolateVar(d.B, x); ok && !subst.DependsOn(d.A, x) {
			return ir.Interval{Min: Simplify(ir.BinAdd(ir.BinSub(d.A, ir.Const(k)), ir.Const(1))), Max: ir.PosInf()}
		}
	case ir.Le:
		if k, ok := isolateVar(d.A, x); ok && !subst.DependsOn(d.B, x) {
			return ir.Interval{Min: ir.NegInf(), Max: Simplify(ir.BinSub(d.B, ir.Const(k)))}
		}
		if k, ok := isolateVar(d.B, x); ok && !subst.DependsOn(d.A, x) {
			return ir.Interval{Min: Simplify(ir.BinAdd(d.A, ir.Const(k))), Max: ir.PosInf()}
		}
	case ir.Eq:
		if k, ok := isolateVar(d.A, x); ok && !subst.DependsOn(d.B, x) {
			return ir.PointInterval(Simplify(ir.BinSub(d.B, ir.Const(k))))
		}
		if k, ok := isolateVar(d.B, x); ok && !subst.DependsOn(d.A, x) {
			return ir.PointInterval(Simplify(ir.BinSub(d.A, ir.Const(k))))
		}
	}
	return emptyInterval()
}
