package ir

import "loomcc/internal/symbols"

// Expr is an immutable node in the scalar expression tree. Two Exprs with
// the same Kind and structurally equal Data are interchangeable; nothing
// in this package hash-conses them, so sharing is whatever the Go
// allocator and garbage collector give you for free — rewrites build new
// roots, unchanged subtrees are passed through by value (Expr is small:
// a tag plus an interface word) rather than copied.
type Expr struct {
	Kind ExprKind
	Data any
}

// Defined distinguishes a real expression from the zero-valued Expr{}.
func (e Expr) Defined() bool { return e.Kind != ExprInvalid }

// As narrows e to its variant payload type T, mirroring the source's
// as<T>(). ok is false if e's Kind doesn't carry a T.
func As[T any](e Expr) (T, bool) {
	v, ok := e.Data.(T)
	return v, ok
}

// ConstData is the payload of an ExprConst node.
type ConstData struct {
	Kind  ConstKind
	Value int64 // meaningful only when Kind == ConstFinite
}

// Const builds a finite integer constant.
func Const(v int64) Expr { return Expr{Kind: ExprConst, Data: ConstData{Kind: ConstFinite, Value: v}} }

// PosInf is the +∞ sentinel.
func PosInf() Expr { return Expr{Kind: ExprConst, Data: ConstData{Kind: ConstPosInf}} }

// NegInf is the −∞ sentinel.
func NegInf() Expr { return Expr{Kind: ExprConst, Data: ConstData{Kind: ConstNegInf}} }

// Indeterminate is the result of ill-defined arithmetic like 0 * ∞.
func Indeterminate() Expr { return Expr{Kind: ExprConst, Data: ConstData{Kind: ConstIndeterminate}} }

// VarData is the payload of an ExprVar node.
type VarData struct {
	Sym symbols.ID
}

// Var references a bound symbol.
func Var(sym symbols.ID) Expr { return Expr{Kind: ExprVar, Data: VarData{Sym: sym}} }

// LetData is the payload of an ExprLet node.
type LetData struct {
	Sym   symbols.ID
	Value Expr
	Body  Expr
}

// LetExpr binds sym to value within body.
func LetExpr(sym symbols.ID, value, body Expr) Expr {
	return Expr{Kind: ExprLet, Data: LetData{Sym: sym, Value: value, Body: body}}
}

// BinaryData is the payload of an ExprBinary node.
type BinaryData struct {
	Op BinaryOp
	A  Expr
	B  Expr
}

// Binary builds a binary operator node.
func Binary(op BinaryOp, a, b Expr) Expr { return Expr{Kind: ExprBinary, Data: BinaryData{Op: op, A: a, B: b}} }

func BinAdd(a, b Expr) Expr    { return Binary(Add, a, b) }
func BinSub(a, b Expr) Expr    { return Binary(Sub, a, b) }
func BinMul(a, b Expr) Expr    { return Binary(Mul, a, b) }
func BinDiv(a, b Expr) Expr    { return Binary(Div, a, b) }
func BinMod(a, b Expr) Expr    { return Binary(Mod, a, b) }
func BinMin(a, b Expr) Expr    { return Binary(Min, a, b) }
func BinMax(a, b Expr) Expr    { return Binary(Max, a, b) }
func BinEq(a, b Expr) Expr     { return Binary(Eq, a, b) }
func BinNe(a, b Expr) Expr     { return Binary(Ne, a, b) }
func BinLt(a, b Expr) Expr     { return Binary(Lt, a, b) }
func BinLe(a, b Expr) Expr     { return Binary(Le, a, b) }
func BinAnd(a, b Expr) Expr    { return Binary(And, a, b) }
func BinOr(a, b Expr) Expr     { return Binary(Or, a, b) }
func BinBitAnd(a, b Expr) Expr { return Binary(BitAnd, a, b) }
func BinBitOr(a, b Expr) Expr  { return Binary(BitOr, a, b) }
func BinBitXor(a, b Expr) Expr { return Binary(BitXor, a, b) }
func BinShl(a, b Expr) Expr    { return Binary(Shl, a, b) }
func BinShr(a, b Expr) Expr    { return Binary(Shr, a, b) }

// NotData is the payload of an ExprNot node.
type NotData struct{ X Expr }

// Not builds a logical negation.
func Not(x Expr) Expr { return Expr{Kind: ExprNot, Data: NotData{X: x}} }

// SelectData is the payload of an ExprSelect node.
type SelectData struct {
	Cond Expr
	T    Expr
	F    Expr
}

// SelectExpr builds a select(cond, t, f) node.
func SelectExpr(cond, t, f Expr) Expr {
	return Expr{Kind: ExprSelect, Data: SelectData{Cond: cond, T: t, F: f}}
}

// IntrinsicData is the payload of an ExprIntrinsic node. Buf is the
// buffer symbol for every buffer_* intrinsic; Dim is the dimension
// argument for the per-dimension queries (BufferMin, BufferMax,
// BufferExtent, BufferStride, BufferFoldFactor); Args holds abs's single
// operand or buffer_at's coordinate list.
type IntrinsicData struct {
	Func IntrinsicFunc
	Buf  symbols.ID
	Dim  Expr
	Args []Expr
}

// BufferField builds a per-dimension buffer-metadata query.
func BufferField(fn IntrinsicFunc, buf symbols.ID, dim Expr) Expr {
	if !fn.takesDim() {
		panic("ir: BufferField called with a non-dimensional intrinsic " + fn.String())
	}
	return Expr{Kind: ExprIntrinsic, Data: IntrinsicData{Func: fn, Buf: buf, Dim: dim}}
}

// BufferWhole builds a whole-buffer query (base, elem_size, rank, size_bytes).
func BufferWhole(fn IntrinsicFunc, buf symbols.ID) Expr {
	if fn.takesDim() {
		panic("ir: BufferWhole called with a dimensional intrinsic " + fn.String())
	}
	return Expr{Kind: ExprIntrinsic, Data: IntrinsicData{Func: fn, Buf: buf}}
}

// AbsExpr builds abs(x).
func AbsExpr(x Expr) Expr { return Expr{Kind: ExprIntrinsic, Data: IntrinsicData{Func: Abs, Args: []Expr{x}}} }

// BufferAtExpr builds buffer_at(buf, at...).
func BufferAtExpr(buf symbols.ID, at ...Expr) Expr {
	return Expr{Kind: ExprIntrinsic, Data: IntrinsicData{Func: BufferAt, Buf: buf, Args: at}}
}

// WildcardData is the payload of an ExprWildcard node.
type WildcardData struct{ ID int }

// Wildcard builds a rewrite-pattern placeholder that Match unifies
// against any subtree, consistently across repeated occurrences of id.
func Wildcard(id int) Expr { return Expr{Kind: ExprWildcard, Data: WildcardData{ID: id}} }

// Match reports whether a and b are structurally equal, treating any
// ExprWildcard node on either side as matching the other subtree and
// requiring repeated occurrences of the same wildcard id to match the
// same bound subtree.
func Match(a, b Expr) bool {
	bindings := make(map[int]Expr)
	return match(a, b, bindings)
}

func match(a, b Expr, bindings map[int]Expr) bool {
	if a.Kind == ExprWildcard {
		return matchWildcard(a, b, bindings)
	}
	if b.Kind == ExprWildcard {
		return matchWildcard(b, a, bindings)
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ExprInvalid:
		return true
	case ExprConst:
		ca, _ := As[ConstData](a)
		cb, _ := As[ConstData](b)
		return ca == cb
	case ExprVar:
		va, _ := As[VarData](a)
		vb, _ := As[VarData](b)
		return va.Sym == vb.Sym
	case ExprLet:
		la, _ := As[LetData](a)
		lb, _ := As[LetData](b)
		return la.Sym == lb.Sym && match(la.Value, lb.Value, bindings) && match(la.Body, lb.Body, bindings)
	case ExprBinary:
		ba, _ := As[BinaryData](a)
		bb, _ := As[BinaryData](b)
		return ba.Op == bb.Op && match(ba.A, bb.A, bindings) && match(ba.B, bb.B, bindings)
	case ExprNot:
		na, _ := As[NotData](a)
		nb, _ := As[NotData](b)
		return match(na.X, nb.X, bindings)
	case ExprSelect:
		sa, _ := As[SelectData](a)
		sb, _ := As[SelectData](b)
		return match(sa.Cond, sb.Cond, bindings) && match(sa.T, sb.T, bindings) && match(sa.F, sb.F, bindings)
	case ExprIntrinsic:
		ia, _ := As[IntrinsicData](a)
		ib, _ := As[IntrinsicData](b)
		if ia.Func != ib.Func || len(ia.Args) != len(ib.Args) {
			return false
		}
		if ia.Func != Abs && ia.Buf != ib.Buf {
			return false
		}
		if ia.Func.takesDim() && !match(ia.Dim, ib.Dim, bindings) {
			return false
		}
		for i := range ia.Args {
			if !match(ia.Args[i], ib.Args[i], bindings) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func matchWildcard(w, other Expr, bindings map[int]Expr) bool {
	wd, _ := As[WildcardData](w)
	if bound, ok := bindings[wd.ID]; ok {
		return match(bound, other, bindings)
	}
	bindings[wd.ID] = other
	return true
}
