package ir

import "loomcc/internal/symbols"

// Stmt is an immutable node in the statement tree, tagged the same way
// as Expr.
type Stmt struct {
	Kind StmtKind
	Data any
}

// Defined distinguishes a real statement from the zero-valued Stmt{}
// (used as the empty body / no-op).
func (s Stmt) Defined() bool { return s.Kind != StmtInvalid }

// AsStmt narrows s to its variant payload type T.
func AsStmt[T any](s Stmt) (T, bool) {
	v, ok := s.Data.(T)
	return v, ok
}

// LetStmtData is the payload of a StmtLet node.
type LetStmtData struct {
	Sym   symbols.ID
	Value Expr
	Body  Stmt
}

// LetStmt binds sym to value for the duration of body.
func LetStmt(sym symbols.ID, value Expr, body Stmt) Stmt {
	return Stmt{Kind: StmtLet, Data: LetStmtData{Sym: sym, Value: value, Body: body}}
}

// BlockData is the payload of a StmtBlock node.
type BlockData struct {
	A Stmt
	B Stmt
}

// MakeBlock composes a then b, collapsing an undefined operand (returns
// the other) so that block construction stays left-associative without
// accumulating no-op nodes, mirroring block::make in §4.A.
func MakeBlock(a, b Stmt) Stmt {
	if !a.Defined() {
		return b
	}
	if !b.Defined() {
		return a
	}
	return Stmt{Kind: StmtBlock, Data: BlockData{A: a, B: b}}
}

// Blocks flattens a left-associative chain of statements into one block,
// skipping undefined entries.
func Blocks(stmts ...Stmt) Stmt {
	var out Stmt
	for _, s := range stmts {
		out = MakeBlock(out, s)
	}
	return out
}

// LoopData is the payload of a StmtLoop node.
type LoopData struct {
	Sym    symbols.ID
	Mode   LoopMode
	Bounds Interval
	Step   Expr
	Body   Stmt
}

// Loop builds a loop(sym, mode, bounds, step, body) node.
func Loop(sym symbols.ID, mode LoopMode, bounds Interval, step Expr, body Stmt) Stmt {
	return Stmt{Kind: StmtLoop, Data: LoopData{Sym: sym, Mode: mode, Bounds: bounds, Step: step, Body: body}}
}

// IfThenElseData is the payload of a StmtIfThenElse node.
type IfThenElseData struct {
	Cond Expr
	Then Stmt
	Else Stmt
}

// IfThenElse builds a conditional statement. Else may be the undefined
// Stmt{} (no else branch).
func IfThenElse(cond Expr, then, els Stmt) Stmt {
	return Stmt{Kind: StmtIfThenElse, Data: IfThenElseData{Cond: cond, Then: then, Else: els}}
}

// AllocateData is the payload of a StmtAllocate node.
type AllocateData struct {
	Sym      symbols.ID
	Storage  Storage
	ElemSize Expr
	Dims     []Dim
	Body     Stmt
}

// Allocate builds an allocate(sym, storage, elem_size, dims, body) node.
func Allocate(sym symbols.ID, storage Storage, elemSize Expr, dims []Dim, body Stmt) Stmt {
	return Stmt{Kind: StmtAllocate, Data: AllocateData{Sym: sym, Storage: storage, ElemSize: elemSize, Dims: dims, Body: body}}
}

// MakeBufferData is the payload of a StmtMakeBuffer node: a buffer
// descriptor built directly from an existing base pointer rather than a
// fresh allocation (e.g. a view over caller-supplied memory).
type MakeBufferData struct {
	Sym      symbols.ID
	Base     Expr
	ElemSize Expr
	Dims     []Dim
	Body     Stmt
}

func MakeBufferStmt(sym symbols.ID, base, elemSize Expr, dims []Dim, body Stmt) Stmt {
	return Stmt{Kind: StmtMakeBuffer, Data: MakeBufferData{Sym: sym, Base: base, ElemSize: elemSize, Dims: dims, Body: body}}
}

// CropBufferData is the payload of a StmtCropBuffer node.
type CropBufferData struct {
	Sym  symbols.ID
	Box  Box
	Body Stmt
}

// CropBuffer narrows sym to box for the duration of body.
func CropBuffer(sym symbols.ID, box Box, body Stmt) Stmt {
	return Stmt{Kind: StmtCropBuffer, Data: CropBufferData{Sym: sym, Box: box, Body: body}}
}

// CropDimData is the payload of a StmtCropDim node.
type CropDimData struct {
	Sym    symbols.ID
	Dim    int
	Bounds Interval
	Body   Stmt
}

// CropDim narrows dimension dim of sym to bounds for the duration of body.
func CropDim(sym symbols.ID, dim int, bounds Interval, body Stmt) Stmt {
	return Stmt{Kind: StmtCropDim, Data: CropDimData{Sym: sym, Dim: dim, Bounds: bounds, Body: body}}
}

// SliceBufferData is the payload of a StmtSliceBuffer node.
type SliceBufferData struct {
	Sym  symbols.ID
	At   []Expr
	Body Stmt
}

func SliceBuffer(sym symbols.ID, at []Expr, body Stmt) Stmt {
	return Stmt{Kind: StmtSliceBuffer, Data: SliceBufferData{Sym: sym, At: at, Body: body}}
}

// SliceDimData is the payload of a StmtSliceDim node.
type SliceDimData struct {
	Sym  symbols.ID
	Dim  int
	At   Expr
	Body Stmt
}

func SliceDim(sym symbols.ID, dim int, at Expr, body Stmt) Stmt {
	return Stmt{Kind: StmtSliceDim, Data: SliceDimData{Sym: sym, Dim: dim, At: at, Body: body}}
}

// TruncateRankData is the payload of a StmtTruncateRank node.
type TruncateRankData struct {
	Sym  symbols.ID
	Rank int
	Body Stmt
}

func TruncateRank(sym symbols.ID, rank int, body Stmt) Stmt {
	return Stmt{Kind: StmtTruncateRank, Data: TruncateRankData{Sym: sym, Rank: rank, Body: body}}
}

// CallStmtData is the payload of a StmtCall node: an opaque stage body
// consuming and producing buffers, whose internals this module never
// inspects (they belong to the front end / interpreter).
type CallStmtData struct {
	Target  string
	Inputs  []symbols.ID
	Outputs []symbols.ID
}

func CallStmt(target string, inputs, outputs []symbols.ID) Stmt {
	return Stmt{Kind: StmtCall, Data: CallStmtData{Target: target, Inputs: inputs, Outputs: outputs}}
}

// CopyStmtData is the payload of a StmtCopy node.
type CopyStmtData struct {
	Src     symbols.ID
	Dst     symbols.ID
	Padding Expr // Expr{} (undefined) means no padding value
}

func CopyStmt(src, dst symbols.ID, padding Expr) Stmt {
	return Stmt{Kind: StmtCopy, Data: CopyStmtData{Src: src, Dst: dst, Padding: padding}}
}

// CheckData is the payload of a StmtCheck node.
type CheckData struct{ Cond Expr }

// Check builds check(cond): a runtime assertion, never a compile-time one.
func Check(cond Expr) Stmt { return Stmt{Kind: StmtCheck, Data: CheckData{Cond: cond}} }

// OutputsOf returns the buffer symbols a statement's own node (not its
// recursive body) writes, used by buffer aliasing's "used as output"
// bookkeeping.
func OutputsOf(s Stmt) []symbols.ID {
	switch s.Kind {
	case StmtCall:
		d, _ := AsStmt[CallStmtData](s)
		return d.Outputs
	case StmtCopy:
		d, _ := AsStmt[CopyStmtData](s)
		return []symbols.ID{d.Dst}
	default:
		return nil
	}
}
