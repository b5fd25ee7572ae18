package ir

// ExprKind tags the variant stored in an Expr's Data field.
type ExprKind uint8

const (
	// ExprInvalid is the zero value: the undefined expression.
	ExprInvalid ExprKind = iota
	ExprConst
	ExprVar
	ExprLet
	ExprBinary
	ExprNot
	ExprSelect
	ExprIntrinsic
	// ExprWildcard appears only in simplifier rewrite patterns; it is
	// never produced by the bounds inferrer, slide pass, or post-passes.
	ExprWildcard
)

func (k ExprKind) String() string {
	switch k {
	case ExprInvalid:
		return "invalid"
	case ExprConst:
		return "const"
	case ExprVar:
		return "var"
	case ExprLet:
		return "let"
	case ExprBinary:
		return "binary"
	case ExprNot:
		return "not"
	case ExprSelect:
		return "select"
	case ExprIntrinsic:
		return "intrinsic"
	case ExprWildcard:
		return "wildcard"
	default:
		return "expr(?)"
	}
}

// ConstKind distinguishes a finite integer constant from the three
// sentinels the simplifier must propagate (§9).
type ConstKind uint8

const (
	ConstFinite ConstKind = iota
	ConstPosInf
	ConstNegInf
	ConstIndeterminate
)

func (k ConstKind) String() string {
	switch k {
	case ConstFinite:
		return "finite"
	case ConstPosInf:
		return "+inf"
	case ConstNegInf:
		return "-inf"
	case ConstIndeterminate:
		return "indeterminate"
	default:
		return "const(?)"
	}
}

// BinaryOp enumerates the binary operators of §3.
type BinaryOp uint8

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	Min
	Max
	Eq
	Ne
	Lt
	Le
	And
	Or
	BitAnd
	BitOr
	BitXor
	Shl
	Shr
)

func (op BinaryOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "%"
	case Min:
		return "min"
	case Max:
		return "max"
	case Eq:
		return "=="
	case Ne:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case And:
		return "&&"
	case Or:
		return "||"
	case BitAnd:
		return "&"
	case BitOr:
		return "|"
	case BitXor:
		return "^"
	case Shl:
		return "<<"
	case Shr:
		return ">>"
	default:
		return "op(?)"
	}
}

// IntrinsicFunc enumerates the intrinsic ABI of §6: the buffer-metadata
// queries plus abs.
type IntrinsicFunc uint8

const (
	BufferMin IntrinsicFunc = iota
	BufferMax
	BufferExtent
	BufferStride
	BufferFoldFactor
	BufferBase
	BufferElemSize
	BufferRank
	BufferSizeBytes
	BufferAt
	Abs
)

func (f IntrinsicFunc) String() string {
	switch f {
	case BufferMin:
		return "buffer_min"
	case BufferMax:
		return "buffer_max"
	case BufferExtent:
		return "buffer_extent"
	case BufferStride:
		return "buffer_stride"
	case BufferFoldFactor:
		return "buffer_fold_factor"
	case BufferBase:
		return "buffer_base"
	case BufferElemSize:
		return "buffer_elem_size"
	case BufferRank:
		return "buffer_rank"
	case BufferSizeBytes:
		return "buffer_size_bytes"
	case BufferAt:
		return "buffer_at"
	case Abs:
		return "abs"
	default:
		return "intrinsic(?)"
	}
}

// takesDim reports whether this intrinsic is parameterized by a dimension
// index (as opposed to a whole-buffer or scalar query).
func (f IntrinsicFunc) takesDim() bool {
	switch f {
	case BufferMin, BufferMax, BufferExtent, BufferStride, BufferFoldFactor:
		return true
	default:
		return false
	}
}

// TakesDim is the exported form of takesDim, for packages outside ir that
// need to rebuild an IntrinsicData generically (e.g. a rewriter folding
// constants without hard-coding the per-dimension intrinsic list twice).
func (f IntrinsicFunc) TakesDim() bool { return f.takesDim() }

// StmtKind tags the variant stored in a Stmt's Data field.
type StmtKind uint8

const (
	// StmtInvalid is the zero value: the undefined statement (empty body).
	StmtInvalid StmtKind = iota
	StmtLet
	StmtBlock
	StmtLoop
	StmtIfThenElse
	StmtAllocate
	StmtMakeBuffer
	StmtCropBuffer
	StmtCropDim
	StmtSliceBuffer
	StmtSliceDim
	StmtTruncateRank
	StmtCall
	StmtCopy
	StmtCheck
)

func (k StmtKind) String() string {
	switch k {
	case StmtInvalid:
		return "invalid"
	case StmtLet:
		return "let_stmt"
	case StmtBlock:
		return "block"
	case StmtLoop:
		return "loop"
	case StmtIfThenElse:
		return "if_then_else"
	case StmtAllocate:
		return "allocate"
	case StmtMakeBuffer:
		return "make_buffer"
	case StmtCropBuffer:
		return "crop_buffer"
	case StmtCropDim:
		return "crop_dim"
	case StmtSliceBuffer:
		return "slice_buffer"
	case StmtSliceDim:
		return "slice_dim"
	case StmtTruncateRank:
		return "truncate_rank"
	case StmtCall:
		return "call_stmt"
	case StmtCopy:
		return "copy_stmt"
	case StmtCheck:
		return "check"
	default:
		return "stmt(?)"
	}
}

// LoopMode is serial or parallel (§3, §5).
type LoopMode uint8

const (
	Serial LoopMode = iota
	Parallel
)

func (m LoopMode) String() string {
	if m == Parallel {
		return "parallel"
	}
	return "serial"
}

// Storage is the allocation class of an allocate node.
type Storage uint8

const (
	StackStorage Storage = iota
	HeapStorage
)

func (s Storage) String() string {
	if s == HeapStorage {
		return "heap"
	}
	return "stack"
}
