package pipeline

import (
	"bytes"
	"encoding/gob"
	"sync"

	"loomcc/internal/ir"
)

var registerOnce sync.Once

// registerGobTypes tells encoding/gob the concrete type behind every
// Stmt.Data and Expr.Data payload, once per process. gob needs this for
// any value it only ever sees through an interface field.
func registerGobTypes() {
	registerOnce.Do(func() {
		gob.Register(ir.ConstData{})
		gob.Register(ir.VarData{})
		gob.Register(ir.LetData{})
		gob.Register(ir.BinaryData{})
		gob.Register(ir.NotData{})
		gob.Register(ir.SelectData{})
		gob.Register(ir.IntrinsicData{})
		gob.Register(ir.WildcardData{})

		gob.Register(ir.LetStmtData{})
		gob.Register(ir.BlockData{})
		gob.Register(ir.LoopData{})
		gob.Register(ir.IfThenElseData{})
		gob.Register(ir.AllocateData{})
		gob.Register(ir.MakeBufferData{})
		gob.Register(ir.CropBufferData{})
		gob.Register(ir.CropDimData{})
		gob.Register(ir.SliceBufferData{})
		gob.Register(ir.SliceDimData{})
		gob.Register(ir.TruncateRankData{})
		gob.Register(ir.CallStmtData{})
		gob.Register(ir.CopyStmtData{})
		gob.Register(ir.CheckData{})
	})
}

// encodeAny gob-encodes v, registering the IR's variant payload types
// first so the plan cache's stored bytes round-trip through Stmt/Expr's
// Data interface fields.
func encodeAny(v any) ([]byte, error) {
	registerGobTypes()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeStmt serializes a statement tree into the form the plan cache
// persists on disk.
func encodeStmt(root ir.Stmt) ([]byte, error) {
	return encodeAny(root)
}

// decodeStmt reverses encodeStmt.
func decodeStmt(body []byte) (ir.Stmt, error) {
	registerGobTypes()
	var root ir.Stmt
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&root); err != nil {
		return ir.Stmt{}, err
	}
	return root, nil
}
