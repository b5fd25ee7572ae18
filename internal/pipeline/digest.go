package pipeline

import (
	"crypto/sha256"

	"loomcc/internal/ir"
	"loomcc/internal/plancache"
	"loomcc/internal/symbols"
	"loomcc/internal/traverse"
)

// digestOf computes the plan cache key for (root, inputs): the tree's own
// content digest combined with one digest per input, in the order inputs
// was given (Combine is order-sensitive, and that order is the caller's
// declared order, so it is already deterministic across calls for the
// same pipeline).
func digestOf(tab *symbols.Table, root ir.Stmt, inputs []symbols.ID) plancache.Digest {
	deps := make([]plancache.Digest, len(inputs))
	for i, id := range inputs {
		deps[i] = inputDigest(tab, root, id)
	}
	return plancache.Combine(treeDigest(root), deps...)
}

// treeDigest hashes root's serialized form. A tree that somehow fails to
// encode falls back to hashing its root Kind alone, which just means a
// malformed tree never gets a cache hit rather than aborting compilation.
func treeDigest(root ir.Stmt) plancache.Digest {
	body, err := encodeStmt(root)
	if err != nil {
		return plancache.Digest(sha256.Sum256([]byte{byte(root.Kind)}))
	}
	return plancache.Digest(sha256.Sum256(body))
}

// inputDigest hashes sym's declared shape: the box of the first
// crop_buffer or make_buffer naming it anywhere in root. A raw pipeline
// input the tree never crops or allocates (every producer wraps its own
// consumers in crop_*, per §6's inbound contract, but an input feeding
// straight into a call_stmt with no intervening crop is legal) falls back
// to hashing its name alone.
func inputDigest(tab *symbols.Table, root ir.Stmt, sym symbols.ID) plancache.Digest {
	name := tab.Name(sym)
	shape, ok := declaredShapeOf(root, sym)
	if !ok {
		return plancache.Digest(sha256.Sum256([]byte(name)))
	}
	body, err := encodeAny(shape)
	if err != nil {
		return plancache.Digest(sha256.Sum256([]byte(name)))
	}
	h := sha256.New()
	h.Write([]byte(name))
	h.Write(body)
	var out plancache.Digest
	copy(out[:], h.Sum(nil))
	return out
}

func declaredShapeOf(root ir.Stmt, sym symbols.ID) (ir.Box, bool) {
	var shape ir.Box
	found := false
	traverse.VisitStmt(root, func(s ir.Stmt) bool {
		if found {
			return false
		}
		switch s.Kind {
		case ir.StmtCropBuffer:
			d, _ := ir.AsStmt[ir.CropBufferData](s)
			if d.Sym == sym {
				shape, found = d.Box, true
				return false
			}
		case ir.StmtMakeBuffer:
			d, _ := ir.AsStmt[ir.MakeBufferData](s)
			if d.Sym == sym {
				box := make(ir.Box, len(d.Dims))
				for i, dim := range d.Dims {
					box[i] = dim.Bounds
				}
				shape, found = box, true
				return false
			}
		}
		return true
	}, func(ir.Expr) bool { return true })
	return shape, found
}
