package postpass

import "loomcc/internal/ir"

// optimizeCopies is the copy-optimization hook. The source this package
// is grounded on implements it as the identity transform too — a
// dedicated copy_stmt lowering (e.g. recognizing a copy that's really a
// broadcast or a transpose and picking a cheaper representation) is a
// natural place to extend this pass, but nothing in this pipeline needs
// one yet.
func optimizeCopies(root ir.Stmt) ir.Stmt {
	return root
}
