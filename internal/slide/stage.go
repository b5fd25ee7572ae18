package slide

import (
	"loomcc/internal/diag"
	"loomcc/internal/ir"
	"loomcc/internal/simplify"
	"loomcc/internal/subst"
	"loomcc/internal/symbols"
)

// stage implements the call_stmt/copy_stmt rule: for every output buffer
// this stage writes, and every loop currently enclosing it, check
// whether the per-dimension bounds it's producing are disjoint or
// monotonic across consecutive iterations of that loop, and narrow
// storage (fold) or additionally slide the loop's own lower bound
// accordingly. The statement node itself is never rewritten — only the
// buffer's scoped bounds and the enclosing loop's record change, which
// the crop and loop handlers pick up on their way back out.
func (sl *Slider) stage(outputs []symbols.ID) {
	for _, output := range outputs {
		bounds, ok := sl.bufferBounds.Get(output)
		if !ok {
			continue
		}

		for _, lp := range sl.loops {
			loopVar := ir.Var(lp.sym)
			loopStep := lp.step

			for d := 0; d < len(bounds); d++ {
				curD := bounds[d]
				if !subst.DependsOn(curD.Min, lp.sym) && !subst.DependsOn(curD.Max, lp.sym) {
					// Not computed in terms of this loop's variable: nothing
					// for this loop to slide or fold.
					continue
				}

				shifted := ir.BinSub(loopVar, loopStep)
				prevD := ir.Interval{
					Min: subst.Substitute(curD.Min, loopVar, shifted),
					Max: subst.Substitute(curD.Max, loopVar, shifted),
				}

				overlap := prevD.Intersect(curD)
				if sl.provable(overlap.EmptyTest(), lp) {
					factor := sl.extentUpperBound(curD, lp)
					if !subst.DependsOn(factor, lp.sym) {
						sl.foldFactors.Set(output, foldEntry{dim: d, factor: factor})
					}
					continue
				}

				isMonoInc := ir.BinAnd(ir.BinLe(prevD.Min, curD.Min), ir.BinLe(prevD.Max, curD.Max))
				isMonoDec := ir.BinAnd(ir.BinLe(curD.Min, prevD.Min), ir.BinLe(curD.Max, prevD.Max))

				if sl.provable(isMonoInc, lp) {
					oldMin := curD.Min
					newMin := simplify.Simplify(ir.BinAdd(prevD.Max, ir.Const(1)))

					factor := sl.extentUpperBound(curD, lp)
					if !subst.DependsOn(factor, lp.sym) {
						factor = simplify.Simplify(alignUp(factor, loopStep))
						sl.foldFactors.Set(output, foldEntry{dim: d, factor: factor})
					}

					newMinAtNewLoopMin := subst.Substitute(newMin, loopVar, ir.Var(sl.x))
					oldMinAtLoopMin := subst.Substitute(oldMin, loopVar, lp.bounds.Min)
					cond := sl.blind(ir.BinLe(newMinAtNewLoopMin, oldMinAtLoopMin), lp)
					newLoopMin := simplify.WhereTrue(cond, sl.x, sl.factsFor(lp)).Max

					if !isNegInf(newLoopMin) {
						lp.bounds.Min = newLoopMin
						bounds[d].Min = newMin
					} else {
						// Couldn't find a new loop min that covers the whole
						// required region from a unit step earlier: warm up
						// the window on the loop's first iteration instead.
						bounds[d].Min = ir.SelectExpr(ir.BinEq(loopVar, ir.Var(lp.origMin)), oldMin, newMin)
					}
					break
				} else if sl.provable(isMonoDec, lp) {
					sl.notice(diag.UnprovablePredicate, output, "monotonic-decreasing",
						"output bounds shrink across iterations; left unfolded")
				}
			}
		}
	}
}

// factsFor builds the fact base a provability query against lp may use:
// empty, unless StrengthenLoopBounds asks the prover to reason about the
// loop's own declared range directly instead of blinding references to
// its max.
func (sl *Slider) factsFor(lp *loopRecord) *simplify.Facts {
	if !sl.tunables.StrengthenLoopBounds {
		return nil
	}
	facts := symbols.NewMapT[ir.Interval]()
	facts.Set(lp.sym, lp.bounds)
	return facts
}

// blind substitutes lp's own declared max with +∞ in e, the default
// workaround for a min(loop_max, x) term that the prover can't see
// through even when x alone is already known to stay within loop_max.
func (sl *Slider) blind(e ir.Expr, lp *loopRecord) ir.Expr {
	if sl.tunables.StrengthenLoopBounds {
		return e
	}
	return subst.Substitute(e, lp.bounds.Max, ir.PosInf())
}

// provable decides whether e holds, using whichever of the two
// StrengthenLoopBounds strategies this call is configured with.
func (sl *Slider) provable(e ir.Expr, lp *loopRecord) bool {
	return simplify.ProveTrue(sl.blind(e, lp), sl.factsFor(lp))
}

// extentUpperBound computes the fold factor candidate for a dimension's
// current bounds: the tightest bound the prover can put on its extent,
// using whichever strategy keeps a min(...) on the loop's max from
// defeating it even when the extent itself is loop-invariant.
func (sl *Slider) extentUpperBound(iv ir.Interval, lp *loopRecord) ir.Expr {
	return simplify.Simplify(simplify.BoundsOf(sl.blind(iv.Extent(), lp), sl.factsFor(lp)).Max)
}

// alignUp rounds x up to the next multiple of step, so a fold factor
// never crops across a folding boundary misaligned with the loop's step.
func alignUp(x, step ir.Expr) ir.Expr {
	return ir.BinMul(ir.BinDiv(ir.BinAdd(x, ir.BinSub(step, ir.Const(1))), step), step)
}

func isNegInf(e ir.Expr) bool {
	c, ok := ir.As[ir.ConstData](e)
	return ok && c.Kind == ir.ConstNegInf
}
