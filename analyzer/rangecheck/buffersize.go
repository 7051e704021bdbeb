package rangecheck

import "github.com/sleuthgo/sleuthgo/ir"

// bufferSizeRange returns a range over the element count of the buffer v
// points to (§4.4). Byte-count reinterpretation (the bitcast case) is the
// only place this engine leaves the "element count" domain momentarily,
// to rescale by the element-size ratio before returning to it.
func bufferSizeRange(ctx *Context, v ir.Value) Range {
	switch val := v.(type) {
	case *ir.Alloc:
		if val.Count != nil {
			return useRange(ctx, val.Count, val)
		}
		return Scalars(int64(val.N), int64(val.N))

	case *ir.BitCast:
		if val.X == nil {
			ctx.warnf("bitcast %s: null operand, degrading to conservative size", val.Name())
			return Range{Lo: Scalar(1), Hi: Top()}
		}
		ratio, ok := bitcastElemRatio(val)
		if !ok {
			return Range{Lo: Scalar(1), Hi: Top()}
		}
		inner := bufferSizeRange(ctx, val.X)
		if ratio == 1 {
			return inner
		}
		return DivExpr(inner, Scalar(ratio))

	case *ir.ConstAggregate:
		return Scalars(int64(val.Len), int64(val.Len))

	case *ir.Call:
		// A call is only a size-determining allocation site when its
		// callee name is recognized by the external allocation-kind
		// oracle (§6: "a predicate is_allocation(callsite) over
		// recognized allocator names") — an ordinary call falls through
		// to the conservative default.
		if val.Callee != nil && ctx.oracle != nil {
			if _, ok := ctx.oracle.Allocator(val.Callee.Name); ok && len(val.Args) > 0 {
				return useRange(ctx, val.Args[0], val)
			}
		}
		return Range{Lo: Scalar(1), Hi: Top()}

	default:
		return Range{Lo: Scalar(1), Hi: Top()}
	}
}

// bitcastElemRatio reports the element-size ratio k for a `i8* -> τ*`
// bitcast where sizeof(τ) = 8k (§4.4), derived from the destination
// pointer's element IntType width. A non-integer-type destination, or a
// source that isn't itself a single-byte-element pointer, doesn't
// qualify for rescaling.
func bitcastElemRatio(bc *ir.BitCast) (int64, bool) {
	dst, ok := bc.Type().(*ir.PointerType)
	if !ok {
		return 0, false
	}
	it, ok := dst.Elem.(*ir.IntType)
	if !ok || it.Width <= 8 || it.Width%8 != 0 {
		return 0, false
	}
	srcPt, ok := bc.X.Type().(*ir.PointerType)
	if !ok {
		return 0, false
	}
	srcIt, ok := srcPt.Elem.(*ir.IntType)
	if !ok || srcIt.Width != 8 {
		return 0, false
	}
	return int64(it.Width / 8), true
}
