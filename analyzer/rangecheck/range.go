package rangecheck

import "fmt"

// Range is [lo, hi] over symbolic expressions (§3).
type Range struct {
	Lo, Hi Expr
}

func (r Range) String() string { return fmt.Sprintf("[%s, %s]", r.Lo, r.Hi) }

// Full is [⊥, ⊤], the identity for Intersect and the starting seed for a
// value's def-range cache while it is in new_val_set (§4.2).
func Full() Range { return Range{Lo: Bot(), Hi: Top()} }

// Empty is [⊤, ⊥], the identity for Union.
func Empty() Range { return Range{Lo: Top(), Hi: Bot()} }

// Scalars builds a range with scalar endpoints.
func Scalars(lo, hi int64) Range { return Range{Lo: Scalar(lo), Hi: Scalar(hi)} }

// Union computes the least range containing both a and b: lo := meet(los),
// hi := join(his).
func Union(a, b Range) Range {
	return Range{Lo: Meet(a.Lo, b.Lo), Hi: Join(a.Hi, b.Hi)}
}

// Intersect computes the tightest range contained in both: lo :=
// join(los), hi := meet(his).
func Intersect(a, b Range) Range {
	return Range{Lo: Join(a.Lo, b.Lo), Hi: Meet(a.Hi, b.Hi)}
}

// AddRange computes a+b pointwise.
func AddRange(a, b Range) Range {
	return Range{Lo: Add(a.Lo, b.Lo), Hi: Add(a.Hi, b.Hi)}
}

// SubRange computes a-b, crossing the endpoints (a.lo-b.hi, a.hi-b.lo).
func SubRange(a, b Range) Range {
	return Range{Lo: Sub(a.Lo, b.Hi), Hi: Sub(a.Hi, b.Lo)}
}

// MulExpr multiplies a range by a single expression, handling an unknown
// sign on e by taking the candidate pair {lo*e, hi*e} and unioning it with
// its swap (§4.1).
func MulExpr(r Range, e Expr) Range {
	x, y := Mul(r.Lo, e), Mul(r.Hi, e)
	return Range{Lo: Meet(x, y), Hi: Join(x, y)}
}

// DivExpr divides a range by a single expression, by the same
// candidate-pair-and-swap construction as MulExpr.
func DivExpr(r Range, e Expr) Range {
	x, y := Div(r.Lo, e), Div(r.Hi, e)
	return Range{Lo: Meet(x, y), Hi: Join(x, y)}
}

// MulRange multiplies two ranges by distributing over all four corner
// products and taking their meet/join (§4.1).
func MulRange(a, b Range) Range {
	corners := [4]Expr{
		Mul(a.Lo, b.Lo), Mul(a.Lo, b.Hi),
		Mul(a.Hi, b.Lo), Mul(a.Hi, b.Hi),
	}
	return cornersToRange(corners[:])
}

// DivRange divides a by b. Per §4.1, division by a range is top/bot
// unless the divisor is strictly positive (1 ≤ lo) or strictly negative
// (hi ≤ -1); otherwise the result widens to Full.
func DivRange(a, b Range) Range {
	strictlyPositive := Le(Scalar(1), b.Lo)
	strictlyNegative := Le(b.Hi, Scalar(-1))
	if !strictlyPositive && !strictlyNegative {
		return Full()
	}
	corners := [4]Expr{
		Div(a.Lo, b.Lo), Div(a.Lo, b.Hi),
		Div(a.Hi, b.Lo), Div(a.Hi, b.Hi),
	}
	return cornersToRange(corners[:])
}

func cornersToRange(corners []Expr) Range {
	lo, hi := corners[0], corners[0]
	for _, c := range corners[1:] {
		lo = Meet(lo, c)
		hi = Join(hi, c)
	}
	return Range{Lo: lo, Hi: hi}
}

// ToScalarRange returns the scalar endpoints of r, and true only when
// both are scalar.
func ToScalarRange(r Range) (lo, hi int64, ok bool) {
	lo, okLo := ToScalar(r.Lo)
	hi, okHi := ToScalar(r.Hi)
	return lo, hi, okLo && okHi
}
