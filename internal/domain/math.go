package domain

import (
	"fmt"
	"math/bits"
)

// BpsDenominator is the basis-point scale: 10000 bps = 100%.
const BpsDenominator = 10_000

// UnitScale is the fixed-point precision of ownership units (6 decimal
// places), independent of the payment asset's precision.
const UnitScale = 1_000_000

// MulDiv computes a*b/c with a 128-bit intermediate, truncating toward
// zero. Returns ErrInvalidInput on division by zero and on quotient
// overflow. Proportional-share arithmetic must never silently wrap.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, fmt.Errorf("%w: division by zero", ErrInvalidInput)
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, fmt.Errorf("%w: %d*%d/%d overflows uint64", ErrInvalidInput, a, b, c)
	}
	q, _ := bits.Div64(hi, lo, c)
	return q, nil
}

// ApplyBps returns amount*bps/10000, truncating toward zero.
func ApplyBps(amount uint64, bps uint32) (uint64, error) {
	return MulDiv(amount, uint64(bps), BpsDenominator)
}

// ValidBps reports whether bps is within [0, 10000].
func ValidBps(bps uint32) bool {
	return bps <= BpsDenominator
}
