// package flo provides 8 bit floating point types. They have much wider range
// than the types in package fix and, like most floats, are more precise for
// smaller values than larger values. The tradeoff is that they can not make
// full use of all 256 bit patterns: there is exactly one zero, no subnormals
// and nothing is reserved for infinities or NaNs. Out of range values saturate
// and tiny values flush to zero.
package flo

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// E4M3 is an 8 bit float with 1 sign bit, 4 exponent bits and 3 mantissa
// bits, in that order from the most significant bit. The exponent is biased by
// 7 and the mantissa has an implicit leading 1, except for 0x00 which is zero.
type E4M3 uint8

const (
	ExpBits  = 4
	MantBits = 3
	// Bias is added to the true exponent before it is stored.
	Bias = 1<<(ExpBits-1) - 1
	// MinExp and MaxExp bound the stored exponent of anything produced by
	// arithmetic. The all ones exponent is never produced.
	MinExp = 1
	MaxExp = 1<<ExpBits - 2

	ExpMask  = 1<<ExpBits - 1
	MantMask = 1<<MantBits - 1

	signShift = ExpBits + MantBits
)

const (
	// Zero is the only representation of zero.
	Zero E4M3 = 0x00
	// Saturated is what E4M3FromFloat clamps overflowing magnitudes to
	// (before applying the sign): 128.
	Saturated E4M3 = MaxExp << MantBits
	// MaxE4M3 is the largest magnitude arithmetic produces: 240.
	MaxE4M3 E4M3 = MaxExp<<MantBits | MantMask
)

// Pack assembles an E4M3 from raw fields. Only the low bits of each field
// are kept.
func Pack(sign, exp, mant uint8) E4M3 {
	return E4M3((sign&1)<<signShift | (exp&ExpMask)<<MantBits | mant&MantMask)
}

// Fields breaks the number into its three raw components, without applying
// any biases.
func (f E4M3) Fields() (sign, exp, mant uint8) {
	u := uint8(f)
	return (u >> signShift) & 1, (u >> MantBits) & ExpMask, u & MantMask
}

// Canonical reports whether f survives a trip through float and back. Bytes
// with a stored exponent of 0 or 15 decode fine but can't be produced again.
func (f E4M3) Canonical() bool {
	if f == Zero {
		return true
	}
	_, exp, _ := f.Fields()
	return exp >= MinExp && exp <= MaxExp
}

func (f E4M3) String() string {
	return fmt.Sprintf("%g", E4M3ToFloat[float64](f))
}

// Hex formats the raw bits, eg. 0xd.
func (f E4M3) Hex() string {
	return fmt.Sprintf("%#x", uint8(f))
}

// Float64 is shorthand for E4M3ToFloat[float64].
func (f E4M3) Float64() float64 {
	return E4M3ToFloat[float64](f)
}

// Add adds two E4M3s by way of float64. The result is rounded once, with the
// same policies as E4M3FromFloat.
func (f E4M3) Add(g E4M3) E4M3 {
	return E4M3FromFloat(E4M3ToFloat[float64](f) + E4M3ToFloat[float64](g))
}

// E4M3ToFloat converts an E4M3 to a float. The conversion is exact.
func E4M3ToFloat[T constraints.Float](f E4M3) T {
	if f == Zero {
		return 0
	}
	sign, exp, mant := f.Fields()
	v := math.Ldexp(1+float64(mant)/(1<<MantBits), int(exp)-Bias)
	if sign == 1 {
		v = -v
	}
	return T(v)
}

// E4M3FromFloat converts a float into an E4M3. The mantissa is rounded half
// to even. Magnitudes of 256 and up (and infinities) clamp to Saturated with
// the sign kept, magnitudes below 2^-6 flush to Zero. NaN becomes Saturated.
func E4M3FromFloat[T constraints.Float](v T) E4M3 {
	g := float64(v)
	switch {
	case g == 0:
		return Zero
	case math.IsNaN(g):
		return Saturated
	}
	var sign uint8
	if g < 0 {
		sign = 1
	}
	if math.IsInf(g, 0) {
		return Pack(sign, MaxExp, 0)
	}

	// |g| = frac * 2^e with frac in [0.5, 1), so in 1.m form the exponent
	// is e-1.
	frac, e := math.Frexp(math.Abs(g))
	exp := e - 1 + Bias
	if exp < MinExp {
		return Zero
	}
	if exp > MaxExp {
		return Pack(sign, MaxExp, 0)
	}
	m := math.RoundToEven((2*frac - 1) * (1 << MantBits))
	// Rounding 1.111x up would need to carry into the exponent. We clamp
	// instead.
	mant := min(uint8(m), MantMask)
	return Pack(sign, uint8(exp), mant)
}
