// package fix provides the small unsigned fixed-point types that the
// significands of package flo's floats are made of.
package fix

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// U13 is an unsigned fixed point number with 1 integer bit and 3 fractional
// bits, stored in the low 4 bits of a byte. It represents 0 to 1.875, although
// a normalised significand is always at least 1.
type U13 uint8

const (
	// MaxU13 is the highest U13: 1.875.
	MaxU13 U13 = 0x0F
	// OneU13 is 1.0, the implicit leading bit of a normal significand.
	OneU13 U13 = 1 << 3
)

func (u U13) String() string {
	return fmt.Sprintf("%.3f", U13ToFloat[float64](u))
}

// Frac returns the 3 fractional bits, ie. the stored mantissa.
func (u U13) Frac() uint8 {
	return uint8(u) & 0x07
}

// Mul multiplies two U13s. The result needs at most 8 bits, so it is exact.
func (a U13) Mul(b U13) U26 {
	return U26((a & MaxU13) * (b & MaxU13))
}

// WithImplicitOne makes a significand from 3 stored mantissa bits.
func WithImplicitOne(mant uint8) U13 {
	return OneU13 | U13(mant&0x07)
}

func U13ToFloat[T constraints.Float](u U13) T {
	// ideally this would be const, but apparently it can't be.
	var scale = 1.0 / T(1<<3)
	return T(u&MaxU13) * scale
}

// U26 is an unsigned fixed point number with 2 integer bits and 6 fractional
// bits, capable of representing 0 to 3.984375. It holds the product of two
// U13s.
type U26 uint8

const (
	// MaxU26 is the highest U26: 3.984375.
	MaxU26 U26 = 0xFF
	// TwoU26 is 2.0; a product at least this big needs renormalising.
	TwoU26 U26 = 1 << 7
)

func (u U26) String() string {
	return fmt.Sprintf("%.6f", U26ToFloat[float64](u))
}

// Normalize shifts a product of two normal significands back into the 1.xxx
// range, truncating the dropped bits. carry reports whether the product was
// 2 or more, in which case the result has been halved and the caller must
// bump its exponent.
func (u U26) Normalize() (sig U13, carry bool) {
	if u&TwoU26 != 0 {
		return U13(u >> 4), true
	}
	return U13(u >> 3), false
}

func U26ToFloat[T constraints.Float](u U26) T {
	var scale = 1.0 / T(1<<6)
	return T(u) * scale
}
