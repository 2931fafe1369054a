// package lfsr makes deterministic noise for demo and test vectors.
package lfsr

// LFSR is a 16 bit Galois linear-feedback shift register. With the default
// taps it visits every non-zero state before repeating.
type LFSR struct {
	state uint16
	taps  uint16
}

const defaultTaps uint16 = 0xd008

// New returns an LFSR starting from seed. A zero seed would get stuck, so it
// is replaced with 0xffff.
func New(seed uint16) *LFSR {
	if seed == 0 {
		seed = 0xffff
	}
	return &LFSR{
		state: seed,
		taps:  defaultTaps,
	}
}

// Next steps the register and returns the new state.
func (l *LFSR) Next() uint16 {
	fb := l.state & 1
	l.state >>= 1
	if fb == 1 {
		l.state ^= l.taps
	}
	return l.state
}

// Byte steps the register and returns the low 8 bits.
func (l *LFSR) Byte() uint8 {
	return uint8(l.Next())
}

// Floats returns n values in [-1, 1), reading each byte as a signed fixed
// point number with 7 fractional bits.
func (l *LFSR) Floats(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(int8(l.Byte())) / (1 << 7)
	}
	return out
}
