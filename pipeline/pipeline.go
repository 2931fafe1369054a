// package pipeline models a 3 stage pipelined multiplier for flo.E4M3
// operands, one clock at a time.
//
// The three stages are pure functions over stage records:
//
//	SignExp:   sign xor, exponent add, implicit ones restored
//	MulMant:   4x4 bit significand multiply
//	Normalize: renormalise, truncate, saturate or flush, pack
//
// and a Multiplier holds the two registers between them. A record with Valid
// unset is a bubble: it passes through the later stages and comes out the end
// as no output at all, never as a zero.
package pipeline

import (
	"github.com/pfcm/fp8/fix"
	"github.com/pfcm/fp8/flo"
)

// Stages is the depth of the pipeline. A product comes out of the Tick that
// is Stages-1 clocks after the Tick that admitted its operands.
const Stages = 3

// Operands is a pair of inputs admitted in a single clock.
type Operands struct {
	A, B flo.E4M3
}

// Stage1 is the output of the first stage and the contents of the register
// feeding the second.
type Stage1 struct {
	Valid bool
	Zero  bool
	Sign  uint8
	// ExpSum is the sum of the two biased exponents. The extra bias comes
	// off in Normalize.
	ExpSum       uint8
	MantA, MantB fix.U13
}

// Stage2 is the output of the second stage and the contents of the register
// feeding the third.
type Stage2 struct {
	Valid   bool
	Zero    bool
	Sign    uint8
	ExpSum  uint8
	Product fix.U26
}

// SignExp is the first stage.
func SignExp(a, b flo.E4M3) Stage1 {
	sa, ea, ma := a.Fields()
	sb, eb, mb := b.Fields()
	return Stage1{
		Valid:  true,
		Zero:   a == flo.Zero || b == flo.Zero,
		Sign:   sa ^ sb,
		ExpSum: ea + eb,
		MantA:  fix.WithImplicitOne(ma),
		MantB:  fix.WithImplicitOne(mb),
	}
}

// MulMant is the second stage. Bubbles stay bubbles.
func MulMant(r Stage1) Stage2 {
	if !r.Valid {
		return Stage2{}
	}
	return Stage2{
		Valid:   true,
		Zero:    r.Zero,
		Sign:    r.Sign,
		ExpSum:  r.ExpSum,
		Product: r.MantA.Mul(r.MantB),
	}
}

// Normalize is the third stage. ok is false for a bubble. Exponents above
// flo.MaxExp saturate to flo.MaxE4M3 with the sign kept, exponents below
// flo.MinExp flush to flo.Zero.
func Normalize(r Stage2) (out flo.E4M3, ok bool) {
	if !r.Valid {
		return flo.Zero, false
	}
	if r.Zero {
		return flo.Zero, true
	}
	sig, carry := r.Product.Normalize()
	exp := int(r.ExpSum) - flo.Bias
	if carry {
		exp++
	}
	switch {
	case exp > flo.MaxExp:
		return flo.Pack(r.Sign, flo.MaxExp, flo.MantMask), true
	case exp < flo.MinExp:
		return flo.Zero, true
	}
	return flo.Pack(r.Sign, uint8(exp), sig.Frac()), true
}

// Mul runs all three stages back to back, with no registers. It always
// agrees with the pipelined result.
func Mul(a, b flo.E4M3) flo.E4M3 {
	out, _ := Normalize(MulMant(SignExp(a, b)))
	return out
}

// Multiplier is the pipelined multiplier. The zero value is an empty pipeline
// at cycle 0. It is not safe for concurrent use.
type Multiplier struct {
	s1s2  Stage1
	s2s3  Stage2
	cycle int
}

// Tick advances the pipeline one clock. in may be nil, in which case a bubble
// is admitted. The returned product (if ok) belongs to the operands admitted
// two Ticks ago.
//
// The third stage is evaluated first, then the second, then the first, so
// each register is read before it is overwritten.
func (m *Multiplier) Tick(in *Operands) (out flo.E4M3, ok bool) {
	m.cycle++
	out, ok = Normalize(m.s2s3)
	m.s2s3 = MulMant(m.s1s2)
	if in != nil {
		m.s1s2 = SignExp(in.A, in.B)
	} else {
		m.s1s2 = Stage1{}
	}
	return out, ok
}

// Flush clocks bubbles in until everything in flight has come out, returning
// the products in order.
func (m *Multiplier) Flush() []flo.E4M3 {
	var outs []flo.E4M3
	for i := 0; i < Stages-1; i++ {
		if out, ok := m.Tick(nil); ok {
			outs = append(outs, out)
		}
	}
	return outs
}

// Cycle returns the number of Ticks so far.
func (m *Multiplier) Cycle() int { return m.cycle }

// Busy reports whether the register after the first stage holds a record,
// ie. whether the second stage has work on the next clock.
func (m *Multiplier) Busy() bool { return m.s1s2.Valid }

// InFlight returns the number of operand pairs that have been admitted but
// haven't come out yet.
func (m *Multiplier) InFlight() int {
	n := 0
	if m.s1s2.Valid {
		n++
	}
	if m.s2s3.Valid {
		n++
	}
	return n
}

// Registers returns copies of the two pipeline registers, for tracing.
func (m *Multiplier) Registers() (Stage1, Stage2) {
	return m.s1s2, m.s2s3
}

// Reset empties the pipeline and sets the cycle counter back to 0.
func (m *Multiplier) Reset() {
	*m = Multiplier{}
}
