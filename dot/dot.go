// package dot computes E4M3 dot products by streaming the element pairs
// through a pipeline.Multiplier and summing what comes out.
package dot

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pfcm/fp8/flo"
	"github.com/pfcm/fp8/pipeline"
)

// ErrLengthMismatch is returned when the two vectors aren't the same length.
var ErrLengthMismatch = errors.New("length mismatch")

// Cycle records one clock of the multiplier.
type Cycle struct {
	// Cycle is the multiplier's cycle count after the clock, starting at 1.
	Cycle int
	// Index is the position of the admitted pair in the inputs, or -1 if a
	// bubble was admitted.
	Index int
	In    pipeline.Operands
	// Busy is true if the second stage has work waiting for the next clock.
	Busy bool
	Out  flo.E4M3
	// OK is false if nothing came out this clock.
	OK bool
}

// Step records one addition into the accumulator.
type Step struct {
	Product flo.E4M3
	Acc     flo.E4M3
}

// Result is everything a Run produces.
type Result struct {
	Sum flo.E4M3
	// Products are the multiplier outputs, in the order they came out (which
	// is the order of the inputs).
	Products []flo.E4M3
	Cycles   []Cycle
	Steps    []Step
}

// Driver runs dot products. The zero value is ready to use.
type Driver struct {
	// Logger gets a debug entry for every clock and every addition. Nil
	// disables logging.
	Logger *zap.Logger
}

func (d Driver) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Run computes the dot product of a and b. It clocks a fresh multiplier
// len(a)+pipeline.Stages-1 times, admitting one pair per clock and then
// bubbles until the pipeline drains, and then adds up the products in order
// starting from flo.Zero.
func (d Driver) Run(a, b []flo.E4M3) (*Result, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("dot: %w: %d and %d elements", ErrLengthMismatch, len(a), len(b))
	}
	log := d.logger()

	var (
		m   pipeline.Multiplier
		res = &Result{
			Cycles: make([]Cycle, 0, len(a)+pipeline.Stages-1),
		}
	)
	for i := 0; i < len(a)+pipeline.Stages-1; i++ {
		c := Cycle{Index: -1}
		var in *pipeline.Operands
		if i < len(a) {
			c.Index = i
			c.In = pipeline.Operands{A: a[i], B: b[i]}
			in = &c.In
		}
		c.Out, c.OK = m.Tick(in)
		c.Cycle = m.Cycle()
		c.Busy = m.Busy()
		if c.OK {
			res.Products = append(res.Products, c.Out)
		}
		res.Cycles = append(res.Cycles, c)
		log.Debug("clock", cycleFields(c)...)
	}

	res.Sum, res.Steps = Accumulate(res.Products)
	for i, s := range res.Steps {
		log.Debug("accumulate",
			zap.Int("step", i+1),
			zap.String("product", s.Product.Hex()),
			zap.String("acc", s.Acc.Hex()),
			zap.Float64("acc_value", s.Acc.Float64()),
		)
	}
	log.Info("dot product",
		zap.Int("n", len(a)),
		zap.Int("cycles", m.Cycle()),
		zap.String("sum", res.Sum.Hex()),
		zap.Float64("value", res.Sum.Float64()),
	)
	return res, nil
}

func cycleFields(c Cycle) []zap.Field {
	fs := []zap.Field{zap.Int("cycle", c.Cycle), zap.Bool("busy", c.Busy)}
	if c.Index >= 0 {
		fs = append(fs,
			zap.Int("index", c.Index),
			zap.String("a", c.In.A.Hex()),
			zap.String("b", c.In.B.Hex()),
		)
	}
	if c.OK {
		fs = append(fs, zap.String("out", c.Out.Hex()))
	}
	return fs
}

// Accumulate sums products one at a time with flo.E4M3.Add, starting from
// flo.Zero. Every intermediate sum is rounded to E4M3, so the order matters.
func Accumulate(products []flo.E4M3) (flo.E4M3, []Step) {
	acc := flo.Zero
	steps := make([]Step, 0, len(products))
	for _, p := range products {
		acc = acc.Add(p)
		steps = append(steps, Step{Product: p, Acc: acc})
	}
	return acc, steps
}
