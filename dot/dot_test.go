package dot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pfcm/fp8/flo"
	"github.com/pfcm/fp8/pipeline"
)

var (
	shortA = []float64{0.1, 0.2, 0.25, -0.3}
	shortB = []float64{0.25, -0.9, 0.125, 0.8}

	longA = []float64{0.1, 0.2, 0.25, -0.3, 0.4, 0.5, 0.55, 0.6, -0.75, 0.8, 0.875, 0.9}
	longB = []float64{0.25, -0.9, 0.125, 0.8, 0.875, -0.75, 0.3, 0.6, 0.1, 0.2, -0.4, 0.55}
)

func TestRunFloats(t *testing.T) {
	res, err := RunFloats(Driver{}, shortA, shortB)
	require.NoError(t, err)

	require.Equal(t, []flo.E4M3{0x1d, 0x25, 0x28, 0xaa}, res.A)
	require.Equal(t, []flo.E4M3{0x28, 0xb6, 0x20, 0x35}, res.B)
	require.Equal(t, []flo.E4M3{0x0d, 0xa3, 0x10, 0xa8}, res.Products)
	require.Equal(t, []Step{
		{Product: 0x0d, Acc: 0x0d},
		{Product: 0xa3, Acc: 0xa1},
		{Product: 0x10, Acc: 0x9e},
		{Product: 0xa8, Acc: 0xac},
	}, res.Steps)
	require.Equal(t, flo.E4M3(0xac), res.Sum)
	require.Equal(t, -0.375, res.Sum.Float64())
	require.Len(t, res.Cycles, 6)

	require.InDelta(t, 0.1*0.25+0.2*-0.9+0.25*0.125+-0.3*0.8, res.Direct, 1e-12)
	require.InDelta(t, res.Direct, res.Sum.Float64(), 0.05)
	require.InDelta(t, 0.01125, res.Err, 1e-9)
}

func TestRunFloatsLong(t *testing.T) {
	res, err := RunFloats(Driver{}, longA, longB)
	require.NoError(t, err)
	require.Len(t, res.Products, len(longA))
	require.Len(t, res.Cycles, len(longA)+pipeline.Stages-1)
	require.Equal(t, flo.E4M3(0x2b), res.Sum)
	require.InDelta(t, res.Direct, res.Sum.Float64(), 0.05)
}

func TestRunFloat32(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{1, 0.5, -1}
	res, err := RunFloats(Driver{}, a, b)
	require.NoError(t, err)
	require.Equal(t, float64(-1), res.Direct)
	require.Equal(t, -1.0, res.Sum.Float64())
	require.Zero(t, res.Err)
}

func TestLengthMismatch(t *testing.T) {
	a := Encode([]float64{1, 2, 3, 4})
	b := Encode([]float64{1, 2, 3, 4, 5})
	res, err := Driver{}.Run(a, b)
	require.ErrorIs(t, err, ErrLengthMismatch)
	require.Nil(t, res)

	_, err = RunFloats(Driver{}, []float64{1}, nil)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestCycles(t *testing.T) {
	res, err := Driver{}.Run(Encode(shortA), Encode(shortB))
	require.NoError(t, err)

	for i, c := range res.Cycles {
		require.Equal(t, i+1, c.Cycle)
		if i < len(shortA) {
			require.Equal(t, i, c.Index)
			require.True(t, c.Busy, "cycle %d", c.Cycle)
		} else {
			require.Equal(t, -1, c.Index)
			require.Equal(t, pipeline.Operands{}, c.In)
			require.False(t, c.Busy, "cycle %d", c.Cycle)
		}
		if i < pipeline.Stages-1 {
			require.False(t, c.OK, "cycle %d", c.Cycle)
			continue
		}
		require.True(t, c.OK, "cycle %d", c.Cycle)
		// Each product comes out two clocks after its operands went in.
		in := res.Cycles[i-(pipeline.Stages-1)].In
		require.Equal(t, pipeline.Mul(in.A, in.B), c.Out)
		require.Equal(t, res.Products[i-(pipeline.Stages-1)], c.Out)
	}
}

func TestEmpty(t *testing.T) {
	res, err := Driver{}.Run(nil, nil)
	require.NoError(t, err)
	require.Equal(t, flo.Zero, res.Sum)
	require.Empty(t, res.Products)
	require.Empty(t, res.Steps)
	require.Len(t, res.Cycles, pipeline.Stages-1)
}

func TestZeroProducts(t *testing.T) {
	// Products that are zero are real outputs, unlike bubbles.
	res, err := Driver{}.Run(Encode([]float64{0, 1, 0}), Encode([]float64{5, 0, 0}))
	require.NoError(t, err)
	require.Equal(t, []flo.E4M3{0, 0, 0}, res.Products)
	require.Len(t, res.Steps, 3)
	require.Equal(t, flo.Zero, res.Sum)
}

func TestAccumulateOrder(t *testing.T) {
	// Every intermediate sum is rounded, so saturating early is visible.
	sum, _ := Accumulate([]flo.E4M3{flo.MaxE4M3, flo.MaxE4M3, 0xf7})
	require.Equal(t, flo.E4M3(0xee), sum) // 128 - 240 = -112

	sum, _ = Accumulate([]flo.E4M3{flo.MaxE4M3, 0xf7, flo.MaxE4M3})
	require.Equal(t, flo.MaxE4M3, sum)

	sum, steps := Accumulate(nil)
	require.Equal(t, flo.Zero, sum)
	require.Empty(t, steps)
}

func TestRunLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := Driver{Logger: zap.New(core)}
	_, err := d.Run(Encode(shortA), Encode(shortB))
	require.NoError(t, err)

	require.Equal(t, 6, logs.FilterMessage("clock").Len())
	require.Equal(t, 4, logs.FilterMessage("accumulate").Len())
	sums := logs.FilterMessage("dot product").All()
	require.Len(t, sums, 1)
	require.Equal(t, "0xac", sums[0].ContextMap()["sum"])

	// Bubbles are logged without operands.
	last := logs.FilterMessage("clock").All()[5].ContextMap()
	require.NotContains(t, last, "a")
	require.Equal(t, "0xa8", last["out"])
}

func TestRunBatch(t *testing.T) {
	jobs := []Job{
		{Name: "short", A: Encode(shortA), B: Encode(shortB)},
		{Name: "long", A: Encode(longA), B: Encode(longB)},
		{Name: "empty"},
		{Name: "reversed", A: Encode(shortB), B: Encode(shortA)},
	}
	for _, limit := range []int{0, 1, 3} {
		results, err := Driver{}.RunBatch(context.Background(), jobs, limit)
		require.NoError(t, err)
		require.Len(t, results, len(jobs))
		for i, j := range jobs {
			want, err := Driver{}.Run(j.A, j.B)
			require.NoError(t, err)
			require.Equal(t, want, results[i], "job %s", j.Name)
		}
		require.Equal(t, results[0].Products, results[3].Products)
	}
}

func TestRunBatchErrors(t *testing.T) {
	jobs := []Job{
		{Name: "ok", A: Encode(shortA), B: Encode(shortB)},
		{Name: "bad", A: Encode(shortA), B: Encode(longB)},
	}
	_, err := Driver{}.RunBatch(context.Background(), jobs, 0)
	require.ErrorIs(t, err, ErrLengthMismatch)
	require.ErrorContains(t, err, `"bad"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Driver{}.RunBatch(ctx, jobs[:1], 0)
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
