package dot

import (
	"math"

	"golang.org/x/exp/constraints"

	"github.com/pfcm/fp8/flo"
)

// FloatResult is the Result of a dot product of float vectors, along with
// the quantised inputs and an exact reference.
type FloatResult struct {
	*Result
	A, B []flo.E4M3
	// Direct is the dot product computed in float64 with no quantisation.
	Direct float64
	// Err is |Sum - Direct|.
	Err float64
}

// Encode quantises a vector with flo.E4M3FromFloat.
func Encode[T constraints.Float](v []T) []flo.E4M3 {
	out := make([]flo.E4M3, len(v))
	for i, f := range v {
		out[i] = flo.E4M3FromFloat(f)
	}
	return out
}

// RunFloats quantises a and b and runs them through d.
func RunFloats[T constraints.Float](d Driver, a, b []T) (*FloatResult, error) {
	fa, fb := Encode(a), Encode(b)
	res, err := d.Run(fa, fb)
	if err != nil {
		return nil, err
	}
	var direct float64
	for i := range a {
		direct += float64(a[i]) * float64(b[i])
	}
	return &FloatResult{
		Result: res,
		A:      fa,
		B:      fb,
		Direct: direct,
		Err:    math.Abs(res.Sum.Float64() - direct),
	}, nil
}
