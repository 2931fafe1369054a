// dot-fp8 computes a dot product on the pipelined E4M3 multiplier and shows
// what happens on every clock.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/pfcm/fp8/dot"
	"github.com/pfcm/fp8/flo"
	"github.com/pfcm/fp8/internal/lfsr"
)

var (
	aFlag       = flag.String("a", "0.1,0.2,0.25,-0.3,0.4,0.5,0.55,0.6,-0.75,0.8,0.875,0.9", "comma separated `floats` for the first vector")
	bFlag       = flag.String("b", "0.25,-0.9,0.125,0.8,0.875,-0.75,0.3,0.6,0.1,0.2,-0.4,0.55", "comma separated `floats` for the second vector")
	randomFlag  = flag.Int("random", 0, "if positive, ignore -a and -b and use this many pseudo-random elements in [-1, 1) instead")
	seedFlag    = flag.Uint("seed", 1, "seed for -random")
	verboseFlag = flag.Bool("v", false, "if true, also log every clock to stderr")
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("dot-fp8: ")

	a, err := parseVector(*aFlag)
	if err != nil {
		log.Fatalf("-a: %v", err)
	}
	b, err := parseVector(*bFlag)
	if err != nil {
		log.Fatalf("-b: %v", err)
	}
	if n := *randomFlag; n > 0 {
		l := lfsr.New(uint16(*seedFlag))
		a, b = l.Floats(n), l.Floats(n)
	}

	var d dot.Driver
	if *verboseFlag {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
		defer l.Sync()
		d.Logger = l
	}

	res, err := dot.RunFloats(d, a, b)
	if err != nil {
		log.Fatal(err)
	}

	w := tabwriter.NewWriter(os.Stdout, 6, 1, 2, ' ', 0)
	showInputs(w, res)
	showCycles(w, res)
	showSteps(w, res)
	showResult(w, res)
	if err := w.Flush(); err != nil {
		log.Fatal(err)
	}
}

func parseVector(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var v []float64
	for _, f := range strings.Split(s, ",") {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		v = append(v, x)
	}
	return v, nil
}

func heading(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

func hexes(fs []flo.E4M3) string {
	s := make([]string, len(fs))
	for i, f := range fs {
		s[i] = f.Hex()
	}
	return "[" + strings.Join(s, ", ") + "]"
}

func showInputs(w io.Writer, res *dot.FloatResult) {
	heading(w, "INPUT VECTORS (E4M3)")
	fmt.Fprintf(w, "A:\t%s\n", hexes(res.A))
	fmt.Fprintf(w, "B:\t%s\n", hexes(res.B))
}

func showCycles(w io.Writer, res *dot.FloatResult) {
	heading(w, "CYCLE BY CYCLE")
	fmt.Fprintln(w, "Cycle\tStage 1 input\tStage 2\tStage 3 output\tProduct\t")
	for _, c := range res.Cycles {
		in := "---"
		if c.Index >= 0 {
			in = fmt.Sprintf("A[%d]*B[%d] (%s*%s)", c.Index, c.Index, c.In.A.Hex(), c.In.B.Hex())
		}
		s2 := "---"
		if c.Busy {
			s2 = "multiplying"
		}
		out, dec := "---", "---"
		if c.OK {
			out = c.Out.Hex()
			dec = fmt.Sprintf("%.4f", c.Out.Float64())
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t\n", c.Cycle, in, s2, out, dec)
	}
}

func showSteps(w io.Writer, res *dot.FloatResult) {
	heading(w, "ACCUMULATION")
	fmt.Fprintln(w, "Step\tProduct\tAccumulator\tValue\t")
	for i, s := range res.Steps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.5f\t\n", i+1, s.Product.Hex(), s.Acc.Hex(), s.Acc.Float64())
	}
}

func showResult(w io.Writer, res *dot.FloatResult) {
	heading(w, "RESULT")
	fmt.Fprintf(w, "Dot product (E4M3):\t%s\n", res.Sum.Hex())
	fmt.Fprintf(w, "Dot product (decimal):\t%.5f\n", res.Sum.Float64())
	fmt.Fprintf(w, "Direct float64:\t%.5f\n", res.Direct)
	fmt.Fprintf(w, "Quantisation error:\t%.5f\n", res.Err)
}
