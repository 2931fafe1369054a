// show-fp8 shows the E4M3 interpretation of bit patterns, mostly for
// debugging conversions and the multiplier.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pfcm/fp8/fix"
	"github.com/pfcm/fp8/flo"
	"github.com/pfcm/fp8/pipeline"
)

var (
	floatFlag = flag.Bool("f", false, "if true, arguments are floats to encode rather than bit patterns")
	opsFlag   = flag.String("ops", "", "comma separated list of `operations` to show. Available operations are: "+strings.Join(opKeys, ", ")+". Defaults to all operations")
)

var opKeys = []string{"mul", "stages", "add"}

var ops = map[string]func(w io.Writer, a, b flo.E4M3){
	"mul": func(w io.Writer, a, b flo.E4M3) {
		p := pipeline.Mul(a, b)
		fmt.Fprintf(w, "mul\t%s\t%v\t(exact: %v)\t\n", p.Hex(), p, a.Float64()*b.Float64())
	},
	"stages": func(w io.Writer, a, b flo.E4M3) {
		var m pipeline.Multiplier
		m.Tick(&pipeline.Operands{A: a, B: b})
		s1, _ := m.Registers()
		fmt.Fprintf(w, "stage 1\tsign %d\texp sum %d\tsignificands %s, %s\tzero %t\n", s1.Sign, s1.ExpSum, s1.MantA, s1.MantB, s1.Zero)
		m.Tick(nil)
		_, s2 := m.Registers()
		sig, carry := s2.Product.Normalize()
		fmt.Fprintf(w, "stage 2\tproduct %s\tnormalised %s\tcarry %t\t\n", s2.Product, sig, carry)
		out, _ := m.Tick(nil)
		fmt.Fprintf(w, "stage 3\t%s\t%v\t\t\n", out.Hex(), out)
	},
	"add": func(w io.Writer, a, b flo.E4M3) {
		s := a.Add(b)
		fmt.Fprintf(w, "add\t%s\t%v\t(exact: %v)\t\n", s.Hex(), s, a.Float64()+b.Float64())
	},
}

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), help)
		fmt.Fprintln(flag.CommandLine.Output(), "\nOptional arguments:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if n := flag.NArg(); n < 1 || n > 2 {
		fail("Need exactly one or two arguments.")
	}

	showOps, err := parseOps(*opsFlag)
	if err != nil {
		fail(err.Error())
	}

	a, err := parse(flag.Arg(0))
	if err != nil {
		fail(err.Error())
	}
	w := tabwriter.NewWriter(os.Stdout, 11, 1, 1, ' ', 0)

	showConversions(w, a)

	if flag.NArg() == 2 {
		b, err := parse(flag.Arg(1))
		if err != nil {
			fail(err.Error())
		}
		fmt.Fprintln(w)
		showConversions(w, b)
		fmt.Fprintln(w)
		for _, o := range opKeys {
			if showOps[o] {
				ops[o](w, a, b)
			}
		}
	}

	if err := w.Flush(); err != nil {
		fail(err.Error())
	}
}

func parseOps(os string) (map[string]bool, error) {
	all := make(map[string]bool)
	for _, o := range opKeys {
		all[o] = true
	}
	if os == "" {
		return all, nil
	}
	result := make(map[string]bool)
	for _, o := range strings.Split(os, ",") {
		if !all[o] {
			return nil, fmt.Errorf("unknown op %q", o)
		}
		result[o] = true
	}
	return result, nil
}

func parse(s string) (flo.E4M3, error) {
	if *floatFlag {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return flo.E4M3FromFloat(f), nil
	}
	raw, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, err
	}
	return flo.E4M3(raw), nil
}

func showConversions(w io.Writer, f flo.E4M3) {
	sign, exp, mant := f.Fields()
	fmt.Fprintf(w, "%s\t%08b\t%v\t\n", f.Hex(), uint8(f), f)
	fmt.Fprintf(w, "fields\tsign %d\texp %d (2^%d)\tmant %d (%s)\n", sign, exp, int(exp)-flo.Bias, mant, fix.WithImplicitOne(mant))
	if !f.Canonical() {
		back := flo.E4M3FromFloat(f.Float64())
		fmt.Fprintf(w, "canonical\tno\tre-encodes as %s\t\n", back.Hex())
	}
}

func fail(reason string) {
	fmt.Fprintln(os.Stderr, reason)
	fmt.Fprint(os.Stderr, help+"\n")
	os.Exit(1)
}

const help = `show-fp8 shows the E4M3 interpretation of a bit pattern.
Usage:
	show-fp8 [-f] [-ops] num [num]

Where num is an integer literal in Go syntax (or a float, with -f). If a
second number is provided, also shows the results of various operations
between them.
`
