// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package simtest provides utility functions for testing parts.
//
package simtest

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/db47h/dacbench/sim"
	"github.com/db47h/dacbench/sim/simlib"
	"github.com/pkg/errors"
)

// sameNames reports the first mismatch between two pin lists.
func sameNames(kind string, a, b []string) error {
	if len(a) != len(b) {
		return errors.Errorf("%s count mismatch: %d != %d", kind, len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			return errors.Errorf("%s %d: %q != %q", kind, i, a[i], b[i])
		}
	}
	return nil
}

// wires connects every input pin to the wire of the same name, and every
// output pin to a wire private to the given prefix.
func wires(ps *sim.PartSpec, prefix string) sim.W {
	w := make(sim.W, len(ps.Inputs)+len(ps.Outputs)+len(ps.AnalogOutputs))
	for _, n := range ps.Inputs {
		w[n] = n
	}
	for _, n := range ps.Outputs {
		w[n] = prefix + n
	}
	for _, n := range ps.AnalogOutputs {
		w[n] = prefix + n
	}
	return w
}

// ComparePart takes two parts and compares their digital and analog outputs
// given the same inputs, sampled after each rising edge. Both parts must have
// the same pin interface.
//
func ComparePart(t testing.TB, spc uint, part1, part2 sim.NewPartFn) {
	t.Helper()

	ps1, ps2 := part1(nil).PartSpec, part2(nil).PartSpec
	for _, err := range []error{
		sameNames("input", ps1.Inputs, ps2.Inputs),
		sameNames("output", ps1.Outputs, ps2.Outputs),
		sameNames("analog output", ps1.AnalogOutputs, ps2.AnalogOutputs),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}

	inputs := make([]bool, len(ps1.Inputs))
	outputs := make([][2]bool, len(ps1.Outputs))
	analog := make([][2]float64, len(ps1.AnalogOutputs))

	parts := []sim.Part{part1(wires(ps1, "1/")), part2(wires(ps2, "2/"))}
	for i, n := range ps1.Inputs {
		k := i
		parts = append(parts, simlib.Input(func() bool { return inputs[k] })(sim.W{"out": n}))
	}
	for i, n := range ps1.Outputs {
		k := i
		parts = append(parts,
			simlib.Output(func(b bool) { outputs[k][0] = b })(sim.W{"in": "1/" + n}),
			simlib.Output(func(b bool) { outputs[k][1] = b })(sim.W{"in": "2/" + n}))
	}
	for i, n := range ps1.AnalogOutputs {
		k := i
		parts = append(parts,
			simlib.AnalogProbe(func(v float64) { analog[k][0] = v })(sim.W{"in": "1/" + n}),
			simlib.AnalogProbe(func(v float64) { analog[k][1] = v })(sim.W{"in": "2/" + n}))
	}

	c, err := sim.NewCircuit(0, spc, parts...)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Dispose()

	errString := func(name string, ex, got any) string {
		var b strings.Builder
		for i, n := range ps1.Inputs {
			if b.Len() > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", n, inputs[i])
		}
		return fmt.Sprintf("\nExpected %s => %s=%v\nGot %v", b.String(), name, ex, got)
	}
	check := func() {
		t.Helper()
		c.RisingEdge()
		for o, out := range outputs {
			if out[0] != out[1] {
				t.Fatal(errString(ps1.Outputs[o], out[0], out[1]))
			}
		}
		for o, out := range analog {
			if out[0] != out[1] {
				t.Fatal(errString(ps1.AnalogOutputs[o], out[0], out[1]))
			}
		}
	}

	iter := len(ps1.Inputs)
	if iter > 12 {
		iter = 12
	}
	iter = 1 << uint(iter)

	start := time.Now()

	// all 0, then all 1
	check()
	for in := range inputs {
		inputs[in] = true
	}
	check()

	for i := 0; i < iter; i++ {
		for in := range inputs {
			inputs[in] = rand.IntN(2) == 1
		}
		check()
	}

	elapsed := time.Since(start)
	ticks := c.Steps() / c.SPC()
	t.Logf("%d components. %d steps in %v. %d clock ticks => %.2f Hz", c.Size(), c.Steps(), elapsed, ticks, float64(ticks)/elapsed.Seconds())
}
