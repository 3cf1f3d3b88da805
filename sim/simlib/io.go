// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package simlib provides the parts used by the DAC bench: function driven
// inputs, probes and a behavioral multi-channel DAC.
//
package simlib

import (
	"math/big"
	"strconv"

	"github.com/db47h/dacbench/sim"
)

// common pin names
const (
	pIn    = "in"
	pOut   = "out"
	pValid = "valid"
	pAout  = "aout"
)

// Input creates a function based input.
//
//	Outputs: out
//	Function: out = f()
//
func Input(f func() bool) sim.NewPartFn {
	p := &sim.PartSpec{
		Name:    "Input",
		Outputs: []string{pOut},
		Mount: func(s *sim.Socket) []sim.Component {
			pin := s.Pin(pOut)
			return []sim.Component{
				func(c *sim.Circuit) { c.Set(pin, f()) },
			}
		},
	}
	return p.NewPart
}

// InputBus creates an input bus of the given bits size. Bit 0 of the value
// returned by f drives out[0]. A nil value drives all pins low.
//
//	Outputs: out[bits]
//
func InputBus(bits int, f func() *big.Int) sim.NewPartFn {
	return (&sim.PartSpec{
		Name:    "InputBus" + strconv.Itoa(bits),
		Outputs: sim.Bus(pOut, bits),
		Mount: func(s *sim.Socket) []sim.Component {
			pins := s.Bus(pOut, bits)
			return []sim.Component{func(c *sim.Circuit) {
				v := f()
				for bit, p := range pins {
					c.Set(p, v != nil && v.Bit(bit) != 0)
				}
			}}
		}}).NewPart
}

// Output creates an output or probe. The fn function is
// called with the named pin state on every circuit update.
//
//	Inputs: in
//	Function: f(in)
//
func Output(f func(bool)) sim.NewPartFn {
	p := &sim.PartSpec{
		Name:   "Output",
		Inputs: []string{pIn},
		Mount: func(s *sim.Socket) []sim.Component {
			in := s.Pin(pIn)
			return []sim.Component{
				func(c *sim.Circuit) { f(c.Get(in)) },
			}
		},
	}
	return p.NewPart
}

// AnalogProbe creates a probe on an analog wire. f is called with the wire
// value on every circuit update.
//
//	Analog inputs: in
//
func AnalogProbe(f func(float64)) sim.NewPartFn {
	p := &sim.PartSpec{
		Name:         "AnalogProbe",
		AnalogInputs: []string{pIn},
		Mount: func(s *sim.Socket) []sim.Component {
			in := s.Analog(pIn)
			return []sim.Component{
				func(c *sim.Circuit) { f(c.Analog(in)) },
			}
		},
	}
	return p.NewPart
}
