// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package simlib

import (
	"strconv"

	"github.com/db47h/dacbench/sim"
	"github.com/pkg/errors"
)

// DAC returns a behavioral multi-channel digital to analog converter.
//
// The input bus is split into channels slices of bits each, channel 0 in the
// least significant bits. On each rising edge of Clk, if valid is high, every
// slice is latched and converted as a two's complement fraction of full scale:
//
//	aout[ch] = vref * signed(in[ch*bits .. ch*bits+bits-1]) / 2^(bits-1)
//
// Outputs hold their last value while valid is low.
//
//	Inputs: in[channels*bits], valid
//	Analog outputs: aout[channels]
//
func DAC(channels, bits int, vref float64) (sim.NewPartFn, error) {
	if channels <= 0 {
		return nil, errors.Errorf("invalid channel count %d", channels)
	}
	if bits < 2 || bits > 64 {
		return nil, errors.Errorf("unsupported sample width %d", bits)
	}
	scale := float64(uint64(1) << uint(bits-1))
	shift := uint(64 - bits)
	return (&sim.PartSpec{
		Name:          "DAC" + strconv.Itoa(channels) + "x" + strconv.Itoa(bits),
		Inputs:        append(sim.Bus(pIn, channels*bits), pValid),
		AnalogOutputs: sim.Bus(pAout, channels),
		Mount: func(s *sim.Socket) []sim.Component {
			in, valid := s.Bus(pIn, channels*bits), s.Pin(pValid)
			aout := s.AnalogBus(pAout, channels)
			level := make([]float64, channels)
			return []sim.Component{
				func(c *sim.Circuit) {
					if c.AtTick() && c.Get(valid) {
						for ch := range level {
							var raw uint64
							for bit, p := range in[ch*bits : (ch+1)*bits] {
								if c.Get(p) {
									raw |= 1 << uint(bit)
								}
							}
							// sign extend
							v := int64(raw<<shift) >> shift
							level[ch] = float64(v) / scale * vref
						}
					}
					for ch, o := range aout {
						c.SetAnalog(o, level[ch])
					}
				}}
		}}).NewPart, nil
}
