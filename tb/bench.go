// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package tb mounts the behavioral DAC into a simulated circuit and exposes it
// to the stimulus model as a device under test.
//
package tb

import (
	"context"
	"math/big"

	"github.com/db47h/dacbench/internal/ctxlog"
	"github.com/db47h/dacbench/internal/logging"
	"github.com/db47h/dacbench/sim"
	"github.com/db47h/dacbench/sim/simlib"
	"github.com/pkg/errors"
)

// Options configures a Bench.
//
type Options struct {
	Channels      int
	Bits          int
	VRef          float64
	StepsPerCycle uint
	PeriodPS      int64 // clock period, 2325 ps for a 430.08 MHz clock
	Workers       int
	// Unobservable hides the analog outputs, as simulation backends that
	// cannot expose real values do.
	Unobservable bool
}

// DefaultOptions returns the options of the reference bench: 16 channels of 16
// bits clocked at 430.08 MHz.
//
func DefaultOptions() Options {
	return Options{
		Channels:      16,
		Bits:          16,
		VRef:          1.0,
		StepsPerCycle: 8,
		PeriodPS:      2325,
		Workers:       1,
	}
}

// A Bench is a simulated DAC with its input drivers and output probes.
// It implements stimulus.DUT.
//
type Bench struct {
	c     *sim.Circuit
	width int
	obs   bool

	// driven by the testbench between steps, read by input parts.
	word  *big.Int
	valid bool

	aout []float64
}

// New builds a new Bench. Callers must call Close once done.
//
func New(o Options) (*Bench, error) {
	dac, err := simlib.DAC(o.Channels, o.Bits, o.VRef)
	if err != nil {
		return nil, errors.Wrap(err, "build DAC")
	}
	b := &Bench{
		width: o.Channels * o.Bits,
		obs:   !o.Unobservable,
		word:  new(big.Int),
		aout:  make([]float64, o.Channels),
	}
	data := sim.BusRange("data", 0, b.width-1)
	aout := sim.BusRange("aout", 0, o.Channels-1)
	parts := []sim.Part{
		simlib.InputBus(b.width, func() *big.Int { return b.word })(sim.W{sim.BusRange("out", 0, b.width-1): data}),
		simlib.Input(func() bool { return b.valid })(sim.W{"out": "valid"}),
		dac(sim.W{sim.BusRange("in", 0, b.width-1): data, "valid": "valid", aout: aout}),
	}
	for ch := range b.aout {
		ch := ch
		parts = append(parts, simlib.AnalogProbe(func(v float64) { b.aout[ch] = v })(sim.W{"in": sim.BusPinName("aout", ch)}))
	}
	c, err := sim.NewCircuit(o.Workers, o.StepsPerCycle, parts...)
	if err != nil {
		return nil, errors.Wrap(err, "build circuit")
	}
	c.SetClockPeriod(o.PeriodPS)
	b.c = c
	return b, nil
}

// DataWidth returns the width of the data bus in bits.
//
func (b *Bench) DataWidth() int { return b.width }

// SetData drives the data bus with w. w is copied.
//
func (b *Bench) SetData(w *big.Int) { b.word = new(big.Int).Set(w) }

// SetValid drives the valid signal.
//
func (b *Bench) SetValid(v bool) { b.valid = v }

// RisingEdge advances the circuit to the next rising edge of the clock.
//
func (b *Bench) RisingEdge(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.c.RisingEdge()
	if log := ctxlog.FromContext(ctx); log.Enabled(ctx, logging.LevelTrace) {
		log.Log(ctx, logging.LevelTrace, "rising edge", "time", b.c.EdgeTime(), "valid", b.valid, "data", b.word.Text(16))
	}
	return nil
}

// Now returns the time of the last rising edge in ps.
//
func (b *Bench) Now() int64 { return b.c.EdgeTime() }

// Output returns the analog output of channel ch.
//
func (b *Bench) Output(ch int) (float64, bool) {
	if !b.obs || ch < 0 || ch >= len(b.aout) {
		return 0, false
	}
	return b.aout[ch], true
}

// Close stops the circuit workers.
//
func (b *Bench) Close() { b.c.Dispose() }
