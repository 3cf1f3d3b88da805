// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package stimulus implements the testbench side of a DAC validation run: it
// drives the input bus of a device under test with a per-channel fixed-point
// sine sweep, synchronized to the simulated clock, and records the sampled
// output next to an independently computed reference.
//
package stimulus

import (
	"context"
	"math/big"
	"strconv"

	"github.com/db47h/dacbench/internal/ctxlog"
	"github.com/pkg/errors"
)

// A DUT is the device under test as seen from the testbench.
//
type DUT interface {
	// DataWidth returns the width in bits of the input data bus.
	DataWidth() int
	// SetData drives the input data bus. Bit 0 of w is bus bit 0.
	SetData(w *big.Int)
	// SetValid drives the data valid signal.
	SetValid(v bool)
	// RisingEdge suspends until the next rising edge of the clock.
	RisingEdge(ctx context.Context) error
	// Now returns the current simulated time in ps.
	Now() int64
	// Output returns the analog output of channel ch. ok is false when the
	// simulation backend cannot observe it.
	Output(ch int) (v float64, ok bool)
}

// Params configures a sweep.
//
type Params struct {
	Bits        int     // per-channel sample width
	Samples     int     // samples per sine period
	WarmupEdges int     // idle clock edges before the sweep
	DrainEdges  int     // settle edges after the sweep
	VRef        float64 // reference scale for expected values
}

// DefaultParams returns the parameters of the reference bench.
//
func DefaultParams() Params {
	return Params{
		Bits:        16,
		Samples:     100,
		WarmupEdges: 9,
		DrainEdges:  2,
		VRef:        1.0,
	}
}

// Validate checks p for consistency.
//
func (p Params) Validate() error {
	if p.Bits < 2 || p.Bits > 32 {
		return errors.Errorf("sample width must be between 2 and 32 bits, got %d", p.Bits)
	}
	if p.Samples <= 0 {
		return errors.Errorf("samples per period must be positive, got %d", p.Samples)
	}
	if p.WarmupEdges < 0 || p.DrainEdges < 0 {
		return errors.New("warmup and drain edge counts must not be negative")
	}
	return nil
}

// A WidthError is returned when the data bus width is not a multiple of the
// sample width.
//
type WidthError struct {
	Width int
	Bits  int
}

func (e *WidthError) Error() string {
	return "data bus width " + strconv.Itoa(e.Width) + " is not a multiple of " + strconv.Itoa(e.Bits)
}

// Reading is an analog output observation. Valid is false when the value could
// not be observed.
//
type Reading struct {
	Value float64
	Valid bool
}

// Float returns the reading value, or the 0.0 sentinel for an unobserved
// reading.
//
func (r Reading) Float() float64 {
	if !r.Valid {
		return 0
	}
	return r.Value
}

// A Sample is one recorded row of a sweep.
//
type Sample struct {
	Time     int64
	Channel  int
	Index    int // sample index within the sine period
	Actual   Reading
	Expected float64
}

// A Recorder receives samples in recorded order.
//
type Recorder interface {
	Record(s Sample) error
}

// A Model runs a sweep against a DUT. A Model is run once.
//
type Model struct {
	p     Params
	state State
}

// New returns a new Model in the Idle state.
//
func New(p Params) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Model{p: p}, nil
}

// State returns the current state of the model.
//
func (m *Model) State() State { return m.state }

// Run runs the sweep against dut, sending each sample to rec. Recorded order is
// channel-ascending outer, sample-ascending inner.
//
func (m *Model) Run(ctx context.Context, dut DUT, rec Recorder) error {
	if m.state != Idle {
		return errors.Errorf("model already ran (state %s)", m.state)
	}
	log := ctxlog.FromContext(ctx)
	bits := m.p.Bits

	width := dut.DataWidth()
	if width <= 0 || width%bits != 0 {
		return &WidthError{Width: width, Bits: bits}
	}
	channels := width / bits
	log.Info("data bus", "width", width, "channels", channels, "bits", bits)

	dut.SetData(new(big.Int))
	dut.SetValid(false)

	m.state = Warmup
	if err := m.edges(ctx, dut, m.p.WarmupEdges); err != nil {
		return err
	}

	m.state = Sweep
	dut.SetValid(true)
	for ch := 0; ch < channels; ch++ {
		log.Info("generating one period sine", "channel", ch, "samples", m.p.Samples)
		for i := 0; i < m.p.Samples; i++ {
			v := Encode(i, m.p.Samples, bits)
			dut.SetData(Word(v, ch, bits, width))
			if err := dut.RisingEdge(ctx); err != nil {
				return errors.Wrapf(err, "channel %d sample %d", ch, i)
			}
			out, ok := dut.Output(ch)
			s := Sample{
				Time:     dut.Now(),
				Channel:  ch,
				Index:    i,
				Actual:   Reading{Value: out, Valid: ok},
				Expected: Expected(v, bits, m.p.VRef),
			}
			if err := rec.Record(s); err != nil {
				return errors.Wrap(err, "record sample")
			}
		}
	}

	m.state = Drain
	dut.SetValid(false)
	if err := m.edges(ctx, dut, m.p.DrainEdges); err != nil {
		return err
	}
	m.state = Done
	log.Info("sweep completed", "rows", channels*m.p.Samples)
	return nil
}

func (m *Model) edges(ctx context.Context, dut DUT, n int) error {
	for i := 0; i < n; i++ {
		if err := dut.RisingEdge(ctx); err != nil {
			return errors.Wrap(err, m.state.String())
		}
	}
	return nil
}
