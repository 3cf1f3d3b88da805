// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package sim

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// A Component is a part of a circuit that reads wire states from the current
// frame and writes its outputs into the next one.
//
type Component func(c *Circuit)

// Circuit is a runnable cycle-accurate circuit simulation.
//
// Wire states are double buffered: components read frame #0 and write frame
// #1, frames are swapped at the end of each step. Analog wires follow the same
// scheme.
//
type Circuit struct {
	s0 []bool // digital wire states frame #0
	s1 []bool // digital wire states frame #1
	a0 []float64
	a1 []float64
	cs []Component

	count  int  // digital wire count
	acount int  // analog wire count
	spc    uint // steps per clock cycle
	steps  uint
	edge   uint  // step number of the last executed rising edge
	period int64 // clock period in ps

	wc []chan struct{}
	wg sync.WaitGroup
}

// NewCircuit builds a new circuit based on the given parts.
//
// workers is the number of goroutines used to update the state of the Circuit
// each step of the simulation. If less or equal to 0, the value of GOMAXPROCS
// will be used.
//
// stepsPerCycle indicates how many simulation steps to run per clock cycle. It
// is rounded up to the next power of two, with a minimum of 4 so that values
// driven right after a rising edge have settled before the next one.
//
// The clock period defaults to one time unit per step. Use SetClockPeriod
// to change it.
//
// Callers must make sure to call Dispose() once the circuit is no longer needed
// in order to release allocated resources.
//
func NewCircuit(workers int, stepsPerCycle uint, parts ...Part) (*Circuit, error) {
	if len(parts) == 0 {
		return nil, errors.New("empty part list")
	}

	if stepsPerCycle < 4 {
		stepsPerCycle = 4
	}
	stepsPerCycle--
	stepsPerCycle |= stepsPerCycle >> 1
	stepsPerCycle |= stepsPerCycle >> 2
	stepsPerCycle |= stepsPerCycle >> 4
	stepsPerCycle |= stepsPerCycle >> 8
	stepsPerCycle |= stepsPerCycle >> 16
	stepsPerCycle |= stepsPerCycle >> 32
	stepsPerCycle++

	// room for constant value pins.
	c := &Circuit{count: cstCount, spc: stepsPerCycle, period: int64(stepsPerCycle)}
	root := newSocket(c)
	var cs []Component
	for _, p := range parts {
		sub, err := root.mount(p)
		if err != nil {
			return nil, errors.Wrap(err, "mount "+p.Name)
		}
		cs = append(cs, p.Mount(sub)...)
	}
	cs = append(cs, updClock)
	c.cs = cs
	c.s0 = make([]bool, c.count)
	c.s1 = make([]bool, c.count)
	c.a0 = make([]float64, c.acount)
	c.a1 = make([]float64, c.acount)
	c.s0[cstClk] = true
	c.s0[cstTrue] = true
	c.s1[cstTrue] = true

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}
	if workers <= 0 {
		workers = 1
	}
	for len(cs) > 0 {
		size := len(cs) / workers
		if size*workers < len(cs) {
			size++
		}
		wc := make(chan struct{}, 1)
		c.wc = append(c.wc, wc)
		go worker(c, cs[:size], wc)
		cs = cs[size:]
	}

	return c, nil
}

func updClock(c *Circuit) {
	if c.s0[cstFalse] || !c.s0[cstTrue] {
		panic("true or false constants have been overwritten")
	}

	step := c.steps + 1
	if step&(c.spc-1) == 0 {
		c.s1[cstClk] = true
	} else if step&(c.spc/2-1) == 0 {
		c.s1[cstClk] = false
	} else {
		c.s1[cstClk] = c.s0[cstClk]
	}
}

func worker(c *Circuit, cs []Component, wc <-chan struct{}) {
	for {
		_, ok := <-wc
		if !ok {
			c.wg.Done()
			return
		}
		for _, f := range cs {
			f(c)
		}
		c.wg.Done()
	}
}

// Dispose releases all resources allocated for a circuit and stops
// worker goroutines.
//
func (c *Circuit) Dispose() {
	c.wg.Add(len(c.wc))
	for _, wc := range c.wc {
		close(wc)
	}
	c.wg.Wait()
	c.wc = nil
}

func (c *Circuit) allocPin() int {
	n := c.count
	c.count++
	return n
}

func (c *Circuit) allocAnalog() int {
	n := c.acount
	c.acount++
	return n
}

// SetClockPeriod sets the duration of a clock cycle in picoseconds.
//
func (c *Circuit) SetClockPeriod(ps int64) {
	if ps > 0 {
		c.period = ps
	}
}

// Steps returns the value of the step counter.
//
func (c *Circuit) Steps() uint { return c.steps }

// SPC returns the stepsPerCycle value.
//
func (c *Circuit) SPC() uint { return c.spc }

// AtTick returns true if the current step is at the beginning of a clock cycle
// (rising edge of Clk).
//
func (c *Circuit) AtTick() bool {
	return c.steps&(c.spc-1) == 0
}

// Time returns the simulated time of the current step in picoseconds.
//
func (c *Circuit) Time() int64 {
	return int64(c.steps) * c.period / int64(c.spc)
}

// EdgeTime returns the simulated time of the last executed rising edge.
//
func (c *Circuit) EdgeTime() int64 {
	return int64(c.edge) * c.period / int64(c.spc)
}

// Get returns the state of pin n.
//
func (c *Circuit) Get(n int) bool { return c.s0[n] }

// Set sets the state s of pin n for the next step.
//
func (c *Circuit) Set(n int, s bool) { c.s1[n] = s }

// Analog returns the value of analog wire n.
//
func (c *Circuit) Analog(n int) float64 { return c.a0[n] }

// SetAnalog sets the value of analog wire n for the next step.
//
func (c *Circuit) SetAnalog(n int, v float64) { c.a1[n] = v }

// Step advances the simulation by one step.
//
func (c *Circuit) Step() {
	if c.AtTick() {
		c.edge = c.steps
	}
	c.wg.Add(len(c.wc))
	for _, wc := range c.wc {
		wc <- struct{}{}
	}
	c.wg.Wait()
	c.steps++
	c.s0, c.s1 = c.s1, c.s0
	c.a0, c.a1 = c.a1, c.a0
}

// RisingEdge runs the simulation up to and including the next rising edge of
// Clk, plus one settling step. Once it returns, values latched on the edge are
// visible to probes.
//
func (c *Circuit) RisingEdge() {
	for !c.AtTick() {
		c.Step()
	}
	c.Step()
	c.Step()
}

// Size returns the component count in the circuit.
//
func (c *Circuit) Size() int { return len(c.cs) }
