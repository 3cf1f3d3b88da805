// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package sim

import "github.com/pkg/errors"

// Constant input pin names.
//
const (
	False = "false"
	True  = "true"
	Clk   = "clk"
)

const (
	cstFalse = iota
	cstTrue
	cstClk
	cstCount
)

// A Socket maps a part's pin names to pin numbers in a circuit.
//
type Socket struct {
	m map[string]int
	a map[string]int
	c *Circuit
}

func newSocket(c *Circuit) *Socket {
	return &Socket{
		m: map[string]int{False: cstFalse, True: cstTrue, Clk: cstClk},
		a: make(map[string]int),
		c: c,
	}
}

// mount returns a sub-socket for p where each of p's pins is bound to the wire
// it is connected to in s. Unconnected inputs are wired to False, unconnected
// outputs get a private wire.
//
func (s *Socket) mount(p Part) (*Socket, error) {
	conns, err := p.Conns.expand()
	if err != nil {
		return nil, err
	}
	sub := &Socket{m: make(map[string]int), a: make(map[string]int), c: s.c}
	known := make(map[string]bool)
	for _, n := range p.Inputs {
		known[n] = true
		if w, ok := conns[n]; ok {
			sub.m[n] = s.PinOrNew(w)
		} else {
			sub.m[n] = cstFalse
		}
	}
	for _, n := range p.Outputs {
		known[n] = true
		w, ok := conns[n]
		switch {
		case !ok:
			sub.m[n] = s.c.allocPin()
		case w == False || w == True || w == Clk:
			return nil, errors.New("output pin " + n + " connected to constant " + w)
		default:
			sub.m[n] = s.PinOrNew(w)
		}
	}
	for _, n := range p.AnalogInputs {
		known[n] = true
		if w, ok := conns[n]; ok {
			sub.a[n] = s.AnalogOrNew(w)
		} else {
			// unconnected analog inputs read a private wire that stays at 0.
			sub.a[n] = s.c.allocAnalog()
		}
	}
	for _, n := range p.AnalogOutputs {
		known[n] = true
		if w, ok := conns[n]; ok {
			sub.a[n] = s.AnalogOrNew(w)
		} else {
			sub.a[n] = s.c.allocAnalog()
		}
	}
	for k := range conns {
		if !known[k] {
			return nil, errors.New("invalid pin name " + k + " for part " + p.Name)
		}
	}
	return sub, nil
}

// Pin returns the pin number allocated to the given pin name.
// This function panics if the pin does not exist.
//
func (s *Socket) Pin(name string) int {
	n, ok := s.m[name]
	if !ok {
		panic("pin " + name + " does not exist")
	}
	return n
}

// PinOrNew returns the pin number allocated to the given pin name.
// If no such pin exists a new one is allocated.
//
func (s *Socket) PinOrNew(name string) int {
	n, ok := s.m[name]
	if !ok {
		n = s.c.allocPin()
		s.m[name] = n
	}
	return n
}

// Bus returns the pin numbers allocated to the given bus name.
//
func (s *Socket) Bus(name string, bits int) []int {
	out := make([]int, bits)
	for i := range out {
		out[i] = s.Pin(BusPinName(name, i))
	}
	return out
}

// Analog returns the analog wire number allocated to the given name.
// This function panics if the wire does not exist.
//
func (s *Socket) Analog(name string) int {
	n, ok := s.a[name]
	if !ok {
		panic("analog wire " + name + " does not exist")
	}
	return n
}

// AnalogOrNew returns the analog wire number allocated to the given name,
// allocating a new one if necessary.
//
func (s *Socket) AnalogOrNew(name string) int {
	n, ok := s.a[name]
	if !ok {
		n = s.c.allocAnalog()
		s.a[name] = n
	}
	return n
}

// AnalogBus returns the analog wire numbers of the given bus.
//
func (s *Socket) AnalogBus(name string, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = s.Analog(BusPinName(name, i))
	}
	return out
}
