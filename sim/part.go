// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package sim

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A MountFn mounts a part into socket s. MountFn's should query
// the socket for assigned pin numbers and return closures around
// these pin numbers.
//
// For example, a Not gate can be defined like this:
//
//	not := &PartSpec{
//		Name: "Not",
//		Inputs: []string{"in"},
//		Outputs: []string{"out"},
//		Mount: func (s *Socket) []Component {
//			in, out := s.Pin("in"), s.Pin("out")
//			return []Component{
//				func (c *Circuit) { c.Set(out, !c.Get(in)) },
//			}
//		}}
//
type MountFn func(s *Socket) []Component

// A PartSpec wraps a part specification (its blueprint).
//
type PartSpec struct {
	// Part name.
	Name string
	// Digital input pin names. Use Bus() to expand a bus to its pin names.
	Inputs []string
	// Digital output pin names.
	Outputs []string
	// Analog input wire names.
	AnalogInputs []string
	// Analog output wire names.
	AnalogOutputs []string

	// Mount function (see MountFn).
	Mount MountFn
}

// NewPart is a NewPartFn that wraps p with the given connections into a Part.
//
func (p *PartSpec) NewPart(w W) Part {
	return Part{p, w}
}

// A NewPartFn is a function that takes a set of connections and returns a
// new Part.
//
type NewPartFn func(w W) Part

// A Part wraps a part specification together with its connections within a
// circuit.
//
type Part struct {
	*PartSpec
	Conns W
}

// W is a set of wires, connecting a part's I/O pins (the map key) to wires in
// its container. Bus ranges are expanded, so that
//
//	W{"in[0..3]": "bus[4..7]"}
//
// connects in[0] to bus[4], in[1] to bus[5] and so on.
//
type W map[string]string

func (w W) expand() (map[string]string, error) {
	r := make(map[string]string, len(w))
	for k, v := range w {
		if k == "" || v == "" {
			return nil, errors.New("invalid pin mapping " + k + ":" + v)
		}
		ks, err := expandRange(k)
		if err != nil {
			return nil, errors.Wrap(err, "expand key "+k)
		}
		vs, err := expandRange(v)
		if err != nil {
			return nil, errors.Wrap(err, "expand value "+v)
		}
		switch {
		case len(ks) == len(vs):
			for i := range ks {
				r[ks[i]] = vs[i]
			}
		case len(vs) == 1:
			// many to one
			for _, k := range ks {
				r[k] = vs[0]
			}
		default:
			return nil, errors.New("pin count mismatch in pin mapping: " + k + ":" + v)
		}
	}
	return r, nil
}

func expandRange(name string) ([]string, error) {
	i := strings.IndexRune(name, '[')
	if i < 0 {
		return []string{name}, nil
	}
	bus := name[:i]
	if bus == "" {
		return nil, errors.New("empty bus name")
	}
	n := name[i+1:]
	i = strings.Index(n, "..")
	if i < 0 {
		return []string{name}, nil
	}
	start, err := strconv.Atoi(n[:i])
	if err != nil {
		return nil, err
	}
	n = n[i+2:]
	i = strings.IndexRune(n, ']')
	if i < 0 {
		return nil, errors.New("no terminating ] in bus range")
	}
	end, err := strconv.Atoi(n[:i])
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, errors.Errorf("invalid bus range %d..%d", start, end)
	}
	r := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		r = append(r, BusPinName(bus, i))
	}
	return r, nil
}

// BusPinName returns the pin name for the n-th bit of the given bus.
//
func BusPinName(bus string, n int) string {
	return bus + "[" + strconv.Itoa(n) + "]"
}

// BusRange returns the connection key for bits lo to hi (inclusive) of bus.
//
func BusRange(bus string, lo, hi int) string {
	return bus + "[" + strconv.Itoa(lo) + ".." + strconv.Itoa(hi) + "]"
}

// Bus returns the pin names of a bits wide bus.
//
func Bus(name string, bits int) []string {
	out := make([]string, bits)
	for i := range out {
		out[i] = BusPinName(name, i)
	}
	return out
}
