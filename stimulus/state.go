// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package stimulus

// State is the state of a sweep.
//
type State int

// Sweep states, in order.
//
const (
	Idle   State = iota // bus zeroed, valid deasserted
	Warmup              // idle clock edges
	Sweep               // valid asserted, one sample per edge
	Drain               // valid deasserted, settle edges
	Done
)

var stateNames = [...]string{"IDLE", "WARMUP", "SWEEP", "DRAIN", "DONE"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}
