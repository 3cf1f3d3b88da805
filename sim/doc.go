/*
Package sim provides a naive cycle-accurate circuit simulator used to host the
device under test of a DAC validation bench.

A circuit is built from parts (see PartSpec). Each part mounts into a Socket
and returns Components, closures that are run once per simulation step. Wires
carry either digital (bool) or analog (float64) values. A clock signal Clk is
derived from the step counter; clocked parts test AtTick() to detect its
rising edge.

*/
package sim
