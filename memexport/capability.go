// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package memexport

import (
	"io"

	"github.com/pkg/errors"
)

// Convention identifies how an export capability produces its output.
//
type Convention int

// Export calling conventions.
//
const (
	Absent        Convention = iota // capability not supported
	WritesOwnFile                   // writes its destination itself
	EmitsText                       // emits the image text to a stream
)

func (c Convention) String() string {
	switch c {
	case WritesOwnFile:
		return "writes-own-file"
	case EmitsText:
		return "emits-text"
	}
	return "absent"
}

// A Capability is one export operation of a compiled program. The zero value
// is an absent capability.
//
type Capability struct {
	conv  Convention
	write func(dest string) error
	emit  func(w io.Writer) error
}

// FileWriter returns a capability that writes its destination itself. For
// prefix based regions, dest is a file name prefix rather than a file name.
//
func FileWriter(fn func(dest string) error) Capability {
	return Capability{conv: WritesOwnFile, write: fn}
}

// TextEmitter returns a capability that emits the image text to w.
//
func TextEmitter(fn func(w io.Writer) error) Capability {
	return Capability{conv: EmitsText, emit: fn}
}

// Convention returns the calling convention of c.
//
func (c Capability) Convention() Convention { return c.conv }

// ErrCapabilityAbsent is returned when a program does not support an export.
// ExportAll only tolerates it for the data memory.
//
var ErrCapabilityAbsent = errors.New("export capability absent")

// A Program is a compiled control program as seen by the exporter.
//
type Program interface {
	PMEM() Capability
	WMEM() Capability
	SGMEM(ch int) Capability
}

// DMEMProgram is implemented by programs that can export their data memory.
//
type DMEMProgram interface {
	Program
	DMEM() Capability
}
