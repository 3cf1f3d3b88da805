// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"github.com/db47h/dacbench/runner"
	"github.com/pkg/errors"
)

// Process exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitNoBinary = 3
	exitNoTable  = 4
)

// exitError is an error with a specific exit code and user facing message.
type exitError struct {
	Code    int
	Message string
}

// Error implements the error interface for exitError.
func (e *exitError) Error() string {
	return e.Message
}

// exitCode maps a pipeline error to the process exit code. External process
// failures propagate their own exit code, except for the codes reserved to
// missing artifacts, which become exitFailure.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var (
		me *runner.MissingArtifactError
		pe *runner.ProcessError
		be *runner.BuildError
	)
	switch {
	case errors.As(err, &me):
		if me.Kind == runner.KindBinary {
			return exitNoBinary
		}
		return exitNoTable
	case errors.As(err, &pe):
		return propagate(pe.Code)
	case errors.As(err, &be):
		return propagate(be.Code)
	}
	return exitFailure
}

func propagate(code int) int {
	switch code {
	case exitNoBinary, exitNoTable:
		return exitFailure
	}
	if code <= 0 {
		return exitFailure
	}
	return code
}
