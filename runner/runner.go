// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package runner builds and runs the external RTL simulator.
//
// The toolchain is Verilator in --binary mode: Build translates the testbench
// sources into an executable named after the top module and Run executes it.
// The executable writes the result table itself; Run only checks that it
// showed up.
//
package runner

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/db47h/dacbench/internal/ctxlog"
	"github.com/db47h/dacbench/table"
	"github.com/pkg/errors"
)

// DefaultFlags are the Verilator flags used when Toolchain.Flags is nil.
//
var DefaultFlags = []string{"--binary", "-sv", "-Wall", "--trace-fst"}

// FallbackVerilator is the Verilator path used when none is found in PATH.
//
const FallbackVerilator = "/opt/homebrew/bin/verilator"

// FindVerilator returns the path of the verilator executable.
//
func FindVerilator() string {
	if p, err := exec.LookPath("verilator"); err == nil {
		return p
	}
	return FallbackVerilator
}

// A BuildError is returned when the simulator could not be built.
//
type BuildError struct {
	Cmd  []string
	Code int // exit code, -1 if the toolchain did not run to completion
	Err  error
}

func (e *BuildError) Error() string {
	if e.Code > 0 {
		return "build failed (exit " + strconv.Itoa(e.Code) + "): " + strings.Join(e.Cmd, " ")
	}
	return "build failed: " + e.Err.Error()
}

// Unwrap returns the underlying error.
//
func (e *BuildError) Unwrap() error { return e.Err }

// A MissingArtifactError is returned when a stage did not produce an expected
// file.
//
type MissingArtifactError struct {
	Kind string // "binary" or "result table"
	Path string
}

// Artifact kinds.
//
const (
	KindBinary = "binary"
	KindTable  = "result table"
)

func (e *MissingArtifactError) Error() string { return e.Kind + " not found at " + e.Path }

// A ProcessError is returned when the simulator exits with a non zero status.
//
type ProcessError struct {
	Cmd  []string
	Code int
	Err  error
}

func (e *ProcessError) Error() string {
	return "command failed (exit " + strconv.Itoa(e.Code) + "): " + strings.Join(e.Cmd, " ")
}

// Unwrap returns the underlying error.
//
func (e *ProcessError) Unwrap() error { return e.Err }

// A Run is the outcome of a successful simulation.
//
type Run struct {
	BuildDir string
	Binary   string
	Table    string // absolute path of the result table
}

// Toolchain drives the external build and run.
//
type Toolchain struct {
	Verilator string   // verilator path, FindVerilator() if empty
	Flags     []string // build flags, DefaultFlags if nil

	// Output of the external processes. Nil discards.
	Stdout, Stderr io.Writer

	// Maximum duration of a build or run. Zero means no limit.
	BuildTimeout, RunTimeout time.Duration
}

// BinaryPath returns the path of the simulator executable for top in
// buildDir.
//
func BinaryPath(buildDir, top string) string {
	return filepath.Join(buildDir, "V"+top)
}

// BuildArgs returns the full build command line.
//
func (t *Toolchain) BuildArgs(sources []string, top, buildDir string) []string {
	v := t.Verilator
	if v == "" {
		v = FindVerilator()
	}
	flags := t.Flags
	if flags == nil {
		flags = DefaultFlags
	}
	args := append([]string{v}, flags...)
	args = append(args, "-Mdir", buildDir, "--top-module", top)
	return append(args, sources...)
}

// Build translates sources into a simulator executable with top as the top
// module. Any stale executable is removed first so that a failed build never
// leaves a usable binary behind.
//
func (t *Toolchain) Build(ctx context.Context, sources []string, top, buildDir string) error {
	args := t.BuildArgs(sources, top, buildDir)
	if len(sources) == 0 {
		return &BuildError{Cmd: args, Code: -1, Err: errors.New("no source files")}
	}
	for _, src := range sources {
		if _, err := os.Stat(src); err != nil {
			return &BuildError{Cmd: args, Code: -1, Err: err}
		}
	}
	if err := os.Remove(BinaryPath(buildDir, top)); err != nil && !os.IsNotExist(err) {
		return &BuildError{Cmd: args, Code: -1, Err: err}
	}
	code, err := t.exec(ctx, t.BuildTimeout, "", args)
	if err != nil {
		return &BuildError{Cmd: args, Code: code, Err: err}
	}
	return nil
}

// Run executes the simulator built in buildDir for top, with workDir as its
// working directory, and returns the resolved result table path. Any table
// left by a previous run is removed first. tableName
// defaults to table.DefaultName; a relative name is resolved against workDir,
// itself defaulting to the current directory.
//
func (t *Toolchain) Run(ctx context.Context, buildDir, top, workDir, tableName string) (*Run, error) {
	bin, err := filepath.Abs(BinaryPath(buildDir, top))
	if err != nil {
		return nil, errors.Wrap(err, "resolve binary path")
	}
	if fi, err := os.Stat(bin); err != nil || fi.IsDir() {
		return nil, &MissingArtifactError{KindBinary, bin}
	}
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return nil, errors.Wrap(err, "get working directory")
		}
	}
	if tableName == "" {
		tableName = table.DefaultName
	}
	tbl := tableName
	if !filepath.IsAbs(tbl) {
		tbl = filepath.Join(workDir, tbl)
	}
	if tbl, err = filepath.Abs(tbl); err != nil {
		return nil, errors.Wrap(err, "resolve result table path")
	}

	if err := os.Remove(tbl); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "remove stale result table")
	}
	args := []string{bin}
	if code, err := t.exec(ctx, t.RunTimeout, workDir, args); err != nil {
		if code < 0 {
			return nil, errors.Wrap(err, "run simulator")
		}
		return nil, &ProcessError{Cmd: args, Code: code, Err: err}
	}
	if _, err := os.Stat(tbl); err != nil {
		return nil, &MissingArtifactError{KindTable, tbl}
	}
	return &Run{BuildDir: buildDir, Binary: bin, Table: tbl}, nil
}

// exec runs args and returns the process exit code, or -1 if it could not be
// started or was killed.
//
func (t *Toolchain) exec(ctx context.Context, timeout time.Duration, dir string, args []string) (int, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	log := ctxlog.FromContext(ctx)
	log.Info("$ "+strings.Join(args, " "), "dir", dir)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Stdout = t.Stdout
	cmd.Stderr = t.Stderr
	cmd.WaitDelay = time.Second
	start := time.Now()
	err := cmd.Run()
	if err == nil {
		log.Debug("command done", "cmd", args[0], "elapsed", time.Since(start))
		return 0, nil
	}
	if ctx.Err() != nil {
		return -1, errors.Wrapf(ctx.Err(), "%s", filepath.Base(args[0]))
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) && ee.ExitCode() > 0 {
		return ee.ExitCode(), err
	}
	return -1, err
}
