// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package devcfg manages the device configuration a control program is
// compiled against: loading, in-memory edits, canonical commit and a version
// tolerant view of the compiled representation.
//
package devcfg

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Compiled is the opaque result of compiling a device configuration.
//
type Compiled any

// A Compiler builds the compiled representation of the configuration file at
// path. It stands for the external program compiler.
//
type Compiler interface {
	Compile(path string) (Compiled, error)
}

// CompilerFunc adapts a function to the Compiler interface.
//
type CompilerFunc func(path string) (Compiled, error)

// Compile calls f(path).
//
func (f CompilerFunc) Compile(path string) (Compiled, error) { return f(path) }

// A LoadError is returned when a configuration file is missing, malformed or
// rejected by the compiler.
//
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return "load device config " + e.Path + ": " + e.Err.Error() }

// Unwrap returns the underlying error.
//
func (e *LoadError) Unwrap() error { return e.Err }

// Cause returns the underlying error.
//
func (e *LoadError) Cause() error { return e.Err }

// A Store owns a device configuration file.
//
// The committed snapshot is never modified in place: the first edit clones it
// into a pending working copy which Commit writes out and Rollback discards.
//
type Store struct {
	path      string
	compiler  Compiler
	accessors []Accessor

	raw      Config // last loaded snapshot
	pending  Config // working copy, nil when clean
	compiled Compiled
}

// Load loads the configuration file at path and compiles it with compiler.
// A nil compiler selects PassthroughCompiler.
//
func Load(path string, compiler Compiler) (*Store, error) {
	if compiler == nil {
		compiler = PassthroughCompiler{}
	}
	s := &Store{path: path, compiler: compiler, accessors: DefaultAccessors}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return &LoadError{s.path, err}
	}
	raw, err := parse(data)
	if err != nil {
		return &LoadError{s.path, errors.Wrap(err, "parse")}
	}
	compiled, err := s.compiler.Compile(s.path)
	if err != nil {
		return &LoadError{s.path, errors.Wrap(err, "compile")}
	}
	s.raw, s.compiled, s.pending = raw, compiled, nil
	return nil
}

// Path returns the path of the backing file.
//
func (s *Store) Path() string { return s.path }

// SetAccessors replaces the ordered list of strategies used by CompiledMap.
//
func (s *Store) SetAccessors(a ...Accessor) { s.accessors = a }

// Compiled returns the compiled representation of the last loaded file.
//
func (s *Store) Compiled() Compiled { return s.compiled }

// CompiledMap returns the mapping held by the compiled representation, using
// the first accessor that yields a non-nil result, or a copy of the last loaded
// snapshot if none does.
//
func (s *Store) CompiledMap() map[string]any {
	for _, a := range s.accessors {
		if m := a(s.compiled); m != nil {
			return m
		}
	}
	return s.raw.Clone()
}

// Config returns a copy of the current configuration, including pending edits.
//
func (s *Store) Config() Config {
	if s.pending != nil {
		return s.pending.Clone()
	}
	return s.raw.Clone()
}

// Dirty reports whether there are uncommitted edits.
//
func (s *Store) Dirty() bool { return s.pending != nil }

// NumChannels returns the number of channel descriptors of the last loaded
// snapshot.
//
func (s *Store) NumChannels() int { return len(s.raw.Channels()) }

func (s *Store) edit() Config {
	if s.pending == nil {
		s.pending = s.raw.Clone()
	}
	return s.pending
}

// SetChannelMixer sets the mixer frequency of channel ch in MHz, padding the
// channel list with empty descriptors as needed.
//
func (s *Store) SetChannelMixer(ch int, mhz float64) error {
	if ch < 0 {
		return errors.Errorf("invalid channel index %d", ch)
	}
	c := s.edit()
	gens, _ := c[KeyGens].([]any)
	for len(gens) <= ch {
		gens = append(gens, map[string]any{})
	}
	g, ok := gens[ch].(map[string]any)
	if !ok {
		return errors.Errorf("channel descriptor %d is not an object", ch)
	}
	g[KeyMixer] = mhz
	c[KeyGens] = gens
	return nil
}

// SetTileRate sets the sample rate in Msps of the given tile, preserving the
// other fields of its descriptor.
//
func (s *Store) SetTileRate(kind TileKind, tile int, msps float64) error {
	if kind != KindDAC && kind != KindADC {
		return errors.Errorf("invalid tile kind %q", kind)
	}
	c := s.edit()
	m, err := subMap(c, KeyRF, KeyTiles, string(kind))
	if err != nil {
		return err
	}
	key := strconv.Itoa(tile)
	d := make(map[string]any)
	if old, ok := m[key].(map[string]any); ok {
		for k, v := range old {
			d[k] = v
		}
	}
	d[KeyRate] = msps
	m[key] = d
	return nil
}

// Set sets the field at the given key path, creating intermediate objects.
// value may hold maps with non-string keys; they are stringified on commit.
//
func (s *Store) Set(value any, path ...string) error {
	if len(path) == 0 {
		return errors.New("empty key path")
	}
	m, err := subMap(s.edit(), path[:len(path)-1]...)
	if err != nil {
		return err
	}
	m[path[len(path)-1]] = value
	return nil
}

func subMap(m map[string]any, path ...string) (map[string]any, error) {
	for _, k := range path {
		switch v := m[k].(type) {
		case map[string]any:
			m = v
		case nil:
			n := make(map[string]any)
			m[k] = n
			m = n
		default:
			return nil, errors.Errorf("field %q is not an object", k)
		}
	}
	return m, nil
}

// Commit writes the configuration in canonical form to the backing file, then
// reloads and recompiles it. On return the in-memory and on-disk states are
// identical. On failure, pending edits are kept.
//
func (s *Store) Commit() error {
	data, err := s.Config().Marshal()
	if err != nil {
		return errors.Wrap(err, "encode device config")
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return errors.Wrap(err, "write device config")
	}
	return s.reload()
}

// Rollback discards pending edits by reloading the backing file.
//
func (s *Store) Rollback() error { return s.reload() }

// PassthroughCompiler compiles a configuration file to its parsed mapping,
// exposed through AsMap. It stands in when no external compiler is available.
//
type PassthroughCompiler struct{}

// Compile parses the file at path.
//
func (PassthroughCompiler) Compile(path string) (Compiled, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return passthrough(m), nil
}

type passthrough map[string]any

func (p passthrough) AsMap() map[string]any { return Config(p).Clone() }
