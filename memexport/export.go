// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package memexport writes the memory regions of a compiled control program as
// hex images that the simulated hardware loads at startup.
//
// Compiled programs come in two flavors: those whose export routines write
// their destination themselves and those that only emit the image text. The
// exporter branches on the Capability returned for each region and captures
// the text of the latter into the destination file.
//
package memexport

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/db47h/dacbench/internal/ctxlog"
	"github.com/pkg/errors"
)

// Region is a memory region kind.
//
type Region int

// Memory regions.
//
const (
	PMEM  Region = iota // instructions
	DMEM                // data
	WMEM                // waveforms
	SGMEM               // per-channel signal generator memory
)

var regionNames = [...]string{"pmem", "dmem", "wmem", "sgmem"}

func (r Region) String() string {
	if r < 0 || int(r) >= len(regionNames) {
		return "region(" + strconv.Itoa(int(r)) + ")"
	}
	return regionNames[r]
}

// Image file names.
//
const (
	PMEMName    = "pmem.mem"
	DMEMName    = "dmem.mem"
	WMEMStem    = "wmem"
	SGMEMPrefix = "sgmem_ch"
	Ext         = ".mem"
)

// An Artifact is a region written to disk.
//
type Artifact struct {
	Region  Region
	Channel int // SGMEM only
	Paths   []string
}

// An IOError is returned when an export fails to produce its image.
//
type IOError struct {
	Region Region
	Path   string
	Err    error
}

func (e *IOError) Error() string {
	return "export " + e.Region.String() + " to " + e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
//
func (e *IOError) Unwrap() error { return e.Err }

// Cause returns the underlying error.
//
func (e *IOError) Cause() error { return e.Err }

// A ChannelCounter reports the number of channels of the current device
// configuration. *devcfg.Store implements it.
//
type ChannelCounter interface {
	NumChannels() int
}

// An Exporter writes program memory images.
//
type Exporter struct {
	// Channels provides the default SGMEM channel list of ExportAll. If nil,
	// no SGMEM image is written unless channels are given explicitly.
	Channels ChannelCounter
}

// ExportRegion exports one region of prog into dir. ch is the channel index for
// SGMEM and ignored otherwise. Images of the same region left in dir by a
// previous export are removed first.
//
func (e *Exporter) ExportRegion(ctx context.Context, prog Program, r Region, ch int, dir string) (Artifact, error) {
	a := Artifact{Region: r, Channel: ch}
	var (
		c          Capability
		own, text  string // destinations for each convention
		prefixBase bool   // own is a file name prefix
	)
	switch r {
	case PMEM:
		c = prog.PMEM()
		own = filepath.Join(dir, PMEMName)
		text = own
	case DMEM:
		if p, ok := prog.(DMEMProgram); ok {
			c = p.DMEM()
		}
		own = filepath.Join(dir, DMEMName)
		text = own
	case WMEM:
		c = prog.WMEM()
		own = filepath.Join(dir, WMEMStem)
		text = own + Ext
		prefixBase = true
	case SGMEM:
		if ch < 0 {
			return a, errors.Errorf("invalid channel index %d", ch)
		}
		c = prog.SGMEM(ch)
		own = filepath.Join(dir, SGMEMPrefix+strconv.Itoa(ch))
		text = own + Ext
		prefixBase = true
	default:
		return a, errors.Errorf("unknown region %v", r)
	}

	log := ctxlog.FromContext(ctx)
	switch c.conv {
	case WritesOwnFile:
		if err := os.MkdirAll(filepath.Dir(own), 0755); err != nil {
			return a, &IOError{r, own, err}
		}
		if err := clearStale(own, prefixBase); err != nil {
			return a, &IOError{r, own, err}
		}
		if err := c.write(own); err != nil {
			return a, &IOError{r, own, err}
		}
		if !prefixBase {
			a.Paths = []string{own}
			break
		}
		paths, err := prefixed(own)
		if err != nil {
			return a, &IOError{r, own, err}
		}
		a.Paths = paths
	case EmitsText:
		var buf bytes.Buffer
		if err := c.emit(&buf); err != nil {
			return a, &IOError{r, text, err}
		}
		if err := os.MkdirAll(filepath.Dir(text), 0755); err != nil {
			return a, &IOError{r, text, err}
		}
		if err := clearStale(own, prefixBase); err != nil {
			return a, &IOError{r, text, err}
		}
		if err := os.WriteFile(text, buf.Bytes(), 0644); err != nil {
			return a, &IOError{r, text, err}
		}
		a.Paths = []string{text}
	default:
		return a, errors.Wrap(ErrCapabilityAbsent, r.String())
	}

	for _, p := range a.Paths {
		if _, err := os.Stat(p); err != nil {
			return a, &IOError{r, p, err}
		}
	}
	if len(a.Paths) == 0 {
		return a, &IOError{r, own, errors.New("no image written")}
	}
	log.Debug("exported", "region", r, "channel", ch, "convention", c.conv, "paths", a.Paths)
	return a, nil
}

// clearStale removes the images a previous export left at own, or under the
// own prefix if prefix is set.
//
func clearStale(own string, prefix bool) error {
	paths := []string{own}
	if prefix {
		var err error
		if paths, err = prefixed(own); err != nil {
			return err
		}
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// prefixed returns the files of dir whose name is prefix followed by a non
// digit, so that sgmem_ch1 does not match sgmem_ch10.mem.
//
func prefixed(prefix string) ([]string, error) {
	dir, base := filepath.Split(prefix)
	if dir == "" {
		dir = "."
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range ents {
		n := e.Name()
		if e.IsDir() || !strings.HasPrefix(n, base) {
			continue
		}
		if rest := n[len(base):]; rest != "" && rest[0] >= '0' && rest[0] <= '9' {
			continue
		}
		paths = append(paths, filepath.Join(dir, n))
	}
	return paths, nil
}

// ExportAll creates dir and exports PMEM, DMEM if supported, WMEM, then SGMEM
// for each of the given channels. A nil channel list selects every channel of
// the device configuration. It returns the absolute output directory.
//
// ExportAll is not atomic: the first error aborts the remaining exports and
// leaves the images written so far in place.
//
func (e *Exporter) ExportAll(ctx context.Context, prog Program, dir string, channels []int) (string, []Artifact, error) {
	log := ctxlog.FromContext(ctx)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, errors.Wrap(err, "create output directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, errors.Wrap(err, "resolve output directory")
	}
	if channels == nil && e.Channels != nil {
		n := e.Channels.NumChannels()
		channels = make([]int, n)
		for i := range channels {
			channels[i] = i
		}
	}

	var arts []Artifact
	do := func(r Region, ch int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		a, err := e.ExportRegion(ctx, prog, r, ch, abs)
		if err != nil {
			return err
		}
		arts = append(arts, a)
		return nil
	}

	if err := do(PMEM, 0); err != nil {
		return abs, arts, err
	}
	if err := do(DMEM, 0); err != nil {
		if errors.Cause(err) != ErrCapabilityAbsent {
			return abs, arts, err
		}
		log.Info("program has no data memory export, skipped")
	}
	if err := do(WMEM, 0); err != nil {
		return abs, arts, err
	}
	for _, ch := range channels {
		if err := do(SGMEM, ch); err != nil {
			return abs, arts, err
		}
	}
	log.Info("memory images exported", "dir", abs, "artifacts", len(arts), "channels", len(channels))
	return abs, arts, nil
}
