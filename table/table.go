// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package table writes the result table of a sweep: one CSV row per driven
// sample, in recorded order.
//
package table

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/db47h/dacbench/stimulus"
	"github.com/pkg/errors"
)

// Column names of the result table.
//
const (
	ColTime     = "time"
	ColChannel  = "active_channel"
	ColActual   = "actual_out"
	ColExpected = "expected_out"
)

// Header is the fixed header row of a result table.
//
var Header = []string{ColTime, ColChannel, ColActual, ColExpected}

// DefaultName is the file name the bench writes its table to.
//
const DefaultName = "top_dac.csv"

// A Row is one line of a result table.
//
type Row struct {
	Time     int64
	Channel  int
	Actual   float64
	Expected float64
}

// ErrOutOfOrder is returned by Writer.Record for a sample that does not come
// after the previously recorded one.
//
var ErrOutOfOrder = errors.New("sample recorded out of order")

// A Writer appends samples to a result table. It implements
// stimulus.Recorder.
//
type Writer struct {
	c    io.Closer
	w    *csv.Writer
	n    int
	last struct{ ch, idx int }
}

// Create creates or truncates the file at path and writes the table header.
//
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create result table")
	}
	w, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.c = f
	return w, nil
}

// NewWriter writes the table header to w and returns a Writer appending to it.
//
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	return &Writer{w: cw}, nil
}

// Record appends s to the table. Samples must be recorded channel-ascending,
// then sample-ascending; rows are never rewritten.
//
func (w *Writer) Record(s stimulus.Sample) error {
	if w.n > 0 && (s.Channel < w.last.ch || s.Channel == w.last.ch && s.Index <= w.last.idx) {
		return errors.Wrapf(ErrOutOfOrder, "channel %d sample %d after channel %d sample %d",
			s.Channel, s.Index, w.last.ch, w.last.idx)
	}
	rec := []string{
		strconv.FormatInt(s.Time, 10),
		strconv.Itoa(s.Channel),
		FormatFloat(s.Actual.Float()),
		FormatFloat(s.Expected),
	}
	if err := w.w.Write(rec); err != nil {
		return errors.Wrap(err, "write row")
	}
	w.n++
	w.last.ch, w.last.idx = s.Channel, s.Index
	return nil
}

// Len returns the number of rows recorded so far.
//
func (w *Writer) Len() int { return w.n }

// Close flushes buffered rows and closes the underlying file, if any.
//
func (w *Writer) Close() error {
	w.w.Flush()
	err := w.w.Error()
	if w.c != nil {
		if cerr := w.c.Close(); err == nil {
			err = cerr
		}
		w.c = nil
	}
	return errors.Wrap(err, "close result table")
}

// FormatFloat formats v in its shortest representation, always with a decimal
// point or exponent so that the column reads as floating point.
//
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}
