// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package compare loads a result table and renders the actual and expected
// traces side by side. It does not judge them.
//
package compare

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/db47h/dacbench/table"
	"github.com/pkg/errors"
)

// A MissingColumnError is returned when a result table lacks a required
// column.
//
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return "column " + strconv.Quote(e.Column) + " not found (requires " + strings.Join(table.Header, ", ") + ")"
}

// Load reads the result table at path.
//
func Load(path string) ([]table.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := Read(f)
	return rows, errors.Wrap(err, path)
}

// Read reads a result table from r. Rows are returned in file order. Extra
// columns are ignored.
//
func Read(r io.Reader) ([]table.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, &MissingColumnError{table.ColTime}
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	col := make(map[string]int, len(hdr))
	for i, h := range hdr {
		col[strings.TrimSpace(h)] = i
	}
	idx := make([]int, len(table.Header))
	for i, name := range table.Header {
		j, ok := col[name]
		if !ok {
			return nil, &MissingColumnError{name}
		}
		idx[i] = j
	}

	var rows []table.Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		var f [4]string
		for i, j := range idx {
			if j >= len(rec) {
				return nil, errors.Errorf("line %d: missing %s value", line, table.Header[i])
			}
			f[i] = strings.TrimSpace(rec[j])
		}
		var row table.Row
		if row.Time, err = strconv.ParseInt(f[0], 10, 64); err != nil {
			return nil, errors.Wrapf(err, "line %d: %s", line, table.ColTime)
		}
		if row.Channel, err = strconv.Atoi(f[1]); err != nil {
			return nil, errors.Wrapf(err, "line %d: %s", line, table.ColChannel)
		}
		if row.Actual, err = strconv.ParseFloat(f[2], 64); err != nil {
			return nil, errors.Wrapf(err, "line %d: %s", line, table.ColActual)
		}
		if row.Expected, err = strconv.ParseFloat(f[3], 64); err != nil {
			return nil, errors.Wrapf(err, "line %d: %s", line, table.ColExpected)
		}
		rows = append(rows, row)
	}
}
