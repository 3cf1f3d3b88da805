// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package runner

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// PreviewRows is the default number of rows shown by Preview.
//
const PreviewRows = 10

// Preview echoes the header and up to maxRows rows of the table at path to w.
//
func Preview(w io.Writer, path string, maxRows int) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "preview")
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	for i := 0; i <= maxRows; i++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "preview")
		}
		if _, err := io.WriteString(w, strings.Join(rec, ",")+"\n"); err != nil {
			return err
		}
	}
	return nil
}
