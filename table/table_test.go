package table_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/db47h/dacbench/stimulus"
	"github.com/db47h/dacbench/table"
	"github.com/pkg/errors"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := table.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	samples := []stimulus.Sample{
		{Time: 0, Channel: 0, Index: 0, Actual: stimulus.Reading{Value: 0.5, Valid: true}, Expected: 0.5},
		{Time: 2325, Channel: 0, Index: 1, Expected: -1},
		{Time: 4650, Channel: 1, Index: 0, Actual: stimulus.Reading{Value: 1e-05, Valid: true}, Expected: 0},
	}
	for _, s := range samples {
		if err := w.Record(s); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	want := "time,active_channel,actual_out,expected_out\n" +
		"0,0,0.5,0.5\n" +
		"2325,0,0.0,-1.0\n" +
		"4650,1,1e-05,0.0\n"
	if got := buf.String(); got != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, got)
	}
	if w.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", w.Len())
	}
}

func TestWriter_order(t *testing.T) {
	td := []struct {
		name string
		ch   int
		idx  int
	}{
		{"same sample", 1, 3},
		{"earlier sample", 1, 2},
		{"earlier channel", 0, 9},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := table.NewWriter(&buf)
			if err != nil {
				t.Fatal(err)
			}
			if err := w.Record(stimulus.Sample{Channel: 1, Index: 3}); err != nil {
				t.Fatal(err)
			}
			err = w.Record(stimulus.Sample{Channel: d.ch, Index: d.idx})
			if errors.Cause(err) != table.ErrOutOfOrder {
				t.Fatalf("expected ErrOutOfOrder, got %v", err)
			}
			if w.Len() != 1 {
				t.Fatalf("rejected row was counted")
			}
		})
	}
}

func TestCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), table.DefaultName)
	w, err := table.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Record(stimulus.Sample{Channel: 0, Index: 0, Expected: 1}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "time,active_channel,actual_out,expected_out\n0,0,0.0,1.0\n" {
		t.Fatalf("unexpected content %q", b)
	}

	if _, err := table.Create(filepath.Join(t.TempDir(), "missing", "t.csv")); err == nil {
		t.Fatal("expected error for a missing directory")
	}
}

func TestFormatFloat(t *testing.T) {
	td := map[float64]string{
		0:                 "0.0",
		1:                 "1.0",
		-1:                "-1.0",
		0.999969482421875: "0.999969482421875",
		1e21:              "1e+21",
	}
	for v, want := range td {
		if got := table.FormatFloat(v); got != want {
			t.Errorf("FormatFloat(%v) = %q, want %q", v, got, want)
		}
	}
}
