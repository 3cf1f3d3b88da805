package compare_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/db47h/dacbench/compare"
	"github.com/db47h/dacbench/table"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

const good = `time, active_channel, actual_out, expected_out
23250,0,0.0,0.0
25575,0,0.999969482421875,0.999969482421875
27900,1,0.0,-0.999969482421875
`

func TestRead(t *testing.T) {
	rows, err := compare.Read(strings.NewReader(good))
	if err != nil {
		t.Fatal(err)
	}
	want := []table.Row{
		{Time: 23250, Channel: 0, Actual: 0, Expected: 0},
		{Time: 25575, Channel: 0, Actual: 0.999969482421875, Expected: 0.999969482421875},
		{Time: 27900, Channel: 1, Actual: 0, Expected: -0.999969482421875},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_missingColumn(t *testing.T) {
	td := []struct {
		data string
		col  string
	}{
		{"time,active_channel,actual_out\n1,0,0.0\n", table.ColExpected},
		{"time_ps,aout_active,expected_out\n", table.ColTime},
		{"", table.ColTime},
	}
	for _, d := range td {
		rows, err := compare.Read(strings.NewReader(d.data))
		var mc *compare.MissingColumnError
		if !errors.As(err, &mc) {
			t.Errorf("%q: expected MissingColumnError, got %v", d.data, err)
			continue
		}
		if mc.Column != d.col {
			t.Errorf("%q: missing column %q, want %q", d.data, mc.Column, d.col)
		}
		if rows != nil {
			t.Errorf("%q: rows returned alongside the error", d.data)
		}
	}
}

func TestRead_badValues(t *testing.T) {
	for _, data := range []string{
		"time,active_channel,actual_out,expected_out\n1.5,0,0,0\n",
		"time,active_channel,actual_out,expected_out\n1,0,x,0\n",
		"time,active_channel,actual_out,expected_out\n1,0\n",
	} {
		if _, err := compare.Read(strings.NewReader(data)); err == nil {
			t.Errorf("%q: expected error", data)
		}
	}
}

func TestLoad_missingExpected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "top_dac.csv")
	if err := os.WriteFile(path, []byte("time,active_channel,actual_out\n1,0,0.0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := compare.Load(path)
	var mc *compare.MissingColumnError
	if !errors.As(err, &mc) || mc.Column != "expected_out" {
		t.Fatalf("expected missing expected_out, got %v", err)
	}
	if !strings.Contains(err.Error(), `"expected_out"`) {
		t.Fatalf("error does not name the column: %v", err)
	}

	_, err = compare.Load(filepath.Join(dir, "nope.csv"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRender(t *testing.T) {
	rows, err := compare.Read(strings.NewReader(good))
	if err != nil {
		t.Fatal(err)
	}
	v := compare.Render(rows)
	if v.XMin != 23250 || v.XMax != 27900 {
		t.Fatalf("unexpected x range %v..%v", v.XMin, v.XMax)
	}
	if len(v.Actual.Points) != 3 || len(v.Expected.Points) != 3 {
		t.Fatal("wrong number of points")
	}
	for i := range v.Actual.Points {
		if v.Actual.Points[i].X != v.Expected.Points[i].X {
			t.Fatalf("point %d: views not time aligned", i)
		}
	}
	if v.Expected.YMin != -0.999969482421875 || v.Actual.YMin != 0 {
		t.Fatalf("unexpected y ranges %+v %+v", v.Actual, v.Expected)
	}
	if got := v.Expected.Polyline(v.XMin, v.XMax, 100, 10); got != "0.00,5.00 50.00,0.00 100.00,10.00" {
		t.Fatalf("unexpected polyline %q", got)
	}

	var buf bytes.Buffer
	if err := compare.WriteHTML(&buf, v); err != nil {
		t.Fatal(err)
	}
	html := buf.String()
	if strings.Count(html, "<polyline") != 2 || !strings.Contains(html, "DAC Output Comparison") {
		t.Fatalf("unexpected HTML output:\n%s", html)
	}
	buf.Reset()
	if err := compare.WriteText(&buf, v); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "DAC Output Comparison: 3 samples") {
		t.Fatalf("unexpected text output:\n%s", buf.String())
	}
}

func TestRender_empty(t *testing.T) {
	v := compare.Render(nil)
	var buf bytes.Buffer
	if err := compare.WriteHTML(&buf, v); err != nil {
		t.Fatal(err)
	}
	if err := compare.WriteText(&buf, v); err != nil {
		t.Fatal(err)
	}
}
