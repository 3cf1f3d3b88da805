// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package compare

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/db47h/dacbench/table"
	"github.com/pkg/errors"
)

//go:embed templates/*.tmpl
var templates embed.FS

// A Point is a sample of a trace.
//
type Point struct {
	X float64 // time in ps
	Y float64
}

// A View is one trace with its own Y range.
//
type View struct {
	Title  string
	Series string
	YLabel string
	Color  string
	Points []Point
	YMin   float64
	YMax   float64
}

// Views holds the actual and expected traces on a shared time axis.
//
type Views struct {
	Title      string
	XLabel     string
	XMin, XMax float64
	Actual     View
	Expected   View
}

// Render builds the time aligned actual and expected views of rows.
//
func Render(rows []table.Row) Views {
	v := Views{
		Title:  "DAC Output Comparison",
		XLabel: "Time (ps)",
		Actual: View{
			Title:  "Actual DAC Output (" + table.ColActual + ") vs. Time",
			Series: table.ColActual,
			YLabel: "Actual Out (V)",
			Color:  "blue",
			Points: make([]Point, len(rows)),
		},
		Expected: View{
			Title:  "Expected DAC Output (" + table.ColExpected + ") vs. Time",
			Series: table.ColExpected,
			YLabel: "Expected Out (V)",
			Color:  "green",
			Points: make([]Point, len(rows)),
		},
	}
	if len(rows) == 0 {
		return v
	}
	v.XMin, v.XMax = math.Inf(1), math.Inf(-1)
	for i, r := range rows {
		x := float64(r.Time)
		v.XMin, v.XMax = math.Min(v.XMin, x), math.Max(v.XMax, x)
		v.Actual.Points[i] = Point{x, r.Actual}
		v.Expected.Points[i] = Point{x, r.Expected}
	}
	v.Actual.yRange()
	v.Expected.yRange()
	return v
}

func (v *View) yRange() {
	v.YMin, v.YMax = math.Inf(1), math.Inf(-1)
	for _, p := range v.Points {
		v.YMin, v.YMax = math.Min(v.YMin, p.Y), math.Max(v.YMax, p.Y)
	}
}

// Polyline returns the SVG polyline points of v scaled to a w×h plot area,
// with the x axis spanning [xmin, xmax].
//
func (v *View) Polyline(xmin, xmax, w, h float64) string {
	dx, dy := xmax-xmin, v.YMax-v.YMin
	if dx == 0 {
		dx = 1
	}
	if dy == 0 {
		dy = 1
	}
	var sb strings.Builder
	for i, p := range v.Points {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatFloat((p.X-xmin)/dx*w, 'f', 2, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(h-(p.Y-v.YMin)/dy*h, 'f', 2, 64))
	}
	return sb.String()
}

// Chart geometry of WriteHTML.
//
const (
	chartWidth  = 1000
	chartHeight = 320
)

type chart struct {
	View
	Points string
	Width  int
	Height int
}

// WriteHTML writes a standalone HTML page with both views as stacked SVG
// charts sharing the time axis.
//
func WriteHTML(w io.Writer, v Views) error {
	tmplBytes, err := templates.ReadFile("templates/chart.html.tmpl")
	if err != nil {
		return errors.Wrap(err, "read HTML template")
	}
	tmpl, err := template.New("chart").Funcs(template.FuncMap{"num": formatNum}).Parse(string(tmplBytes))
	if err != nil {
		return errors.Wrap(err, "parse HTML template")
	}
	data := struct {
		Views
		Charts []chart
	}{Views: v}
	for _, cv := range []View{v.Actual, v.Expected} {
		data.Charts = append(data.Charts, chart{
			View:   cv,
			Points: cv.Polyline(v.XMin, v.XMax, chartWidth, chartHeight),
			Width:  chartWidth,
			Height: chartHeight,
		})
	}
	return errors.Wrap(tmpl.Execute(w, data), "execute HTML template")
}

func formatNum(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }

// WriteText writes a short text summary of both views.
//
func WriteText(w io.Writer, v Views) error {
	n := len(v.Actual.Points)
	if _, err := fmt.Fprintf(w, "%s: %d samples, %s %s..%s\n", v.Title, n, v.XLabel, formatNum(v.XMin), formatNum(v.XMax)); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	for _, cv := range []View{v.Actual, v.Expected} {
		if _, err := fmt.Fprintf(w, "  %-14s min %-12s max %s\n", cv.Series, formatNum(cv.YMin), formatNum(cv.YMax)); err != nil {
			return err
		}
	}
	return nil
}
