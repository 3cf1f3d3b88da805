package tb_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/db47h/dacbench/internal/ctxlog"
	"github.com/db47h/dacbench/internal/logging"
	"github.com/db47h/dacbench/stimulus"
	"github.com/db47h/dacbench/tb"
	"github.com/stretchr/testify/require"
)

type memRecorder []stimulus.Sample

func (r *memRecorder) Record(s stimulus.Sample) error {
	*r = append(*r, s)
	return nil
}

func sweep(t *testing.T, o tb.Options, p stimulus.Params) memRecorder {
	t.Helper()
	b, err := tb.New(o)
	require.NoError(t, err)
	defer b.Close()

	m, err := stimulus.New(p)
	require.NoError(t, err)
	var rec memRecorder
	require.NoError(t, m.Run(context.Background(), b, &rec))
	return rec
}

func TestBench_tracksReference(t *testing.T) {
	o := tb.DefaultOptions()
	o.Channels, o.Workers = 3, 0
	p := stimulus.DefaultParams()
	p.Samples = 8

	rec := sweep(t, o, p)
	require.Len(t, rec, 3*8)
	for i, s := range rec {
		require.Equal(t, i/8, s.Channel, "row %d", i)
		require.True(t, s.Actual.Valid, "row %d", i)
		require.InDelta(t, s.Expected, s.Actual.Value, 1e-12, "row %d", i)
		// the first driven sample lands on the 10th edge
		require.Equal(t, int64(9+i)*2325, s.Time, "row %d", i)
	}
}

func TestBench_unobservable(t *testing.T) {
	o := tb.DefaultOptions()
	o.Channels, o.Unobservable = 2, true
	p := stimulus.DefaultParams()
	p.Samples = 4

	rec := sweep(t, o, p)
	require.Len(t, rec, 8)
	for _, s := range rec {
		require.False(t, s.Actual.Valid)
		require.Equal(t, 0.0, s.Actual.Float())
	}
}

func TestBench_widthMismatch(t *testing.T) {
	o := tb.DefaultOptions()
	o.Channels, o.Bits = 2, 12
	b, err := tb.New(o)
	require.NoError(t, err)
	defer b.Close()

	m, err := stimulus.New(stimulus.DefaultParams())
	require.NoError(t, err)
	var rec memRecorder
	err = m.Run(context.Background(), b, &rec)
	var we *stimulus.WidthError
	require.ErrorAs(t, err, &we)
	require.Equal(t, 24, we.Width)
}

func TestBench_cancel(t *testing.T) {
	b, err := tb.New(tb.DefaultOptions())
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, b.RisingEdge(ctx), context.Canceled)
}

func TestBench_traceEdges(t *testing.T) {
	o := tb.DefaultOptions()
	o.Channels = 1
	p := stimulus.DefaultParams()
	p.Samples = 4
	b, err := tb.New(o)
	require.NoError(t, err)
	defer b.Close()
	m, err := stimulus.New(p)
	require.NoError(t, err)

	var buf bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), logging.New("trace", "text", &buf))
	var rec memRecorder
	require.NoError(t, m.Run(ctx, b, &rec))

	edges := p.WarmupEdges + 4 + p.DrainEdges
	require.Equal(t, edges, strings.Count(buf.String(), "level=TRACE msg=\"rising edge\""))

	buf.Reset()
	b2, err := tb.New(o)
	require.NoError(t, err)
	defer b2.Close()
	m, err = stimulus.New(p)
	require.NoError(t, err)
	ctx = ctxlog.WithLogger(context.Background(), logging.New("debug", "text", &buf))
	require.NoError(t, m.Run(ctx, b2, &rec))
	require.NotContains(t, buf.String(), "TRACE")
}
