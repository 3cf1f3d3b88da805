// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"time"

	"github.com/db47h/dacbench/internal/config"
	"github.com/db47h/dacbench/internal/history"
	"github.com/db47h/dacbench/stimulus"
	"github.com/db47h/dacbench/table"
	"github.com/db47h/dacbench/tb"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSimulateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the sine sweep against the built-in behavioral DAC",
		Long: `Run the stimulus and reference model against a behavioral DAC simulated
in-process, without an external RTL toolchain, and write the result table.

Use --unobservable to emulate a backend that cannot read analog outputs: the
actual column then holds 0.0.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := a.cfg.Stimulus
			if cmd.Flags().Changed("samples") {
				s.Samples, _ = cmd.Flags().GetInt("samples")
			}
			if cmd.Flags().Changed("channels") {
				s.Channels, _ = cmd.Flags().GetInt("channels")
			}
			if cmd.Flags().Changed("workers") {
				s.Workers, _ = cmd.Flags().GetInt("workers")
			}
			unobservable, _ := cmd.Flags().GetBool("unobservable")
			out := stringFlag(cmd, "out", a.cfg.Build.Table)

			start := time.Now()
			rows, err := simulate(cmd, s, unobservable, out)
			e := history.Entry{
				Started:  start,
				Finished: time.Now(),
				Command:  "simulate",
				Stage:    "run",
				Table:    out,
				Rows:     rows,
				ExitCode: exitCode(err),
			}
			if err != nil {
				e.Error = err.Error()
			} else {
				e.Stage = "done"
			}
			a.record(ctx, e)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "OK: wrote %d rows to %s\n", rows, out)
			return err
		},
	}
	cmd.Flags().StringP("out", "o", "", "Result table path (default from config)")
	cmd.Flags().Int("samples", 0, "Samples per sine period")
	cmd.Flags().Int("channels", 0, "Number of DAC channels")
	cmd.Flags().Int("workers", 0, "Simulation worker goroutines")
	cmd.Flags().Bool("unobservable", false, "Hide analog outputs from the testbench")
	return cmd
}

func simulate(cmd *cobra.Command, s config.StimulusConfig, unobservable bool, out string) (int, error) {
	b, err := tb.New(tb.Options{
		Channels:      s.Channels,
		Bits:          s.Bits,
		VRef:          s.VRef,
		StepsPerCycle: s.StepsPerCycle,
		PeriodPS:      s.PeriodPS,
		Workers:       s.Workers,
		Unobservable:  unobservable,
	})
	if err != nil {
		return 0, err
	}
	defer b.Close()

	m, err := stimulus.New(stimulus.Params{
		Bits:        s.Bits,
		Samples:     s.Samples,
		WarmupEdges: s.WarmupEdges,
		DrainEdges:  s.DrainEdges,
		VRef:        s.VRef,
	})
	if err != nil {
		return 0, err
	}
	w, err := table.Create(out)
	if err != nil {
		return 0, err
	}
	err = m.Run(cmd.Context(), b, w)
	// the table must be flushed and closed even on failure
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return w.Len(), errors.Wrap(err, "simulate")
}
