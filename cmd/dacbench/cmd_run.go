// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"time"

	"github.com/db47h/dacbench/internal/history"
	"github.com/db47h/dacbench/pipeline"
	"github.com/db47h/dacbench/runner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [sources...]",
		Short: "Export memory images, build and run the testbench",
		Long: `Run the full validation pipeline: commit the device configuration, export
the program memory images, build the testbench with Verilator, run it and
preview the leading rows of the result table it writes.

Exit codes: 3 if the simulator binary is missing after the build, 4 if the
result table is missing after the run, the external process exit code if
the build or the simulator fails, 1 otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			ctx := cmd.Context()
			b := cfg.Build
			sources := b.Sources
			if len(args) > 0 {
				sources = args
			}

			store, err := openDevice(stringFlag(cmd, "device", cfg.Device))
			if err != nil {
				return err
			}
			prog, err := loadProgram(stringFlag(cmd, "image", cfg.Memory.Image))
			if err != nil {
				return err
			}
			tc := &runner.Toolchain{
				Verilator:    stringFlag(cmd, "verilator", b.Verilator),
				Flags:        b.Flags,
				Stdout:       cmd.OutOrStdout(),
				Stderr:       cmd.ErrOrStderr(),
				BuildTimeout: b.BuildTimeout,
				RunTimeout:   b.RunTimeout,
			}
			p := &pipeline.Pipeline{
				Config:      store,
				Program:     prog,
				MemDir:      stringFlag(cmd, "mem-dir", cfg.Memory.Dir),
				Channels:    channelsFlag(cmd, cfg.Memory.Channels),
				Toolchain:   tc,
				Sources:     sources,
				Top:         stringFlag(cmd, "top", b.Top),
				BuildDir:    stringFlag(cmd, "build-dir", b.Dir),
				Table:       b.Table,
				PreviewRows: b.PreviewRows,
			}
			if noPreview, _ := cmd.Flags().GetBool("no-preview"); !noPreview {
				p.Preview = cmd.OutOrStdout()
			}

			start := time.Now()
			res, err := p.Execute(ctx)
			e := history.Entry{
				Started:  start,
				Finished: time.Now(),
				Command:  "run",
				Stage:    string(res.Stage),
				ExitCode: exitCode(err),
			}
			if res.Run != nil {
				e.Table = res.Run.Table
			}
			if err != nil {
				e.Error = err.Error()
			}
			a.record(ctx, e)

			var me *runner.MissingArtifactError
			if errors.As(err, &me) && me.Kind == runner.KindTable {
				fmt.Fprintln(cmd.ErrOrStderr(), "tip: confirm the file name the testbench opens and the working directory it ran from.")
			}
			return err
		},
	}

	cmd.Flags().String("device", "", "Device configuration file (JSON)")
	cmd.Flags().String("image", "", "Memory image file (YAML) to export")
	cmd.Flags().String("mem-dir", "", "Memory image output directory")
	cmd.Flags().IntSlice("channels", nil, "Signal generator channels to export (default: all configured)")
	cmd.Flags().String("verilator", "", "Verilator executable (default: from PATH)")
	cmd.Flags().String("top", "", "Testbench top module")
	cmd.Flags().String("build-dir", "", "Build directory")
	cmd.Flags().Bool("no-preview", false, "Do not echo the leading result rows")
	return cmd
}
