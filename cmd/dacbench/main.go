// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command dacbench validates a DAC design: it exports the memory images of a
// control program, builds and runs the RTL testbench and renders the recorded
// actual and expected outputs.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/db47h/dacbench/internal/config"
	"github.com/db47h/dacbench/internal/ctxlog"
	"github.com/db47h/dacbench/internal/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

// app is the state shared by subcommands once the root command has run.
type app struct {
	cfg *config.Config
	log *slog.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line args and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.Message != "" {
			fmt.Fprintln(stderr, ee.Message)
		}
		return ee.Code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitCode(err)
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "dacbench",
		Short: "DAC validation bench",
		Long: `dacbench validates a digital-to-analog converter design.

It manages the device configuration a control program is compiled against,
exports the program memory images, builds and runs the RTL testbench with
Verilator and renders the recorded actual and expected DAC outputs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return errors.Wrap(err, "load config")
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Logging.Format, _ = cmd.Flags().GetString("log-format")
			}
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "invalid config")
			}
			a.cfg = cfg
			a.log = logging.New(cfg.Logging.Level, cfg.Logging.Format, logOut)
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), a.log))
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Configuration file (default ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(a),
		newSimulateCmd(a),
		newExportCmd(a),
		newVisualizeCmd(a),
		newConfigCmd(a),
		newHistoryCmd(a),
	)
	return rootCmd
}
