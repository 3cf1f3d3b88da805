// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/db47h/dacbench/compare"
	"github.com/db47h/dacbench/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newVisualizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visualize [table]",
		Short: "Render the actual and expected DAC outputs",
		Long: `Load a result table (default ./` + table.DefaultName + `) and render the actual and
expected outputs as two time aligned charts in an HTML page.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := table.DefaultName
			if len(args) > 0 {
				path = args[0]
			}
			rows, err := compare.Load(path)
			if err != nil {
				var mc *compare.MissingColumnError
				switch {
				case os.IsNotExist(err):
					return &exitError{Code: exitFailure, Message: fmt.Sprintf("Error: The file '%s' was not found.", path)}
				case errors.As(err, &mc):
					return &exitError{Code: exitFailure, Message: fmt.Sprintf("Error: Column '%s' not found in the CSV file. Please check the column names (requires '%s', '%s', '%s', '%s').",
						mc.Column, table.ColTime, table.ColChannel, table.ColActual, table.ColExpected)}
				}
				return err
			}
			a.log.Debug("result table loaded", "path", path, "rows", len(rows))
			v := compare.Render(rows)
			out := cmd.OutOrStdout()

			if text, _ := cmd.Flags().GetBool("text"); text {
				return compare.WriteText(out, v)
			}

			outPath, _ := cmd.Flags().GetString("output")
			if outPath == "" {
				outPath = filepath.Join(os.TempDir(), "dacbench-"+filepath.Base(path)+".html")
			}
			f, err := os.Create(outPath)
			if err != nil {
				return errors.Wrap(err, "create HTML output")
			}
			err = compare.WriteHTML(f, v)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Successfully loaded '%s'. Charts written to %s\n", path, outPath)

			if noOpen, _ := cmd.Flags().GetBool("no-open"); !noOpen {
				if err := compare.OpenBrowser(outPath); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, outPath)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "HTML output path (default: temporary file)")
	cmd.Flags().Bool("no-open", false, "Don't open the browser after generating HTML")
	cmd.Flags().Bool("text", false, "Print a text summary instead of HTML charts")
	return cmd
}
