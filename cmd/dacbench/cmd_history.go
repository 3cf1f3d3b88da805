// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/db47h/dacbench/internal/history"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.History.Path == "" {
				return errors.New("run history is disabled: set history.path")
			}
			n, _ := cmd.Flags().GetInt("limit")
			s, err := history.Open(cmd.Context(), a.cfg.History.Path)
			if err != nil {
				return err
			}
			defer s.Close()
			list, err := s.List(cmd.Context(), n)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tCOMMAND\tSTAGE\tEXIT\tTABLE")
			for _, e := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
					e.ID, e.Started.Local().Format(time.DateTime),
					e.Finished.Sub(e.Started).Round(time.Millisecond),
					e.Command, e.Stage, e.ExitCode, e.Table)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of runs to show (0 for all)")
	return cmd
}
