// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/db47h/dacbench/memexport"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export program memory images",
		Long: `Export the PMEM, DMEM (when present), WMEM and per-channel SGMEM images of a
program as hex text files loadable by the testbench.

Without --channels, SGMEM images are written for every channel of the device
configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			image := stringFlag(cmd, "image", a.cfg.Memory.Image)
			if image == "" {
				return errors.New("no memory image: set memory.image or use --image")
			}
			prog, err := loadProgram(image)
			if err != nil {
				return err
			}
			store, err := openDevice(stringFlag(cmd, "device", a.cfg.Device))
			if err != nil {
				return err
			}
			var e memexport.Exporter
			if store != nil {
				e.Channels = store
			}
			dir, arts, err := e.ExportAll(cmd.Context(), prog, stringFlag(cmd, "mem-dir", a.cfg.Memory.Dir), channelsFlag(cmd, a.cfg.Memory.Channels))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, dir)
			for _, art := range arts {
				name := art.Region.String()
				if art.Region == memexport.SGMEM {
					name = fmt.Sprintf("%s[%d]", name, art.Channel)
				}
				fmt.Fprintf(out, "  %-10s %s\n", name, strings.Join(art.Paths, " "))
			}
			return nil
		},
	}
	cmd.Flags().String("device", "", "Device configuration file (JSON)")
	cmd.Flags().String("image", "", "Memory image file (YAML)")
	cmd.Flags().String("mem-dir", "", "Output directory")
	cmd.Flags().IntSlice("channels", nil, "Signal generator channels to export")
	return cmd
}
