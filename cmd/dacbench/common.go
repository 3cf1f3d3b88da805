// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"context"

	"github.com/db47h/dacbench/devcfg"
	"github.com/db47h/dacbench/internal/history"
	"github.com/db47h/dacbench/memexport"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// stringFlag returns the value of flag name if set on the command line, def
// otherwise.
func stringFlag(cmd *cobra.Command, name, def string) string {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return def
}

// openDevice loads the device configuration at path. It returns nil if path is
// empty.
func openDevice(path string) (*devcfg.Store, error) {
	if path == "" {
		return nil, nil
	}
	return devcfg.Load(path, nil)
}

// loadProgram loads the memory image at path. It returns nil if path is empty.
func loadProgram(path string) (memexport.Program, error) {
	if path == "" {
		return nil, nil
	}
	return memexport.LoadImage(path)
}

// channelsFlag returns the --channels flag value, falling back to def. A nil
// result means every configured channel.
func channelsFlag(cmd *cobra.Command, def []int) []int {
	if cmd.Flags().Changed("channels") {
		v, _ := cmd.Flags().GetIntSlice("channels")
		return v
	}
	if len(def) == 0 {
		return nil
	}
	return def
}

// record appends e to the run archive if one is configured. Failures are
// logged, never returned.
func (a *app) record(ctx context.Context, e history.Entry) {
	if a.cfg.History.Path == "" {
		return
	}
	s, err := history.Open(ctx, a.cfg.History.Path)
	if err == nil {
		_, err = s.Record(ctx, e)
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		a.log.Warn("could not record run", "error", errors.Cause(err))
	}
}
