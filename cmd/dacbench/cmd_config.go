// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"strconv"
	"strings"

	"github.com/db47h/dacbench/devcfg"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit the device configuration",
		Long: `View and edit the device configuration a program is compiled against.

Edits are committed to disk in canonical form (sorted keys, two space
indentation) and the file is reloaded. Use --dry-run to print the result
without committing.

Examples:
  dacbench config show
  dacbench config set-mixer 0 1000          # channel 0 mixer at 1000 MHz
  dacbench config set-rate dac 0 6144       # DAC tile 0 at 6144 Msps
  dacbench config bench                     # show the bench settings`,
	}
	cmd.PersistentFlags().String("device", "", "Device configuration file (JSON)")
	cmd.PersistentFlags().Bool("dry-run", false, "Print the edited configuration without committing")

	cmd.AddCommand(
		newConfigShowCmd(a),
		newConfigSetMixerCmd(a),
		newConfigSetRateCmd(a),
		newConfigBenchCmd(a),
	)
	return cmd
}

func deviceStore(cmd *cobra.Command, a *app) (*devcfg.Store, error) {
	path := stringFlag(cmd, "device", a.cfg.Device)
	if path == "" {
		return nil, errors.New("no device configuration: set device or use --device")
	}
	return devcfg.Load(path, nil)
}

// finish commits the edits of s, or prints them and rolls back with --dry-run.
func finish(cmd *cobra.Command, a *app, s *devcfg.Store) error {
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		data, err := s.Config().Marshal()
		if err != nil {
			return err
		}
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return err
		}
		return s.Rollback()
	}
	if err := s.Commit(); err != nil {
		return err
	}
	a.log.Info("device config committed", "path", s.Path(), "channels", s.NumChannels())
	return nil
}

func newConfigShowCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the device configuration in canonical form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := deviceStore(cmd, a)
			if err != nil {
				return err
			}
			c := s.Config()
			if compiled, _ := cmd.Flags().GetBool("compiled"); compiled {
				c = devcfg.Config(s.CompiledMap())
			}
			data, err := c.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().Bool("compiled", false, "Show the compiled representation instead of the file contents")
	return cmd
}

func newConfigSetMixerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-mixer CHANNEL MHZ",
		Short: "Set the mixer frequency of a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrap(err, "channel")
			}
			f, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return errors.Wrap(err, "frequency")
			}
			s, err := deviceStore(cmd, a)
			if err != nil {
				return err
			}
			if err := s.SetChannelMixer(ch, f); err != nil {
				return err
			}
			return finish(cmd, a, s)
		},
	}
}

func newConfigSetRateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-rate dac|adc TILE MSPS",
		Short: "Set the sample rate of a DAC or ADC tile",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tile, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrap(err, "tile")
			}
			fs, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return errors.Wrap(err, "sample rate")
			}
			s, err := deviceStore(cmd, a)
			if err != nil {
				return err
			}
			if err := s.SetTileRate(devcfg.TileKind(strings.ToLower(args[0])), tile, fs); err != nil {
				return err
			}
			return finish(cmd, a, s)
		},
	}
}

func newConfigBenchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Print the effective bench settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
