// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package config provides the dacbench tool configuration, loaded from a YAML
// file and environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "dacbench.yaml"

// Config contains all dacbench settings.
type Config struct {
	// Device is the device configuration (JSON) the program is compiled against.
	Device string `yaml:"device"`

	Build    BuildConfig    `yaml:"build"`
	Memory   MemoryConfig   `yaml:"memory"`
	Stimulus StimulusConfig `yaml:"stimulus"`
	Logging  LoggingConfig  `yaml:"logging"`
	History  HistoryConfig  `yaml:"history"`
}

// BuildConfig configures the external simulator build and run.
type BuildConfig struct {
	// Sources are the SystemVerilog sources, testbench first.
	Sources []string `yaml:"sources"`

	// Top is the testbench top module.
	Top string `yaml:"top"`

	// Dir is the build directory. Avoid spaces, make does not like them.
	Dir string `yaml:"dir"`

	// Table is the result table the testbench writes, relative to the working
	// directory.
	Table string `yaml:"table"`

	// Verilator is the verilator path. Empty looks it up in PATH.
	Verilator string `yaml:"verilator,omitempty"`

	// Flags replaces the default verilator flags if set.
	Flags []string `yaml:"flags,omitempty"`

	// BuildTimeout and RunTimeout bound the external processes. Zero means no
	// limit.
	BuildTimeout time.Duration `yaml:"build_timeout,omitempty"`
	RunTimeout   time.Duration `yaml:"run_timeout,omitempty"`

	// PreviewRows is the number of result rows echoed after a run.
	PreviewRows int `yaml:"preview_rows"`
}

// MemoryConfig configures memory image export.
type MemoryConfig struct {
	// Dir receives the exported images.
	Dir string `yaml:"dir"`

	// Image is a YAML memory image used in place of a compiled program.
	Image string `yaml:"image,omitempty"`

	// Channels restricts SGMEM export. Empty exports every configured channel.
	Channels []int `yaml:"channels,omitempty"`
}

// StimulusConfig configures the in-process sweep.
type StimulusConfig struct {
	Channels      int     `yaml:"channels"`
	Bits          int     `yaml:"bits"`
	Samples       int     `yaml:"samples"`
	WarmupEdges   int     `yaml:"warmup_edges"`
	DrainEdges    int     `yaml:"drain_edges"`
	VRef          float64 `yaml:"vref"`
	PeriodPS      int64   `yaml:"period_ps"`
	StepsPerCycle uint    `yaml:"steps_per_cycle"`
	Workers       int     `yaml:"workers"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is one of "trace", "debug", "info" (default), "warn" or "error".
	Level string `yaml:"level"`

	// Format is "text" (default) or "json".
	Format string `yaml:"format"`
}

// HistoryConfig configures the run archive.
type HistoryConfig struct {
	// Path of the SQLite database. Empty disables run recording.
	Path string `yaml:"path,omitempty"`
}

// Default returns a Config with the reference bench settings.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			Sources:     []string{"dac_top_tb.sv", "dac_top.sv", "dac.sv"},
			Top:         "dac_top_tb",
			Dir:         "build_tb",
			Table:       "top_dac.csv",
			PreviewRows: 10,
		},
		Memory: MemoryConfig{
			Dir: "tb_mem",
		},
		Stimulus: StimulusConfig{
			Channels:      16,
			Bits:          16,
			Samples:       100,
			WarmupEdges:   9,
			DrainEdges:    2,
			VRef:          1.0,
			PeriodPS:      2325,
			StepsPerCycle: 8,
			Workers:       1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads the configuration. Order: defaults -> file -> environment
// variables. If path is empty, DefaultFile is used when present.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}
	config.Device = os.ExpandEnv(config.Device)
	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Build.Sources) == 0 {
		return errors.New("build.sources must not be empty")
	}
	if c.Build.Top == "" {
		return errors.New("build.top must be set")
	}
	if strings.ContainsAny(c.Build.Dir, " \t") {
		return errors.Errorf("build.dir must not contain spaces: %q", c.Build.Dir)
	}
	if c.Build.BuildTimeout < 0 || c.Build.RunTimeout < 0 {
		return errors.New("timeouts must be non-negative")
	}
	if c.Build.PreviewRows < 0 {
		return errors.Errorf("preview_rows must be non-negative, got %d", c.Build.PreviewRows)
	}
	s := c.Stimulus
	if s.Channels <= 0 {
		return errors.Errorf("stimulus.channels must be positive, got %d", s.Channels)
	}
	if s.Bits < 2 || s.Bits > 32 {
		return errors.Errorf("stimulus.bits must be between 2 and 32, got %d", s.Bits)
	}
	if s.Samples <= 0 {
		return errors.Errorf("stimulus.samples must be positive, got %d", s.Samples)
	}
	if s.WarmupEdges < 0 || s.DrainEdges < 0 {
		return errors.New("stimulus edge counts must be non-negative")
	}
	if s.PeriodPS <= 0 {
		return errors.Errorf("stimulus.period_ps must be positive, got %d", s.PeriodPS)
	}
	for _, ch := range c.Memory.Channels {
		if ch < 0 {
			return errors.Errorf("invalid memory channel %d", ch)
		}
	}
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if l := strings.ToLower(c.Logging.Level); l != "" && !validLevels[l] {
		return errors.Errorf("invalid log level: %s (valid: trace, debug, info, warn, error)", c.Logging.Level)
	}
	if f := c.Logging.Format; f != "" && f != "text" && f != "json" {
		return errors.Errorf("invalid log format: %s (valid: text, json)", f)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("DACBENCH_DEVICE"); v != "" {
		config.Device = v
	}
	if v := os.Getenv("DACBENCH_VERILATOR"); v != "" {
		config.Build.Verilator = v
	}
	if v := os.Getenv("DACBENCH_BUILD_DIR"); v != "" {
		config.Build.Dir = v
	}
	if v := os.Getenv("DACBENCH_MEM_DIR"); v != "" {
		config.Memory.Dir = v
	}
	if v := os.Getenv("DACBENCH_RUN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Build.RunTimeout = d
		}
	}
	if v := os.Getenv("DACBENCH_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Stimulus.Samples = n
		}
	}
	if v := os.Getenv("DACBENCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Stimulus.Workers = n
		}
	}
	if v := os.Getenv("DACBENCH_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("DACBENCH_LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}
	if v := os.Getenv("DACBENCH_HISTORY"); v != "" {
		config.History.Path = v
	}
}
