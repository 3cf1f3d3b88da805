package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault_valid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.Equal(t, "dac_top_tb", c.Build.Top)
	require.Equal(t, "top_dac.csv", c.Build.Table)
	require.Equal(t, int64(2325), c.Stimulus.PeriodPS)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dacbench.yaml")
	t.Setenv("BOARD", "zcu216")
	require.NoError(t, os.WriteFile(path, []byte(`
device: ${BOARD}.json
build:
  top: my_tb
  run_timeout: 30s
stimulus:
  samples: 4
  channels: 1
memory:
  channels: [0, 2]
`), 0644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "zcu216.json", c.Device)
	require.Equal(t, "my_tb", c.Build.Top)
	require.Equal(t, 30*time.Second, c.Build.RunTimeout)
	require.Equal(t, 4, c.Stimulus.Samples)
	require.Equal(t, 16, c.Stimulus.Bits, "unset fields keep their default")
	require.Equal(t, []int{0, 2}, c.Memory.Channels)
	require.NoError(t, c.Validate())

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.NoError(t, os.WriteFile(path, []byte("build: [\n"), 0644))
	_, err = LoadFromFile(path)
	require.Error(t, err)
}

func TestLoad_envOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DACBENCH_SAMPLES", "8")
	t.Setenv("DACBENCH_LOG_LEVEL", "debug")
	t.Setenv("DACBENCH_RUN_TIMEOUT", "bogus")
	t.Setenv("DACBENCH_HISTORY", "runs.db")

	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8, c.Stimulus.Samples)
	require.Equal(t, "debug", c.Logging.Level)
	require.Zero(t, c.Build.RunTimeout, "unparsable override is ignored")
	require.Equal(t, "runs.db", c.History.Path)
}

func TestValidate(t *testing.T) {
	td := []struct {
		name string
		mod  func(c *Config)
	}{
		{"no sources", func(c *Config) { c.Build.Sources = nil }},
		{"no top", func(c *Config) { c.Build.Top = "" }},
		{"spaces", func(c *Config) { c.Build.Dir = "build tb" }},
		{"timeout", func(c *Config) { c.Build.RunTimeout = -time.Second }},
		{"bits", func(c *Config) { c.Stimulus.Bits = 40 }},
		{"samples", func(c *Config) { c.Stimulus.Samples = 0 }},
		{"period", func(c *Config) { c.Stimulus.PeriodPS = 0 }},
		{"channel", func(c *Config) { c.Memory.Channels = []int{-1} }},
		{"level", func(c *Config) { c.Logging.Level = "loud" }},
		{"format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, d := range td {
		c := Default()
		d.mod(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected error", d.name)
		}
	}
}
