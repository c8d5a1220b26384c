package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFromReaderMergesOverDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
station:
  pi: 0x2AB0
  ps: "ZWR"
  af: [98.0, 94.3]
processing:
  preemphasis_us: 75
`))
	require.NoError(t, err)

	assert.Equal(t, uint16(0x2AB0), cfg.Station.PI)
	assert.Equal(t, "ZWR", cfg.Station.PS)
	assert.Equal(t, []float64{98.0, 94.3}, cfg.Station.AF)
	assert.Equal(t, 75, cfg.Processing.PreemphasisUS)

	// Untouched fields keep their defaults.
	assert.Equal(t, 0.9, cfg.Processing.PilotLevel)
	assert.Equal(t, 192000, cfg.Output.SampleRate)
	assert.True(t, cfg.Processing.Stereo)
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("station:\n  callsign: KPFM\n"))
	assert.Error(t, err)
}

func TestLoadFromReaderEmptyInput(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default().Station.PI, cfg.Station.PI)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pi", func(c *Config) { c.Station.PI = 0 }},
		{"long ps", func(c *Config) { c.Station.PS = "NINE CHARS" }},
		{"long ps alternate", func(c *Config) { c.Station.PSAlternates = []string{"TOO LONG HERE"} }},
		{"scroll with alternates", func(c *Config) {
			c.Station.PSScroll = 2
			c.Station.PSAlternates = []string{"ALT"}
		}},
		{"long radiotext", func(c *Config) { c.Station.RadioText = strings.Repeat("x", 65) }},
		{"pty out of range", func(c *Config) { c.Station.PTY = 32 }},
		{"di out of range", func(c *Config) { c.Station.DI = 16 }},
		{"af below band", func(c *Config) { c.Station.AF = []float64{87.5} }},
		{"af above band", func(c *Config) { c.Station.AF = []float64{108.0} }},
		{"too many af", func(c *Config) { c.Station.AF = make([]float64, 26) }},
		{"bad preemphasis", func(c *Config) { c.Processing.PreemphasisUS = 25 }},
		{"separation above one", func(c *Config) { c.Processing.Separation = 1.5 }},
		{"negative separation", func(c *Config) { c.Processing.Separation = -0.1 }},
		{"negative pilot", func(c *Config) { c.Processing.PilotLevel = -0.1 }},
		{"rds level high", func(c *Config) { c.Processing.RDSLevel = 3 }},
		{"zero gain", func(c *Config) { c.Processing.Gain = 0 }},
		{"ratio below unity", func(c *Config) {
			c.Processing.Compressor.Enabled = true
			c.Processing.Compressor.Ratio = 0.5
		}},
		{"limiter lookahead", func(c *Config) {
			c.Processing.Limiter.Enabled = true
			c.Processing.Limiter.Lookahead = 0
		}},
		{"output rate low", func(c *Config) { c.Output.SampleRate = 4000 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateZeroPIIsSentinel(t *testing.T) {
	cfg := Default()
	cfg.Station.PI = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPI)
}

func TestScrollingPSMayExceedEightChars(t *testing.T) {
	cfg := Default()
	cfg.Station.PS = "A NAME LONGER THAN EIGHT"
	cfg.Station.PSScroll = 2
	assert.NoError(t, cfg.Validate())

	cfg.Station.PSScroll = 0
	assert.Error(t, cfg.Validate())
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := Default()
	cfg.Station.AF = []float64{98.0}
	clone := cfg.Clone()
	clone.Station.AF[0] = 100.0
	clone.Station.PI = 0x5678

	assert.Equal(t, 98.0, cfg.Station.AF[0])
	assert.Equal(t, uint16(0x1234), cfg.Station.PI)
}
