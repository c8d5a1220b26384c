// Package config loads and validates the station and processing
// configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPI is returned by Validate when the programme identification
// code is zero. A zero PI is reserved and receivers ignore it.
var ErrInvalidPI = errors.New("config: programme identification code must be non-zero")

// Station carries the RDS programme settings.
type Station struct {
	PI           uint16    `yaml:"pi"`
	PS           string    `yaml:"ps"`
	PSAlternates []string  `yaml:"ps_alternates"`
	PSScroll     int       `yaml:"ps_scroll"` // chars per second, 0 disables
	RadioText    string    `yaml:"radiotext"`
	RTScroll     int       `yaml:"rt_scroll"`
	PTY          int       `yaml:"pty"`
	TP           bool      `yaml:"tp"`
	TA           bool      `yaml:"ta"`
	MS           bool      `yaml:"ms"`
	DI           int       `yaml:"di"`
	AF           []float64 `yaml:"af"` // alternative frequencies in MHz
	CT           bool      `yaml:"ct"`
}

// Compressor holds the dynamics compressor settings.
type Compressor struct {
	Enabled     bool    `yaml:"enabled"`
	ThresholdDB float64 `yaml:"threshold_db"`
	Ratio       float64 `yaml:"ratio"`
	Attack      float64 `yaml:"attack"`
	Release     float64 `yaml:"release"`
}

// Limiter holds the lookahead peak limiter settings.
type Limiter struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	Lookahead int     `yaml:"lookahead"`
}

// Processing carries the audio conditioning and mix settings.
type Processing struct {
	Stereo        bool       `yaml:"stereo"`
	Separation    float64    `yaml:"separation"`     // difference-signal width, 0..1
	PreemphasisUS int        `yaml:"preemphasis_us"` // 0, 50 or 75
	PilotLevel    float64    `yaml:"pilot_level"`
	RDSLevel      float64    `yaml:"rds_level"`
	Gain          float64    `yaml:"gain"`
	Compressor    Compressor `yaml:"compressor"`
	Limiter       Limiter    `yaml:"limiter"`
}

// Input selects the audio source.
type Input struct {
	File string `yaml:"file"`
	Loop bool   `yaml:"loop"`
}

// Output selects the delivery sample rate.
type Output struct {
	SampleRate int `yaml:"sample_rate"`
}

// Config is the root of the YAML configuration file.
type Config struct {
	Station    Station    `yaml:"station"`
	Processing Processing `yaml:"processing"`
	Input      Input      `yaml:"input"`
	Output     Output     `yaml:"output"`
}

// Default returns a configuration that produces a valid stereo
// multiplex without any file present.
func Default() *Config {
	return &Config{
		Station: Station{
			PI:        0x1234,
			PS:        "PULSE FM",
			RadioText: "PulseFM stereo multiplex generator",
			MS:        true,
			DI:        0x01, // stereo
			CT:        true,
		},
		Processing: Processing{
			Stereo:        true,
			Separation:    1.0,
			PreemphasisUS: 50,
			PilotLevel:    0.9,
			RDSLevel:      1.0,
			Gain:          1.0,
			Compressor: Compressor{
				ThresholdDB: -20,
				Ratio:       2,
				Attack:      0.01,
				Release:     0.2,
			},
			Limiter: Limiter{
				Threshold: 1.0,
				Lookahead: 64,
			},
		},
		Input:  Input{Loop: true},
		Output: Output{SampleRate: 192000},
	}
}

// Load reads and validates a YAML configuration file. Fields absent
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes and validates a YAML configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges. It is called by Load and again by the
// engine before a runtime update is applied.
func (c *Config) Validate() error {
	if c.Station.PI == 0 {
		return ErrInvalidPI
	}
	if n := len([]rune(c.Station.PS)); n > 8 && c.Station.PSScroll == 0 {
		return fmt.Errorf("config: ps %q is %d chars, limit is 8 (or enable ps_scroll)", c.Station.PS, n)
	}
	if c.Station.PSScroll > 0 && len(c.Station.PSAlternates) > 0 {
		return errors.New("config: ps_scroll and ps_alternates are mutually exclusive")
	}
	if c.Station.PSScroll == 0 {
		for _, alt := range c.Station.PSAlternates {
			if len([]rune(alt)) > 8 {
				return fmt.Errorf("config: ps alternate %q exceeds 8 chars", alt)
			}
		}
	}
	if n := len([]rune(c.Station.RadioText)); n > 64 && c.Station.RTScroll == 0 {
		return fmt.Errorf("config: radiotext is %d chars, limit is 64 (or enable rt_scroll)", n)
	}
	if c.Station.PTY < 0 || c.Station.PTY > 31 {
		return fmt.Errorf("config: pty %d out of range 0..31", c.Station.PTY)
	}
	if c.Station.DI < 0 || c.Station.DI > 15 {
		return fmt.Errorf("config: di %d out of range 0..15", c.Station.DI)
	}
	if len(c.Station.AF) > 25 {
		return fmt.Errorf("config: %d alternative frequencies, limit is 25", len(c.Station.AF))
	}
	for _, mhz := range c.Station.AF {
		if mhz < 87.6 || mhz > 107.9 {
			return fmt.Errorf("config: alternative frequency %.1f MHz outside 87.6..107.9", mhz)
		}
	}
	if s := c.Processing.Separation; s < 0 || s > 1 {
		return fmt.Errorf("config: separation %.2f out of range 0..1", s)
	}
	switch c.Processing.PreemphasisUS {
	case 0, 50, 75:
	default:
		return fmt.Errorf("config: preemphasis_us %d, want 0, 50 or 75", c.Processing.PreemphasisUS)
	}
	if c.Processing.PilotLevel < 0 || c.Processing.PilotLevel > 1.2 {
		return fmt.Errorf("config: pilot_level %.2f out of range 0..1.2", c.Processing.PilotLevel)
	}
	if c.Processing.RDSLevel < 0 || c.Processing.RDSLevel > 2 {
		return fmt.Errorf("config: rds_level %.2f out of range 0..2", c.Processing.RDSLevel)
	}
	if c.Processing.Gain <= 0 {
		return fmt.Errorf("config: gain %.2f must be positive", c.Processing.Gain)
	}
	if c.Processing.Compressor.Enabled && c.Processing.Compressor.Ratio < 1 {
		return fmt.Errorf("config: compressor ratio %.2f must be at least 1", c.Processing.Compressor.Ratio)
	}
	if l := c.Processing.Limiter; l.Enabled && (l.Lookahead < 1 || l.Lookahead > 2048) {
		return fmt.Errorf("config: limiter lookahead %d out of range 1..2048", l.Lookahead)
	}
	if r := c.Output.SampleRate; r < 8000 || r > 768000 {
		return fmt.Errorf("config: output sample rate %d out of range 8000..768000", r)
	}
	return nil
}

// Clone returns a deep copy so a pending update can be mutated without
// racing the streaming goroutine.
func (c *Config) Clone() *Config {
	out := *c
	out.Station.PSAlternates = append([]string(nil), c.Station.PSAlternates...)
	out.Station.AF = append([]float64(nil), c.Station.AF...)
	return &out
}
