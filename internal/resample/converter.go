// Package resample converts the internal 228 kHz composite to the
// delivery rate.
package resample

import (
	"errors"
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"
)

// ErrUnsupportedRate is returned by New for delivery rates the
// converter cannot produce.
var ErrUnsupportedRate = errors.New("resample: unsupported output rate")

const (
	minRate = 8000
	maxRate = 768000
)

// Converter is a streaming mono rate converter. Equal input and output
// rates make it a passthrough.
type Converter struct {
	r       resampler.Resampler
	inRate  int
	outRate int
}

// New builds a converter from inRate to outRate. The rate check happens
// here, not at first Process, so a bad delivery rate fails before any
// stream starts.
func New(inRate, outRate int) (*Converter, error) {
	if outRate < minRate || outRate > maxRate {
		return nil, fmt.Errorf("%w: %d Hz", ErrUnsupportedRate, outRate)
	}
	c := &Converter{inRate: inRate, outRate: outRate}
	if inRate == outRate {
		return c, nil
	}
	r, err := resampler.New(&resampler.Config{
		InputRate:  float64(inRate),
		OutputRate: float64(outRate),
		Channels:   1,
		Quality:    resampler.QualitySpec{Preset: resampler.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %d Hz: %v", ErrUnsupportedRate, outRate, err)
	}
	c.r = r
	return c, nil
}

// Ratio returns outputRate/inputRate.
func (c *Converter) Ratio() float64 {
	return float64(c.outRate) / float64(c.inRate)
}

// OutputRate returns the delivery rate.
func (c *Converter) OutputRate() int { return c.outRate }

// Process converts a chunk. The returned slice is owned by the
// converter and valid until the next call. Output length varies chunk
// to chunk; the converter carries fractional position across calls.
func (c *Converter) Process(in []float64) ([]float64, error) {
	if c.r == nil {
		return in, nil
	}
	out, err := c.r.Process(in)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	return out, nil
}

// Flush drains the converter's filter tail at end of stream.
func (c *Converter) Flush() ([]float64, error) {
	if c.r == nil {
		return nil, nil
	}
	out, err := c.r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	return out, nil
}
