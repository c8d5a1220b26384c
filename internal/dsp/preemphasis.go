package dsp

import "math"

// Standard FM pre-emphasis time constants.
const (
	Tau50us = 50e-6 // Europe
	Tau75us = 75e-6 // Americas
)

// Preemphasis implements the first-order high-shelf boost a receiver undoes
// with its matching de-emphasis filter. The time constant is a correctness
// requirement of the transmission standard, not a tone control.
type Preemphasis struct {
	a       float64
	prevIn  float64
	prevOut float64
}

// NewPreemphasis creates a pre-emphasis filter for the given sample rate and
// time constant in seconds (Tau50us or Tau75us).
func NewPreemphasis(sampleRate int, tau float64) *Preemphasis {
	return &Preemphasis{a: math.Exp(-1 / (tau * float64(sampleRate)))}
}

// Filter applies pre-emphasis to a single sample.
func (p *Preemphasis) Filter(x float64) float64 {
	y := x - p.prevIn + p.a*p.prevOut
	p.prevIn = x
	p.prevOut = y
	return y
}

// Reset clears the filter memory.
func (p *Preemphasis) Reset() {
	p.prevIn = 0
	p.prevOut = 0
}
