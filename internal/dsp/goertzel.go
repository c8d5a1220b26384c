package dsp

import "math"

// Goertzel measures the amplitude of a single frequency over fixed-length
// windows. It is the monitoring path's spectral probe: one instance watches
// the 19 kHz pilot, another the 57 kHz subcarrier, without a full FFT.
type Goertzel struct {
	coeff  float64
	window int

	s1, s2 float64
	count  int
	mag    float64
}

// NewGoertzel creates a probe for freq at sampleRate with the given window
// length in samples.
func NewGoertzel(freq, sampleRate float64, window int) *Goertzel {
	return &Goertzel{
		coeff:  2 * math.Cos(2*math.Pi*freq/sampleRate),
		window: window,
	}
}

// Feed advances the probe by one sample. At the end of each window the
// amplitude estimate is refreshed and the recursion restarts.
func (g *Goertzel) Feed(x float64) {
	s0 := x + g.coeff*g.s1 - g.s2
	g.s2 = g.s1
	g.s1 = s0
	g.count++
	if g.count >= g.window {
		power := g.s1*g.s1 + g.s2*g.s2 - g.coeff*g.s1*g.s2
		if power < 0 {
			power = 0
		}
		// Normalise to the amplitude of a pure sine at the probe frequency.
		g.mag = 2 * math.Sqrt(power) / float64(g.window)
		g.s1 = 0
		g.s2 = 0
		g.count = 0
	}
}

// Amplitude returns the most recent windowed amplitude estimate.
func (g *Goertzel) Amplitude() float64 { return g.mag }

// Reset clears the recursion state and the last estimate.
func (g *Goertzel) Reset() {
	g.s1 = 0
	g.s2 = 0
	g.count = 0
	g.mag = 0
}
