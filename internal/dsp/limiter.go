package dsp

import "math"

// Limiter is a brick-wall lookahead peak limiter over a mono/stereo sample
// pair. It delays the signal by the lookahead window and scales each output
// pair so that no peak inside the window can exceed the threshold; applying
// one gain to both signals preserves the stereo image.
//
// Until the window has filled the limiter outputs silence, so the first
// lookahead samples of a stream are muted rather than unlimited.
type Limiter struct {
	threshold float64
	lookahead int

	delayMono   []float64
	delayStereo []float64
	pos         int
	filled      int
}

// NewLimiter creates a limiter with the given threshold (floored at 0.1) and
// lookahead in samples (clamped to 1..2048).
func NewLimiter(threshold float64, lookahead int) *Limiter {
	if threshold < 0.1 {
		threshold = 0.1
	}
	if lookahead < 1 {
		lookahead = 1
	}
	if lookahead > 2048 {
		lookahead = 2048
	}
	return &Limiter{
		threshold:   threshold,
		lookahead:   lookahead,
		delayMono:   make([]float64, lookahead),
		delayStereo: make([]float64, lookahead),
	}
}

// Process pushes one sample pair in and returns the delayed, limited pair.
func (l *Limiter) Process(mono, stereo float64) (float64, float64) {
	outMono := l.delayMono[l.pos]
	outStereo := l.delayStereo[l.pos]
	l.delayMono[l.pos] = mono
	l.delayStereo[l.pos] = stereo
	l.pos++
	if l.pos >= l.lookahead {
		l.pos = 0
	}

	if l.filled < l.lookahead {
		l.filled++
		return 0, 0
	}

	peak := 0.0
	for i := range l.delayMono {
		if a := math.Abs(l.delayMono[i]); a > peak {
			peak = a
		}
		if a := math.Abs(l.delayStereo[i]); a > peak {
			peak = a
		}
	}
	if a := math.Max(math.Abs(outMono), math.Abs(outStereo)); a > peak {
		peak = a
	}

	if peak > l.threshold {
		gain := l.threshold / peak
		outMono *= gain
		outStereo *= gain
	}
	return outMono, outStereo
}

// Threshold returns the configured ceiling.
func (l *Limiter) Threshold() float64 { return l.threshold }

// Lookahead returns the delay in samples the limiter imposes.
func (l *Limiter) Lookahead() int { return l.lookahead }

// Reset empties the delay line.
func (l *Limiter) Reset() {
	for i := range l.delayMono {
		l.delayMono[i] = 0
		l.delayStereo[i] = 0
	}
	l.pos = 0
	l.filled = 0
}
