package rds

import (
	"math"
	"sync"
)

const (
	bitRate = float64(SampleRate) / SamplesPerBit // 1187.5

	// The RDS data-shaping filter: 100% cosine roll-off, band-limited to
	// twice the bit rate. Unshaped rectangular symbols would splatter
	// sidebands well past the 57 kHz channel.
	shapingBandwidth = 2 * bitRate // 2375 Hz

	// Impulse response length in bit periods. Beyond four periods the
	// response is below -60 dB of its peak.
	shapingSpanBits = 4
)

var (
	waveformOnce sync.Once
	waveform     []float64
)

// biphaseWaveform returns the shaped waveform one data symbol contributes to
// the baseband signal: the band-limited shaping impulse convolved with the
// biphase symbol (a positive and a negative impulse half a bit apart),
// peak-normalised to 0.5 so overlapping symbols sum to at most unity.
//
// The result is deterministic and computed once at first use.
func biphaseWaveform() []float64 {
	waveformOnce.Do(func() {
		pulseLen := SamplesPerBit * shapingSpanBits
		pulse := make([]float64, pulseLen)
		for i := range pulse {
			t := (float64(i) - float64(pulseLen)/2) / SampleRate
			pulse[i] = shapingImpulse(t)
		}

		half := SamplesPerBit / 2
		w := make([]float64, pulseLen+half)
		for i, v := range pulse {
			w[i] += v
			w[i+half] -= v
		}

		peak := 0.0
		for _, v := range w {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
		for i := range w {
			w[i] = w[i] / peak * 0.5
		}
		waveform = w
	})
	return waveform
}

// shapingImpulse evaluates the impulse response of the spectrum-shaping
// filter H(f) = cos(pi*f/(4*bitRate)) for |f| <= 2*bitRate at time t, by
// numerically inverting the band-limited response.
func shapingImpulse(t float64) float64 {
	const steps = 512
	df := shapingBandwidth / steps
	acc := 0.0
	for k := 0; k < steps; k++ {
		f := (float64(k) + 0.5) * df
		acc += math.Cos(math.Pi*f/(4*bitRate)) * math.Cos(2*math.Pi*f*t) * df
	}
	return acc
}
