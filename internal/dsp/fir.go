// Package dsp holds the stateful filter primitives of the conditioning
// chain. Every type owns its own history and carries an explicit Reset so
// stream restarts start from silence.
package dsp

import "math"

// LowPassPair runs the mono sum and stereo difference signals through one
// shared symmetric FIR low-pass. Sharing the coefficient set keeps the two
// paths at identical group delay, which the stereo decoder in a receiver
// relies on.
type LowPassPair struct {
	halfTaps  []float64
	bufMono   []float64
	bufStereo []float64
	index     int
}

// NewLowPassPair designs a windowed-sinc low-pass with the given cutoff at
// sampleRate and halfSize taps per symmetric half.
func NewLowPassPair(cutoff, sampleRate float64, halfSize int) *LowPassPair {
	half := designLowPassHalf(cutoff, sampleRate, halfSize)
	size := 2*halfSize - 1
	return &LowPassPair{
		halfTaps:  half,
		bufMono:   make([]float64, size),
		bufStereo: make([]float64, size),
	}
}

// designLowPassHalf computes one symmetric half of a Hamming-windowed sinc
// low-pass; the centre tap sits at the end of the slice.
func designLowPassHalf(cutoff, sampleRate float64, halfSize int) []float64 {
	half := make([]float64, halfSize)
	half[halfSize-1] = 2 * cutoff / sampleRate / 2
	for i := 1; i < halfSize; i++ {
		sinc := math.Sin(2*math.Pi*cutoff*float64(i)/sampleRate) / (math.Pi * float64(i))
		window := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i+halfSize)/(2*float64(halfSize)))
		half[halfSize-1-i] = sinc * window
	}
	return half
}

// Process pushes one mono/stereo sample pair into the filter and returns the
// filtered pair.
func (f *LowPassPair) Process(mono, stereo float64) (float64, float64) {
	size := len(f.bufMono)

	f.bufMono[f.index] = mono
	f.bufStereo[f.index] = stereo
	f.index++
	if f.index >= size {
		f.index = 0
	}

	var outMono, outStereo float64
	up := f.index
	down := f.index
	for _, tap := range f.halfTaps {
		if down == 0 {
			down = size - 1
		} else {
			down--
		}
		outMono += tap * (f.bufMono[up] + f.bufMono[down])
		outStereo += tap * (f.bufStereo[up] + f.bufStereo[down])
		up++
		if up >= size {
			up = 0
		}
	}
	return outMono, outStereo
}

// Reset clears the filter history.
func (f *LowPassPair) Reset() {
	for i := range f.bufMono {
		f.bufMono[i] = 0
		f.bufStereo[i] = 0
	}
	f.index = 0
}
