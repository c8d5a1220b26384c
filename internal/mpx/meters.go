package mpx

import (
	"math"
	"sync/atomic"

	"github.com/imhsouna/PulseFM/internal/dsp"
)

// metersWindow is 100 ms at the internal rate.
const metersWindow = SampleRate / 10

// BandCount is the size of the coarse spectral breakdown. Band centres
// are evenly spaced up to the 57 kHz subcarrier.
const BandCount = 8

const bandSpacing = 57000 / BandCount

// Snapshot is a published set of composite level readings.
type Snapshot struct {
	RMS   float64 // composite RMS over the last window
	Peak  float64 // composite absolute peak over the last window
	Pilot float64 // 19 kHz amplitude
	RDS   float64 // 57 kHz band amplitude

	// Bands holds a coarse magnitude breakdown; Bands[i] probes
	// (i+1)*7.125 kHz.
	Bands [BandCount]float64
}

// BandCenter returns the probe frequency of band i in Hz.
func BandCenter(i int) float64 { return float64((i + 1) * bandSpacing) }

// Meters accumulates composite level readings on the streaming
// goroutine and publishes them atomically every window. Snapshot can be
// read from any goroutine.
type Meters struct {
	count int
	sumSq float64
	peak  float64
	pilot *dsp.Goertzel
	rds   *dsp.Goertzel
	bands [BandCount]*dsp.Goertzel

	outRMS   atomic.Uint64
	outPeak  atomic.Uint64
	outPilot atomic.Uint64
	outRDS   atomic.Uint64
	outBands [BandCount]atomic.Uint64
}

func NewMeters() *Meters {
	m := &Meters{
		pilot: dsp.NewGoertzel(19000, SampleRate, metersWindow),
		rds:   dsp.NewGoertzel(57000, SampleRate, metersWindow),
	}
	for i := range m.bands {
		m.bands[i] = dsp.NewGoertzel(BandCenter(i), SampleRate, metersWindow)
	}
	return m
}

func (m *Meters) feed(v float64) {
	m.sumSq += v * v
	if a := math.Abs(v); a > m.peak {
		m.peak = a
	}
	m.pilot.Feed(v)
	m.rds.Feed(v)
	for _, b := range m.bands {
		b.Feed(v)
	}

	m.count++
	if m.count < metersWindow {
		return
	}
	m.outRMS.Store(math.Float64bits(math.Sqrt(m.sumSq / metersWindow)))
	m.outPeak.Store(math.Float64bits(m.peak))
	m.outPilot.Store(math.Float64bits(m.pilot.Amplitude()))
	m.outRDS.Store(math.Float64bits(m.rds.Amplitude()))
	for i, b := range m.bands {
		m.outBands[i].Store(math.Float64bits(b.Amplitude()))
	}
	m.count = 0
	m.sumSq = 0
	m.peak = 0
}

// Snapshot returns the most recently published window. All zeros until
// the first window completes.
func (m *Meters) Snapshot() Snapshot {
	s := Snapshot{
		RMS:   math.Float64frombits(m.outRMS.Load()),
		Peak:  math.Float64frombits(m.outPeak.Load()),
		Pilot: math.Float64frombits(m.outPilot.Load()),
		RDS:   math.Float64frombits(m.outRDS.Load()),
	}
	for i := range s.Bands {
		s.Bands[i] = math.Float64frombits(m.outBands[i].Load())
	}
	return s
}
