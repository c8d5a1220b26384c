// Package mpx composes the FM stereo multiplex: conditioned audio,
// 19 kHz pilot, 38 kHz DSB stereo difference and the 57 kHz RDS
// subcarrier, all at the internal 228 kHz rate.
package mpx

import (
	"math"

	"github.com/imhsouna/PulseFM/internal/config"
	"github.com/imhsouna/PulseFM/internal/dsp"
	"github.com/imhsouna/PulseFM/internal/rds"
)

// SampleRate is the internal composition rate. It is 4x the 57 kHz RDS
// carrier and 12x the 19 kHz pilot, so both reduce to small lookup
// tables advanced in lockstep.
const SampleRate = rds.SampleRate

// OutputScale keeps the composite within ±1 at full modulation. The
// value matches what existing decoding tools expect from exported
// files, so it is part of the output contract.
const OutputScale = 0.1

const (
	// audioGain sets the injection level of the conditioned audio
	// relative to pilot and RDS.
	audioGain = 4.05

	// audioCutoff is 0.8 of the 15 kHz broadcast limit, keeping the
	// FIR transition band clear of the pilot.
	audioCutoff = 12000.0

	firHalfSize = 30

	// psAlternateGroups spaces rotations of the PS alternate list,
	// about four seconds per name.
	psAlternateGroups = 40
)

// 19 kHz and 38 kHz carriers as one period of 12 samples at 228 kHz.
var carrier19, carrier38 = carrierTables()

func carrierTables() (p, s [12]float64) {
	for i := range p {
		p[i] = math.Sin(2 * math.Pi * float64(i) / 12)
		s[i] = math.Sin(4 * math.Pi * float64(i) / 12)
	}
	return
}

// Composer pulls audio from a Source, conditions it and mixes the
// composite baseband. It is driven from a single goroutine; runtime
// reconfiguration goes through Apply at a buffer boundary.
type Composer struct {
	src Source
	mod *rds.Modulator

	lp         *dsp.LowPassPair
	preMono    *dsp.Preemphasis
	preStereo  *dsp.Preemphasis
	comp       *dsp.Compressor
	lim        *dsp.Limiter
	proc       config.Processing
	stereo     bool
	separation float64
	pilotLevel float64
	rdsLevel   float64
	gain       float64

	phase  int
	rdsBuf []float64
	rdsPos int

	meters *Meters
}

// NewComposer builds a composer for the given configuration. The
// configuration must already be validated.
func NewComposer(cfg *config.Config, src Source) *Composer {
	c := &Composer{
		src:    src,
		mod:    rds.NewModulator(rds.NewEncoder()),
		rdsBuf: make([]float64, 1024),
		meters: NewMeters(),
	}
	c.rdsPos = len(c.rdsBuf)
	c.applyStation(cfg.Station)
	c.applyProcessing(cfg.Processing)
	return c
}

// Apply reconfigures the composer from a validated config snapshot.
// Level and RDS changes take effect immediately; conditioning filters
// are rebuilt only when their parameters changed, so steady streaming
// keeps filter state.
func (c *Composer) Apply(cfg *config.Config) {
	c.applyStation(cfg.Station)
	if cfg.Processing != c.proc {
		c.applyProcessing(cfg.Processing)
	} else {
		c.applyLevels(cfg.Processing)
	}
}

func (c *Composer) applyStation(st config.Station) {
	enc := c.mod.Encoder()
	enc.SetPI(st.PI)
	enc.SetTP(st.TP)
	enc.SetTA(st.TA)
	enc.SetMS(st.MS)
	enc.SetPTY(uint8(st.PTY))
	enc.SetDI(uint8(st.DI))
	enc.SetAFListMHz(st.AF)
	enc.SetCTEnabled(st.CT)

	if st.PSScroll > 0 {
		c.mod.SetPSScroll(true, st.PS, float64(st.PSScroll))
	} else {
		c.mod.SetPSScroll(false, "", 0)
		enc.SetPS(st.PS)
		enc.SetPSAlternates(st.PSAlternates, psAlternateGroups)
	}
	if st.RTScroll > 0 {
		c.mod.SetRTScroll(true, st.RadioText, float64(st.RTScroll))
	} else {
		c.mod.SetRTScroll(false, "", 0)
		enc.SetRadioText(st.RadioText)
	}
}

func (c *Composer) applyProcessing(p config.Processing) {
	c.lp = dsp.NewLowPassPair(audioCutoff, SampleRate, firHalfSize)
	c.preMono, c.preStereo = nil, nil
	if p.PreemphasisUS > 0 {
		tau := float64(p.PreemphasisUS) * 1e-6
		c.preMono = dsp.NewPreemphasis(SampleRate, tau)
		c.preStereo = dsp.NewPreemphasis(SampleRate, tau)
	}
	c.comp = nil
	if p.Compressor.Enabled {
		cc := p.Compressor
		c.comp = dsp.NewCompressor(SampleRate, cc.ThresholdDB, cc.Ratio, cc.Attack, cc.Release)
	}
	c.lim = nil
	if p.Limiter.Enabled {
		c.lim = dsp.NewLimiter(p.Limiter.Threshold, p.Limiter.Lookahead)
	}
	c.applyLevels(p)
	c.proc = p
}

func (c *Composer) applyLevels(p config.Processing) {
	c.stereo = p.Stereo
	c.separation = p.Separation
	c.pilotLevel = p.PilotLevel
	c.rdsLevel = p.RDSLevel
	c.gain = p.Gain
	c.proc = p
}

// RDS exposes the modulator for direct station updates.
func (c *Composer) RDS() *rds.Modulator { return c.mod }

// Meters exposes the level probes fed by Samples.
func (c *Composer) Meters() *Meters { return c.meters }

// Samples fills buf with composite samples.
func (c *Composer) Samples(buf []float64) {
	for i := range buf {
		l, r := c.src.NextFrame()
		mono := (l + r) / 2
		stereo := (l - r) / 2
		mono, stereo = c.lp.Process(mono, stereo)
		if c.preMono != nil {
			mono = c.preMono.Filter(mono)
			stereo = c.preStereo.Filter(stereo)
		}
		if c.comp != nil {
			mono, stereo = c.comp.Process(mono, stereo)
		}
		if c.lim != nil {
			mono, stereo = c.lim.Process(mono, stereo)
		}

		if c.rdsPos == len(c.rdsBuf) {
			c.mod.Samples(c.rdsBuf)
			c.rdsPos = 0
		}
		rdsSample := c.rdsBuf[c.rdsPos]
		c.rdsPos++

		out := audioGain * mono
		if c.stereo {
			out += c.pilotLevel * carrier19[c.phase]
			out += audioGain * c.separation * stereo * carrier38[c.phase]
		}
		out += c.rdsLevel * rdsSample
		out *= OutputScale * c.gain

		c.phase++
		if c.phase == 12 {
			c.phase = 0
		}

		c.meters.feed(out)
		buf[i] = out
	}
}
