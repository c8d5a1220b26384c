package dsp

import "math"

// Compressor applies feed-forward gain reduction above a threshold. The
// envelope is derived from the joint peak of the mono and stereo matrix
// signals and the resulting gain is applied to both, so compression never
// shifts the stereo image.
type Compressor struct {
	ThresholdDB float64
	Ratio       float64
	Attack      float64 // seconds
	Release     float64 // seconds

	sampleRate float64
	gainDB     float64 // current gain reduction, <= 0
}

// NewCompressor returns a compressor with sanitised parameters: ratio is
// floored at 1:1 and the time constants at values the envelope math stays
// stable for.
func NewCompressor(sampleRate int, thresholdDB, ratio, attack, release float64) *Compressor {
	if ratio < 1 {
		ratio = 1
	}
	if attack < 0.001 {
		attack = 0.001
	}
	if release < 0.01 {
		release = 0.01
	}
	return &Compressor{
		ThresholdDB: thresholdDB,
		Ratio:       ratio,
		Attack:      attack,
		Release:     release,
		sampleRate:  float64(sampleRate),
	}
}

// Process compresses one mono/stereo sample pair.
func (c *Compressor) Process(mono, stereo float64) (float64, float64) {
	level := math.Max(math.Max(math.Abs(mono), math.Abs(stereo)), 1e-6)
	levelDB := 20 * math.Log10(level)

	targetDB := 0.0
	if levelDB > c.ThresholdDB {
		compressed := c.ThresholdDB + (levelDB-c.ThresholdDB)/c.Ratio
		targetDB = compressed - levelDB
	}

	tc := c.Release
	if targetDB < c.gainDB {
		tc = c.Attack
	}
	coeff := math.Exp(-1 / (tc * c.sampleRate))
	c.gainDB = targetDB + coeff*(c.gainDB-targetDB)

	gain := math.Pow(10, c.gainDB/20)
	return mono * gain, stereo * gain
}

// GainDB reports the current gain reduction in dB (zero or negative).
func (c *Compressor) GainDB() float64 { return c.gainDB }

// Reset clears the gain-reduction envelope.
func (c *Compressor) Reset() { c.gainDB = 0 }
