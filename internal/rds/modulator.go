package rds

// Modulator turns the encoder's bitstream into a continuous 57 kHz BPSK
// subcarrier at the internal sample rate.
//
// Each data bit is differentially encoded (a transition carries the bit, not
// an absolute level) and contributes one shaped biphase waveform, overlap-
// added into a circular sample buffer. The 57 kHz carrier multiply reduces
// to a four-sample phase sequence {0, +1, 0, -1} at 228 kHz, which keeps the
// subcarrier rigidly at three times the 19 kHz pilot: both are advanced by
// the same sample counter, so no drift can accumulate between them.
type Modulator struct {
	enc *Encoder

	bitBuffer [BitsPerGroup]byte
	bitPos    int

	sampleBuffer []float64
	inIndex      int
	outIndex     int

	prevOutput  byte
	curOutput   byte
	sampleCount int
	phase       int

	// marquee scrolling, driven by the sample clock
	psScroll *scroller
	rtScroll *scroller
	ticks    uint64
}

// NewModulator wraps enc. The encoder must not be shared with another
// modulator: group consumption advances its sequencing state.
func NewModulator(enc *Encoder) *Modulator {
	size := SamplesPerBit + len(biphaseWaveform())
	return &Modulator{
		enc:          enc,
		bitPos:       BitsPerGroup,
		sampleBuffer: make([]float64, size),
		outIndex:     size - 1,
		sampleCount:  SamplesPerBit,
	}
}

// Encoder exposes the wrapped encoder for configuration updates. Callers
// must only touch it between Samples calls.
func (m *Modulator) Encoder() *Encoder { return m.enc }

// Samples fills buf with consecutive subcarrier samples. The bitstream never
// gaps: when one group's bits are exhausted the encoder is asked for the
// next group immediately.
func (m *Modulator) Samples(buf []float64) {
	filter := biphaseWaveform()
	size := len(m.sampleBuffer)

	for n := range buf {
		m.ticks++
		m.psScroll.tick(m.ticks, psLength, m.enc.SetPS)
		m.rtScroll.tick(m.ticks, rtLength, m.enc.SetRadioText)

		if m.sampleCount >= SamplesPerBit {
			if m.bitPos >= BitsPerGroup {
				m.enc.NextGroup(m.bitBuffer[:])
				m.bitPos = 0
			}

			bit := m.bitBuffer[m.bitPos]
			m.prevOutput = m.curOutput
			m.curOutput = m.prevOutput ^ bit

			idx := m.inIndex
			for _, v := range filter {
				if m.curOutput == 1 {
					v = -v
				}
				m.sampleBuffer[idx] += v
				idx++
				if idx >= size {
					idx = 0
				}
			}

			m.inIndex += SamplesPerBit
			if m.inIndex >= size {
				m.inIndex -= size
			}
			m.bitPos++
			m.sampleCount = 0
		}

		out := m.sampleBuffer[m.outIndex]
		m.sampleBuffer[m.outIndex] = 0
		m.outIndex++
		if m.outIndex >= size {
			m.outIndex = 0
		}

		// 57 kHz carrier: one full cycle every four samples at 228 kHz.
		switch m.phase {
		case 0, 2:
			out = 0
		case 3:
			out = -out
		}
		m.phase = (m.phase + 1) % 4

		buf[n] = out
		m.sampleCount++
	}
}

// scroller slides a fixed-size window over a longer text at a configured
// character rate, feeding the windows through the normal setter so A/B and
// segment semantics are preserved.
type scroller struct {
	text     string
	pos      int
	interval uint64
}

// newScroller returns nil when disabled, which tick treats as a no-op.
func newScroller(text string, charsPerSec float64) *scroller {
	if charsPerSec < 0.1 {
		charsPerSec = 0.1
	}
	interval := uint64(float64(SampleRate) / charsPerSec)
	if interval == 0 {
		interval = 1
	}
	return &scroller{text: text, interval: interval}
}

func (s *scroller) tick(ticks uint64, window int, set func(string)) {
	if s == nil || ticks%s.interval != 0 {
		return
	}
	padded := []rune(s.text + "   ")
	buf := make([]rune, window)
	for i := 0; i < window; i++ {
		buf[i] = padded[(s.pos+i)%len(padded)]
	}
	s.pos = (s.pos + 1) % len(padded)
	set(string(buf))
}

// SetPSScroll enables or disables marquee scrolling of text through the
// eight-character PS field.
func (m *Modulator) SetPSScroll(enabled bool, text string, charsPerSec float64) {
	if !enabled {
		m.psScroll = nil
		return
	}
	m.psScroll = newScroller(text, charsPerSec)
}

// SetRTScroll enables or disables scrolling of text through RadioText.
func (m *Modulator) SetRTScroll(enabled bool, text string, charsPerSec float64) {
	if !enabled {
		m.rtScroll = nil
		return
	}
	m.rtScroll = newScroller(text, charsPerSec)
}
