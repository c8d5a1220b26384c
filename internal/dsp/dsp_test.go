package dsp

import (
	"math"
	"testing"
)

const sampleRate = 228000

func sine(freq, amp float64, n int) []float64 {
	buf := make([]float64, n)
	omega := 2 * math.Pi * freq / sampleRate
	for i := range buf {
		buf[i] = amp * math.Sin(omega*float64(i))
	}
	return buf
}

// toneAmplitude measures the amplitude of freq in the tail of buf.
func toneAmplitude(buf []float64, freq float64) float64 {
	const window = 11400 // 50 ms
	g := NewGoertzel(freq, sampleRate, window)
	for _, v := range buf[len(buf)-window:] {
		g.Feed(v)
	}
	return g.Amplitude()
}

func TestLowPassPairDesign(t *testing.T) {
	half := designLowPassHalf(12000, sampleRate, 30)
	if len(half) != 30 {
		t.Fatalf("got %d taps, want 30", len(half))
	}
	// DC gain of the full symmetric filter: every half tap is used twice.
	sum := 0.0
	for _, tap := range half {
		sum += 2 * tap
	}
	if math.Abs(sum-1) > 0.05 {
		t.Errorf("DC gain %f, want ~1", sum)
	}
}

func TestLowPassPairPassbandAndStopband(t *testing.T) {
	f := NewLowPassPair(12000, sampleRate, 30)

	in := sine(1000, 1.0, sampleRate/2)
	out := make([]float64, len(in))
	for i, v := range in {
		out[i], _ = f.Process(v, 0)
	}
	if amp := toneAmplitude(out, 1000); math.Abs(amp-1) > 0.1 {
		t.Errorf("1 kHz passband amplitude %f, want ~1", amp)
	}

	f.Reset()
	in = sine(50000, 1.0, sampleRate/2)
	for i, v := range in {
		out[i], _ = f.Process(v, 0)
	}
	if amp := toneAmplitude(out, 50000); amp > 0.05 {
		t.Errorf("50 kHz stopband amplitude %f, want < 0.05", amp)
	}
}

func TestLowPassPairStereoMatchesMono(t *testing.T) {
	f := NewLowPassPair(12000, sampleRate, 30)
	in := sine(5000, 0.7, 4096)
	for _, v := range in {
		m, s := f.Process(v, v)
		if m != s {
			t.Fatalf("identical inputs produced mono %f, stereo %f", m, s)
		}
	}
}

func TestLowPassPairResetRestoresInitialState(t *testing.T) {
	f := NewLowPassPair(12000, sampleRate, 30)
	in := sine(3000, 1.0, 1024)

	first := make([]float64, len(in))
	for i, v := range in {
		first[i], _ = f.Process(v, 0)
	}
	f.Reset()
	for i, v := range in {
		got, _ := f.Process(v, 0)
		if got != first[i] {
			t.Fatalf("sample %d after Reset: %f, want %f", i, got, first[i])
		}
	}
}

func TestPreemphasisRecurrence(t *testing.T) {
	p := NewPreemphasis(sampleRate, Tau50us)
	a := math.Exp(-1 / (Tau50us * sampleRate))

	var prevIn, prevOut float64
	for i, x := range []float64{1, 0.5, -0.25, 0, 0.75} {
		want := x - prevIn + a*prevOut
		got := p.Filter(x)
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("sample %d: %f, want %f", i, got, want)
		}
		prevIn, prevOut = x, want
	}
}

func TestPreemphasisBoostsHighs(t *testing.T) {
	measure := func(freq float64) float64 {
		p := NewPreemphasis(sampleRate, Tau50us)
		in := sine(freq, 1.0, sampleRate/2)
		out := make([]float64, len(in))
		for i, v := range in {
			out[i] = p.Filter(v)
		}
		return toneAmplitude(out, freq)
	}

	low := measure(1000)
	high := measure(10000)
	if high/low < 2.5 {
		t.Errorf("10 kHz/1 kHz gain ratio %f, want the pre-emphasis boost (> 2.5)", high/low)
	}

	// 50 us and 75 us must differ: the time constant is a contract.
	p75 := NewPreemphasis(sampleRate, Tau75us)
	p50 := NewPreemphasis(sampleRate, Tau50us)
	if p75.a == p50.a {
		t.Error("75 us and 50 us filters have identical coefficients")
	}
}

func TestCompressorStaticCurve(t *testing.T) {
	c := NewCompressor(sampleRate, -20, 2, 0.01, 0.2)

	// A constant -6.02 dBFS level 14 dB above threshold at 2:1 must settle
	// at 7 dB of gain reduction.
	var outMono float64
	for i := 0; i < sampleRate; i++ {
		outMono, _ = c.Process(0.5, 0)
	}
	wantDB := -20 + (20*math.Log10(0.5)+20)/2 // compressed level
	want := math.Pow(10, wantDB/20)
	if math.Abs(outMono-want) > 0.01 {
		t.Errorf("compressed level %f, want %f", outMono, want)
	}

	// Below threshold the compressor must be transparent once released.
	for i := 0; i < sampleRate; i++ {
		outMono, _ = c.Process(0.05, 0)
	}
	if math.Abs(outMono-0.05) > 0.001 {
		t.Errorf("below-threshold level %f, want 0.05", outMono)
	}
}

func TestCompressorGainAppliesToBothChannels(t *testing.T) {
	c := NewCompressor(sampleRate, -20, 4, 0.01, 0.2)
	for i := 0; i < sampleRate/10; i++ {
		m, s := c.Process(0.8, 0.4)
		if math.Abs(m/0.8-s/0.4) > 1e-9 {
			t.Fatalf("unequal gains: mono %f stereo %f", m/0.8, s/0.4)
		}
	}
}

func TestLimiterCeiling(t *testing.T) {
	l := NewLimiter(0.5, 64)
	in := sine(1000, 1.0, sampleRate/10)
	for i, v := range in {
		m, s := l.Process(v, -v)
		if math.Abs(m) > 0.5+1e-9 || math.Abs(s) > 0.5+1e-9 {
			t.Fatalf("sample %d exceeds ceiling: mono %f stereo %f", i, m, s)
		}
	}
}

func TestLimiterTransparentBelowThreshold(t *testing.T) {
	const lookahead = 64
	l := NewLimiter(0.5, lookahead)
	in := sine(1000, 0.3, 8192)
	for i, v := range in {
		m, _ := l.Process(v, 0)
		if i < lookahead {
			if m != 0 {
				t.Fatalf("sample %d: %f, want silence while priming", i, m)
			}
			continue
		}
		if math.Abs(m-in[i-lookahead]) > 1e-12 {
			t.Fatalf("sample %d: %f, want delayed input %f", i, m, in[i-lookahead])
		}
	}
}

func TestGoertzelAmplitude(t *testing.T) {
	g := NewGoertzel(19000, sampleRate, 11400)
	for _, v := range sine(19000, 0.8, 11400) {
		g.Feed(v)
	}
	if amp := g.Amplitude(); math.Abs(amp-0.8) > 0.05 {
		t.Errorf("19 kHz probe amplitude %f, want ~0.8", amp)
	}

	g.Reset()
	for _, v := range sine(1000, 0.8, 11400) {
		g.Feed(v)
	}
	if amp := g.Amplitude(); amp > 0.05 {
		t.Errorf("19 kHz probe picked up a 1 kHz tone: %f", amp)
	}
}
