package wavio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imhsouna/PulseFM/internal/config"
	"github.com/imhsouna/PulseFM/internal/dsp"
	"github.com/imhsouna/PulseFM/internal/mpx"
)

// readFloatWAV parses the exported file without go-audio, so the test
// checks the bytes on disk rather than a decode round trip.
func readFloatWAV(t *testing.T, path string) (samples []float64, rate int) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		t.Fatal("not a RIFF/WAVE file")
	}
	pos := 12
	for pos+8 <= len(raw) {
		id := string(raw[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		body := raw[pos+8 : pos+8+size]
		switch id {
		case "fmt ":
			if format := binary.LittleEndian.Uint16(body[0:2]); format != 3 {
				t.Fatalf("audio format %d, want IEEE float (3)", format)
			}
			rate = int(binary.LittleEndian.Uint32(body[4:8]))
			if bits := binary.LittleEndian.Uint16(body[14:16]); bits != 32 {
				t.Fatalf("bit depth %d, want 32", bits)
			}
		case "data":
			for i := 0; i+4 <= len(body); i += 4 {
				samples = append(samples, float64(math.Float32frombits(binary.LittleEndian.Uint32(body[i:i+4]))))
			}
		}
		pos += 8 + size + size%2
	}
	if rate == 0 || len(samples) == 0 {
		t.Fatal("fmt or data chunk missing")
	}
	return samples, rate
}

// refRemainder divides block<<10 by the full generator polynomial.
func refRemainder(info uint16) uint16 {
	const generator = 0x5B9
	rem := uint32(info) << 10
	for bit := 25; bit >= 10; bit-- {
		if rem&(1<<uint(bit)) != 0 {
			rem ^= generator << uint(bit-10)
		}
	}
	return uint16(rem & 0x3FF)
}

var blockOffsets = [4]uint16{0x0FC, 0x198, 0x168, 0x1B4}

func TestExportedCompositeCarriesDecodableRDS(t *testing.T) {
	if testing.Short() {
		t.Skip("renders 10 s of composite")
	}

	cfg := config.Default()
	cfg.Station.PI = 0x1234
	cfg.Station.PS = "RASP-PI "
	cfg.Station.RadioText = "Hello, world"
	cfg.Station.CT = false
	cfg.Processing.PreemphasisUS = 0

	path := filepath.Join(t.TempDir(), "mpx.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	comp := mpx.NewComposer(cfg, mpx.Silence{})
	require.NoError(t, Export(f, comp, 10*time.Second, nil))
	f.Close()

	samples, rate := readFloatWAV(t, path)
	require.Equal(t, mpx.SampleRate, rate)
	require.Len(t, samples, 10*mpx.SampleRate)
	for i, v := range samples {
		if math.Abs(v) > 1 {
			t.Fatalf("sample %d is %f, exported composite clipped", i, v)
		}
	}

	// Pilot at its configured injection level.
	g := dsp.NewGoertzel(19000, mpx.SampleRate, 22800)
	for _, v := range samples[:22800] {
		g.Feed(v)
	}
	assert.InDelta(t, 0.9*mpx.OutputScale, g.Amplitude(), 0.01, "pilot amplitude")

	// Hard-decision RDS decode. Each data bit has a decision instant at
	// sample 192n+385, where the silent composite reduces to a constant
	// pilot term plus the signed symbol peak (neighbouring symbols leak
	// a few percent, not enough to flip a decision). Subtracting the
	// mean leaves the symbol sign; the waveform pair puts its negative
	// peak on a one, so below-mean reads as a one.
	var decisions []float64
	for i := 385; i < len(samples); i += 192 {
		decisions = append(decisions, samples[i])
	}
	mean := 0.0
	for _, v := range decisions {
		mean += v
	}
	mean /= float64(len(decisions))

	bits := make([]byte, len(decisions))
	prev := byte(0)
	for i, v := range decisions {
		level := byte(0)
		if v < mean {
			level = 1
		}
		bits[i] = level ^ prev
		prev = level
	}

	var (
		ps     [8]byte
		psSeen int
		rt     [64]byte
		rtSeen int
	)
	for gstart := 0; gstart+104 <= len(bits); gstart += 104 {
		var info [4]uint16
		for b := 0; b < 4; b++ {
			var word uint32
			for _, bit := range bits[gstart+26*b : gstart+26*b+26] {
				word = word<<1 | uint32(bit)
			}
			info[b] = uint16(word >> 10)
			if check := uint16(word & 0x3FF); check != refRemainder(info[b])^blockOffsets[b] {
				t.Fatalf("group at bit %d block %d fails checksum", gstart, b)
			}
		}
		if info[0] != 0x1234 {
			t.Fatalf("PI %04X, want 1234", info[0])
		}
		switch info[1] >> 11 {
		case 0: // 0A
			seg := int(info[1] & 0x3)
			ps[2*seg] = byte(info[3] >> 8)
			ps[2*seg+1] = byte(info[3])
			psSeen |= 1 << seg
		case 4: // 2A
			seg := int(info[1] & 0xF)
			rt[4*seg] = byte(info[2] >> 8)
			rt[4*seg+1] = byte(info[2])
			rt[4*seg+2] = byte(info[3] >> 8)
			rt[4*seg+3] = byte(info[3])
			rtSeen |= 1 << seg
		}
	}

	require.Equal(t, 0xF, psSeen, "PS segments seen")
	assert.Equal(t, "RASP-PI ", string(ps[:]), "decoded PS")
	require.Equal(t, 0xFFFF, rtSeen, "RT segments seen")
	assert.Equal(t, "Hello, world", strings.TrimRight(string(rt[:]), " "), "decoded RadioText")
}

func TestExportReportsProgress(t *testing.T) {
	cfg := config.Default()
	cfg.Station.CT = false

	path := filepath.Join(t.TempDir(), "short.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	var last, calls int
	err = Export(f, mpx.NewComposer(cfg, mpx.Silence{}), 100*time.Millisecond, func(done, total int) {
		if done <= last || done > total {
			t.Fatalf("progress went from %d to %d of %d", last, done, total)
		}
		last = done
		calls++
	})
	require.NoError(t, err)
	assert.Equal(t, mpx.SampleRate/10, last, "final progress")
	assert.GreaterOrEqual(t, calls, 2, "progress calls")
}

func TestExportRejectsZeroDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	err = Export(f, mpx.NewComposer(config.Default(), mpx.Silence{}), 0, nil)
	assert.Error(t, err, "Export accepted a zero duration")
}
