// Package wavio reads WAV programme audio and writes the composite to
// WAV files.
package wavio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/imhsouna/PulseFM/internal/mpx"
	"github.com/imhsouna/PulseFM/internal/resample"
)

// ErrFloatInput is returned when the input file carries IEEE float
// samples. Ingest is integer PCM only.
var ErrFloatInput = errors.New("wavio: float WAV input is not supported")

const loadChunk = 8192

// Track is programme audio resampled to the internal rate. It
// implements mpx.Source; past the end it loops or goes silent. The
// position is atomic so Done can poll from outside the streaming
// goroutine.
type Track struct {
	left  []float64
	right []float64
	loop  bool
	pos   atomic.Int64
}

// Load decodes a WAV file and resamples it to the internal 228 kHz
// rate. Mono files play on both channels.
func Load(path string, loop bool) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("wavio: %s is not a valid WAV file", path)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: %s", ErrFloatInput, path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("wavio: seek to PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("wavio: %d channels, want mono or stereo", channels)
	}
	left, right, err := readPCM(dec, channels)
	if err != nil {
		return nil, err
	}

	left, err = toInternalRate(left, int(dec.SampleRate))
	if err != nil {
		return nil, err
	}
	right, err = toInternalRate(right, int(dec.SampleRate))
	if err != nil {
		return nil, err
	}
	return &Track{left: left, right: right, loop: loop}, nil
}

func readPCM(dec *wav.Decoder, channels int) (left, right []float64, err error) {
	scale := float64(int(1) << (dec.BitDepth - 1))
	offset := 0.0
	if dec.BitDepth == 8 {
		// 8-bit WAV is unsigned.
		offset = -128
		scale = 128
	}

	buf := &audio.IntBuffer{
		Format: dec.Format(),
		Data:   make([]int, loadChunk*channels),
	}
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil && err != io.EOF {
			return nil, nil, fmt.Errorf("wavio: read PCM: %w", err)
		}
		if n == 0 {
			break
		}
		for i := 0; i+channels <= n; i += channels {
			l := (float64(buf.Data[i]) + offset) / scale
			r := l
			if channels == 2 {
				r = (float64(buf.Data[i+1]) + offset) / scale
			}
			left = append(left, l)
			right = append(right, r)
		}
		if err == io.EOF {
			break
		}
	}
	return left, right, nil
}

func toInternalRate(samples []float64, rate int) ([]float64, error) {
	if rate == mpx.SampleRate {
		return samples, nil
	}
	conv, err := resample.New(rate, mpx.SampleRate)
	if err != nil {
		return nil, err
	}
	out, err := conv.Process(samples)
	if err != nil {
		return nil, err
	}
	resampled := append([]float64(nil), out...)
	tail, err := conv.Flush()
	if err != nil {
		return nil, err
	}
	return append(resampled, tail...), nil
}

// Frames returns the track length at the internal rate.
func (t *Track) Frames() int { return len(t.left) }

// Done reports whether a non-looping track has played out. Safe to
// call while another goroutine consumes frames.
func (t *Track) Done() bool { return !t.loop && t.pos.Load() >= int64(len(t.left)) }

// NextFrame implements mpx.Source.
func (t *Track) NextFrame() (float64, float64) {
	pos := t.pos.Load()
	if pos >= int64(len(t.left)) {
		if !t.loop || len(t.left) == 0 {
			return 0, 0
		}
		pos = 0
	}
	l, r := t.left[pos], t.right[pos]
	t.pos.Store(pos + 1)
	return l, r
}
