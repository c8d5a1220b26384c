// Package engine runs the delivery pipeline: composition at the
// internal rate, conversion to the delivery rate and playback through a
// sink, with clean drain on stop.
package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/imhsouna/PulseFM/internal/config"
	"github.com/imhsouna/PulseFM/internal/mpx"
	"github.com/imhsouna/PulseFM/internal/resample"
	"github.com/imhsouna/PulseFM/internal/ringbuffer"
)

var (
	// ErrAlreadyStreaming is returned by Start while a stream is active.
	ErrAlreadyStreaming = errors.New("engine: a stream is already active")
	// ErrSinkUnavailable wraps sink start failures.
	ErrSinkUnavailable = errors.New("engine: audio sink unavailable")
)

// State is the pipeline lifecycle.
type State int

const (
	Idle State = iota
	Streaming
)

func (s State) String() string {
	if s == Streaming {
		return "streaming"
	}
	return "idle"
}

const composeChunk = 2048

// ringSize buffers about 250 ms at the delivery rate, but never less
// than four compose chunks so a reader pull always fits.
func ringSize(rate int) int {
	size := rate / 4
	if size < 4*composeChunk {
		size = 4 * composeChunk
	}
	return size
}

// Engine owns at most one active stream. Configuration updates are
// validated on the caller's goroutine and handed to the streaming
// goroutine as an immutable snapshot, picked up at a chunk boundary.
type Engine struct {
	mu      sync.Mutex
	cfg     *config.Config
	sink    Sink
	log     *slog.Logger
	stream  *stream
	pending atomic.Pointer[config.Config]
}

type stream struct {
	comp *mpx.Composer
	conv *resample.Converter
	ring *ringbuffer.RingBuffer
	stop chan struct{}
	done chan struct{}
	err  error // written by the producer before done closes
}

// New builds an idle engine. cfg must already be validated.
func New(cfg *config.Config, sink Sink, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg.Clone(), sink: sink, log: log}
}

// State reports whether a stream is active. A stream whose producer
// failed mid-flight counts as idle; the failure is returned by the next
// Stop call.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil || e.streamDead() {
		return Idle
	}
	return Streaming
}

// streamDead reports whether the producer exited without a Stop call.
// Callers hold e.mu.
func (e *Engine) streamDead() bool {
	select {
	case <-e.stream.done:
		return true
	default:
		return false
	}
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() *config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Clone()
}

// Meters returns the composite level readings of the active stream, or
// zeros while idle.
func (e *Engine) Meters() mpx.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil || e.streamDead() {
		return mpx.Snapshot{}
	}
	return e.stream.comp.Meters().Snapshot()
}

// Start begins streaming src through the sink. It fails without side
// effects: a sink that cannot start leaves the engine idle.
func (e *Engine) Start(src mpx.Source) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream != nil {
		if !e.streamDead() {
			return ErrAlreadyStreaming
		}
		if err := e.teardownLocked(); err != nil {
			return err
		}
	}

	conv, err := resample.New(mpx.SampleRate, e.sink.SampleRate())
	if err != nil {
		return err
	}
	st := &stream{
		comp: mpx.NewComposer(e.cfg, src),
		conv: conv,
		ring: ringbuffer.New(ringSize(e.sink.SampleRate())),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	e.pending.Store(nil)
	go e.produce(st)

	if err := e.sink.Start(&sampleReader{ring: st.ring}); err != nil {
		close(st.stop)
		st.ring.Close()
		<-st.done
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	e.stream = st
	e.log.Info("stream started",
		"delivery_rate", e.sink.SampleRate(),
		"pi", fmt.Sprintf("%04X", e.cfg.Station.PI))
	return nil
}

// produce composes and converts until stopped, then flushes the
// converter tail and closes the ring so the sink drains to EOF.
func (e *Engine) produce(st *stream) {
	defer close(st.done)
	buf := make([]float64, composeChunk)
	for {
		select {
		case <-st.stop:
			if tail, err := st.conv.Flush(); err == nil {
				st.ring.Write(tail)
			}
			st.ring.Close()
			return
		default:
		}
		if cfg := e.pending.Swap(nil); cfg != nil {
			st.comp.Apply(cfg)
		}
		st.comp.Samples(buf)
		out, err := st.conv.Process(buf)
		if err != nil {
			e.log.Error("rate conversion failed", "err", err)
			st.err = err
			st.ring.Close()
			return
		}
		if !st.ring.Write(out) {
			return
		}
	}
}

// Stop ends the active stream. It returns once the sink has played
// everything composed before the stop, so a following Start never
// overlaps the old stream.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		return nil
	}
	if !e.streamDead() {
		close(e.stream.stop)
	}
	return e.teardownLocked()
}

// teardownLocked waits out the producer, closes the sink and frees the
// stream slot, reporting the producer's failure if it had one. Callers
// hold e.mu.
func (e *Engine) teardownLocked() error {
	st := e.stream
	<-st.done
	err := errors.Join(st.err, e.sink.Close())
	e.stream = nil
	e.log.Info("stream stopped")
	return err
}

// Update validates a mutated copy of the configuration and makes it
// current. An active stream picks it up at the next chunk boundary; a
// failed validation changes nothing.
func (e *Engine) Update(mutate func(*config.Config)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.cfg.Clone()
	mutate(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	if e.stream != nil {
		e.pending.Store(cfg.Clone())
	}
	return nil
}

// SetRadioText updates the RadioText at the next chunk boundary.
func (e *Engine) SetRadioText(rt string) error {
	return e.Update(func(c *config.Config) { c.Station.RadioText = rt })
}

// SetPS updates the programme service name.
func (e *Engine) SetPS(ps string) error {
	return e.Update(func(c *config.Config) { c.Station.PS = ps })
}

// SetTA flips the traffic announcement flag.
func (e *Engine) SetTA(ta bool) error {
	return e.Update(func(c *config.Config) { c.Station.TA = ta })
}

// sampleReader converts ring samples to float32 little-endian bytes
// for the sink. It reports EOF once the ring is closed and drained.
type sampleReader struct {
	ring *ringbuffer.RingBuffer
}

func (r *sampleReader) Read(p []byte) (int, error) {
	want := len(p) / 4
	if want == 0 {
		return 0, io.ErrShortBuffer
	}
	if want > composeChunk {
		want = composeChunk
	}
	samples := r.ring.Read(want)
	if samples == nil {
		return 0, io.EOF
	}
	for i, v := range samples {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(float32(v)))
	}
	return 4 * len(samples), nil
}
