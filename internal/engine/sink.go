package engine

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Sink consumes delivery-rate mono float32 little-endian samples by
// pulling from a reader. Close blocks until everything the reader
// produced has been delivered.
type Sink interface {
	SampleRate() int
	Start(r io.Reader) error
	Close() error
}

// The oto context binds the process to one sample rate and cannot be
// torn down, so it is created once and shared by every stream.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func sharedContext(rate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
		})
		if otoErr == nil {
			<-ready
			otoRate = rate
		}
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != rate {
		return nil, fmt.Errorf("audio device is bound to %d Hz, cannot reopen at %d Hz", otoRate, rate)
	}
	return otoCtx, nil
}

// OtoSink plays the composite on the default audio device.
type OtoSink struct {
	rate   int
	player *oto.Player
}

func NewOtoSink(rate int) *OtoSink {
	return &OtoSink{rate: rate}
}

func (s *OtoSink) SampleRate() int { return s.rate }

func (s *OtoSink) Start(r io.Reader) error {
	ctx, err := sharedContext(s.rate)
	if err != nil {
		return err
	}
	s.player = ctx.NewPlayer(r)
	s.player.Play()
	return nil
}

// Close waits for the player to finish what the reader produced, then
// releases it. The reader must have reached EOF for playback to end.
func (s *OtoSink) Close() error {
	if s.player == nil {
		return nil
	}
	for s.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	err := s.player.Close()
	s.player = nil
	return err
}
