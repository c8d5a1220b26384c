package wavio

import (
	"fmt"
	"io"
	"time"

	"github.com/go-audio/wav"

	"github.com/imhsouna/PulseFM/internal/mpx"
)

const exportChunk = 2048

// Export renders the composite to w as a mono IEEE float WAV at the
// internal 228 kHz rate. progress, when non-nil, is called after each
// chunk with frames written so far and the total.
func Export(w io.WriteSeeker, c *mpx.Composer, duration time.Duration, progress func(done, total int)) error {
	total := int(duration.Seconds() * mpx.SampleRate)
	if total <= 0 {
		return fmt.Errorf("wavio: export duration %s too short", duration)
	}

	enc := wav.NewEncoder(w, mpx.SampleRate, 32, 1, 3)
	buf := make([]float64, exportChunk)
	for done := 0; done < total; {
		n := len(buf)
		if rest := total - done; rest < n {
			n = rest
		}
		c.Samples(buf[:n])
		for _, v := range buf[:n] {
			if err := enc.WriteFrame(float32(v)); err != nil {
				return fmt.Errorf("wavio: write frame: %w", err)
			}
		}
		done += n
		if progress != nil {
			progress(done, total)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavio: finalize WAV: %w", err)
	}
	return nil
}
