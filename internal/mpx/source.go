package mpx

// Source supplies baseband audio frames at the internal sample rate.
// Implementations are pulled from the streaming goroutine and must not
// block.
type Source interface {
	// NextFrame returns the next left/right pair in the range -1..1.
	NextFrame() (left, right float64)
}

// Silence is a Source producing zero audio. The composer still emits
// pilot and RDS over it.
type Silence struct{}

func (Silence) NextFrame() (float64, float64) { return 0, 0 }

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() (float64, float64)

func (f SourceFunc) NextFrame() (float64, float64) { return f() }
