package mocks

import (
	"github.com/user/scrubview/pkg/ports"
)

// Surface is a stateful mock of ports.VideoSurface. Position only moves
// when a test moves it, so update steps are fully deterministic.
type Surface struct {
	DurationVal float64
	Position    float64
	Rate        float64
	PausedVal   bool
	Width       int
	Height      int

	SeekCalls  []float64
	RateCalls  []float64
	PlayCount  int
	PauseCount int
	ReloadFunc func() error
}

// NewSurface creates a paused mock surface with the given duration.
func NewSurface(duration float64) *Surface {
	return &Surface{DurationVal: duration, Rate: 1.0, PausedVal: true, Width: 640, Height: 360}
}

func (m *Surface) Duration() float64 { return m.DurationVal }

func (m *Surface) CurrentTime() float64 { return m.Position }

func (m *Surface) SetCurrentTime(t float64) {
	m.Position = t
	m.SeekCalls = append(m.SeekCalls, t)
}

func (m *Surface) PlaybackRate() float64 { return m.Rate }

func (m *Surface) SetPlaybackRate(rate float64) {
	m.Rate = rate
	m.RateCalls = append(m.RateCalls, rate)
}

func (m *Surface) Play() {
	m.PausedVal = false
	m.PlayCount++
}

func (m *Surface) Pause() {
	m.PausedVal = true
	m.PauseCount++
}

func (m *Surface) Paused() bool { return m.PausedVal }

func (m *Surface) Size() (int, int) { return m.Width, m.Height }

func (m *Surface) Reload() error {
	if m.ReloadFunc != nil {
		return m.ReloadFunc()
	}
	m.Position = 0
	m.Rate = 1.0
	m.PausedVal = true
	return nil
}

var _ ports.VideoSurface = (*Surface)(nil)
