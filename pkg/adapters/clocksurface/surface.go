// Package clocksurface provides a wall-clock simulation of a media
// playback primitive. It is the fallback video surface when no decoded
// frame buffer is available: while playing, the position advances with
// real time multiplied by the playback rate.
package clocksurface

import (
	"sync"
	"time"

	"github.com/user/scrubview/pkg/ports"
)

// Surface implements ports.VideoSurface against a monotonic clock.
type Surface struct {
	mu sync.Mutex

	duration float64
	width    int
	height   int

	position float64
	rate     float64
	paused   bool
	lastTick time.Time

	now func() time.Time
}

// New creates a paused Surface with the given media metadata.
func New(durationSeconds float64, width, height int) *Surface {
	return newWithClock(durationSeconds, width, height, time.Now)
}

func newWithClock(durationSeconds float64, width, height int, now func() time.Time) *Surface {
	return &Surface{
		duration: durationSeconds,
		width:    width,
		height:   height,
		rate:     1.0,
		paused:   true,
		lastTick: now(),
		now:      now,
	}
}

// advance folds elapsed wall time into the position. Callers hold mu.
func (s *Surface) advance() {
	t := s.now()
	if !s.paused {
		s.position += t.Sub(s.lastTick).Seconds() * s.rate
		if s.position >= s.duration {
			s.position = s.duration
			s.paused = true
		}
		if s.position < 0 {
			s.position = 0
		}
	}
	s.lastTick = t
}

// Duration returns the media duration in seconds.
func (s *Surface) Duration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// CurrentTime returns the current playback position.
func (s *Surface) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	return s.position
}

// SetCurrentTime seeks to the given position, clamped to the media range.
func (s *Surface) SetCurrentTime(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	if t < 0 {
		t = 0
	}
	if t > s.duration {
		t = s.duration
	}
	s.position = t
}

// PlaybackRate returns the rate multiplier.
func (s *Surface) PlaybackRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// SetPlaybackRate sets the rate multiplier.
func (s *Surface) SetPlaybackRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.rate = rate
}

// Play resumes the clock.
func (s *Surface) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.paused = false
}

// Pause halts the clock.
func (s *Surface) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	s.paused = true
}

// Paused reports whether the clock is halted.
func (s *Surface) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	return s.paused
}

// Size returns the natural video dimensions.
func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Reload resets to the initial paused state at position zero.
func (s *Surface) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = 0
	s.rate = 1.0
	s.paused = true
	s.lastTick = s.now()
	return nil
}

var _ ports.VideoSurface = (*Surface)(nil)
