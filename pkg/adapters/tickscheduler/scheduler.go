// Package tickscheduler implements the frame scheduler port with
// one-shot timers at a fixed display rate.
package tickscheduler

import (
	"time"

	"github.com/user/scrubview/pkg/ports"
)

// Scheduler schedules continuations one display-frame interval apart.
type Scheduler struct {
	interval time.Duration
}

// New creates a Scheduler ticking at the given frames per second.
// Non-positive fps falls back to 60.
func New(fps float64) *Scheduler {
	if fps <= 0 {
		fps = 60
	}
	return &Scheduler{interval: time.Duration(float64(time.Second) / fps)}
}

// Schedule arms a one-shot timer for the next frame interval. The
// returned cancel stops the timer; canceling after the callback ran is
// harmless.
func (s *Scheduler) Schedule(fn func()) ports.CancelFunc {
	timer := time.AfterFunc(s.interval, fn)
	return func() { timer.Stop() }
}

var _ ports.FrameScheduler = (*Scheduler)(nil)
