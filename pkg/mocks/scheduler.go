// Package mocks provides hand-written test doubles for the ports.
package mocks

import (
	"github.com/user/scrubview/pkg/ports"
)

type scheduled struct {
	fn       func()
	canceled bool
}

// Scheduler is a manual implementation of ports.FrameScheduler. Tests
// step the per-frame loop synchronously with no real clock.
type Scheduler struct {
	queue []*scheduled
}

// Schedule records one continuation for Step to run.
func (s *Scheduler) Schedule(fn func()) ports.CancelFunc {
	entry := &scheduled{fn: fn}
	s.queue = append(s.queue, entry)
	return func() { entry.canceled = true }
}

// Step runs the next pending continuation. Returns false when nothing
// runnable remains.
func (s *Scheduler) Step() bool {
	for len(s.queue) > 0 {
		entry := s.queue[0]
		s.queue = s.queue[1:]
		if entry.canceled {
			continue
		}
		entry.fn()
		return true
	}
	return false
}

// RunAll steps until the queue drains or max steps have run, returning
// the number of continuations executed.
func (s *Scheduler) RunAll(max int) int {
	ran := 0
	for ran < max && s.Step() {
		ran++
	}
	return ran
}

// Pending returns the number of scheduled, uncanceled continuations.
func (s *Scheduler) Pending() int {
	n := 0
	for _, entry := range s.queue {
		if !entry.canceled {
			n++
		}
	}
	return n
}

var _ ports.FrameScheduler = (*Scheduler)(nil)
