// Package scrub converts normalized progress updates into frame-accurate
// time-position updates, driven by a per-display-frame cooperative loop.
package scrub

import (
	"math"
	"sync"
	"time"

	"github.com/user/scrubview/pkg/framebuffer"
	"github.com/user/scrubview/pkg/ports"
)

// Tunables holds the empirically chosen smoothing parameters. The rate
// gain and hard cap have no documented derivation; they are carried as
// configuration rather than recomputed.
type Tunables struct {
	// TransitionSpeedCap is the maximum playback-rate multiplier.
	TransitionSpeedCap float64
	// FrameThreshold is the gap in seconds below which the target
	// counts as reached.
	FrameThreshold float64
	// RateGain scales remaining distance into a playback rate.
	RateGain float64
	// RateLimit is the hard ceiling on the playback rate.
	RateLimit float64
}

// DefaultTunables returns the stock smoothing parameters.
func DefaultTunables() Tunables {
	return Tunables{
		TransitionSpeedCap: 8,
		FrameThreshold:     0.1,
		RateGain:           4,
		RateLimit:          16,
	}
}

// Capabilities describes platform quirks the controller must work
// around. Passing them in keeps the transition algorithm itself
// platform-agnostic.
type Capabilities struct {
	// DirectSeekForward forces direct time assignment for forward
	// motion on engines known to mis-handle variable-rate playback.
	DirectSeekForward bool
}

// PaintFunc paints the buffered frame at the given index.
type PaintFunc func(frameIndex int)

// session is one cancellable run of the update loop pursuing a single
// target. A canceled session never executes another step.
type session struct {
	canceled   bool
	cancelNext ports.CancelFunc
	forward    bool

	// Start diagnostics, not used by the motion math.
	startedAt     time.Time
	startPosition float64
}

func (s *session) cancel() {
	s.canceled = true
	if s.cancelNext != nil {
		s.cancelNext()
	}
}

// Controller owns the playback position state. At most one session is
// active at a time; a new progress update supersedes the previous one.
// Scheduler callbacks may fire on timer goroutines, so all state is
// guarded by one mutex.
type Controller struct {
	mu        sync.Mutex
	surface   ports.VideoSurface
	buffer    *framebuffer.Buffer
	paint     PaintFunc
	scheduler ports.FrameScheduler
	logger    ports.Logger
	tunables  Tunables
	caps      Capabilities

	videoProgress float64
	currentTime   float64
	targetTime    float64
	active        *session
}

// New creates a Controller. The buffer may be nil or empty, in which
// case only the direct-seek and rate-modulated modes are used.
func New(surface ports.VideoSurface, buffer *framebuffer.Buffer, paint PaintFunc, scheduler ports.FrameScheduler, logger ports.Logger, tunables Tunables, caps Capabilities) *Controller {
	return &Controller{
		surface:   surface,
		buffer:    buffer,
		paint:     paint,
		scheduler: scheduler,
		logger:    logger.WithComponent("scrub"),
		tunables:  tunables,
		caps:      caps,
		// NaN never compares equal, so the first real progress value is
		// always accepted.
		videoProgress: math.NaN(),
	}
}

// SetProgress accepts a normalized progress value in [0,1]. Repeating
// the last accepted value is a no-op; otherwise the active session is
// superseded and a new transition starts on the next display frame.
func (c *Controller) SetProgress(p float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p == c.videoProgress {
		return
	}
	c.videoProgress = p
	c.currentTime = c.surface.CurrentTime()
	c.targetTime = p * c.surface.Duration()
	c.logger.Debug("Progress %.3f -> target %.3fs", p, c.targetTime)

	if c.active != nil {
		c.active.cancel()
	}
	s := &session{
		forward:       c.targetTime > c.currentTime,
		startedAt:     time.Now(),
		startPosition: c.currentTime,
	}
	c.active = s
	s.cancelNext = c.scheduler.Schedule(func() { c.step(s) })
}

// Active reports whether a transition is in flight.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// CurrentTime returns the last confirmed position in seconds.
func (c *Controller) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

// Destroy cancels any pending continuation. The controller must not be
// used afterwards.
func (c *Controller) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.cancel()
		c.active = nil
	}
}

// step is the session's repeating unit of work: terminate, clamp,
// select a mode, move, reschedule.
func (c *Controller) step(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.canceled {
		return
	}

	if c.done(s) {
		c.stop(s)
		return
	}

	// Clamp the target into the media range before computing motion, so
	// overshoot detection sees the reachable target.
	c.targetTime = clamp(c.targetTime, 0, c.surface.Duration())
	target := c.targetTime

	switch {
	case c.buffer != nil && c.buffer.Len() > 0:
		// Frame-buffer mode: exact jump onto the target frame.
		c.currentTime = target
		c.paint(c.buffer.IndexForTime(c.currentTime))

	case !s.forward || c.caps.DirectSeekForward:
		// Reverse playback via negative rate isn't available anywhere,
		// and quirky engines mis-handle forward rate changes; direct
		// time assignment is the only correct option for both.
		c.surface.Pause()
		c.currentTime = target
		c.surface.SetCurrentTime(target)
		c.logger.Debug("Direct seek to %.3fs", target)

	default:
		distance := target - c.currentTime
		rate := clamp(distance*c.tunables.RateGain, 1, math.Min(c.tunables.TransitionSpeedCap, c.tunables.RateLimit))
		c.surface.SetPlaybackRate(rate)
		c.surface.Play()
		// Real playback doesn't land exactly on the target between
		// steps; trust the surface's reported position.
		c.currentTime = c.surface.CurrentTime()
		c.logger.Debug("Rate-modulated play at %.2fx", rate)
	}

	s.cancelNext = c.scheduler.Schedule(func() { c.step(s) })
}

// done checks the termination conditions: invalid target, gap below the
// frame threshold, or direction-aware overshoot.
func (c *Controller) done(s *session) bool {
	if math.IsNaN(c.targetTime) || math.IsInf(c.targetTime, 0) {
		return true
	}
	if math.Abs(c.targetTime-c.currentTime) < c.tunables.FrameThreshold {
		return true
	}
	if s.forward && c.currentTime >= c.targetTime {
		return true
	}
	if !s.forward && c.currentTime <= c.targetTime {
		return true
	}
	return false
}

// stop pauses playback, cancels the scheduled continuation and clears
// the session.
func (c *Controller) stop(s *session) {
	c.surface.Pause()
	s.cancel()
	if c.active == s {
		c.active = nil
	}
	c.logger.Debug("Transition finished at %.3fs", c.currentTime)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
