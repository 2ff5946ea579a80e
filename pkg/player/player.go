// Package player wires the decode pipeline, transition controller and
// paint surface into one scrubbing session.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/user/scrubview/pkg/adapters/clocksurface"
	"github.com/user/scrubview/pkg/adapters/ffmpegdecoder"
	"github.com/user/scrubview/pkg/adapters/logger"
	"github.com/user/scrubview/pkg/adapters/mp4demux"
	"github.com/user/scrubview/pkg/adapters/nullsink"
	"github.com/user/scrubview/pkg/adapters/tickscheduler"
	"github.com/user/scrubview/pkg/decodepipe"
	"github.com/user/scrubview/pkg/framebuffer"
	"github.com/user/scrubview/pkg/ports"
	"github.com/user/scrubview/pkg/scrub"
)

// ErrConfiguration is returned when construction options are unusable.
// Construction failures leave no usable player behind.
var ErrConfiguration = errors.New("player: invalid configuration")

// Options configures a Player. Src and PaintTarget are required; every
// other collaborator has a production default.
type Options struct {
	// Src locates the video resource. Required.
	Src string
	// PaintTarget receives painted frames. Required.
	PaintTarget ports.PaintSurface

	// Surface is the playback primitive used for fallback control. When
	// nil, a clock-driven simulation is created after decode.
	Surface ports.VideoSurface

	// FrameDecode toggles whether the decode pipeline is attempted at
	// all. Nil means attempt.
	FrameDecode *bool

	// OnReady is invoked exactly once: after the first-frame paint, or
	// after a decode failure/empty-result fallback. Never both, never
	// zero times if construction succeeds and Load runs.
	OnReady func(frameCount int)

	Tunables     scrub.Tunables
	Capabilities scrub.Capabilities
	DecodeConfig decodepipe.Config
	FFmpegPath   string
	TickFPS      float64

	// Injectable collaborators, defaulted in New.
	Scheduler ports.FrameScheduler
	Fetcher   ports.Fetcher
	Demuxer   ports.ContainerDemuxer
	Decoder   ports.VideoDecoder
	Sink      ports.FrameSink
	Logger    ports.Logger
}

// Player drives frame-accurate scrubbing of one video resource.
type Player struct {
	opts   Options
	logger ports.Logger

	buffer  *framebuffer.Buffer
	surface ports.VideoSurface
	ctrl    *scrub.Controller

	readyOnce sync.Once
	loaded    bool
}

// New validates options and creates an unloaded Player.
func New(opts Options) (*Player, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}

	if opts.Src == "" {
		log.Error("Missing source locator")
		return nil, fmt.Errorf("%w: missing source", ErrConfiguration)
	}
	if opts.PaintTarget == nil {
		log.Error("Missing paint target")
		return nil, fmt.Errorf("%w: missing paint target", ErrConfiguration)
	}

	if opts.Scheduler == nil {
		opts.Scheduler = tickscheduler.New(opts.TickFPS)
	}
	if opts.Sink == nil {
		opts.Sink = nullsink.New()
	}
	if opts.Tunables == (scrub.Tunables{}) {
		opts.Tunables = scrub.DefaultTunables()
	}
	if opts.DecodeConfig == (decodepipe.Config{}) {
		opts.DecodeConfig = decodepipe.DefaultConfig()
	}

	return &Player{opts: opts, logger: log.WithComponent("player")}, nil
}

// Load fetches and decodes the resource, then assembles the transition
// controller. Decode failures never escape: they degrade to direct
// surface control, and OnReady fires either way.
func (p *Player) Load(ctx context.Context) error {
	if p.loaded {
		return nil
	}
	p.loaded = true
	p.surface = p.opts.Surface

	if p.decodeWanted() {
		p.runPipeline(ctx)
	}

	if p.surface == nil {
		// Without a decode result there is no duration to simulate:
		// construction succeeded but nothing can play.
		p.fireReady(0)
		return fmt.Errorf("%w: no playback surface and no decoded frames", ErrConfiguration)
	}

	p.ctrl = scrub.New(p.surface, p.buffer, p.paintFrame, p.opts.Scheduler, p.logger, p.opts.Tunables, p.opts.Capabilities)

	if p.buffer != nil && p.buffer.Len() > 0 {
		p.paintFrame(0)
		p.fireReady(p.buffer.Len())
	} else {
		p.fireReady(0)
	}
	return nil
}

// decodeWanted reports whether the decode pipeline should run at all:
// the option must allow it and a decoder must actually be available.
// When platform decode support is absent the pipeline is never invoked.
func (p *Player) decodeWanted() bool {
	if p.opts.FrameDecode != nil && !*p.opts.FrameDecode {
		return false
	}
	if p.opts.Decoder != nil {
		return true
	}
	return ffmpegdecoder.Available(ffmpegdecoder.Options{FFmpegPath: p.opts.FFmpegPath})
}

// runPipeline attempts the decode pipeline and falls back cleanly on
// any failure.
func (p *Player) runPipeline(ctx context.Context) {
	if p.opts.Fetcher == nil {
		p.logger.Warn("No fetcher configured, skipping frame decode")
		return
	}
	demuxer := p.opts.Demuxer
	if demuxer == nil {
		demuxer = mp4demux.New(p.logger)
	}
	decoder := p.opts.Decoder
	if decoder == nil {
		decoder = ffmpegdecoder.New(ffmpegdecoder.Options{FFmpegPath: p.opts.FFmpegPath}, p.logger)
	}

	// The decode phase owns the only pause the pipeline ever issues.
	if p.surface != nil {
		p.surface.Pause()
	}

	pipe := decodepipe.New(p.opts.Fetcher, demuxer, decoder, p.opts.Sink, p.logger, p.opts.DecodeConfig)
	buffer, err := pipe.Run(ctx, p.opts.Src)
	if err != nil {
		p.logger.Warn("Falling back to direct playback: %v", err)
		if p.surface != nil {
			p.surface.Reload()
		}
		return
	}

	p.buffer = buffer
	if p.surface == nil {
		width, height := 0, 0
		if f := buffer.FrameAt(0); f != nil {
			width, height = f.Bounds().Dx(), f.Bounds().Dy()
		}
		p.surface = clocksurface.New(pipe.Duration(), width, height)
	}
}

// SetProgress drives the transition controller with a normalized
// progress value in [0,1].
func (p *Player) SetProgress(progress float64) {
	if p.ctrl == nil {
		return
	}
	p.ctrl.SetProgress(progress)
}

// Scrubbing reports whether a transition is in flight.
func (p *Player) Scrubbing() bool {
	return p.ctrl != nil && p.ctrl.Active()
}

// FrameCount returns the number of decoded frames, zero in degraded
// mode.
func (p *Player) FrameCount() int {
	if p.buffer == nil {
		return 0
	}
	return p.buffer.Len()
}

// CurrentTime returns the last confirmed playback position in seconds.
func (p *Player) CurrentTime() float64 {
	if p.ctrl == nil {
		return 0
	}
	return p.ctrl.CurrentTime()
}

// HandleResize resizes the paint surface and repaints the frame at the
// current position.
func (p *Player) HandleResize(width, height int) {
	p.opts.PaintTarget.Resize(width, height)
	p.logger.Debug("Surface resized to %dx%d", width, height)
	p.repaint()
}

// HandleBufferingProgress is an alias for resize: buffering can change
// the decoded natural size.
func (p *Player) HandleBufferingProgress() {
	width, height := p.opts.PaintTarget.Size()
	if width == 0 || height == 0 {
		return
	}
	p.HandleResize(width, height)
}

// Destroy cancels any in-flight transition and releases the decoded
// frames.
func (p *Player) Destroy() {
	if p.ctrl != nil {
		p.ctrl.Destroy()
	}
	if p.buffer != nil {
		p.buffer.Release()
	}
}

// paintFrame paints one buffered frame onto the target.
func (p *Player) paintFrame(index int) {
	if p.buffer == nil {
		return
	}
	p.opts.PaintTarget.Paint(p.buffer.FrameAt(index))
}

func (p *Player) repaint() {
	if p.buffer == nil || p.buffer.Len() == 0 || p.ctrl == nil {
		return
	}
	p.paintFrame(p.buffer.IndexForTime(p.ctrl.CurrentTime()))
}

func (p *Player) fireReady(frameCount int) {
	p.readyOnce.Do(func() {
		p.logger.Info("Player ready: %d frames", frameCount)
		if p.opts.OnReady != nil {
			p.opts.OnReady(frameCount)
		}
	})
}
