// Package decodepipe turns a container resource reference into an
// ordered frame buffer. The callback-driven demux/decode protocol is
// modeled as explicit states with one handler per incoming event and a
// single owned buffer collecting output.
package decodepipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"time"

	"github.com/user/scrubview/pkg/codecconfig"
	"github.com/user/scrubview/pkg/framebuffer"
	"github.com/user/scrubview/pkg/ports"
)

var (
	// ErrInvalidContainer is returned when the resource has no usable
	// video track.
	ErrInvalidContainer = errors.New("decodepipe: invalid container")
	// ErrDecode is returned when decoder construction, configuration or
	// operation fails.
	ErrDecode = errors.New("decodepipe: decode failed")
)

// State names the pipeline phases.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateConfiguring
	StateDecoding
	StateDraining
	StateComplete
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateConfiguring:
		return "configuring"
	case StateDecoding:
		return "decoding"
	case StateDraining:
		return "draining"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds the pipeline tunables.
type Config struct {
	// SettleDelay is the debounce between the decoder queue reaching
	// zero and closing the decoder, admitting in-flight output callbacks.
	SettleDelay time.Duration
	// DrainPoll is the interval at which the pending-work count is
	// rechecked while draining.
	DrainPoll time.Duration
}

// DefaultConfig returns the default pipeline tunables.
func DefaultConfig() Config {
	return Config{
		SettleDelay: 500 * time.Millisecond,
		DrainPoll:   10 * time.Millisecond,
	}
}

// Pipeline owns the decoder instance and the frame buffer being filled.
type Pipeline struct {
	fetcher ports.Fetcher
	demuxer ports.ContainerDemuxer
	decoder ports.VideoDecoder
	sink    ports.FrameSink
	logger  ports.Logger
	cfg     Config

	state       State
	buffer      *framebuffer.Buffer
	duration    float64
	sampleEndMs int
}

// New creates a Pipeline.
func New(fetcher ports.Fetcher, demuxer ports.ContainerDemuxer, decoder ports.VideoDecoder, sink ports.FrameSink, logger ports.Logger, cfg Config) *Pipeline {
	if cfg.DrainPoll <= 0 {
		cfg.DrainPoll = DefaultConfig().DrainPoll
	}
	return &Pipeline{
		fetcher: fetcher,
		demuxer: demuxer,
		decoder: decoder,
		sink:    sink,
		logger:  logger.WithComponent("decodepipe"),
		cfg:     cfg,
	}
}

// State returns the current pipeline phase.
func (p *Pipeline) State() State {
	return p.state
}

// Duration returns the source duration in seconds, known once the
// container is ready.
func (p *Pipeline) Duration() float64 {
	return p.duration
}

// Run streams, demuxes and decodes the resource, returning the frozen
// frame buffer. On any failure the buffer is discarded and the caller
// must fall back to direct playback.
func (p *Pipeline) Run(ctx context.Context, src string) (*framebuffer.Buffer, error) {
	p.state = StateFetching
	p.buffer = framebuffer.New()
	p.demuxer.SetHandlers(p.handleReady, p.handleSamples)

	p.logger.Info("Fetching %s", src)
	started := time.Now()

	if err := p.fetcher.Fetch(ctx, src, p.demuxer.AppendChunk); err != nil {
		return nil, p.fail(err)
	}
	if err := p.demuxer.EndOfStream(); err != nil {
		return nil, p.fail(err)
	}
	if p.state != StateDecoding {
		// Ready never fired: nothing decodable arrived.
		return nil, p.fail(ErrInvalidContainer)
	}

	p.logger.Debug("Flushing decoder")
	if err := p.decoder.Flush(); err != nil {
		return nil, p.fail(err)
	}

	p.state = StateDraining
	if err := p.drain(ctx); err != nil {
		return nil, p.fail(err)
	}

	p.decoder.Close()
	if p.duration == 0 {
		// Fragmented containers routinely leave the movie duration at
		// zero; the sample timeline is authoritative then.
		p.duration = float64(p.sampleEndMs) / 1000
		p.logger.Debug("Container reports no duration, using sample timeline: %.3f s", p.duration)
	}
	p.buffer.Freeze(p.duration)
	p.state = StateComplete
	p.logger.Info("Decoded %d frames in %d ms", p.buffer.Len(), time.Since(started).Milliseconds())
	p.writeMetadata()

	return p.buffer, nil
}

// drain waits for the decoder's pending-work count to reach zero, then
// holds for the settling delay so any in-flight output callbacks land
// before the decoder is closed.
func (p *Pipeline) drain(ctx context.Context) error {
	for p.decoder.QueueSize() > 0 {
		p.logger.Debug("Draining: %d chunks pending", p.decoder.QueueSize())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.DrainPoll):
		}
	}
	if p.cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.SettleDelay):
		}
	}
	return nil
}

// handleReady configures the decoder from the container's codec
// parameter record.
func (p *Pipeline) handleReady(info ports.TrackInfo) error {
	p.state = StateConfiguring

	record := codecconfig.ParameterRecord{
		Version:              1,
		ProfileIndication:    info.ProfileIndication,
		ProfileCompatibility: info.ProfileCompatibility,
		LevelIndication:      info.LevelIndication,
		NALULengthSize:       info.NALULengthSize,
		SPS:                  info.SPS,
		PPS:                  info.PPS,
	}
	desc, err := record.Marshal()
	if err != nil {
		// A size mismatch here is an extractor bug, not an input fault.
		return fmt.Errorf("marshal decoder configuration: %w", err)
	}

	cfg := ports.DecoderConfig{
		CodecID:     info.CodecID,
		Description: desc,
		Width:       info.Width,
		Height:      info.Height,
	}
	if err := p.decoder.Configure(cfg, p.handleFrame); err != nil {
		return fmt.Errorf("configure decoder: %w", err)
	}

	p.duration = info.DurationSeconds
	p.state = StateDecoding
	p.logger.Debug("Decoder configured: %s (%dx%d)", cfg.CodecID, cfg.Width, cfg.Height)
	return nil
}

// handleSamples converts demuxed samples to coded chunks and submits
// them in arrival order. Order matters: later chunks may reference
// earlier ones.
func (p *Pipeline) handleSamples(samples []ports.ContainerSample) error {
	for _, sample := range samples {
		chunkType := ports.ChunkDelta
		if sample.Sync {
			chunkType = ports.ChunkKey
		}
		chunk := ports.CodedChunk{
			Type:        chunkType,
			TimestampMs: sample.TimestampMs,
			DurationMs:  sample.DurationMs,
			Data:        sample.Data,
		}
		if err := p.decoder.Decode(chunk); err != nil {
			return fmt.Errorf("submit chunk at %d ms: %w", sample.TimestampMs, err)
		}
		if end := sample.TimestampMs + sample.DurationMs; end > p.sampleEndMs {
			p.sampleEndMs = end
		}
	}
	p.logger.Debug("Submitted %d chunks", len(samples))
	return nil
}

// handleFrame appends one decoder output to the buffer in emission
// order, which the decoding primitive guarantees is presentation order.
func (p *Pipeline) handleFrame(frame ports.DecodedFrame) {
	img := toBitmap(frame.Image)
	index := p.buffer.Len()
	p.buffer.Append(img)
	if p.sink.Enabled() {
		if err := p.sink.SaveDecodedFrame(index, img); err != nil {
			p.logger.Warn("Failed to save decoded frame %d: %s", index, err)
		}
	}
}

// fail discards all produced frames and reports the failure. The frame
// buffer must not survive a failed decode.
func (p *Pipeline) fail(err error) error {
	p.state = StateFailed
	if p.buffer != nil {
		p.buffer.Release()
	}
	p.decoder.Close()
	p.logger.Warn("Decode pipeline failed: %s", err)

	if errors.Is(err, ErrInvalidContainer) || errors.Is(err, ErrDecode) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDecode, err)
}

// writeMetadata saves pipeline results through the sink for debugging.
func (p *Pipeline) writeMetadata() {
	if !p.sink.Enabled() {
		return
	}
	meta := struct {
		Frames    int     `json:"frames"`
		Duration  float64 `json:"duration_seconds"`
		FrameRate float64 `json:"frame_rate"`
	}{
		Frames:    p.buffer.Len(),
		Duration:  p.duration,
		FrameRate: p.buffer.FrameRate(),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return
	}
	if err := p.sink.SaveDecodeJSON(data); err != nil {
		p.logger.Warn("Failed to save decode metadata: %s", err)
	}
}

// toBitmap normalizes a decoded image to an RGBA bitmap. The conversion
// favors throughput: dozens to hundreds of frames come through here.
func toBitmap(img image.Image) image.Image {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}
