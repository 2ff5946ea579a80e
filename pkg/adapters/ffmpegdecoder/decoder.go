// Package ffmpegdecoder implements the VideoDecoder port with an
// external ffmpeg process. Coded chunks are collected into an Annex B
// elementary stream; Flush decodes the whole stream in one pass and
// delivers frames through the output callback in presentation order.
package ffmpegdecoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/user/scrubview/pkg/codecconfig"
	"github.com/user/scrubview/pkg/ports"
)

var (
	// ErrNotConfigured is returned when Decode or Flush is called before
	// Configure.
	ErrNotConfigured = errors.New("ffmpegdecoder: decoder not configured")
	// ErrFFmpegNotFound is returned when no ffmpeg binary can be located.
	ErrFFmpegNotFound = errors.New("ffmpegdecoder: ffmpeg not found")
	// ErrDecodeFailed is returned when ffmpeg fails to decode the stream.
	ErrDecodeFailed = errors.New("ffmpegdecoder: decode failed")
)

// Options configures the decoder.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
}

// chunkTiming pairs container timing with submission order.
type chunkTiming struct {
	timestampMs int
	durationMs  int
}

// Decoder implements ports.VideoDecoder.
type Decoder struct {
	mu sync.Mutex

	ffmpegPath string
	logger     ports.Logger

	output     func(ports.DecodedFrame)
	prefix     []byte // SPS/PPS in Annex B framing
	lengthSize int

	stream  bytes.Buffer // accumulated Annex B elementary stream
	timings []chunkTiming
	emitted int

	configured bool
}

// New creates a Decoder.
func New(opts Options, logger ports.Logger) *Decoder {
	return &Decoder{
		ffmpegPath: opts.FFmpegPath,
		logger:     logger.WithComponent("ffmpegdecoder"),
	}
}

// Available reports whether an ffmpeg binary can be located. Callers
// must select the fallback path up front when this is false.
func Available(opts Options) bool {
	_, err := findFFmpeg(opts.FFmpegPath)
	return err == nil
}

// Configure prepares the decoder from the serialized configuration
// record. The record is parsed back to recover the parameter sets that
// ffmpeg needs in-band.
func (d *Decoder) Configure(cfg ports.DecoderConfig, output func(ports.DecodedFrame)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ffmpegPath == "" {
		path, err := findFFmpeg("")
		if err != nil {
			return err
		}
		d.ffmpegPath = path
	} else if _, err := os.Stat(d.ffmpegPath); err != nil {
		return fmt.Errorf("%w: custom path %s", ErrFFmpegNotFound, d.ffmpegPath)
	}

	record, err := codecconfig.Parse(cfg.Description)
	if err != nil {
		return fmt.Errorf("parse configuration record: %w", err)
	}

	d.prefix = parameterSetPrefix(record.SPS, record.PPS)
	d.lengthSize = record.NALULengthSize
	d.output = output
	d.configured = true
	d.logger.Debug("Decoder configured: %s (%dx%d)", cfg.CodecID, cfg.Width, cfg.Height)
	return nil
}

// Decode appends one coded chunk to the elementary stream. Chunks must
// arrive in container order; later chunks depend on earlier ones.
func (d *Decoder) Decode(chunk ports.CodedChunk) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.configured {
		return ErrNotConfigured
	}

	if chunk.Type == ports.ChunkKey {
		d.stream.Write(d.prefix)
	}
	annexB := avccToAnnexB(chunk.Data, d.lengthSize)
	if len(annexB) == 0 {
		return fmt.Errorf("%w: empty chunk payload", ErrDecodeFailed)
	}
	d.stream.Write(annexB)
	d.timings = append(d.timings, chunkTiming{chunk.TimestampMs, chunk.DurationMs})
	return nil
}

// QueueSize returns the number of chunks submitted but not yet delivered.
func (d *Decoder) QueueSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timings) - d.emitted
}

// Flush decodes the accumulated stream and delivers every frame.
func (d *Decoder) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.configured {
		return ErrNotConfigured
	}
	if len(d.timings) == d.emitted {
		return nil
	}

	frames, err := d.runFFmpeg()
	if err != nil {
		return err
	}

	// ffmpeg writes frames in presentation order while timings were
	// recorded in submission (decode) order; with B-frames the two
	// differ, so reorder by timestamp before pairing.
	pending := d.pendingTimings()
	for i, img := range frames {
		var timing chunkTiming
		if i < len(pending) {
			timing = pending[i]
		}
		d.output(ports.DecodedFrame{
			Image:       img,
			TimestampMs: timing.timestampMs,
			DurationMs:  timing.durationMs,
		})
	}
	d.emitted = len(d.timings)
	return nil
}

// pendingTimings returns the timings of chunks submitted since the last
// flush, sorted into presentation order.
func (d *Decoder) pendingTimings() []chunkTiming {
	pending := make([]chunkTiming, len(d.timings)-d.emitted)
	copy(pending, d.timings[d.emitted:])
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].timestampMs < pending[j].timestampMs
	})
	return pending
}

// Close releases decoder state.
func (d *Decoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configured = false
	d.stream.Reset()
	d.timings = nil
	d.emitted = 0
	d.output = nil
}

// runFFmpeg pipes the elementary stream through ffmpeg and reads back
// the decoded frames as PNG files in output order.
func (d *Decoder) runFFmpeg() ([]image.Image, error) {
	inputFile, err := os.CreateTemp("", "scrubview_*.h264")
	if err != nil {
		return nil, fmt.Errorf("create input temp file: %w", err)
	}
	inputPath := inputFile.Name()
	defer os.Remove(inputPath)

	if _, err := inputFile.Write(d.stream.Bytes()); err != nil {
		inputFile.Close()
		return nil, fmt.Errorf("write stream: %w", err)
	}
	inputFile.Close()

	outputDir, err := os.MkdirTemp("", "scrubview_frames_*")
	if err != nil {
		return nil, fmt.Errorf("create output temp dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	var stderr bytes.Buffer
	cmd := exec.Command(d.ffmpegPath,
		"-y",
		"-f", "h264",
		"-i", inputPath,
		"-f", "image2",
		filepath.Join(outputDir, "frame-%06d.png"),
	)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v\nstderr: %s", ErrDecodeFailed, err, stderr.String())
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("read output dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	frames := make([]image.Image, 0, len(names))
	for _, name := range names {
		f, err := os.Open(filepath.Join(outputDir, name))
		if err != nil {
			return nil, fmt.Errorf("open decoded frame: %w", err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decode png: %w", err)
		}
		frames = append(frames, img)
	}
	return frames, nil
}

// findFFmpeg searches for ffmpeg at the custom path, in PATH, then in
// common install locations.
func findFFmpeg(customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		return "", fmt.Errorf("%w: custom path %s", ErrFFmpegNotFound, customPath)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	var commonPaths []string
	if runtime.GOOS == "windows" {
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	} else {
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrFFmpegNotFound
}

var _ ports.VideoDecoder = (*Decoder)(nil)
