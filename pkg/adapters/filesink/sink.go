// Package filesink provides a file-based frame sink implementation.
package filesink

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"

	"github.com/user/scrubview/pkg/ports"
)

// Sink saves frames and metadata to files under a base directory.
type Sink struct {
	baseDir string
	fs      ports.FileSystem
}

// New creates a new Sink.
func New(baseDir string, fs ports.FileSystem) *Sink {
	return &Sink{baseDir: baseDir, fs: fs}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveDecodeJSON saves decode pipeline metadata as JSON.
func (s *Sink) SaveDecodeJSON(data []byte) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, "decode.json"), data)
}

// SaveDecodedFrame saves one decoded frame as PNG.
func (s *Sink) SaveDecodedFrame(index int, img image.Image) error {
	return s.saveFrame(filepath.Join(s.baseDir, "frames", "decoded"), index, img)
}

// SavePaintedFrame saves one painted surface snapshot as PNG.
func (s *Sink) SavePaintedFrame(index int, img image.Image) error {
	return s.saveFrame(filepath.Join(s.baseDir, "frames", "painted"), index, img)
}

func (s *Sink) saveFrame(dir string, index int, img image.Image) error {
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%04d.png", index))
	return s.fs.WriteFile(path, buf.Bytes())
}

var _ ports.FrameSink = (*Sink)(nil)
