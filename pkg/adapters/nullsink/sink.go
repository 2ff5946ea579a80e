// Package nullsink provides a no-op frame sink implementation.
package nullsink

import (
	"image"

	"github.com/user/scrubview/pkg/ports"
)

// Sink is a no-op implementation of ports.FrameSink.
// It discards all output.
type Sink struct{}

// New creates a new Sink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SaveDecodeJSON does nothing.
func (s *Sink) SaveDecodeJSON(data []byte) error {
	return nil
}

// SaveDecodedFrame does nothing.
func (s *Sink) SaveDecodedFrame(index int, img image.Image) error {
	return nil
}

// SavePaintedFrame does nothing.
func (s *Sink) SavePaintedFrame(index int, img image.Image) error {
	return nil
}

var _ ports.FrameSink = (*Sink)(nil)
