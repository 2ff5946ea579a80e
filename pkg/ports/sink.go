package ports

import (
	"image"
)

// FrameSink abstracts output of painted and decoded frames for debugging
// or export.
type FrameSink interface {
	// Enabled returns true if sink output is enabled.
	Enabled() bool

	// SaveDecodeJSON saves decode pipeline metadata as JSON.
	SaveDecodeJSON(data []byte) error

	// SaveDecodedFrame saves one decoded frame straight out of the
	// decode pipeline.
	SaveDecodedFrame(index int, img image.Image) error

	// SavePaintedFrame saves one painted surface snapshot.
	SavePaintedFrame(index int, img image.Image) error
}
