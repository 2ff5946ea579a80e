package mocks

import (
	"image"

	"github.com/user/scrubview/pkg/ports"
)

// Sink is a mock implementation of ports.FrameSink. By default it is
// enabled and records every save.
type Sink struct {
	SaveDecodeJSONFunc   func(data []byte) error
	SaveDecodedFrameFunc func(index int, img image.Image) error
	SavePaintedFrameFunc func(index int, img image.Image) error

	Disabled      bool
	JSON          [][]byte
	DecodedFrames []int
	PaintedFrames []int
}

func (m *Sink) Enabled() bool {
	return !m.Disabled
}

func (m *Sink) SaveDecodeJSON(data []byte) error {
	if m.SaveDecodeJSONFunc != nil {
		return m.SaveDecodeJSONFunc(data)
	}
	m.JSON = append(m.JSON, data)
	return nil
}

func (m *Sink) SaveDecodedFrame(index int, img image.Image) error {
	if m.SaveDecodedFrameFunc != nil {
		return m.SaveDecodedFrameFunc(index, img)
	}
	m.DecodedFrames = append(m.DecodedFrames, index)
	return nil
}

func (m *Sink) SavePaintedFrame(index int, img image.Image) error {
	if m.SavePaintedFrameFunc != nil {
		return m.SavePaintedFrameFunc(index, img)
	}
	m.PaintedFrames = append(m.PaintedFrames, index)
	return nil
}

var _ ports.FrameSink = (*Sink)(nil)
