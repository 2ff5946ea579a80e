package mocks

import (
	"image"

	"github.com/user/scrubview/pkg/ports"
)

// Decoder is a mock implementation of ports.VideoDecoder. By default it
// buffers submitted chunks and emits one synthetic frame per chunk on
// Flush, in submission order.
type Decoder struct {
	ConfigureFunc func(cfg ports.DecoderConfig, output func(ports.DecodedFrame)) error
	DecodeFunc    func(chunk ports.CodedChunk) error
	FlushFunc     func() error

	Config  ports.DecoderConfig
	Chunks  []ports.CodedChunk
	Closed  bool
	output  func(ports.DecodedFrame)
	pending []ports.CodedChunk
}

func (m *Decoder) Configure(cfg ports.DecoderConfig, output func(ports.DecodedFrame)) error {
	m.Config = cfg
	m.output = output
	if m.ConfigureFunc != nil {
		return m.ConfigureFunc(cfg, output)
	}
	return nil
}

func (m *Decoder) Decode(chunk ports.CodedChunk) error {
	m.Chunks = append(m.Chunks, chunk)
	if m.DecodeFunc != nil {
		return m.DecodeFunc(chunk)
	}
	m.pending = append(m.pending, chunk)
	return nil
}

func (m *Decoder) QueueSize() int {
	return len(m.pending)
}

func (m *Decoder) Flush() error {
	if m.FlushFunc != nil {
		return m.FlushFunc()
	}
	for _, chunk := range m.pending {
		m.output(ports.DecodedFrame{
			Image:       image.NewRGBA(image.Rect(0, 0, 16, 9)),
			TimestampMs: chunk.TimestampMs,
			DurationMs:  chunk.DurationMs,
		})
	}
	m.pending = nil
	return nil
}

func (m *Decoder) Close() {
	m.Closed = true
}

var _ ports.VideoDecoder = (*Decoder)(nil)
