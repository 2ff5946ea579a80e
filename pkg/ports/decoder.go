package ports

import (
	"image"
)

// ChunkType classifies a coded chunk for the decoder.
type ChunkType string

const (
	// ChunkKey marks a sync sample that can be decoded on its own.
	ChunkKey ChunkType = "key"
	// ChunkDelta marks a sample that depends on earlier chunks.
	ChunkDelta ChunkType = "delta"
)

// CodedChunk is one compressed, timestamped unit of video data.
// Timestamps and durations are carried through from the container unchanged.
type CodedChunk struct {
	Type        ChunkType
	TimestampMs int
	DurationMs  int
	Data        []byte
}

// DecoderConfig carries everything a decoder needs before the first chunk.
type DecoderConfig struct {
	// CodecID is the container-reported codec identifier (e.g. "avc1.64001f").
	CodecID string
	// Description is the serialized decoder configuration record.
	Description []byte
	// Width and Height are the coded dimensions from the container.
	Width  int
	Height int
}

// DecodedFrame is one displayable output frame with timing information.
type DecodedFrame struct {
	Image       image.Image
	TimestampMs int
	DurationMs  int
}

// VideoDecoder abstracts a hardware or software video decoder.
// Decoded frames are delivered through the output callback in
// presentation order.
type VideoDecoder interface {
	// Configure prepares the decoder. Must be called exactly once,
	// before the first Decode.
	Configure(cfg DecoderConfig, output func(DecodedFrame)) error

	// Decode submits one coded chunk. Chunks must be submitted in
	// container order.
	Decode(chunk CodedChunk) error

	// QueueSize returns the number of submitted chunks not yet delivered
	// as output.
	QueueSize() int

	// Flush forces out any buffered frames.
	Flush() error

	// Close releases decoder resources.
	Close()
}
