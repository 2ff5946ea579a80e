package ports

// TrackInfo describes the single video track selected from a container.
type TrackInfo struct {
	// CodecID is the RFC 6381 style codec identifier.
	CodecID string
	// DurationSeconds is the track duration in seconds.
	DurationSeconds float64
	// Width and Height are the coded dimensions.
	Width  int
	Height int

	// Codec parameter record scalars, read from the container's
	// decoder configuration box.
	ProfileIndication    byte
	ProfileCompatibility byte
	LevelIndication      byte
	NALULengthSize       int

	// SPS and PPS are the raw parameter-set payloads, in container order.
	SPS [][]byte
	PPS [][]byte
}

// ContainerSample is one demuxed sample with container timing metadata.
type ContainerSample struct {
	Data        []byte
	TimestampMs int
	DurationMs  int
	Sync        bool
}

// ContainerDemuxer consumes a streamed container resource and emits the
// selected video track's metadata and samples through callbacks.
type ContainerDemuxer interface {
	// SetHandlers installs the ready and sample callbacks. OnReady fires
	// exactly once, before the first OnSamples call.
	SetHandlers(onReady func(TrackInfo) error, onSamples func([]ContainerSample) error)

	// AppendChunk feeds a received byte range tagged with its absolute
	// stream offset. Chunks must arrive contiguously.
	AppendChunk(data []byte, offset int64) error

	// EndOfStream signals that no further bytes will arrive. Any samples
	// not yet emitted are flushed through OnSamples.
	EndOfStream() error
}
