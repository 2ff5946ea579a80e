package decodepipe

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/user/scrubview/pkg/adapters/logger"
	"github.com/user/scrubview/pkg/adapters/nullsink"
	"github.com/user/scrubview/pkg/mocks"
	"github.com/user/scrubview/pkg/ports"
)

func testConfig() Config {
	return Config{SettleDelay: time.Millisecond, DrainPoll: time.Millisecond}
}

func testTrackInfo() ports.TrackInfo {
	return ports.TrackInfo{
		CodecID:           "avc1.64001F",
		DurationSeconds:   2.0,
		Width:             64,
		Height:            48,
		ProfileIndication: 0x64,
		LevelIndication:   0x1F,
		NALULengthSize:    4,
		SPS:               [][]byte{{0x67, 0x64}},
		PPS:               [][]byte{{0x68}},
	}
}

func testSamples() []ports.ContainerSample {
	return []ports.ContainerSample{
		{Data: []byte{0, 0, 0, 1, 0x65}, TimestampMs: 0, DurationMs: 500, Sync: true},
		{Data: []byte{0, 0, 0, 1, 0x41}, TimestampMs: 500, DurationMs: 500, Sync: false},
		{Data: []byte{0, 0, 0, 1, 0x41}, TimestampMs: 1000, DurationMs: 500, Sync: false},
		{Data: []byte{0, 0, 0, 1, 0x41}, TimestampMs: 1500, DurationMs: 500, Sync: false},
	}
}

func scriptedDemuxer() *mocks.Demuxer {
	return &mocks.Demuxer{
		AppendChunkFunc: func(d *mocks.Demuxer, data []byte, offset int64) error {
			if offset == 0 {
				if err := d.Ready(testTrackInfo()); err != nil {
					return err
				}
			}
			return d.Samples(testSamples())
		},
	}
}

func TestRunProducesFrozenBuffer(t *testing.T) {
	decoder := &mocks.Decoder{}
	p := New(
		&mocks.Fetcher{Data: []byte{0xDE, 0xAD}},
		scriptedDemuxer(),
		decoder,
		nullsink.New(),
		logger.NewNoop(),
		testConfig(),
	)

	buf, err := p.Run(context.Background(), "video.mp4")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if p.State() != StateComplete {
		t.Errorf("expected complete state, got %s", p.State())
	}
	if !buf.Frozen() {
		t.Error("expected frozen buffer")
	}
	if buf.Len() != 4 {
		t.Errorf("expected 4 frames, got %d", buf.Len())
	}
	// frameRate = length / duration, defined only after completion.
	if got := buf.FrameRate(); got != 2.0 {
		t.Errorf("expected frame rate 2.0, got %f", got)
	}
	if !decoder.Closed {
		t.Error("expected decoder closed after drain")
	}
}

func TestZeroDurationUsesSampleTimeline(t *testing.T) {
	// Fragmented containers often carry a zero movie duration; the
	// frame rate must then come from the sample timeline.
	info := testTrackInfo()
	info.DurationSeconds = 0
	demuxer := &mocks.Demuxer{
		AppendChunkFunc: func(d *mocks.Demuxer, data []byte, offset int64) error {
			if err := d.Ready(info); err != nil {
				return err
			}
			return d.Samples(testSamples())
		},
	}
	p := New(
		&mocks.Fetcher{Data: []byte{1}},
		demuxer,
		&mocks.Decoder{},
		nullsink.New(),
		logger.NewNoop(),
		testConfig(),
	)

	buf, err := p.Run(context.Background(), "video.mp4")
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Last sample ends at 2000 ms: 4 frames over 2 s.
	if got := p.Duration(); got != 2.0 {
		t.Errorf("expected duration 2.0, got %f", got)
	}
	if got := buf.FrameRate(); got != 2.0 {
		t.Errorf("expected frame rate 2.0, got %f", got)
	}
	if got := buf.IndexForTime(0.75); got != 1 {
		t.Errorf("IndexForTime(0.75): expected 1, got %d", got)
	}
	if got := buf.IndexForTime(1.9); got != 3 {
		t.Errorf("IndexForTime(1.9): expected 3, got %d", got)
	}
}

func TestFrameSinkFailureIsNonFatal(t *testing.T) {
	sink := &mocks.Sink{
		SaveDecodedFrameFunc: func(int, image.Image) error {
			return errors.New("disk full")
		},
	}
	p := New(
		&mocks.Fetcher{Data: []byte{1}},
		scriptedDemuxer(),
		&mocks.Decoder{},
		sink,
		logger.NewNoop(),
		testConfig(),
	)

	buf, err := p.Run(context.Background(), "video.mp4")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if buf.Len() != 4 {
		t.Errorf("expected 4 frames despite sink failures, got %d", buf.Len())
	}
	if p.State() != StateComplete {
		t.Errorf("expected complete state, got %s", p.State())
	}
}

func TestChunkTypeMapping(t *testing.T) {
	decoder := &mocks.Decoder{}
	p := New(
		&mocks.Fetcher{Data: []byte{1}},
		scriptedDemuxer(),
		decoder,
		nullsink.New(),
		logger.NewNoop(),
		testConfig(),
	)

	if _, err := p.Run(context.Background(), "video.mp4"); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(decoder.Chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(decoder.Chunks))
	}
	if decoder.Chunks[0].Type != ports.ChunkKey {
		t.Errorf("sync sample: expected key chunk, got %s", decoder.Chunks[0].Type)
	}
	for i := 1; i < 4; i++ {
		if decoder.Chunks[i].Type != ports.ChunkDelta {
			t.Errorf("chunk %d: expected delta, got %s", i, decoder.Chunks[i].Type)
		}
	}
	// Timestamps carried through from container metadata unchanged.
	for i, want := range []int{0, 500, 1000, 1500} {
		if decoder.Chunks[i].TimestampMs != want {
			t.Errorf("chunk %d: expected timestamp %d, got %d", i, want, decoder.Chunks[i].TimestampMs)
		}
	}
}

func TestConfigurePassesMarshaledRecord(t *testing.T) {
	decoder := &mocks.Decoder{}
	p := New(
		&mocks.Fetcher{Data: []byte{1}},
		scriptedDemuxer(),
		decoder,
		nullsink.New(),
		logger.NewNoop(),
		testConfig(),
	)

	if _, err := p.Run(context.Background(), "video.mp4"); err != nil {
		t.Fatalf("run: %v", err)
	}

	// 7 fixed + (2+2) SPS + (2+1) PPS
	if len(decoder.Config.Description) != 14 {
		t.Errorf("expected 14-byte description, got %d", len(decoder.Config.Description))
	}
	if decoder.Config.CodecID != "avc1.64001F" {
		t.Errorf("codec id: got %s", decoder.Config.CodecID)
	}
}

func TestNoVideoTrackFails(t *testing.T) {
	demuxer := &mocks.Demuxer{
		EndOfStreamFunc: func(d *mocks.Demuxer) error {
			return ErrInvalidContainer
		},
	}
	p := New(
		&mocks.Fetcher{Data: []byte{1}},
		demuxer,
		&mocks.Decoder{},
		nullsink.New(),
		logger.NewNoop(),
		testConfig(),
	)

	_, err := p.Run(context.Background(), "audio-only.mp4")
	if !errors.Is(err, ErrInvalidContainer) {
		t.Errorf("expected ErrInvalidContainer, got %v", err)
	}
	if p.State() != StateFailed {
		t.Errorf("expected failed state, got %s", p.State())
	}
}

func TestConfigureErrorDiscardsBuffer(t *testing.T) {
	decoder := &mocks.Decoder{
		ConfigureFunc: func(ports.DecoderConfig, func(ports.DecodedFrame)) error {
			return errors.New("unsupported profile")
		},
	}
	p := New(
		&mocks.Fetcher{Data: []byte{1}},
		scriptedDemuxer(),
		decoder,
		nullsink.New(),
		logger.NewNoop(),
		testConfig(),
	)

	buf, err := p.Run(context.Background(), "video.mp4")
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
	if buf != nil {
		t.Error("expected nil buffer on failure")
	}
	if !decoder.Closed {
		t.Error("expected decoder closed on failure")
	}
}

func TestDecodeErrorDiscardsFrames(t *testing.T) {
	calls := 0
	decoder := &mocks.Decoder{
		DecodeFunc: func(ports.CodedChunk) error {
			calls++
			if calls == 3 {
				return errors.New("corrupt sample")
			}
			return nil
		},
	}
	p := New(
		&mocks.Fetcher{Data: []byte{1}},
		scriptedDemuxer(),
		decoder,
		nullsink.New(),
		logger.NewNoop(),
		testConfig(),
	)

	_, err := p.Run(context.Background(), "video.mp4")
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
}

func TestRunHonorsContextDuringDrain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	decoder := &mocks.Decoder{
		FlushFunc: func() error {
			cancel()
			return nil
		},
		DecodeFunc: func(ports.CodedChunk) error { return nil },
	}
	cfg := Config{SettleDelay: time.Minute, DrainPoll: time.Millisecond}
	p := New(
		&mocks.Fetcher{Data: []byte{1}},
		scriptedDemuxer(),
		decoder,
		nullsink.New(),
		logger.NewNoop(),
		cfg,
	)

	_, err := p.Run(ctx, "video.mp4")
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}
