package mp4demux

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/scrubview/pkg/adapters/logger"
	"github.com/user/scrubview/pkg/codecconfig"
	"github.com/user/scrubview/pkg/ports"
)

func box(name string, payload []byte) []byte {
	size := 8 + len(payload)
	out := []byte{byte(size >> 24), byte(size >> 16), byte(size >> 8), byte(size)}
	out = append(out, name...)
	return append(out, payload...)
}

func u16(v int) []byte { return []byte{byte(v >> 8), byte(v)} }

func u32(v int) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func fixtureSPS() [][]byte { return [][]byte{{0x67, 0x64, 0x00, 0x1F, 0xAC, 0xD9}} }
func fixturePPS() [][]byte { return [][]byte{{0x68, 0xEB, 0xE3, 0xCB}} }

// fixtureSamples returns four length-prefixed sample payloads of
// distinct sizes: 6, 7, 8 and 9 bytes.
func fixtureSamples() [][]byte {
	var out [][]byte
	for i := 0; i < 4; i++ {
		nalu := make([]byte, i+2)
		if i == 0 {
			nalu[0] = 0x65
		} else {
			nalu[0] = 0x41
		}
		out = append(out, append(u32(len(nalu)), nalu...))
	}
	return out
}

// avc1Entry builds a VisualSampleEntry with an avcC child for a
// 64x48 high-profile track.
func avc1Entry(t *testing.T) []byte {
	t.Helper()
	record := codecconfig.ParameterRecord{
		Version:           1,
		ProfileIndication: 0x64,
		LevelIndication:   0x1F,
		NALULengthSize:    4,
		SPS:               fixtureSPS(),
		PPS:               fixturePPS(),
	}
	desc, err := record.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	payload := make([]byte, 0, 86)
	payload = append(payload, make([]byte, 6)...) // reserved
	payload = append(payload, u16(1)...)          // data reference index
	payload = append(payload, make([]byte, 16)...)
	payload = append(payload, u16(64)...) // width
	payload = append(payload, u16(48)...) // height
	payload = append(payload, u32(0x00480000)...)
	payload = append(payload, u32(0x00480000)...)
	payload = append(payload, u32(0)...)
	payload = append(payload, u16(1)...)           // frame count
	payload = append(payload, make([]byte, 32)...) // compressor name
	payload = append(payload, u16(0x0018)...)      // depth
	payload = append(payload, 0xFF, 0xFF)
	payload = append(payload, box("avcC", desc)...)
	return box("avc1", payload)
}

func fullBox(name string, version byte, flags int, payload []byte) []byte {
	head := []byte{version, byte(flags >> 16), byte(flags >> 8), byte(flags)}
	return box(name, append(head, payload...))
}

// buildProgressiveMP4 assembles ftyp + moov + mdat with one chunk of
// four samples, 500 ms each at timescale 1000, first sample sync.
func buildProgressiveMP4(t *testing.T) []byte {
	t.Helper()

	unityMatrix := make([]byte, 0, 36)
	for _, v := range []int{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000} {
		unityMatrix = append(unityMatrix, u32(v)...)
	}

	samples := fixtureSamples()
	var sizes, mdat []byte
	for _, s := range samples {
		sizes = append(sizes, u32(len(s))...)
		mdat = append(mdat, s...)
	}

	moovFor := func(chunkOffset int) []byte {
		var mvhd []byte
		mvhd = append(mvhd, u32(0)...) // creation
		mvhd = append(mvhd, u32(0)...) // modification
		mvhd = append(mvhd, u32(1000)...)
		mvhd = append(mvhd, u32(2000)...)
		mvhd = append(mvhd, u32(0x00010000)...) // rate
		mvhd = append(mvhd, u16(0x0100)...)     // volume
		mvhd = append(mvhd, make([]byte, 10)...)
		mvhd = append(mvhd, unityMatrix...)
		mvhd = append(mvhd, make([]byte, 24)...)
		mvhd = append(mvhd, u32(2)...) // next track ID

		var tkhd []byte
		tkhd = append(tkhd, u32(0)...)
		tkhd = append(tkhd, u32(0)...)
		tkhd = append(tkhd, u32(1)...) // track ID
		tkhd = append(tkhd, u32(0)...)
		tkhd = append(tkhd, u32(2000)...)
		tkhd = append(tkhd, make([]byte, 16)...)
		tkhd = append(tkhd, unityMatrix...)
		tkhd = append(tkhd, u32(64<<16)...)
		tkhd = append(tkhd, u32(48<<16)...)

		var mdhd []byte
		mdhd = append(mdhd, u32(0)...)
		mdhd = append(mdhd, u32(0)...)
		mdhd = append(mdhd, u32(1000)...)
		mdhd = append(mdhd, u32(2000)...)
		mdhd = append(mdhd, u16(0x55C4)...) // "und"
		mdhd = append(mdhd, u16(0)...)

		var hdlr []byte
		hdlr = append(hdlr, u32(0)...)
		hdlr = append(hdlr, "vide"...)
		hdlr = append(hdlr, make([]byte, 12)...)
		hdlr = append(hdlr, 0) // empty name

		stsd := append(u32(1), avc1Entry(t)...)
		stts := append(u32(1), append(u32(4), u32(500)...)...)
		stss := append(u32(1), u32(1)...)
		stsc := append(u32(1), append(u32(1), append(u32(4), u32(1)...)...)...)
		stsz := append(u32(0), append(u32(4), sizes...)...)
		stco := append(u32(1), u32(chunkOffset)...)

		stbl := box("stbl", append(append(append(append(append(
			fullBox("stsd", 0, 0, stsd),
			fullBox("stts", 0, 0, stts)...),
			fullBox("stss", 0, 0, stss)...),
			fullBox("stsc", 0, 0, stsc)...),
			fullBox("stsz", 0, 0, stsz)...),
			fullBox("stco", 0, 0, stco)...))
		minf := box("minf", stbl)
		mdia := box("mdia", append(append(
			fullBox("mdhd", 0, 0, mdhd),
			fullBox("hdlr", 0, 0, hdlr)...),
			minf...))
		trak := box("trak", append(fullBox("tkhd", 0, 3, tkhd), mdia...))
		return box("moov", append(fullBox("mvhd", 0, 0, mvhd), trak...))
	}

	ftyp := box("ftyp", append(append([]byte("isom"), u32(0x200)...), "isomavc1"...))
	// The chunk offset depends on moov's own size, which is fixed:
	// build once with a placeholder to measure, then for real.
	chunkOffset := len(ftyp) + len(moovFor(0)) + 8
	file := append(ftyp, moovFor(chunkOffset)...)
	return append(file, box("mdat", mdat)...)
}

// buildFragmentedMP4 assembles an init segment plus one fragment
// carrying the same four samples. The movie duration stays zero, as
// CMAF packagers leave it.
func buildFragmentedMP4(t *testing.T) []byte {
	t.Helper()

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(1000, "video", "en")
	trak := init.Moov.Trak

	entry, err := mp4.DecodeBox(0, bytes.NewReader(avc1Entry(t)))
	if err != nil {
		t.Fatal(err)
	}
	trak.Mdia.Minf.Stbl.Stsd.AddChild(entry)

	frag, err := mp4.CreateFragment(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	decodeTime := uint64(0)
	for i, data := range fixtureSamples() {
		flags := mp4.NonSyncSampleFlags
		if i == 0 {
			flags = mp4.SyncSampleFlags
		}
		frag.AddFullSample(mp4.FullSample{
			Sample:     mp4.Sample{Flags: flags, Size: uint32(len(data)), Dur: 500},
			DecodeTime: decodeTime,
			Data:       data,
		})
		decodeTime += 500
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "avc1", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	if err := frag.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// collector wires a demuxer to recording handlers.
type collector struct {
	info    *ports.TrackInfo
	samples []ports.ContainerSample
}

func (c *collector) attach(d *Demuxer) {
	d.SetHandlers(
		func(info ports.TrackInfo) error {
			c.info = &info
			return nil
		},
		func(s []ports.ContainerSample) error {
			c.samples = append(c.samples, s...)
			return nil
		},
	)
}

func checkTrackInfo(t *testing.T, info *ports.TrackInfo) {
	t.Helper()
	if info == nil {
		t.Fatal("ready never fired")
	}
	if info.CodecID != "avc1.64001F" {
		t.Errorf("codec id: expected avc1.64001F, got %s", info.CodecID)
	}
	if info.Width != 64 || info.Height != 48 {
		t.Errorf("dimensions: expected 64x48, got %dx%d", info.Width, info.Height)
	}
	if len(info.SPS) != 1 || !bytes.Equal(info.SPS[0], fixtureSPS()[0]) {
		t.Errorf("sps: got % X", info.SPS)
	}
	if len(info.PPS) != 1 || !bytes.Equal(info.PPS[0], fixturePPS()[0]) {
		t.Errorf("pps: got % X", info.PPS)
	}
	if info.NALULengthSize != 4 {
		t.Errorf("nalu length size: expected 4, got %d", info.NALULengthSize)
	}
}

func checkSamples(t *testing.T, samples []ports.ContainerSample) {
	t.Helper()
	expected := fixtureSamples()
	if len(samples) != len(expected) {
		t.Fatalf("expected %d samples, got %d", len(expected), len(samples))
	}
	for i, s := range samples {
		if !bytes.Equal(s.Data, expected[i]) {
			t.Errorf("sample %d data: expected % X, got % X", i, expected[i], s.Data)
		}
		if s.TimestampMs != i*500 {
			t.Errorf("sample %d: expected timestamp %d, got %d", i, i*500, s.TimestampMs)
		}
		if s.DurationMs != 500 {
			t.Errorf("sample %d: expected duration 500, got %d", i, s.DurationMs)
		}
		if s.Sync != (i == 0) {
			t.Errorf("sample %d: expected sync %v, got %v", i, i == 0, s.Sync)
		}
	}
}

func TestFindTopLevelBox(t *testing.T) {
	buf := append(box("ftyp", []byte("isom")), box("free", make([]byte, 16))...)
	moov := box("moov", make([]byte, 32))
	buf = append(buf, moov...)

	pos, size, ok := findTopLevelBox(buf, "moov", false)
	if !ok {
		t.Fatal("expected to find moov")
	}
	if size != len(moov) {
		t.Errorf("size: expected %d, got %d", len(moov), size)
	}
	if pos != len(buf)-len(moov) {
		t.Errorf("pos: expected %d, got %d", len(buf)-len(moov), pos)
	}
}

func TestFindTopLevelBoxIncomplete(t *testing.T) {
	buf := box("ftyp", []byte("isom"))
	moov := box("moov", make([]byte, 64))
	// Only half of moov has arrived.
	buf = append(buf, moov[:20]...)

	if _, _, ok := findTopLevelBox(buf, "moov", false); ok {
		t.Error("incomplete moov reported as found")
	}
}

func TestFindTopLevelBoxAbsent(t *testing.T) {
	buf := append(box("ftyp", []byte("isom")), box("mdat", make([]byte, 8))...)
	if _, _, ok := findTopLevelBox(buf, "moov", false); ok {
		t.Error("found moov in stream without one")
	}
}

func TestFindTopLevelBoxOpenEnded(t *testing.T) {
	// A size-zero mdat extends to the end of the stream. Its extent is
	// unknown mid-stream, so the scan must not skip past it until the
	// resource is complete.
	buf := box("ftyp", []byte("isom"))
	mdat := box("mdat", make([]byte, 16))
	mdat[0], mdat[1], mdat[2], mdat[3] = 0, 0, 0, 0
	buf = append(buf, mdat...)
	moov := box("moov", make([]byte, 32))
	buf = append(buf, moov...)

	if _, _, ok := findTopLevelBox(buf, "moov", false); ok {
		t.Error("resolved open-ended mdat against a partial stream")
	}

	pos, size, ok := findTopLevelBox(buf, "moov", true)
	if ok {
		// The open-ended mdat swallows everything after it: no moov.
		t.Errorf("expected moov consumed by open-ended mdat, got pos %d size %d", pos, size)
	}
}

func TestProgressiveStream(t *testing.T) {
	file := buildProgressiveMP4(t)
	d := New(logger.NewNoop())
	var c collector
	c.attach(d)

	// Drip-feed in small chunks, as a range fetcher would.
	for pos := 0; pos < len(file); pos += 16 {
		end := pos + 16
		if end > len(file) {
			end = len(file)
		}
		if err := d.AppendChunk(file[pos:end], int64(pos)); err != nil {
			t.Fatalf("append at %d: %v", pos, err)
		}
	}
	if err := d.EndOfStream(); err != nil {
		t.Fatalf("end of stream: %v", err)
	}

	checkTrackInfo(t, c.info)
	if c.info.DurationSeconds != 2.0 {
		t.Errorf("duration: expected 2.0, got %f", c.info.DurationSeconds)
	}
	checkSamples(t, c.samples)
}

func TestProgressiveIncrementalEmission(t *testing.T) {
	file := buildProgressiveMP4(t)
	d := New(logger.NewNoop())
	var c collector
	c.attach(d)

	// mdat starts after ftyp+moov; samples are 6, 7, 8, 9 bytes.
	headerLen := len(file) - (8 + 30)

	if err := d.AppendChunk(file[:headerLen], 0); err != nil {
		t.Fatalf("append header: %v", err)
	}
	if c.info == nil {
		t.Fatal("expected ready once moov is complete")
	}
	if len(c.samples) != 0 {
		t.Fatalf("expected no samples before mdat, got %d", len(c.samples))
	}

	// mdat header plus the first two samples.
	split := headerLen + 8 + 6 + 7
	if err := d.AppendChunk(file[headerLen:split], int64(headerLen)); err != nil {
		t.Fatalf("append first samples: %v", err)
	}
	if len(c.samples) != 2 {
		t.Fatalf("expected 2 samples buffered, got %d", len(c.samples))
	}

	if err := d.AppendChunk(file[split:], int64(split)); err != nil {
		t.Fatalf("append rest: %v", err)
	}
	if err := d.EndOfStream(); err != nil {
		t.Fatalf("end of stream: %v", err)
	}
	checkSamples(t, c.samples)
}

func TestFragmentedStream(t *testing.T) {
	file := buildFragmentedMP4(t)
	d := New(logger.NewNoop())
	var c collector
	c.attach(d)

	if err := d.AppendChunk(file, 0); err != nil {
		t.Fatalf("append: %v", err)
	}
	checkTrackInfo(t, c.info)
	// moof/mdat interleaving defers sample emission to end of stream.
	if len(c.samples) != 0 {
		t.Fatalf("expected no samples before end of stream, got %d", len(c.samples))
	}

	if err := d.EndOfStream(); err != nil {
		t.Fatalf("end of stream: %v", err)
	}
	checkSamples(t, c.samples)
}

func TestAppendChunkRequiresHandlers(t *testing.T) {
	d := New(logger.NewNoop())
	err := d.AppendChunk([]byte{0}, 0)
	if !errors.Is(err, ErrNoHandlers) {
		t.Errorf("expected ErrNoHandlers, got %v", err)
	}
}

func TestAppendChunkContiguity(t *testing.T) {
	d := New(logger.NewNoop())
	d.SetHandlers(
		func(ports.TrackInfo) error { return nil },
		func([]ports.ContainerSample) error { return nil },
	)

	if err := d.AppendChunk(box("ftyp", []byte("isom")), 0); err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	err := d.AppendChunk([]byte{1, 2, 3}, 100)
	if !errors.Is(err, ErrGap) {
		t.Errorf("expected ErrGap, got %v", err)
	}
}

func TestEndOfStreamWithoutVideoTrack(t *testing.T) {
	d := New(logger.NewNoop())
	d.SetHandlers(
		func(ports.TrackInfo) error { return nil },
		func([]ports.ContainerSample) error { return nil },
	)

	if err := d.AppendChunk(box("ftyp", []byte("isom")), 0); err != nil {
		t.Fatalf("append: %v", err)
	}
	err := d.EndOfStream()
	if !errors.Is(err, ErrNoVideoTrack) {
		t.Errorf("expected ErrNoVideoTrack, got %v", err)
	}
}
