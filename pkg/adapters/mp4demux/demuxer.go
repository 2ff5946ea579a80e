// Package mp4demux adapts the mp4ff container parser to the streaming
// ContainerDemuxer port. Bytes are fed in as they arrive; the track
// becomes ready as soon as the moov box is complete, and progressive
// samples are emitted incrementally once their byte ranges are buffered.
package mp4demux

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/scrubview/pkg/ports"
)

var (
	// ErrNoVideoTrack is returned when the container holds no video track.
	ErrNoVideoTrack = errors.New("mp4demux: no video track found")
	// ErrGap is returned when a chunk arrives out of order.
	ErrGap = errors.New("mp4demux: non-contiguous chunk")
	// ErrNoHandlers is returned when data arrives before SetHandlers.
	ErrNoHandlers = errors.New("mp4demux: handlers not set")
)

// sampleMeta locates one progressive sample inside the stream.
type sampleMeta struct {
	offset      uint64
	size        uint32
	timestampMs int
	durationMs  int
	sync        bool
}

// Demuxer implements ports.ContainerDemuxer for MP4-family containers.
type Demuxer struct {
	logger ports.Logger

	onReady   func(ports.TrackInfo) error
	onSamples func([]ports.ContainerSample) error

	buf        []byte
	ready      bool
	fragmented bool
	samples    []sampleMeta
	nextSample int
}

// New creates a Demuxer.
func New(logger ports.Logger) *Demuxer {
	return &Demuxer{logger: logger.WithComponent("mp4demux")}
}

// SetHandlers installs the ready and sample callbacks.
func (d *Demuxer) SetHandlers(onReady func(ports.TrackInfo) error, onSamples func([]ports.ContainerSample) error) {
	d.onReady = onReady
	d.onSamples = onSamples
}

// AppendChunk feeds a received byte range tagged with its absolute
// stream offset.
func (d *Demuxer) AppendChunk(data []byte, offset int64) error {
	if d.onReady == nil || d.onSamples == nil {
		return ErrNoHandlers
	}
	if offset != int64(len(d.buf)) {
		return fmt.Errorf("%w: got offset %d, expected %d", ErrGap, offset, len(d.buf))
	}
	d.buf = append(d.buf, data...)

	if !d.ready {
		if err := d.tryReady(false); err != nil {
			return err
		}
	}
	if d.ready && !d.fragmented {
		return d.emitBuffered()
	}
	return nil
}

// EndOfStream flushes remaining samples. Fragmented containers are
// parsed in full here; their moof/mdat interleaving makes incremental
// table extraction pointless once the whole resource is present anyway.
func (d *Demuxer) EndOfStream() error {
	if d.onReady == nil || d.onSamples == nil {
		return ErrNoHandlers
	}
	if !d.ready {
		if err := d.tryReady(true); err != nil {
			return err
		}
		if !d.ready {
			return ErrNoVideoTrack
		}
	}
	if d.fragmented {
		return d.emitFragmented()
	}
	return d.emitBuffered()
}

// tryReady scans the buffered prefix for a complete moov box, parses it,
// selects the video track and fires OnReady. atEnd marks the buffer as
// the complete resource, which resolves open-ended boxes.
func (d *Demuxer) tryReady(atEnd bool) error {
	pos, size, ok := findTopLevelBox(d.buf, "moov", atEnd)
	if !ok {
		return nil
	}

	box, err := mp4.DecodeBox(uint64(pos), bytes.NewReader(d.buf[pos:pos+size]))
	if err != nil {
		return fmt.Errorf("decode moov: %w", err)
	}
	moov, ok := box.(*mp4.MoovBox)
	if !ok {
		return fmt.Errorf("unexpected box type at moov position")
	}

	trak := findVideoTrak(moov)
	if trak == nil {
		return ErrNoVideoTrack
	}

	info, err := trackInfo(moov, trak)
	if err != nil {
		return err
	}

	d.fragmented = moov.Mvex != nil
	if !d.fragmented {
		samples, err := buildSampleTable(trak)
		if err != nil {
			return err
		}
		d.samples = samples
	}

	d.ready = true
	d.logger.Debug("Track ready: %s, %.2fs, %d progressive samples", info.CodecID, info.DurationSeconds, len(d.samples))
	return d.onReady(info)
}

// emitBuffered emits, in order, every progressive sample whose byte
// range is fully inside the buffered prefix.
func (d *Demuxer) emitBuffered() error {
	var batch []ports.ContainerSample
	for d.nextSample < len(d.samples) {
		m := d.samples[d.nextSample]
		end := m.offset + uint64(m.size)
		if end > uint64(len(d.buf)) {
			break
		}
		data := make([]byte, m.size)
		copy(data, d.buf[m.offset:end])
		batch = append(batch, ports.ContainerSample{
			Data:        data,
			TimestampMs: m.timestampMs,
			DurationMs:  m.durationMs,
			Sync:        m.sync,
		})
		d.nextSample++
	}
	if len(batch) == 0 {
		return nil
	}
	return d.onSamples(batch)
}

// emitFragmented parses the complete fragmented file and emits all
// samples of the video track in fragment order.
func (d *Demuxer) emitFragmented() error {
	f, err := mp4.DecodeFile(bytes.NewReader(d.buf))
	if err != nil {
		return fmt.Errorf("decode mp4: %w", err)
	}
	if f.Init == nil || f.Init.Moov == nil {
		return ErrNoVideoTrack
	}

	trak := findVideoTrak(f.Init.Moov)
	if trak == nil {
		return ErrNoVideoTrack
	}
	trackID := trak.Tkhd.TrackID
	timescale := uint32(1000)
	if trak.Mdia != nil && trak.Mdia.Mdhd != nil {
		timescale = trak.Mdia.Mdhd.Timescale
	}

	var trex *mp4.TrexBox
	if f.Init.Moov.Mvex != nil {
		for _, t := range f.Init.Moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var batch []ports.ContainerSample
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != trackID {
					continue
				}
				var baseDecodeTime uint64
				if traf.Tfdt != nil {
					baseDecodeTime = traf.Tfdt.BaseMediaDecodeTime()
				}
				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return fmt.Errorf("get samples: %w", err)
				}
				currentTime := baseDecodeTime
				for _, sample := range samples {
					batch = append(batch, ports.ContainerSample{
						Data:        sample.Data,
						TimestampMs: int(currentTime * 1000 / uint64(timescale)),
						DurationMs:  int(uint64(sample.Dur) * 1000 / uint64(timescale)),
						Sync:        sample.Flags == mp4.SyncSampleFlags,
					})
					currentTime += uint64(sample.Dur)
				}
			}
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return d.onSamples(batch)
}

// findTopLevelBox scans top-level box headers in buf for a complete box
// of the given type, returning its start offset and total size. atEnd
// marks buf as the complete resource; without it a size-zero box has no
// known extent yet and the scan stops there.
func findTopLevelBox(buf []byte, boxType string, atEnd bool) (pos, size int, ok bool) {
	cursor := 0
	for cursor+8 <= len(buf) {
		boxSize := int(uint32(buf[cursor])<<24 | uint32(buf[cursor+1])<<16 | uint32(buf[cursor+2])<<8 | uint32(buf[cursor+3]))
		name := string(buf[cursor+4 : cursor+8])

		switch boxSize {
		case 0:
			// Box extends to end of stream.
			if !atEnd {
				return 0, 0, false
			}
			boxSize = len(buf) - cursor
		case 1:
			if cursor+16 > len(buf) {
				return 0, 0, false
			}
			large := uint64(0)
			for i := 0; i < 8; i++ {
				large = large<<8 | uint64(buf[cursor+8+i])
			}
			boxSize = int(large)
		}
		if boxSize < 8 {
			return 0, 0, false
		}

		if name == boxType {
			if cursor+boxSize <= len(buf) {
				return cursor, boxSize, true
			}
			return 0, 0, false
		}
		cursor += boxSize
	}
	return 0, 0, false
}

// findVideoTrak returns the first trak with a "vide" handler.
func findVideoTrak(moov *mp4.MoovBox) *mp4.TrakBox {
	for _, trak := range moov.Traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

// trackInfo derives the port-level track description, including the
// codec parameter record fields from the avcC box.
func trackInfo(moov *mp4.MoovBox, trak *mp4.TrakBox) (ports.TrackInfo, error) {
	var info ports.TrackInfo

	var avcC *mp4.AvcCBox
	if trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil && trak.Mdia.Minf.Stbl.Stsd != nil {
		for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
			if avc1, ok := child.(*mp4.VisualSampleEntryBox); ok {
				avcC = avc1.AvcC
				info.Width = int(avc1.Width)
				info.Height = int(avc1.Height)
			}
		}
	}
	if avcC == nil {
		return info, fmt.Errorf("%w: no AVC configuration", ErrNoVideoTrack)
	}

	info.ProfileIndication = avcC.AVCProfileIndication
	info.ProfileCompatibility = avcC.ProfileCompatibility
	info.LevelIndication = avcC.AVCLevelIndication
	// mp4ff always writes 4-byte NALU length prefixes.
	info.NALULengthSize = 4
	info.SPS = avcC.SPSnalus
	info.PPS = avcC.PPSnalus
	info.CodecID = fmt.Sprintf("avc1.%02X%02X%02X", avcC.AVCProfileIndication, avcC.ProfileCompatibility, avcC.AVCLevelIndication)

	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
		info.DurationSeconds = float64(trak.Mdia.Mdhd.Duration) / float64(trak.Mdia.Mdhd.Timescale)
	}
	if info.DurationSeconds == 0 && moov.Mvhd != nil && moov.Mvhd.Timescale > 0 {
		info.DurationSeconds = float64(moov.Mvhd.Duration) / float64(moov.Mvhd.Timescale)
	}
	return info, nil
}

// buildSampleTable resolves every progressive sample's absolute offset,
// size and timing from the sample table boxes.
func buildSampleTable(trak *mp4.TrakBox) ([]sampleMeta, error) {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return nil, fmt.Errorf("no sample table found")
	}
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil || stbl.Stsc == nil {
		return nil, fmt.Errorf("missing stsc or stsz box")
	}

	timescale := uint32(1000)
	if trak.Mdia.Mdhd != nil {
		timescale = trak.Mdia.Mdhd.Timescale
	}

	syncSamples := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			syncSamples[nr] = true
		}
	}

	sampleCount := stbl.Stsz.SampleNumber
	samples := make([]sampleMeta, 0, sampleCount)

	prevChunk := -1
	var offset uint64
	for sampleNr := uint32(1); sampleNr <= sampleCount; sampleNr++ {
		chunkNr, _, err := stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
		if err != nil {
			return nil, fmt.Errorf("get chunk nr: %w", err)
		}
		if chunkNr != prevChunk {
			offset, err = chunkOffset(stbl, chunkNr)
			if err != nil {
				return nil, err
			}
			prevChunk = chunkNr
		}

		size := stbl.Stsz.GetSampleSize(int(sampleNr))

		var decodeTime uint64
		var dur uint32
		if stbl.Stts != nil {
			decodeTime, dur = stbl.Stts.GetDecodeTime(sampleNr)
		}

		samples = append(samples, sampleMeta{
			offset:      offset,
			size:        size,
			timestampMs: int(decodeTime * 1000 / uint64(timescale)),
			durationMs:  int(uint64(dur) * 1000 / uint64(timescale)),
			sync:        syncSamples[sampleNr] || len(syncSamples) == 0,
		})
		offset += uint64(size)
	}

	return samples, nil
}

func chunkOffset(stbl *mp4.StblBox, chunkNr int) (uint64, error) {
	if stbl.Stco != nil {
		off, err := stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
		return off, nil
	}
	if stbl.Co64 != nil {
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return 0, fmt.Errorf("chunk nr out of range")
		}
		return stbl.Co64.ChunkOffset[chunkNr-1], nil
	}
	return 0, fmt.Errorf("no stco or co64 box")
}

var _ ports.ContainerDemuxer = (*Demuxer)(nil)
