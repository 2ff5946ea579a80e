// Package codecconfig serializes AVC codec parameter records into the
// decoder configuration record layout (ISO/IEC 14496-15 avcC) expected
// by a decoder configuration call.
package codecconfig

import (
	"errors"
	"fmt"

	"github.com/user/scrubview/pkg/bitwriter"
)

var (
	// ErrTruncated is returned by Parse when the input ends before the
	// record is complete.
	ErrTruncated = errors.New("codecconfig: truncated record")
	// ErrBadLengthSize is returned when the NALU length size is not
	// 1, 2 or 4 bytes.
	ErrBadLengthSize = errors.New("codecconfig: invalid NALU length size")
)

// ParameterRecord holds the parameter sets and scalar fields of an AVC
// decoder configuration record. It is derived once from container
// metadata and never mutated.
type ParameterRecord struct {
	Version              byte
	ProfileIndication    byte
	ProfileCompatibility byte
	LevelIndication      byte
	// NALULengthSize is the byte width of NALU length prefixes (1, 2 or 4).
	NALULengthSize int
	// SPS holds sequence parameter sets, PPS picture parameter sets,
	// each entry a raw payload without length prefix.
	SPS [][]byte
	PPS [][]byte
}

// Size returns the exact marshaled size in bytes:
// 7 fixed bytes plus a 2-byte length prefix per parameter set.
func (r ParameterRecord) Size() int {
	n := 7
	for _, sps := range r.SPS {
		n += 2 + len(sps)
	}
	for _, pps := range r.PPS {
		n += 2 + len(pps)
	}
	return n
}

// Marshal emits the record in the exact byte layout the decoder
// configuration format dictates. The layout must be reproduced
// bit-for-bit: a deviating blob makes the decoder reject configuration
// or stall.
func (r ParameterRecord) Marshal() ([]byte, error) {
	if r.NALULengthSize != 1 && r.NALULengthSize != 2 && r.NALULengthSize != 4 {
		return nil, fmt.Errorf("%w: %d", ErrBadLengthSize, r.NALULengthSize)
	}

	w := bitwriter.New(r.Size())
	w.WriteByte(r.Version)
	w.WriteByte(r.ProfileIndication)
	w.WriteByte(r.ProfileCompatibility)
	w.WriteByte(r.LevelIndication)
	w.WriteByte(0xFC | byte(r.NALULengthSize-1))
	w.WriteByte(0xE0 | byte(len(r.SPS)))
	for _, sps := range r.SPS {
		w.WriteUint16(uint16(len(sps)))
		w.WriteBlock(sps)
	}
	w.WriteByte(byte(len(r.PPS)))
	for _, pps := range r.PPS {
		w.WriteUint16(uint16(len(pps)))
		w.WriteBlock(pps)
	}

	return w.Finalize()
}

// CodecID returns the RFC 6381 codec identifier for the record,
// e.g. "avc1.64001F".
func (r ParameterRecord) CodecID() string {
	return fmt.Sprintf("avc1.%02X%02X%02X", r.ProfileIndication, r.ProfileCompatibility, r.LevelIndication)
}

// Parse reads a marshaled decoder configuration record back into a
// ParameterRecord.
func Parse(data []byte) (ParameterRecord, error) {
	var r ParameterRecord
	if len(data) < 7 {
		return r, ErrTruncated
	}

	r.Version = data[0]
	r.ProfileIndication = data[1]
	r.ProfileCompatibility = data[2]
	r.LevelIndication = data[3]
	r.NALULengthSize = int(data[4]&0x03) + 1

	pos := 6
	numSPS := int(data[5] & 0x1F)
	for i := 0; i < numSPS; i++ {
		payload, next, err := readEntry(data, pos)
		if err != nil {
			return r, err
		}
		r.SPS = append(r.SPS, payload)
		pos = next
	}

	if pos >= len(data) {
		return r, ErrTruncated
	}
	numPPS := int(data[pos])
	pos++
	for i := 0; i < numPPS; i++ {
		payload, next, err := readEntry(data, pos)
		if err != nil {
			return r, err
		}
		r.PPS = append(r.PPS, payload)
		pos = next
	}

	return r, nil
}

func readEntry(data []byte, pos int) ([]byte, int, error) {
	if pos+2 > len(data) {
		return nil, 0, ErrTruncated
	}
	length := int(data[pos])<<8 | int(data[pos+1])
	pos += 2
	if pos+length > len(data) {
		return nil, 0, ErrTruncated
	}
	payload := make([]byte, length)
	copy(payload, data[pos:pos+length])
	return payload, pos + length, nil
}
