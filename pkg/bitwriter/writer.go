// Package bitwriter provides a fixed-capacity sequential byte writer for
// assembling decoder configuration blobs.
package bitwriter

import (
	"errors"
	"fmt"
)

// ErrSizeMismatch is returned when the number of bytes written does not
// match the declared capacity. It indicates a size-computation bug in
// the caller, not a recoverable input error.
var ErrSizeMismatch = errors.New("bitwriter: size mismatch")

// Writer is a fixed-capacity byte buffer with a sequential write cursor.
// The capacity is fixed at construction so that a wrong size computation
// fails loudly at serialization time instead of producing a corrupted
// configuration blob.
type Writer struct {
	buf      []byte
	cursor   int
	overflow int // bytes attempted past capacity
}

// New creates a Writer with the given capacity.
func New(capacity int) *Writer {
	return &Writer{buf: make([]byte, capacity)}
}

// WriteByte writes a single byte and advances the cursor.
func (w *Writer) WriteByte(b byte) {
	if w.cursor >= len(w.buf) {
		w.overflow++
		return
	}
	w.buf[w.cursor] = b
	w.cursor++
}

// WriteUint16 writes a two-byte value most-significant-byte first,
// regardless of host endianness.
func (w *Writer) WriteUint16(v uint16) {
	w.WriteByte(byte(v >> 8))
	w.WriteByte(byte(v))
}

// WriteBlock writes a byte slice and advances the cursor by its length.
func (w *Writer) WriteBlock(p []byte) {
	for _, b := range p {
		w.WriteByte(b)
	}
}

// Len returns the number of bytes written so far, capped at capacity.
func (w *Writer) Len() int {
	return w.cursor
}

// Cap returns the declared capacity.
func (w *Writer) Cap() int {
	return len(w.buf)
}

// Finalize returns the written region. It fails with ErrSizeMismatch
// unless exactly the declared capacity was written: under-fill and
// attempted overflow are both reported.
func (w *Writer) Finalize() ([]byte, error) {
	if w.overflow > 0 {
		return nil, fmt.Errorf("%w: %d bytes past capacity %d", ErrSizeMismatch, w.overflow, len(w.buf))
	}
	if w.cursor != len(w.buf) {
		return nil, fmt.Errorf("%w: wrote %d of %d bytes", ErrSizeMismatch, w.cursor, len(w.buf))
	}
	return w.buf, nil
}
