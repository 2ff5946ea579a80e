// Package framebuffer holds the ordered sequence of decoded, display-ready
// frames produced by the decode pipeline.
package framebuffer

import (
	"image"
	"math"
)

// Buffer is an append-only sequence of decoded frames. It is written
// only during the decode phase and frozen read-only afterwards; frame at
// index i represents playback time i / FrameRate().
type Buffer struct {
	frames    []image.Image
	frozen    bool
	frameRate float64
}

// New creates an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Append adds one frame in emission order. Appending to a frozen buffer
// is a programming fault.
func (b *Buffer) Append(img image.Image) {
	if b.frozen {
		panic("framebuffer: append after freeze")
	}
	b.frames = append(b.frames, img)
}

// Freeze marks the buffer read-only and derives the frame rate from the
// final frame count and the source duration in seconds. The frame rate
// is undefined before Freeze.
func (b *Buffer) Freeze(durationSeconds float64) {
	b.frozen = true
	if durationSeconds > 0 {
		b.frameRate = float64(len(b.frames)) / durationSeconds
	}
}

// Frozen reports whether decode has completed.
func (b *Buffer) Frozen() bool {
	return b.frozen
}

// Len returns the number of buffered frames.
func (b *Buffer) Len() int {
	return len(b.frames)
}

// FrameRate returns frames per second, valid only after Freeze.
func (b *Buffer) FrameRate() float64 {
	if !b.frozen {
		return 0
	}
	return b.frameRate
}

// FrameAt returns the frame at the given index, nil when out of range.
func (b *Buffer) FrameAt(index int) image.Image {
	if index < 0 || index >= len(b.frames) {
		return nil
	}
	return b.frames[index]
}

// IndexForTime returns the frame index for a playback position in
// seconds, clamped to the buffer range. Returns -1 for an empty buffer.
func (b *Buffer) IndexForTime(seconds float64) int {
	if len(b.frames) == 0 {
		return -1
	}
	idx := int(math.Floor(seconds * b.frameRate))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(b.frames) {
		idx = len(b.frames) - 1
	}
	return idx
}

// Release discards all frames. Decoded bitmaps are scarce; the buffer is
// released when a session ends or a failed decode falls back.
func (b *Buffer) Release() {
	b.frames = nil
	b.frameRate = 0
}
