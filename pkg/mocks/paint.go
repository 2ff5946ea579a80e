package mocks

import (
	"image"

	"github.com/user/scrubview/pkg/ports"
)

// PaintSurface is a mock implementation of ports.PaintSurface. It
// records every painted image and resize.
type PaintSurface struct {
	Width  int
	Height int

	Painted []image.Image
	Resizes [][2]int
}

// NewPaintSurface creates a paint surface mock with the given size.
func NewPaintSurface(width, height int) *PaintSurface {
	return &PaintSurface{Width: width, Height: height}
}

func (m *PaintSurface) Resize(width, height int) {
	m.Width = width
	m.Height = height
	m.Resizes = append(m.Resizes, [2]int{width, height})
}

func (m *PaintSurface) Paint(img image.Image) {
	m.Painted = append(m.Painted, img)
}

func (m *PaintSurface) Size() (int, int) {
	return m.Width, m.Height
}

func (m *PaintSurface) Image() image.Image {
	if len(m.Painted) == 0 {
		return nil
	}
	return m.Painted[len(m.Painted)-1]
}

var _ ports.PaintSurface = (*PaintSurface)(nil)
