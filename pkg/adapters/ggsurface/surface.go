// Package ggsurface implements the paint surface using the gg library,
// with aspect-fill frame scaling via golang.org/x/image.
package ggsurface

import (
	"image"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/user/scrubview/pkg/ports"
)

// Surface paints decoded frames onto a gg drawing context. Frames are
// scaled uniformly to fill the surface (cropping, never letterboxing)
// and centered.
type Surface struct {
	dc *gg.Context
}

// New creates a Surface with no backing context. The surface stays a
// no-op until the first Resize.
func New() *Surface {
	return &Surface{}
}

// Resize recreates the drawing context with new dimensions.
func (s *Surface) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.dc = gg.NewContext(width, height)
}

// Paint draws one frame aspect-filled and centered. Safe to call with a
// nil frame or before the first Resize.
func (s *Surface) Paint(img image.Image) {
	if s.dc == nil || img == nil {
		return
	}

	sw, sh := s.dc.Width(), s.dc.Height()
	fw, fh := img.Bounds().Dx(), img.Bounds().Dy()
	if fw == 0 || fh == 0 {
		return
	}

	_, dx, dy, dw, dh := fillPlacement(sw, sh, fw, fh)

	// Fast scaler: this path favors throughput over per-frame fidelity.
	scaled := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)

	s.dc.SetRGB(0, 0, 0)
	s.dc.Clear()
	s.dc.DrawImage(scaled, dx, dy)
}

// fillPlacement computes the uniform aspect-fill scale and the centered
// placement of a frame on a surface. The larger of the two axis scales
// wins so the frame covers the whole surface.
func fillPlacement(sw, sh, fw, fh int) (scale float64, dx, dy, dw, dh int) {
	scaleX := float64(sw) / float64(fw)
	scaleY := float64(sh) / float64(fh)
	scale = scaleX
	if scaleY > scale {
		scale = scaleY
	}
	dw = int(float64(fw) * scale)
	dh = int(float64(fh) * scale)
	dx = (sw - dw) / 2
	dy = (sh - dh) / 2
	return scale, dx, dy, dw, dh
}

// Size returns the current surface dimensions, zeros before Resize.
func (s *Surface) Size() (int, int) {
	if s.dc == nil {
		return 0, 0
	}
	return s.dc.Width(), s.dc.Height()
}

// Image returns the surface content, nil before Resize.
func (s *Surface) Image() image.Image {
	if s.dc == nil {
		return nil
	}
	return s.dc.Image()
}

var _ ports.PaintSurface = (*Surface)(nil)
