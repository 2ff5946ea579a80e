package ports

import (
	"image"
)

// PaintSurface abstracts the 2D output surface frames are painted onto.
type PaintSurface interface {
	// Resize recreates the surface with new dimensions. The previous
	// content is discarded.
	Resize(width, height int)

	// Paint draws one frame aspect-filled and centered on the surface.
	// Painting a nil image, or painting before the first Resize, is a
	// no-op.
	Paint(img image.Image)

	// Size returns the current surface dimensions, zeros before the
	// first Resize.
	Size() (width, height int)

	// Image returns the current surface content, nil before the first
	// Resize.
	Image() image.Image
}
