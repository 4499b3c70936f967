package imaging

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Default surface dimensions before any image has been drawn.
const (
	DefaultSurfaceWidth  = 300
	DefaultSurfaceHeight = 150
)

// Surface is the drawable display area that holds the current image and its
// annotations. Resizing a surface discards its content, like an HTML canvas.
type Surface struct {
	img *image.RGBA
}

// NewSurface creates a transparent surface of the given size. Non-positive
// dimensions fall back to the defaults.
func NewSurface(width, height int) *Surface {
	s := &Surface{}
	s.Resize(width, height)
	return s
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.img.Bounds().Dx() }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.img.Bounds().Dy() }

// Resize sets the surface to exactly width x height pixels and clears it.
func (s *Surface) Resize(width, height int) {
	if width <= 0 {
		width = DefaultSurfaceWidth
	}
	if height <= 0 {
		height = DefaultSurfaceHeight
	}
	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Clear blanks every pixel to transparent without changing the size.
func (s *Surface) Clear() {
	for i := range s.img.Pix {
		s.img.Pix[i] = 0
	}
}

// Blank reports whether every pixel is fully transparent.
func (s *Surface) Blank() bool {
	for i := 3; i < len(s.img.Pix); i += 4 {
		if s.img.Pix[i] != 0 {
			return false
		}
	}
	return true
}

// DrawBitmap draws b over the whole surface. When the sizes match the copy is
// 1:1; otherwise the bitmap is scaled to fit.
func (s *Surface) DrawBitmap(b *Bitmap) {
	if b == nil || b.Image == nil {
		return
	}
	dst := s.img.Bounds()
	src := b.Image.Bounds()
	if dst.Size() == src.Size() {
		draw.Draw(s.img, dst, b.Image, src.Min, draw.Over)
		return
	}
	xdraw.ApproxBiLinear.Scale(s.img, dst, b.Image, src, xdraw.Over, nil)
}

// Present resizes the surface to the bitmap's dimensions, clears it, and
// draws the bitmap at 1:1 so that source-pixel coordinates map directly onto
// the surface.
func (s *Surface) Present(b *Bitmap) {
	s.Resize(b.Width, b.Height)
	s.DrawBitmap(b)
}

// Image exposes the backing image for drawing. The returned value aliases
// the surface and is invalidated by Resize.
func (s *Surface) Image() *image.RGBA { return s.img }

// Snapshot returns a copy of the current surface content.
func (s *Surface) Snapshot() *image.RGBA {
	cp := image.NewRGBA(s.img.Bounds())
	copy(cp.Pix, s.img.Pix)
	return cp
}
