package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// CropBox extracts the region (x, y, w, h) of b, clamped to the bitmap
// bounds. Scale values other than 1 resize the result with Lanczos.
func CropBox(b *Bitmap, x, y, w, h, scale float64) (image.Image, error) {
	if b == nil || b.Image == nil {
		return nil, fmt.Errorf("%w: no bitmap", ErrDecode)
	}

	r := image.Rect(
		int(math.Floor(x)),
		int(math.Floor(y)),
		int(math.Ceil(x+w)),
		int(math.Ceil(y+h)),
	).Intersect(image.Rect(0, 0, b.Width, b.Height))
	if r.Empty() {
		return nil, fmt.Errorf("crop region (%.1f,%.1f %.1fx%.1f) outside image bounds %dx%d",
			x, y, w, h, b.Width, b.Height)
	}

	cropped := imaging.Crop(b.Image, r)

	if scale != 1.0 && scale > 0 {
		newWidth := max(1, int(float64(cropped.Bounds().Dx())*scale))
		newHeight := max(1, int(float64(cropped.Bounds().Dy())*scale))
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	return cropped, nil
}
