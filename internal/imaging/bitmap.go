package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrDecode is returned when image data is missing, corrupt, or in an
// unsupported format.
var ErrDecode = errors.New("unable to decode image")

// Decode limits. Dimensions are checked from the header before any pixels
// are allocated.
const (
	// DefaultMaxBytes bounds how much encoded data Decode will read.
	DefaultMaxBytes = 32 << 20

	MaxWidth  = 4096
	MaxHeight = 4096
	MaxPixels = 16777216
)

// Bitmap is a decoded raster image with explicit pixel dimensions,
// independent of the format it was decoded from.
type Bitmap struct {
	// Image holds the decoded pixels. Bounds always start at (0,0).
	Image image.Image

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the source format name reported by the decoder
	// ("png", "jpeg", "gif", "bmp", "webp"), or "frame" for raw camera frames.
	Format string `json:"format"`
}

// NewBitmap wraps an already-decoded image, normalising its bounds so the
// origin is (0,0).
func NewBitmap(img image.Image, format string) *Bitmap {
	if img.Bounds().Min != (image.Point{}) {
		img = imaging.Clone(img)
	}
	b := img.Bounds()
	return &Bitmap{
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
	}
}

// Decode reads an encoded image and returns it as a Bitmap.
//
// At most DefaultMaxBytes are read. The format is detected from the content,
// not from any filename. EXIF orientation tags on JPEG input are honoured, so
// the returned Width and Height are the displayed dimensions.
//
// Every failure wraps ErrDecode, so callers can test with errors.Is.
func Decode(r io.Reader) (*Bitmap, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no image data", ErrDecode)
	}

	data, err := io.ReadAll(io.LimitReader(r, DefaultMaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrDecode, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	if len(data) > DefaultMaxBytes {
		return nil, fmt.Errorf("%w: input exceeds %d bytes", ErrDecode, DefaultMaxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}
	if cfg.Width > MaxWidth || cfg.Height > MaxHeight {
		return nil, fmt.Errorf("%w: dimensions %dx%d exceed %dx%d", ErrDecode, cfg.Width, cfg.Height, MaxWidth, MaxHeight)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, fmt.Errorf("%w: %d pixels exceed %d", ErrDecode, cfg.Width*cfg.Height, MaxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return NewBitmap(img, format), nil
}

// DecodeFile opens path and decodes it with Decode.
func DecodeFile(path string) (*Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrDecode, err)
	}
	defer f.Close()

	return Decode(f)
}

// FromFrame turns a raw video frame into a Bitmap by encoding it as JPEG at
// the given quality and decoding the result, the same round trip a browser
// makes when it converts a video frame to a blob.
//
// A zero-sized frame is rejected with ErrDecode.
func FromFrame(frame image.Image, quality int) (*Bitmap, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrDecode)
	}
	if quality <= 0 || quality > 100 {
		quality = 95
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	return Decode(&buf)
}
