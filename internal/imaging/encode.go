package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
)

// Format is an output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// DefaultJPEGQuality is used when encoding surfaces as JPEG.
const DefaultJPEGQuality = 90

// ParseFormat maps a format name or file extension to a Format.
// Unknown values fall back to PNG.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "jpg", "jpeg":
		return FormatJPEG
	default:
		return FormatPNG
	}
}

// MimeType returns the media type for f.
func (f Format) MimeType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

func (f Format) encoder() imgio.Encoder {
	if f == FormatJPEG {
		return imgio.JPEGEncoder(DefaultJPEGQuality)
	}
	return imgio.PNGEncoder()
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, f Format) error {
	if err := f.encoder()(w, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", f, err)
	}
	return nil
}

// SaveFile writes img to path, choosing the format from the extension.
func SaveFile(path string, img image.Image) error {
	f := ParseFormat(filepath.Ext(path))
	if err := imgio.Save(path, img, f.encoder()); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// EncodedImage contains an encoded image suitable for JSON transport.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodeBase64 encodes img in the given format and returns it base64-encoded
// along with its dimensions.
func EncodeBase64(img image.Image, f Format) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f); err != nil {
		return nil, err
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    f.MimeType(),
	}, nil
}
