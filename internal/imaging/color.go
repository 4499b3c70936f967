package imaging

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseHexColor parses a hex color string like "#60A5FA" or "#60A5FAF2".
//
// The optional fourth byte is straight (non-premultiplied) alpha; without it
// the color is fully opaque.
func ParseHexColor(hex string) (color.NRGBA, error) {
	hex = strings.TrimSpace(hex)
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length: %q", hex)
	}

	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

// HexString formats c as "#RRGGBBAA".
func HexString(c color.NRGBA) string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// ClassColor returns a stable, distinct stroke color for a class label.
//
// The label is hashed onto the hue wheel and converted from HSV, keeping
// saturation and value high enough to stand out on photographs. The alpha of
// base is preserved so class colors blend like the default stroke.
func ClassColor(label string, base color.NRGBA) color.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	hue := float64(h.Sum32()%360) + 0.5

	c := colorful.Hsv(hue, 0.62, 0.98)
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: base.A}
}
