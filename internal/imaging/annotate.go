package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Label tag geometry, in pixels.
const (
	tagPaddingX = 6
	tagPaddingY = 4

	minLineWidth = 2
	minFontSize  = 12
)

// Annotation is one box to draw on a surface.
type Annotation struct {
	// Class is the detected class name. It selects the stroke color when
	// Style.ColorByClass is set.
	Class string

	// Text is the label tag content, e.g. "person 82.0%".
	Text string

	// X, Y, Width, Height describe the box in surface pixel coordinates.
	X, Y, Width, Height float64
}

// Style holds the colors used for annotations.
type Style struct {
	Stroke       color.NRGBA
	Tag          color.NRGBA
	Text         color.NRGBA
	ColorByClass bool
}

// DefaultStyle returns a light-blue stroke with a dark slate tag and
// near-white text.
func DefaultStyle() Style {
	return Style{
		Stroke: color.NRGBA{R: 96, G: 165, B: 250, A: 242},
		Tag:    color.NRGBA{R: 15, G: 23, B: 42, A: 230},
		Text:   color.NRGBA{R: 229, G: 231, B: 235, A: 255},
	}
}

// StyleFromHex builds a Style from hex color strings. Empty strings keep the
// default for that color.
func StyleFromHex(stroke, tag, text string, colorByClass bool) (Style, error) {
	st := DefaultStyle()
	st.ColorByClass = colorByClass

	for _, c := range []struct {
		name string
		hex  string
		dst  *color.NRGBA
	}{
		{"stroke", stroke, &st.Stroke},
		{"tag", tag, &st.Tag},
		{"text", text, &st.Text},
	} {
		if c.hex == "" {
			continue
		}
		parsed, err := ParseHexColor(c.hex)
		if err != nil {
			return Style{}, fmt.Errorf("%s color: %w", c.name, err)
		}
		*c.dst = parsed
	}
	return st, nil
}

// LineWidth returns the stroke width for a surface of the given width.
func LineWidth(surfaceWidth int) int {
	return max(minLineWidth, int(math.Round(float64(surfaceWidth)*0.0025)))
}

// FontSize returns the label font size for a surface of the given width.
func FontSize(surfaceWidth int) int {
	return max(minFontSize, int(math.Round(float64(surfaceWidth)*0.02)))
}

// TagRect returns where the label tag for a box at (x, y) goes, given the
// measured text width and font size. The tag sits directly above the box and
// is clamped so it never starts above y=0.
func TagRect(x, y float64, textWidth, fontSize int) image.Rectangle {
	textHeight := fontSize + tagPaddingY
	left := int(math.Round(x))
	top := max(0, int(math.Round(y))-textHeight)
	return image.Rect(left, top, left+textWidth+tagPaddingX*2, top+textHeight)
}

// Annotate draws every annotation onto s: a stroked rectangle at the box and
// a filled label tag above it. Line width and font size scale with the
// surface width.
func Annotate(s *Surface, anns []Annotation, style Style) {
	if len(anns) == 0 {
		return
	}

	dst := s.Image()
	lw := LineWidth(s.Width())
	fs := FontSize(s.Width())

	face := newLabelFace(fs)
	defer face.Close()

	for _, a := range anns {
		stroke := style.Stroke
		if style.ColorByClass && a.Class != "" {
			stroke = ClassColor(a.Class, style.Stroke)
		}
		strokeRect(dst, a.X, a.Y, a.Width, a.Height, lw, stroke)

		textWidth := font.MeasureString(face, a.Text).Ceil()
		tag := TagRect(a.X, a.Y, textWidth, fs)
		fillRect(dst, tag, style.Tag)

		m := face.Metrics()
		ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
		baseline := tag.Min.Y + (tag.Dy()-(ascent+descent))/2 + ascent

		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(style.Text),
			Face: face,
			Dot:  fixed.P(tag.Min.X+tagPaddingX, baseline),
		}
		d.DrawString(a.Text)
	}
}

// strokeRect strokes the outline of (x, y, w, h) with the line centred on
// the path, as a canvas strokeRect does.
func strokeRect(dst draw.Image, x, y, w, h float64, lw int, c color.NRGBA) {
	half := float64(lw) / 2
	x0 := int(math.Round(x - half))
	y0 := int(math.Round(y - half))
	x1 := int(math.Round(x + w + half))
	y1 := int(math.Round(y + h + half))

	fillRect(dst, image.Rect(x0, y0, x1, y0+lw), c)
	fillRect(dst, image.Rect(x0, y1-lw, x1, y1), c)
	fillRect(dst, image.Rect(x0, y0+lw, x0+lw, y1-lw), c)
	fillRect(dst, image.Rect(x1-lw, y0+lw, x1, y1-lw), c)
}

func fillRect(dst draw.Image, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
}

var (
	labelFontOnce sync.Once
	labelFont     *opentype.Font
	labelFontErr  error
)

// newLabelFace returns a Go Regular face at the given pixel size, falling
// back to the fixed 7x13 bitmap face if the font cannot be loaded. The
// returned face must not be shared between goroutines.
func newLabelFace(size int) font.Face {
	labelFontOnce.Do(func() {
		labelFont, labelFontErr = opentype.Parse(goregular.TTF)
	})
	if labelFontErr != nil {
		return basicfont.Face7x13
	}

	face, err := opentype.NewFace(labelFont, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
