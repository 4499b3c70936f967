package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/image-scanner/internal/detection"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Loader loads the Tesseract text detector as a detection.Model.
type Loader struct {
	// Language is a Tesseract language code such as "eng" or "deu".
	Language string

	// TessdataPrefix optionally points Tesseract at a tessdata directory.
	TessdataPrefix string
}

// NewLoader returns a Loader for the given language (DefaultLanguage if empty).
func NewLoader(language, tessdataPrefix string) *Loader {
	if language == "" {
		language = DefaultLanguage
	}
	return &Loader{Language: language, TessdataPrefix: tessdataPrefix}
}

// Load verifies that Tesseract and the language data are usable by running
// recognition on a blank image.
func (l *Loader) Load(ctx context.Context) (detection.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := &TextModel{language: l.Language, tessdataPrefix: l.TessdataPrefix}

	probe := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range probe.Pix {
		probe.Pix[i] = 0xFF
	}
	if _, err := m.boxes(probe); err != nil {
		return nil, err
	}
	return m, nil
}

// TextModel is a detection.Model that reports each recognised word as a
// prediction whose class is the word itself.
type TextModel struct {
	language       string
	tessdataPrefix string
}

// Detect runs word-level OCR on img and returns up to maxCandidates words,
// most confident first.
func (m *TextModel) Detect(ctx context.Context, img image.Image, maxCandidates int) ([]detection.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxes, err := m.boxes(img)
	if err != nil {
		return nil, err
	}
	return predictionsFromBoxes(boxes, maxCandidates), nil
}

// boxes returns Tesseract's word-level bounding boxes for img.
func (m *TextModel) boxes(img image.Image) ([]gosseract.BoundingBox, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("tesseract: failed to encode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if m.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(m.tessdataPrefix); err != nil {
			return nil, fmt.Errorf("tesseract: failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(m.language); err != nil {
		return nil, fmt.Errorf("tesseract: failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("tesseract: failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract: failed to get word boxes: %w", err)
	}
	return boxes, nil
}

// predictionsFromBoxes converts Tesseract word boxes to predictions. Empty
// words are skipped, confidence is scaled from 0-100 to 0-1, and the result
// is sorted by confidence (highest first) and capped at limit.
func predictionsFromBoxes(boxes []gosseract.BoundingBox, limit int) []detection.Prediction {
	preds := make([]detection.Prediction, 0, len(boxes))
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		r := box.Box
		preds = append(preds, detection.Prediction{
			Class: word,
			Score: float64(box.Confidence) / 100.0,
			BBox: [4]float64{
				float64(r.Min.X),
				float64(r.Min.Y),
				float64(r.Dx()),
				float64(r.Dy()),
			},
		})
	}

	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Score > preds[j].Score
	})
	if limit > 0 && len(preds) > limit {
		preds = preds[:limit]
	}
	return preds
}
