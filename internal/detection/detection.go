package detection

import (
	"context"
	"fmt"
	"image"
)

const (
	// MaxCandidates is how many predictions the model is asked for, so that
	// several objects in one image can be reported.
	MaxCandidates = 10

	// ConfidenceThreshold is the minimum score a prediction needs to be
	// reported. Scores equal to the threshold are kept.
	ConfidenceThreshold = 0.15
)

// Prediction is one raw candidate as returned by a model.
type Prediction struct {
	// Class is the predicted class name, e.g. "person".
	Class string `json:"class"`

	// Score is the model's confidence in [0, 1].
	Score float64 `json:"score"`

	// BBox is [x, y, width, height] in source-image pixels.
	BBox [4]float64 `json:"bbox"`
}

// BoundingBox is an axis-aligned rectangle in source-image pixel coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect rounds the box to integer pixel bounds.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(int(b.X+0.5), int(b.Y+0.5), int(b.X+b.Width+0.5), int(b.Y+b.Height+0.5))
}

// Detection is a prediction that passed the confidence filter.
type Detection struct {
	Label      string      `json:"label"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

// Percent formats the confidence as a percentage with one decimal place,
// e.g. "82.0%".
func (d Detection) Percent() string {
	return fmt.Sprintf("%.1f%%", d.Confidence*100)
}

// String returns the label tag text, e.g. "person 82.0%".
func (d Detection) String() string {
	return d.Label + " " + d.Percent()
}

// Filter converts predictions to detections, keeping only those whose score
// is at least threshold. Order is preserved. NaN scores are dropped.
func Filter(preds []Prediction, threshold float64) []Detection {
	out := make([]Detection, 0, len(preds))
	for _, p := range preds {
		if !(p.Score >= threshold) {
			continue
		}
		out = append(out, Detection{
			Label:      p.Class,
			Confidence: p.Score,
			Box: BoundingBox{
				X:      p.BBox[0],
				Y:      p.BBox[1],
				Width:  p.BBox[2],
				Height: p.BBox[3],
			},
		})
	}
	return out
}

// Model is a loaded object-detection model.
type Model interface {
	// Detect returns up to maxCandidates predictions for img.
	Detect(ctx context.Context, img image.Image, maxCandidates int) ([]Prediction, error)
}

// Loader loads a Model. Load may block on network or disk.
type Loader interface {
	Load(ctx context.Context) (Model, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (Model, error)

// Load calls f(ctx).
func (f LoaderFunc) Load(ctx context.Context) (Model, error) { return f(ctx) }

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, img image.Image, maxCandidates int) ([]Prediction, error)

// Detect calls f(ctx, img, maxCandidates).
func (f ModelFunc) Detect(ctx context.Context, img image.Image, maxCandidates int) ([]Prediction, error) {
	return f(ctx, img, maxCandidates)
}
