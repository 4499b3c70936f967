package scanner

import "github.com/ironsheep/image-scanner/internal/detection"

// Result list placeholders.
const (
	PlaceholderNoImage   = "Detection results will appear here."
	PlaceholderNoObjects = "No high-confidence objects detected."
)

// ResultItem is one row of the result list.
type ResultItem struct {
	Label      string `json:"label"`
	Confidence string `json:"confidence"`
}

// String returns the row as shown in the label tag, e.g. "person 82.0%".
func (r ResultItem) String() string { return r.Label + " " + r.Confidence }

// ResultList is the textual result panel. When Items is empty the
// placeholder is shown instead.
type ResultList struct {
	Items              []ResultItem `json:"items"`
	Placeholder        string       `json:"placeholder"`
	PlaceholderVisible bool         `json:"placeholder_visible"`
}

// EmptyResults is the list before any image has been processed.
func EmptyResults() ResultList {
	return ResultList{
		Items:              []ResultItem{},
		Placeholder:        PlaceholderNoImage,
		PlaceholderVisible: true,
	}
}

// ListResults builds the result list for a completed run. A nil or empty
// input shows the "nothing found" placeholder.
func ListResults(dets []detection.Detection) ResultList {
	if len(dets) == 0 {
		return ResultList{
			Items:              []ResultItem{},
			Placeholder:        PlaceholderNoObjects,
			PlaceholderVisible: true,
		}
	}

	items := make([]ResultItem, len(dets))
	for i, d := range dets {
		items[i] = ResultItem{Label: d.Label, Confidence: d.Percent()}
	}
	return ResultList{Items: items, Placeholder: PlaceholderNoObjects}
}

// reset empties the list but keeps the current placeholder text.
func (l *ResultList) reset() {
	l.Items = []ResultItem{}
	l.PlaceholderVisible = true
}
