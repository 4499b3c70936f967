package detection

import "errors"

var (
	// ErrModelLoad means the model could not be loaded. It is permanent for
	// the Detector that reported it.
	ErrModelLoad = errors.New("failed to load detection model")

	// ErrModelUnavailable means the model has not finished loading yet.
	ErrModelUnavailable = errors.New("detection model not ready")

	// ErrDetection means the model failed while running inference.
	ErrDetection = errors.New("detection failed")
)
