package scanner

import (
	"errors"

	"github.com/ironsheep/image-scanner/internal/camera"
	"github.com/ironsheep/image-scanner/internal/detection"
	"github.com/ironsheep/image-scanner/internal/imaging"
)

// Level is the visual state of the status line.
type Level string

const (
	LevelNeutral Level = "neutral"
	LevelOK      Level = "ok"
	LevelError   Level = "error"
)

// Status is the single human-readable status line.
type Status struct {
	Text  string `json:"text"`
	Level Level  `json:"level"`
}

// Status line texts.
const (
	MsgModelLoading     = "Loading object detection model…"
	MsgModelReady       = "Model ready. Select or capture an image to start."
	MsgModelLoadFailed  = "Failed to load model. Check your network connection and refresh."
	MsgModelNotReady    = "Model not ready yet. Please wait…"
	MsgDetecting        = "Running detection…"
	MsgDetectDone       = "Detection complete."
	MsgDetectDoneEmpty  = "Detection complete (no objects found)."
	MsgDetectFailed     = "Detection failed. Check logs for details."
	MsgDecodeFailed     = "Unable to read image file."
	MsgCameraUnsupport  = "Camera not supported on this host. Please use image upload instead."
	MsgCameraRequesting = "Requesting camera access…"
	MsgCameraActive     = "Camera active. When ready, click \"Capture Photo\"."
	MsgCameraDenied     = "Could not access camera. Check permissions and try again."
	MsgCaptureFailed    = "Unable to capture photo from camera."
)

// Camera toggle button labels.
const (
	ButtonOpenCamera   = "Open Camera"
	ButtonCapturePhoto = "Capture Photo"
)

func statusNeutral(text string) Status { return Status{Text: text, Level: LevelNeutral} }
func statusOK(text string) Status      { return Status{Text: text, Level: LevelOK} }
func statusError(text string) Status   { return Status{Text: text, Level: LevelError} }

// StatusForError maps a pipeline error to the status line shown to the user.
func StatusForError(err error) Status {
	switch {
	case err == nil:
		return statusOK(MsgDetectDone)
	case errors.Is(err, imaging.ErrDecode):
		return statusError(MsgDecodeFailed)
	case errors.Is(err, detection.ErrModelLoad):
		return statusError(MsgModelLoadFailed)
	case errors.Is(err, detection.ErrModelUnavailable):
		return statusError(MsgModelNotReady)
	case errors.Is(err, detection.ErrDetection):
		return statusError(MsgDetectFailed)
	case errors.Is(err, camera.ErrUnsupported):
		return statusError(MsgCameraUnsupport)
	case errors.Is(err, camera.ErrCapture), errors.Is(err, camera.ErrNotActive):
		return statusError(MsgCaptureFailed)
	case errors.Is(err, camera.ErrPermission), errors.Is(err, camera.ErrUnavailable):
		return statusError(MsgCameraDenied)
	default:
		return statusError(MsgDetectFailed)
	}
}

// modelStatus is the resting status for the current model state.
func modelStatus(d *detection.Detector) Status {
	switch d.State() {
	case detection.StateReady:
		return statusOK(MsgModelReady)
	case detection.StateFailed:
		return statusError(MsgModelLoadFailed)
	default:
		return statusNeutral(MsgModelLoading)
	}
}
