// Package scanner is the application controller. It owns the model handle,
// the camera, the display surface, the result list and the status line, and
// runs the acquire -> detect -> render -> list pipeline for each image.
//
// App is safe for concurrent use. Model inference runs outside the state
// lock; when runs overlap the newest one wins and older runs are cancelled
// and discard their results.
package scanner

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ironsheep/image-scanner/internal/camera"
	"github.com/ironsheep/image-scanner/internal/detection"
	"github.com/ironsheep/image-scanner/internal/imaging"
)

// ErrSuperseded is returned by a run whose results were dropped because a
// newer run or a clear started before it finished.
var ErrSuperseded = errors.New("detection run superseded")

// CanvasInfo describes the display surface.
type CanvasInfo struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	Blank  bool `json:"blank"`
}

// State is a point-in-time snapshot of everything the UI shows.
type State struct {
	Status         Status     `json:"status"`
	Results        ResultList `json:"results"`
	ModelState     string     `json:"model_state"`
	CameraState    string     `json:"camera_state"`
	CameraButton   string     `json:"camera_button"`
	ClearEnabled   bool       `json:"clear_enabled"`
	NoImageVisible bool       `json:"no_image_visible"`
	Canvas         CanvasInfo `json:"canvas"`
}

// Options configure an App.
type Options struct {
	Style  imaging.Style
	Logger *slog.Logger
}

// App is the scanner controller.
type App struct {
	detector *detection.Detector
	camera   *camera.Camera
	style    imaging.Style
	logger   *slog.Logger

	// toggleMu serialises camera toggles so a rapid second toggle sees the
	// result of the first.
	toggleMu sync.Mutex

	mu             sync.Mutex
	surface        *imaging.Surface
	results        ResultList
	status         Status
	noImageVisible bool
	clearEnabled   bool
	generation     uint64
	cancelRun      context.CancelFunc
}

// New creates an App. cam may wrap a nil device, in which case camera
// actions report that the camera is unsupported.
func New(detector *detection.Detector, cam *camera.Camera, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cam == nil {
		cam = camera.New(nil, camera.DefaultConstraints(), logger)
	}
	style := opts.Style
	if style == (imaging.Style{}) {
		style = imaging.DefaultStyle()
	}

	return &App{
		detector:       detector,
		camera:         cam,
		style:          style,
		logger:         logger.With("component", "scanner"),
		surface:        imaging.NewSurface(0, 0),
		results:        EmptyResults(),
		status:         statusNeutral(MsgModelLoading),
		noImageVisible: true,
	}
}

// LoadModel loads the detection model and updates the status line. A failed
// load is permanent for this App.
func (a *App) LoadModel(ctx context.Context) error {
	a.setStatus(statusNeutral(MsgModelLoading))

	if err := a.detector.Load(ctx); err != nil {
		a.logger.Error("model unavailable", "error", err)
		a.setStatus(statusError(MsgModelLoadFailed))
		return err
	}

	a.setStatus(statusOK(MsgModelReady))
	return nil
}

// Upload runs the pipeline on an encoded image. A nil reader is ignored.
// An open camera session is closed first.
func (a *App) Upload(ctx context.Context, r io.Reader) error {
	if r == nil {
		return nil
	}

	a.mu.Lock()
	a.clearEnabled = true
	a.results.Placeholder = PlaceholderNoImage
	a.mu.Unlock()

	bmp, err := Acquire(ctx, UploadSource{R: r}, a.camera)
	if err != nil {
		a.logger.Warn("upload decode failed", "error", err)
		a.setStatus(statusError(MsgDecodeFailed))
		return err
	}
	return a.run(ctx, bmp)
}

// ToggleCamera opens the camera when idle, or captures a frame and runs the
// pipeline on it when active.
func (a *App) ToggleCamera(ctx context.Context) error {
	a.toggleMu.Lock()

	if !a.camera.Supported() {
		a.toggleMu.Unlock()
		a.setStatus(statusError(MsgCameraUnsupport))
		return camera.ErrUnsupported
	}

	if a.camera.Active() {
		bmp, err := Acquire(ctx, FrameSource{Camera: a.camera}, a.camera)
		a.toggleMu.Unlock()
		if err != nil {
			a.logger.Warn("capture failed", "error", err)
			a.setStatus(statusError(MsgCaptureFailed))
			return err
		}

		err = a.run(ctx, bmp)
		if !errors.Is(err, ErrSuperseded) {
			a.mu.Lock()
			a.clearEnabled = true
			a.mu.Unlock()
		}
		return err
	}
	defer a.toggleMu.Unlock()

	a.setStatus(statusNeutral(MsgCameraRequesting))
	if err := a.camera.Open(ctx); err != nil {
		if errors.Is(err, camera.ErrCancelled) {
			return err
		}
		a.setStatus(StatusForError(err))
		return err
	}

	a.mu.Lock()
	a.noImageVisible = false
	a.status = statusNeutral(MsgCameraActive)
	a.mu.Unlock()
	return nil
}

// StopCamera closes the camera session, if any.
func (a *App) StopCamera() {
	a.camera.Stop()
}

// Clear stops the camera, cancels any in-flight run, blanks the surface,
// restores the result placeholder and resets the status line.
func (a *App) Clear() {
	a.camera.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.supersedeLocked()
	a.surface.Clear()
	a.noImageVisible = true
	a.results = EmptyResults()
	a.clearEnabled = false
	a.status = modelStatus(a.detector)
}

// State returns a snapshot of the UI state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	results := a.results
	results.Items = append([]ResultItem{}, a.results.Items...)

	button := ButtonOpenCamera
	if a.camera.Active() {
		button = ButtonCapturePhoto
	}

	return State{
		Status:         a.status,
		Results:        results,
		ModelState:     a.detector.State().String(),
		CameraState:    a.camera.State().String(),
		CameraButton:   button,
		ClearEnabled:   a.clearEnabled,
		NoImageVisible: a.noImageVisible,
		Canvas: CanvasInfo{
			Width:  a.surface.Width(),
			Height: a.surface.Height(),
			Blank:  a.surface.Blank(),
		},
	}
}

// Canvas returns a copy of the display surface.
func (a *App) Canvas() *image.RGBA {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.surface.Snapshot()
}

// Camera returns the App's camera.
func (a *App) Camera() *camera.Camera { return a.camera }

// run detects objects in bmp and publishes the result, unless a newer run or
// a clear has started in the meantime.
func (a *App) run(ctx context.Context, bmp *imaging.Bitmap) error {
	if !a.detector.Ready() {
		err := a.detector.Err()
		if err == nil {
			err = detection.ErrModelUnavailable
		}
		a.setStatus(StatusForError(err))
		return err
	}

	runID := uuid.NewString()
	logger := a.logger.With("run", runID)

	a.mu.Lock()
	a.supersedeLocked()
	gen := a.generation
	runCtx, cancel := context.WithCancel(ctx)
	a.cancelRun = cancel
	a.results.reset()
	a.status = statusNeutral(MsgDetecting)
	a.surface.Present(bmp)
	a.noImageVisible = false
	a.mu.Unlock()

	logger.Info("running detection", "width", bmp.Width, "height", bmp.Height, "format", bmp.Format)
	dets, err := a.detector.Detect(runCtx, bmp.Image)

	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.generation {
		cancel()
		logger.Info("run superseded, discarding results")
		return ErrSuperseded
	}
	a.cancelRun = nil
	cancel()

	if err != nil {
		logger.Error("detection failed", "error", err)
		a.status = StatusForError(err)
		return err
	}

	Render(a.surface, bmp, dets, a.style)
	a.results = ListResults(dets)
	if len(dets) > 0 {
		a.status = statusOK(MsgDetectDone)
	} else {
		a.status = statusOK(MsgDetectDoneEmpty)
	}
	logger.Info("detection complete", "objects", len(dets))
	return nil
}

// supersedeLocked cancels the in-flight run, if any, and starts a new
// generation.
func (a *App) supersedeLocked() {
	if a.cancelRun != nil {
		a.cancelRun()
		a.cancelRun = nil
	}
	a.generation++
}

func (a *App) setStatus(s Status) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
}
