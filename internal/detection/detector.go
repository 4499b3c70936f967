package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle state of a Detector's model.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Detector owns a model handle and applies the candidate cap and confidence
// filter to every run. It is safe for concurrent use.
type Detector struct {
	loader Loader
	logger *slog.Logger

	mu      sync.RWMutex
	state   State
	model   Model
	loadErr error
}

// NewDetector creates a Detector that will load its model from loader.
// A nil logger uses slog.Default().
func NewDetector(loader Loader, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		loader: loader,
		logger: logger.With("component", "detector"),
	}
}

// State returns the current model state.
func (d *Detector) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Ready reports whether Detect can run.
func (d *Detector) Ready() bool {
	return d.State() == StateReady
}

// Err returns the load error once the Detector has failed, or nil.
func (d *Detector) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loadErr
}

// Load loads the model. It returns immediately if the model is already
// loaded or loading. A failed load is permanent: later calls return the same
// error and no retry is attempted.
func (d *Detector) Load(ctx context.Context) error {
	d.mu.Lock()
	switch d.state {
	case StateReady, StateLoading:
		d.mu.Unlock()
		return nil
	case StateFailed:
		err := d.loadErr
		d.mu.Unlock()
		return err
	}
	d.state = StateLoading
	d.mu.Unlock()

	start := time.Now()
	d.logger.Info("loading model")

	var (
		model Model
		err   error
	)
	if d.loader == nil {
		err = errors.New("no model loader configured")
	} else {
		model, err = d.loader.Load(ctx)
		if err == nil && model == nil {
			err = errors.New("loader returned no model")
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state = StateFailed
		d.loadErr = fmt.Errorf("%w: %v", ErrModelLoad, err)
		d.logger.Error("model load failed", "error", err, "elapsed", time.Since(start))
		return d.loadErr
	}
	d.state = StateReady
	d.model = model
	d.logger.Info("model ready", "elapsed", time.Since(start))
	return nil
}

// Detect runs the model on img, asking for MaxCandidates predictions and
// keeping those scoring at least ConfidenceThreshold.
//
// Errors:
//   - ErrModelUnavailable while the model is still loading (or never loaded)
//   - ErrModelLoad if loading failed
//   - ErrDetection if the model failed during inference
//   - ctx.Err() if ctx was cancelled during inference
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	d.mu.RLock()
	state, model, loadErr := d.state, d.model, d.loadErr
	d.mu.RUnlock()

	switch state {
	case StateReady:
	case StateFailed:
		return nil, loadErr
	default:
		return nil, ErrModelUnavailable
	}
	if img == nil {
		return nil, fmt.Errorf("%w: no image", ErrDetection)
	}

	start := time.Now()
	preds, err := model.Detect(ctx, img, MaxCandidates)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		d.logger.Error("inference failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDetection, err)
	}
	if len(preds) > MaxCandidates {
		preds = preds[:MaxCandidates]
	}

	dets := Filter(preds, ConfidenceThreshold)
	d.logger.Debug("inference complete",
		"candidates", len(preds),
		"kept", len(dets),
		"elapsed", time.Since(start))
	return dets, nil
}
