// Package camera manages the single live camera session used for capture.
//
// A Camera moves through Idle -> Requesting -> Active -> Idle. Opening asks
// the Device for a stream; capturing grabs one frame, stops the stream and
// returns the frame as a bitmap. Every path back to Idle stops all tracks
// before the session is dropped.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/image-scanner/internal/imaging"
)

var (
	// ErrUnsupported means no camera device is available on this host.
	ErrUnsupported = errors.New("camera not supported")

	// ErrPermission means the device refused access.
	ErrPermission = errors.New("camera permission denied")

	// ErrUnavailable means the device could not be opened for another
	// reason (unreachable, busy, no video track).
	ErrUnavailable = errors.New("camera unavailable")

	// ErrCapture means a frame could not be grabbed from the live stream.
	ErrCapture = errors.New("failed to capture photo from camera")

	// ErrNotActive is returned by Capture when no session is open.
	ErrNotActive = errors.New("camera not active")

	// ErrCancelled is returned by Open when Stop was called while the
	// request was still pending.
	ErrCancelled = errors.New("camera request cancelled")
)

// Default frame size used when a track does not report its settings.
const (
	DefaultFrameWidth  = 640
	DefaultFrameHeight = 480

	// CaptureQuality is the JPEG quality used for the captured frame.
	CaptureQuality = 95
)

// Constraints describe the stream requested from a device.
type Constraints struct {
	// FacingMode is "environment" (rear) or "user" (front). Devices that
	// cannot choose ignore it.
	FacingMode string

	// Audio requests an audio track. The scanner never sets it.
	Audio bool
}

// DefaultConstraints prefers the rear camera and captures no audio.
func DefaultConstraints() Constraints {
	return Constraints{FacingMode: "environment"}
}

// TrackSettings reports the actual settings of a live track. Zero values
// mean unknown.
type TrackSettings struct {
	Width      int
	Height     int
	FacingMode string
}

// Track is one media track of a stream.
type Track interface {
	Kind() string
	Settings() TrackSettings
	// Stop releases the track. It is idempotent.
	Stop()
	Live() bool
}

// Stream is an open media stream.
type Stream interface {
	Tracks() []Track
	// Frame grabs the current video frame scaled to width x height.
	Frame(ctx context.Context, width, height int) (image.Image, error)
}

// Device opens streams.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// State is the camera lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Session is an open camera stream.
type Session struct {
	ID       string
	Stream   Stream
	OpenedAt time.Time
}

// release stops every track of the session's stream.
func (s *Session) release() {
	for _, t := range s.Stream.Tracks() {
		t.Stop()
	}
}

// videoTrack returns the first video track, or nil.
func (s *Session) videoTrack() Track {
	for _, t := range s.Stream.Tracks() {
		if t.Kind() == "video" {
			return t
		}
	}
	return nil
}

// Camera owns at most one live Session. It is safe for concurrent use.
type Camera struct {
	device      Device
	constraints Constraints
	logger      *slog.Logger

	mu      sync.Mutex
	state   State
	session *Session
	attempt uint64
}

// New returns an idle Camera for device. A nil device yields a Camera whose
// Open always fails with ErrUnsupported.
func New(device Device, constraints Constraints, logger *slog.Logger) *Camera {
	if logger == nil {
		logger = slog.Default()
	}
	return &Camera{
		device:      device,
		constraints: constraints,
		logger:      logger.With("component", "camera"),
	}
}

// Supported reports whether a device is configured.
func (c *Camera) Supported() bool { return c.device != nil }

// State returns the current state.
func (c *Camera) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether a session is open.
func (c *Camera) Active() bool { return c.State() == StateActive }

// LiveTracks returns how many tracks of the current session are still live.
func (c *Camera) LiveTracks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return 0
	}
	n := 0
	for _, t := range c.session.Stream.Tracks() {
		if t.Live() {
			n++
		}
	}
	return n
}

// Open requests a stream from the device and makes it the active session.
// Opening an already active camera is a no-op. On failure the camera
// returns to Idle; there is no automatic retry.
func (c *Camera) Open(ctx context.Context) error {
	if c.device == nil {
		return ErrUnsupported
	}

	c.mu.Lock()
	switch c.state {
	case StateActive:
		c.mu.Unlock()
		return nil
	case StateRequesting:
		c.mu.Unlock()
		return fmt.Errorf("%w: request already pending", ErrUnavailable)
	}
	c.state = StateRequesting
	c.attempt++
	attempt := c.attempt
	c.mu.Unlock()

	c.logger.Info("requesting camera", "facing_mode", c.constraints.FacingMode)
	stream, err := c.device.Open(ctx, c.constraints)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt != attempt || c.state != StateRequesting {
		if stream != nil {
			(&Session{Stream: stream}).release()
		}
		return ErrCancelled
	}
	if err != nil {
		c.state = StateIdle
		c.logger.Warn("camera request failed", "error", err)
		if errors.Is(err, ErrPermission) || errors.Is(err, ErrUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	session := &Session{
		ID:       uuid.NewString(),
		Stream:   stream,
		OpenedAt: time.Now(),
	}
	if session.videoTrack() == nil {
		session.release()
		c.state = StateIdle
		return fmt.Errorf("%w: stream has no video track", ErrUnavailable)
	}

	c.session = session
	c.state = StateActive
	c.logger.Info("camera active", "session", session.ID)
	return nil
}

// Capture grabs one frame from the active session, stops the session, and
// returns the frame as a bitmap. If the frame cannot be grabbed the session
// stays active so the user can try again.
func (c *Camera) Capture(ctx context.Context) (*imaging.Bitmap, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive || c.session == nil {
		return nil, ErrNotActive
	}

	track := c.session.videoTrack()
	if track == nil || !track.Live() {
		return nil, fmt.Errorf("%w: no live video track", ErrCapture)
	}

	settings := track.Settings()
	width, height := settings.Width, settings.Height
	if width <= 0 {
		width = DefaultFrameWidth
	}
	if height <= 0 {
		height = DefaultFrameHeight
	}

	frame, err := c.session.Stream.Frame(ctx, width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}

	bmp, err := imaging.FromFrame(frame, CaptureQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}

	c.logger.Info("frame captured", "session", c.session.ID, "width", bmp.Width, "height", bmp.Height)
	c.stopLocked()
	return bmp, nil
}

// Stop releases the active session, or cancels a pending request. It is a
// no-op when idle.
func (c *Camera) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Camera) stopLocked() {
	if c.session != nil {
		c.session.release()
		c.logger.Info("camera stopped", "session", c.session.ID)
		c.session = nil
	}
	if c.state == StateRequesting {
		c.attempt++
	}
	c.state = StateIdle
}
