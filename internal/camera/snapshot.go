package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// SnapshotDevice is a camera that serves still frames over HTTP, such as an
// IP camera's snapshot endpoint. Each Frame call fetches a fresh still.
type SnapshotDevice struct {
	URL    string
	Client *http.Client
}

// NewSnapshotDevice returns a device for url. A zero timeout means 10s.
func NewSnapshotDevice(url string, timeout time.Duration) *SnapshotDevice {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SnapshotDevice{URL: url, Client: &http.Client{Timeout: timeout}}
}

// Open fetches one still to confirm the camera is reachable and learn the
// native frame size.
func (d *SnapshotDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if d.URL == "" {
		return nil, ErrUnsupported
	}
	img, err := d.fetch(ctx)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	track := &snapshotTrack{
		settings: TrackSettings{Width: b.Dx(), Height: b.Dy(), FacingMode: c.FacingMode},
		live:     true,
	}
	return &snapshotStream{device: d, track: track}, nil
}

func (d *SnapshotDevice) fetch(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png")

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: snapshot returned %d", ErrPermission, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: snapshot returned %d", ErrUnavailable, resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: bad snapshot: %v", ErrUnavailable, err)
	}
	return img, nil
}

type snapshotStream struct {
	device *SnapshotDevice
	track  *snapshotTrack
}

func (s *snapshotStream) Tracks() []Track { return []Track{s.track} }

func (s *snapshotStream) Frame(ctx context.Context, width, height int) (image.Image, error) {
	if !s.track.Live() {
		return nil, errors.New("track stopped")
	}
	img, err := s.device.fetch(ctx)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img, nil
	}
	return imaging.Resize(img, width, height, imaging.Linear), nil
}

type snapshotTrack struct {
	settings TrackSettings

	mu   sync.Mutex
	live bool
}

func (t *snapshotTrack) Kind() string            { return "video" }
func (t *snapshotTrack) Settings() TrackSettings { return t.settings }

func (t *snapshotTrack) Stop() {
	t.mu.Lock()
	t.live = false
	t.mu.Unlock()
}

func (t *snapshotTrack) Live() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}
