package scanner

import (
	"context"
	"io"

	"github.com/ironsheep/image-scanner/internal/camera"
	"github.com/ironsheep/image-scanner/internal/detection"
	"github.com/ironsheep/image-scanner/internal/imaging"
)

// Origin tells where a Source's image comes from.
type Origin int

const (
	OriginUpload Origin = iota
	OriginCamera
)

// Source produces the image for one pipeline run.
type Source interface {
	Origin() Origin
	Bitmap(ctx context.Context) (*imaging.Bitmap, error)
}

// UploadSource is an encoded image supplied by the user.
type UploadSource struct {
	R io.Reader
}

func (UploadSource) Origin() Origin { return OriginUpload }

func (s UploadSource) Bitmap(ctx context.Context) (*imaging.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return imaging.Decode(s.R)
}

// FrameSource is one frame captured from the live camera session.
type FrameSource struct {
	Camera *camera.Camera
}

func (FrameSource) Origin() Origin { return OriginCamera }

func (s FrameSource) Bitmap(ctx context.Context) (*imaging.Bitmap, error) {
	return s.Camera.Capture(ctx)
}

// Acquire turns src into a bitmap. Uploading while a camera session is open
// (or being requested) tears that session down first.
func Acquire(ctx context.Context, src Source, cam *camera.Camera) (*imaging.Bitmap, error) {
	if src.Origin() == OriginUpload && cam != nil && cam.State() != camera.StateIdle {
		cam.Stop()
	}
	return src.Bitmap(ctx)
}

// Render presents bmp on the surface at 1:1 and draws one labelled box per
// detection.
func Render(s *imaging.Surface, bmp *imaging.Bitmap, dets []detection.Detection, style imaging.Style) {
	s.Present(bmp)

	anns := make([]imaging.Annotation, len(dets))
	for i, d := range dets {
		anns[i] = imaging.Annotation{
			Class:  d.Label,
			Text:   d.String(),
			X:      d.Box.X,
			Y:      d.Box.Y,
			Width:  d.Box.Width,
			Height: d.Box.Height,
		}
	}
	imaging.Annotate(s, anns, style)
}
