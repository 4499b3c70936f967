package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestNewSurface_Defaults(t *testing.T) {
	s := NewSurface(0, -1)
	if s.Width() != DefaultSurfaceWidth || s.Height() != DefaultSurfaceHeight {
		t.Errorf("size: %dx%d", s.Width(), s.Height())
	}
	if !s.Blank() {
		t.Error("new surface should be blank")
	}
}

func TestSurface_Present(t *testing.T) {
	s := NewSurface(0, 0)
	bmp := NewBitmap(createInMemoryImage(120, 80, color.RGBA{10, 200, 30, 255}), "png")

	s.Present(bmp)

	if s.Width() != 120 || s.Height() != 80 {
		t.Fatalf("size: %dx%d, want 120x80", s.Width(), s.Height())
	}
	if s.Blank() {
		t.Error("surface should not be blank after Present")
	}
	if got := s.Image().RGBAAt(119, 79); got != (color.RGBA{10, 200, 30, 255}) {
		t.Errorf("corner pixel: %v", got)
	}
}

func TestSurface_PresentReplacesPrevious(t *testing.T) {
	s := NewSurface(0, 0)
	s.Present(NewBitmap(createInMemoryImage(50, 50, color.White), "png"))

	half := image.NewRGBA(image.Rect(0, 0, 20, 10))
	half.Set(0, 0, color.RGBA{255, 0, 0, 255})
	s.Present(NewBitmap(half, "png"))

	if s.Width() != 20 || s.Height() != 10 {
		t.Fatalf("size: %dx%d", s.Width(), s.Height())
	}
	if got := s.Image().RGBAAt(5, 5); got.A != 0 {
		t.Errorf("transparent source pixel should stay transparent, got %v", got)
	}
}

func TestSurface_Clear(t *testing.T) {
	s := NewSurface(0, 0)
	s.Present(NewBitmap(createInMemoryImage(30, 30, color.White), "png"))
	s.Clear()

	if !s.Blank() {
		t.Error("surface should be blank after Clear")
	}
	if s.Width() != 30 || s.Height() != 30 {
		t.Errorf("Clear must not resize: %dx%d", s.Width(), s.Height())
	}
}

func TestSurface_DrawBitmapScales(t *testing.T) {
	s := NewSurface(40, 40)
	s.DrawBitmap(NewBitmap(createInMemoryImage(10, 10, color.White), "png"))

	if got := s.Image().RGBAAt(20, 20); got.A == 0 {
		t.Error("scaled bitmap should cover the centre")
	}
	s.DrawBitmap(nil)
}

func TestSurface_SnapshotIsCopy(t *testing.T) {
	s := NewSurface(0, 0)
	s.Present(NewBitmap(createInMemoryImage(8, 8, color.White), "png"))

	snap := s.Snapshot()
	s.Clear()

	if snap.RGBAAt(3, 3).A != 255 {
		t.Error("snapshot changed when surface was cleared")
	}
}
