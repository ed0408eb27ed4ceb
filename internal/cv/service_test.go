package cv

import (
	"image"
	"math/rand"
	"sync"
	"testing"
)

type fakeCapturer struct {
	mu     sync.Mutex
	frames []*image.RGBA
	calls  int
}

func (f *fakeCapturer) CaptureFrame() (*image.RGBA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	frame := f.frames[f.calls]
	if f.calls < len(f.frames)-1 {
		f.calls++
	}
	return frame, nil
}

func (f *fakeCapturer) GetDimensions() (int, int) {
	b := f.frames[0].Bounds()
	return b.Dx(), b.Dy()
}

func noiseFrame(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

func TestDetectFindsCroppedTemplate(t *testing.T) {
	frame := noiseFrame(80, 60, 1)
	svc := NewService(&fakeCapturer{frames: []*image.RGBA{frame}}).WithBaseResolution(80, 60)
	svc.RegisterTemplateImage("marker", CropRegion(frame, image.Rect(30, 20, 40, 28)))

	box, err := svc.Detect("marker", nil, 0.9)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if box == nil {
		t.Fatal("expected a detection")
	}
	if box.X != 30 || box.Y != 20 || box.Width != 10 || box.Height != 8 {
		t.Errorf("unexpected box %+v", box)
	}
	if c := box.Center(); c.X != 35 || c.Y != 24 {
		t.Errorf("unexpected center %+v", c)
	}

	// Outside the search region there is nothing to find
	region := NewRegion(0, 0, 20, 20)
	box, err = svc.Detect("marker", &region, 0.9)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if box != nil {
		t.Errorf("expected no detection outside region, got %+v", box)
	}
}

func TestFindBestMatch(t *testing.T) {
	frame := noiseFrame(60, 40, 2)
	svc := NewService(&fakeCapturer{frames: []*image.RGBA{frame}}).WithBaseResolution(60, 40)
	svc.RegisterTemplateImage("present", CropRegion(frame, image.Rect(5, 5, 13, 13)))
	svc.RegisterTemplateImage("absent", noiseFrame(8, 8, 99))

	box, err := svc.FindBestMatch([]string{"absent", "present"}, nil, 0.9)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if box == nil || box.Name != "present" {
		t.Fatalf("expected 'present', got %+v", box)
	}

	if _, err := svc.FindBestMatch([]string{"unknown"}, nil, 0.9); err == nil {
		t.Error("expected error for unregistered template")
	}
}

func TestResizeListener(t *testing.T) {
	capturer := &fakeCapturer{frames: []*image.RGBA{
		noiseFrame(40, 30, 3),
		noiseFrame(40, 30, 4),
		noiseFrame(80, 60, 5),
	}}
	svc := NewService(capturer)

	var sizes []image.Point
	svc.OnFrameResize(func(w, h int) {
		sizes = append(sizes, image.Point{X: w, Y: h})
	})

	for i := 0; i < 3; i++ {
		if _, err := svc.Refresh(); err != nil {
			t.Fatalf("Refresh %d failed: %v", i, err)
		}
	}

	if len(sizes) != 1 || sizes[0] != (image.Point{X: 80, Y: 60}) {
		t.Fatalf("expected one resize to 80x60, got %v", sizes)
	}
}

func TestRegionScale(t *testing.T) {
	r := NewRegion(2336, 604, 3307, 1578).Scale(3840, 2160, 1920, 1080)
	want := Region{X1: 1168, Y1: 302, X2: 1653, Y2: 789}
	if r != want {
		t.Errorf("Scale = %+v, want %+v", r, want)
	}
}

func TestTemplateScaledToFrame(t *testing.T) {
	frame := noiseFrame(40, 40, 6)
	svc := NewService(&fakeCapturer{frames: []*image.RGBA{frame}}).WithBaseResolution(80, 80)
	svc.RegisterTemplateImage("big", noiseFrame(20, 10, 7))

	img, err := svc.scaledTemplate("big", 40)
	if err != nil {
		t.Fatalf("scaledTemplate failed: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 5 {
		t.Errorf("expected 10x5 template, got %v", img.Bounds())
	}
}
