package cv

import (
	"image"
	"image/draw"
	"math/rand"
	"testing"
	"time"
)

// blockFrame fills w x h with block-sized tiles of random color, the kind of
// flat-shaded content game UI templates are cut from
func blockFrame(w, h, block int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for by := 0; by < h; by += block {
		for bx := 0; bx < w; bx += block {
			c := [3]uint8{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256))}
			for y := by; y < by+block && y < h; y++ {
				for x := bx; x < bx+block && x < w; x++ {
					i := img.PixOffset(x, y)
					img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c[0], c[1], c[2], 255
				}
			}
		}
	}
	return img
}

func paste(dst, src *image.RGBA, at image.Point) {
	draw.Draw(dst, src.Bounds().Add(at), src, src.Bounds().Min, draw.Src)
}

// puzzleBox is the puzzle detection box on a 1080p frame
func puzzleBox() *image.Rectangle {
	return NewRegion(2336, 604, 3307, 1578).Scale(3840, 2160, 1920, 1080).ToImageRectangle()
}

func TestFindTemplateCoarseToFine(t *testing.T) {
	tests := []struct {
		name   string
		needle image.Point
		at     image.Point
		region *image.Rectangle
	}{
		{"puzzle sized in puzzle box", image.Point{X: 442, Y: 443}, image.Point{X: 1180, Y: 320}, puzzleBox()},
		{"medium needle full frame", image.Point{X: 96, Y: 64}, image.Point{X: 1301, Y: 217}, nil},
		{"small needle single level", image.Point{X: 12, Y: 10}, image.Point{X: 40, Y: 33}, &image.Rectangle{Max: image.Point{X: 200, Y: 150}}},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := blockFrame(1920, 1080, 24, int64(10+i))
			needle := blockFrame(tt.needle.X, tt.needle.Y, max(1, tt.needle.X/16), int64(100+i))
			paste(frame, needle, tt.at)

			config := &MatchConfig{Method: MatchMethodNCC, Threshold: 0.85, SearchRegion: tt.region}
			result := FindTemplate(frame, needle, config)
			if !result.Found {
				t.Fatalf("expected a match, best confidence %.3f at %v", result.Confidence, result.Location)
			}
			if result.Location != tt.at {
				t.Errorf("Location = %v, want %v", result.Location, tt.at)
			}
			if result.Size != tt.needle {
				t.Errorf("Size = %v, want %v", result.Size, tt.needle)
			}

			clean := blockFrame(1920, 1080, 24, int64(10+i))
			if miss := FindTemplate(clean, needle, config); miss.Found {
				t.Errorf("matched a frame without the template: %.3f at %v", miss.Confidence, miss.Location)
			}
		})
	}
}

func TestFindTemplateMethods(t *testing.T) {
	frame := blockFrame(320, 240, 8, 1)
	needle := CropRegion(frame, image.Rect(128, 96, 192, 144))

	for _, method := range []MatchMethod{MatchMethodSAD, MatchMethodSSD, MatchMethodNCC} {
		result := FindTemplate(frame, needle, &MatchConfig{Method: method, Threshold: 0.99})
		if !result.Found || result.Location != (image.Point{X: 128, Y: 96}) {
			t.Errorf("method %d: found=%v at %v (%.3f)", method, result.Found, result.Location, result.Confidence)
		}
	}
}

func TestFindTemplateDoesNotFit(t *testing.T) {
	frame := blockFrame(100, 100, 10, 2)
	needle := blockFrame(40, 40, 10, 3)
	region := image.Rect(0, 0, 30, 100)
	if result := FindTemplate(frame, needle, &MatchConfig{Method: MatchMethodNCC, Threshold: 0.5, SearchRegion: &region}); result.Found {
		t.Errorf("expected no match when the needle is wider than the region")
	}
}

// A gate poll scans every puzzle template in the puzzle box and has to finish
// well inside the poll interval
func TestPuzzleScanFitsPollInterval(t *testing.T) {
	if raceEnabled {
		t.Skip("timing is meaningless under the race detector")
	}

	frame := blockFrame(1920, 1080, 24, 20)
	svc := NewService(&fakeCapturer{frames: []*image.RGBA{frame}}).WithBaseResolution(1920, 1080)

	names := make([]string, 8)
	for i := range names {
		names[i] = "puzzle_" + string(rune('1'+i))
		svc.RegisterTemplateImage(names[i], blockFrame(442, 443, 28, int64(200+i)))
	}
	present, _ := svc.loadTemplate("puzzle_8")
	paste(frame, present, image.Point{X: 1190, Y: 330})

	box := puzzleBox()
	region := NewRegion(box.Min.X, box.Min.Y, box.Max.X, box.Max.Y)

	// Warm the template caches the way the running bot would
	if _, err := svc.FindBestMatch(names, &region, 0.85); err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}

	start := time.Now()
	found, err := svc.FindBestMatch(names, &region, 0.85)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("FindBestMatch failed: %v", err)
	}
	if found == nil || found.Name != "puzzle_8" || found.X != 1190 || found.Y != 330 {
		t.Fatalf("unexpected match %+v", found)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("puzzle scan took %v, longer than the 200ms poll interval", elapsed)
	}
}

func BenchmarkPuzzleTemplate1080p(b *testing.B) {
	frame := blockFrame(1920, 1080, 24, 30)
	needle := blockFrame(442, 443, 28, 31)
	paste(frame, needle, image.Point{X: 1180, Y: 320})
	config := &MatchConfig{Method: MatchMethodNCC, Threshold: 0.85, SearchRegion: puzzleBox()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		FindTemplate(frame, needle, config)
	}
}
