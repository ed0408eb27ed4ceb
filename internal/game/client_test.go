package game

import (
	"context"
	"errors"
	"fmt"
	"image"
	"reflect"
	"strings"
	"sync"
	"testing"

	"jordanella.com/escort-bot/internal/actions"
	"jordanella.com/escort-bot/internal/cv"
	"jordanella.com/escort-bot/internal/escort"
	"jordanella.com/escort-bot/internal/input"
)

type fakeVision struct {
	boxes     map[string]*cv.Box
	detectErr error
	refreshes int
}

func (v *fakeVision) Refresh() (*image.RGBA, error) {
	v.refreshes++
	return image.NewRGBA(image.Rect(0, 0, 1920, 1080)), nil
}

func (v *fakeVision) Detect(name string, region *cv.Region, threshold float64) (*cv.Box, error) {
	if v.detectErr != nil {
		return nil, v.detectErr
	}
	return v.boxes[name], nil
}

func (v *fakeVision) ScaleRegion(r cv.Region) (cv.Region, error) { return r, nil }

func (v *fakeVision) FrameSize() (int, int, error) { return 1920, 1080, nil }

type fakeInjector struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeInjector) KeyDown(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeInjector) KeyUp(key string) error { return nil }
func (f *fakeInjector) MouseDown(input.Button) error { return nil }
func (f *fakeInjector) MouseUp(input.Button) error { return nil }
func (f *fakeInjector) MoveRelative(dx, dy int) error { return nil }
func (f *fakeInjector) MoveAbsolute(x, y int) error { return nil }

type fakeWindow struct{}

func (fakeWindow) BringToFront() error { return nil }
func (fakeWindow) ClientToScreen(p image.Point) (image.Point, error) { return p, nil }
func (fakeWindow) Size() (int, int, error) { return 1920, 1080, nil }

// routineMap builds one single-key routine per name
type routineMap map[string]*actions.ActionBuilder

func (m routineMap) Get(name string) (*actions.ActionBuilder, error) {
	if r, ok := m[name]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("routine '%s' not found", name)
}

func keyRoutines(t *testing.T, keys map[string]string) routineMap {
	t.Helper()
	m := routineMap{}
	for name, key := range keys {
		builder, _, err := actions.NewRoutineLoader().Load([]byte(
			fmt.Sprintf("routine_name: %s\nsteps:\n  - action: send_key\n    key: %s\n", name, key)))
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		m[name] = builder
	}
	return m
}

func newTestClient(t *testing.T, boxes map[string]*cv.Box) (*Client, *fakeVision, *fakeInjector) {
	t.Helper()
	vision := &fakeVision{boxes: boxes}
	inj := &fakeInjector{}
	routines := keyRoutines(t, map[string]string{
		"abandon_mission":   "esc",
		"open_mission_menu": "m",
		"confirm_start":     "enter",
		"confirm_continue":  "space",
	})
	return NewClient(vision, inj, fakeWindow{}, routines, DefaultConfig()), vision, inj
}

func TestMissionStatus(t *testing.T) {
	tests := []struct {
		name     string
		boxes    map[string]*cv.Box
		want     escort.MissionStatus
		wantKeys []string
	}{
		{"no prompt", map[string]*cv.Box{}, escort.MissionNone, nil},
		{"start prompt", map[string]*cv.Box{"mission_start": {Confidence: 0.9}}, escort.MissionStart, []string{"enter"}},
		{"continue prompt", map[string]*cv.Box{"mission_continue": {Confidence: 0.9}}, escort.MissionContinue, []string{"space"}},
		{
			"best match wins",
			map[string]*cv.Box{"mission_start": {Confidence: 0.8}, "mission_continue": {Confidence: 0.95}},
			escort.MissionContinue,
			[]string{"space"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, inj := newTestClient(t, tt.boxes)
			got, err := client.MissionStatus(context.Background())
			if err != nil {
				t.Fatalf("MissionStatus failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("MissionStatus = %v, want %v", got, tt.want)
			}
			if !reflect.DeepEqual(inj.keys, tt.wantKeys) {
				t.Errorf("keys = %v, want %v", inj.keys, tt.wantKeys)
			}
		})
	}
}

func TestMissionStatusWithoutConfirmRoutine(t *testing.T) {
	vision := &fakeVision{boxes: map[string]*cv.Box{"mission_start": {Confidence: 0.9}}}
	cfg := DefaultConfig()
	cfg.Routines.ConfirmStart = ""
	client := NewClient(vision, &fakeInjector{}, fakeWindow{}, routineMap{}, cfg)

	got, err := client.MissionStatus(context.Background())
	if err != nil || got != escort.MissionStart {
		t.Fatalf("MissionStatus = %v, %v", got, err)
	}
}

func TestGroupedAndMarker(t *testing.T) {
	client, vision, _ := newTestClient(t, map[string]*cv.Box{
		"in_team":     {Name: "in_team", Confidence: 0.9},
		"track_point": {Name: "track_point", X: 700, Y: 330, Width: 20, Height: 30, Confidence: 0.9},
	})

	grouped, err := client.InGroupedContext()
	if err != nil || !grouped {
		t.Fatalf("InGroupedContext = %v, %v", grouped, err)
	}

	marker, found, err := client.LocateMarker()
	if err != nil || !found {
		t.Fatalf("LocateMarker = %v, %v, %v", marker, found, err)
	}
	if marker != (cv.Point{X: 710, Y: 345}) {
		t.Errorf("marker = %+v", marker)
	}
	if vision.refreshes != 1 {
		t.Errorf("LocateMarker should use a fresh frame")
	}

	recent := client.RecentScreens(5)
	if len(recent) != 1 || recent[0].Screen != ScreenGrouped {
		t.Errorf("RecentScreens = %+v", recent)
	}
}

func TestMarkerMissing(t *testing.T) {
	client, _, _ := newTestClient(t, map[string]*cv.Box{})
	if _, found, err := client.LocateMarker(); err != nil || found {
		t.Errorf("expected marker not found, got found=%v err=%v", found, err)
	}
	if grouped, _ := client.InGroupedContext(); grouped {
		t.Error("expected not grouped")
	}
}

func TestRoutinesRunAgainstClient(t *testing.T) {
	client, _, inj := newTestClient(t, map[string]*cv.Box{})
	if err := client.AbandonMission(context.Background()); err != nil {
		t.Fatalf("AbandonMission failed: %v", err)
	}
	if err := client.OpenMissionMenu(context.Background()); err != nil {
		t.Fatalf("OpenMissionMenu failed: %v", err)
	}
	if !reflect.DeepEqual(inj.keys, []string{"esc", "m"}) {
		t.Errorf("keys = %v", inj.keys)
	}

	cfg := DefaultConfig()
	cfg.Routines.Abandon = "missing"
	broken := NewClient(&fakeVision{}, inj, fakeWindow{}, routineMap{}, cfg)
	if err := broken.AbandonMission(context.Background()); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected missing routine error, got %v", err)
	}
}

func TestDetectionErrorsPropagate(t *testing.T) {
	client, vision, _ := newTestClient(t, nil)
	vision.detectErr = errors.New("capture failed")

	if _, err := client.InGroupedContext(); err == nil {
		t.Error("expected InGroupedContext error")
	}
	if _, err := client.MissionStatus(context.Background()); err == nil {
		t.Error("expected MissionStatus error")
	}
}

func TestScreenHistoryWraps(t *testing.T) {
	h := NewScreenHistory(3)
	if h.GetLastScreen() != ScreenUnknown {
		t.Error("empty history should report unknown")
	}
	for _, s := range []Screen{ScreenGrouped, ScreenMissionStart, ScreenGrouped, ScreenMissionContinue} {
		h.Add(ScreenDetectionResult{Screen: s})
	}

	if h.GetLastScreen() != ScreenMissionContinue {
		t.Errorf("GetLastScreen = %v", h.GetLastScreen())
	}
	recent := h.GetRecent(5)
	got := make([]Screen, len(recent))
	for i, r := range recent {
		got[i] = r.Screen
	}
	want := []Screen{ScreenMissionContinue, ScreenGrouped, ScreenMissionStart}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetRecent = %v, want %v", got, want)
	}
}
