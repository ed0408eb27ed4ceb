package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"jordanella.com/escort-bot/internal/database"
	"jordanella.com/escort-bot/internal/escort"
	"jordanella.com/escort-bot/internal/game"
	"jordanella.com/escort-bot/internal/scheduler"
)

type fakeEscort struct{ stats escort.MissionStats }

func (f fakeEscort) Stats() escort.MissionStats { return f.stats }

type fakeScreens []game.ScreenDetectionResult

func (f fakeScreens) RecentScreens(n int) []game.ScreenDetectionResult {
	if n < len(f) {
		return f[:n]
	}
	return f
}

func newCollector(t *testing.T) *Collector {
	t.Helper()
	host := scheduler.NewHost(context.Background())
	err := host.Register(scheduler.TaskSpec{
		Name:     "puzzle",
		Kind:     scheduler.Trigger,
		Interval: time.Second,
		Run:      func(ctx context.Context) error { return nil },
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return &Collector{
		Escort: fakeEscort{escort.MissionStats{
			SessionID:       "run",
			Phase:           escort.PhaseRunningPathSegments,
			RoundsCompleted: 4,
			TargetRounds:    10,
			Elapsed:         20 * time.Minute,
		}},
		Host:    host,
		Screens: fakeScreens{{Screen: game.ScreenGrouped, Confidence: 0.93}},
	}
}

// startServer serves on a loopback port until the test ends
func startServer(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve returned %v", err)
		}
	})
	return ln.Addr().String()
}

func getJSON(t *testing.T, url string, v interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestStatusEndpoint(t *testing.T) {
	addr := startServer(t, New("", newCollector(t)))

	var st Status
	getJSON(t, "http://"+addr+"/api/status", &st)

	if st.Escort == nil {
		t.Fatal("missing escort status")
	}
	want := EscortStatus{
		SessionID:          "run",
		Phase:              "Running escort path",
		RoundsCompleted:    4,
		TargetRounds:       10,
		Remaining:          6,
		Elapsed:            "00:20:00",
		AverageRound:       "00:05:00",
		EstimatedRemaining: "00:30:00",
	}
	got := *st.Escort
	got.StartedAt = time.Time{}
	if got != want {
		t.Errorf("escort = %+v\nwant %+v", got, want)
	}
	if len(st.Tasks) != 1 || st.Tasks[0].Name != "puzzle" || st.Tasks[0].Enabled {
		t.Errorf("tasks = %+v", st.Tasks)
	}
	if len(st.Screens) != 1 || st.Screens[0].Screen != game.ScreenGrouped {
		t.Errorf("screens = %+v", st.Screens)
	}
}

func TestWebSocketStream(t *testing.T) {
	s := New("", newCollector(t)).WithInterval(10 * time.Millisecond)
	addr := startServer(t, s)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The first frame is sent on connect, the rest by the ticker
	for i := 0; i < 3; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var st Status
		if err := conn.ReadJSON(&st); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if st.Escort == nil || st.Escort.RoundsCompleted != 4 {
			t.Errorf("frame %d: unexpected status %+v", i, st)
		}
	}
}

func TestHistoryEndpoints(t *testing.T) {
	db, err := database.OpenAndMigrate(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	now := time.Now()
	if err := db.StartSession("run", 5, now); err != nil {
		t.Fatal(err)
	}
	if err := db.StartAttempt("run", 1, "ESCORT_PATH_A", now); err != nil {
		t.Fatal(err)
	}
	if err := db.SetAttemptPath("run", 1, 3, "ESCORT_PATH_A_3", 12); err != nil {
		t.Fatal(err)
	}

	addr := startServer(t, New("", newCollector(t)).WithHistory(db))

	var sessions []database.Session
	getJSON(t, "http://"+addr+"/api/sessions?limit=5", &sessions)
	if len(sessions) != 1 || sessions[0].ID != "run" || sessions[0].TargetRounds != 5 {
		t.Errorf("sessions = %+v", sessions)
	}

	var paths []database.PathStats
	getJSON(t, "http://"+addr+"/api/paths", &paths)
	if len(paths) != 1 || paths[0].PathName != "ESCORT_PATH_A_3" || paths[0].Attempts != 1 {
		t.Errorf("paths = %+v", paths)
	}
}

func TestHistoryDisabled(t *testing.T) {
	addr := startServer(t, New("", newCollector(t)))
	resp, err := http.Get("http://" + addr + "/api/sessions")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
