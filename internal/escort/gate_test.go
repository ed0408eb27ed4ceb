package escort

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"jordanella.com/escort-bot/internal/cv"
)

type fakeFrames struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeFrames) Refresh() (*image.RGBA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

type poll struct {
	present bool
	err     error
}

// fakeCondition plays back a script of polls, repeating the last entry
type fakeCondition struct {
	mu          sync.Mutex
	script      []poll
	next        int
	geometryErr error
	solveErr    error
	solved      []string
}

func (c *fakeCondition) EnsureGeometry() (cv.Region, error) {
	return cv.Region{}, c.geometryErr
}

func (c *fakeCondition) ActiveCondition() (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.script) == 0 {
		return "", false, nil
	}
	p := c.script[c.next]
	if c.next < len(c.script)-1 {
		c.next++
	}
	if p.err != nil {
		return "", false, p.err
	}
	if p.present {
		return "puzzle_3", true, nil
	}
	return "", false, nil
}

func (c *fakeCondition) Solve(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.solved = append(c.solved, name)
	return c.solveErr
}

func (c *fakeCondition) solveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.solved)
}

func fastGateTimings() GateTimings {
	return GateTimings{Poll: 2 * time.Millisecond, Grace: 40 * time.Millisecond}
}

func TestWaitForResolution(t *testing.T) {
	detectErr := errors.New("capture failed")

	tests := []struct {
		name        string
		script      []poll
		timeout     time.Duration
		solveErr    error
		geometryErr error
		want        Outcome
		wantErr     bool
		wantSolves  int
	}{
		{
			name:       "appears then clears",
			script:     []poll{{}, {present: true}, {present: true}, {}},
			timeout:    time.Second,
			want:       OutcomeResolved,
			wantSolves: 1,
		},
		{
			name:    "never appears",
			timeout: time.Second,
			want:    OutcomeNoConditionDetected,
		},
		{
			name:    "timeout shorter than grace",
			timeout: 10 * time.Millisecond,
			want:    OutcomeNoConditionDetected,
		},
		{
			name:       "never clears",
			script:     []poll{{present: true}},
			timeout:    60 * time.Millisecond,
			want:       OutcomeTimedOut,
			wantSolves: 1,
		},
		{
			name:    "first poll fails",
			script:  []poll{{err: detectErr}, {present: true}, {}},
			timeout: time.Second,
			want:    OutcomeDetectionError,
			wantErr: true,
		},
		{
			name:       "later failures are transient",
			script:     []poll{{}, {err: detectErr}, {present: true}, {err: detectErr}, {}},
			timeout:    time.Second,
			want:       OutcomeResolved,
			wantSolves: 1,
		},
		{
			name:       "failed solve keeps polling",
			script:     []poll{{present: true}, {present: true}, {}},
			timeout:    time.Second,
			solveErr:   errors.New("drag failed"),
			want:       OutcomeResolved,
			wantSolves: 1,
		},
		{
			name:        "geometry unavailable",
			timeout:     time.Second,
			geometryErr: errors.New("no frame"),
			want:        OutcomeDetectionError,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := &fakeCondition{script: tt.script, solveErr: tt.solveErr, geometryErr: tt.geometryErr}
			gate := NewGate(&fakeFrames{}, cond).WithTimings(fastGateTimings())

			got, err := gate.WaitForResolution(context.Background(), tt.timeout)
			if got != tt.want {
				t.Errorf("outcome = %v, want %v", got, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if n := cond.solveCount(); n != tt.wantSolves {
				t.Errorf("solved %d times, want %d", n, tt.wantSolves)
			}
		})
	}
}

func TestWaitForResolutionCaptureError(t *testing.T) {
	frames := &fakeFrames{err: errors.New("window gone")}
	gate := NewGate(frames, &fakeCondition{}).WithTimings(fastGateTimings())

	got, err := gate.WaitForResolution(context.Background(), time.Second)
	if got != OutcomeDetectionError || err == nil {
		t.Fatalf("got %v, %v; want detection error", got, err)
	}
	if frames.calls != 1 {
		t.Errorf("expected a single capture attempt, got %d", frames.calls)
	}
}

func TestWaitForResolutionCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gate := NewGate(&fakeFrames{}, &fakeCondition{}).WithTimings(fastGateTimings())
	_, err := gate.WaitForResolution(ctx, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
