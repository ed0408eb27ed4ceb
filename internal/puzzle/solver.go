// Package puzzle detects the on-screen maze puzzle and drags through its solve path.
package puzzle

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"jordanella.com/escort-bot/internal/cv"
	"jordanella.com/escort-bot/internal/input"
	"jordanella.com/escort-bot/internal/logging"
	"jordanella.com/escort-bot/internal/path"
)

// ErrNoSolvePath is returned when a detected puzzle has no recorded solve path
var ErrNoSolvePath = errors.New("no solve path for puzzle")

// Vision is the detection capability the solver needs
type Vision interface {
	FrameSize() (width, height int, err error)
	Detect(name string, region *cv.Region, threshold float64) (*cv.Box, error)
	FindBestMatch(names []string, region *cv.Region, threshold float64) (*cv.Box, error)
}

// Config holds the solver's templates, geometry and drag timings
type Config struct {
	Templates []string
	// Region is the shared detection box at BaseWidth x BaseHeight
	Region     cv.Region
	BaseWidth  int
	BaseHeight int
	Threshold  float64

	// RetryTemplate marks the puzzle screen as open; the background scan only
	// looks for puzzles while it is visible. Empty disables the check.
	RetryTemplate  string
	RetryRegion    cv.Region
	RetryThreshold float64

	MoveDelay   time.Duration
	PressDelay  time.Duration
	Settle      time.Duration
	LogInterval time.Duration
}

// DefaultConfig returns the detection box and timings for a 4K-authored layout
func DefaultConfig() Config {
	templates := make([]string, 0, 8)
	for i := 1; i <= 8; i++ {
		templates = append(templates, fmt.Sprintf("puzzle_%d", i))
	}
	return Config{
		Templates:      templates,
		Region:         cv.NewRegion(2336, 604, 3307, 1578),
		BaseWidth:      cv.DefaultBaseWidth,
		BaseHeight:     cv.DefaultBaseHeight,
		Threshold:      0.85,
		RetryTemplate:  "mech_retry",
		RetryRegion:    cv.NewRegion(3367, 1632, 3548, 1811),
		RetryThreshold: 0.65,
		MoveDelay:      100 * time.Millisecond,
		PressDelay:     10 * time.Millisecond,
		Settle:         time.Second,
		LogInterval:    5 * time.Second,
	}
}

// Solver owns the puzzle detection geometry and the drag playback. Its state
// is only touched from the task that calls it.
type Solver struct {
	vision   Vision
	injector input.Injector
	window   input.Window
	book     *path.PuzzleBook
	cfg      Config
	logger   *logging.Logger

	mu       sync.Mutex
	geometry *cv.Region

	skip           func() bool
	lastNoPuzzle   time.Time
	lastScanSolved bool
}

// NewSolver creates a solver using the given solve paths
func NewSolver(vision Vision, injector input.Injector, window input.Window, book *path.PuzzleBook, cfg Config) *Solver {
	if book == nil {
		book = path.NewPuzzleBook(nil)
	}
	return &Solver{
		vision:   vision,
		injector: injector,
		window:   window,
		book:     book,
		cfg:      cfg,
		logger:   logging.NewLogger("Puzzle"),
	}
}

// SkipWhen makes the background scan a no-op while fn reports true
func (s *Solver) SkipWhen(fn func() bool) *Solver {
	s.skip = fn
	return s
}

// InvalidateGeometry drops the scaled detection box. It has the shape of a
// cv.ResizeListener so the capture service can call it on frame size changes.
func (s *Solver) InvalidateGeometry(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.geometry != nil {
		s.logger.InfoWithContext("Detection geometry invalidated", map[string]interface{}{
			"width":  width,
			"height": height,
		})
	}
	s.geometry = nil
}

// EnsureGeometry builds the detection box for the current frame if needed
func (s *Solver) EnsureGeometry() (cv.Region, error) {
	s.mu.Lock()
	if s.geometry != nil {
		r := *s.geometry
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	w, h, err := s.vision.FrameSize()
	if err != nil {
		return cv.Region{}, fmt.Errorf("frame size: %w", err)
	}
	r := s.cfg.Region.Scale(s.cfg.BaseWidth, s.cfg.BaseHeight, w, h)

	s.mu.Lock()
	s.geometry = &r
	s.mu.Unlock()

	s.logger.InfoWithContext("Detection geometry initialized", map[string]interface{}{
		"width":  w,
		"height": h,
		"region": fmt.Sprintf("%d,%d-%d,%d", r.X1, r.Y1, r.X2, r.Y2),
	})
	return r, nil
}

// ActiveCondition reports the best puzzle match inside the detection box
func (s *Solver) ActiveCondition() (string, bool, error) {
	region, err := s.EnsureGeometry()
	if err != nil {
		return "", false, err
	}
	box, err := s.vision.FindBestMatch(s.cfg.Templates, &region, s.cfg.Threshold)
	if err != nil {
		return "", false, err
	}
	if box == nil {
		return "", false, nil
	}
	return box.Name, true, nil
}

// IsConditionActive is ActiveCondition without the details; errors count as absent
func (s *Solver) IsConditionActive() bool {
	_, present, err := s.ActiveCondition()
	return err == nil && present
}

// Solve drags the mouse through the recorded path for the named puzzle
func (s *Solver) Solve(ctx context.Context, name string) error {
	if err := s.window.BringToFront(); err != nil {
		return fmt.Errorf("foreground window: %w", err)
	}

	w, h, err := s.vision.FrameSize()
	if err != nil {
		return fmt.Errorf("frame size: %w", err)
	}
	points, ok := s.book.Scaled(name, w, h)
	if !ok || len(points) == 0 {
		return fmt.Errorf("%s: %w", name, ErrNoSolvePath)
	}

	s.logger.InfoWithContext("Solving puzzle", map[string]interface{}{
		"puzzle": name,
		"points": len(points),
	})

	if err := s.moveTo(points[0]); err != nil {
		return err
	}
	if err := sleepCtx(ctx, s.cfg.PressDelay); err != nil {
		return err
	}
	if err := s.injector.MouseDown(input.ButtonLeft); err != nil {
		return fmt.Errorf("press: %w", err)
	}

	dragErr := s.drag(ctx, points)

	// Always release, even when the drag was interrupted
	if err := s.injector.MouseUp(input.ButtonLeft); err != nil && dragErr == nil {
		dragErr = fmt.Errorf("release: %w", err)
	}
	if dragErr != nil {
		return dragErr
	}

	s.logger.Info(fmt.Sprintf("%s solved", name))
	return sleepCtx(ctx, s.cfg.Settle)
}

func (s *Solver) drag(ctx context.Context, points []image.Point) error {
	if err := sleepCtx(ctx, s.cfg.MoveDelay); err != nil {
		return err
	}
	for _, p := range points[1:] {
		if err := s.moveTo(p); err != nil {
			return err
		}
		if err := sleepCtx(ctx, s.cfg.MoveDelay); err != nil {
			return err
		}
	}
	return nil
}

func (s *Solver) moveTo(p image.Point) error {
	screen, err := s.window.ClientToScreen(p)
	if err != nil {
		return fmt.Errorf("client to screen: %w", err)
	}
	if err := s.injector.MoveAbsolute(screen.X, screen.Y); err != nil {
		return fmt.Errorf("move to %v: %w", screen, err)
	}
	return nil
}

// Run is one tick of the background puzzle task: if the puzzle screen is
// open, solve the first puzzle found.
func (s *Solver) Run(ctx context.Context) error {
	s.lastScanSolved = false
	if s.skip != nil && s.skip() {
		return nil
	}

	if s.cfg.RetryTemplate != "" {
		w, h, err := s.vision.FrameSize()
		if err != nil {
			return fmt.Errorf("frame size: %w", err)
		}
		region := s.cfg.RetryRegion.Scale(s.cfg.BaseWidth, s.cfg.BaseHeight, w, h)
		box, err := s.vision.Detect(s.cfg.RetryTemplate, &region, s.cfg.RetryThreshold)
		if err != nil {
			return fmt.Errorf("detect %s: %w", s.cfg.RetryTemplate, err)
		}
		if box == nil {
			return nil
		}
		// Keep the cursor off the puzzle while matching
		if err := s.moveTo(image.Pt(w/2, h/2)); err != nil {
			s.logger.Warn(fmt.Sprintf("Could not center cursor: %v", err))
		}
	}

	name, present, err := s.ActiveCondition()
	if err != nil {
		return fmt.Errorf("scan puzzles: %w", err)
	}
	if !present {
		if time.Since(s.lastNoPuzzle) > s.cfg.LogInterval {
			s.logger.Debug("No puzzle detected")
			s.lastNoPuzzle = time.Now()
		}
		return nil
	}

	if err := s.Solve(ctx, name); err != nil {
		return err
	}
	s.lastScanSolved = true
	return nil
}

// LastScanSolved reports whether the previous Run solved a puzzle
func (s *Solver) LastScanSolved() bool {
	return s.lastScanSolved
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
