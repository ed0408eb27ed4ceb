// Package game reads the mission UI from captured frames and drives it with
// YAML routines. Client is the live implementation of the escort controller's
// Game and MarkerLocator and the runtime routines execute against.
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jordanella.com/escort-bot/internal/actions"
	"jordanella.com/escort-bot/internal/cv"
	"jordanella.com/escort-bot/internal/escort"
	"jordanella.com/escort-bot/internal/input"
	"jordanella.com/escort-bot/internal/logging"
)

// Vision is the detection capability the client needs
type Vision interface {
	actions.Vision
	FrameSize() (width, height int, err error)
}

// Routines looks up built routines by name
type Routines interface {
	Get(name string) (*actions.ActionBuilder, error)
}

// Templates names the templates each screen is recognized by
type Templates struct {
	InTeam          string
	TrackPoint      string
	MissionStart    string
	MissionContinue string
}

// RoutineNames names the routines run for each UI interaction. An empty
// confirm routine means the prompt needs no input.
type RoutineNames struct {
	Abandon         string
	OpenMenu        string
	ConfirmStart    string
	ConfirmContinue string
}

type Config struct {
	Templates Templates
	Routines  RoutineNames
	// Threshold overrides template thresholds when positive
	Threshold   float64
	HistorySize int
}

func DefaultConfig() Config {
	return Config{
		Templates: Templates{
			InTeam:          "in_team",
			TrackPoint:      "track_point",
			MissionStart:    "mission_start",
			MissionContinue: "mission_continue",
		},
		Routines: RoutineNames{
			Abandon:         "abandon_mission",
			OpenMenu:        "open_mission_menu",
			ConfirmStart:    "confirm_start",
			ConfirmContinue: "confirm_continue",
		},
		HistorySize: 32,
	}
}

// Client is the game as seen through one capture source and one injector
type Client struct {
	vision   Vision
	injector input.Injector
	window   input.Window
	routines Routines
	cfg      Config
	logger   *logging.Logger

	mu      sync.Mutex
	history *ScreenHistory
}

func NewClient(vision Vision, injector input.Injector, window input.Window, routines Routines, cfg Config) *Client {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultConfig().HistorySize
	}
	return &Client{
		vision:   vision,
		injector: injector,
		window:   window,
		routines: routines,
		cfg:      cfg,
		logger:   logging.NewLogger("Game"),
		history:  NewScreenHistory(cfg.HistorySize),
	}
}

func (c *Client) Input() input.Injector { return c.injector }
func (c *Client) Window() input.Window { return c.window }
func (c *Client) CV() actions.Vision { return c.vision }

// InGroupedContext reports whether the team indicator is visible
func (c *Client) InGroupedContext() (bool, error) {
	box, err := c.vision.Detect(c.cfg.Templates.InTeam, nil, c.cfg.Threshold)
	if err != nil {
		return false, fmt.Errorf("detect %s: %w", c.cfg.Templates.InTeam, err)
	}
	if box != nil {
		c.record(ScreenGrouped, box.Confidence)
	}
	return box != nil, nil
}

// MissionStatus looks for the start and continue prompts and confirms the one
// that is showing
func (c *Client) MissionStatus(ctx context.Context) (escort.MissionStatus, error) {
	screen, err := c.DetectScreen(ScreenMissionStart, ScreenMissionContinue)
	if err != nil {
		return escort.MissionNone, err
	}

	switch screen {
	case ScreenMissionStart:
		if err := c.runOptional(ctx, c.cfg.Routines.ConfirmStart); err != nil {
			return escort.MissionNone, err
		}
		return escort.MissionStart, nil
	case ScreenMissionContinue:
		if err := c.runOptional(ctx, c.cfg.Routines.ConfirmContinue); err != nil {
			return escort.MissionNone, err
		}
		return escort.MissionContinue, nil
	}
	return escort.MissionNone, nil
}

// AbandonMission gives up the running mission
func (c *Client) AbandonMission(ctx context.Context) error {
	c.logger.Info("Abandoning mission")
	return c.run(ctx, c.cfg.Routines.Abandon)
}

// OpenMissionMenu opens the in-mission menu so the game idles safely
func (c *Client) OpenMissionMenu(ctx context.Context) error {
	return c.run(ctx, c.cfg.Routines.OpenMenu)
}

// LocateMarker returns the center of the track point on a fresh frame
func (c *Client) LocateMarker() (cv.Point, bool, error) {
	if _, err := c.vision.Refresh(); err != nil {
		return cv.Point{}, false, fmt.Errorf("capture frame: %w", err)
	}
	box, err := c.vision.Detect(c.cfg.Templates.TrackPoint, nil, c.cfg.Threshold)
	if err != nil {
		return cv.Point{}, false, fmt.Errorf("detect %s: %w", c.cfg.Templates.TrackPoint, err)
	}
	if box == nil {
		return cv.Point{}, false, nil
	}
	return box.Center(), true, nil
}

func (c *Client) FrameSize() (int, int, error) {
	return c.vision.FrameSize()
}

// DetectScreen returns the best-matching screen among candidates
func (c *Client) DetectScreen(candidates ...Screen) (Screen, error) {
	best := ScreenUnknown
	bestConfidence := 0.0

	for _, screen := range candidates {
		name := c.templateFor(screen)
		if name == "" {
			continue
		}
		box, err := c.vision.Detect(name, nil, c.cfg.Threshold)
		if err != nil {
			return ScreenUnknown, fmt.Errorf("detect %s: %w", name, err)
		}
		if box != nil && box.Confidence > bestConfidence {
			best = screen
			bestConfidence = box.Confidence
		}
	}

	if best != ScreenUnknown {
		c.record(best, bestConfidence)
	}
	return best, nil
}

// RecentScreens returns the last n recognized screens, newest first
func (c *Client) RecentScreens(n int) []ScreenDetectionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.GetRecent(n)
}

func (c *Client) templateFor(screen Screen) string {
	switch screen {
	case ScreenGrouped:
		return c.cfg.Templates.InTeam
	case ScreenMissionStart:
		return c.cfg.Templates.MissionStart
	case ScreenMissionContinue:
		return c.cfg.Templates.MissionContinue
	}
	return ""
}

func (c *Client) record(screen Screen, confidence float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if last := c.history.GetLastScreen(); last != screen {
		c.logger.Debug(fmt.Sprintf("Screen %s -> %s (%.2f)", last, screen, confidence))
	}
	c.history.Add(ScreenDetectionResult{Screen: screen, Confidence: confidence, Detected: time.Now()})
}

func (c *Client) run(ctx context.Context, name string) error {
	routine, err := c.routines.Get(name)
	if err != nil {
		return err
	}
	if err := routine.Execute(ctx, c); err != nil {
		return fmt.Errorf("routine %s: %w", name, err)
	}
	return nil
}

func (c *Client) runOptional(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	return c.run(ctx, name)
}
