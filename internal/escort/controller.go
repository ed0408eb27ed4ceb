// Package escort drives the escort mission loop: replaying the recorded route,
// choosing a branch from the position marker, waiting out puzzles and
// restarting failed attempts.
package escort

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"jordanella.com/escort-bot/internal/cv"
	"jordanella.com/escort-bot/internal/events"
	"jordanella.com/escort-bot/internal/logging"
	"jordanella.com/escort-bot/internal/path"
)

// Game is the mission UI as seen by the controller
type Game interface {
	// InGroupedContext reports whether the team is formed and the mission running
	InGroupedContext() (bool, error)
	// MissionStatus reads the mission UI and confirms whichever prompt is showing
	MissionStatus(ctx context.Context) (MissionStatus, error)
	AbandonMission(ctx context.Context) error
	OpenMissionMenu(ctx context.Context) error
}

// MarkerLocator finds the position marker used for branch selection
type MarkerLocator interface {
	LocateMarker() (center cv.Point, found bool, err error)
	FrameSize() (width, height int, err error)
}

// Player replays one segment
type Player interface {
	Execute(ctx context.Context, segment path.Segment, skipFirstDelay bool) error
}

// HandOff blocks at a sync marker until the puzzle has been dealt with
type HandOff interface {
	WaitForResolution(ctx context.Context, timeout time.Duration) (Outcome, error)
}

// Sequences looks up recorded sequences by name
type Sequences interface {
	Get(name string) (path.Sequence, error)
}

// Timings holds every wait the controller makes
type Timings struct {
	Loop              time.Duration
	SelectDelay       time.Duration
	ResolutionTimeout time.Duration
	OutcomeGrace      time.Duration
	ContextWait       time.Duration
	ContextSettle     time.Duration
	ContextPoll       time.Duration
	AdvanceDelay      time.Duration
	FinishDelay       time.Duration
}

// DefaultTimings returns the in-game timings
func DefaultTimings() Timings {
	return Timings{
		Loop:              200 * time.Millisecond,
		SelectDelay:       time.Second,
		ResolutionTimeout: 30 * time.Second,
		OutcomeGrace:      5 * time.Second,
		ContextWait:       30 * time.Second,
		ContextSettle:     time.Second,
		ContextPoll:       200 * time.Millisecond,
		AdvanceDelay:      2 * time.Second,
		FinishDelay:       time.Second,
	}
}

// Config controls one escort run
type Config struct {
	// Acknowledged must be set before the controller will run
	Acknowledged    bool
	TargetRounds    int
	InitialSequence string
	ReferencePoints []ReferencePoint
	BaseWidth       int
	BaseHeight      int
	Marker          path.MarkerFunc
	Timings         Timings

	// MaxDetectionErrors ends the run after that many ticks in a row fail to
	// read the screen; 0 retries forever
	MaxDetectionErrors int
}

// DefaultConfig returns the stock route layout and timings
func DefaultConfig() Config {
	return Config{
		TargetRounds:       999,
		InitialSequence:    "ESCORT_PATH_A",
		ReferencePoints:    DefaultReferencePoints(),
		BaseWidth:          cv.DefaultBaseWidth,
		BaseHeight:         cv.DefaultBaseHeight,
		Marker:             path.DefaultMarker,
		Timings:            DefaultTimings(),
		MaxDetectionErrors: 50,
	}
}

// Validate checks the parts of the config a run cannot start without
func (c Config) Validate() error {
	if !c.Acknowledged {
		return ErrNotAcknowledged
	}
	if len(c.ReferencePoints) == 0 {
		return ErrNoReferencePoints
	}
	if c.InitialSequence == "" {
		return errors.New("initial sequence name is empty")
	}
	if c.BaseWidth <= 0 || c.BaseHeight <= 0 {
		return fmt.Errorf("invalid base resolution %dx%d", c.BaseWidth, c.BaseHeight)
	}
	if c.TargetRounds < 0 {
		return fmt.Errorf("invalid target rounds %d", c.TargetRounds)
	}
	if c.MaxDetectionErrors < 0 {
		return fmt.Errorf("invalid detection error limit %d", c.MaxDetectionErrors)
	}
	return nil
}

// Controller is the mission state machine. All state is owned by the task
// calling Tick; Stats may be read from any goroutine.
type Controller struct {
	game    Game
	locator MarkerLocator
	player  Player
	gate    HandOff
	library Sequences
	cfg     Config
	bus     events.EventBus
	logger  *logging.Logger

	started      bool
	attemptStart time.Time
	pathEnd      time.Time
	// roundPending is set once an attempt has played its whole route and
	// cleared by a restart; only pending attempts count as rounds
	roundPending bool
	// detectErrors counts consecutive ticks whose screen reads failed
	detectErrors int

	mu    sync.RWMutex
	stats MissionStats
}

// NewController wires the controller's collaborators
func NewController(game Game, locator MarkerLocator, player Player, gate HandOff, library Sequences, cfg Config) *Controller {
	if cfg.Marker == nil {
		cfg.Marker = path.DefaultMarker
	}
	return &Controller{
		game:    game,
		locator: locator,
		player:  player,
		gate:    gate,
		library: library,
		cfg:     cfg,
		logger:  logging.NewLogger("Escort"),
		stats:   MissionStats{TargetRounds: cfg.TargetRounds},
	}
}

// WithEventBus publishes lifecycle events to bus
func (c *Controller) WithEventBus(bus events.EventBus) *Controller {
	c.bus = bus
	return c
}

// WithLogger replaces the controller's logger
func (c *Controller) WithLogger(logger *logging.Logger) *Controller {
	c.logger = logger
	return c
}

// Stats returns a snapshot of the run counters
func (c *Controller) Stats() MissionStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	if !s.StartedAt.IsZero() {
		s.Elapsed = time.Since(s.StartedAt)
	}
	return s
}

// Run ticks until the run finishes, fails or ctx is canceled
func (c *Controller) Run(ctx context.Context) error {
	for {
		done, err := c.Tick(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// Tick runs one iteration of the main loop including its trailing sleep.
// done is true once the target is reached or ctx is canceled; an error
// means the run cannot continue.
func (c *Controller) Tick(ctx context.Context) (done bool, err error) {
	if ctx.Err() != nil {
		return true, nil
	}

	if !c.started {
		if err := c.cfg.Validate(); err != nil {
			if errors.Is(err, ErrNotAcknowledged) {
				c.logger.Error("Read the setup notes and enable the acknowledgement setting before starting", err)
			}
			return true, err
		}
		c.begin()
	}

	done, err = c.step(ctx)
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Info("Escort task stopped")
			return true, nil
		}
		c.logger.ErrorWithContext("Escort task failed", err, map[string]interface{}{
			"phase":   c.phase().String(),
			"attempt": c.Stats().Attempt,
		})
		return true, err
	}
	if done {
		return true, nil
	}

	if sleepCtx(ctx, c.cfg.Timings.Loop) != nil {
		return true, nil
	}
	return false, nil
}

func (c *Controller) begin() {
	c.started = true

	c.mu.Lock()
	c.stats.SessionID = uuid.NewString()
	c.stats.StartedAt = time.Now()
	c.stats.TargetRounds = c.cfg.TargetRounds
	sessionID := c.stats.SessionID
	c.mu.Unlock()

	c.logger.InfoWithContext("Escort run started", map[string]interface{}{
		"session_id":    sessionID,
		"target_rounds": c.cfg.TargetRounds,
	})
	c.publish(events.NewRunStartedEvent(sessionID, c.cfg.TargetRounds))
}

func (c *Controller) step(ctx context.Context) (bool, error) {
	grouped, err := c.game.InGroupedContext()
	if err != nil {
		return false, c.detectionFailed("check team", err)
	}

	if grouped {
		if c.phase() == PhaseIdle {
			if err := c.runAttempt(ctx); err != nil {
				return false, err
			}
		}
		if c.phase() == PhaseAwaitingOutcome && time.Since(c.pathEnd) >= c.cfg.Timings.OutcomeGrace {
			c.logger.Warn(fmt.Sprintf("Mission did not finish within %v of the route ending", c.cfg.Timings.OutcomeGrace))
			if err := c.restart(ctx, ReasonOutcomeTimeout); err != nil {
				return false, err
			}
		}
	}

	status, err := c.game.MissionStatus(ctx)
	if err != nil {
		return false, c.detectionFailed("check mission status", err)
	}
	c.detectErrors = 0

	switch status {
	case MissionStart:
		return c.advance(ctx)
	case MissionContinue:
		return false, c.continueChain(ctx)
	}
	return false, nil
}

// detectionFailed logs a failed screen read so the next tick retries. It
// returns an error once MaxDetectionErrors ticks in a row have failed.
func (c *Controller) detectionFailed(what string, err error) error {
	c.detectErrors++
	c.logger.WarnWithContext("Screen check failed, retrying next tick", map[string]interface{}{
		"check":       what,
		"error":       err.Error(),
		"consecutive": c.detectErrors,
	})
	if limit := c.cfg.MaxDetectionErrors; limit > 0 && c.detectErrors >= limit {
		return fmt.Errorf("%s: %d consecutive failures: %w", what, c.detectErrors, err)
	}
	return nil
}

// runAttempt plays the initial route, picks a branch and plays it. Local
// failures restart the attempt; only cancellation is returned.
func (c *Controller) runAttempt(ctx context.Context) error {
	c.setPhase(PhasePreparing)
	c.attemptStart = time.Now()
	c.roundPending = false

	c.mu.Lock()
	c.stats.Attempt++
	c.stats.SelectedPath = 0
	c.stats.SelectedName = ""
	sessionID, attempt := c.stats.SessionID, c.stats.Attempt
	c.mu.Unlock()

	c.logger.Info(fmt.Sprintf("Attempt %d: running %s", attempt, c.cfg.InitialSequence))
	c.publish(events.NewAttemptStartedEvent(sessionID, attempt, c.cfg.InitialSequence))

	c.setPhase(PhaseRunningInitialSegment)
	reason, err := c.playSequence(ctx, c.cfg.InitialSequence, PhaseRunningInitialSegment)
	if err != nil {
		return err
	}
	if reason != "" {
		return c.restart(ctx, reason)
	}

	if err := sleepCtx(ctx, c.cfg.Timings.SelectDelay); err != nil {
		return err
	}

	c.setPhase(PhaseSelectingPath)
	sel, err := c.selectPath()
	if err != nil {
		c.logger.Error("Path selection failed", err)
		return c.restart(ctx, ReasonMarkerNotFound)
	}

	c.mu.Lock()
	c.stats.SelectedPath = sel.PathID
	c.stats.SelectedName = sel.Name
	c.mu.Unlock()
	c.publish(events.NewPathSelectedEvent(sessionID, attempt, sel.PathID, sel.Name, sel.Distance))

	c.setPhase(PhaseRunningPathSegments)
	reason, err = c.playSequence(ctx, sel.Name, PhaseRunningPathSegments)
	if err != nil {
		return err
	}
	if reason != "" {
		return c.restart(ctx, reason)
	}

	c.pathEnd = time.Now()
	c.roundPending = true
	c.setPhase(PhaseAwaitingOutcome)
	return nil
}

// playSequence replays name segment by segment, stopping at each sync marker
// until the gate reports the puzzle resolved. A missing sequence plays
// nothing.
func (c *Controller) playSequence(ctx context.Context, name string, phase Phase) (Reason, error) {
	seq, err := c.library.Get(name)
	if err != nil {
		c.logger.Warn(fmt.Sprintf("No recording for %s, skipping movement: %v", name, err))
		return "", nil
	}

	segments := path.Split(seq, c.cfg.Marker)
	for i, segment := range segments {
		skipFirstDelay := i > 0 && segments[i-1].EndsOnMarker
		if err := c.player.Execute(ctx, segment, skipFirstDelay); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			c.logger.ErrorWithContext("Segment playback failed", err, map[string]interface{}{
				"sequence": name,
				"segment":  i,
			})
			return ReasonPlaybackFailed, nil
		}

		if !segment.EndsOnMarker {
			continue
		}

		c.setPhase(PhaseAwaitingResolution)
		outcome, err := c.gate.WaitForResolution(ctx, c.cfg.Timings.ResolutionTimeout)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if outcome != OutcomeResolved {
			if err != nil {
				c.logger.Error("Puzzle detection failed", err)
			}
			return reasonForOutcome(outcome), nil
		}
		c.setPhase(phase)
	}
	return "", nil
}

func (c *Controller) selectPath() (Selection, error) {
	marker, found, err := c.locator.LocateMarker()
	if err != nil {
		return Selection{}, fmt.Errorf("locate marker: %w", err)
	}
	if !found {
		return Selection{}, ErrMarkerNotFound
	}

	w, h, err := c.locator.FrameSize()
	if err != nil {
		return Selection{}, fmt.Errorf("frame size: %w", err)
	}

	points := ScaleReferencePoints(c.cfg.ReferencePoints, c.cfg.BaseWidth, c.cfg.BaseHeight, w, h)
	sel, ok := SelectNearest(points, marker)
	if !ok {
		return Selection{}, ErrNoReferencePoints
	}

	for _, p := range points {
		c.logger.Debug(fmt.Sprintf("Path %d (%d,%d): distance %.1f", p.PathID, p.X, p.Y, sel.Distances[p.PathID]))
	}
	c.logger.Info(fmt.Sprintf("Marker at (%d,%d), selected path %d (%s), distance %.1f",
		marker.X, marker.Y, sel.PathID, sel.Name, sel.Distance))
	return sel, nil
}

// restart abandons the current attempt and returns to Idle once the team
// has left the mission
func (c *Controller) restart(ctx context.Context, reason Reason) error {
	c.mu.Lock()
	c.stats.FailedAttempts++
	sessionID, attempt, failures := c.stats.SessionID, c.stats.Attempt, c.stats.FailedAttempts
	c.mu.Unlock()

	c.setPhase(PhaseRestarting)
	c.logger.WarnWithContext("Restarting attempt", map[string]interface{}{
		"reason":          string(reason),
		"attempt":         attempt,
		"failed_attempts": failures,
	})
	c.publish(events.NewAttemptRestartedEvent(sessionID, attempt, string(reason), failures))

	if err := c.game.AbandonMission(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("Abandoning mission failed", err)
	}

	left, err := c.waitGrouped(ctx, false, c.cfg.Timings.ContextWait, c.cfg.Timings.ContextSettle)
	if err != nil {
		return err
	}
	if !left {
		c.logger.Warn("Team still formed after abandoning mission")
	}

	c.resetAttempt()
	c.setPhase(PhaseIdle)
	return nil
}

func (c *Controller) advance(ctx context.Context) (bool, error) {
	c.setPhase(PhaseAdvancing)
	if _, err := c.waitGrouped(ctx, true, c.cfg.Timings.ContextWait, 0); err != nil {
		return false, err
	}

	if c.roundPending {
		c.completeRound()
	}

	stats := c.Stats()
	if c.cfg.TargetRounds > 0 && stats.RoundsCompleted >= c.cfg.TargetRounds {
		return true, c.finish(ctx)
	}

	c.logger.Info("Mission started")
	if err := sleepCtx(ctx, c.cfg.Timings.AdvanceDelay); err != nil {
		return false, err
	}
	c.resetAttempt()
	c.setPhase(PhaseIdle)
	return false, nil
}

func (c *Controller) continueChain(ctx context.Context) error {
	c.logger.Info("Continuing mission chain")
	if _, err := c.waitGrouped(ctx, true, c.cfg.Timings.ContextWait, 0); err != nil {
		return err
	}
	if c.roundPending {
		c.completeRound()
	}
	c.resetAttempt()
	c.setPhase(PhaseIdle)
	return nil
}

func (c *Controller) completeRound() {
	c.roundPending = false
	roundTime := time.Since(c.attemptStart)

	c.mu.Lock()
	c.stats.RoundsCompleted++
	sessionID, attempt := c.stats.SessionID, c.stats.Attempt
	c.mu.Unlock()

	stats := c.Stats()
	c.logger.Info(fmt.Sprintf("Round %d/%d complete. Elapsed %s, average %s per round, %d remaining (about %s)",
		stats.RoundsCompleted, stats.TargetRounds,
		FormatDuration(stats.Elapsed), FormatDuration(stats.AverageRound()),
		stats.Remaining(), FormatDuration(stats.EstimatedRemaining())))
	c.publish(events.NewRoundCompletedEvent(sessionID, attempt, stats.RoundsCompleted, roundTime))
}

func (c *Controller) finish(ctx context.Context) error {
	c.setPhase(PhaseTerminated)
	if err := sleepCtx(ctx, c.cfg.Timings.FinishDelay); err != nil {
		return err
	}
	if err := c.game.OpenMissionMenu(ctx); err != nil {
		c.logger.Error("Opening mission menu failed", err)
	}

	stats := c.Stats()
	c.logger.Info(fmt.Sprintf("Target of %d rounds reached in %s with %d failed attempts",
		stats.RoundsCompleted, FormatDuration(stats.Elapsed), stats.FailedAttempts))
	c.publish(events.NewRunTerminatedEvent(stats.SessionID, stats.RoundsCompleted, stats.FailedAttempts, stats.Elapsed))
	return nil
}

// waitGrouped polls until the grouped state equals want. With settle > 0 the
// state must still hold after settle has passed. Detection errors are logged
// and polling continues; only cancellation is returned.
func (c *Controller) waitGrouped(ctx context.Context, want bool, timeout, settle time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		grouped, err := c.game.InGroupedContext()
		if err != nil {
			c.logger.Warn(fmt.Sprintf("Team check failed: %v", err))
		} else if grouped == want {
			if settle <= 0 {
				return true, nil
			}
			if err := sleepCtx(ctx, settle); err != nil {
				return false, err
			}
			if again, err := c.game.InGroupedContext(); err == nil && again == want {
				return true, nil
			}
		}

		if !time.Now().Before(deadline) {
			return false, nil
		}
		if err := sleepCtx(ctx, c.cfg.Timings.ContextPoll); err != nil {
			return false, err
		}
	}
}

func (c *Controller) resetAttempt() {
	c.pathEnd = time.Time{}
	c.roundPending = false
}

func (c *Controller) phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats.Phase
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	from := c.stats.Phase
	c.stats.Phase = p
	c.mu.Unlock()

	if from == p {
		return
	}
	c.logger.Debug(fmt.Sprintf("Phase %s -> %s", from, p))
	c.publish(events.NewPhaseChangedEvent(from.String(), p.String()))
}

func (c *Controller) publish(event events.Event) {
	if c.bus != nil {
		c.bus.PublishAsync(event)
	}
}
