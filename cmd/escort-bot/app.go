package main

import (
	"context"
	"fmt"

	"jordanella.com/escort-bot/internal/actions"
	"jordanella.com/escort-bot/internal/automove"
	"jordanella.com/escort-bot/internal/config"
	"jordanella.com/escort-bot/internal/cv"
	"jordanella.com/escort-bot/internal/database"
	"jordanella.com/escort-bot/internal/escort"
	"jordanella.com/escort-bot/internal/events"
	"jordanella.com/escort-bot/internal/game"
	"jordanella.com/escort-bot/internal/hotkey"
	"jordanella.com/escort-bot/internal/input"
	"jordanella.com/escort-bot/internal/logging"
	"jordanella.com/escort-bot/internal/notify"
	"jordanella.com/escort-bot/internal/path"
	"jordanella.com/escort-bot/internal/playback"
	"jordanella.com/escort-bot/internal/puzzle"
	"jordanella.com/escort-bot/internal/scheduler"
	"jordanella.com/escort-bot/internal/server"
	"jordanella.com/escort-bot/pkg/templates"
)

const (
	taskEscort   = "escort"
	taskPuzzle   = "puzzle"
	taskAutoMove = "automove"
)

// app owns every long-lived component of a run
type app struct {
	settings *config.Settings
	logger   *logging.Logger

	bus      *events.DefaultEventBus
	db       *database.DB
	recorder *database.Recorder
	eventLog *logging.EventLogger
	notifier *notify.Subscriber

	host       *scheduler.Host
	client     *game.Client
	controller *escort.Controller
	solver     *puzzle.Solver
	mover      *automove.Mover
	hotkeys    *hotkey.Manager
	status     *server.Server
}

func newApp(ctx context.Context, s *config.Settings) (_ *app, err error) {
	a := &app{
		settings: s,
		logger:   logging.NewLogger("Main"),
		bus:      events.NewEventBus(256),
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if a.eventLog, err = logging.NewEventLogger(a.bus, s.Logging.Dir); err != nil {
		return nil, err
	}
	if a.db, err = database.OpenAndMigrate(s.Database.Path); err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	a.recorder = database.NewRecorder(a.db, a.bus)
	a.notifier = notify.NewSubscriber(a.bus, a.buildNotifier(), s.Notify.Beep)

	routes, err := config.LoadRoutes(s.Escort.RoutesFile)
	if err != nil {
		return nil, err
	}

	window, err := input.FindWindow(s.Window.Title)
	if err != nil {
		return nil, fmt.Errorf("find game window: %w", err)
	}
	injector := input.NewInjector()

	var capturer cv.Capturer
	switch cv.ParseCaptureMethod(s.Window.Capture) {
	case cv.CaptureMethodDisplay:
		capturer, err = cv.NewDisplayCapture(s.Window.Display)
	default:
		capturer, err = cv.NewWindowCapture(window.Handle())
	}
	if err != nil {
		return nil, fmt.Errorf("create capturer: %w", err)
	}

	registry := templates.NewTemplateRegistry(s.Templates.Directory)
	if err := registry.LoadFromDirectory(s.Templates.Directory); err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	if err := registry.PreloadAll(); err != nil {
		a.logger.Warn(fmt.Sprintf("Template preload incomplete: %v", err))
	}
	vision := cv.NewService(capturer).
		WithTemplateRegistry(registry).
		WithBaseResolution(routes.BaseWidth, routes.BaseHeight)

	routines := actions.NewRoutineRegistry(s.Escort.RoutinesDir).WithTemplateRegistry(registry)
	if err := routines.Load(); err != nil {
		return nil, fmt.Errorf("load routines: %w", err)
	}
	for _, name := range routines.ListInvalid() {
		a.logger.Warn(fmt.Sprintf("Routine %s is invalid and will not run", name))
	}

	a.client = game.NewClient(vision, injector, window, routines, s.GameConfig())

	book, err := path.LoadPuzzleBook(s.Puzzle.PathsFile)
	if err != nil {
		a.logger.Error("Failed to load puzzle paths, puzzles cannot be solved", err)
		book = path.NewPuzzleBook(nil)
	}
	a.solver = puzzle.NewSolver(vision, injector, window, book, s.PuzzleConfig())
	vision.OnFrameResize(a.solver.InvalidateGeometry)

	gate := escort.NewGate(vision, a.solver).
		WithTimings(s.GateTimings()).
		WithEventBus(a.bus)
	library := path.LoadLibraryOrEmpty(s.Escort.PathsFile, a.logger)
	engine := playback.NewEngine(injector, window)

	a.controller = escort.NewController(a.client, a.client, engine, gate, library, s.EscortConfig(routes)).
		WithEventBus(a.bus)
	a.mover = automove.NewMover(a.client, injector, s.AutoMoveConfig()).WithFocus(window)

	a.host = scheduler.NewHost(ctx).WithEventBus(a.bus)
	// The gate drives the solver itself while an escort run is active
	a.solver.SkipWhen(func() bool { return a.host.IsEnabled(taskEscort) })
	if err := a.registerTasks(); err != nil {
		return nil, err
	}

	a.hotkeys = hotkey.NewManager()
	if err := a.registerHotkeys(); err != nil {
		return nil, err
	}

	if s.Status.Enabled {
		collector := &server.Collector{Escort: a.controller, Host: a.host, Screens: a.client}
		a.status = server.New(s.Status.Listen, collector).
			WithHistory(a.db).
			WithInterval(s.Status.Interval)
	}
	return a, nil
}

func (a *app) registerTasks() error {
	s := a.settings
	specs := []scheduler.TaskSpec{
		{Name: taskEscort, Kind: scheduler.OneTime, Run: a.controller.Run, Enabled: true},
		{Name: taskPuzzle, Kind: scheduler.Trigger, Interval: s.Puzzle.Interval, Run: a.solver.Run, Enabled: s.Puzzle.Enabled},
		{Name: taskAutoMove, Kind: scheduler.Trigger, Interval: s.AutoMove.Tick, Run: a.mover.Run, Enabled: s.AutoMove.Enabled},
	}
	for _, spec := range specs {
		if err := a.host.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) registerHotkeys() error {
	if _, err := a.hotkeys.Register(a.settings.Hotkeys.Stop, func() {
		if err := a.host.Disable(taskEscort); err != nil {
			a.logger.Error("Failed to stop escort task", err)
		}
	}); err != nil {
		return fmt.Errorf("stop hotkey: %w", err)
	}

	if a.settings.AutoMove.Enabled && a.settings.AutoMove.Hotkey != "" {
		if _, err := a.hotkeys.Register(a.settings.AutoMove.Hotkey, a.mover.Signal); err != nil {
			return fmt.Errorf("auto-move hotkey: %w", err)
		}
		a.hotkeys.OnLeftClick(a.mover.Interrupt)
	}
	return nil
}

func (a *app) buildNotifier() notify.Notifier {
	n := a.settings.Notify
	var notifiers notify.Multi

	switch {
	case n.DiscordToken != "":
		discord, err := notify.NewDiscordBot(n.DiscordToken, n.DiscordChannel)
		if err != nil {
			a.logger.Error("Discord notifications disabled", err)
		} else {
			notifiers = append(notifiers, discord)
		}
	case n.DiscordWebhook != "":
		notifiers = append(notifiers, notify.NewDiscordWebhook(n.DiscordWebhook))
	}

	if n.TelegramToken != "" {
		tg, err := notify.NewTelegram(n.TelegramToken, n.TelegramChatID)
		if err != nil {
			a.logger.Error("Telegram notifications disabled", err)
		} else {
			notifiers = append(notifiers, tg)
		}
	}

	if len(notifiers) == 0 {
		return nil
	}
	return notifiers
}

// close releases resources in reverse order of creation. Events still
// queued are delivered before the subscribers detach.
func (a *app) close() {
	if a.host != nil {
		a.host.Stop()
	}
	if a.bus != nil {
		a.bus.Stop()
	}
	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.eventLog != nil {
		a.eventLog.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
