// Package config reads Settings.ini and routes.yaml and turns them into the
// component configs the bot is wired from.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/ini.v1"
)

type EscortSettings struct {
	Acknowledged       bool
	TargetRounds       int
	InitialSequence    string
	PathsFile          string
	RoutesFile         string
	RoutinesDir        string
	MaxDetectionErrors int

	Loop              time.Duration
	SelectDelay       time.Duration
	ResolutionTimeout time.Duration
	OutcomeGrace      time.Duration
	ContextWait       time.Duration
	ContextSettle     time.Duration
	AdvanceDelay      time.Duration

	GatePreWait time.Duration
	GatePoll    time.Duration
	GateSettle  time.Duration
	GateGrace   time.Duration
}

type PuzzleSettings struct {
	Enabled   bool
	PathsFile string
	Threshold float64
	MoveDelay time.Duration
	Settle    time.Duration
	Interval  time.Duration
}

type AutoMoveSettings struct {
	Enabled  bool
	Hotkey   string
	Press    time.Duration
	Interval time.Duration
	Tick     time.Duration
}

type WindowSettings struct {
	Title   string
	Capture string
	Display int
}

type HotkeySettings struct {
	Stop string
}

type NotifySettings struct {
	Beep           bool
	DiscordWebhook string
	DiscordToken   string
	DiscordChannel string
	TelegramToken  string
	TelegramChatID int64
}

type StatusSettings struct {
	Enabled  bool
	Listen   string
	Interval time.Duration
}

type DatabaseSettings struct {
	Path string
}

type TemplateSettings struct {
	Directory string
	Threshold float64
}

type LoggingSettings struct {
	Level string
	Dir   string
}

// Settings is the whole of Settings.ini
type Settings struct {
	Escort    EscortSettings
	Puzzle    PuzzleSettings
	AutoMove  AutoMoveSettings
	Window    WindowSettings
	Hotkeys   HotkeySettings
	Notify    NotifySettings
	Status    StatusSettings
	Database  DatabaseSettings
	Templates TemplateSettings
	Logging   LoggingSettings
}

// Default returns the settings used for every key missing from the file
func Default() *Settings {
	return &Settings{
		Escort: EscortSettings{
			TargetRounds:       999,
			PathsFile:          "escort_paths.json",
			RoutesFile:         "routes.yaml",
			RoutinesDir:        "routines",
			MaxDetectionErrors: 50,
			Loop:               200 * time.Millisecond,
			SelectDelay:        time.Second,
			ResolutionTimeout:  30 * time.Second,
			OutcomeGrace:       5 * time.Second,
			ContextWait:        30 * time.Second,
			ContextSettle:      time.Second,
			AdvanceDelay:       2 * time.Second,
			GatePreWait:        500 * time.Millisecond,
			GatePoll:           200 * time.Millisecond,
			GateSettle:         300 * time.Millisecond,
			GateGrace:          3 * time.Second,
		},
		Puzzle: PuzzleSettings{
			Enabled:   true,
			PathsFile: "puzzle_paths.json",
			Threshold: 0.85,
			MoveDelay: 100 * time.Millisecond,
			Settle:    time.Second,
			Interval:  200 * time.Millisecond,
		},
		AutoMove: AutoMoveSettings{
			Enabled:  true,
			Hotkey:   "rctrl",
			Press:    500 * time.Millisecond,
			Interval: 450 * time.Millisecond,
			Tick:     100 * time.Millisecond,
		},
		Window: WindowSettings{
			Title:   "Duet Night Abyss",
			Capture: "window",
		},
		Hotkeys: HotkeySettings{Stop: "F10"},
		Notify:  NotifySettings{Beep: true},
		Status: StatusSettings{
			Enabled:  true,
			Listen:   "127.0.0.1:8787",
			Interval: time.Second,
		},
		Database:  DatabaseSettings{Path: filepath.Join("data", "history.db")},
		Templates: TemplateSettings{Directory: "templates"},
		Logging:   LoggingSettings{Level: "INFO", Dir: "logs"},
	}
}

// Load reads Settings.ini. Keys missing from the file keep their defaults.
func Load(path string) (*Settings, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return fromINI(cfg), nil
}

// LoadOrDefault is Load, except a missing file yields the defaults
func LoadOrDefault(path string) (*Settings, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

func fromINI(cfg *ini.File) *Settings {
	d := Default()
	s := &Settings{}

	section := cfg.Section("Escort")
	s.Escort.Acknowledged = section.Key("Acknowledged").MustBool(d.Escort.Acknowledged)
	s.Escort.TargetRounds = section.Key("TargetRounds").MustInt(d.Escort.TargetRounds)
	s.Escort.InitialSequence = section.Key("InitialSequence").MustString(d.Escort.InitialSequence)
	s.Escort.PathsFile = section.Key("PathsFile").MustString(d.Escort.PathsFile)
	s.Escort.RoutesFile = section.Key("RoutesFile").MustString(d.Escort.RoutesFile)
	s.Escort.RoutinesDir = section.Key("RoutinesDir").MustString(d.Escort.RoutinesDir)
	s.Escort.MaxDetectionErrors = section.Key("MaxDetectionErrors").MustInt(d.Escort.MaxDetectionErrors)
	s.Escort.Loop = seconds(section, "LoopDelay", d.Escort.Loop)
	s.Escort.SelectDelay = seconds(section, "SelectDelay", d.Escort.SelectDelay)
	s.Escort.ResolutionTimeout = seconds(section, "ResolutionTimeout", d.Escort.ResolutionTimeout)
	s.Escort.OutcomeGrace = seconds(section, "OutcomeGrace", d.Escort.OutcomeGrace)
	s.Escort.ContextWait = seconds(section, "ContextWait", d.Escort.ContextWait)
	s.Escort.ContextSettle = seconds(section, "ContextSettle", d.Escort.ContextSettle)
	s.Escort.AdvanceDelay = seconds(section, "AdvanceDelay", d.Escort.AdvanceDelay)
	s.Escort.GatePreWait = seconds(section, "GatePreWait", d.Escort.GatePreWait)
	s.Escort.GatePoll = seconds(section, "GatePoll", d.Escort.GatePoll)
	s.Escort.GateSettle = seconds(section, "GateSettle", d.Escort.GateSettle)
	s.Escort.GateGrace = seconds(section, "GateGrace", d.Escort.GateGrace)

	section = cfg.Section("Puzzle")
	s.Puzzle.Enabled = section.Key("Enabled").MustBool(d.Puzzle.Enabled)
	s.Puzzle.PathsFile = section.Key("PathsFile").MustString(d.Puzzle.PathsFile)
	s.Puzzle.Threshold = section.Key("Threshold").MustFloat64(d.Puzzle.Threshold)
	s.Puzzle.MoveDelay = seconds(section, "MoveDelay", d.Puzzle.MoveDelay)
	s.Puzzle.Settle = seconds(section, "Settle", d.Puzzle.Settle)
	s.Puzzle.Interval = seconds(section, "Interval", d.Puzzle.Interval)

	section = cfg.Section("AutoMove")
	s.AutoMove.Enabled = section.Key("Enabled").MustBool(d.AutoMove.Enabled)
	s.AutoMove.Hotkey = section.Key("Hotkey").MustString(d.AutoMove.Hotkey)
	s.AutoMove.Press = seconds(section, "PressTime", d.AutoMove.Press)
	s.AutoMove.Interval = seconds(section, "IntervalTime", d.AutoMove.Interval)
	s.AutoMove.Tick = seconds(section, "Tick", d.AutoMove.Tick)

	section = cfg.Section("Window")
	s.Window.Title = section.Key("Title").MustString(d.Window.Title)
	s.Window.Capture = section.Key("Capture").In(d.Window.Capture, []string{"window", "display"})
	s.Window.Display = section.Key("Display").MustInt(d.Window.Display)

	section = cfg.Section("Hotkeys")
	s.Hotkeys.Stop = section.Key("Stop").MustString(d.Hotkeys.Stop)

	section = cfg.Section("Notify")
	s.Notify.Beep = section.Key("Beep").MustBool(d.Notify.Beep)
	s.Notify.DiscordWebhook = section.Key("DiscordWebhook").String()
	s.Notify.DiscordToken = section.Key("DiscordToken").String()
	s.Notify.DiscordChannel = section.Key("DiscordChannel").String()
	s.Notify.TelegramToken = section.Key("TelegramToken").String()
	s.Notify.TelegramChatID = section.Key("TelegramChatID").MustInt64(0)

	section = cfg.Section("Status")
	s.Status.Enabled = section.Key("Enabled").MustBool(d.Status.Enabled)
	s.Status.Listen = section.Key("Listen").MustString(d.Status.Listen)
	s.Status.Interval = seconds(section, "Interval", d.Status.Interval)

	section = cfg.Section("Database")
	s.Database.Path = section.Key("Path").MustString(d.Database.Path)

	section = cfg.Section("Templates")
	s.Templates.Directory = section.Key("Directory").MustString(d.Templates.Directory)
	s.Templates.Threshold = section.Key("Threshold").MustFloat64(d.Templates.Threshold)

	section = cfg.Section("Logging")
	s.Logging.Level = section.Key("Level").MustString(d.Logging.Level)
	s.Logging.Dir = section.Key("Dir").MustString(d.Logging.Dir)

	return s
}

// seconds reads a key holding fractional seconds
func seconds(section *ini.Section, key string, def time.Duration) time.Duration {
	v := section.Key(key).MustFloat64(def.Seconds())
	if v < 0 {
		return def
	}
	return time.Duration(v * float64(time.Second))
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// Save writes s to an INI file
func Save(s *Settings, path string) error {
	cfg := ini.Empty()

	section := cfg.Section("Escort")
	section.Key("Acknowledged").SetValue(strconv.FormatBool(s.Escort.Acknowledged))
	section.Key("TargetRounds").SetValue(strconv.Itoa(s.Escort.TargetRounds))
	section.Key("InitialSequence").SetValue(s.Escort.InitialSequence)
	section.Key("PathsFile").SetValue(s.Escort.PathsFile)
	section.Key("RoutesFile").SetValue(s.Escort.RoutesFile)
	section.Key("RoutinesDir").SetValue(s.Escort.RoutinesDir)
	section.Key("MaxDetectionErrors").SetValue(strconv.Itoa(s.Escort.MaxDetectionErrors))
	section.Key("LoopDelay").SetValue(formatSeconds(s.Escort.Loop))
	section.Key("SelectDelay").SetValue(formatSeconds(s.Escort.SelectDelay))
	section.Key("ResolutionTimeout").SetValue(formatSeconds(s.Escort.ResolutionTimeout))
	section.Key("OutcomeGrace").SetValue(formatSeconds(s.Escort.OutcomeGrace))
	section.Key("ContextWait").SetValue(formatSeconds(s.Escort.ContextWait))
	section.Key("ContextSettle").SetValue(formatSeconds(s.Escort.ContextSettle))
	section.Key("AdvanceDelay").SetValue(formatSeconds(s.Escort.AdvanceDelay))
	section.Key("GatePreWait").SetValue(formatSeconds(s.Escort.GatePreWait))
	section.Key("GatePoll").SetValue(formatSeconds(s.Escort.GatePoll))
	section.Key("GateSettle").SetValue(formatSeconds(s.Escort.GateSettle))
	section.Key("GateGrace").SetValue(formatSeconds(s.Escort.GateGrace))

	section = cfg.Section("Puzzle")
	section.Key("Enabled").SetValue(strconv.FormatBool(s.Puzzle.Enabled))
	section.Key("PathsFile").SetValue(s.Puzzle.PathsFile)
	section.Key("Threshold").SetValue(strconv.FormatFloat(s.Puzzle.Threshold, 'f', -1, 64))
	section.Key("MoveDelay").SetValue(formatSeconds(s.Puzzle.MoveDelay))
	section.Key("Settle").SetValue(formatSeconds(s.Puzzle.Settle))
	section.Key("Interval").SetValue(formatSeconds(s.Puzzle.Interval))

	section = cfg.Section("AutoMove")
	section.Key("Enabled").SetValue(strconv.FormatBool(s.AutoMove.Enabled))
	section.Key("Hotkey").SetValue(s.AutoMove.Hotkey)
	section.Key("PressTime").SetValue(formatSeconds(s.AutoMove.Press))
	section.Key("IntervalTime").SetValue(formatSeconds(s.AutoMove.Interval))
	section.Key("Tick").SetValue(formatSeconds(s.AutoMove.Tick))

	section = cfg.Section("Window")
	section.Key("Title").SetValue(s.Window.Title)
	section.Key("Capture").SetValue(s.Window.Capture)
	section.Key("Display").SetValue(strconv.Itoa(s.Window.Display))

	cfg.Section("Hotkeys").Key("Stop").SetValue(s.Hotkeys.Stop)

	section = cfg.Section("Notify")
	section.Key("Beep").SetValue(strconv.FormatBool(s.Notify.Beep))
	section.Key("DiscordWebhook").SetValue(s.Notify.DiscordWebhook)
	section.Key("DiscordToken").SetValue(s.Notify.DiscordToken)
	section.Key("DiscordChannel").SetValue(s.Notify.DiscordChannel)
	section.Key("TelegramToken").SetValue(s.Notify.TelegramToken)
	section.Key("TelegramChatID").SetValue(strconv.FormatInt(s.Notify.TelegramChatID, 10))

	section = cfg.Section("Status")
	section.Key("Enabled").SetValue(strconv.FormatBool(s.Status.Enabled))
	section.Key("Listen").SetValue(s.Status.Listen)
	section.Key("Interval").SetValue(formatSeconds(s.Status.Interval))

	cfg.Section("Database").Key("Path").SetValue(s.Database.Path)

	section = cfg.Section("Templates")
	section.Key("Directory").SetValue(s.Templates.Directory)
	section.Key("Threshold").SetValue(strconv.FormatFloat(s.Templates.Threshold, 'f', -1, 64))

	section = cfg.Section("Logging")
	section.Key("Level").SetValue(s.Logging.Level)
	section.Key("Dir").SetValue(s.Logging.Dir)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return cfg.SaveTo(path)
}

// Resolve makes every relative file and directory setting relative to dir,
// normally the folder holding Settings.ini
func (s *Settings) Resolve(dir string) {
	for _, p := range []*string{
		&s.Escort.PathsFile,
		&s.Escort.RoutesFile,
		&s.Escort.RoutinesDir,
		&s.Puzzle.PathsFile,
		&s.Database.Path,
		&s.Templates.Directory,
		&s.Logging.Dir,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
