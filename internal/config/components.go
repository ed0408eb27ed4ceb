package config

import (
	"jordanella.com/escort-bot/internal/automove"
	"jordanella.com/escort-bot/internal/escort"
	"jordanella.com/escort-bot/internal/game"
	"jordanella.com/escort-bot/internal/path"
	"jordanella.com/escort-bot/internal/puzzle"
)

// EscortConfig combines the [Escort] settings with the route layout. A
// non-empty InitialSequence in Settings.ini overrides the routes file.
func (s *Settings) EscortConfig(routes *Routes) escort.Config {
	cfg := escort.DefaultConfig()
	cfg.Acknowledged = s.Escort.Acknowledged
	cfg.TargetRounds = s.Escort.TargetRounds
	cfg.MaxDetectionErrors = s.Escort.MaxDetectionErrors

	if routes != nil {
		cfg.InitialSequence = routes.InitialSequence
		cfg.ReferencePoints = routes.ReferencePoints
		cfg.BaseWidth, cfg.BaseHeight = routes.BaseWidth, routes.BaseHeight
		if routes.MarkerKey != "" {
			cfg.Marker = path.KeyReleaseMarker(routes.MarkerKey)
		}
	}
	if s.Escort.InitialSequence != "" {
		cfg.InitialSequence = s.Escort.InitialSequence
	}

	t := &cfg.Timings
	t.Loop = s.Escort.Loop
	t.SelectDelay = s.Escort.SelectDelay
	t.ResolutionTimeout = s.Escort.ResolutionTimeout
	t.OutcomeGrace = s.Escort.OutcomeGrace
	t.ContextWait = s.Escort.ContextWait
	t.ContextSettle = s.Escort.ContextSettle
	t.AdvanceDelay = s.Escort.AdvanceDelay
	return cfg
}

func (s *Settings) GateTimings() escort.GateTimings {
	return escort.GateTimings{
		PreWait: s.Escort.GatePreWait,
		Poll:    s.Escort.GatePoll,
		Settle:  s.Escort.GateSettle,
		Grace:   s.Escort.GateGrace,
	}
}

func (s *Settings) PuzzleConfig() puzzle.Config {
	cfg := puzzle.DefaultConfig()
	cfg.Threshold = s.Puzzle.Threshold
	cfg.MoveDelay = s.Puzzle.MoveDelay
	cfg.Settle = s.Puzzle.Settle
	return cfg
}

func (s *Settings) GameConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.Threshold = s.Templates.Threshold
	return cfg
}

func (s *Settings) AutoMoveConfig() automove.Config {
	return automove.Config{
		Press:    s.AutoMove.Press,
		Interval: s.AutoMove.Interval,
		Step:     s.AutoMove.Tick,
	}
}
