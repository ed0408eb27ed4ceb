package game

import (
	"time"
)

// Screen is the part of the mission UI currently visible
type Screen int

const (
	// ScreenUnknown - none of the tracked templates matched
	ScreenUnknown Screen = iota

	ScreenGrouped         // Team formed, mission running
	ScreenMissionStart    // Start prompt after a finished round
	ScreenMissionContinue // Continue prompt between chained missions
)

// String returns human-readable screen name
func (s Screen) String() string {
	switch s {
	case ScreenGrouped:
		return "Grouped"
	case ScreenMissionStart:
		return "MissionStart"
	case ScreenMissionContinue:
		return "MissionContinue"
	default:
		return "Unknown"
	}
}

// IsMissionPrompt returns true if the screen waits for a confirmation
func (s Screen) IsMissionPrompt() bool {
	switch s {
	case ScreenMissionStart, ScreenMissionContinue:
		return true
	default:
		return false
	}
}

// ScreenDetectionResult contains detection details
type ScreenDetectionResult struct {
	Screen     Screen    `json:"screen"`
	Confidence float64   `json:"confidence"`
	Detected   time.Time `json:"detected"`
}

// ScreenHistory tracks recent screen states for debugging
type ScreenHistory struct {
	States   []ScreenDetectionResult
	MaxSize  int
	Position int
}

// NewScreenHistory creates a new screen history tracker
func NewScreenHistory(maxSize int) *ScreenHistory {
	return &ScreenHistory{
		States:  make([]ScreenDetectionResult, 0, maxSize),
		MaxSize: maxSize,
	}
}

// Add records a screen detection
func (sh *ScreenHistory) Add(result ScreenDetectionResult) {
	if len(sh.States) < sh.MaxSize {
		sh.States = append(sh.States, result)
	} else {
		sh.States[sh.Position] = result
		sh.Position = (sh.Position + 1) % sh.MaxSize
	}
}

// GetRecent returns the last N screen detections, newest first
func (sh *ScreenHistory) GetRecent(n int) []ScreenDetectionResult {
	size := len(sh.States)
	if n > size {
		n = size
	}

	recent := make([]ScreenDetectionResult, 0, n)
	for i := 0; i < n; i++ {
		idx := (sh.Position - 1 - i + size) % size
		if idx < 0 {
			idx += size
		}
		recent = append(recent, sh.States[idx])
	}

	return recent
}

// GetLastScreen returns the most recent screen detection
func (sh *ScreenHistory) GetLastScreen() Screen {
	if len(sh.States) == 0 {
		return ScreenUnknown
	}

	idx := sh.Position - 1
	if idx < 0 {
		idx = len(sh.States) - 1
	}

	return sh.States[idx].Screen
}
