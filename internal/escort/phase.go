package escort

// Phase is the controller's current state
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePreparing
	PhaseRunningInitialSegment
	PhaseSelectingPath
	PhaseRunningPathSegments
	PhaseAwaitingResolution
	PhaseAwaitingOutcome
	PhaseAdvancing
	PhaseRestarting
	PhaseTerminated
)

var phaseLabels = map[Phase]string{
	PhaseIdle:                  "Waiting for team",
	PhasePreparing:             "Preparing",
	PhaseRunningInitialSegment: "Running initial path",
	PhaseSelectingPath:         "Selecting path",
	PhaseRunningPathSegments:   "Running escort path",
	PhaseAwaitingResolution:    "Waiting for puzzle",
	PhaseAwaitingOutcome:       "Waiting for settlement",
	PhaseAdvancing:             "Mission started",
	PhaseRestarting:            "Restarting",
	PhaseTerminated:            "Finished",
}

// String returns the human-readable label shown in status output
func (p Phase) String() string {
	if label, ok := phaseLabels[p]; ok {
		return label
	}
	return "Unknown"
}

// MissionStatus is what the mission UI is currently offering
type MissionStatus int

const (
	MissionNone MissionStatus = iota
	MissionStart
	MissionContinue
)

func (s MissionStatus) String() string {
	switch s {
	case MissionStart:
		return "start"
	case MissionContinue:
		return "continue"
	}
	return "none"
}
