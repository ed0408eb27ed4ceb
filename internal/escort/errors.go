package escort

import "errors"

var (
	// ErrNotAcknowledged means the operator has not confirmed the setup notes
	ErrNotAcknowledged = errors.New("setup notes not acknowledged")
	// ErrMarkerNotFound means the position marker was not on screen during path selection
	ErrMarkerNotFound = errors.New("position marker not found")
	// ErrNoReferencePoints means path selection had nothing to compare against
	ErrNoReferencePoints = errors.New("no reference points configured")
)

// Reason explains why an attempt was abandoned
type Reason string

const (
	ReasonPlaybackFailed    Reason = "playback_failed"
	ReasonNoCondition       Reason = "no_condition_detected"
	ReasonResolutionTimeout Reason = "resolution_timeout"
	ReasonDetectionError    Reason = "detection_error"
	ReasonMarkerNotFound    Reason = "marker_not_found"
	ReasonOutcomeTimeout    Reason = "outcome_timeout"
)

// reasonForOutcome maps a failed hand-off to the restart reason
func reasonForOutcome(o Outcome) Reason {
	switch o {
	case OutcomeNoConditionDetected:
		return ReasonNoCondition
	case OutcomeTimedOut:
		return ReasonResolutionTimeout
	}
	return ReasonDetectionError
}
