package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Run lifecycle events
	EventTypeRunStarted    EventType = "run.started"
	EventTypeRunTerminated EventType = "run.terminated"

	// Mission events
	EventTypePhaseChanged     EventType = "mission.phase_changed"
	EventTypeAttemptStarted   EventType = "mission.attempt_started"
	EventTypePathSelected     EventType = "mission.path_selected"
	EventTypeAttemptRestarted EventType = "mission.attempt_restarted"
	EventTypeRoundCompleted   EventType = "mission.round_completed"

	// Hand-off events
	EventTypeConditionDetected EventType = "gate.condition_detected"
	EventTypeConditionResolved EventType = "gate.condition_resolved"

	// Task host events
	EventTypeTaskEnabled  EventType = "task.enabled"
	EventTypeTaskDisabled EventType = "task.disabled"
	EventTypeTaskFailed   EventType = "task.failed"

	// Error events
	EventTypeError EventType = "error"
)

// AllEventTypes lists every event type, for subscribers that want everything
var AllEventTypes = []EventType{
	EventTypeRunStarted,
	EventTypeRunTerminated,
	EventTypePhaseChanged,
	EventTypeAttemptStarted,
	EventTypePathSelected,
	EventTypeAttemptRestarted,
	EventTypeRoundCompleted,
	EventTypeConditionDetected,
	EventTypeConditionResolved,
	EventTypeTaskEnabled,
	EventTypeTaskDisabled,
	EventTypeTaskFailed,
	EventTypeError,
}

// Event represents a system event with metadata
type Event struct {
	Type      EventType              // Type of event
	Source    string                 // Component that emitted event (e.g., "escort", "scheduler")
	Timestamp time.Time              // When the event occurred
	Data      map[string]interface{} // Event-specific data
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Publish queues an event, blocking while the queue is full
	Publish(event Event)

	// PublishAsync queues an event without blocking
	PublishAsync(event Event)

	// Stop stops the event bus and drains remaining events
	Stop()
}

// Helper functions to create common events

// NewRunStartedEvent creates a run started event
func NewRunStartedEvent(sessionID string, targetRounds int) Event {
	return Event{
		Type:      EventTypeRunStarted,
		Source:    "escort",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id":    sessionID,
			"target_rounds": targetRounds,
		},
	}
}

// NewRunTerminatedEvent creates a run terminated event
func NewRunTerminatedEvent(sessionID string, rounds, failures int, elapsed time.Duration) Event {
	return Event{
		Type:      EventTypeRunTerminated,
		Source:    "escort",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id":       sessionID,
			"rounds_completed": rounds,
			"failed_attempts":  failures,
			"elapsed_seconds":  int(elapsed.Seconds()),
		},
	}
}

// NewPhaseChangedEvent creates a phase changed event
func NewPhaseChangedEvent(from, to string) Event {
	return Event{
		Type:      EventTypePhaseChanged,
		Source:    "escort",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"from": from,
			"to":   to,
		},
	}
}

// NewAttemptStartedEvent creates an attempt started event
func NewAttemptStartedEvent(sessionID string, attempt int, sequence string) Event {
	return Event{
		Type:      EventTypeAttemptStarted,
		Source:    "escort",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"attempt":    attempt,
			"sequence":   sequence,
		},
	}
}

// NewPathSelectedEvent creates a path selected event
func NewPathSelectedEvent(sessionID string, attempt, pathID int, pathName string, distance float64) Event {
	return Event{
		Type:      EventTypePathSelected,
		Source:    "escort",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"attempt":    attempt,
			"path_id":    pathID,
			"path_name":  pathName,
			"distance":   distance,
		},
	}
}

// NewAttemptRestartedEvent creates an attempt restarted event
func NewAttemptRestartedEvent(sessionID string, attempt int, reason string, failures int) Event {
	return Event{
		Type:      EventTypeAttemptRestarted,
		Source:    "escort",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id":      sessionID,
			"attempt":         attempt,
			"reason":          reason,
			"failed_attempts": failures,
		},
	}
}

// NewRoundCompletedEvent creates a round completed event
func NewRoundCompletedEvent(sessionID string, attempt, rounds int, roundTime time.Duration) Event {
	return Event{
		Type:      EventTypeRoundCompleted,
		Source:    "escort",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id":       sessionID,
			"attempt":          attempt,
			"rounds_completed": rounds,
			"round_seconds":    roundTime.Seconds(),
		},
	}
}

// NewConditionEvent creates a hand-off condition event
func NewConditionEvent(eventType EventType, condition string) Event {
	return Event{
		Type:      eventType,
		Source:    "gate",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"condition": condition,
		},
	}
}

// NewTaskEvent creates a task enabled/disabled event
func NewTaskEvent(eventType EventType, taskName string) Event {
	return Event{
		Type:      eventType,
		Source:    "scheduler",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"task": taskName,
		},
	}
}

// NewTaskFailedEvent creates a task failed event
func NewTaskFailedEvent(taskName string, err error) Event {
	return Event{
		Type:      EventTypeTaskFailed,
		Source:    "scheduler",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"task":  taskName,
			"error": err.Error(),
		},
	}
}

// NewErrorEvent creates an error event
func NewErrorEvent(source, component string, err error, metadata map[string]interface{}) Event {
	data := map[string]interface{}{
		"source":    source,
		"component": component,
		"error":     err.Error(),
	}

	// Merge metadata
	for k, v := range metadata {
		data[k] = v
	}

	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}
