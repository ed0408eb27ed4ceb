package database

import (
	"time"

	"jordanella.com/escort-bot/internal/events"
	"jordanella.com/escort-bot/internal/logging"
)

// Recorder writes mission events to the history tables
type Recorder struct {
	db              *DB
	bus             events.EventBus
	logger          *logging.Logger
	subscriptionIDs []events.SubscriptionID
	session         string
}

// NewRecorder subscribes to the mission and task events on bus
func NewRecorder(db *DB, bus events.EventBus) *Recorder {
	r := &Recorder{
		db:     db,
		bus:    bus,
		logger: logging.NewLogger("Recorder"),
	}

	handlers := map[events.EventType]events.EventHandler{
		events.EventTypeRunStarted:       r.onRunStarted,
		events.EventTypeRunTerminated:    r.onRunTerminated,
		events.EventTypeAttemptStarted:   r.onAttemptStarted,
		events.EventTypePathSelected:     r.onPathSelected,
		events.EventTypeAttemptRestarted: r.onAttemptRestarted,
		events.EventTypeRoundCompleted:   r.onRoundCompleted,
		events.EventTypeTaskFailed:       r.onError,
		events.EventTypeError:            r.onError,
	}
	for eventType, handler := range handlers {
		r.subscriptionIDs = append(r.subscriptionIDs, bus.Subscribe(eventType, handler))
	}
	return r
}

// Close unsubscribes from the bus
func (r *Recorder) Close() {
	for _, id := range r.subscriptionIDs {
		r.bus.Unsubscribe(id)
	}
	r.subscriptionIDs = nil
}

func (r *Recorder) onRunStarted(e events.Event) {
	id := stringField(e, "session_id")
	r.session = id
	r.check(e, r.db.StartSession(id, intField(e, "target_rounds"), e.Timestamp))
}

func (r *Recorder) onRunTerminated(e events.Event) {
	elapsed := time.Duration(intField(e, "elapsed_seconds")) * time.Second
	r.check(e, r.db.FinishSession(stringField(e, "session_id"),
		intField(e, "rounds_completed"), intField(e, "failed_attempts"), elapsed, e.Timestamp))
}

func (r *Recorder) onAttemptStarted(e events.Event) {
	r.check(e, r.db.StartAttempt(stringField(e, "session_id"), intField(e, "attempt"),
		stringField(e, "sequence"), e.Timestamp))
}

func (r *Recorder) onPathSelected(e events.Event) {
	r.check(e, r.db.SetAttemptPath(stringField(e, "session_id"), intField(e, "attempt"),
		intField(e, "path_id"), stringField(e, "path_name"), floatField(e, "distance")))
}

func (r *Recorder) onAttemptRestarted(e events.Event) {
	session := stringField(e, "session_id")
	if err := r.db.FailAttempt(session, intField(e, "attempt"), stringField(e, "reason"), e.Timestamp); err != nil {
		r.check(e, err)
		return
	}
	r.check(e, r.db.UpdateSessionFailures(session, intField(e, "failed_attempts")))
}

func (r *Recorder) onRoundCompleted(e events.Event) {
	session := stringField(e, "session_id")
	roundTime := time.Duration(floatField(e, "round_seconds") * float64(time.Second))
	if err := r.db.CompleteAttempt(session, intField(e, "attempt"), roundTime, e.Timestamp); err != nil {
		r.check(e, err)
		return
	}
	r.check(e, r.db.UpdateSessionRounds(session, intField(e, "rounds_completed")))
}

func (r *Recorder) onError(e events.Event) {
	var session *string
	if r.session != "" {
		s := r.session
		session = &s
	}
	var component *string
	if c := stringField(e, "component"); c != "" {
		component = &c
	} else if task := stringField(e, "task"); task != "" {
		component = &task
	}
	_, err := r.db.LogError(session, e.Source, component, stringField(e, "error"), e.Timestamp)
	r.check(e, err)
}

func (r *Recorder) check(e events.Event, err error) {
	if err != nil {
		r.logger.ErrorWithContext("Failed to record event", err, map[string]interface{}{
			"event_type": string(e.Type),
		})
	}
}

func stringField(e events.Event, key string) string {
	s, _ := e.Data[key].(string)
	return s
}

func intField(e events.Event, key string) int {
	switch v := e.Data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatField(e events.Event, key string) float64 {
	switch v := e.Data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
