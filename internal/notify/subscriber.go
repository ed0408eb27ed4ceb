package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jordanella.com/escort-bot/internal/escort"
	"jordanella.com/escort-bot/internal/events"
	"jordanella.com/escort-bot/internal/logging"
)

const sendTimeout = 15 * time.Second

// Subscriber turns run termination and task failures into notifications.
// Handlers run on the bus goroutine, so delivery happens in the background.
type Subscriber struct {
	bus      events.EventBus
	notifier Notifier
	beep     func(Level)
	logger   *logging.Logger

	subscriptionIDs []events.SubscriptionID
	wg              sync.WaitGroup
}

// NewSubscriber subscribes to bus. notifier may be nil when only the beep
// is wanted; beep false silences the sound.
func NewSubscriber(bus events.EventBus, notifier Notifier, beep bool) *Subscriber {
	s := &Subscriber{
		bus:      bus,
		notifier: notifier,
		logger:   logging.NewLogger("Notify"),
	}
	if beep {
		s.beep = Beep
	}
	s.subscriptionIDs = []events.SubscriptionID{
		bus.Subscribe(events.EventTypeRunTerminated, s.onRunTerminated),
		bus.Subscribe(events.EventTypeTaskFailed, s.onTaskFailed),
	}
	return s
}

// Wait blocks until in-flight notifications are delivered or timed out
func (s *Subscriber) Wait() {
	s.wg.Wait()
}

// Close unsubscribes and waits for in-flight notifications
func (s *Subscriber) Close() {
	for _, id := range s.subscriptionIDs {
		s.bus.Unsubscribe(id)
	}
	s.subscriptionIDs = nil
	s.Wait()
}

func (s *Subscriber) onRunTerminated(e events.Event) {
	elapsed := time.Duration(intData(e, "elapsed_seconds")) * time.Second
	s.deliver(Message{
		Title: "Escort run finished",
		Lines: []string{
			fmt.Sprintf("Rounds completed: %d", intData(e, "rounds_completed")),
			fmt.Sprintf("Failed attempts: %d", intData(e, "failed_attempts")),
			fmt.Sprintf("Elapsed: %s", escort.FormatDuration(elapsed)),
		},
		Level: LevelInfo,
	})
}

func (s *Subscriber) onTaskFailed(e events.Event) {
	task, _ := e.Data["task"].(string)
	reason, _ := e.Data["error"].(string)
	s.deliver(Message{
		Title: fmt.Sprintf("Task %s stopped", task),
		Lines: []string{reason},
		Level: LevelError,
	})
}

func (s *Subscriber) deliver(msg Message) {
	if s.beep != nil {
		s.beep(msg.Level)
	}
	if s.notifier == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.ErrorWithContext("Failed to send notification", err, map[string]interface{}{
				"notifier": s.notifier.Name(),
				"title":    msg.Title,
			})
		}
	}()
}

func intData(e events.Event, key string) int {
	switch v := e.Data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
