// Package path holds recorded input sequences and the documents they load from.
package path

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventType tags one recorded input event
type EventType string

const (
	EventMouseRotation EventType = "mouse_rotation"
	EventMouseDown     EventType = "mouse_down"
	EventMouseUp       EventType = "mouse_up"
	EventKeyDown       EventType = "key_down"
	EventKeyUp         EventType = "key_up"
)

// DefaultSensitivity converts rotation degrees to pixels when a recording omits it
const DefaultSensitivity = 10.0

// Event is one recorded input. Only the fields for its Type are meaningful.
type Event struct {
	Type  EventType `json:"type"`
	Delay float64   `json:"delay"` // seconds since the previous event

	Key    string `json:"key,omitempty"`
	Button string `json:"button,omitempty"`

	Direction   string  `json:"direction,omitempty"`
	Angle       float64 `json:"angle,omitempty"`
	Sensitivity float64 `json:"sensitivity,omitempty"`
}

// UnmarshalJSON applies recording defaults and rejects negative delays
func (e *Event) UnmarshalJSON(data []byte) error {
	type rawEvent Event
	raw := rawEvent{Sensitivity: DefaultSensitivity}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Delay < 0 {
		return fmt.Errorf("event %q has negative delay %v", raw.Type, raw.Delay)
	}
	if raw.Button == "" && (raw.Type == EventMouseDown || raw.Type == EventMouseUp) {
		raw.Button = "left"
	}
	*e = Event(raw)
	return nil
}

// Known reports whether the engine has a handler for this event type
func (e Event) Known() bool {
	switch e.Type {
	case EventMouseRotation, EventMouseDown, EventMouseUp, EventKeyDown, EventKeyUp:
		return true
	}
	return false
}

// Rotation converts a mouse_rotation event into a relative pixel offset.
// ok is false for an unknown direction.
func (e Event) Rotation() (dx, dy int, ok bool) {
	sensitivity := e.Sensitivity
	if sensitivity == 0 {
		sensitivity = DefaultSensitivity
	}
	pixels := int(e.Angle * sensitivity)

	switch strings.ToLower(e.Direction) {
	case "up":
		return 0, -pixels, true
	case "down":
		return 0, pixels, true
	case "left":
		return -pixels, 0, true
	case "right":
		return pixels, 0, true
	}
	return 0, 0, false
}

// String is used in logs
func (e Event) String() string {
	switch e.Type {
	case EventKeyDown, EventKeyUp:
		return fmt.Sprintf("%s(%s)+%.3fs", e.Type, e.Key, e.Delay)
	case EventMouseDown, EventMouseUp:
		return fmt.Sprintf("%s(%s)+%.3fs", e.Type, e.Button, e.Delay)
	case EventMouseRotation:
		return fmt.Sprintf("%s(%s %.1f)+%.3fs", e.Type, e.Direction, e.Angle, e.Delay)
	}
	return fmt.Sprintf("%s+%.3fs", e.Type, e.Delay)
}

// Sequence is an ordered, immutable list of recorded events
type Sequence []Event

// Duration returns the summed relative delays in seconds
func (s Sequence) Duration() float64 {
	total := 0.0
	for _, e := range s {
		total += e.Delay
	}
	return total
}
