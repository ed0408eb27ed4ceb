// Package notify tells the operator when a run ends or a task fails, through
// Discord, Telegram and an audible beep.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Level picks the embed color and the beep sound
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Message is one notification
type Message struct {
	Title string
	Lines []string
	Level Level
}

// Text renders the message as plain text
func (m Message) Text() string {
	if len(m.Lines) == 0 {
		return m.Title
	}
	return m.Title + "\n" + strings.Join(m.Lines, "\n")
}

// Notifier delivers a message to one destination
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Multi sends to every notifier and reports the first failure
type Multi []Notifier

func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, n := range m {
		names[i] = n.Name()
	}
	return strings.Join(names, ",")
}

func (m Multi) Send(ctx context.Context, msg Message) error {
	var first error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil && first == nil {
			first = fmt.Errorf("%s: %w", n.Name(), err)
		}
	}
	return first
}
