package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"jordanella.com/escort-bot/internal/events"
)

func TestDiscordWebhook(t *testing.T) {
	var got discordgo.MessageEmbed
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		var payload struct {
			Embeds []discordgo.MessageEmbed `json:"embeds"`
		}
		if err := json.Unmarshal([]byte(r.FormValue("payload_json")), &payload); err != nil || len(payload.Embeds) != 1 {
			t.Errorf("bad payload %q: %v", r.FormValue("payload_json"), err)
		} else {
			got = payload.Embeds[0]
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := NewDiscordWebhook(server.URL).Send(context.Background(), Message{
		Title: "Task puzzle stopped",
		Lines: []string{"solve path missing"},
		Level: LevelError,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got.Title != "Task puzzle stopped" || got.Description != "solve path missing" || got.Color != colorError {
		t.Errorf("unexpected embed %+v", got)
	}
}

func TestDiscordWebhookRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown webhook", http.StatusNotFound)
	}))
	defer server.Close()

	err := NewDiscordWebhook(server.URL).Send(context.Background(), Message{Title: "x"})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected 404 error, got %v", err)
	}
}

func TestTelegram(t *testing.T) {
	var mu sync.Mutex
	var chatID, text string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Escort","username":"escort_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			r.ParseForm()
			mu.Lock()
			chatID, text = r.FormValue("chat_id"), r.FormValue("text")
			mu.Unlock()
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	tg, err := newTelegram("token", server.URL+"/bot%s/%s", 42, time.Millisecond)
	if err != nil {
		t.Fatalf("newTelegram failed: %v", err)
	}
	if err := tg.Send(context.Background(), Message{Title: "Escort run finished", Lines: []string{"Rounds completed: 3"}}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if chatID != "42" || text != "Escort run finished\nRounds completed: 3" {
		t.Errorf("sent chat=%q text=%q", chatID, text)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tg.Send(ctx, Message{Title: "late"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func TestSubscriber(t *testing.T) {
	bus := events.NewEventBus(8)
	rec := &recordingNotifier{}
	sub := NewSubscriber(bus, rec, false)

	var beeps []Level
	sub.beep = func(l Level) { beeps = append(beeps, l) }

	bus.Publish(events.NewRunTerminatedEvent("run", 3, 1, 125*time.Second))
	bus.Publish(events.NewTaskFailedEvent("puzzle", errors.New("solve path missing")))
	bus.Publish(events.NewRoundCompletedEvent("run", 4, 3, time.Minute))
	bus.Stop()
	sub.Close()

	if len(beeps) != 2 || beeps[0] != LevelInfo || beeps[1] != LevelError {
		t.Errorf("beeps = %v", beeps)
	}

	byTitle := map[string]Message{}
	for _, m := range rec.msgs {
		byTitle[m.Title] = m
	}
	if len(byTitle) != 2 {
		t.Fatalf("got %d messages: %+v", len(rec.msgs), rec.msgs)
	}
	done := byTitle["Escort run finished"]
	want := "Escort run finished\nRounds completed: 3\nFailed attempts: 1\nElapsed: 00:02:05"
	if done.Text() != want {
		t.Errorf("termination text = %q", done.Text())
	}
	failed := byTitle["Task puzzle stopped"]
	if failed.Level != LevelError || failed.Text() != "Task puzzle stopped\nsolve path missing" {
		t.Errorf("failure message = %+v", failed)
	}
}

func TestMulti(t *testing.T) {
	ok := &recordingNotifier{}
	bad := &recordingNotifier{err: errors.New("offline")}
	err := Multi{bad, ok}.Send(context.Background(), Message{Title: "x"})
	if err == nil || err.Error() != "recording: offline" {
		t.Errorf("Send = %v", err)
	}
	if len(ok.msgs) != 1 {
		t.Error("later notifiers should still be called")
	}
}
