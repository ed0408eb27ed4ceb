package notify

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jordanella.com/escort-bot/internal/logging"
)

const (
	maxRetries  = 3
	retryBase   = 2 * time.Second
	retryGrowth = 2
)

// Telegram sends plain messages to one chat
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects with retries, since the first getMe call against
// api.telegram.org occasionally fails with a connection reset
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	return newTelegram(token, tgbotapi.APIEndpoint, chatID, retryBase)
}

func newTelegram(token, endpoint string, chatID int64, delay time.Duration) (*Telegram, error) {
	logger := logging.NewLogger("Telegram")

	var api *tgbotapi.BotAPI
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		api, err = tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
		if err == nil {
			break
		}
		if attempt < maxRetries {
			logger.WarnWithContext("Telegram API connection failed, retrying", map[string]interface{}{
				"attempt":  attempt,
				"retry_in": delay.String(),
				"error":    err.Error(),
			})
			time.Sleep(delay)
			delay *= retryGrowth
		}
	}
	if err != nil {
		return nil, fmt.Errorf("after %d attempts: %w", maxRetries, err)
	}
	return &Telegram{bot: api, chatID: chatID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Send posts msg as plain text. The library call takes no context, so a
// canceled ctx only prevents the request from starting.
func (t *Telegram) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, msg.Text()))
	return err
}
