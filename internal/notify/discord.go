package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	colorInfo  = 0x2ecc71
	colorError = 0xe74c3c
)

// Discord posts embeds either to a webhook or, with a bot token, to a channel
type Discord struct {
	webhookURL string
	client     *http.Client

	session   *discordgo.Session
	channelID string
}

// NewDiscordWebhook posts to a channel webhook
func NewDiscordWebhook(url string) *Discord {
	return &Discord{
		webhookURL: strings.TrimSpace(url),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// NewDiscordBot posts through a bot session
func NewDiscordBot(token, channelID string) (*Discord, error) {
	if channelID == "" {
		return nil, fmt.Errorf("channel ID is required when using a bot token")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	return &Discord{session: session, channelID: channelID}, nil
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, msg Message) error {
	embed := buildEmbed(msg)
	if d.session != nil {
		_, err := d.session.ChannelMessageSendEmbed(d.channelID, embed, discordgo.WithContext(ctx))
		return err
	}
	return d.sendWebhook(ctx, embed)
}

func (d *Discord) sendWebhook(ctx context.Context, embed *discordgo.MessageEmbed) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	payload := struct {
		Embeds []*discordgo.MessageEmbed `json:"embeds"`
	}{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		writer.Close()
		return fmt.Errorf("failed to serialize webhook embed: %w", err)
	}
	if err := writer.WriteField("payload_json", string(payloadJSON)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to prepare webhook payload: %w", err)
	}

	contentType := writer.FormDataContentType()
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, &body)
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

func buildEmbed(msg Message) *discordgo.MessageEmbed {
	color := colorInfo
	if msg.Level == LevelError {
		color = colorError
	}
	return &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: strings.Join(msg.Lines, "\n"),
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}
