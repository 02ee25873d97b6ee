package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"TradeRelay/internal/domain/models"
)

// Discord delivers messages to a Discord webhook. Images ride along as an
// embed so text and chart arrive as one post.
type Discord struct {
	webhookURL string
	client     *http.Client
}

// NewDiscord creates a Discord channel. client may be nil to use the default.
func NewDiscord(webhookURL string, client *http.Client) *Discord {
	if client == nil {
		client = http.DefaultClient
	}
	return &Discord{webhookURL: webhookURL, client: client}
}

func (d *Discord) Name() string { return "discord" }

type discordEmbed struct {
	Image struct {
		URL string `json:"url"`
	} `json:"image"`
}

type discordPayload struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

func (d *Discord) Deliver(ctx context.Context, msg models.DeliveryMessage) error {
	payload := discordPayload{Content: msg.Text}
	if msg.ImageURL != "" {
		var embed discordEmbed
		embed.Image.URL = msg.ImageURL
		payload.Embeds = []discordEmbed{embed}
	}

	body, err := json.Marshal(&payload)
	if err != nil {
		return fmt.Errorf("encode discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, Body: string(snippet)}
	}
	return nil
}
