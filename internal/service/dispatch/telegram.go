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

const telegramAPIBase = "https://api.telegram.org"

// Telegram delivers messages through the Bot API. Messages with an image use
// sendPhoto with the text as caption; plain messages use sendMessage.
type Telegram struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegram creates a Telegram channel. client may be nil to use the
// default.
func NewTelegram(botToken, chatID string, client *http.Client) *Telegram {
	if client == nil {
		client = http.DefaultClient
	}
	return &Telegram{
		apiBase:  telegramAPIBase,
		botToken: botToken,
		chatID:   chatID,
		client:   client,
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Deliver(ctx context.Context, msg models.DeliveryMessage) error {
	method := "sendMessage"
	payload := map[string]string{"chat_id": t.chatID, "text": msg.Text}
	if msg.ImageURL != "" {
		method = "sendPhoto"
		payload = map[string]string{"chat_id": t.chatID, "photo": msg.ImageURL, "caption": msg.Text}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.apiBase, t.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post telegram api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Status: resp.StatusCode, Body: string(snippet)}
	}
	return nil
}
