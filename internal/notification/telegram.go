package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"visa-appointment-backend/config"
)

// TelegramSender delivers notifications as Telegram bot messages.
type TelegramSender struct {
	cfg    config.TelegramConfig
	client *http.Client
}

// NewTelegramSender creates the Telegram channel.
func NewTelegramSender(cfg config.TelegramConfig) *TelegramSender {
	return &TelegramSender{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts the message to the Bot API's sendMessage endpoint.
func (t *TelegramSender) Send(ctx context.Context, n Notification) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.APIBase, t.cfg.Token)

	form := url.Values{}
	form.Set("chat_id", t.cfg.ChatID)
	form.Set("text", fmt.Sprintf("%s\n\n%s", n.Title, n.Message))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read telegram response: %w", err)
	}

	var tr telegramResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return fmt.Errorf("failed to decode telegram response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !tr.OK {
		return fmt.Errorf("telegram send rejected (status %d): %s", resp.StatusCode, tr.Description)
	}
	return nil
}
