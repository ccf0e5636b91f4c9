package telegram_notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jdelaire/scanrelay/core"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	parseMode      = "Markdown"
)

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Notifier sends chat replies via the Telegram Bot API.
type Notifier struct {
	botToken string
	client   *http.Client
	baseURL  string
	logger   *slog.Logger
}

// New creates a Telegram notifier. An empty botToken is allowed: Send then
// logs the message and returns core.ErrDeliverySkipped.
func New(botToken string, logger *slog.Logger) *Notifier {
	return &Notifier{
		botToken: botToken,
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  DefaultBaseURL,
		logger:   logger,
	}
}

func (n *Notifier) Name() string { return "telegram" }

func (n *Notifier) Send(ctx context.Context, notif core.Notification) error {
	if n.botToken == "" {
		n.logger.Warn("telegram token not set; cannot send message", "chat_id", notif.ChatID, "text", notif.Text)
		return core.ErrDeliverySkipped
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    notif.ChatID,
		Text:      notif.Text,
		ParseMode: parseMode,
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			OK          bool   `json:"ok"`
			Description string `json:"description"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("telegram API error %d: %s", resp.StatusCode, apiErr.Description)
	}

	return nil
}

// WithBaseURL sets a custom base URL (for testing).
func (n *Notifier) WithBaseURL(baseURL string) *Notifier {
	n.baseURL = baseURL
	return n
}
