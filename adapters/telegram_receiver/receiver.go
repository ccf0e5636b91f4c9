package telegram_receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jdelaire/scanrelay/core"
)

const (
	defaultBaseURL  = "https://api.telegram.org"
	longPollTimeout = 30
	httpTimeout     = 35 * time.Second
	errorBackoff    = 5 * time.Second
	allowedUpdates  = `["message","edited_message"]`
)

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Receiver long-polls getUpdates and feeds messages to a handler. It is the
// ingress for deployments that cannot expose the webhook endpoint.
type Receiver struct {
	botToken string
	handler  core.MessageHandler
	logger   *slog.Logger
	client   *http.Client
	baseURL  string
	backoff  time.Duration
	offset   int64
}

// New creates a Telegram receiver.
func New(botToken string, handler core.MessageHandler, logger *slog.Logger) *Receiver {
	return &Receiver{
		botToken: botToken,
		handler:  handler,
		logger:   logger,
		client:   &http.Client{Timeout: httpTimeout},
		baseURL:  defaultBaseURL,
		backoff:  errorBackoff,
	}
}

// WithBaseURL overrides the Telegram API base URL (for testing).
func (r *Receiver) WithBaseURL(url string) *Receiver {
	r.baseURL = url
	return r
}

// WithErrorBackoff overrides the pause after a failed poll.
func (r *Receiver) WithErrorBackoff(d time.Duration) *Receiver {
	r.backoff = d
	return r
}

// Start begins the long-poll loop. Blocks until ctx is cancelled.
func (r *Receiver) Start(ctx context.Context) error {
	r.logger.Info("telegram receiver started")
	for {
		if err := ctx.Err(); err != nil {
			r.logger.Info("telegram receiver stopped")
			return nil
		}

		updates, err := r.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("telegram receiver stopped")
				return nil
			}
			r.logger.Error("poll error", "error", err)
			select {
			case <-time.After(r.backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, u := range updates {
			r.offset = u.UpdateID + 1

			msg, ok := u.Inbound()
			if !ok {
				r.logger.Debug("skipping update without command text", "update_id", u.UpdateID)
				continue
			}
			r.handler(ctx, msg)
		}
	}
}

func (r *Receiver) poll(ctx context.Context) ([]core.Update, error) {
	q := url.Values{}
	q.Set("offset", strconv.FormatInt(r.offset, 10))
	q.Set("timeout", strconv.Itoa(longPollTimeout))
	q.Set("allowed_updates", allowedUpdates)
	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", r.baseURL, r.botToken, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api status: %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !apiResp.OK {
		return nil, fmt.Errorf("api returned ok=false: %s", apiResp.Description)
	}

	var updates []core.Update
	if err := json.Unmarshal(apiResp.Result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}

	return updates, nil
}
