package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/nellx/marketplace-api/internal/store"
	"github.com/nellx/marketplace-api/pkg/logger"
	"github.com/nellx/marketplace-api/pkg/metrics"
)

// Telegram delivers notifications through the Telegram Bot API to users
// with a linked Telegram account.
type Telegram struct {
	client *resty.Client
	token  string
	users  *store.UserStore
	logger *logger.Logger
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(apiBase, token string, users *store.UserStore, log *logger.Logger) *Telegram {
	client := resty.New().
		SetBaseURL(apiBase).
		SetTimeout(5 * time.Second).
		SetRetryCount(1)
	return &Telegram{
		client: client,
		token:  token,
		users:  users,
		logger: log,
	}
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Notify sends the summary to the user's Telegram chat.
func (t *Telegram) Notify(ctx context.Context, userID int64, summary string) error {
	user, err := t.users.ByID(ctx, userID)
	if err != nil {
		metrics.RecordNotification("telegram", "error")
		return fmt.Errorf("failed to resolve notification target: %w", err)
	}
	if user.TelegramID == nil {
		metrics.RecordNotification("telegram", "skipped")
		return ErrNoTelegramAccount
	}

	var result sendMessageResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{ChatID: *user.TelegramID, Text: summary}).
		SetResult(&result).
		Post(fmt.Sprintf("/bot%s/sendMessage", t.token))
	if err != nil {
		metrics.RecordNotification("telegram", "error")
		return fmt.Errorf("%w: %v", ErrRelayUnavailable, err)
	}
	if resp.IsError() || !result.OK {
		metrics.RecordNotification("telegram", "error")
		return fmt.Errorf("%w: telegram api status %d: %s", ErrRelayUnavailable, resp.StatusCode(), result.Description)
	}

	metrics.RecordNotification("telegram", "ok")
	t.logger.Debug("telegram notification delivered", zap.Int64("user_id", userID))
	return nil
}
