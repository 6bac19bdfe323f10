// Package notify delivers best-effort out-of-band notifications to
// users with no live connection. The durable record of a message is the
// conversation store; everything here is at-most-once.
package notify

import (
	"context"
	"errors"
)

// ErrRelayUnavailable means the relay channel could not accept the
// notification. Logged and swallowed by callers, never propagated.
var ErrRelayUnavailable = errors.New("notification relay unavailable")

// ErrNoTelegramAccount means the user has no linked Telegram chat to
// deliver to.
var ErrNoTelegramAccount = errors.New("user has no linked telegram account")

// Noop is the notifier used when no relay channel is configured.
type Noop struct{}

// Notify drops the notification.
func (Noop) Notify(ctx context.Context, userID int64, summary string) error {
	return nil
}
