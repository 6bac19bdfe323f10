package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/nellx/marketplace-api/pkg/logger"
	"github.com/nellx/marketplace-api/pkg/metrics"
)

const (
	// SubjectPrefix is the prefix for all notification subjects.
	SubjectPrefix = "notify"

	// wildcardSubject matches every user notification subject.
	wildcardSubject = SubjectPrefix + ".user.*"
)

// UserSubject returns the subject notifications for a user are
// published on.
func UserSubject(userID int64) string {
	return fmt.Sprintf("%s.user.%d", SubjectPrefix, userID)
}

// Notification is the wire payload handed from the API to relay workers.
type Notification struct {
	UserID    int64     `json:"user_id"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Connect establishes a NATS connection with unlimited reconnects.
func Connect(url, token string, log *logger.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSPublisher hands notifications off to relay workers over NATS.
// Publishing is fire-and-forget: a worker being down just means the
// notification is dropped, which best-effort permits.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *logger.Logger
}

// NewNATSPublisher creates a NATS-backed notifier.
func NewNATSPublisher(conn *nats.Conn, log *logger.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, logger: log}
}

// Notify publishes the summary on the user's subject.
func (p *NATSPublisher) Notify(ctx context.Context, userID int64, summary string) error {
	data, err := json.Marshal(Notification{
		UserID:    userID,
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := p.conn.Publish(UserSubject(userID), data); err != nil {
		metrics.RecordNotification("nats", "error")
		return fmt.Errorf("%w: %v", ErrRelayUnavailable, err)
	}
	metrics.RecordNotification("nats", "ok")
	return nil
}

// Relay consumes notification events and forwards them to a terminal
// notifier (the Telegram bot in production). Runs in cmd/relay.
type Relay struct {
	conn     *nats.Conn
	terminal interface {
		Notify(ctx context.Context, userID int64, summary string) error
	}
	logger *logger.Logger
}

// NewRelay creates a relay worker.
func NewRelay(conn *nats.Conn, terminal interface {
	Notify(ctx context.Context, userID int64, summary string) error
}, log *logger.Logger) *Relay {
	return &Relay{conn: conn, terminal: terminal, logger: log}
}

// Run subscribes and blocks until the context is canceled. Handler
// errors are logged, never fatal: dropping a notification is allowed,
// crashing the relay is not.
func (r *Relay) Run(ctx context.Context) error {
	sub, err := r.conn.Subscribe(wildcardSubject, func(msg *nats.Msg) {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("notification handler panicked", zap.Any("panic", rec))
			}
		}()

		var n Notification
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			r.logger.Warn("dropping malformed notification", zap.Error(err))
			return
		}

		handleCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := r.terminal.Notify(handleCtx, n.UserID, n.Summary); err != nil {
			r.logger.Warn("notification delivery failed",
				zap.Int64("user_id", n.UserID),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	return nil
}
