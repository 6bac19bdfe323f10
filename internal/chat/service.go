// Package chat orchestrates conversation persistence, real-time
// delivery, and the offline notification hand-off.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nellx/marketplace-api/internal/model"
	"github.com/nellx/marketplace-api/internal/store"
	"github.com/nellx/marketplace-api/internal/ws"
	"github.com/nellx/marketplace-api/pkg/logger"
	"github.com/nellx/marketplace-api/pkg/metrics"
)

// ErrSelfConversation rejects starting a conversation with oneself.
var ErrSelfConversation = errors.New("cannot start a conversation with yourself")

// Registry is the live-connection surface the service needs. Satisfied
// by *ws.Registry; tests substitute fakes.
type Registry interface {
	IsOnline(userID int64) bool
	Send(userID int64, event ws.Event) bool
}

// Notifier is the offline notification relay. Best-effort: failures are
// logged and swallowed, never propagated to the sender.
type Notifier interface {
	Notify(ctx context.Context, userID int64, summary string) error
}

// ListingDirectory is the narrow slice of the listing catalog the chat
// core consumes. Absence of a listing never breaks conversation
// creation.
type ListingDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Title(ctx context.Context, id int64) (string, error)
}

// Service composes the conversation store with the connection registry
// and offline relay. Every method mutates the store first and attempts
// delivery second: persistence is the durability boundary, delivery is
// best-effort.
type Service struct {
	store    *store.ChatStore
	users    *store.UserStore
	listings ListingDirectory
	registry Registry
	notifier Notifier
	logger   *logger.Logger

	notifyTimeout time.Duration
}

// NewService creates the chat service.
func NewService(
	chatStore *store.ChatStore,
	users *store.UserStore,
	listings ListingDirectory,
	registry Registry,
	notifier Notifier,
	log *logger.Logger,
	notifyTimeout time.Duration,
) *Service {
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}
	return &Service{
		store:         chatStore,
		users:         users,
		listings:      listings,
		registry:      registry,
		notifier:      notifier,
		logger:        log,
		notifyTimeout: notifyTimeout,
	}
}

// StartConversation opens (or reopens) the conversation with the
// recipient and optionally posts the first message.
func (s *Service) StartConversation(ctx context.Context, userID int64, req model.StartConversationRequest) (*model.Conversation, error) {
	if req.RecipientID == userID {
		return nil, ErrSelfConversation
	}
	if _, err := s.users.ByID(ctx, req.RecipientID); err != nil {
		return nil, err
	}

	// The listing reference is only a label; if it is gone, drop it.
	listingID := req.ListingID
	if listingID != nil {
		exists, err := s.listings.Exists(ctx, *listingID)
		if err != nil || !exists {
			listingID = nil
		}
	}

	conv, err := s.store.GetOrCreate(ctx, userID, req.RecipientID, listingID)
	if err != nil {
		return nil, err
	}

	if req.InitialMessage != "" {
		if _, err := s.SendMessage(ctx, conv.ID, userID, model.MessageCreate{Content: req.InitialMessage}); err != nil {
			return nil, err
		}
		// Reload so the caller sees the denormalized preview.
		conv, err = s.store.Get(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
	}
	return conv, nil
}

// SendMessage persists the message, then delivers it to the recipient's
// live connections or, when nothing is live, hands a summary to the
// offline relay. Delivery failure never rolls back the persisted write.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID int64, in model.MessageCreate) (*model.Message, error) {
	conv, err := s.store.GetForUser(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	msg, err := s.store.AppendMessage(ctx, conversationID, senderID, in)
	if err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(msg.Type)).Inc()

	recipient := conv.OtherUserID(senderID)
	delivered := false
	if s.registry.IsOnline(recipient) {
		delivered = s.registry.Send(recipient, ws.Event{
			Type:           ws.EventMessage,
			ConversationID: conversationID,
			Payload:        model.NewMessageResponse(msg),
		})
	}
	if !delivered {
		s.notifyOffline(recipient, senderID, msg)
	}
	return msg, nil
}

// MarkAsRead flips unread messages and counters, then fans a read
// receipt to the other participant if they are online. Read receipts
// have no offline fallback: they are a UX nicety, not a correctness
// notification.
func (s *Service) MarkAsRead(ctx context.Context, conversationID, readerID int64) error {
	conv, err := s.store.GetForUser(ctx, conversationID, readerID)
	if err != nil {
		return err
	}

	updated, err := s.store.MarkRead(ctx, conversationID, readerID)
	if err != nil {
		return err
	}
	if updated == 0 {
		return nil
	}

	other := conv.OtherUserID(readerID)
	if s.registry.IsOnline(other) {
		s.registry.Send(other, ws.Event{
			Type:           ws.EventRead,
			ConversationID: conversationID,
			Payload:        map[string]any{"reader_id": readerID, "count": updated},
		})
	}
	return nil
}

// Typing relays an ephemeral typing indicator to the other participant.
// Pure pass-through fan-out, no persisted state.
func (s *Service) Typing(ctx context.Context, conversationID, userID int64) error {
	conv, err := s.store.GetForUser(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	other := conv.OtherUserID(userID)
	if s.registry.IsOnline(other) {
		s.registry.Send(other, ws.Event{
			Type:           ws.EventTyping,
			ConversationID: conversationID,
			Payload:        map[string]any{"user_id": userID},
		})
	}
	return nil
}

// DeleteMessage soft-deletes one of the caller's own messages. The
// denormalized conversation preview is left as is; it reflects history,
// not current visibility.
func (s *Service) DeleteMessage(ctx context.Context, messageID, userID int64) error {
	return s.store.SoftDeleteMessage(ctx, messageID, userID)
}

// GetMessages returns a chronological page of messages for a
// participant.
func (s *Service) GetMessages(ctx context.Context, conversationID, requesterID int64, limit int, beforeID int64) ([]model.Message, error) {
	return s.store.Messages(ctx, conversationID, requesterID, limit, beforeID)
}

// GetConversation returns a conversation for a participant.
func (s *Service) GetConversation(ctx context.Context, conversationID, userID int64) (*model.Conversation, error) {
	return s.store.GetForUser(ctx, conversationID, userID)
}

// SetBlocked toggles the block flag for the caller.
func (s *Service) SetBlocked(ctx context.Context, conversationID, userID int64, blocked bool) (*model.Conversation, error) {
	return s.store.SetBlocked(ctx, conversationID, userID, blocked)
}

// TotalUnread counts conversations awaiting the user's attention. Always
// read fresh from the store; presence state is never a substitute.
func (s *Service) TotalUnread(ctx context.Context, userID int64) (int64, error) {
	return s.store.TotalUnread(ctx, userID)
}

// Inbox assembles the user's conversation list with the other
// participant's profile, the listing label, and live presence.
func (s *Service) Inbox(ctx context.Context, userID int64) ([]model.ConversationResponse, error) {
	convs, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	otherIDs := make([]int64, 0, len(convs))
	for i := range convs {
		otherIDs = append(otherIDs, convs[i].OtherUserID(userID))
	}
	profiles, err := s.users.ByIDs(ctx, otherIDs)
	if err != nil {
		return nil, err
	}

	out := make([]model.ConversationResponse, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		otherID := conv.OtherUserID(userID)

		participant := model.Participant{ID: otherID, IsOnline: s.registry.IsOnline(otherID)}
		if u, ok := profiles[otherID]; ok {
			participant.Nickname = u.Nickname
			participant.Name = u.Name
			participant.AvatarURL = u.AvatarURL
		}

		resp := model.ConversationResponse{
			ID:            conv.ID,
			OtherUser:     participant,
			ListingID:     conv.ListingID,
			LastMessage:   conv.LastMessageText,
			LastMessageAt: conv.LastMessageAt,
			UnreadCount:   conv.UnreadCountFor(userID),
			IsBlocked:     conv.IsBlocked,
		}
		if conv.ListingID != nil {
			if title, err := s.listings.Title(ctx, *conv.ListingID); err == nil {
				resp.ListingTitle = title
			}
		}
		out = append(out, resp)
	}
	return out, nil
}

// notifyOffline hands the message off to the relay on a detached
// goroutine. Panics are caught and relay errors logged; nothing ever
// reaches the sender's request path.
func (s *Service) notifyOffline(recipientID, senderID int64, msg *model.Message) {
	if s.notifier == nil {
		return
	}
	timeout := s.notifyTimeout
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("notification relay panicked", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		summary := s.summary(ctx, senderID, msg)
		if err := s.notifier.Notify(ctx, recipientID, summary); err != nil {
			s.logger.Warn("offline notification failed",
				zap.Int64("recipient_id", recipientID),
				zap.Error(err),
			)
		}
	}()
}

func (s *Service) summary(ctx context.Context, senderID int64, msg *model.Message) string {
	sender := "Someone"
	if u, err := s.users.ByID(ctx, senderID); err == nil {
		if u.Name != "" {
			sender = u.Name
		} else {
			sender = u.Nickname
		}
	}
	return fmt.Sprintf("New message from %s: %s", sender, msg.Preview())
}
