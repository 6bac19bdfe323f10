package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nellx/marketplace-api/internal/model"
	"github.com/nellx/marketplace-api/pkg/logger"
	"github.com/nellx/marketplace-api/pkg/metrics"
)

// ChatStore owns the conversations and messages ledger: canonical
// ordering, unread counters, and block flags.
type ChatStore struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewChatStore creates a chat store.
func NewChatStore(db *gorm.DB, log *logger.Logger) *ChatStore {
	return &ChatStore{db: db, logger: log}
}

// canonicalPair orders a participant pair so the lower id is first.
func canonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// GetOrCreate returns the unique conversation for an unordered user
// pair, creating it if absent.
//
// Safe under concurrent first contact from both directions: the insert
// runs with ON CONFLICT DO NOTHING against the canonical-pair unique
// index, and the loser of the race re-reads the winner's row.
func (s *ChatStore) GetOrCreate(ctx context.Context, userA, userB int64, listingID *int64) (*model.Conversation, error) {
	u1, u2 := canonicalPair(userA, userB)

	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}

	conv = model.Conversation{
		User1ID:       u1,
		User2ID:       u2,
		ListingID:     listingID,
		LastMessageAt: time.Now().UTC(),
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&conv)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		metrics.ConversationsTotal.Inc()
	}
	if res.RowsAffected == 0 {
		// Lost the race; the other direction's insert won.
		if err := s.db.WithContext(ctx).
			Where("user1_id = ? AND user2_id = ?", u1, u2).
			First(&conv).Error; err != nil {
			return nil, fmt.Errorf("failed to reread conversation after conflict: %w", err)
		}
	}
	return &conv, nil
}

// Get returns a conversation by id.
func (s *ChatStore) Get(ctx context.Context, conversationID int64) (*model.Conversation, error) {
	var conv model.Conversation
	if err := s.db.WithContext(ctx).First(&conv, conversationID).Error; err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// GetForUser returns a conversation only if userID is a participant.
func (s *ChatStore) GetForUser(ctx context.Context, conversationID, userID int64) (*model.Conversation, error) {
	conv, err := s.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// AppendMessage inserts a message and, in the same transaction, bumps
// the other participant's unread counter and refreshes the denormalized
// preview fields. Partial application is a correctness bug, hence the
// single transaction.
func (s *ChatStore) AppendMessage(ctx context.Context, conversationID, senderID int64, in model.MessageCreate) (*model.Message, error) {
	if in.Type == "" {
		in.Type = model.MessageTypeText
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("unknown message type %q", in.Type)
	}

	var msg *model.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv model.Conversation
		if err := tx.First(&conv, conversationID).Error; err != nil {
			return translate(err)
		}
		if !conv.HasParticipant(senderID) {
			return ErrNotParticipant
		}
		if conv.IsBlocked {
			return ErrConversationBlocked
		}

		now := time.Now().UTC()
		msg = &model.Message{
			ConversationID: conversationID,
			SenderID:       senderID,
			Content:        in.Content,
			ImageURL:       in.ImageURL,
			Type:           in.Type,
			CreatedAt:      now,
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		unreadColumn := "unread_count_user2"
		if conv.User2ID == senderID {
			unreadColumn = "unread_count_user1"
		}
		updates := map[string]any{
			"last_message_text": msg.Preview(),
			"last_message_at":   now,
			"last_sender_id":    senderID,
			unreadColumn:        gorm.Expr(unreadColumn+" + ?", 1),
		}
		if err := tx.Model(&model.Conversation{}).
			Where("id = ?", conversationID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkRead flips the read flag on every unread message not sent by the
// reader and zeroes the reader's unread counter, atomically. Returns
// the number of messages transitioned.
func (s *ChatStore) MarkRead(ctx context.Context, conversationID, readerID int64) (int64, error) {
	var updated int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv model.Conversation
		if err := tx.First(&conv, conversationID).Error; err != nil {
			return translate(err)
		}
		if !conv.HasParticipant(readerID) {
			return ErrNotParticipant
		}

		now := time.Now().UTC()
		res := tx.Model(&model.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
			Updates(map[string]any{"is_read": true, "read_at": now})
		if res.Error != nil {
			return fmt.Errorf("failed to mark messages read: %w", res.Error)
		}
		updated = res.RowsAffected

		unreadColumn := "unread_count_user1"
		if conv.User2ID == readerID {
			unreadColumn = "unread_count_user2"
		}
		if err := tx.Model(&model.Conversation{}).
			Where("id = ?", conversationID).
			Update(unreadColumn, 0).Error; err != nil {
			return fmt.Errorf("failed to reset unread counter: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// ListForUser returns the user's inbox, most recent activity first.
func (s *ChatStore) ListForUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := s.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// Messages returns a page of non-deleted messages in chronological
// order. Paging walks backwards: pass the oldest previously seen id as
// beforeID to fetch the page before it.
func (s *ChatStore) Messages(ctx context.Context, conversationID, requesterID int64, limit int, beforeID int64) ([]model.Message, error) {
	if _, err := s.GetForUser(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	q := s.db.WithContext(ctx).
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var msgs []model.Message
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	// Fetched newest-first; reverse for display.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// TotalUnread counts conversations with unread activity for the user,
// not individual messages. The badge reads "N conversations need
// attention".
func (s *ChatStore) TotalUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("(user1_id = ? AND unread_count_user1 > 0) OR (user2_id = ? AND unread_count_user2 > 0)", userID, userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread conversations: %w", err)
	}
	return count, nil
}

// SetBlocked toggles the block flag. Idempotent; while blocked,
// AppendMessage fails for both participants.
func (s *ChatStore) SetBlocked(ctx context.Context, conversationID, byUserID int64, blocked bool) (*model.Conversation, error) {
	conv, err := s.GetForUser(ctx, conversationID, byUserID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"is_blocked": blocked}
	if blocked {
		updates["blocked_by"] = byUserID
	} else {
		updates["blocked_by"] = nil
	}
	if err := s.db.WithContext(ctx).Model(conv).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update block flag: %w", err)
	}
	conv.IsBlocked = blocked
	if blocked {
		conv.BlockedBy = &byUserID
	} else {
		conv.BlockedBy = nil
	}
	return conv, nil
}

// SoftDeleteMessage marks a message deleted. Only the sender may delete.
func (s *ChatStore) SoftDeleteMessage(ctx context.Context, messageID, requesterID int64) error {
	var msg model.Message
	if err := s.db.WithContext(ctx).First(&msg, messageID).Error; err != nil {
		return translate(err)
	}
	if msg.SenderID != requesterID {
		return ErrNotParticipant
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&msg).
		Updates(map[string]any{"is_deleted": true, "deleted_at": now}).Error
}
