// Package model defines data structures for the marketplace.
package model

import (
	"time"
)

// MessageType is a closed set of message variants.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeSystem MessageType = "system"
)

// Valid reports whether t is a recognized message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeSystem:
		return true
	}
	return false
}

// PreviewLength is the maximum length of the denormalized last-message
// preview stored on a conversation.
const PreviewLength = 200

// Conversation is a chat thread between exactly two users.
//
// Participant slots are canonically ordered: User1ID < User2ID always.
// The unique index on the pair is what deduplicates conversations under
// concurrent first contact.
type Conversation struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	User1ID int64 `gorm:"not null;uniqueIndex:idx_conversation_users,priority:1;index:idx_conversation_inbox1,priority:1" json:"user1_id"`
	User2ID int64 `gorm:"not null;uniqueIndex:idx_conversation_users,priority:2;index:idx_conversation_inbox2,priority:1" json:"user2_id"`

	// Optional link to the listing the conversation started from.
	ListingID *int64 `gorm:"index" json:"listing_id,omitempty"`

	// Denormalized for fast inbox loading.
	LastMessageText string    `gorm:"size:200" json:"last_message_text"`
	LastMessageAt   time.Time `gorm:"index:idx_conversation_inbox1,priority:2;index:idx_conversation_inbox2,priority:2" json:"last_message_at"`
	LastSenderID    int64     `json:"last_sender_id"`

	// One unread counter per participant slot.
	UnreadCountUser1 int `gorm:"not null;default:0" json:"unread_count_user1"`
	UnreadCountUser2 int `gorm:"not null;default:0" json:"unread_count_user2"`

	IsBlocked bool   `gorm:"not null;default:false" json:"is_blocked"`
	BlockedBy *int64 `json:"blocked_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName implements gorm's table naming.
func (Conversation) TableName() string { return "conversations" }

// HasParticipant reports whether userID occupies one of the two slots.
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OtherUserID returns the participant that is not userID.
func (c *Conversation) OtherUserID(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// UnreadCountFor returns the unread counter for userID's slot.
func (c *Conversation) UnreadCountFor(userID int64) int {
	if c.User1ID == userID {
		return c.UnreadCountUser1
	}
	return c.UnreadCountUser2
}

// Message is a single entry in a conversation. Immutable once created
// except for the read and soft-delete transitions.
type Message struct {
	ID             int64 `gorm:"primaryKey" json:"id"`
	ConversationID int64 `gorm:"not null;index:idx_messages_conversation,priority:1" json:"conversation_id"`
	SenderID       int64 `gorm:"not null;index" json:"sender_id"`

	Content  string      `gorm:"type:text" json:"content"`
	ImageURL string      `gorm:"size:500" json:"image_url,omitempty"`
	Type     MessageType `gorm:"size:20;not null;default:text" json:"type"`

	IsRead bool       `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	IsDeleted bool       `gorm:"not null;default:false" json:"is_deleted,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_messages_conversation,priority:2" json:"created_at"`
}

// TableName implements gorm's table naming.
func (Message) TableName() string { return "messages" }

// Preview returns the text used for the conversation's denormalized
// last-message field.
func (m *Message) Preview() string {
	text := m.Content
	if text == "" && m.Type == MessageTypeImage {
		text = "[Image]"
	}
	runes := []rune(text)
	if len(runes) > PreviewLength {
		return string(runes[:PreviewLength])
	}
	return text
}

// StartConversationRequest is the request to open (or reopen) a
// conversation with another user.
type StartConversationRequest struct {
	RecipientID    int64  `json:"recipient_id"`
	ListingID      *int64 `json:"listing_id,omitempty"`
	InitialMessage string `json:"initial_message,omitempty"`
}

// MessageCreate is the request to post a message.
type MessageCreate struct {
	Content  string      `json:"content"`
	ImageURL string      `json:"image_url,omitempty"`
	Type     MessageType `json:"type,omitempty"`
}

// Participant describes the other user in a conversation listing.
type Participant struct {
	ID        int64  `json:"id"`
	Nickname  string `json:"nickname"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	IsOnline  bool   `json:"is_online"`
}

// ConversationResponse is one inbox row.
type ConversationResponse struct {
	ID            int64       `json:"id"`
	OtherUser     Participant `json:"other_user"`
	ListingID     *int64      `json:"listing_id,omitempty"`
	ListingTitle  string      `json:"listing_title,omitempty"`
	LastMessage   string      `json:"last_message"`
	LastMessageAt time.Time   `json:"last_message_at"`
	UnreadCount   int         `json:"unread_count"`
	IsBlocked     bool        `json:"is_blocked"`
}

// MessageResponse is one message as shown to a participant.
type MessageResponse struct {
	ID        int64       `json:"id"`
	SenderID  int64       `json:"sender_id"`
	Content   string      `json:"content"`
	ImageURL  string      `json:"image_url,omitempty"`
	Type      MessageType `json:"type"`
	IsRead    bool        `json:"is_read"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewMessageResponse converts a stored message for display.
func NewMessageResponse(m *Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		ImageURL:  m.ImageURL,
		Type:      m.Type,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}
