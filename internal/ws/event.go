// Package ws provides the per-user websocket connection registry and
// the real-time event envelope.
package ws

import "encoding/json"

// EventType identifies a real-time envelope.
type EventType string

const (
	// EventMessage carries a newly persisted chat message.
	EventMessage EventType = "message"
	// EventTyping is an ephemeral typing indicator; never persisted.
	EventTyping EventType = "typing"
	// EventRead is a read receipt for a conversation.
	EventRead EventType = "read"
)

// Event is the JSON envelope pushed to clients and accepted from them.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID int64     `json:"conversation_id,omitempty"`
	Payload        any       `json:"payload,omitempty"`
}

// ClientEnvelope is the inbound shape read off a client connection.
// Payload stays raw; only recognized types are interpreted.
type ClientEnvelope struct {
	Type           EventType       `json:"type"`
	ConversationID int64           `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}
