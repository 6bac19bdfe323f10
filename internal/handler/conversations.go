package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nellx/marketplace-api/internal/chat"
	"github.com/nellx/marketplace-api/internal/middleware"
	"github.com/nellx/marketplace-api/internal/model"
	"github.com/nellx/marketplace-api/pkg/logger"
)

// ChatHandler handles conversation and message endpoints.
type ChatHandler struct {
	service *chat.Service
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *chat.Service, log *logger.Logger) *ChatHandler {
	return &ChatHandler{service: svc, logger: log}
}

// List handles GET /api/chat/conversations (the inbox).
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	inbox, err := h.service.Inbox(ctx, userID)
	if err != nil {
		h.logger.Error("failed to load inbox", zap.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inbox)
}

// Start handles POST /api/chat/conversations
func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.StartConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RecipientID == 0 {
		writeError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}
	if req.InitialMessage != "" {
		if err := middleware.ValidateMessageContent(req.InitialMessage); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	conv, err := h.service.StartConversation(ctx, userID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// Get handles GET /api/chat/conversations/{id}: the conversation with
// its latest messages, marked read as a side effect (opening a thread
// is reading it).
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID, ok := pathID(w, r)
	if !ok {
		return
	}

	conv, err := h.service.GetConversation(ctx, conversationID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	messages, err := h.service.GetMessages(ctx, conversationID, userID, 50, 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.service.MarkAsRead(ctx, conversationID, userID); err != nil {
		h.logger.Warn("failed to mark conversation read", zap.Error(err))
	}

	out := make([]model.MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, model.NewMessageResponse(&messages[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": conv,
		"messages":     out,
	})
}

// Messages handles GET /api/chat/conversations/{id}/messages with
// before_id paging.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID, ok := pathID(w, r)
	if !ok {
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	var beforeID int64
	if b := r.URL.Query().Get("before_id"); b != "" {
		if parsed, err := strconv.ParseInt(b, 10, 64); err == nil && parsed > 0 {
			beforeID = parsed
		}
	}

	messages, err := h.service.GetMessages(ctx, conversationID, userID, limit, beforeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]model.MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, model.NewMessageResponse(&messages[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Send handles POST /api/chat/conversations/{id}/messages
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req model.MessageCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageURL == "" {
		if err := middleware.ValidateMessageContent(req.Content); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	msg, err := h.service.SendMessage(ctx, conversationID, userID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.NewMessageResponse(msg))
}

// DeleteMessage handles DELETE /api/chat/messages/{id}
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	messageID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteMessage(ctx, messageID, userID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Read handles POST /api/chat/conversations/{id}/read
func (h *ChatHandler) Read(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.MarkAsRead(ctx, conversationID, userID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Unread handles GET /api/chat/unread: the count of conversations with
// unread activity.
func (h *ChatHandler) Unread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	count, err := h.service.TotalUnread(ctx, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread_count": count})
}

// Block handles POST /api/chat/conversations/{id}/block
func (h *ChatHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// Unblock handles POST /api/chat/conversations/{id}/unblock
func (h *ChatHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *ChatHandler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID, ok := pathID(w, r)
	if !ok {
		return
	}

	conv, err := h.service.SetBlocked(ctx, conversationID, userID, blocked)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// pathID parses the {id} URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
