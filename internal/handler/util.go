package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nellx/marketplace-api/internal/auth"
	"github.com/nellx/marketplace-api/internal/chat"
	"github.com/nellx/marketplace-api/internal/store"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeDomainError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, store.ErrConversationBlocked):
		writeError(w, http.StatusForbidden, "conversation is blocked")
	case errors.Is(err, store.ErrInsufficientBalance):
		writeError(w, http.StatusPaymentRequired, "insufficient balance")
	case errors.Is(err, chat.ErrSelfConversation):
		writeError(w, http.StatusBadRequest, "cannot message yourself")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid nickname or password")
	case errors.Is(err, auth.ErrNicknameTaken):
		writeError(w, http.StatusConflict, "nickname already taken")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
