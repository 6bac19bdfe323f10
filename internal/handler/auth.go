package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/nellx/marketplace-api/internal/auth"
	"github.com/nellx/marketplace-api/internal/middleware"
	"github.com/nellx/marketplace-api/internal/model"
	"github.com/nellx/marketplace-api/internal/store"
	"github.com/nellx/marketplace-api/pkg/logger"
)

// AuthHandler handles registration and login endpoints.
type AuthHandler struct {
	service *auth.Service
	users   *store.UserStore
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *auth.Service, users *store.UserStore, log *logger.Logger) *AuthHandler {
	return &AuthHandler{service: svc, users: users, logger: log}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Nickname = strings.ToLower(strings.TrimSpace(req.Nickname))

	if err := middleware.ValidateNickname(req.Nickname); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.logger.Warn("registration failed", zap.String("nickname", req.Nickname), zap.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, token)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Nickname = strings.ToLower(strings.TrimSpace(req.Nickname))

	token, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.users.ByID(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
