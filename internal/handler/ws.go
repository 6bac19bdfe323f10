package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nellx/marketplace-api/internal/chat"
	"github.com/nellx/marketplace-api/internal/middleware"
	"github.com/nellx/marketplace-api/internal/ws"
	"github.com/nellx/marketplace-api/pkg/logger"
	"github.com/nellx/marketplace-api/pkg/metrics"
)

const wsReadLimit = 64 * 1024

// WSHandler upgrades authenticated clients to a websocket session and
// pumps their inbound events into the chat service.
type WSHandler struct {
	service      *chat.Service
	registry     *ws.Registry
	jwtSecret    string
	writeTimeout time.Duration
	pongTimeout  time.Duration
	upgrader     websocket.Upgrader
	logger       *logger.Logger
}

func NewWSHandler(svc *chat.Service, reg *ws.Registry, jwtSecret string, writeTimeout, pongTimeout time.Duration, log *logger.Logger) *WSHandler {
	return &WSHandler{
		service:      svc,
		registry:     reg,
		jwtSecret:    jwtSecret,
		writeTimeout: writeTimeout,
		pongTimeout:  pongTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients cannot set Authorization headers on
			// websocket upgrades, so origins are not restricted here;
			// the token query parameter is the auth boundary.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// Serve handles GET /ws?token=<jwt>
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		// Non-browser clients may use the regular header instead.
		if h := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
			token = h[len("bearer "):]
		}
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}
	userID, _, err := middleware.ParseToken(token, h.jwtSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	conn := ws.NewConn(sock, h.writeTimeout)
	h.registry.Register(userID, conn)
	h.logger.Info("websocket connected", zap.Int64("user_id", userID))

	defer func() {
		h.registry.Unregister(userID, conn)
		conn.Close()
		h.logger.Info("websocket disconnected", zap.Int64("user_id", userID))
	}()

	sock.SetReadLimit(wsReadLimit)
	sock.SetReadDeadline(time.Now().Add(h.pongTimeout))
	sock.SetPongHandler(func(string) error {
		return sock.SetReadDeadline(time.Now().Add(h.pongTimeout))
	})

	// Keepalive: ping ahead of the read deadline so idle but healthy
	// clients are never dropped. WriteControl is safe alongside the
	// registry's data writes.
	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(h.pongTimeout * 8 / 10)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sock.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout)); err != nil {
					return
				}
			case <-pingDone:
				return
			}
		}
	}()

	h.readPump(r, sock, userID)
}

func (h *WSHandler) readPump(r *http.Request, sock *websocket.Conn, userID int64) {
	for {
		var env ws.ClientEnvelope
		if err := sock.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.Int64("user_id", userID), zap.Error(err))
			}
			return
		}
		metrics.WSEventsTotal.WithLabelValues(string(env.Type), "inbound").Inc()

		switch env.Type {
		case ws.EventTyping:
			if err := h.service.Typing(r.Context(), env.ConversationID, userID); err != nil {
				h.logger.Debug("typing relay failed", zap.Int64("conversation_id", env.ConversationID), zap.Error(err))
			}
		case ws.EventRead:
			if err := h.service.MarkAsRead(r.Context(), env.ConversationID, userID); err != nil {
				h.logger.Debug("mark read failed", zap.Int64("conversation_id", env.ConversationID), zap.Error(err))
			}
		default:
			h.logger.Debug("unknown websocket event", zap.Int64("user_id", userID), zap.String("type", string(env.Type)))
		}
	}
}
