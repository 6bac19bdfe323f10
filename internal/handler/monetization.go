package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nellx/marketplace-api/internal/middleware"
	"github.com/nellx/marketplace-api/internal/model"
	"github.com/nellx/marketplace-api/internal/store"
	"github.com/nellx/marketplace-api/pkg/logger"
	"github.com/nellx/marketplace-api/pkg/metrics"
)

// MonetizationHandler exposes balance, topup and promotion endpoints.
type MonetizationHandler struct {
	store  *store.MonetizationStore
	logger *logger.Logger
}

func NewMonetizationHandler(st *store.MonetizationStore, log *logger.Logger) *MonetizationHandler {
	return &MonetizationHandler{store: st, logger: log}
}

// Balance handles GET /api/balance
func (h *MonetizationHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.store.Balance(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.BalanceResponse{Balance: balance})
}

// Topup handles POST /api/balance/topup (admin only).
func (h *MonetizationHandler) Topup(w http.ResponseWriter, r *http.Request) {
	var req model.TopupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		userID = id
	}

	tx, err := h.store.Topup(r.Context(), userID, req.Amount, req.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// Boost handles POST /api/listings/boost
func (h *MonetizationHandler) Boost(w http.ResponseWriter, r *http.Request) {
	var req model.BoostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ListingID <= 0 {
		writeError(w, http.StatusBadRequest, "listing_id is required")
		return
	}

	tx, err := h.store.PurchaseBoost(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.BoostsTotal.Inc()
	writeJSON(w, http.StatusCreated, tx)
}

// Bump handles POST /api/listings/{id}/bump
func (h *MonetizationHandler) Bump(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tx, err := h.store.Bump(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// Transactions handles GET /api/balance/transactions
func (h *MonetizationHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	txs, err := h.store.Transactions(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}
