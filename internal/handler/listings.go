package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/nellx/marketplace-api/internal/middleware"
	"github.com/nellx/marketplace-api/internal/model"
	"github.com/nellx/marketplace-api/internal/store"
	"github.com/nellx/marketplace-api/pkg/logger"
	"github.com/nellx/marketplace-api/pkg/metrics"
)

// ListingHandler exposes the listing feed and CRUD endpoints.
type ListingHandler struct {
	listings *store.ListingStore
	logger   *logger.Logger
}

func NewListingHandler(listings *store.ListingStore, log *logger.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, logger: log}
}

// List handles GET /api/listings
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListingFilter(r)
	resp, err := h.listings.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Mine handles GET /api/listings/mine
func (h *ListingHandler) Mine(w http.ResponseWriter, r *http.Request) {
	filter := parseListingFilter(r)
	userID := middleware.GetUserID(r.Context())
	filter.OwnerID = &userID
	filter.Status = nil // owners see archived and moderated listings too

	resp, err := h.listings.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/listings/{id}
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	listing, err := h.listings.ByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.listings.IncrementViews(r.Context(), id); err != nil {
		h.logger.Warn("view counter update failed", zap.Int64("listing_id", id), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, listing)
}

// Create handles POST /api/listings
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ListingCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateListingTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	listing, err := h.listings.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.ListingsTotal.Inc()
	writeJSON(w, http.StatusCreated, listing)
}

// Update handles PATCH /api/listings/{id}
func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req model.ListingUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title != nil {
		if err := middleware.ValidateListingTitle(*req.Title); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	listing, err := h.listings.Update(r.Context(), id, middleware.GetUserID(r.Context()), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// Delete handles DELETE /api/listings/{id}
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.listings.Delete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

func parseListingFilter(r *http.Request) model.ListingFilter {
	q := r.URL.Query()
	filter := model.ListingFilter{
		City:  q.Get("city"),
		Query: q.Get("q"),
		Limit: 20,
	}

	active := model.ListingStatusActive
	filter.Status = &active

	if v := q.Get("category_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.CategoryID = &id
		}
	}
	if v := q.Get("type"); v != "" {
		t := model.ListingType(v)
		filter.Type = &t
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}
	return filter
}
