package handler

import (
	"encoding/json"
	"net/http"

	"github.com/nellx/marketplace-api/internal/model"
	"github.com/nellx/marketplace-api/internal/store"
	"github.com/nellx/marketplace-api/pkg/logger"
)

// CategoryHandler serves the category tree.
type CategoryHandler struct {
	categories *store.CategoryStore
	logger     *logger.Logger
}

func NewCategoryHandler(categories *store.CategoryStore, log *logger.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, logger: log}
}

// Tree handles GET /api/categories
func (h *CategoryHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.categories.Tree(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// Get handles GET /api/categories/{id}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cat, err := h.categories.ByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// Create handles POST /api/categories (admin only).
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cat model.Category
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if cat.Name == "" || cat.Slug == "" {
		writeError(w, http.StatusBadRequest, "name and slug are required")
		return
	}
	if err := h.categories.Create(r.Context(), &cat); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}
