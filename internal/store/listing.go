package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nellx/marketplace-api/internal/model"
)

// ListingStore handles listings and their images.
type ListingStore struct {
	db *gorm.DB
}

// NewListingStore creates a listing store.
func NewListingStore(db *gorm.DB) *ListingStore {
	return &ListingStore{db: db}
}

// Create inserts a listing with its image rows.
func (s *ListingStore) Create(ctx context.Context, ownerID int64, req model.ListingCreate) (*model.Listing, error) {
	if req.Type == "" {
		req.Type = model.ListingTypeSell
	}
	if req.Currency == "" {
		req.Currency = "UZS"
	}
	negotiable := true
	if req.IsNegotiable != nil {
		negotiable = *req.IsNegotiable
	}

	now := time.Now().UTC()
	listing := &model.Listing{
		OwnerID:      ownerID,
		CategoryID:   req.CategoryID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		Status:       model.ListingStatusActive,
		Price:        req.Price,
		Currency:     req.Currency,
		IsNegotiable: negotiable,
		Location:     req.Location,
		City:         req.City,
		Attributes:   datatypes.JSONMap(req.Attributes),
		BumpedAt:     now,
	}
	for i, url := range req.ImageURLs {
		listing.Images = append(listing.Images, model.ListingImage{URL: url, SortOrder: i})
	}

	if err := s.db.WithContext(ctx).Create(listing).Error; err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	return listing, nil
}

// ByID returns a listing with images preloaded.
func (s *ListingStore) ByID(ctx context.Context, id int64) (*model.Listing, error) {
	var listing model.Listing
	err := s.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		First(&listing, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &listing, nil
}

// List returns a filtered page of listings. Boosted listings sort first,
// then by bump time.
func (s *ListingStore) List(ctx context.Context, filter model.ListingFilter) (*model.ListListingsResponse, error) {
	q := s.db.WithContext(ctx).Model(&model.Listing{})

	if filter.OwnerID != nil {
		q = q.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.City != "" {
		q = q.Where("city = ?", filter.City)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		q = q.Where("title LIKE ? OR description LIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var listings []model.Listing
	err := q.Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Order("is_boosted DESC, bumped_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}

	return &model.ListListingsResponse{
		Listings: listings,
		Total:    total,
		HasMore:  int64(filter.Offset+len(listings)) < total,
	}, nil
}

// Update applies non-nil fields; only the owner may update.
func (s *ListingStore) Update(ctx context.Context, id, ownerID int64, req model.ListingUpdate) (*model.Listing, error) {
	listing, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != ownerID {
		return nil, ErrNotParticipant
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Currency != nil {
		updates["currency"] = *req.Currency
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.City != nil {
		updates["city"] = *req.City
	}
	if req.Attributes != nil {
		updates["attributes"] = datatypes.JSONMap(req.Attributes)
	}
	if len(updates) == 0 {
		return listing, nil
	}
	if err := s.db.WithContext(ctx).Model(listing).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}
	return s.ByID(ctx, id)
}

// Delete archives a listing (no hard delete).
func (s *ListingStore) Delete(ctx context.Context, id, ownerID int64) error {
	listing, err := s.ByID(ctx, id)
	if err != nil {
		return err
	}
	if listing.OwnerID != ownerID {
		return ErrNotParticipant
	}
	return s.db.WithContext(ctx).Model(listing).
		Update("status", model.ListingStatusArchived).Error
}

// IncrementViews bumps the denormalized view counter.
func (s *ListingStore) IncrementViews(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Model(&model.Listing{}).
		Where("id = ?", id).
		Update("views_count", gorm.Expr("views_count + 1")).Error
}

// Exists reports whether a listing row exists. Used by the chat service
// to decide whether to attach a listing label to a conversation; absence
// never blocks conversation creation.
func (s *ListingStore) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Listing{}).
		Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Title returns a listing's title, or "" when the listing is gone.
func (s *ListingStore) Title(ctx context.Context, id int64) (string, error) {
	var listing model.Listing
	err := s.db.WithContext(ctx).Select("title").First(&listing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return listing.Title, nil
}
