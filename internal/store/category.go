package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/nellx/marketplace-api/internal/model"
)

// CategoryStore handles the category tree and its attribute schemas.
type CategoryStore struct {
	db *gorm.DB
}

// NewCategoryStore creates a category store.
func NewCategoryStore(db *gorm.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// Tree returns active root categories with children and attribute
// definitions preloaded, one level deep.
func (s *CategoryStore) Tree(ctx context.Context) ([]model.Category, error) {
	var roots []model.Category
	err := s.db.WithContext(ctx).
		Where("parent_id IS NULL AND is_active = ?", true).
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("sort_order")
		}).
		Preload("Children.Attributes", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Preload("Attributes", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Order("sort_order").
		Find(&roots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load category tree: %w", err)
	}
	return roots, nil
}

// ByID returns one category with its attributes.
func (s *CategoryStore) ByID(ctx context.Context, id int64) (*model.Category, error) {
	var cat model.Category
	err := s.db.WithContext(ctx).
		Preload("Attributes", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		First(&cat, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &cat, nil
}

// Create inserts a category node (admin use).
func (s *CategoryStore) Create(ctx context.Context, cat *model.Category) error {
	if err := s.db.WithContext(ctx).Create(cat).Error; err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}
