package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nellx/marketplace-api/internal/model"
)

// UserStore handles account rows.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a user store.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// ByID returns a user by id.
func (s *UserStore) ByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ByNickname returns a user by nickname.
func (s *UserStore) ByNickname(ctx context.Context, nickname string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("nickname = ?", nickname).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ByTelegramID returns a user by linked Telegram account.
func (s *UserStore) ByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ByIDs returns users keyed by id. Missing ids are simply absent.
func (s *UserStore) ByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	out := make(map[int64]*model.User, len(users))
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

// UpdateProfile applies non-nil profile fields.
func (s *UserStore) UpdateProfile(ctx context.Context, id int64, req model.UpdateProfileRequest) (*model.User, error) {
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if req.Language != nil {
		updates["language"] = *req.Language
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to update profile: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.ByID(ctx, id)
}

// TouchLastActive stamps the user's last activity time.
func (s *UserStore) TouchLastActive(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("last_active_at", time.Now().UTC()).Error
}
