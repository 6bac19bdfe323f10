package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserRole is the authorization role of a user.
type UserRole string

const (
	RoleClient    UserRole = "client"
	RoleExchanger UserRole = "exchanger"
	RoleAdmin     UserRole = "admin"
)

// User is the unified account table for web and Telegram users.
//
// TelegramID is nullable so web-only registration works; when present it
// is what the offline notification relay uses to reach the user.
type User struct {
	ID int64 `gorm:"primaryKey" json:"id"`

	TelegramID   *int64 `gorm:"uniqueIndex" json:"telegram_id,omitempty"`
	Nickname     string `gorm:"size:50;uniqueIndex;not null" json:"nickname"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	Name      string `gorm:"size:100" json:"name,omitempty"`
	Phone     string `gorm:"size:20" json:"phone,omitempty"`
	AvatarURL string `gorm:"size:500" json:"avatar_url,omitempty"`

	Role             UserRole `gorm:"size:20;default:client;index" json:"role"`
	IsSellerVerified bool     `gorm:"not null;default:false" json:"is_seller_verified"`
	IsActive         bool     `gorm:"not null;default:true" json:"is_active"`
	IsBanned         bool     `gorm:"not null;default:false" json:"is_banned"`

	Rating      float64 `gorm:"not null;default:5.0" json:"rating"`
	RatingCount int     `gorm:"not null;default:0" json:"rating_count"`
	DealsCount  int     `gorm:"not null;default:0" json:"deals_count"`

	// Internal currency for paid features (boost, bump, VIP).
	Balance  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	IsVIP    bool            `gorm:"column:is_vip;not null;default:false" json:"is_vip"`
	VIPUntil *time.Time      `gorm:"column:vip_until" json:"vip_until,omitempty"`

	Language string `gorm:"size:5;default:ru" json:"language"`

	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// TableName implements gorm's table naming.
func (User) TableName() string { return "users" }

// RegisterRequest is the request to create an account.
type RegisterRequest struct {
	Nickname   string `json:"nickname"`
	Password   string `json:"password"`
	Name       string `json:"name,omitempty"`
	TelegramID *int64 `json:"telegram_id,omitempty"`
	Language   string `json:"language,omitempty"`
}

// LoginRequest is the request to authenticate.
type LoginRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user,omitempty"`
}

// UpdateProfileRequest is the request to update profile fields.
type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Language  *string `json:"language,omitempty"`
}
