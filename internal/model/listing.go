package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ListingType is what a listing offers.
type ListingType string

const (
	ListingTypeSell     ListingType = "sell"
	ListingTypeBuy      ListingType = "buy"
	ListingTypeService  ListingType = "service"
	ListingTypeExchange ListingType = "exchange"
)

// ListingStatus is the moderation/lifecycle state of a listing.
type ListingStatus string

const (
	ListingStatusActive     ListingStatus = "active"
	ListingStatusSold       ListingStatus = "sold"
	ListingStatusArchived   ListingStatus = "archived"
	ListingStatusModeration ListingStatus = "moderation"
	ListingStatusRejected   ListingStatus = "rejected"
)

// Listing is a marketplace post: goods, services, or the legacy P2P
// currency exchange offers.
type Listing struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	OwnerID    int64  `gorm:"not null;index" json:"owner_id"`
	CategoryID *int64 `gorm:"index" json:"category_id,omitempty"`

	Title       string        `gorm:"size:200;not null" json:"title"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	Type        ListingType   `gorm:"size:20;default:sell;index" json:"type"`
	Status      ListingStatus `gorm:"size:20;default:active;index" json:"status"`

	Price        decimal.Decimal `gorm:"type:numeric(16,2)" json:"price"`
	Currency     string          `gorm:"size:10;default:UZS" json:"currency"`
	IsNegotiable bool            `gorm:"not null;default:true" json:"is_negotiable"`

	Location string `gorm:"size:200" json:"location,omitempty"`
	City     string `gorm:"size:100;index" json:"city,omitempty"`

	// Category-specific EAV values, e.g. {"size":"XL","brand":"Nike"}.
	Attributes datatypes.JSONMap `json:"attributes,omitempty"`

	ViewsCount     int `gorm:"not null;default:0" json:"views_count"`
	FavoritesCount int `gorm:"not null;default:0" json:"favorites_count"`
	MessagesCount  int `gorm:"not null;default:0" json:"messages_count"`

	IsBoosted    bool       `gorm:"not null;default:false;index" json:"is_boosted"`
	BoostedUntil *time.Time `json:"boosted_until,omitempty"`
	BoostLevel   int        `gorm:"not null;default:0" json:"boost_level"`
	BumpedAt     time.Time  `gorm:"index" json:"bumped_at"`

	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	Images []ListingImage `gorm:"foreignKey:ListingID" json:"images,omitempty"`
}

// TableName implements gorm's table naming.
func (Listing) TableName() string { return "listings" }

// ListingImage is one stored image reference for a listing.
type ListingImage struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ListingID int64     `gorm:"not null;index" json:"listing_id"`
	URL       string    `gorm:"size:500;not null" json:"url"`
	ThumbURL  string    `gorm:"size:500" json:"thumb_url,omitempty"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName implements gorm's table naming.
func (ListingImage) TableName() string { return "listing_images" }

// ListingCreate is the request to create a listing.
type ListingCreate struct {
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Type         ListingType       `json:"type,omitempty"`
	CategoryID   *int64            `json:"category_id,omitempty"`
	Price        decimal.Decimal   `json:"price"`
	Currency     string            `json:"currency,omitempty"`
	IsNegotiable *bool             `json:"is_negotiable,omitempty"`
	Location     string            `json:"location,omitempty"`
	City         string            `json:"city,omitempty"`
	Attributes   map[string]any    `json:"attributes,omitempty"`
	ImageURLs    []string          `json:"image_urls,omitempty"`
}

// ListingUpdate is the request to update a listing. Nil fields are left
// untouched.
type ListingUpdate struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Currency    *string         `json:"currency,omitempty"`
	Status      *ListingStatus  `json:"status,omitempty"`
	City        *string         `json:"city,omitempty"`
	Attributes  map[string]any  `json:"attributes,omitempty"`
}

// ListingFilter narrows listing queries.
type ListingFilter struct {
	OwnerID    *int64
	CategoryID *int64
	Type       *ListingType
	Status     *ListingStatus
	City       string
	Query      string
	Limit      int
	Offset     int
}

// ListListingsResponse is the paginated listing feed.
type ListListingsResponse struct {
	Listings []Listing `json:"listings"`
	Total    int64     `json:"total"`
	HasMore  bool      `json:"has_more"`
}
