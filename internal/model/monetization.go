package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is what a balance ledger entry paid for.
type TransactionType string

const (
	TransactionTypeTopup TransactionType = "topup"
	TransactionTypeBoost TransactionType = "boost"
	TransactionTypeBump  TransactionType = "bump"
)

// Transaction is one balance ledger row. Amount is positive for topups
// and negative for purchases.
type Transaction struct {
	ID     int64 `gorm:"primaryKey" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	Type      TransactionType `gorm:"size:20;not null" json:"type"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	ListingID *int64          `gorm:"index" json:"listing_id,omitempty"`
	Comment   string          `gorm:"size:200" json:"comment,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName implements gorm's table naming.
func (Transaction) TableName() string { return "transactions" }

// BoostRequest is the request to buy a boost for a listing.
type BoostRequest struct {
	ListingID int64 `json:"listing_id"`
	Level     int   `json:"level"`
	Days      int   `json:"days"`
}

// TopupRequest credits the user's balance (admin/payment-callback use).
type TopupRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Comment string          `json:"comment,omitempty"`
}

// BalanceResponse reports the current balance.
type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}
