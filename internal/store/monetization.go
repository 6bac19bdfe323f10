package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nellx/marketplace-api/internal/model"
)

// Boost pricing per level, in internal currency units per day.
var boostDailyRate = map[int]decimal.Decimal{
	1: decimal.NewFromInt(1000),
	2: decimal.NewFromInt(2500),
	3: decimal.NewFromInt(5000),
}

// BumpPrice is the flat cost of a bump-to-top.
var BumpPrice = decimal.NewFromInt(500)

// MonetizationStore handles the balance ledger and paid listing features.
type MonetizationStore struct {
	db *gorm.DB
}

// NewMonetizationStore creates a monetization store.
func NewMonetizationStore(db *gorm.DB) *MonetizationStore {
	return &MonetizationStore{db: db}
}

// Balance returns the user's current balance.
func (s *MonetizationStore) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Select("balance").First(&user, userID).Error; err != nil {
		return decimal.Zero, translate(err)
	}
	return user.Balance, nil
}

// Topup credits the balance and records a ledger row atomically.
func (s *MonetizationStore) Topup(ctx context.Context, userID int64, amount decimal.Decimal, comment string) (*model.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("topup amount must be positive")
	}

	var txRow *model.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return fmt.Errorf("failed to credit balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		txRow = &model.Transaction{
			UserID:  userID,
			Type:    model.TransactionTypeTopup,
			Amount:  amount,
			Comment: comment,
		}
		return tx.Create(txRow).Error
	})
	if err != nil {
		return nil, err
	}
	return txRow, nil
}

// PurchaseBoost debits the balance, stamps the listing's boost fields,
// and records the ledger row in one transaction. Fails with
// ErrInsufficientBalance without partial application.
func (s *MonetizationStore) PurchaseBoost(ctx context.Context, userID int64, req model.BoostRequest) (*model.Transaction, error) {
	rate, ok := boostDailyRate[req.Level]
	if !ok {
		return nil, fmt.Errorf("unknown boost level %d", req.Level)
	}
	if req.Days <= 0 || req.Days > 30 {
		return nil, fmt.Errorf("boost duration must be 1-30 days")
	}
	price := rate.Mul(decimal.NewFromInt(int64(req.Days)))

	var txRow *model.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing model.Listing
		if err := tx.First(&listing, req.ListingID).Error; err != nil {
			return translate(err)
		}
		if listing.OwnerID != userID {
			return ErrNotParticipant
		}

		// Conditional debit: the WHERE guard makes overdraft impossible
		// under concurrent purchases.
		res := tx.Model(&model.User{}).
			Where("id = ? AND balance >= ?", userID, price).
			Update("balance", gorm.Expr("balance - ?", price))
		if res.Error != nil {
			return fmt.Errorf("failed to debit balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		until := time.Now().UTC().AddDate(0, 0, req.Days)
		if err := tx.Model(&listing).Updates(map[string]any{
			"is_boosted":    true,
			"boosted_until": until,
			"boost_level":   req.Level,
			"bumped_at":     time.Now().UTC(),
		}).Error; err != nil {
			return fmt.Errorf("failed to stamp listing boost: %w", err)
		}

		txRow = &model.Transaction{
			UserID:    userID,
			Type:      model.TransactionTypeBoost,
			Amount:    price.Neg(),
			ListingID: &req.ListingID,
			Comment:   fmt.Sprintf("boost level %d for %d days", req.Level, req.Days),
		}
		return tx.Create(txRow).Error
	})
	if err != nil {
		return nil, err
	}
	return txRow, nil
}

// Bump debits the flat bump price and refreshes the listing's bump time.
func (s *MonetizationStore) Bump(ctx context.Context, userID, listingID int64) (*model.Transaction, error) {
	var txRow *model.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing model.Listing
		if err := tx.First(&listing, listingID).Error; err != nil {
			return translate(err)
		}
		if listing.OwnerID != userID {
			return ErrNotParticipant
		}

		res := tx.Model(&model.User{}).
			Where("id = ? AND balance >= ?", userID, BumpPrice).
			Update("balance", gorm.Expr("balance - ?", BumpPrice))
		if res.Error != nil {
			return fmt.Errorf("failed to debit balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		if err := tx.Model(&listing).Update("bumped_at", time.Now().UTC()).Error; err != nil {
			return fmt.Errorf("failed to bump listing: %w", err)
		}

		txRow = &model.Transaction{
			UserID:    userID,
			Type:      model.TransactionTypeBump,
			Amount:    BumpPrice.Neg(),
			ListingID: &listingID,
			Comment:   "bump to top",
		}
		return tx.Create(txRow).Error
	})
	if err != nil {
		return nil, err
	}
	return txRow, nil
}

// Transactions returns the user's ledger, newest first.
func (s *MonetizationStore) Transactions(ctx context.Context, userID int64, limit int) ([]model.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []model.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return rows, nil
}
