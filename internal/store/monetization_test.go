package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nellx/marketplace-api/internal/model"
)

func seedListing(t *testing.T, db *gorm.DB, ownerID int64, title string) int64 {
	t.Helper()
	listing := &model.Listing{
		OwnerID: ownerID,
		Title:   title,
		Type:    model.ListingTypeSell,
		Status:  model.ListingStatusActive,
		Price:   decimal.NewFromInt(100),
	}
	require.NoError(t, db.Create(listing).Error)
	return listing.ID
}

func TestTopupAndBalance(t *testing.T) {
	db := testDB(t)
	money := NewMonetizationStore(db)
	ctx := context.Background()
	user := seedUser(t, db, "spender")

	balance, err := money.Balance(ctx, user)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	tx, err := money.Topup(ctx, user, decimal.NewFromInt(5000), "test credit")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionTypeTopup, tx.Type)

	balance, err = money.Balance(ctx, user)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(5000)))

	_, err = money.Topup(ctx, user, decimal.Zero, "")
	assert.Error(t, err)
	_, err = money.Topup(ctx, 9999, decimal.NewFromInt(10), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurchaseBoost(t *testing.T) {
	db := testDB(t)
	money := NewMonetizationStore(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner")
	listingID := seedListing(t, db, owner, "Old bicycle")
	_, err := money.Topup(ctx, owner, decimal.NewFromInt(10000), "")
	require.NoError(t, err)

	tx, err := money.PurchaseBoost(ctx, owner, model.BoostRequest{ListingID: listingID, Level: 2, Days: 3})
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(-7500)), "2500/day for 3 days, ledgered as a debit")

	var listing model.Listing
	require.NoError(t, db.First(&listing, listingID).Error)
	assert.True(t, listing.IsBoosted)
	assert.Equal(t, 2, listing.BoostLevel)
	require.NotNil(t, listing.BoostedUntil)

	balance, err := money.Balance(ctx, owner)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(2500)))
}

func TestPurchaseBoostInsufficientBalance(t *testing.T) {
	db := testDB(t)
	money := NewMonetizationStore(db)
	ctx := context.Background()

	owner := seedUser(t, db, "broke")
	listingID := seedListing(t, db, owner, "Cheap lamp")
	_, err := money.Topup(ctx, owner, decimal.NewFromInt(100), "")
	require.NoError(t, err)

	_, err = money.PurchaseBoost(ctx, owner, model.BoostRequest{ListingID: listingID, Level: 1, Days: 1})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// Nothing partially applied: balance intact, listing untouched.
	balance, err := money.Balance(ctx, owner)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100)))

	var listing model.Listing
	require.NoError(t, db.First(&listing, listingID).Error)
	assert.False(t, listing.IsBoosted)

	txs, err := money.Transactions(ctx, owner, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1, "only the topup is ledgered")
}

func TestPurchaseBoostValidation(t *testing.T) {
	db := testDB(t)
	money := NewMonetizationStore(db)
	ctx := context.Background()

	owner := seedUser(t, db, "owner2")
	stranger := seedUser(t, db, "stranger")
	listingID := seedListing(t, db, owner, "Sofa")

	_, err := money.PurchaseBoost(ctx, owner, model.BoostRequest{ListingID: listingID, Level: 9, Days: 1})
	assert.Error(t, err)
	_, err = money.PurchaseBoost(ctx, owner, model.BoostRequest{ListingID: listingID, Level: 1, Days: 0})
	assert.Error(t, err)
	_, err = money.PurchaseBoost(ctx, stranger, model.BoostRequest{ListingID: listingID, Level: 1, Days: 1})
	assert.ErrorIs(t, err, ErrNotParticipant)
	_, err = money.PurchaseBoost(ctx, owner, model.BoostRequest{ListingID: 9999, Level: 1, Days: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBump(t *testing.T) {
	db := testDB(t)
	money := NewMonetizationStore(db)
	ctx := context.Background()

	owner := seedUser(t, db, "bumper")
	listingID := seedListing(t, db, owner, "Table")
	_, err := money.Topup(ctx, owner, decimal.NewFromInt(1000), "")
	require.NoError(t, err)

	before := model.Listing{}
	require.NoError(t, db.First(&before, listingID).Error)

	tx, err := money.Bump(ctx, owner, listingID)
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(BumpPrice.Neg()))

	var after model.Listing
	require.NoError(t, db.First(&after, listingID).Error)
	assert.True(t, after.BumpedAt.After(before.BumpedAt) || before.BumpedAt.IsZero())

	// Second bump exceeds the remaining balance.
	_, err = money.Bump(ctx, owner, listingID)
	require.NoError(t, err)
	_, err = money.Bump(ctx, owner, listingID)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}
