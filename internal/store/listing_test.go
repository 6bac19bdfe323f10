package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nellx/marketplace-api/internal/model"
)

func TestListingCreateDefaults(t *testing.T) {
	db := testDB(t)
	listings := NewListingStore(db)
	ctx := context.Background()
	owner := seedUser(t, db, "seller")

	listing, err := listings.Create(ctx, owner, model.ListingCreate{
		Title: "iPhone 13 Pro",
		Price: decimal.NewFromInt(650),
		Attributes: map[string]any{
			"storage": "256GB",
			"color":   "graphite",
		},
		ImageURLs: []string{"https://cdn.example/a.jpg", "https://cdn.example/b.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ListingTypeSell, listing.Type)
	assert.Equal(t, model.ListingStatusActive, listing.Status)
	assert.Equal(t, "UZS", listing.Currency)
	assert.True(t, listing.IsNegotiable)

	got, err := listings.ByID(ctx, listing.ID)
	require.NoError(t, err)
	require.Len(t, got.Images, 2)
	assert.Equal(t, "https://cdn.example/a.jpg", got.Images[0].URL)
	assert.Equal(t, "256GB", got.Attributes["storage"])
}

func TestListingListFiltersAndOrdering(t *testing.T) {
	db := testDB(t)
	listings := NewListingStore(db)
	ctx := context.Background()
	owner := seedUser(t, db, "seller")

	old, err := listings.Create(ctx, owner, model.ListingCreate{Title: "Old couch", Price: decimal.NewFromInt(50), City: "Tashkent"})
	require.NoError(t, err)
	fresh, err := listings.Create(ctx, owner, model.ListingCreate{Title: "Fresh couch", Price: decimal.NewFromInt(80), City: "Tashkent"})
	require.NoError(t, err)
	_, err = listings.Create(ctx, owner, model.ListingCreate{Title: "Bicycle", Price: decimal.NewFromInt(120), City: "Samarkand"})
	require.NoError(t, err)

	// Distinct bump times so ordering is deterministic.
	require.NoError(t, db.Model(&model.Listing{}).Where("id = ?", old.ID).
		Update("bumped_at", time.Now().UTC().Add(-2*time.Hour)).Error)
	require.NoError(t, db.Model(&model.Listing{}).Where("id = ?", fresh.ID).
		Update("bumped_at", time.Now().UTC().Add(-time.Hour)).Error)

	resp, err := listings.List(ctx, model.ListingFilter{City: "Tashkent"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.Total)
	require.Len(t, resp.Listings, 2)
	assert.Equal(t, "Fresh couch", resp.Listings[0].Title)

	// A boosted listing jumps ahead regardless of bump time.
	require.NoError(t, db.Model(&model.Listing{}).Where("id = ?", old.ID).
		Update("is_boosted", true).Error)
	resp, err = listings.List(ctx, model.ListingFilter{City: "Tashkent"})
	require.NoError(t, err)
	assert.Equal(t, "Old couch", resp.Listings[0].Title)

	// Text search spans title and description.
	resp, err = listings.List(ctx, model.ListingFilter{Query: "couch"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.Total)

	// Pagination flags remaining rows.
	resp, err = listings.List(ctx, model.ListingFilter{Limit: 2})
	require.NoError(t, err)
	assert.True(t, resp.HasMore)
	resp, err = listings.List(ctx, model.ListingFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.False(t, resp.HasMore)
}

func TestListingUpdateOwnerOnly(t *testing.T) {
	db := testDB(t)
	listings := NewListingStore(db)
	ctx := context.Background()
	owner := seedUser(t, db, "seller")
	other := seedUser(t, db, "buyer")

	listing, err := listings.Create(ctx, owner, model.ListingCreate{Title: "Lamp", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)

	newTitle := "Vintage lamp"
	_, err = listings.Update(ctx, listing.ID, other, model.ListingUpdate{Title: &newTitle})
	assert.ErrorIs(t, err, ErrNotParticipant)

	updated, err := listings.Update(ctx, listing.ID, owner, model.ListingUpdate{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "Vintage lamp", updated.Title)
}

func TestListingDeleteArchives(t *testing.T) {
	db := testDB(t)
	listings := NewListingStore(db)
	ctx := context.Background()
	owner := seedUser(t, db, "seller")

	listing, err := listings.Create(ctx, owner, model.ListingCreate{Title: "Chair", Price: decimal.NewFromInt(5)})
	require.NoError(t, err)
	require.NoError(t, listings.Delete(ctx, listing.ID, owner))

	// Archived listings drop out of the active feed but stay readable.
	active := model.ListingStatusActive
	resp, err := listings.List(ctx, model.ListingFilter{Status: &active})
	require.NoError(t, err)
	assert.Empty(t, resp.Listings)

	// An unfiltered owner view still includes them.
	resp, err = listings.List(ctx, model.ListingFilter{OwnerID: &owner})
	require.NoError(t, err)
	assert.Len(t, resp.Listings, 1)

	got, err := listings.ByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusArchived, got.Status)
}

func TestListingExistsAndTitle(t *testing.T) {
	db := testDB(t)
	listings := NewListingStore(db)
	ctx := context.Background()
	owner := seedUser(t, db, "seller")

	listing, err := listings.Create(ctx, owner, model.ListingCreate{Title: "Desk", Price: decimal.NewFromInt(30)})
	require.NoError(t, err)

	ok, err := listings.Exists(ctx, listing.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = listings.Exists(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, ok)

	title, err := listings.Title(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Desk", title)
	title, err = listings.Title(ctx, 9999)
	require.NoError(t, err)
	assert.Empty(t, title)
}
