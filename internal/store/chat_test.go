package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nellx/marketplace-api/internal/model"
)

func newChatFixture(t *testing.T) (*ChatStore, int64, int64) {
	t.Helper()
	db := testDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	return NewChatStore(db, testLogger(t)), alice, bob
}

func TestGetOrCreateCanonicalOrdering(t *testing.T) {
	chats, alice, bob := newChatFixture(t)
	ctx := context.Background()

	first, err := chats.GetOrCreate(ctx, bob, alice, nil)
	require.NoError(t, err)
	second, err := chats.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "both directions should resolve to the same conversation")
	assert.Less(t, first.User1ID, first.User2ID)
}

func TestGetOrCreateConcurrentFirstContact(t *testing.T) {
	chats, alice, bob := newChatFixture(t)
	ctx := context.Background()

	const attempts = 16
	ids := make([]int64, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := alice, bob
			if i%2 == 1 {
				a, b = bob, alice
			}
			conv, err := chats.GetOrCreate(ctx, a, b, nil)
			if err == nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for i, id := range ids {
		require.NotZero(t, id, "attempt %d failed", i)
		assert.Equal(t, ids[0], id)
	}

	convs, err := chats.ListForUser(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestAppendMessageBumpsUnreadAndPreview(t *testing.T) {
	chats, alice, bob := newChatFixture(t)
	ctx := context.Background()

	conv, err := chats.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)

	_, err = chats.AppendMessage(ctx, conv.ID, alice, model.MessageCreate{Content: "hello"})
	require.NoError(t, err)
	_, err = chats.AppendMessage(ctx, conv.ID, alice, model.MessageCreate{Content: "are you there?"})
	require.NoError(t, err)

	got, err := chats.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "are you there?", got.LastMessageText)
	assert.Equal(t, alice, got.LastSenderID)
	assert.Equal(t, 2, got.UnreadCountFor(bob))
	assert.Equal(t, 0, got.UnreadCountFor(alice))
}

func TestAppendMessagePreviewTruncation(t *testing.T) {
	chats, alice, bob := newChatFixture(t)
	ctx := context.Background()

	conv, err := chats.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)

	long := ""
	for i := 0; i < 300; i++ {
		long += "й" // multi-byte, truncation must count runes
	}
	_, err = chats.AppendMessage(ctx, conv.ID, alice, model.MessageCreate{Content: long})
	require.NoError(t, err)

	got, err := chats.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PreviewLength, len([]rune(got.LastMessageText)))
}

func TestAppendMessageImagePreview(t *testing.T) {
	chats, alice, bob := newChatFixture(t)
	ctx := context.Background()

	conv, err := chats.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)

	_, err = chats.AppendMessage(ctx, conv.ID, bob, model.MessageCreate{
		Type:     model.MessageTypeImage,
		ImageURL: "https://cdn.example/img.jpg",
	})
	require.NoError(t, err)

	got, err := chats.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "[Image]", got.LastMessageText)
}

func TestAppendMessageRejectsOutsiders(t *testing.T) {
	chats, alice, bob := newChatFixture(t)
	ctx := context.Background()

	conv, err := chats.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)

	_, err = chats.AppendMessage(ctx, conv.ID, 9999, model.MessageCreate{Content: "hi"})
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = chats.AppendMessage(ctx, conv.ID+100, alice, model.MessageCreate{Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendMessageBlockedConversation(t *testing.T) {
	chats, alice, bob := newChatFixture(t)
	ctx := context.Background()

	conv, err := chats.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)

	_, err = chats.SetBlocked(ctx, conv.ID, bob, true)
	require.NoError(t, err)

	// Blocking silences both directions, including the blocker.
	_, err = chats.AppendMessage(ctx, conv.ID, alice, model.MessageCreate{Content: "hello?"})
	assert.ErrorIs(t, err, ErrConversationBlocked)
	_, err = chats.AppendMessage(ctx, conv.ID, bob, model.MessageCreate{Content: "nope"})
	assert.ErrorIs(t, err, ErrConversationBlocked)

	got, err := chats.SetBlocked(ctx, conv.ID, bob, false)
	require.NoError(t, err)
	assert.False(t, got.IsBlocked)
	assert.Nil(t, got.BlockedBy)

	_, err = chats.AppendMessage(ctx, conv.ID, alice, model.MessageCreate{Content: "back"})
	assert.NoError(t, err)
}

func TestMarkRead(t *testing.T) {
	chats, alice, bob := newChatFixture(t)
	ctx := context.Background()

	conv, err := chats.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = chats.AppendMessage(ctx, conv.ID, alice, model.MessageCreate{Content: fmt.Sprintf("msg %d", i)})
		require.NoError(t, err)
	}
	_, err = chats.AppendMessage(ctx, conv.ID, bob, model.MessageCreate{Content: "reply"})
	require.NoError(t, err)

	updated, err := chats.MarkRead(ctx, conv.ID, bob)
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated, "only alice's messages transition")

	got, err := chats.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCountFor(bob))
	assert.Equal(t, 1, got.UnreadCountFor(alice), "alice still has bob's reply unread")

	// Idempotent: nothing left to transition.
	updated, err = chats.MarkRead(ctx, conv.ID, bob)
	require.NoError(t, err)
	assert.Zero(t, updated)

	msgs, err := chats.Messages(ctx, conv.ID, bob, 10, 0)
	require.NoError(t, err)
	for _, m := range msgs {
		if m.SenderID == alice {
			assert.True(t, m.IsRead)
			assert.NotNil(t, m.ReadAt)
		}
	}
}

func TestMarkReadRejectsOutsiders(t *testing.T) {
	chats, alice, bob := newChatFixture(t)
	ctx := context.Background()

	conv, err := chats.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)

	_, err = chats.MarkRead(ctx, conv.ID, 777)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestMessagesPagination(t *testing.T) {
	chats, alice, bob := newChatFixture(t)
	ctx := context.Background()

	conv, err := chats.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)

	var all []*model.Message
	for i := 0; i < 25; i++ {
		m, err := chats.AppendMessage(ctx, conv.ID, alice, model.MessageCreate{Content: fmt.Sprintf("m%02d", i)})
		require.NoError(t, err)
		all = append(all, m)
	}

	// Newest page first, returned in chronological order.
	page, err := chats.Messages(ctx, conv.ID, bob, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 10)
	assert.Equal(t, "m15", page[0].Content)
	assert.Equal(t, "m24", page[9].Content)

	// Walk backwards from the oldest id of the previous page.
	page, err = chats.Messages(ctx, conv.ID, bob, 10, page[0].ID)
	require.NoError(t, err)
	require.Len(t, page, 10)
	assert.Equal(t, "m05", page[0].Content)
	assert.Equal(t, "m14", page[9].Content)

	page, err = chats.Messages(ctx, conv.ID, bob, 10, page[0].ID)
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, "m00", page[0].Content)

	// Soft-deleted messages disappear from pages.
	require.NoError(t, chats.SoftDeleteMessage(ctx, all[24].ID, alice))
	page, err = chats.Messages(ctx, conv.ID, bob, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "m23", page[len(page)-1].Content)
}

func TestSoftDeleteOnlySender(t *testing.T) {
	chats, alice, bob := newChatFixture(t)
	ctx := context.Background()

	conv, err := chats.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)
	m, err := chats.AppendMessage(ctx, conv.ID, alice, model.MessageCreate{Content: "oops"})
	require.NoError(t, err)

	assert.ErrorIs(t, chats.SoftDeleteMessage(ctx, m.ID, bob), ErrNotParticipant)
	assert.NoError(t, chats.SoftDeleteMessage(ctx, m.ID, alice))
}

func TestTotalUnreadCountsConversations(t *testing.T) {
	db := testDB(t)
	chats := NewChatStore(db, testLogger(t))
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	convAB, err := chats.GetOrCreate(ctx, alice, bob, nil)
	require.NoError(t, err)
	convAC, err := chats.GetOrCreate(ctx, alice, carol, nil)
	require.NoError(t, err)

	// Three unread messages across two conversations count as two.
	_, err = chats.AppendMessage(ctx, convAB.ID, bob, model.MessageCreate{Content: "one"})
	require.NoError(t, err)
	_, err = chats.AppendMessage(ctx, convAB.ID, bob, model.MessageCreate{Content: "two"})
	require.NoError(t, err)
	_, err = chats.AppendMessage(ctx, convAC.ID, carol, model.MessageCreate{Content: "three"})
	require.NoError(t, err)

	n, err := chats.TotalUnread(ctx, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = chats.MarkRead(ctx, convAB.ID, alice)
	require.NoError(t, err)

	n, err = chats.TotalUnread(ctx, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestListingLinkedConversation(t *testing.T) {
	db := testDB(t)
	chats := NewChatStore(db, testLogger(t))
	ctx := context.Background()

	buyer := seedUser(t, db, "buyer5")
	seller := seedUser(t, db, "seller9")
	listingID := int64(42)

	conv, err := chats.GetOrCreate(ctx, buyer, seller, &listingID)
	require.NoError(t, err)
	require.NotNil(t, conv.ListingID)
	assert.EqualValues(t, 42, *conv.ListingID)

	m, err := chats.AppendMessage(ctx, conv.ID, buyer, model.MessageCreate{Content: "Is this still available?"})
	require.NoError(t, err)
	assert.Equal(t, model.MessageTypeText, m.Type)

	got, err := chats.GetForUser(ctx, conv.ID, seller)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UnreadCountFor(seller))
	assert.Equal(t, "Is this still available?", got.LastMessageText)
}
