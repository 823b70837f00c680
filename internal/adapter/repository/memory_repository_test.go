package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuddly/internal/domain/entity"
	apperrors "fuddly/pkg/errors"
)

func TestMemoryConversationRepository_CreateIsIdempotent(t *testing.T) {
	repo := NewMemoryConversationRepository()
	ctx := context.Background()

	first, created, err := repo.Create(ctx, &entity.Conversation{ID: "c1", ProductID: "p", BuyerID: "b", SellerID: "s"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"b", "s"}, first.Participants)

	second, created, err := repo.Create(ctx, &entity.Conversation{ID: "c1", ProductID: "other"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "p", second.ProductID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestMemoryConversationRepository_TouchAndList(t *testing.T) {
	repo := NewMemoryConversationRepository()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, _, err := repo.Create(ctx, &entity.Conversation{ID: id, BuyerID: "u", SellerID: "s-" + id})
		require.NoError(t, err)
	}
	_, _, err := repo.Create(ctx, &entity.Conversation{ID: "x", BuyerID: "other", SellerID: "s"})
	require.NoError(t, err)

	later := time.Now().UTC().Add(time.Minute)
	require.NoError(t, repo.Touch(ctx, "b", later))
	require.NoError(t, repo.Touch(ctx, "b", later.Add(-time.Hour)))

	list, err := repo.ListByParticipant(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, later, list[0].UpdatedAt)

	err = repo.Touch(ctx, "missing", later)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestMemoryConversationRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryConversationRepository()
	ctx := context.Background()

	_, _, err := repo.Create(ctx, &entity.Conversation{ID: "c", BuyerID: "b", SellerID: "s"})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "c")
	require.NoError(t, err)
	got.BuyerID = "mallory"
	got.Participants[0] = "mallory"

	again, err := repo.GetByID(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "b", again.BuyerID)
	assert.Equal(t, "b", again.Participants[0])
}

func TestMemoryMessageRepository_OrderAndPaging(t *testing.T) {
	repo := NewMemoryMessageRepository().(*memoryMessageRepository)
	frozen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return frozen }
	ctx := context.Background()

	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		_, created, err := repo.Create(ctx, &entity.Message{ID: id, ConversationID: "c", SenderID: "a", ReceiverID: "b", Read: true})
		require.NoError(t, err)
		assert.True(t, created)
	}

	page, err := repo.ListByConversation(ctx, "c", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m4", page[0].ID)
	assert.Equal(t, "m3", page[1].ID)
	assert.True(t, page[1].CreatedAt.Before(page[0].CreatedAt))
	assert.False(t, page[0].Read)

	page, err = repo.ListByConversation(ctx, "c", 2, 3)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "m1", page[0].ID)

	page, err = repo.ListByConversation(ctx, "c", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	latest, err := repo.Latest(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "m4", latest.ID)

	none, err := repo.Latest(ctx, "empty")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryMessageRepository_DuplicateAndUnread(t *testing.T) {
	repo := NewMemoryMessageRepository()
	ctx := context.Background()

	first, _, err := repo.Create(ctx, &entity.Message{ID: "m", ConversationID: "c1", SenderID: "a", ReceiverID: "b", Text: "hi"})
	require.NoError(t, err)
	dup, created, err := repo.Create(ctx, &entity.Message{ID: "m", ConversationID: "c1", SenderID: "a", ReceiverID: "b", Text: "changed"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "hi", dup.Text)
	assert.Equal(t, first.CreatedAt, dup.CreatedAt)

	_, _, err = repo.Create(ctx, &entity.Message{ID: "n", ConversationID: "c2", SenderID: "a", ReceiverID: "b"})
	require.NoError(t, err)
	_, _, err = repo.Create(ctx, &entity.Message{ID: "o", ConversationID: "c1", SenderID: "b", ReceiverID: "a"})
	require.NoError(t, err)

	count, err := repo.CountUnreadForReceiver(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	marked, err := repo.MarkRead(ctx, "c1", "b")
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	marked, err = repo.MarkRead(ctx, "c1", "b")
	require.NoError(t, err)
	assert.Equal(t, 0, marked)

	count, err = repo.CountUnread(ctx, "c1", "a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = repo.CountUnreadForReceiver(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProfileFromDoc(t *testing.T) {
	user := profileFromDoc("u1", userDoc{Username: "rina", AvatarURL: "a.png", Status: "BLOCKED"})
	assert.Equal(t, &entity.User{ID: "u1", Name: "rina", Avatar: "a.png", Status: entity.UserStatusBlocked}, user)

	user = profileFromDoc("u2", userDoc{FullName: "Rina Putri", PhotoURL: "p.png"})
	assert.Equal(t, "Rina Putri", user.Name)
	assert.Equal(t, "p.png", user.Avatar)
	assert.Equal(t, entity.UserStatusActive, user.Status)
}

func TestProductFromDoc(t *testing.T) {
	product, err := productFromDoc("p1", productDoc{
		Title:    "Mythic account",
		SellerID: "seller",
		Images:   []productImageDoc{{URL: "b.png", DisplayOrder: 2}, {URL: "", DisplayOrder: 0}, {URL: "a.png", DisplayOrder: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, &entity.Product{ID: "p1", Title: "Mythic account", SellerID: "seller", Images: []string{"a.png", "b.png"}}, product)

	deleted := time.Now()
	_, err = productFromDoc("p2", productDoc{Title: "Gone", DeletedAt: &deleted})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
