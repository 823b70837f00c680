package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"fuddly/internal/adapter/repository"
	"fuddly/internal/domain/entity"
	domainrepo "fuddly/internal/domain/repository"
	"fuddly/pkg/errors"
)

type fakeProductRepository struct {
	mu       sync.Mutex
	products map[string]*entity.Product
	calls    int
}

func (f *fakeProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	p, ok := f.products[id]
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}
	cp := *p
	return &cp, nil
}

type fakeUserRepository struct{}

func (fakeUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if id == "ghost" {
		return nil, errors.NotFound("User", nil)
	}
	return &entity.User{ID: id, Name: "user " + id, Status: entity.UserStatusActive}, nil
}

type fixture struct {
	convRepo      domainrepo.ConversationRepository
	msgRepo       domainrepo.MessageRepository
	products      *fakeProductRepository
	conversations *ConversationUseCase
	messages      *MessageUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	convRepo := repository.NewMemoryConversationRepository()
	msgRepo := repository.NewMemoryMessageRepository()
	products := &fakeProductRepository{products: map[string]*entity.Product{
		"p1": {ID: "p1", Title: "Vintage lamp", Images: []string{"lamp.jpg"}, SellerID: "seller"},
		"p2": {ID: "p2", Title: "Bike", SellerID: "seller"},
	}}

	return &fixture{
		convRepo:      convRepo,
		msgRepo:       msgRepo,
		products:      products,
		conversations: NewConversationUseCase(convRepo, msgRepo, products, fakeUserRepository{}),
		messages:      NewMessageUseCase(convRepo, msgRepo),
	}
}

func (f *fixture) conversation(t *testing.T, productID string) *entity.Conversation {
	t.Helper()

	conv, _, err := f.conversations.GetOrCreate(context.Background(), "buyer", GetOrCreateInput{
		ProductID: productID,
		BuyerID:   "buyer",
		SellerID:  "seller",
	})
	require.NoError(t, err)
	return conv
}

func (f *fixture) send(t *testing.T, conv *entity.Conversation, from, text string) *entity.Message {
	t.Helper()

	msg, duplicate, err := f.messages.Append(context.Background(), AppendInput{
		ConversationID: conv.ID,
		SenderID:       from,
		ReceiverID:     conv.Counterpart(from),
		Text:           text,
	})
	require.NoError(t, err)
	require.False(t, duplicate)
	return msg
}
