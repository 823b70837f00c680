package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"fuddly/internal/domain/entity"
	"fuddly/internal/domain/repository"
	"fuddly/pkg/errors"
)

// memoryConversationRepository keeps conversations in process memory. It backs
// STORE_DRIVER=memory and the test suites.
type memoryConversationRepository struct {
	mu    sync.RWMutex
	items map[string]*entity.Conversation
}

func NewMemoryConversationRepository() repository.ConversationRepository {
	return &memoryConversationRepository{
		items: make(map[string]*entity.Conversation),
	}
}

func (r *memoryConversationRepository) Create(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.items[conv.ID]; ok {
		return copyConversation(existing), false, nil
	}

	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	conv.Participants = []string{conv.BuyerID, conv.SellerID}
	r.items[conv.ID] = copyConversation(conv)

	return copyConversation(conv), true, nil
}

func (r *memoryConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return copyConversation(conv), nil
}

func (r *memoryConversationRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.Conversation
	for _, conv := range r.items {
		if conv.HasParticipant(userID) {
			out = append(out, copyConversation(conv))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryConversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.items[id]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	if at.After(conv.UpdatedAt) {
		conv.UpdatedAt = at
	}
	return nil
}

func copyConversation(c *entity.Conversation) *entity.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	return &cp
}
