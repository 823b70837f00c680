package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"fuddly/internal/domain/entity"
	"fuddly/internal/domain/repository"
)

type memoryMessageRepository struct {
	mu sync.RWMutex
	// per conversation, oldest first
	byConversation map[string][]*entity.Message
	byID           map[string]*entity.Message
	now            func() time.Time
	last           time.Time
}

func NewMemoryMessageRepository() repository.MessageRepository {
	return &memoryMessageRepository{
		byConversation: make(map[string][]*entity.Message),
		byID:           make(map[string]*entity.Message),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (r *memoryMessageRepository) Create(ctx context.Context, msg *entity.Message) (*entity.Message, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := msg.ConversationID + "/" + msg.ID
	if existing, ok := r.byID[key]; ok {
		cp := *existing
		return &cp, false, nil
	}

	stored := *msg
	stored.Read = false
	stored.CreatedAt = r.nextTimestamp()

	list := r.byConversation[msg.ConversationID]
	idx := sort.Search(len(list), func(i int) bool { return stored.Before(list[i]) })
	list = append(list, nil)
	copy(list[idx+1:], list[idx:])
	list[idx] = &stored
	r.byConversation[msg.ConversationID] = list
	r.byID[key] = &stored

	out := stored
	return &out, true, nil
}

// nextTimestamp is strictly increasing across calls so that persisted order
// matches insertion order even when the clock does not advance.
func (r *memoryMessageRepository) nextTimestamp() time.Time {
	ts := r.now()
	if !ts.After(r.last) {
		ts = r.last.Add(time.Nanosecond)
	}
	r.last = ts
	return ts
}

func (r *memoryMessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byConversation[conversationID]
	out := make([]*entity.Message, 0)
	for i := len(list) - 1 - offset; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *list[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memoryMessageRepository) Latest(ctx context.Context, conversationID string) (*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byConversation[conversationID]
	if len(list) == 0 {
		return nil, nil
	}
	cp := *list[len(list)-1]
	return &cp, nil
}

func (r *memoryMessageRepository) CountUnread(ctx context.Context, conversationID, receiverID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, msg := range r.byConversation[conversationID] {
		if msg.ReceiverID == receiverID && !msg.Read {
			count++
		}
	}
	return count, nil
}

func (r *memoryMessageRepository) CountUnreadForReceiver(ctx context.Context, receiverID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, msg := range r.byID {
		if msg.ReceiverID == receiverID && !msg.Read {
			count++
		}
	}
	return count, nil
}

func (r *memoryMessageRepository) MarkRead(ctx context.Context, conversationID, receiverID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	marked := 0
	for _, msg := range r.byConversation[conversationID] {
		if msg.ReceiverID == receiverID && !msg.Read {
			msg.Read = true
			marked++
		}
	}
	return marked, nil
}
