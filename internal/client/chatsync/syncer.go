package chatsync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"fuddly/internal/domain/entity"
	ws "fuddly/internal/infrastructure/websocket"
	"fuddly/pkg/logger"
)

const DefaultPageSize = 50

// API is the REST surface the syncer reads from.
type API interface {
	ListConversations(ctx context.Context) ([]*entity.ConversationSummary, error)
	Messages(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, error)
	MarkRead(ctx context.Context, conversationID string) (int, error)
}

// Sender writes one frame to the live socket.
type Sender interface {
	Send(ctx context.Context, frameType string, data interface{}) error
}

// Syncer drives a Store from REST calls and socket events.
type Syncer struct {
	store    *Store
	api      API
	sender   Sender
	pageSize int

	mu      sync.Mutex
	onError func(message string)
}

func NewSyncer(store *Store, api API, sender Sender) *Syncer {
	return &Syncer{
		store:    store,
		api:      api,
		sender:   sender,
		pageSize: DefaultPageSize,
	}
}

func (s *Syncer) Store() *Store {
	return s.store
}

// OnError registers a callback for error frames pushed by the server.
func (s *Syncer) OnError(fn func(message string)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

func (s *Syncer) LoadConversations(ctx context.Context) error {
	summaries, err := s.api.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}
	s.store.SetConversations(summaries)
	return nil
}

// Open makes conversationID active, fetches its newest page the first time
// and marks it read on the server.
func (s *Syncer) Open(ctx context.Context, conversationID string) error {
	eff := s.store.SetActive(conversationID)
	if conversationID == "" {
		return nil
	}

	if !s.store.Pagination(conversationID).Loaded {
		if err := s.fetchPage(ctx, conversationID, 0); err != nil {
			return err
		}
	}

	return s.apply(ctx, eff)
}

// LoadOlder fetches the next older page and reports how many messages came
// back. It is a no-op once the server has nothing older.
func (s *Syncer) LoadOlder(ctx context.Context, conversationID string) (int, error) {
	state := s.store.Pagination(conversationID)
	if state.Loaded && !state.HasMore {
		return 0, nil
	}

	page, err := s.api.Messages(ctx, conversationID, s.pageSize, state.NextOffset)
	if err != nil {
		return 0, fmt.Errorf("load messages: %w", err)
	}
	s.store.ApplyPage(conversationID, page, state.NextOffset, s.pageSize)
	return len(page), nil
}

// Send emits send_message and returns the client message id used, which the
// caller may reuse to retry without duplicating.
func (s *Syncer) Send(ctx context.Context, conversationID, text string) (string, error) {
	return s.SendWithID(ctx, conversationID, text, uuid.NewString())
}

func (s *Syncer) SendWithID(ctx context.Context, conversationID, text, clientMessageID string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("message text is empty")
	}

	summary, ok := s.store.Conversation(conversationID)
	if !ok {
		return "", fmt.Errorf("unknown conversation %s", conversationID)
	}
	receiverID := summary.Counterpart(s.store.UserID())
	if receiverID == "" {
		return "", fmt.Errorf("not a participant of conversation %s", conversationID)
	}

	err := s.sender.Send(ctx, ws.MessageTypeSendMessage, ws.SendMessageData{
		ConversationID:  conversationID,
		Text:            text,
		SenderID:        s.store.UserID(),
		ReceiverID:      receiverID,
		ClientMessageID: clientMessageID,
	})
	if err != nil {
		return "", err
	}
	return clientMessageID, nil
}

// HandleEvent applies one frame read from the socket.
func (s *Syncer) HandleEvent(ctx context.Context, frame []byte) error {
	var envelope ws.WSMessage
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	switch envelope.Type {
	case ws.MessageTypeReceiveMessage, ws.MessageTypeMessageSent:
		var msg entity.Message
		if err := json.Unmarshal(envelope.Data, &msg); err != nil {
			return fmt.Errorf("decode %s: %w", envelope.Type, err)
		}
		eff := s.store.ApplyPush(PushKind(envelope.Type), &msg)
		return s.apply(ctx, eff)

	case ws.MessageTypeError:
		var data ws.ErrorData
		_ = json.Unmarshal(envelope.Data, &data)
		logger.Warn("Server error: %s", data.Message)

		s.mu.Lock()
		fn := s.onError
		s.mu.Unlock()
		if fn != nil {
			fn(data.Message)
		}

	case ws.MessageTypePong:
	default:
		logger.Debug("Ignoring frame type %q", envelope.Type)
	}
	return nil
}

// Resync reloads the list and re-fetches the newest page of every
// conversation already loaded, backfilling whatever was missed while
// disconnected.
func (s *Syncer) Resync(ctx context.Context) error {
	if err := s.LoadConversations(ctx); err != nil {
		return err
	}

	for _, id := range s.store.LoadedConversations() {
		if err := s.backfill(ctx, id); err != nil {
			return err
		}
	}

	if active := s.store.Active(); active != "" {
		if _, err := s.api.MarkRead(ctx, active); err != nil {
			return fmt.Errorf("mark read: %w", err)
		}
	}
	return nil
}

// backfill walks newest-first pages until one overlaps what the store
// already holds or the history ends, so a gap longer than a page is closed.
// It stops after MaxMessagesPerConversation since older ones would be evicted.
func (s *Syncer) backfill(ctx context.Context, conversationID string) error {
	for offset := 0; offset < MaxMessagesPerConversation; offset += s.pageSize {
		page, err := s.api.Messages(ctx, conversationID, s.pageSize, offset)
		if err != nil {
			return fmt.Errorf("load messages: %w", err)
		}
		added := s.store.ApplyPage(conversationID, page, offset, s.pageSize)
		if added < len(page) || len(page) < s.pageSize {
			return nil
		}
	}
	return nil
}

func (s *Syncer) fetchPage(ctx context.Context, conversationID string, offset int) error {
	page, err := s.api.Messages(ctx, conversationID, s.pageSize, offset)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	s.store.ApplyPage(conversationID, page, offset, s.pageSize)
	return nil
}

func (s *Syncer) apply(ctx context.Context, eff Effect) error {
	if eff.MarkRead != "" {
		if _, err := s.api.MarkRead(ctx, eff.MarkRead); err != nil {
			return fmt.Errorf("mark read: %w", err)
		}
	}
	if eff.Resync {
		return s.LoadConversations(ctx)
	}
	return nil
}
