package repository

import (
	"context"

	"fuddly/internal/domain/entity"
)

type MessageRepository interface {
	// Create inserts msg unless a message with the same id exists in the
	// conversation, in which case the stored one is returned with created=false.
	Create(ctx context.Context, msg *entity.Message) (stored *entity.Message, created bool, err error)
	// ListByConversation returns messages newest-first.
	ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, error)
	// Latest returns nil without error when the conversation has no messages.
	Latest(ctx context.Context, conversationID string) (*entity.Message, error)
	CountUnread(ctx context.Context, conversationID, receiverID string) (int, error)
	CountUnreadForReceiver(ctx context.Context, receiverID string) (int, error)
	MarkRead(ctx context.Context, conversationID, receiverID string) (int, error)
}
