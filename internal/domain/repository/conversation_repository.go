package repository

import (
	"context"
	"time"

	"fuddly/internal/domain/entity"
)

type ConversationRepository interface {
	// Create inserts conv unless a conversation with the same id exists, in
	// which case the stored one is returned with created=false.
	Create(ctx context.Context, conv *entity.Conversation) (stored *entity.Conversation, created bool, err error)
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error)
	// Touch sets updatedAt to max(current, at).
	Touch(ctx context.Context, id string, at time.Time) error
}
