package events

import (
	"context"
	"time"

	"fuddly/internal/domain/entity"
)

const TypeMessageCreated = "message.created"

// MessageEvent is emitted after a message is durably stored, for consumers
// such as offline notifications.
type MessageEvent struct {
	Type       string          `json:"type"`
	Message    *entity.Message `json:"message"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type Publisher interface {
	PublishMessageCreated(ctx context.Context, msg *entity.Message) error
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher is used when no broker is configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishMessageCreated(ctx context.Context, msg *entity.Message) error {
	return nil
}

func (noopPublisher) Close() error { return nil }
