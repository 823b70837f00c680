package bus

import (
	"context"
	"encoding/json"
)

// Delivery is one frame addressed to every connection of a user. Origin names
// the gateway instance that produced it.
type Delivery struct {
	Origin string          `json:"origin"`
	UserID string          `json:"user_id"`
	Frame  json.RawMessage `json:"frame"`
}

// Bus carries deliveries between gateway instances so that a user connected
// to another instance still receives pushes.
type Bus interface {
	Publish(ctx context.Context, d Delivery) error
	// Subscribe starts forwarding deliveries to onDelivery until ctx is done.
	Subscribe(ctx context.Context, onDelivery func(Delivery)) error
	Close() error
}
