package bus

import (
	"context"
	"sync"
)

// localBus is the single-instance bus: nothing leaves the process.
type localBus struct {
	mu       sync.RWMutex
	handlers []func(Delivery)
}

func NewLocalBus() Bus {
	return &localBus{}
}

func (b *localBus) Publish(ctx context.Context, d Delivery) error {
	b.mu.RLock()
	handlers := append([]func(Delivery){}, b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(d)
	}
	return nil
}

func (b *localBus) Subscribe(ctx context.Context, onDelivery func(Delivery)) error {
	b.mu.Lock()
	b.handlers = append(b.handlers, onDelivery)
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error {
	b.mu.Lock()
	b.handlers = nil
	b.mu.Unlock()
	return nil
}
