package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"fuddly/pkg/logger"
)

type redisBus struct {
	rdb     *goredis.Client
	channel string
}

func NewRedisBus(ctx context.Context, addr, channel string) (Bus, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	if channel == "" {
		return nil, fmt.Errorf("redis channel required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisBus{
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, d Delivery) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisBus) Subscribe(ctx context.Context, onDelivery func(Delivery)) error {
	if onDelivery == nil {
		return fmt.Errorf("delivery callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var d Delivery
				if err := json.Unmarshal([]byte(m.Payload), &d); err != nil {
					logger.Warn("Bad delivery payload on %s: %v", b.channel, err)
					continue
				}
				onDelivery(d)
			}
		}
	}()

	return nil
}

func (b *redisBus) Close() error {
	return b.rdb.Close()
}
