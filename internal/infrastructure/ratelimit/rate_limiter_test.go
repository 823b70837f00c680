package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 3)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))

	// other keys have their own bucket
	assert.True(t, rl.Allow("u2"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
}

func TestRateLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 1)
	rl.now = func() time.Time { return now }

	rl.Allow("idle")
	now = now.Add(2 * time.Hour)
	rl.Allow("busy")

	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.buckets, "idle")
	assert.Contains(t, rl.buckets, "busy")
}
