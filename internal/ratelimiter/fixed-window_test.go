package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedWindow(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewFixedWindowLimiter(2, 10*time.Second)
	rl.now = func() time.Time { return clock }

	ok, _ := rl.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = rl.Allow("10.0.0.1")
	assert.True(t, ok)

	clock = clock.Add(4 * time.Second)
	ok, retry := rl.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 6*time.Second, retry)

	ok, _ = rl.Allow("10.0.0.2")
	assert.True(t, ok, "keys are independent")

	clock = clock.Add(6 * time.Second)
	ok, _ = rl.Allow("10.0.0.1")
	assert.True(t, ok, "window reset")
}

func TestEvictExpired(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewFixedWindowLimiter(1, time.Minute)
	rl.now = func() time.Time { return clock }

	rl.Allow("a")
	clock = clock.Add(30 * time.Second)
	rl.Allow("b")
	clock = clock.Add(45 * time.Second)
	rl.evictExpired()

	rl.Lock()
	defer rl.Unlock()
	assert.NotContains(t, rl.clients, "a")
	assert.Contains(t, rl.clients, "b")
}
