package ratelimiter

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

type FixedWindowRateLimiter struct {
	sync.Mutex
	clients map[string]window // key: client ip
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewFixedWindowLimiter(limit int, frame time.Duration) *FixedWindowRateLimiter {
	rl := &FixedWindowRateLimiter{
		clients: make(map[string]window),
		limit:   limit,
		window:  frame,
		now:     time.Now,
	}
	go rl.cleanup()
	return rl
}

func (rl *FixedWindowRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for range ticker.C {
		rl.evictExpired()
	}
}

func (rl *FixedWindowRateLimiter) evictExpired() {
	rl.Lock()
	defer rl.Unlock()
	now := rl.now()
	for k, w := range rl.clients {
		if now.Sub(w.start) >= rl.window {
			delete(rl.clients, k)
		}
	}
}

func (rl *FixedWindowRateLimiter) Allow(key string) (bool, time.Duration) {
	rl.Lock()
	defer rl.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || now.Sub(w.start) >= rl.window {
		w = window{start: now}
	}
	if w.count >= rl.limit {
		return false, rl.window - now.Sub(w.start)
	}

	w.count++
	rl.clients[key] = w
	return true, 0
}
