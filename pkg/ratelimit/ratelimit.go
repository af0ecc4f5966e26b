// Package ratelimit provides a token bucket for pacing outbound API calls.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket limits throughput to a fixed number of operations per
// second, with a configurable burst. The bucket starts full.
type TokenBucket struct {
	capacity   int
	tokens     int
	refillRate int // tokens added per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket returns a full bucket holding capacity tokens that
// refills at refillRate tokens per second. Values below one are
// treated as one.
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	if refillRate < 1 {
		refillRate = 1
	}
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// refill credits tokens for the whole seconds elapsed since the last
// refill. The fractional remainder stays on the clock.
func (tb *TokenBucket) refill() {
	elapsed := time.Since(tb.lastRefill)
	seconds := int(elapsed / time.Second)
	if seconds <= 0 {
		return
	}
	tb.tokens = min(tb.capacity, tb.tokens+seconds*tb.refillRate)
	tb.lastRefill = tb.lastRefill.Add(time.Duration(seconds) * time.Second)
}

// Allow takes a token if one is available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	interval := time.Second / time.Duration(tb.refillRate)
	for {
		if tb.Allow() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// GetRemaining reports how many tokens are currently available.
func (tb *TokenBucket) GetRemaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}
