// Package cache holds the bounded, recency-ordered bucket store at the
// heart of the query processor.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fillbot/gofill/internal/domain"
)

// BucketCache maps bucket keys to the complete (possibly empty) slice of
// fills belonging to that bucket. Presence of a key means the bucket's
// contents are known; an empty slice is a cached fact, not a miss. Size
// never exceeds capacity: inserting past it evicts the least recently used
// bucket. Entries leave only by eviction, never by explicit deletion.
type BucketCache struct {
	lru *lru.Cache[domain.BucketKey, []domain.Fill]
	cap int
}

// New creates a bucket cache holding at most capacity buckets.
func New(capacity int) (*BucketCache, error) {
	l, err := lru.New[domain.BucketKey, []domain.Fill](capacity)
	if err != nil {
		return nil, fmt.Errorf("bucket cache: %w", err)
	}
	return &BucketCache{lru: l, cap: capacity}, nil
}

// Contains reports residency without touching recency, so gap scans do not
// disturb the eviction order.
func (c *BucketCache) Contains(key domain.BucketKey) bool {
	return c.lru.Contains(key)
}

// Get returns the fills cached for key, refreshing its recency on hit.
func (c *BucketCache) Get(key domain.BucketKey) ([]domain.Fill, bool) {
	return c.lru.Get(key)
}

// Put inserts or overwrites key, refreshing its recency. It reports whether
// the insert evicted the least recently used bucket.
func (c *BucketCache) Put(key domain.BucketKey, fills []domain.Fill) bool {
	return c.lru.Add(key, fills)
}

// Len returns the number of resident buckets.
func (c *BucketCache) Len() int { return c.lru.Len() }

// Cap returns the configured capacity in buckets.
func (c *BucketCache) Cap() int { return c.cap }
