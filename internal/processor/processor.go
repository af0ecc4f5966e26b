// Package processor implements the bucketed query core: a bounded
// recency cache over fixed-width time buckets, gap detection with reactive
// prefetch, a single covering fetch per query, and per-kind aggregation of
// the assembled fills.
package processor

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fillbot/gofill/internal/cache"
	"github.com/fillbot/gofill/internal/domain"
	"github.com/fillbot/gofill/internal/metrics"
	"github.com/fillbot/gofill/internal/source"
	"github.com/fillbot/gofill/pkg/bucketmath"
)

var procLog = logrus.WithField("component", "processor")

// Config carries the processor tunables. Zero values are invalid; use
// DefaultConfig as the baseline.
type Config struct {
	BucketSize    int64 // bucket width in seconds
	PrefetchCount int   // buckets probed on each side when a gap is found
	CacheCapacity int   // resident buckets
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		BucketSize:    3600,
		PrefetchCount: 1,
		CacheCapacity: 200,
	}
}

// Processor owns the bucket cache and resolves queries against it, fetching
// gaps from the source with at most one call per query. It is not
// goroutine-safe: callers resolve one query at a time.
type Processor struct {
	cfg    Config
	cache  *cache.BucketCache
	source source.Source
}

// New builds a processor over src with its own empty cache.
func New(cfg Config, src source.Source) (*Processor, error) {
	if cfg.BucketSize <= 0 {
		return nil, fmt.Errorf("bucket size must be positive, got %d", cfg.BucketSize)
	}
	if cfg.PrefetchCount < 0 {
		return nil, fmt.Errorf("prefetch count must not be negative, got %d", cfg.PrefetchCount)
	}
	c, err := cache.New(cfg.CacheCapacity)
	if err != nil {
		return nil, err
	}
	return &Processor{cfg: cfg, cache: c, source: src}, nil
}

// Cache exposes the bucket cache for stats reporting.
func (p *Processor) Cache() *cache.BucketCache { return p.cache }

// BucketSize returns the configured bucket width in seconds.
func (p *Processor) BucketSize() int64 { return p.cfg.BucketSize }

// Resolve answers one validated query: it gap-fills the covering buckets
// with at most one source call, then assembles and aggregates the fills in
// (q.Start, q.End].
func (p *Processor) Resolve(ctx context.Context, q domain.Query) (domain.Result, error) {
	metrics.QueriesTotal.Add(1)
	fills, err := p.rangeFills(ctx, q.Start, q.End)
	if err != nil {
		metrics.QueryErrors.Add(1)
		return domain.Result{}, err
	}
	return aggregate(q.Kind, fills), nil
}

// rangeFills returns every fill in (start, end], fetching missing buckets
// first.
func (p *Processor) rangeFills(ctx context.Context, start, end int64) ([]domain.Fill, error) {
	required := p.keys(bucketmath.Covering(start, end, p.cfg.BucketSize))

	missing, requiredMissing := p.scanRequired(required)
	if requiredMissing {
		missing = p.appendPrefetchMisses(missing, required)
	}
	if len(missing) > 0 {
		if err := p.fillGaps(ctx, missing); err != nil {
			return nil, err
		}
	}

	var out []domain.Fill
	for _, key := range required {
		fills, ok := p.cache.Get(key)
		if !ok {
			// A required bucket vanished between distribute and assembly,
			// meaning the cache cannot hold the whole span at once. That is
			// a logic defect, not missing data; never substitute empty.
			return nil, fmt.Errorf("cache inconsistency: bucket [%d, %d] absent after gap fill", key.Start, key.End)
		}
		for _, f := range fills {
			if domain.InRange(f.Timestamp, start, end) {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

func (p *Processor) key(start int64) domain.BucketKey {
	return domain.BucketKey{Start: start, End: start + p.cfg.BucketSize}
}

func (p *Processor) keys(starts []int64) []domain.BucketKey {
	keys := make([]domain.BucketKey, len(starts))
	for i, s := range starts {
		keys[i] = p.key(s)
	}
	return keys
}

// scanRequired collects the required buckets absent from the cache. The
// scan probes with Contains so recency stays untouched until assembly.
func (p *Processor) scanRequired(required []domain.BucketKey) (missing []domain.BucketKey, requiredMissing bool) {
	for _, key := range required {
		if p.cache.Contains(key) {
			metrics.CacheHits.Add(1)
			continue
		}
		metrics.CacheMisses.Add(1)
		missing = append(missing, key)
	}
	return missing, len(missing) > 0
}

// appendPrefetchMisses probes the neighbors of the required span and adds
// the absent ones to the missing set. It runs only when the required scan
// found a gap: a fully cached query never prefetches, so prefetching lags
// one query behind the access pattern.
func (p *Processor) appendPrefetchMisses(missing, required []domain.BucketKey) []domain.BucketKey {
	if len(required) == 0 {
		return missing
	}
	probe := func(start int64) {
		key := p.key(start)
		if !p.cache.Contains(key) {
			metrics.PrefetchBuckets.Add(1)
			missing = append(missing, key)
		}
	}
	first := required[0].Start
	last := required[len(required)-1].Start
	width := p.cfg.BucketSize
	for i := int64(p.cfg.PrefetchCount); i >= 1; i-- {
		probe(first - i*width)
	}
	for i := int64(1); i <= int64(p.cfg.PrefetchCount); i++ {
		probe(last + i*width)
	}
	return missing
}

// fillGaps issues the single covering fetch for the missing buckets and
// distributes the response into exactly those buckets. Cached buckets
// inside the covering span stay untouched: the superset fetch may
// re-request their time, and that portion of the response is discarded.
// On fetch failure nothing is stored.
func (p *Processor) fillGaps(ctx context.Context, missing []domain.BucketKey) error {
	minStart, maxEnd := missing[0].Start, missing[0].End
	for _, key := range missing[1:] {
		if key.Start < minStart {
			minStart = key.Start
		}
		if key.End > maxEnd {
			maxEnd = key.End
		}
	}

	metrics.AdapterCalls.Add(1)
	fills, err := p.source.Fetch(ctx, minStart, maxEnd)
	if err != nil {
		metrics.AdapterErrors.Add(1)
		return fmt.Errorf("fetch fills [%d, %d]: %w", minStart, maxEnd, err)
	}
	metrics.FillsFetched.Add(int64(len(fills)))
	procLog.WithFields(logrus.Fields{
		"span_start": minStart,
		"span_end":   maxEnd,
		"buckets":    len(missing),
		"fills":      len(fills),
	}).Debug("filled bucket gaps")

	for _, key := range missing {
		bucket := make([]domain.Fill, 0)
		for _, f := range fills {
			if key.Contains(f.Timestamp) {
				bucket = append(bucket, f)
			}
		}
		metrics.BucketsStored.Add(1)
		if evicted := p.cache.Put(key, bucket); evicted {
			metrics.BucketsEvicted.Add(1)
		}
	}
	return nil
}

// aggregate folds the assembled fills per query kind. Count kinds
// deduplicate by trade identity; volume deliberately does not, since each
// fill row of a trade carries real executed quantity.
func aggregate(kind domain.QueryKind, fills []domain.Fill) domain.Result {
	res := domain.Result{Kind: kind}
	switch kind {
	case domain.KindCount:
		res.Count = distinctTrades(fills, func(domain.Fill) bool { return true })
	case domain.KindBuyCount:
		res.Count = distinctTrades(fills, domain.Fill.IsBuy)
	case domain.KindSellCount:
		res.Count = distinctTrades(fills, domain.Fill.IsSell)
	case domain.KindVolume:
		total := decimal.Zero
		for _, f := range fills {
			total = total.Add(f.Notional())
		}
		res.Volume = total
	}
	return res
}

func distinctTrades(fills []domain.Fill, match func(domain.Fill) bool) int {
	seen := make(map[uint64]struct{}, len(fills))
	for _, f := range fills {
		if match(f) {
			seen[f.SequenceNumber] = struct{}{}
		}
	}
	return len(seen)
}
