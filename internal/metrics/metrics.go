package metrics

import "expvar"

var (
	QueriesTotal    = expvar.NewInt("queries_total")
	QueryErrors     = expvar.NewInt("query_errors")
	CacheHits       = expvar.NewInt("cache_hits")
	CacheMisses     = expvar.NewInt("cache_misses")
	PrefetchBuckets = expvar.NewInt("prefetch_buckets")
	AdapterCalls    = expvar.NewInt("adapter_calls")
	AdapterErrors   = expvar.NewInt("adapter_errors")
	FillsFetched    = expvar.NewInt("fills_fetched")
	BucketsStored   = expvar.NewInt("buckets_stored")
	BucketsEvicted  = expvar.NewInt("buckets_evicted")
)
