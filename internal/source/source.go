// Package source provides the fill adapters the query processor fetches
// from: a remote REST API, a local SQLite replay store, and an in-package
// mock for tests.
package source

import (
	"context"

	"github.com/fillbot/gofill/internal/domain"
)

// Source returns every fill in the vicinity of [start, end]. Exact boundary
// inclusivity is the source's own concern: the processor re-filters each
// fill against its bucket and query predicates, so over-returning is legal
// and under-returning is not. Implementations keep no cache of their own.
type Source interface {
	Fetch(ctx context.Context, start, end int64) ([]domain.Fill, error)
}
