package source

import (
	"context"
	"sync"

	"github.com/fillbot/gofill/internal/domain"
)

// MockSource is an in-memory Source for testing. It serves fills from a
// fixed universe, counts calls, records the exact ranges requested, and
// injects errors on demand.
type MockSource struct {
	mu sync.RWMutex

	// Fills is the universe served by Fetch, filtered to the requested
	// range (inclusive bounds, like the real API).
	Fills []domain.Fill

	// Call tracking
	Calls  map[string]int
	Ranges [][2]int64

	// Error injection
	ErrorOnNext map[string]error
}

// NewMockSource creates a mock source serving the given fills.
func NewMockSource(fills ...domain.Fill) *MockSource {
	return &MockSource{
		Fills:       fills,
		Calls:       make(map[string]int),
		ErrorOnNext: make(map[string]error),
	}
}

func (m *MockSource) trackCall(name string) error {
	m.Calls[name]++
	if err, ok := m.ErrorOnNext[name]; ok {
		delete(m.ErrorOnNext, name)
		return err
	}
	return nil
}

// Fetch implements Source.
func (m *MockSource) Fetch(ctx context.Context, start, end int64) ([]domain.Fill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ranges = append(m.Ranges, [2]int64{start, end})
	if err := m.trackCall("Fetch"); err != nil {
		return nil, err
	}

	var out []domain.Fill
	for _, f := range m.Fills {
		if f.Timestamp >= start && f.Timestamp <= end {
			out = append(out, f)
		}
	}
	return out, nil
}

// FetchCalls returns how many times Fetch ran.
func (m *MockSource) FetchCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Calls["Fetch"]
}

// LastRange returns the bounds of the most recent Fetch, or false when no
// call was made.
func (m *MockSource) LastRange() ([2]int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.Ranges) == 0 {
		return [2]int64{}, false
	}
	return m.Ranges[len(m.Ranges)-1], true
}
