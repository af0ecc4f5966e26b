package cache

import (
	"testing"

	"github.com/fillbot/gofill/internal/domain"
)

func key(i int64) domain.BucketKey {
	return domain.BucketKey{Start: i * 3600, End: (i + 1) * 3600}
}

func fill(seq uint64, ts int64) domain.Fill {
	return domain.Fill{SequenceNumber: seq, Timestamp: ts, Direction: domain.DirectionBuy}
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := New(capacity); err == nil {
			t.Fatalf("New(%d) succeeded, want error", capacity)
		}
	}
}

func TestPutGetRoundtrip(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	k := key(0)
	c.Put(k, []domain.Fill{fill(1, 100)})

	got, ok := c.Get(k)
	if !ok {
		t.Fatalf("Get(%v) missed after Put", k)
	}
	if len(got) != 1 || got[0].SequenceNumber != 1 {
		t.Fatalf("Get(%v) = %v, want one fill with seq 1", k, got)
	}
}

func TestEmptySliceIsAHit(t *testing.T) {
	c, _ := New(4)
	k := key(7)
	c.Put(k, []domain.Fill{})

	if !c.Contains(k) {
		t.Fatalf("Contains(%v) = false, empty bucket should be resident", k)
	}
	got, ok := c.Get(k)
	if !ok {
		t.Fatalf("Get(%v) missed, empty bucket should be a hit", k)
	}
	if len(got) != 0 {
		t.Fatalf("Get(%v) = %v, want empty slice", k, got)
	}
}

func TestContainsDoesNotRefreshRecency(t *testing.T) {
	c, _ := New(2)
	c.Put(key(0), nil)
	c.Put(key(1), nil)

	// A Contains probe on the oldest entry must leave it oldest.
	if !c.Contains(key(0)) {
		t.Fatal("key(0) should be resident")
	}
	if evicted := c.Put(key(2), nil); !evicted {
		t.Fatal("inserting past capacity should evict")
	}
	if c.Contains(key(0)) {
		t.Fatal("key(0) survived; Contains must not refresh recency")
	}
	if !c.Contains(key(1)) {
		t.Fatal("key(1) evicted; it was more recent than key(0)")
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c, _ := New(2)
	c.Put(key(0), nil)
	c.Put(key(1), nil)

	if _, ok := c.Get(key(0)); !ok {
		t.Fatal("key(0) should be resident")
	}
	c.Put(key(2), nil)

	if !c.Contains(key(0)) {
		t.Fatal("key(0) evicted; Get should have refreshed it")
	}
	if c.Contains(key(1)) {
		t.Fatal("key(1) survived; it was least recently used")
	}
}

func TestPutOverwriteRefreshesRecency(t *testing.T) {
	c, _ := New(2)
	c.Put(key(0), []domain.Fill{fill(1, 100)})
	c.Put(key(1), nil)
	c.Put(key(0), []domain.Fill{fill(2, 200)})
	c.Put(key(2), nil)

	if c.Contains(key(1)) {
		t.Fatal("key(1) survived; overwrite of key(0) should have made it LRU")
	}
	got, ok := c.Get(key(0))
	if !ok || len(got) != 1 || got[0].SequenceNumber != 2 {
		t.Fatalf("Get(key(0)) = %v, %v; want the overwritten value", got, ok)
	}
}

func TestEvictionIsExactlyLRU(t *testing.T) {
	c, _ := New(3)
	for i := int64(0); i < 4; i++ {
		c.Put(key(i), nil)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	if c.Contains(key(0)) {
		t.Fatal("key(0) should have been evicted as least recently used")
	}
	for i := int64(1); i < 4; i++ {
		if !c.Contains(key(i)) {
			t.Fatalf("key(%d) missing, only key(0) should have been evicted", i)
		}
	}
}

func TestCap(t *testing.T) {
	c, _ := New(200)
	if c.Cap() != 200 {
		t.Fatalf("Cap() = %d, want 200", c.Cap())
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}
}
