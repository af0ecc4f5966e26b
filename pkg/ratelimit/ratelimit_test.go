package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAllowDrainsBurst(t *testing.T) {
	tb := NewTokenBucket(3, 1)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("call %d: expected a token", i+1)
		}
	}
	if tb.Allow() {
		t.Fatal("bucket should be empty after the burst")
	}
	if got := tb.GetRemaining(); got != 0 {
		t.Fatalf("GetRemaining() = %d, want 0", got)
	}
}

func TestConstructorClampsToOne(t *testing.T) {
	tb := NewTokenBucket(0, 0)

	if got := tb.GetRemaining(); got != 1 {
		t.Fatalf("GetRemaining() = %d, want 1", got)
	}
	if !tb.Allow() {
		t.Fatal("expected the single token")
	}
	if tb.Allow() {
		t.Fatal("expected an empty bucket")
	}
}

func TestWaitHonorsContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	if !tb.Allow() {
		t.Fatal("expected the initial token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() = %v, want deadline exceeded", err)
	}
}

func TestWaitRecoversAfterRefill(t *testing.T) {
	tb := NewTokenBucket(1, 2)
	if !tb.Allow() {
		t.Fatal("expected the initial token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("Wait() = %v, want nil after refill", err)
	}
}
