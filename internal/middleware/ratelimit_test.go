package middleware

import (
	"testing"
	"time"
)

func TestLimiterStore_AllowBurstThenBlock(t *testing.T) {
	// allow 5 events immediately then the 6th should be rejected
	s := NewLimiterStore(5, 5, time.Minute)
	defer s.Stop()

	key := "test@example.com"
	for i := 0; i < 5; i++ {
		if !s.Allow(key) {
			t.Fatalf("expected allow at iteration %d", i)
		}
	}

	if s.Allow(key) {
		t.Fatalf("expected limiter to block after burst consumed")
	}
}

func TestLimiterStore_KeysAreIndependent(t *testing.T) {
	s := NewLimiterStore(5, 1, time.Minute)
	defer s.Stop()

	if !s.Allow("a@example.com") {
		t.Fatal("expected first event for key a to be allowed")
	}
	if s.Allow("a@example.com") {
		t.Fatal("expected second event for key a to be blocked")
	}
	// a blocked key must not affect a fresh one
	if !s.Allow("b@example.com") {
		t.Fatal("expected first event for key b to be allowed")
	}
}
