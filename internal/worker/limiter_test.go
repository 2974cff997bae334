package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_Defaults(t *testing.T) {
	l := NewLimiter(10, -1)
	if l.burst != 1 {
		t.Errorf("expected burst 1 for negative input, got %d", l.burst)
	}

	unlimited := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !unlimited.Allow("Vimeo") {
			t.Fatalf("zero rate should not limit, blocked at call %d", i)
		}
	}
}

func TestLimiter_PerKey(t *testing.T) {
	l := NewLimiter(1, 1)
	ctx := context.Background()

	if err := l.Wait(ctx, "Twitter"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	if l.Allow("Twitter") {
		t.Error("expected tokens exhausted for Twitter")
	}
	if !l.Allow("Vimeo") {
		t.Error("other platforms must have their own budget")
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := NewLimiter(0.01, 1)
	_ = l.Allow("Tiktok")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "Tiktok"); err == nil {
		t.Error("expected context error while waiting for a token")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	l := NewLimiter(10, 10)
	l.SetRate("Instagram", 0.1, 1)

	if !l.Allow("Instagram") {
		t.Error("first request should pass")
	}
	if l.Allow("Instagram") {
		t.Error("second request should be limited")
	}
	if !l.Allow("Odysee") {
		t.Error("default rate should still apply elsewhere")
	}
}
