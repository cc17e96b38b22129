package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestAllow_Window(t *testing.T) {
	l := New(15*time.Second, nil, zap.NewNop())

	steps := []struct {
		at       time.Duration
		expected bool
	}{
		{0, true},
		{ms(5000), false},
		{ms(14999), false},
		{ms(15001), true},
		{ms(20000), false},
		{ms(30001), true},
	}

	for _, s := range steps {
		if got := l.Allow("u1", base.Add(s.at)); got != s.expected {
			t.Errorf("Allow at +%s = %v, expected %v", s.at, got, s.expected)
		}
	}
}

func TestAllow_ExactBoundary(t *testing.T) {
	l := New(15*time.Second, nil, zap.NewNop())

	if !l.Allow("u1", base) {
		t.Fatal("First post must be allowed")
	}
	if !l.Allow("u1", base.Add(15*time.Second)) {
		t.Error("Post exactly one window later must be allowed")
	}
}

func TestAllow_UsersIndependent(t *testing.T) {
	l := New(15*time.Second, nil, zap.NewNop())

	if !l.Allow("u1", base) || !l.Allow("u2", base) {
		t.Fatal("Different users must not throttle each other")
	}
	if l.Allow("u1", base.Add(time.Second)) {
		t.Error("u1 must be throttled")
	}
}

func TestAllow_ConcurrentSameUser(t *testing.T) {
	l := New(15*time.Second, nil, zap.NewNop())

	var allowed int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("u1", base) {
				atomic.AddInt32(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	if allowed != 1 {
		t.Errorf("Expected exactly one concurrent post to pass, got %d", allowed)
	}
}

func TestAllowNow_UsesClock(t *testing.T) {
	now := base
	l := New(15*time.Second, func() time.Time { return now }, zap.NewNop())

	if !l.AllowNow("u1") {
		t.Fatal("First post must be allowed")
	}
	now = now.Add(10 * time.Second)
	if l.AllowNow("u1") {
		t.Error("Expected throttle 10s later")
	}
	now = now.Add(6 * time.Second)
	if !l.AllowNow("u1") {
		t.Error("Expected allow 16s later")
	}
}

func TestSweep_EvictsExpired(t *testing.T) {
	l := New(15*time.Second, nil, zap.NewNop())

	l.Allow("old", base)
	l.Allow("fresh", base.Add(10*time.Second))

	if remaining := l.Sweep(base.Add(16 * time.Second)); remaining != 1 {
		t.Fatalf("Expected 1 remaining entry, got %d", remaining)
	}

	// Вытеснение не ослабляет ограничение для активного пользователя
	if l.Allow("fresh", base.Add(17*time.Second)) {
		t.Error("fresh must still be throttled after sweep")
	}
	if !l.Allow("old", base.Add(17*time.Second)) {
		t.Error("old must be allowed after eviction")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	now := base
	var mu sync.Mutex
	l := New(time.Second, func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}, zap.NewNop())
	l.Allow("u1", base)

	mu.Lock()
	now = base.Add(time.Hour)
	mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(time.Second)
	for l.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("Run did not sweep the expired entry")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
