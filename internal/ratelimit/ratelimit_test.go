package ratelimit

import (
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

// TestAllowSlidingWindow verifies limit hits pass, the next is refused, and
// capacity returns once the oldest hit leaves the window.
func TestAllowSlidingWindow(t *testing.T) {
	l := New(3, time.Minute)
	for i := range 3 {
		d := l.Allow("signup", t0.Add(time.Duration(i)*time.Second))
		if !d.Allowed {
			t.Fatalf("hit %d refused", i)
		}
		if d.Remaining != 2-i {
			t.Errorf("hit %d remaining = %d, want %d", i, d.Remaining, 2-i)
		}
	}

	d := l.Allow("signup", t0.Add(30*time.Second))
	if d.Allowed {
		t.Fatal("fourth hit allowed, want refused")
	}
	if !d.Reset.Equal(t0.Add(time.Minute)) {
		t.Errorf("reset = %v, want %v", d.Reset, t0.Add(time.Minute))
	}

	if d := l.Allow("signup", t0.Add(time.Minute)); !d.Allowed {
		t.Error("hit after oldest expired refused")
	}
}

// TestAllowKeysIndependent verifies one key's usage does not affect another.
func TestAllowKeysIndependent(t *testing.T) {
	l := New(1, time.Second)
	if !l.Allow("user:1", t0).Allowed {
		t.Fatal("user 1 refused")
	}
	if !l.Allow("user:2", t0).Allowed {
		t.Error("user 2 refused after user 1 hit")
	}
	if l.Allow("user:1", t0).Allowed {
		t.Error("user 1 second hit allowed")
	}
}

// TestSweep verifies idle keys are forgotten.
func TestSweep(t *testing.T) {
	l := New(5, time.Second)
	l.Allow("a", t0)
	l.Allow("b", t0.Add(900*time.Millisecond))

	l.Sweep(t0.Add(1500 * time.Millisecond))
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

// TestAllowConcurrent verifies the limit holds under concurrent callers.
func TestAllowConcurrent(t *testing.T) {
	l := New(10, time.Minute)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared", t0).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 10 {
		t.Errorf("allowed = %d, want 10", allowed)
	}
}

// TestNewWindowLength verifies New keeps both the limit and the window span.
func TestNewWindowLength(t *testing.T) {
	l := New(2, 10*time.Second)
	if l.Limit() != 2 {
		t.Errorf("Limit() = %d, want 2", l.Limit())
	}
	if d := l.Allow("k", t0); !d.Reset.Equal(t0.Add(10 * time.Second)) {
		t.Errorf("reset = %v, want %v", d.Reset, t0.Add(10*time.Second))
	}
	l.Allow("k", t0.Add(time.Second))
	if l.Allow("k", t0.Add(9*time.Second)).Allowed {
		t.Error("third hit inside the window allowed")
	}
	if !l.Allow("k", t0.Add(10*time.Second)).Allowed {
		t.Error("hit after the window refused")
	}
}
