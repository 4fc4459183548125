// Package ratelimit implements a sliding-window log rate limiter keyed by
// an arbitrary identity string.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is when the oldest hit in the window expires.
	Reset time.Time
}

type window struct {
	mu   sync.Mutex
	hits []time.Time
	// swept is set once Sweep has removed the window from the map.
	swept bool
}

// trim drops hits at or before cutoff. Caller holds w.mu.
func (w *window) trim(cutoff time.Time) {
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	w.hits = w.hits[i:]
}

// Limiter allows at most limit hits per key within any window-long span.
type Limiter struct {
	limit  int
	window time.Duration

	mu   sync.RWMutex
	keys map[string]*window
}

// New returns a Limiter allowing limit hits per window.
func New(limit int, win time.Duration) *Limiter {
	return &Limiter{limit: limit, window: win, keys: make(map[string]*window)}
}

// Limit returns the number of hits allowed per window.
func (l *Limiter) Limit() int {
	return l.limit
}

// Allow records a hit for key at now if the key is under its limit.
// Refused hits are not recorded.
func (l *Limiter) Allow(key string, now time.Time) Decision {
	w := l.get(key)
	w.mu.Lock()
	for w.swept {
		w.mu.Unlock()
		w = l.get(key)
		w.mu.Lock()
	}
	defer w.mu.Unlock()

	w.trim(now.Add(-l.window))
	d := Decision{Limit: l.limit}
	if len(w.hits) < l.limit {
		w.hits = append(w.hits, now)
		d.Allowed = true
	}
	d.Remaining = l.limit - len(w.hits)
	if len(w.hits) > 0 {
		d.Reset = w.hits[0].Add(l.window)
	} else {
		d.Reset = now.Add(l.window)
	}
	return d
}

func (l *Limiter) get(key string) *window {
	l.mu.RLock()
	w, ok := l.keys[key]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok := l.keys[key]; ok {
		return w
	}
	w = &window{}
	l.keys[key] = w
	return w
}

// Sweep forgets keys whose hits have all left the window.
func (l *Limiter) Sweep(now time.Time) {
	cutoff := now.Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.keys {
		w.mu.Lock()
		w.trim(cutoff)
		if len(w.hits) == 0 {
			w.swept = true
			delete(l.keys, key)
		}
		w.mu.Unlock()
	}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.keys)
}

// Run sweeps every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}
