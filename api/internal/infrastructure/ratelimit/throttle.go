package ratelimit

import (
	"context"
	"sync"
	"time"

	"reportvault/api/internal/core/domain"
)

// Policy caps attempts per client key within a fixed window.
type Policy struct {
	MaxPerWindow int
	Window       time.Duration
}

// Default policies.
var (
	DownloadPolicy = Policy{MaxPerWindow: 10, Window: time.Hour}
	APIPolicy      = Policy{MaxPerWindow: 100, Window: 15 * time.Minute}
)

type window struct {
	count int
	start time.Time
}

// AttemptThrottle counts attempts per client key inside a fixed window.
// A single mutex guards the map so concurrent attempts by the same client
// can never lose an increment.
type AttemptThrottle struct {
	policy Policy
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

var _ domain.AttemptThrottle = (*AttemptThrottle)(nil)

func NewAttemptThrottle(policy Policy) *AttemptThrottle {
	if policy.MaxPerWindow <= 0 {
		policy.MaxPerWindow = DownloadPolicy.MaxPerWindow
	}
	if policy.Window <= 0 {
		policy.Window = DownloadPolicy.Window
	}
	return &AttemptThrottle{
		policy:  policy,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// WithClock swaps the time source. Intended for tests.
func (t *AttemptThrottle) WithClock(now func() time.Time) *AttemptThrottle {
	t.now = now
	return t
}

// ClientKey builds the coarse client fingerprint: address plus user agent.
func ClientKey(addr, userAgent string) string {
	return addr + "|" + userAgent
}

// CheckAndRecord records one attempt and reports whether it is allowed.
func (t *AttemptThrottle) CheckAndRecord(clientKey string) bool {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[clientKey]
	if !ok || now.After(w.start.Add(t.policy.Window)) {
		t.windows[clientKey] = &window{count: 1, start: now}
		return true
	}

	w.count++
	return w.count <= t.policy.MaxPerWindow
}

// Remaining reports how many attempts clientKey has left in its window.
func (t *AttemptThrottle) Remaining(clientKey string) int {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[clientKey]
	if !ok || now.After(w.start.Add(t.policy.Window)) {
		return t.policy.MaxPerWindow
	}
	if left := t.policy.MaxPerWindow - w.count; left > 0 {
		return left
	}
	return 0
}

// Prune drops windows that have elapsed and returns how many were removed.
func (t *AttemptThrottle) Prune() int {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for key, w := range t.windows {
		if now.After(w.start.Add(t.policy.Window)) {
			delete(t.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked client windows.
func (t *AttemptThrottle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows)
}

// StartPruning runs Prune on interval until ctx is cancelled.
func (t *AttemptThrottle) StartPruning(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Prune()
		}
	}
}
