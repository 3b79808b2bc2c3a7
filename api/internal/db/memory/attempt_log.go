package memory

import (
	"context"
	"sync"

	"reportvault/api/internal/core/domain"
)

// AttemptLog keeps the most recent download attempts in a ring.
type AttemptLog struct {
	mu       sync.Mutex
	capacity int
	entries  []domain.DownloadAttempt
}

var _ domain.DownloadAttemptLog = (*AttemptLog)(nil)

func NewAttemptLog(capacity int) *AttemptLog {
	if capacity <= 0 {
		capacity = 1000
	}
	return &AttemptLog{capacity: capacity}
}

func (l *AttemptLog) Record(ctx context.Context, a *domain.DownloadAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, *a)
	return nil
}

// Entries returns a copy of the retained attempts, oldest first.
func (l *AttemptLog) Entries() []domain.DownloadAttempt {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.DownloadAttempt(nil), l.entries...)
}
