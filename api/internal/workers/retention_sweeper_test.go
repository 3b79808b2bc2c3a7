package workers_test

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportvault/api/internal/core/domain"
	"reportvault/api/internal/infrastructure/storage"
	"reportvault/api/internal/workers"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func saveAged(t *testing.T, s *storage.ReportStore, owner string, age time.Duration) string {
	t.Helper()
	r, err := s.Save(context.Background(), []byte("%PDF-1.7"), owner)
	require.NoError(t, err)

	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(filepath.Join(s.Dir(), r.ID), mtime, mtime))
	return r.ID
}

func TestSweepOnce_DeletesOnlyExpired(t *testing.T) {
	s, err := storage.NewReportStore(t.TempDir(), discard)
	require.NoError(t, err)

	old := saveAged(t, s, "old", 25*time.Hour)
	fresh := saveAged(t, s, "fresh", time.Hour)

	sweeper := workers.NewRetentionSweeper(s, nil, discard, time.Hour, 24*time.Hour)

	deleted, err := sweeper.SweepOnce(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = s.Resolve(context.Background(), old)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Resolve(context.Background(), fresh)
	assert.NoError(t, err)

	// Second pass finds nothing left to remove
	deleted, err = sweeper.SweepOnce(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestSweepOnce_RemovesStaleTempFiles(t *testing.T) {
	s, err := storage.NewReportStore(t.TempDir(), discard)
	require.NoError(t, err)

	tmp := filepath.Join(s.Dir(), ".upload-42")
	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0o600))
	mtime := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(tmp, mtime, mtime))

	deleted, err := workers.NewRetentionSweeper(s, nil, discard, 0, 0).SweepOnce(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	_, err = os.Stat(tmp)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

// flakyStore fails removal for one name.
type flakyStore struct {
	domain.ReportStore
	entries []domain.ReportInfo
	failOn  string
	removed []string
}

func (f *flakyStore) List(ctx context.Context) ([]domain.ReportInfo, error) {
	return f.entries, nil
}

func (f *flakyStore) Remove(ctx context.Context, name string) error {
	switch name {
	case f.failOn:
		return fs.ErrPermission
	case "report_raced_1.pdf":
		return domain.ErrNotFound
	}
	f.removed = append(f.removed, name)
	return nil
}

func TestSweepOnce_SkipsFailuresAndContinues(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-30 * time.Hour)
	store := &flakyStore{
		entries: []domain.ReportInfo{
			{Name: "report_a_1.pdf", Modified: old},
			{Name: "report_locked_1.pdf", Modified: old},
			{Name: "report_raced_1.pdf", Modified: old},
			{Name: "report_b_1.pdf", Modified: old},
			{Name: "report_new_1.pdf", Modified: now.Add(-time.Minute)},
		},
		failOn: "report_locked_1.pdf",
	}

	sweeper := workers.NewRetentionSweeper(store, nil, discard, time.Hour, 24*time.Hour).
		WithClock(func() time.Time { return now })

	deleted, err := sweeper.SweepOnce(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, []string{"report_a_1.pdf", "report_b_1.pdf"}, store.removed)
}

func TestSweepOnce_AgeBoundaryIsExclusive(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	store := &flakyStore{entries: []domain.ReportInfo{{Name: "report_edge_1.pdf", Modified: now.Add(-24 * time.Hour)}}}

	deleted, err := workers.NewRetentionSweeper(store, nil, discard, 0, 0).
		WithClock(func() time.Time { return now }).
		SweepOnce(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

type countingStore struct {
	domain.ReportStore
	lists atomic.Int32
}

func (c *countingStore) List(ctx context.Context) ([]domain.ReportInfo, error) {
	c.lists.Add(1)
	return nil, nil
}

func TestStart_SweepsImmediatelyAndStopsOnCancel(t *testing.T) {
	store := &countingStore{}
	sweeper := workers.NewRetentionSweeper(store, nil, discard, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.lists.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
	assert.Equal(t, int32(1), store.lists.Load())
}

func TestStart_RunsPeriodically(t *testing.T) {
	store := &countingStore{}
	sweeper := workers.NewRetentionSweeper(store, nil, discard, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Start(ctx)

	require.Eventually(t, func() bool { return store.lists.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
}
