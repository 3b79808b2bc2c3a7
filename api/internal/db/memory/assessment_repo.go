// Package memory holds process-local repositories for development and tests.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"reportvault/api/internal/core/domain"
)

type AssessmentRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Assessment
}

var _ domain.AssessmentRepository = (*AssessmentRepository)(nil)

func NewAssessmentRepository() *AssessmentRepository {
	return &AssessmentRepository{items: make(map[string]domain.Assessment)}
}

func (r *AssessmentRepository) Upsert(ctx context.Context, a *domain.Assessment) error {
	if a.MonthlySpend != "" {
		return errors.New("refusing to persist plaintext monthly spend")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if prev, ok := r.items[a.ID]; ok {
		a.CreatedAt = prev.CreatedAt
		if a.ReportID == "" {
			a.ReportID = prev.ReportID
		}
	} else if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	stored := *a
	if a.MonthlySpendEncrypted != nil {
		blob := *a.MonthlySpendEncrypted
		stored.MonthlySpendEncrypted = &blob
	}
	r.items[a.ID] = stored
	return nil
}

func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*domain.Assessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if a.MonthlySpendEncrypted != nil {
		blob := *a.MonthlySpendEncrypted
		a.MonthlySpendEncrypted = &blob
	}
	return &a, nil
}

func (r *AssessmentRepository) SetReportID(ctx context.Context, id string, reportID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.ReportID = reportID
	a.UpdatedAt = time.Now().UTC()
	r.items[id] = a
	return nil
}
