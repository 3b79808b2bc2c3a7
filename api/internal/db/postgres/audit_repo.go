package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"reportvault/api/internal/core/domain"
)

// DownloadAttemptRepository is the persistent security log for downloads.
type DownloadAttemptRepository struct {
	pool *pgxpool.Pool
}

var _ domain.DownloadAttemptLog = (*DownloadAttemptRepository)(nil)

func NewDownloadAttemptRepository(pool *pgxpool.Pool) *DownloadAttemptRepository {
	return &DownloadAttemptRepository{pool: pool}
}

func (r *DownloadAttemptRepository) Record(ctx context.Context, a *domain.DownloadAttempt) error {
	query := `
		INSERT INTO download_attempts (ip, user_agent, report_id, success, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query, a.IP, a.UserAgent, a.ReportID, a.Success, a.Reason, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record download attempt: %w", err)
	}
	return nil
}
