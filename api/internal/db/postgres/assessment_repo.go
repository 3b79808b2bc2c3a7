package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"reportvault/api/internal/core/domain"
)

// AssessmentRepository implements domain.AssessmentRepository with sqlx.
type AssessmentRepository struct {
	db *sqlx.DB
}

var _ domain.AssessmentRepository = (*AssessmentRepository)(nil)

func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

type assessmentRow struct {
	ID                    string         `db:"id"`
	BusinessName          string         `db:"business_name"`
	MonthlySpendEncrypted []byte         `db:"monthly_spend_encrypted"`
	ReportID              sql.NullString `db:"report_id"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

// Upsert persists the assessment. Only the encrypted blob reaches the database.
func (r *AssessmentRepository) Upsert(ctx context.Context, a *domain.Assessment) error {
	if a.MonthlySpend != "" {
		return errors.New("refusing to persist plaintext monthly spend")
	}

	var blob []byte
	if a.MonthlySpendEncrypted != nil {
		var err error
		if blob, err = json.Marshal(a.MonthlySpendEncrypted); err != nil {
			return fmt.Errorf("failed to encode blob: %w", err)
		}
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	row := assessmentRow{
		ID:                    a.ID,
		BusinessName:          a.BusinessName,
		MonthlySpendEncrypted: blob,
		ReportID:              sql.NullString{String: a.ReportID, Valid: a.ReportID != ""},
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}

	query := `
		INSERT INTO assessments (id, business_name, monthly_spend_encrypted, report_id, created_at, updated_at)
		VALUES (:id, :business_name, :monthly_spend_encrypted, :report_id, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			business_name = EXCLUDED.business_name,
			monthly_spend_encrypted = EXCLUDED.monthly_spend_encrypted,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to upsert assessment: %w", err)
	}
	return nil
}

func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*domain.Assessment, error) {
	var row assessmentRow
	query := `SELECT id, business_name, monthly_spend_encrypted, report_id, created_at, updated_at FROM assessments WHERE id = $1`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch assessment: %w", err)
	}

	a := &domain.Assessment{
		ID:           row.ID,
		BusinessName: row.BusinessName,
		ReportID:     row.ReportID.String,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if len(row.MonthlySpendEncrypted) > 0 {
		var blob domain.EncryptedBlob
		if err := json.Unmarshal(row.MonthlySpendEncrypted, &blob); err != nil {
			return nil, fmt.Errorf("stored blob for %s: %w", id, domain.ErrFormat)
		}
		a.MonthlySpendEncrypted = &blob
	}
	return a, nil
}

func (r *AssessmentRepository) SetReportID(ctx context.Context, id string, reportID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE assessments SET report_id = $1, updated_at = NOW() WHERE id = $2`, reportID, id)
	if err != nil {
		return fmt.Errorf("failed to link report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
