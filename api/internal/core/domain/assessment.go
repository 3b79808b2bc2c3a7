package domain

import (
	"context"
	"time"
)

// Assessment is the record a report is generated from. MonthlySpend is
// plaintext only in transit; at rest it lives in MonthlySpendEncrypted.
type Assessment struct {
	ID                    string         `json:"assessment_id"`
	BusinessName          string         `json:"business_name"`
	MonthlySpend          string         `json:"monthly_spend,omitempty"`
	MonthlySpendEncrypted *EncryptedBlob `json:"-"`
	ReportID              string         `json:"report_id,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// AssessmentRepository is the persistence contract for assessments.
// Implementations must never receive a populated MonthlySpend.
type AssessmentRepository interface {
	Upsert(ctx context.Context, a *Assessment) error
	GetByID(ctx context.Context, id string) (*Assessment, error)
	SetReportID(ctx context.Context, id string, reportID string) error
}
