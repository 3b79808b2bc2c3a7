package domain

import (
	"context"
	"io/fs"
	"os"
	"time"
)

// Report is a generated artifact persisted in the report store.
// ID is store-generated: report_<owner>_<epochMillis>.pdf
type Report struct {
	ID        string    `json:"report_id"`
	OwnerID   string    `json:"assessment_id"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ReportInfo describes a stored file as seen by the retention sweeper.
type ReportInfo struct {
	Name     string
	Size     int64
	Modified time.Time
}

// ReportStore is the on-disk artifact store contract.
type ReportStore interface {
	Save(ctx context.Context, content []byte, ownerID string) (*Report, error)

	// Resolve validates the identifier grammar before touching the filesystem.
	Resolve(ctx context.Context, reportID string) (string, error)

	// Open resolves and opens a report for streaming.
	Open(ctx context.Context, reportID string) (*os.File, fs.FileInfo, error)

	// Delete is idempotent: a missing report is not an error.
	Delete(ctx context.Context, reportID string) error

	List(ctx context.Context) ([]ReportInfo, error)
	Remove(ctx context.Context, name string) error
}

// DownloadToken is a stateless capability bound to exactly one report.
// ExpiresAt always equals IssuedAt plus the issuer's fixed TTL.
type DownloadToken struct {
	Value     string
	ReportID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// DownloadTokenWire is the JSON shape handed to the producer and echoed back
// by the consumer. Expires is epoch milliseconds.
type DownloadTokenWire struct {
	Token        string `json:"token"`
	AssessmentID string `json:"assessmentId"`
	Expires      int64  `json:"expires"`
}

// DownloadAttempt is a security log record. It never carries token material.
type DownloadAttempt struct {
	IP        string    `db:"ip" json:"ip"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	ReportID  string    `db:"report_id" json:"report_id"`
	Success   bool      `db:"success" json:"success"`
	Reason    string    `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DownloadAttemptLog persists download attempts for security monitoring.
type DownloadAttemptLog interface {
	Record(ctx context.Context, attempt *DownloadAttempt) error
}

// AttemptThrottle caps download attempts per client key within a window.
type AttemptThrottle interface {
	CheckAndRecord(clientKey string) bool
}
