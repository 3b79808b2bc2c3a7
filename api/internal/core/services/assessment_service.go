package services

import (
	"context"
	"fmt"
	"log/slog"

	"reportvault/api/internal/core/domain"
)

type AssessmentService struct {
	repo          domain.AssessmentRepository
	cryptoService domain.CryptoService
	logger        *slog.Logger
}

func NewAssessmentService(
	repo domain.AssessmentRepository,
	crypto domain.CryptoService,
	logger *slog.Logger,
) *AssessmentService {
	return &AssessmentService{
		repo:          repo,
		cryptoService: crypto,
		logger:        logger,
	}
}

// Save encrypts the sensitive fields and persists the assessment.
// On return a.MonthlySpend is cleared; only the blob is stored.
func (s *AssessmentService) Save(ctx context.Context, a *domain.Assessment) error {
	if a.MonthlySpend != "" {
		blob, err := s.cryptoService.Encrypt(ctx, []byte(a.MonthlySpend))
		if err != nil {
			s.logger.Error("Encryption failure", slog.String("assessment_id", a.ID))
			return fmt.Errorf("cryptographic failure: %w", err)
		}
		a.MonthlySpendEncrypted = blob
		a.MonthlySpend = ""
	}

	return s.repo.Upsert(ctx, a)
}

// Get loads an assessment and decrypts its sensitive fields.
func (s *AssessmentService) Get(ctx context.Context, id string) (*domain.Assessment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if a.MonthlySpendEncrypted != nil {
		plaintext, err := s.cryptoService.Decrypt(ctx, a.MonthlySpendEncrypted)
		if err != nil {
			// 🛡️ Never log the blob or key material, only the record reference
			s.logger.Error("Stored field failed verification", slog.String("assessment_id", id), slog.Any("error", err))
			return nil, fmt.Errorf("failed to decrypt monthly spend: %w", err)
		}
		a.MonthlySpend = string(plaintext)
	}

	return a, nil
}

// AttachReport records the report generated for an assessment.
func (s *AssessmentService) AttachReport(ctx context.Context, id string, reportID string) error {
	return s.repo.SetReportID(ctx, id, reportID)
}
