package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"reportvault/api/internal/core/domain"
	"reportvault/api/internal/infrastructure/metrics"
	"reportvault/api/internal/infrastructure/ratelimit"
)

// DownloadRequest is everything a consumer presents to fetch a report.
type DownloadRequest struct {
	ClientIP  string
	UserAgent string
	ReportID  string
	Token     domain.DownloadTokenWire
}

// ReportService ties the store, download tokens and the attempt throttle
// into the producer and consumer flows.
type ReportService struct {
	store       domain.ReportStore
	tokens      *DownloadTokenService
	throttle    domain.AttemptThrottle
	attempts    domain.DownloadAttemptLog
	assessments domain.AssessmentRepository
	metrics     metrics.Metrics
	logger      *slog.Logger
}

func NewReportService(
	store domain.ReportStore,
	tokens *DownloadTokenService,
	throttle domain.AttemptThrottle,
	attempts domain.DownloadAttemptLog,
	assessments domain.AssessmentRepository,
	m metrics.Metrics,
	logger *slog.Logger,
) *ReportService {
	if m == nil {
		m = metrics.Noop{}
	}
	return &ReportService{
		store:       store,
		tokens:      tokens,
		throttle:    throttle,
		attempts:    attempts,
		assessments: assessments,
		metrics:     m,
		logger:      logger,
	}
}

// Publish persists a rendered report for assessmentID and mints its download token.
func (s *ReportService) Publish(ctx context.Context, assessmentID string, content []byte) (*domain.Report, *domain.DownloadToken, error) {
	report, err := s.store.Save(ctx, content, assessmentID)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.IncReportsSaved()

	if s.assessments != nil {
		err := s.assessments.SetReportID(ctx, assessmentID, report.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Failed to link report to assessment",
				slog.String("assessment_id", assessmentID),
				slog.String("report_id", report.ID),
				slog.Any("error", err))
		}
	}

	return report, s.tokens.Issue(report.ID), nil
}

// Download checks the throttle, validates the token against the requested
// report and opens it. The caller must close the returned file.
func (s *ReportService) Download(ctx context.Context, req DownloadRequest) (*os.File, fs.FileInfo, error) {
	// 1. 🛡️ Every attempt counts, including malformed ones
	if !s.throttle.CheckAndRecord(ratelimit.ClientKey(req.ClientIP, req.UserAgent)) {
		s.record(ctx, req, false, metrics.OutcomeThrottled)
		return nil, nil, domain.ErrThrottleExceeded
	}

	// 2. Capability check bound to this exact report
	if err := s.tokens.Validate(s.tokens.FromWire(req.Token), req.ReportID); err != nil {
		outcome := metrics.OutcomeInvalid
		if errors.Is(err, domain.ErrExpiredToken) {
			outcome = metrics.OutcomeExpired
		}
		s.record(ctx, req, false, outcome)
		return nil, nil, err
	}

	// 3. Grammar check and open
	f, info, err := s.store.Open(ctx, req.ReportID)
	if err != nil {
		outcome := metrics.OutcomeError
		switch {
		case errors.Is(err, domain.ErrInvalidIdentifier):
			outcome = metrics.OutcomeRejected
		case errors.Is(err, domain.ErrNotFound):
			outcome = metrics.OutcomeNotFound
		}
		s.record(ctx, req, false, outcome)
		return nil, nil, err
	}

	s.record(ctx, req, true, metrics.OutcomeServed)
	return f, info, nil
}

// Delete removes a report on explicit request.
func (s *ReportService) Delete(ctx context.Context, reportID string) error {
	if err := s.store.Delete(ctx, reportID); err != nil {
		return err
	}
	s.metrics.IncReportsDeleted("request")
	s.logger.Info("Report deleted on request", slog.String("report_id", reportID))
	return nil
}

func (s *ReportService) record(ctx context.Context, req DownloadRequest, success bool, outcome string) {
	s.metrics.IncDownload(outcome)

	attempt := &domain.DownloadAttempt{
		IP:        req.ClientIP,
		UserAgent: req.UserAgent,
		ReportID:  req.ReportID,
		Success:   success,
		CreatedAt: time.Now().UTC(),
	}
	if !success {
		attempt.Reason = outcome
	}

	s.logger.Info("Download attempt",
		slog.String("ip", attempt.IP),
		slog.String("report_id", attempt.ReportID),
		slog.Bool("success", success),
		slog.String("reason", attempt.Reason),
		slog.String("user_agent", attempt.UserAgent))

	if s.attempts == nil {
		return
	}
	if err := s.attempts.Record(ctx, attempt); err != nil {
		s.logger.Error("Failed to persist download attempt", slog.Any("error", fmt.Errorf("security log: %w", err)))
	}
}
