package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"reportvault/api/internal/core/domain"
)

// Least-privilege modes for the store.
const (
	DirMode  fs.FileMode = 0o750 // rwxr-x---
	FileMode fs.FileMode = 0o644 // rw-r--r--

	reportPrefix = "report_"
	reportSuffix = ".pdf"
	tempPrefix   = ".upload-"

	// maxSaveAttempts bounds timestamp bumps on identifier collisions.
	maxSaveAttempts = 64
)

// reportIDPattern is the only accepted identifier grammar. Anything else is
// rejected before a path is ever built from it.
var reportIDPattern = regexp.MustCompile(`^report_[A-Za-z0-9_-]+_[0-9]+\.pdf$`)

// ownerIDPattern restricts the owner segment embedded into identifiers.
var ownerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidReportID reports whether id matches the identifier grammar.
func ValidReportID(id string) bool {
	return reportIDPattern.MatchString(id)
}

// ReportStore persists report artifacts in a single flat directory.
type ReportStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

var _ domain.ReportStore = (*ReportStore)(nil)

// NewReportStore ensures dir exists with DirMode. A pre-existing directory
// with any other mode is tightened and a warning is logged.
func NewReportStore(dir string, logger *slog.Logger) (*ReportStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve reports dir: %w", err)
	}

	s := &ReportStore{dir: abs, logger: logger, now: time.Now}
	if err := s.ensureDirectory(); err != nil {
		return nil, err
	}
	return s, nil
}

// WithClock swaps the time source used for identifiers. Intended for tests.
func (s *ReportStore) WithClock(now func() time.Time) *ReportStore {
	s.now = now
	return s
}

// Dir returns the absolute store directory.
func (s *ReportStore) Dir() string {
	return s.dir
}

func (s *ReportStore) ensureDirectory() error {
	info, err := os.Stat(s.dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(s.dir, DirMode); err != nil {
			return fmt.Errorf("storage: create reports dir: %w", err)
		}
		// 🛡️ The umask may have stripped bits; set the exact mode
		if err := os.Chmod(s.dir, DirMode); err != nil {
			return fmt.Errorf("storage: chmod reports dir: %w", err)
		}
		s.logger.Info("Created secure reports directory", slog.String("dir", s.dir))
		return nil
	case err != nil:
		return fmt.Errorf("storage: stat reports dir: %w", err)
	case !info.IsDir():
		return fmt.Errorf("storage: %s is not a directory", s.dir)
	}

	if mode := info.Mode().Perm(); mode != DirMode {
		s.logger.Warn("Reports directory has wrong permissions, fixing",
			slog.String("dir", s.dir),
			slog.String("mode", fmt.Sprintf("%#o", mode)),
			slog.String("want", fmt.Sprintf("%#o", DirMode)))
		if err := os.Chmod(s.dir, DirMode); err != nil {
			return fmt.Errorf("storage: tighten reports dir: %w", err)
		}
	}
	return nil
}

// DirMode returns the current permission bits of the store directory.
func (s *ReportStore) DirMode() (fs.FileMode, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		return 0, err
	}
	return info.Mode().Perm(), nil
}

// Save writes content under a fresh identifier report_<owner>_<millis>.pdf.
// The bytes land in a temp file first and are published with a hard link,
// which fails instead of overwriting when the identifier is taken.
func (s *ReportStore) Save(ctx context.Context, content []byte, ownerID string) (*domain.Report, error) {
	if !ownerIDPattern.MatchString(ownerID) {
		return nil, fmt.Errorf("storage: owner %q: %w", ownerID, domain.ErrInvalidIdentifier)
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("storage: write report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("storage: sync report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("storage: close report: %w", err)
	}
	if err := os.Chmod(tmpPath, FileMode); err != nil {
		return nil, fmt.Errorf("storage: chmod report: %w", err)
	}

	created := s.now().Truncate(time.Millisecond)
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := reportPrefix + ownerID + "_" + strconv.FormatInt(created.UnixMilli(), 10) + reportSuffix
		err := os.Link(tmpPath, filepath.Join(s.dir, id))
		if err == nil {
			s.logger.Info("Saved report with secure permissions", slog.String("report_id", id))
			return &domain.Report{
				ID:        id,
				OwnerID:   ownerID,
				Size:      int64(len(content)),
				CreatedAt: created,
			}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("storage: publish report: %w", err)
		}
		created = created.Add(time.Millisecond)
	}

	return nil, fmt.Errorf("storage: no free identifier for owner %q", ownerID)
}

// Resolve maps a report identifier to its on-disk path.
func (s *ReportStore) Resolve(ctx context.Context, reportID string) (string, error) {
	path, err := s.pathFor(reportID)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("storage: report %s: %w", reportID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("storage: stat report: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("storage: report %s: %w", reportID, domain.ErrNotFound)
	}
	return path, nil
}

// Open resolves and opens a report for streaming. A report deleted between
// the check and the open surfaces as ErrNotFound.
func (s *ReportStore) Open(ctx context.Context, reportID string) (*os.File, fs.FileInfo, error) {
	path, err := s.Resolve(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("storage: report %s: %w", reportID, domain.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("storage: open report: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("storage: stat report: %w", err)
	}
	return f, info, nil
}

// Delete removes a report. Deleting a missing report is not an error.
func (s *ReportStore) Delete(ctx context.Context, reportID string) error {
	path, err := s.pathFor(reportID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete report: %w", err)
	}
	return nil
}

// List returns every regular file the store owns: published reports and
// temp files left behind by interrupted saves.
func (s *ReportStore) List(ctx context.Context) ([]domain.ReportInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("storage: list reports: %w", err)
	}

	out := make([]domain.ReportInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !(ValidReportID(name) || strings.HasPrefix(name, tempPrefix)) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed since ReadDir
			continue
		}
		out = append(out, domain.ReportInfo{Name: name, Size: info.Size(), Modified: info.ModTime()})
	}
	return out, nil
}

// Remove deletes a listed entry by name. Names outside the store's own
// naming scheme are refused.
func (s *ReportStore) Remove(ctx context.Context, name string) error {
	if !ValidReportID(name) && !(strings.HasPrefix(name, tempPrefix) && filepath.Base(name) == name) {
		return fmt.Errorf("storage: entry %q: %w", name, domain.ErrInvalidIdentifier)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("storage: entry %s: %w", name, domain.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *ReportStore) pathFor(reportID string) (string, error) {
	// 🛡️ Sole traversal defense: reject, never sanitize
	if !ValidReportID(reportID) {
		return "", fmt.Errorf("storage: %w", domain.ErrInvalidIdentifier)
	}
	return filepath.Join(s.dir, reportID), nil
}
