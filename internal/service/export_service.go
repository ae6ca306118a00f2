package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"helplink/internal/metrics"
	"helplink/internal/models"
	"helplink/internal/pipeline"
	"helplink/internal/repository"
	"helplink/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ExportService interface {
	Export(ctx context.Context, format string, c pipeline.Criteria) (*ExportFile, error)
	History(ctx context.Context, limit int) ([]models.ExportRecord, error)
}

type ExportFile struct {
	ID          uuid.UUID `json:"id"`
	Path        string    `json:"path"`
	Filename    string    `json:"filename"`
	Format      string    `json:"format"`
	ContentType string    `json:"content_type"`
	Rows        int       `json:"rows"`
}

const exportPrefix = "helplink_donations_"

var contentTypes = map[string]string{
	"csv":  "text/csv",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"json": "application/json",
}

type exportService struct {
	dashboard DashboardService
	repo      repository.ExportRepository
	outputDir string
	retention time.Duration
	logger    *zap.Logger
}

// NewExportService writes exports under outputDir. repo may be nil, in
// which case exports are not recorded and History is unavailable.
// Export files older than retention are removed on the next export; a
// zero retention keeps them forever.
func NewExportService(
	dashboard DashboardService,
	repo repository.ExportRepository,
	outputDir string,
	retention time.Duration,
	logger *zap.Logger,
) ExportService {
	if outputDir == "" {
		outputDir = "./data/exports"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		logger.Warn("failed to create export directory", zap.String("dir", outputDir), zap.Error(err))
	}

	return &exportService{
		dashboard: dashboard,
		repo:      repo,
		outputDir: outputDir,
		retention: retention,
		logger:    logger,
	}
}

func normalizeFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "csv":
		return "csv", nil
	case "xlsx", "excel":
		return "xlsx", nil
	case "json":
		return "json", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func (s *exportService) Export(ctx context.Context, format string, c pipeline.Criteria) (*ExportFile, error) {
	format, err := normalizeFormat(format)
	if err != nil {
		return nil, err
	}

	report, err := s.dashboard.Dashboard(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to build report: %w", err)
	}

	s.prune(time.Now())

	id := uuid.New()
	filename := fmt.Sprintf(exportPrefix+"%s_%s.%s",
		time.Now().UTC().Format("20060102_150405"), id.String()[:8], format)
	path := filepath.Join(s.outputDir, filename)

	switch format {
	case "csv":
		err = utils.WriteDonationsCSV(path, report.Rows)
	case "xlsx":
		err = utils.CreateExcelReport(path, report.Rows, report.Result, []utils.InfoRow{
			{Key: "Source", Value: report.Source},
			{Key: "Generated At", Value: report.GeneratedAt.Format(time.RFC3339)},
			{Key: "From", Value: report.Criteria.From},
			{Key: "To", Value: report.Criteria.To},
			{Key: "Statuses", Value: strings.Join(report.Criteria.Statuses, ", ")},
		})
	case "json":
		err = utils.SaveAsJSON(path, struct {
			*Report
			Donations []pipeline.DonationRow `json:"donations"`
		}{report, report.Rows})
	}
	if err != nil {
		metrics.ExportsTotal.WithLabelValues(format, "error").Inc()
		return nil, fmt.Errorf("failed to write %s export: %w", format, err)
	}
	metrics.ExportsTotal.WithLabelValues(format, "ok").Inc()

	file := &ExportFile{
		ID:          id,
		Path:        path,
		Filename:    filename,
		Format:      format,
		ContentType: contentTypes[format],
		Rows:        len(report.Rows),
	}
	s.record(ctx, file, report.Criteria)

	s.logger.Info("export generated",
		zap.String("file", filename), zap.String("format", format), zap.Int("rows", file.Rows))
	return file, nil
}

// prune removes export files whose modification time is past the
// retention window. Files not written by this service are left alone.
func (s *exportService) prune(now time.Time) {
	if s.retention <= 0 {
		return
	}

	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		s.logger.Warn("failed to list export directory", zap.String("dir", s.outputDir), zap.Error(err))
		return
	}

	cutoff := now.Add(-s.retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), exportPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.outputDir, entry.Name())); err != nil {
			s.logger.Warn("failed to remove expired export", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("expired exports removed", zap.Int("files", removed), zap.Duration("retention", s.retention))
	}
}

func (s *exportService) record(ctx context.Context, file *ExportFile, criteria CriteriaView) {
	if s.repo == nil {
		return
	}

	payload, err := json.Marshal(criteria)
	if err != nil {
		s.logger.Warn("failed to encode export criteria", zap.Error(err))
		return
	}

	rec := &models.ExportRecord{
		ID:       file.ID,
		Format:   file.Format,
		Criteria: datatypes.JSON(payload),
		Rows:     file.Rows,
		FilePath: file.Path,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Warn("failed to record export", zap.String("file", file.Filename), zap.Error(err))
	}
}

func (s *exportService) History(ctx context.Context, limit int) ([]models.ExportRecord, error) {
	if s.repo == nil {
		return nil, ErrExportsDisabled
	}
	records, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return records, nil
}
