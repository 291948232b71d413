package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sepandmal/karname-api/internal/models"
	"github.com/sepandmal/karname-api/pkg/export"
	"github.com/sepandmal/karname-api/pkg/storage"
)

type rankingComputer interface {
	Compute(ctx context.Context, req RankingRequest) (*models.RankingResult, bool, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// exportPageLimit is the page size used when walking the full ranking for an
// export. It matches the largest page the ranking endpoint serves.
const exportPageLimit = 100

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportRequest describes one ranking export.
type ExportRequest struct {
	Ranking RankingRequest
	Format  models.ExportFormat
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	ExportID     string
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders computed rankings into downloadable CSV or PDF files
// and signs time-limited download URLs for them.
type ExportService struct {
	rankings rankingComputer
	students StudentReader
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(rankings rankingComputer, students StudentReader, fs fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		rankings: rankings,
		students: students,
		storage:  fs,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate computes the requested ranking, renders it and stores the file.
func (s *ExportService) Generate(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if !req.Format.Valid() {
		return nil, fmt.Errorf("unsupported format %s", req.Format)
	}

	entries, err := s.collectEntries(ctx, req.Ranking)
	if err != nil {
		return nil, err
	}
	dataset, err := s.buildDataset(ctx, req.Ranking.ClassID, entries)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch req.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, s.buildTitle(req.Ranking))
	}
	if err != nil {
		return nil, err
	}

	exportID := uuid.NewString()
	relPath, err := s.storage.Save(s.buildFilename(req, exportID), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		ExportID:     exportID,
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/rankings/export/download?token=%s", prefix, token),
		Format:       req.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// collectEntries pages through the ranking so the exported file carries the
// whole cohort, not just the page the caller happened to request.
func (s *ExportService) collectEntries(ctx context.Context, req RankingRequest) ([]models.RankEntry, error) {
	page := req
	page.Offset = 0
	page.Limit = exportPageLimit

	var entries []models.RankEntry
	for {
		result, _, err := s.rankings.Compute(ctx, page)
		if err != nil {
			return nil, err
		}
		entries = append(entries, result.OverallRanking.Entries...)
		if !result.OverallRanking.HasMore || len(result.OverallRanking.Entries) == 0 {
			return entries, nil
		}
		page.Offset += len(result.OverallRanking.Entries)
	}
}

func (s *ExportService) buildDataset(ctx context.Context, classID string, entries []models.RankEntry) (export.Dataset, error) {
	names := map[string]string{}
	if s.students != nil {
		students, err := s.students.ListActiveByClass(ctx, classID)
		if err != nil {
			return export.Dataset{}, fmt.Errorf("load students for export: %w", err)
		}
		for _, st := range students {
			names[st.ID] = st.FullName
		}
	}

	dataset := export.Dataset{Headers: []string{"Rank", "Student", "Average"}}
	for _, entry := range entries {
		name := names[entry.SubjectID]
		if name == "" {
			name = entry.SubjectID
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Rank":    strconv.Itoa(entry.Rank),
			"Student": name,
			"Average": strconv.FormatFloat(entry.Average, 'f', 2, 64),
		})
	}
	return dataset, nil
}

func (s *ExportService) buildTitle(req RankingRequest) string {
	if req.Month > 0 {
		return fmt.Sprintf("Class Ranking %d/%d", req.Year, req.Month)
	}
	return fmt.Sprintf("Class Ranking %d", req.Year)
}

func (s *ExportService) buildFilename(req ExportRequest, exportID string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	classPart := sanitizeFilename(req.Ranking.ClassID)
	return fmt.Sprintf("ranking_%s_%d_%s_%s.%s", classPart, req.Ranking.Year, timestamp, exportID[:8], req.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
