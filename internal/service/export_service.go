package service

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/scheduler"
	"github.com/noah-isme/sma-adp-api/pkg/export"
	"github.com/noah-isme/sma-adp-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders a committed timetable's grid to a downloadable CSV
// or PDF file. This is a read-only "print this timetable" convenience
// supplementing spec §1's explicit Non-goal of the substitution workflow's
// PDF generation: that workflow (and email delivery) remains out of scope,
// but a plain grid export is not the same feature.
type ExportService struct {
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
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
	return &ExportService{storage: store, csv: csv, pdf: pdf, signer: signer, logger: logger, cfg: cfg}
}

// Generate renders timetable's grid in the requested format and persists it
// to storage, returning a signed, time-limited download token the same way
// every other signed-URL export in this codebase works.
func (s *ExportService) Generate(timetable *models.Timetable, format models.ExportFormat) (*ExportResult, error) {
	if timetable == nil {
		return nil, fmt.Errorf("timetable nil")
	}
	dataset, title, err := s.buildDataset(timetable)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(timetable, format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(timetable.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	url := fmt.Sprintf("%s/export/%s", prefix, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          url,
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (id, relPath string, expiresAt time.Time, err error) {
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

// Cleanup removes files older than ttl (defaults to the configured
// ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(timetable *models.Timetable, format models.ExportFormat) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("timetable_%s_v%d_%s.%s", sanitizeFilename(timetable.BatchID), timetable.Version, timestamp, format)
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

// buildDataset walks the wire grid in Day/Slot order and emits one row per
// occupied slot of this timetable, with Day, Slot, Code, Name, Faculty,
// Room and Type columns. The batch is not a column; it appears only in the
// PDF title and the file name. A lab's two slots each get their own row,
// since the grid already repeats the cell across its span.
func (s *ExportService) buildDataset(timetable *models.Timetable) (export.Dataset, string, error) {
	grid := make(models.Grid)
	if len(timetable.GridJSON) > 0 {
		if err := json.Unmarshal(timetable.GridJSON, &grid); err != nil {
			return export.Dataset{}, "", fmt.Errorf("decode timetable grid: %w", err)
		}
	}

	headers := []string{"Day", "Slot", "Code", "Name", "Faculty", "Room", "Type"}
	var rows []map[string]string
	for _, day := range scheduler.Days {
		daySlots := grid[day.String()]
		for slot := scheduler.MinSlot; slot <= scheduler.MaxSlot; slot++ {
			cell := daySlots[strconv.Itoa(slot)]
			if cell == nil {
				continue
			}
			rows = append(rows, map[string]string{
				"Day":     day.String(),
				"Slot":    strconv.Itoa(slot),
				"Code":    cell.Code,
				"Name":    cell.Name,
				"Faculty": cell.FacultyName,
				"Room":    cell.Room,
				"Type":    string(cell.Type),
			})
		}
	}

	title := fmt.Sprintf("Timetable %s v%d", timetable.BatchID, timetable.Version)
	return export.Dataset{Headers: headers, Rows: rows}, title, nil
}
