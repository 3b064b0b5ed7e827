package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/pkg/export"
	"github.com/noah-isme/sma-adp-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func sampleTimetable(id string, version int) *models.Timetable {
	grid := `{"Mon":{"1":{"code":"CS101","name":"Data Structures","faculty_name":"Dr. Rao","room":"LH-1","type":"Theory"},"2":null},"Tue":{"5":{"code":"CS102L","name":"DS Lab","faculty_name":"Dr. Rao","room":"LAB-2","type":"LAB"}}}`
	return &models.Timetable{
		ID:        id,
		BatchID:   "batch-cs-3a",
		Version:   version,
		Status:    models.TimetableStatusPublished,
		GridJSON:  []byte(grid),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	timetable := sampleTimetable("tt-1", 1)

	result, err := svc.Generate(timetable, models.ExportFormatCSV)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/export/")

	path := store.Path(result.RelativePath)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	timetable := sampleTimetable("tt-2", 2)

	result, err := svc.Generate(timetable, models.ExportFormatPDF)
	require.NoError(t, err)
	require.Equal(t, models.ExportFormatPDF, result.Format)

	path := filepath.Clean(store.Path(result.RelativePath))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceRejectsUnsupportedFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	timetable := sampleTimetable("tt-3", 1)

	_, err := svc.Generate(timetable, models.ExportFormat("xml"))
	require.Error(t, err)
}

func TestExportServiceParseAndCleanup(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	timetable := sampleTimetable("tt-4", 1)

	result, err := svc.Generate(timetable, models.ExportFormatCSV)
	require.NoError(t, err)

	id, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	require.Equal(t, timetable.ID, id)
	require.Equal(t, result.RelativePath, relPath)

	require.NoError(t, svc.Delete(result.RelativePath))
}
