package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"

	"production-platform/internal/services"
	"production-platform/pkg/logging"
	"production-platform/pkg/metrics"
)

// Shared test fixtures. The metrics collector registers on the default
// Prometheus registry, so one instance serves the whole package.
var (
	testLogger  = newTestLogger()
	testMetrics = metrics.NewCollector("handlers_test")
)

func newTestLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func newTestRouter() (*ReportHandler, *mux.Router) {
	ingestion := services.NewIngestionService(testLogger, testMetrics)
	stats := services.NewStatisticsService(testLogger, testMetrics)
	reportService := services.NewReportService(ingestion, stats, nil, testLogger, testMetrics)

	handler := NewReportHandler(reportService, testLogger, testMetrics)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	return handler, router
}

// buildWorkbookBytes serializes the given rows into an .xlsx workbook
func buildWorkbookBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("failed to write workbook row %d: %v", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to serialize workbook: %v", err)
	}

	return buf.Bytes()
}

// uploadRequest builds a multipart POST /api/reports request
func uploadRequest(t *testing.T, fileName string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/reports", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func validReportRows() [][]interface{} {
	return [][]interface{}{
		{"Date", "Plant Name", "Production for the Day (m³)", "Accumulative Production (m³)"},
		{"2023-01-02", "P1", 10.0, 100.0},
		{"2023-01-06", "P2", 50.0, 500.0},
		{"2023-01-03", "P3", 20.0, 120.0},
	}
}

func TestReportHandler_UploadReport(t *testing.T) {
	_, router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "daily.xlsx", buildWorkbookBytes(t, validReportRows())))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}

	var result services.ReportResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if result.NoData {
		t.Error("no_data = true, want false")
	}
	if result.Summary == nil {
		t.Fatal("summary missing from response")
	}
	if result.Summary.TotalProduction != 30 {
		t.Errorf("total_production = %v, want 30", result.Summary.TotalProduction)
	}
	if result.Summary.TopPlantName != "P3" {
		t.Errorf("top_plant_name = %v, want P3", result.Summary.TopPlantName)
	}
}

func TestReportHandler_UploadReport_SchemaError(t *testing.T) {
	_, router := newTestRouter()

	rows := [][]interface{}{
		{"Date", "Plant Name", "Accumulative Production (m³)"},
		{"2023-01-02", "P1", 100.0},
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "broken.xlsx", buildWorkbookBytes(t, rows)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Code != http.StatusBadRequest {
		t.Errorf("error code = %d, want 400", errResp.Code)
	}
}

func TestReportHandler_UploadReport_RejectsNonXlsx(t *testing.T) {
	_, router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "report.csv", []byte("Date,Plant Name\n")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestReportHandler_UploadReport_NoData(t *testing.T) {
	_, router := newTestRouter()

	rows := [][]interface{}{
		{"Date", "Plant Name", "Production for the Day (m³)", "Accumulative Production (m³)"},
		{"2023-01-06", "P1", 10.0, 100.0},
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "friday.xlsx", buildWorkbookBytes(t, rows)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}

	var result services.ReportResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.NoData {
		t.Error("no_data = false, want true")
	}
	if result.Summary != nil {
		t.Errorf("summary = %v, want absent", result.Summary)
	}
}

func TestReportHandler_GetLatestReport(t *testing.T) {
	_, router := newTestRouter()

	// Before any upload
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/reports/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status before upload = %d, want 404", rec.Code)
	}

	// Upload, then fetch the session result
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "daily.xlsx", buildWorkbookBytes(t, validReportRows())))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/reports/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status after upload = %d, want 200", rec.Code)
	}

	var result services.ReportResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.FileName != "daily.xlsx" {
		t.Errorf("file_name = %v, want daily.xlsx", result.FileName)
	}
}

func TestReportHandler_HistoryWithoutArchive(t *testing.T) {
	_, router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/reports", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestReportHandler_HealthCheck(t *testing.T) {
	_, router := newTestRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var status map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", status["status"])
	}
}
