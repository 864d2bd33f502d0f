package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"production-platform/internal/models"
	"production-platform/internal/repository"
	"production-platform/internal/services"
	"production-platform/pkg/logging"
	"production-platform/pkg/metrics"
)

// maxUploadBytes bounds the multipart form held in memory. Daily reports are
// a few kilobytes; anything near this limit is not a daily report.
const maxUploadBytes = 16 << 20

// ReportHandler handles production report API endpoints. It keeps the latest
// pipeline result in memory as the session state for the dashboard; the
// result is replaced wholesale on every upload.
type ReportHandler struct {
	reportService *services.ReportService
	logger        *logging.StructuredLogger
	metrics       *metrics.Collector

	mu     sync.RWMutex
	latest *services.ReportResult
}

// NewReportHandler creates a new report handler
func NewReportHandler(
	reportService *services.ReportService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
		metrics:       metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// UploadReport handles POST /api/reports
func (h *ReportHandler) UploadReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/reports").Observe(duration.Seconds())
	}()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.sendError(w, r, "expected multipart form with a 'file' field", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, r, "missing 'file' field in upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		h.sendError(w, r, "only .xlsx daily reports are accepted", http.StatusBadRequest)
		return
	}

	result, err := h.reportService.ProcessReport(ctx, file, header.Filename)
	if err != nil {
		var schemaErr *models.SchemaError
		if errors.As(err, &schemaErr) {
			h.metrics.RecordAPIError("schema_error", "/api/reports")
			h.sendError(w, r, schemaErr.Error(), http.StatusBadRequest)
			return
		}

		h.logger.Error(ctx, "[API_UPLOAD_ERROR] Failed to process report", logging.Fields{
			"file_name": header.Filename,
		}, err)
		h.metrics.RecordAPIError("pipeline_error", "/api/reports")
		h.sendError(w, r, "failed to process report workbook", http.StatusBadRequest)
		return
	}

	// Replace the session's current result wholesale
	h.mu.Lock()
	h.latest = result
	h.mu.Unlock()

	h.metrics.RecordAPIRequest("/api/reports", "POST", "200")
	h.sendJSON(w, result, http.StatusOK)
}

// GetLatestReport handles GET /api/reports/latest
func (h *ReportHandler) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	latest := h.latest
	h.mu.RUnlock()

	if latest == nil {
		h.sendError(w, r, "no report has been uploaded yet", http.StatusNotFound)
		return
	}

	h.metrics.RecordAPIRequest("/api/reports/latest", "GET", "200")
	h.sendJSON(w, latest, http.StatusOK)
}

// GetReportHistory handles GET /api/reports
func (h *ReportHandler) GetReportHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/reports").Observe(duration.Seconds())
	}()

	// Parse query parameters
	topPlant := r.URL.Query().Get("top_plant")
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	// Default pagination
	page := 1
	limit := 50

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	filter := repository.ReportFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if topPlant != "" {
		filter.TopPlantName = &topPlant
	}

	if fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			h.sendError(w, r, "invalid from date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.From = &from
	}

	if toStr != "" {
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			h.sendError(w, r, "invalid to date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.To = &to
	}

	reports, total, err := h.reportService.GetUploadReports(ctx, filter)
	if err != nil {
		if errors.Is(err, services.ErrArchiveDisabled) {
			h.sendError(w, r, "report archive not configured", http.StatusServiceUnavailable)
			return
		}

		h.logger.Error(ctx, "[API_HISTORY_ERROR] Failed to get report history", logging.Fields{
			"filter": filter,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/reports")
		h.sendError(w, r, "failed to retrieve report history", http.StatusInternalServerError)
		return
	}

	totalPages := (total + limit - 1) / limit

	response := PaginatedResponse{
		Data:       reports,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}

	h.metrics.RecordAPIRequest("/api/reports", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// ArchivedReportResponse is one archived report with its plant rows
type ArchivedReportResponse struct {
	Report    *models.UploadReport     `json:"report"`
	PlantRows []*models.UploadPlantRow `json:"plant_rows"`
}

// GetArchivedReport handles GET /api/reports/{id}
func (h *ReportHandler) GetArchivedReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.sendError(w, r, "invalid report id", http.StatusBadRequest)
		return
	}

	report, plantRows, err := h.reportService.GetUploadReport(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrArchiveDisabled) {
			h.sendError(w, r, "report archive not configured", http.StatusServiceUnavailable)
			return
		}

		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			h.sendError(w, r, notFound.Error(), http.StatusNotFound)
			return
		}

		h.logger.Error(ctx, "[API_GET_REPORT_ERROR] Failed to get archived report", logging.Fields{
			"report_id": id,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/reports/{id}")
		h.sendError(w, r, "failed to retrieve archived report", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/reports/{id}", "GET", "200")
	h.sendJSON(w, ArchivedReportResponse{Report: report, PlantRows: plantRows}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *ReportHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *ReportHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *ReportHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all report API routes
func (h *ReportHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/reports", h.UploadReport).Methods("POST")
	router.HandleFunc("/api/reports", h.GetReportHistory).Methods("GET")
	router.HandleFunc("/api/reports/latest", h.GetLatestReport).Methods("GET")
	router.HandleFunc("/api/reports/{id:[0-9]+}", h.GetArchivedReport).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
