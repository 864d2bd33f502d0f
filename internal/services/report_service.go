package services

import (
	"context"
	"errors"
	"io"
	"time"

	"production-platform/internal/models"
	"production-platform/internal/repository"
	"production-platform/pkg/logging"
	"production-platform/pkg/metrics"
)

// ErrArchiveDisabled is returned by archive queries when no report archive
// database is configured.
var ErrArchiveDisabled = errors.New("report archive not configured")

// ReportService runs the full pipeline over an uploaded workbook:
// ingestion, calendar filter, aggregation, and optional archiving of the
// derived output. Each run is an independent synchronous computation; results
// are never merged with prior runs.
type ReportService struct {
	ingestion *IngestionService
	stats     *StatisticsService
	repo      repository.ReportRepository // nil when archiving is disabled
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// ReportResult is the outcome of one pipeline run: the filtered dataset, the
// derived summary, and per-stage row counters. NoData is set when the
// calendar filter removed every record; Summary is nil in that case.
type ReportResult struct {
	FileName        string                   `json:"file_name"`
	UploadedAt      time.Time                `json:"uploaded_at"`
	NoData          bool                     `json:"no_data"`
	RowsParsed      int                      `json:"rows_parsed"`
	RowsInvalidDate int                      `json:"rows_invalid_date"`
	RowsExcluded    int                      `json:"rows_excluded"`
	RowsAggregated  int                      `json:"rows_aggregated"`
	Records         models.ProductionDataset `json:"records"`
	Summary         *models.SummaryMetrics   `json:"summary,omitempty"`
	UploadID        int64                    `json:"upload_id,omitempty"`
}

// NewReportService creates a new report service. repo may be nil, in which
// case derived output is not archived and history queries fail with
// ErrArchiveDisabled.
func NewReportService(
	ingestion *IngestionService,
	stats *StatisticsService,
	repo repository.ReportRepository,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ReportService {
	return &ReportService{
		ingestion: ingestion,
		stats:     stats,
		repo:      repo,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// ProcessReport runs the pipeline over one uploaded workbook.
//
// Errors are all-or-nothing: a *models.SchemaError or unreadable workbook
// yields no partial result. The empty-result condition is not an error; it
// comes back as a ReportResult with NoData set so the caller can present a
// "no data" state.
func (s *ReportService) ProcessReport(ctx context.Context, r io.Reader, fileName string) (*ReportResult, error) {
	startTime := time.Now()
	s.metrics.UploadsTotal.Inc()

	s.logger.Info(ctx, "[PIPELINE_START] Processing daily report", logging.Fields{
		"file_name": fileName,
		"stage":     "INITIALIZATION",
	})

	dataset, parseStats, err := s.ingestion.ParseWorkbook(ctx, r)
	if err != nil {
		s.logger.Error(ctx, "[PIPELINE_INGEST_ERROR] Ingestion failed", logging.Fields{
			"file_name": fileName,
			"stage":     "NORMALIZATION",
		}, err)
		return nil, err
	}

	result := &ReportResult{
		FileName:        fileName,
		UploadedAt:      time.Now().UTC(),
		RowsParsed:      parseStats.RowsParsed,
		RowsInvalidDate: parseStats.RowsInvalidDate,
	}

	filtered, err := ApplyCalendarFilter(dataset)
	if errors.Is(err, models.ErrEmptyResult) {
		result.NoData = true
		result.Records = filtered
		result.RowsExcluded = len(dataset) - parseStats.RowsInvalidDate
		s.metrics.ExcludedRowsTotal.Add(float64(result.RowsExcluded))

		s.logger.Warn(ctx, "[PIPELINE_NO_DATA] Calendar filter removed every record", logging.Fields{
			"file_name":   fileName,
			"rows_parsed": parseStats.RowsParsed,
			"stage":       "CALENDAR_FILTER",
		})

		s.archive(ctx, result)
		s.metrics.PipelineDuration.Observe(time.Since(startTime).Seconds())
		return result, nil
	}

	result.Records = filtered
	result.RowsExcluded = len(dataset) - parseStats.RowsInvalidDate - len(filtered)
	result.RowsAggregated = len(filtered)

	s.metrics.ExcludedRowsTotal.Add(float64(result.RowsExcluded))

	summary, err := s.stats.Summarize(ctx, filtered)
	if err != nil {
		// Unreachable when the empty-result condition above is honored
		s.logger.Error(ctx, "[PIPELINE_STATS_ERROR] Aggregation failed", logging.Fields{
			"file_name": fileName,
			"stage":     "AGGREGATION",
		}, err)
		return nil, err
	}
	result.Summary = summary

	s.archive(ctx, result)

	duration := time.Since(startTime)
	s.metrics.PipelineDuration.Observe(duration.Seconds())

	s.logger.Info(ctx, "[PIPELINE_COMPLETE] Daily report processed", logging.Fields{
		"file_name":         fileName,
		"rows_parsed":       result.RowsParsed,
		"rows_invalid_date": result.RowsInvalidDate,
		"rows_excluded":     result.RowsExcluded,
		"rows_aggregated":   result.RowsAggregated,
		"total_production":  summary.TotalProduction,
		"top_plant":         summary.TopPlantName,
		"duration_ms":       duration.Milliseconds(),
		"stage":             "COMPLETE",
	})

	return result, nil
}

// archive persists the derived snapshot of a run when a repository is
// configured. Archive failures are logged but never fail the pipeline; the
// caller still gets the computed result.
func (s *ReportService) archive(ctx context.Context, result *ReportResult) {
	if s.repo == nil {
		return
	}

	report := &models.UploadReport{
		FileName:        result.FileName,
		UploadedAt:      result.UploadedAt,
		RowsParsed:      result.RowsParsed,
		RowsInvalidDate: result.RowsInvalidDate,
		RowsExcluded:    result.RowsExcluded,
		RowsAggregated:  result.RowsAggregated,
		CreatedAt:       time.Now().UTC(),
	}

	if result.Summary != nil {
		report.TotalProduction = result.Summary.TotalProduction
		report.TopPlantName = result.Summary.TopPlantName
		report.TopPlantValue = result.Summary.TopPlantValue
	}

	plantRows := make([]*models.UploadPlantRow, 0, len(result.Records))
	for i, record := range result.Records {
		plantRows = append(plantRows, &models.UploadPlantRow{
			Position:       i,
			PlantName:      record.PlantName,
			ProductionM3:   record.ProductionForDay,
			AccumulativeM3: record.AccumulativeProduction,
		})
	}

	if err := s.repo.CreateUploadReport(ctx, report, plantRows); err != nil {
		s.metrics.RecordPipelineError("archive_error")
		s.logger.Error(ctx, "[PIPELINE_ARCHIVE_ERROR] Failed to archive report snapshot", logging.Fields{
			"file_name": result.FileName,
		}, err)
		return
	}

	result.UploadID = report.ID

	s.logger.Debug(ctx, "[PIPELINE_ARCHIVED] Report snapshot archived", logging.Fields{
		"file_name": result.FileName,
		"upload_id": report.ID,
	})
}

// GetUploadReports retrieves archived report snapshots with filtering
func (s *ReportService) GetUploadReports(ctx context.Context, filter repository.ReportFilter) ([]*models.UploadReport, int, error) {
	if s.repo == nil {
		return nil, 0, ErrArchiveDisabled
	}
	return s.repo.GetUploadReports(ctx, filter)
}

// GetUploadReport retrieves one archived report snapshot with its plant rows
func (s *ReportService) GetUploadReport(ctx context.Context, id int64) (*models.UploadReport, []*models.UploadPlantRow, error) {
	if s.repo == nil {
		return nil, nil, ErrArchiveDisabled
	}
	return s.repo.GetUploadReport(ctx, id)
}
