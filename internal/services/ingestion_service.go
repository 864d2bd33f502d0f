package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"production-platform/internal/models"
	"production-platform/pkg/logging"
	"production-platform/pkg/metrics"
)

// headerScanLimit bounds how deep into a sheet the header row is searched.
// Real uploads carry the header in the first few rows; anything beyond that
// is not a daily report sheet.
const headerScanLimit = 10

// IngestionService parses uploaded daily report workbooks into normalized
// production datasets.
type IngestionService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// ParseStats contains per-upload ingestion counters
type ParseStats struct {
	RowsParsed      int
	RowsInvalidDate int
	RowsSkipped     int
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// requiredColumns lists the schema every daily report must carry.
var requiredColumns = []string{
	models.ColumnDate,
	models.ColumnPlantName,
	models.ColumnProduction,
	models.ColumnAccumulative,
}

// ParseWorkbook reads an .xlsx daily report and produces the normalized
// dataset. Column labels are whitespace-trimmed before schema matching; a
// missing required column fails with *models.SchemaError before any data row
// is converted. Unparseable date cells become nil-date markers and the rows
// are retained for the calendar filter to drop.
func (s *IngestionService) ParseWorkbook(ctx context.Context, r io.Reader) (models.ProductionDataset, *ParseStats, error) {
	startTime := time.Now()

	f, err := excelize.OpenReader(r)
	if err != nil {
		s.metrics.RecordPipelineError("workbook_open_error")
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheetName, rows, headerRow, columnMap, err := s.locateReportSheet(f)
	if err != nil {
		return nil, nil, err
	}

	// Fail on schema before touching any data row
	for _, column := range requiredColumns {
		if _, ok := columnMap[column]; !ok {
			s.metrics.RecordPipelineError("schema_error")
			s.logger.Warn(ctx, "[INGEST_SCHEMA_ERROR] Required column missing", logging.Fields{
				"sheet":  sheetName,
				"column": column,
				"stage":  "SCHEMA_VALIDATION",
			})
			return nil, nil, &models.SchemaError{Column: column}
		}
	}

	stats := &ParseStats{}
	dataset := make(models.ProductionDataset, 0, len(rows)-headerRow-1)

	cell := func(row []string, column string) string {
		idx := columnMap[column]
		if idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]

		raw := models.RawReportRow{
			Date:                   cell(row, models.ColumnDate),
			PlantName:              cell(row, models.ColumnPlantName),
			ProductionForDay:       cell(row, models.ColumnProduction),
			AccumulativeProduction: cell(row, models.ColumnAccumulative),
		}

		// Blank plant name means a spacer or totals row, not a record
		if strings.TrimSpace(raw.PlantName) == "" {
			stats.RowsSkipped++
			continue
		}

		record := raw.ToRecord()
		if record.Date == nil {
			stats.RowsInvalidDate++
			s.metrics.InvalidDateRowsTotal.Inc()
			s.logger.Debug(ctx, "[INGEST_INVALID_DATE] Date cell could not be parsed", logging.Fields{
				"row":        i + 1,
				"plant_name": record.PlantName,
				"date_cell":  raw.Date,
			})
		}

		dataset = append(dataset, record)
		stats.RowsParsed++
		s.metrics.RowsParsedTotal.Inc()
	}

	s.logger.Info(ctx, "[INGEST_COMPLETE] Workbook normalized", logging.Fields{
		"sheet":             sheetName,
		"rows_parsed":       stats.RowsParsed,
		"rows_invalid_date": stats.RowsInvalidDate,
		"rows_skipped":      stats.RowsSkipped,
		"duration_ms":       time.Since(startTime).Milliseconds(),
		"stage":             "NORMALIZATION",
	})

	return dataset, stats, nil
}

// ParseWorkbookFile opens a workbook from disk and parses it
func (s *IngestionService) ParseWorkbookFile(ctx context.Context, path string) (models.ProductionDataset, *ParseStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return s.ParseWorkbook(ctx, file)
}

// locateReportSheet finds the sheet and header row carrying the daily report
// table. The header is the first row within the scan limit where at least two
// expected column labels appear after trimming; all header cells are mapped
// by their trimmed label. Requiring only two lets a report with one missing
// column still be recognized, so the schema check can name the missing one.
func (s *IngestionService) locateReportSheet(f *excelize.File) (string, [][]string, int, map[string]int, error) {
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}

		for i := 0; i < len(rows) && i < headerScanLimit; i++ {
			columnMap := make(map[string]int)
			for j, header := range rows[i] {
				label := strings.TrimSpace(header)
				if label == "" {
					continue
				}
				if _, exists := columnMap[label]; !exists {
					columnMap[label] = j
				}
			}

			matched := 0
			for _, column := range requiredColumns {
				if _, ok := columnMap[column]; ok {
					matched++
				}
			}
			if matched >= 2 {
				return sheetName, rows, i, columnMap, nil
			}
		}
	}

	return "", nil, 0, nil, fmt.Errorf("could not find daily report sheet in workbook")
}
