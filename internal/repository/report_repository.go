package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"production-platform/internal/models"
	"production-platform/pkg/database"
	"production-platform/pkg/logging"
	"production-platform/pkg/metrics"
)

// ReportRepository provides data access for the report archive. Only derived
// pipeline output is stored; input datasets are never persisted.
type ReportRepository interface {
	// Upload report operations
	CreateUploadReport(ctx context.Context, report *models.UploadReport, plantRows []*models.UploadPlantRow) error
	GetUploadReports(ctx context.Context, filter ReportFilter) ([]*models.UploadReport, int, error)
	GetUploadReport(ctx context.Context, id int64) (*models.UploadReport, []*models.UploadPlantRow, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// ReportFilter defines filters for querying archived reports
type ReportFilter struct {
	TopPlantName *string
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// reportRepository implements ReportRepository
type reportRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ReportRepository {
	return &reportRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CreateUploadReport stores an upload snapshot and its per-plant rows in one
// transaction. The generated id is written back to report.ID.
func (r *reportRepository) CreateUploadReport(ctx context.Context, report *models.UploadReport, plantRows []*models.UploadPlantRow) error {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.logger.Debug(ctx, "[REPO_CREATE_UPLOAD] Upload snapshot stored", logging.Fields{
			"file_name":   report.FileName,
			"plant_rows":  len(plantRows),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO upload_reports (
			file_name, uploaded_at,
			rows_parsed, rows_invalid_date, rows_excluded, rows_aggregated,
			total_production, top_plant_name, top_plant_value,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err = tx.QueryRowContext(ctx, query,
		report.FileName,
		report.UploadedAt,
		report.RowsParsed,
		report.RowsInvalidDate,
		report.RowsExcluded,
		report.RowsAggregated,
		report.TotalProduction,
		report.TopPlantName,
		report.TopPlantValue,
		report.CreatedAt,
	).Scan(&report.ID)

	if err != nil {
		return fmt.Errorf("failed to create upload report: %w", err)
	}

	if len(plantRows) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO upload_plant_rows (
				upload_id, position, plant_name, production_m3, accumulative_m3
			)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, row := range plantRows {
			row.UploadID = report.ID
			_, err := stmt.ExecContext(ctx,
				row.UploadID,
				row.Position,
				row.PlantName,
				row.ProductionM3,
				row.AccumulativeM3,
			)
			if err != nil {
				return fmt.Errorf("failed to insert plant row: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetUploadReports retrieves archived upload reports with filtering and pagination
func (r *reportRepository) GetUploadReports(ctx context.Context, filter ReportFilter) ([]*models.UploadReport, int, error) {
	query := `
		SELECT id, file_name, uploaded_at,
		       rows_parsed, rows_invalid_date, rows_excluded, rows_aggregated,
		       total_production, top_plant_name, top_plant_value,
		       created_at
		FROM upload_reports
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.TopPlantName != nil {
		query += fmt.Sprintf(" AND top_plant_name = $%d", argNum)
		args = append(args, *filter.TopPlantName)
		argNum++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND uploaded_at >= $%d", argNum)
		args = append(args, *filter.From)
		argNum++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND uploaded_at <= $%d", argNum)
		args = append(args, *filter.To)
		argNum++
	}

	// Get total count
	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	err := r.db.GetContext(ctx, "count_upload_reports", &totalCount, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count upload reports: %w", err)
	}

	// Add ordering and pagination
	query += " ORDER BY uploaded_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var reports []*models.UploadReport
	err = r.db.SelectContext(ctx, "get_upload_reports", &reports, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get upload reports: %w", err)
	}

	return reports, totalCount, nil
}

// GetUploadReport retrieves one archived report with its plant rows
func (r *reportRepository) GetUploadReport(ctx context.Context, id int64) (*models.UploadReport, []*models.UploadPlantRow, error) {
	query := `
		SELECT id, file_name, uploaded_at,
		       rows_parsed, rows_invalid_date, rows_excluded, rows_aggregated,
		       total_production, top_plant_name, top_plant_value,
		       created_at
		FROM upload_reports
		WHERE id = $1
	`

	var report models.UploadReport
	err := r.db.GetContext(ctx, "get_upload_report", &report, query, id)

	if err == sql.ErrNoRows {
		return nil, nil, &NotFoundError{
			Resource: "upload_report",
			ID:       fmt.Sprintf("%d", id),
		}
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to get upload report: %w", err)
	}

	rowsQuery := `
		SELECT id, upload_id, position, plant_name, production_m3, accumulative_m3
		FROM upload_plant_rows
		WHERE upload_id = $1
		ORDER BY position
	`

	var plantRows []*models.UploadPlantRow
	err = r.db.SelectContext(ctx, "get_upload_plant_rows", &plantRows, rowsQuery, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get plant rows: %w", err)
	}

	return &report, plantRows, nil
}

// HealthCheck performs a repository health check
func (r *reportRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
