package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Expected column labels in the daily production workbook.
// Header cells are whitespace-trimmed before being matched against these.
const (
	ColumnDate         = "Date"
	ColumnPlantName    = "Plant Name"
	ColumnProduction   = "Production for the Day (m³)"
	ColumnAccumulative = "Accumulative Production (m³)"
)

// ExcludedWeekday is the business calendar rule: reports dated on this
// weekday are outside the production week and never aggregated.
const ExcludedWeekday = time.Friday

// dateLayouts lists the date formats seen across uploaded workbooks.
// excelize returns formatted cell text, so serial dates arrive as one of these.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006/01/02",
	"01-02-06",
	"2006-01-02 15:04:05",
}

// ProductionRecord represents one normalized row of the daily report:
// a single plant's figures for a single day.
// A nil Date marks a cell that could not be parsed; such rows are retained
// through ingestion but excluded from all downstream aggregation.
type ProductionRecord struct {
	PlantName              string     `json:"plant_name"`
	Date                   *time.Time `json:"date,omitempty"`
	ProductionForDay       float64    `json:"production_for_day"`
	AccumulativeProduction float64    `json:"accumulative_production"`
}

// ProductionDataset is an ordered sequence of records for one upload.
// Filtering produces a new dataset; rows are never mutated in place.
type ProductionDataset []ProductionRecord

// PlantSeries holds one plant's values across the rows it appears in,
// in original row order.
type PlantSeries struct {
	PlantName string    `json:"plant_name"`
	Values    []float64 `json:"values"`
}

// SummaryMetrics is the derived result of one pipeline run, recomputed
// wholesale for every upload and never patched incrementally.
// The per-plant slices preserve first-seen plant order.
type SummaryMetrics struct {
	TotalProduction     float64       `json:"total_production"`
	TopPlantName        string        `json:"top_plant_name"`
	TopPlantValue       float64       `json:"top_plant_value"`
	PerPlantSeries      []PlantSeries `json:"per_plant_series"`
	AccumulativeByPlant []PlantSeries `json:"accumulative_by_plant"`
}

// RawReportRow is one spreadsheet row as raw cell text, prior to type
// coercion. Used during ingestion.
type RawReportRow struct {
	Date                   string
	PlantName              string
	ProductionForDay       string
	AccumulativeProduction string
}

// ToRecord coerces the raw row into a typed ProductionRecord.
// A date cell that cannot be parsed becomes a nil Date marker rather than
// an error; the calendar filter treats such rows as excluded.
func (r *RawReportRow) ToRecord() ProductionRecord {
	rec := ProductionRecord{
		PlantName:              strings.TrimSpace(r.PlantName),
		ProductionForDay:       parseAmount(r.ProductionForDay),
		AccumulativeProduction: parseAmount(r.AccumulativeProduction),
	}

	if date, ok := parseReportDate(r.Date); ok {
		rec.Date = &date
	}

	return rec
}

// parseReportDate tries each known layout against the trimmed cell text.
func parseReportDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, raw); err == nil {
			return date, true
		}
	}

	return time.Time{}, false
}

// parseAmount strips thousands separators and reads the cell as a float.
// Blank or malformed numeric cells read as 0.
func parseAmount(raw string) float64 {
	value, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""), 64)
	return value
}

// UploadReport is the archived snapshot of one pipeline run: row counters
// plus the scalar summary metrics. The input dataset itself is never
// persisted; only derived output is.
type UploadReport struct {
	ID              int64     `json:"id" db:"id"`
	FileName        string    `json:"file_name" db:"file_name"`
	UploadedAt      time.Time `json:"uploaded_at" db:"uploaded_at"`
	RowsParsed      int       `json:"rows_parsed" db:"rows_parsed"`
	RowsInvalidDate int       `json:"rows_invalid_date" db:"rows_invalid_date"`
	RowsExcluded    int       `json:"rows_excluded" db:"rows_excluded"`
	RowsAggregated  int       `json:"rows_aggregated" db:"rows_aggregated"`
	TotalProduction float64   `json:"total_production" db:"total_production"`
	TopPlantName    string    `json:"top_plant_name" db:"top_plant_name"`
	TopPlantValue   float64   `json:"top_plant_value" db:"top_plant_value"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// UploadPlantRow is one archived per-plant data point of an upload.
type UploadPlantRow struct {
	ID             int64   `json:"id" db:"id"`
	UploadID       int64   `json:"upload_id" db:"upload_id"`
	Position       int     `json:"position" db:"position"`
	PlantName      string  `json:"plant_name" db:"plant_name"`
	ProductionM3   float64 `json:"production_m3" db:"production_m3"`
	AccumulativeM3 float64 `json:"accumulative_m3" db:"accumulative_m3"`
}

// SchemaError reports a required column missing from the uploaded workbook.
// It is raised before any data row is converted; a new upload is required.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required column missing from report: %s", e.Column)
}

// IsTransient returns false as schema errors are permanent for a given file.
func (e *SchemaError) IsTransient() bool {
	return false
}

// ErrEmptyResult signals that the calendar filter removed every record.
// It is a condition for the caller to render a "no data" state, not a
// hard failure.
var ErrEmptyResult = errors.New("calendar filter removed every record")

// ErrEmptyAggregation guards the aggregator against being invoked on an
// empty dataset. Correct call sequencing handles ErrEmptyResult first,
// so this should be unreachable.
var ErrEmptyAggregation = errors.New("aggregation invoked on empty dataset")
