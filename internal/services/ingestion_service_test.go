package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/xuri/excelize/v2"

	"production-platform/internal/models"
	"production-platform/pkg/logging"
	"production-platform/pkg/metrics"
)

// Shared test fixtures. The metrics collector registers on the default
// Prometheus registry, so one instance serves the whole package.
var (
	testLogger  = newTestLogger()
	testMetrics = metrics.NewCollector("services_test")
)

func newTestLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

// buildWorkbook writes the given rows into an in-memory .xlsx workbook
func buildWorkbook(t *testing.T, rows [][]interface{}) io.Reader {
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

	return bytes.NewReader(buf.Bytes())
}

// reportHeader is the canonical header row of a daily report
func reportHeader() []interface{} {
	return []interface{}{
		"Date", "Plant Name", "Production for the Day (m³)", "Accumulative Production (m³)",
	}
}

func TestIngestionService_ParseWorkbook(t *testing.T) {
	service := NewIngestionService(testLogger, testMetrics)
	ctx := context.Background()

	tests := []struct {
		name        string
		rows        [][]interface{}
		wantErr     bool
		checkValues func(*testing.T, models.ProductionDataset, *ParseStats)
	}{
		{
			name: "valid report with three plants",
			rows: [][]interface{}{
				reportHeader(),
				{"2023-01-02", "P1", 10.0, 100.0},
				{"2023-01-06", "P2", 50.0, 500.0},
				{"2023-01-03", "P3", 20.0, 120.0},
			},
			checkValues: func(t *testing.T, dataset models.ProductionDataset, stats *ParseStats) {
				if len(dataset) != 3 {
					t.Fatalf("len(dataset) = %d, want 3", len(dataset))
				}
				if stats.RowsParsed != 3 {
					t.Errorf("RowsParsed = %d, want 3", stats.RowsParsed)
				}

				// Order must match the spreadsheet
				wantPlants := []string{"P1", "P2", "P3"}
				for i, plant := range wantPlants {
					if dataset[i].PlantName != plant {
						t.Errorf("dataset[%d].PlantName = %v, want %v", i, dataset[i].PlantName, plant)
					}
				}

				if dataset[1].ProductionForDay != 50.0 {
					t.Errorf("dataset[1].ProductionForDay = %v, want 50", dataset[1].ProductionForDay)
				}
			},
		},
		{
			name: "header labels trimmed before matching",
			rows: [][]interface{}{
				{"  Date ", " Plant Name  ", "  Production for the Day (m³)", "Accumulative Production (m³)  "},
				{"2023-01-02", "P1", 10.0, 100.0},
			},
			checkValues: func(t *testing.T, dataset models.ProductionDataset, stats *ParseStats) {
				if len(dataset) != 1 {
					t.Fatalf("len(dataset) = %d, want 1", len(dataset))
				}
				if dataset[0].PlantName != "P1" {
					t.Errorf("PlantName = %v, want P1", dataset[0].PlantName)
				}
				if dataset[0].AccumulativeProduction != 100.0 {
					t.Errorf("AccumulativeProduction = %v, want 100", dataset[0].AccumulativeProduction)
				}
			},
		},
		{
			name: "unparseable date retained as nil marker",
			rows: [][]interface{}{
				reportHeader(),
				{"garbage", "P1", 10.0, 100.0},
				{"2023-01-03", "P2", 20.0, 200.0},
			},
			checkValues: func(t *testing.T, dataset models.ProductionDataset, stats *ParseStats) {
				if len(dataset) != 2 {
					t.Fatalf("len(dataset) = %d, want 2", len(dataset))
				}
				if dataset[0].Date != nil {
					t.Errorf("dataset[0].Date = %v, want nil marker", dataset[0].Date)
				}
				if dataset[1].Date == nil {
					t.Error("dataset[1].Date should not be nil")
				}
				if stats.RowsInvalidDate != 1 {
					t.Errorf("RowsInvalidDate = %d, want 1", stats.RowsInvalidDate)
				}
			},
		},
		{
			name: "blank plant rows skipped",
			rows: [][]interface{}{
				reportHeader(),
				{"2023-01-02", "P1", 10.0, 100.0},
				{"", "", "", ""},
				{"2023-01-03", "  ", 99.0, 999.0},
				{"2023-01-03", "P2", 20.0, 200.0},
			},
			checkValues: func(t *testing.T, dataset models.ProductionDataset, stats *ParseStats) {
				if len(dataset) != 2 {
					t.Fatalf("len(dataset) = %d, want 2", len(dataset))
				}
				if stats.RowsSkipped != 2 {
					t.Errorf("RowsSkipped = %d, want 2", stats.RowsSkipped)
				}
			},
		},
		{
			name: "missing production column fails with schema error",
			rows: [][]interface{}{
				{"Date", "Plant Name", "Accumulative Production (m³)"},
				{"2023-01-02", "P1", 100.0},
			},
			wantErr: true,
		},
		{
			name: "missing accumulative column fails with schema error",
			rows: [][]interface{}{
				{"Date", "Plant Name", "Production for the Day (m³)"},
				{"2023-01-02", "P1", 10.0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataset, stats, err := service.ParseWorkbook(ctx, buildWorkbook(t, tt.rows))

			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseWorkbook() expected error, got nil")
				}
				var schemaErr *models.SchemaError
				if !errors.As(err, &schemaErr) {
					t.Fatalf("ParseWorkbook() error = %v, want *models.SchemaError", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseWorkbook() error = %v", err)
			}
			tt.checkValues(t, dataset, stats)
		})
	}
}

func TestIngestionService_ParseWorkbook_SchemaErrorNamesColumn(t *testing.T) {
	service := NewIngestionService(testLogger, testMetrics)

	rows := [][]interface{}{
		{"Date", "Plant Name", "Accumulative Production (m³)"},
		{"2023-01-02", "P1", 100.0},
	}

	_, _, err := service.ParseWorkbook(context.Background(), buildWorkbook(t, rows))

	var schemaErr *models.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error = %v, want *models.SchemaError", err)
	}
	if schemaErr.Column != models.ColumnProduction {
		t.Errorf("SchemaError.Column = %v, want %v", schemaErr.Column, models.ColumnProduction)
	}
}

func TestIngestionService_ParseWorkbook_NotAWorkbook(t *testing.T) {
	service := NewIngestionService(testLogger, testMetrics)

	_, _, err := service.ParseWorkbook(context.Background(), bytes.NewReader([]byte("plain text, not xlsx")))
	if err == nil {
		t.Fatal("ParseWorkbook() expected error for non-xlsx input")
	}
}
