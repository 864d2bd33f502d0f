package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"production-platform/internal/services"
	"production-platform/pkg/logging"
	"production-platform/pkg/metrics"
)

// Demonstrates the report pipeline without a database: builds a sample daily
// report workbook in memory, runs ingestion, the calendar filter, and
// aggregation, and prints the derived metrics.
func main() {
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("PRODUCTION PLATFORM - REPORT PIPELINE DEMONSTRATION")
	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println()

	// Initialize logger
	logger := logging.NewStructuredLogger("demo", "1.0.0", logging.WarnLevel)
	ctx := context.Background()

	buf, err := buildSampleWorkbook()
	if err != nil {
		fmt.Printf("Error building sample workbook: %v\n", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCollector("production_demo")
	ingestionService := services.NewIngestionService(logger, metricsCollector)
	statsService := services.NewStatisticsService(logger, metricsCollector)
	reportService := services.NewReportService(ingestionService, statsService, nil, logger, metricsCollector)

	result, err := reportService.ProcessReport(ctx, buf, "sample-daily-report.xlsx")
	if err != nil {
		fmt.Printf("Pipeline failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Rows parsed:        %d\n", result.RowsParsed)
	fmt.Printf("Invalid date rows:  %d\n", result.RowsInvalidDate)
	fmt.Printf("Excluded rows:      %d\n", result.RowsExcluded)
	fmt.Printf("Aggregated rows:    %d\n", result.RowsAggregated)
	fmt.Println()

	if result.NoData {
		fmt.Println("No data: the calendar filter removed every record.")
		return
	}

	fmt.Printf("Total production:   %.2f m³\n", result.Summary.TotalProduction)
	fmt.Printf("Top producer:       %s (%.2f m³)\n", result.Summary.TopPlantName, result.Summary.TopPlantValue)
	fmt.Println()

	fmt.Println("Per-plant production:")
	for _, series := range result.Summary.PerPlantSeries {
		fmt.Printf("  %-20s %v\n", series.PlantName, series.Values)
	}

	fmt.Println()
	fmt.Println("Accumulative production:")
	for _, series := range result.Summary.AccumulativeByPlant {
		fmt.Printf("  %-20s %v\n", series.PlantName, series.Values)
	}
}

// buildSampleWorkbook writes a small daily report: a Monday, a Friday (which
// the calendar filter drops), a Tuesday, and a row with an unparseable date.
func buildSampleWorkbook() (*bytes.Reader, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	rows := [][]interface{}{
		{"Date", "Plant Name", "Production for the Day (m³)", "Accumulative Production (m³)"},
		{"2023-01-02", "North Plant", 120.5, 1200.5},
		{"2023-01-06", "South Plant", 300.0, 2900.0},
		{"2023-01-03", "East Plant", 95.25, 870.75},
		{"not a date", "West Plant", 40.0, 400.0},
		{"2023-01-03", "North Plant", 110.0, 1310.5},
	}

	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(buf.Bytes()), nil
}
