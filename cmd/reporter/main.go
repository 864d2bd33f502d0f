package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"production-platform/internal/config"
	"production-platform/internal/repository"
	"production-platform/internal/services"
	"production-platform/pkg/database"
	"production-platform/pkg/logging"
	"production-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	filePath := flag.String("file", "", "Path to the daily report .xlsx workbook")
	archive := flag.Bool("archive", false, "Archive the derived snapshot to the configured database")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: reporter -file <daily-report.xlsx> [-archive]")
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logLevel := logging.InfoLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("production-reporter", "1.0.0", logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[REPORTER_START] Processing daily report", logging.Fields{
		"version": "1.0.0",
		"file":    *filePath,
		"archive": *archive,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("production_reporter")

	var reportRepo repository.ReportRepository
	if *archive {
		if !cfg.ArchiveEnabled() {
			fmt.Fprintln(os.Stderr, "-archive requires a configured database (DB_HOST)")
			os.Exit(1)
		}

		dbConfig := &database.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}

		db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[REPORTER_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()

		reportRepo = repository.NewReportRepository(db, logger, metricsCollector)
	}

	// Initialize services
	ingestionService := services.NewIngestionService(logger, metricsCollector)
	statsService := services.NewStatisticsService(logger, metricsCollector)
	reportService := services.NewReportService(ingestionService, statsService, reportRepo, logger, metricsCollector)

	file, err := os.Open(*filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open report: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	result, err := reportService.ProcessReport(ctx, file, *filePath)
	if err != nil {
		logger.Fatal(ctx, "[REPORTER_ERROR] Pipeline failed", logging.Fields{
			"file": *filePath,
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("DAILY REPORT PROCESSED")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("File:               %s\n", result.FileName)
	fmt.Printf("Rows Parsed:        %d\n", result.RowsParsed)
	fmt.Printf("Invalid Dates:      %d\n", result.RowsInvalidDate)
	fmt.Printf("Excluded Rows:      %d\n", result.RowsExcluded)
	fmt.Printf("Aggregated Rows:    %d\n", result.RowsAggregated)

	if result.NoData {
		fmt.Println("\nNo data: the calendar filter removed every record.")
	} else {
		fmt.Printf("\nTotal Production:   %.2f m³\n", result.Summary.TotalProduction)
		fmt.Printf("Top Producer:       %s (%.2f m³)\n", result.Summary.TopPlantName, result.Summary.TopPlantValue)

		fmt.Println("\nPer-Plant Production:")
		for _, series := range result.Summary.PerPlantSeries {
			fmt.Printf("  %-30s %v\n", series.PlantName, series.Values)
		}

		fmt.Println("\nAccumulative Production:")
		for _, series := range result.Summary.AccumulativeByPlant {
			fmt.Printf("  %-30s %v\n", series.PlantName, series.Values)
		}
	}

	if result.UploadID > 0 {
		fmt.Printf("\nArchived as upload #%d\n", result.UploadID)
	}

	logger.Info(ctx, "[REPORTER_COMPLETE] Daily report processed", logging.Fields{
		"file":            *filePath,
		"rows_parsed":     result.RowsParsed,
		"rows_aggregated": result.RowsAggregated,
		"no_data":         result.NoData,
	})
}
