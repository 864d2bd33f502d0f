package services

import (
	"context"
	"time"

	"production-platform/internal/models"
	"production-platform/pkg/logging"
	"production-platform/pkg/metrics"
)

// StatisticsService derives summary metrics from a filtered production
// dataset. Metrics are recomputed wholesale per run, never patched.
type StatisticsService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Summarize computes SummaryMetrics over a non-empty filtered dataset.
//
// The top producer is the first record reaching the maximum single-day
// production, so ties resolve to the earliest row. Per-plant groupings
// preserve first-seen plant order and keep every row's value as a sequence;
// accumulative values are per row, never summed across rows.
//
// Calling this on an empty dataset returns models.ErrEmptyAggregation. The
// calendar filter's empty-result condition must be handled upstream, so this
// guard is unreachable under correct sequencing.
func (s *StatisticsService) Summarize(ctx context.Context, dataset models.ProductionDataset) (*models.SummaryMetrics, error) {
	if len(dataset) == 0 {
		s.metrics.RecordPipelineError("empty_aggregation")
		return nil, models.ErrEmptyAggregation
	}

	startTime := time.Now()

	summary := &models.SummaryMetrics{}

	plantIndex := make(map[string]int)

	for i, record := range dataset {
		summary.TotalProduction += record.ProductionForDay

		// Strict greater keeps the first occurrence on ties
		if i == 0 || record.ProductionForDay > summary.TopPlantValue {
			summary.TopPlantName = record.PlantName
			summary.TopPlantValue = record.ProductionForDay
		}

		idx, seen := plantIndex[record.PlantName]
		if !seen {
			idx = len(summary.PerPlantSeries)
			plantIndex[record.PlantName] = idx
			summary.PerPlantSeries = append(summary.PerPlantSeries, models.PlantSeries{
				PlantName: record.PlantName,
			})
			summary.AccumulativeByPlant = append(summary.AccumulativeByPlant, models.PlantSeries{
				PlantName: record.PlantName,
			})
		}

		summary.PerPlantSeries[idx].Values = append(summary.PerPlantSeries[idx].Values, record.ProductionForDay)
		summary.AccumulativeByPlant[idx].Values = append(summary.AccumulativeByPlant[idx].Values, record.AccumulativeProduction)
	}

	duration := time.Since(startTime)
	s.metrics.AggregationDuration.Observe(duration.Seconds())

	s.logger.Info(ctx, "[STATS_COMPLETE] Summary metrics computed", logging.Fields{
		"records":          len(dataset),
		"plants":           len(summary.PerPlantSeries),
		"total_production": summary.TotalProduction,
		"top_plant":        summary.TopPlantName,
		"duration_ms":      duration.Milliseconds(),
		"stage":            "AGGREGATION",
	})

	return summary, nil
}
