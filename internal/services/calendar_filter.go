package services

import (
	"production-platform/internal/models"
)

// ApplyCalendarFilter returns a new dataset containing only the records with
// a valid date that does not fall on the excluded weekday. The input is never
// mutated and surviving records keep their original order, so filtering an
// already-filtered dataset yields the identical dataset.
//
// When no record survives, models.ErrEmptyResult is returned alongside the
// empty dataset. That is a condition for the caller to render a "no data"
// state, not a failure; the aggregator must not be invoked in that case.
func ApplyCalendarFilter(dataset models.ProductionDataset) (models.ProductionDataset, error) {
	filtered := make(models.ProductionDataset, 0, len(dataset))

	for _, record := range dataset {
		if record.Date == nil {
			continue
		}
		if record.Date.Weekday() == models.ExcludedWeekday {
			continue
		}
		filtered = append(filtered, record)
	}

	if len(filtered) == 0 {
		return filtered, models.ErrEmptyResult
	}

	return filtered, nil
}
