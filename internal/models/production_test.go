package models

import (
	"errors"
	"testing"
	"time"
)

// TestRawReportRow_ToRecord tests the normalization of raw spreadsheet cells
// into typed production records
func TestRawReportRow_ToRecord(t *testing.T) {
	tests := []struct {
		name        string
		row         RawReportRow
		checkValues func(*testing.T, ProductionRecord)
	}{
		{
			name: "valid row with ISO date",
			row: RawReportRow{
				Date:                   "2023-01-02",
				PlantName:              "North Plant",
				ProductionForDay:       "120.5",
				AccumulativeProduction: "1200.5",
			},
			checkValues: func(t *testing.T, rec ProductionRecord) {
				if rec.PlantName != "North Plant" {
					t.Errorf("PlantName = %v, want %v", rec.PlantName, "North Plant")
				}

				if rec.Date == nil {
					t.Fatal("Date should not be nil")
				}
				expectedDate := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
				if !rec.Date.Equal(expectedDate) {
					t.Errorf("Date = %v, want %v", rec.Date, expectedDate)
				}

				if rec.ProductionForDay != 120.5 {
					t.Errorf("ProductionForDay = %v, want %v", rec.ProductionForDay, 120.5)
				}
				if rec.AccumulativeProduction != 1200.5 {
					t.Errorf("AccumulativeProduction = %v, want %v", rec.AccumulativeProduction, 1200.5)
				}
			},
		},
		{
			name: "slash date format",
			row: RawReportRow{
				Date:                   "06/01/2023",
				PlantName:              "South Plant",
				ProductionForDay:       "300",
				AccumulativeProduction: "2900",
			},
			checkValues: func(t *testing.T, rec ProductionRecord) {
				if rec.Date == nil {
					t.Fatal("Date should not be nil")
				}
				expectedDate := time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC)
				if !rec.Date.Equal(expectedDate) {
					t.Errorf("Date = %v, want %v", rec.Date, expectedDate)
				}
			},
		},
		{
			name: "unparseable date becomes nil marker",
			row: RawReportRow{
				Date:                   "not a date",
				PlantName:              "West Plant",
				ProductionForDay:       "40",
				AccumulativeProduction: "400",
			},
			checkValues: func(t *testing.T, rec ProductionRecord) {
				if rec.Date != nil {
					t.Errorf("Date = %v, want nil marker", rec.Date)
				}

				// Row values survive even when the date does not
				if rec.ProductionForDay != 40.0 {
					t.Errorf("ProductionForDay = %v, want %v", rec.ProductionForDay, 40.0)
				}
			},
		},
		{
			name: "blank date becomes nil marker",
			row: RawReportRow{
				Date:                   "   ",
				PlantName:              "West Plant",
				ProductionForDay:       "40",
				AccumulativeProduction: "400",
			},
			checkValues: func(t *testing.T, rec ProductionRecord) {
				if rec.Date != nil {
					t.Errorf("Date = %v, want nil marker", rec.Date)
				}
			},
		},
		{
			name: "thousands separators stripped from amounts",
			row: RawReportRow{
				Date:                   "2023-01-03",
				PlantName:              "East Plant",
				ProductionForDay:       "1,250.75",
				AccumulativeProduction: "12,500",
			},
			checkValues: func(t *testing.T, rec ProductionRecord) {
				if rec.ProductionForDay != 1250.75 {
					t.Errorf("ProductionForDay = %v, want %v", rec.ProductionForDay, 1250.75)
				}
				if rec.AccumulativeProduction != 12500.0 {
					t.Errorf("AccumulativeProduction = %v, want %v", rec.AccumulativeProduction, 12500.0)
				}
			},
		},
		{
			name: "malformed amounts read as zero",
			row: RawReportRow{
				Date:                   "2023-01-03",
				PlantName:              "East Plant",
				ProductionForDay:       "n/a",
				AccumulativeProduction: "",
			},
			checkValues: func(t *testing.T, rec ProductionRecord) {
				if rec.ProductionForDay != 0 {
					t.Errorf("ProductionForDay = %v, want 0", rec.ProductionForDay)
				}
				if rec.AccumulativeProduction != 0 {
					t.Errorf("AccumulativeProduction = %v, want 0", rec.AccumulativeProduction)
				}
			},
		},
		{
			name: "plant name trimmed",
			row: RawReportRow{
				Date:                   "2023-01-02",
				PlantName:              "  North Plant  ",
				ProductionForDay:       "10",
				AccumulativeProduction: "100",
			},
			checkValues: func(t *testing.T, rec ProductionRecord) {
				if rec.PlantName != "North Plant" {
					t.Errorf("PlantName = %q, want %q", rec.PlantName, "North Plant")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.row.ToRecord()
			tt.checkValues(t, rec)
		})
	}
}

// TestSchemaError tests error classification
func TestSchemaError(t *testing.T) {
	err := &SchemaError{Column: ColumnProduction}

	want := "required column missing from report: Production for the Day (m³)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	if err.IsTransient() {
		t.Error("SchemaError should not be transient")
	}

	var schemaErr *SchemaError
	if !errors.As(error(err), &schemaErr) {
		t.Error("SchemaError should match errors.As")
	}
}

// TestConditionSentinels verifies the two pipeline conditions are distinct
func TestConditionSentinels(t *testing.T) {
	if errors.Is(ErrEmptyResult, ErrEmptyAggregation) {
		t.Error("ErrEmptyResult and ErrEmptyAggregation must be distinct conditions")
	}
}

func TestExcludedWeekday(t *testing.T) {
	if ExcludedWeekday != time.Friday {
		t.Errorf("ExcludedWeekday = %v, want %v", ExcludedWeekday, time.Friday)
	}
}
