package dataprocessing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"polarcli/internal/errors"
	"polarcli/pkg/contracts/domain"
)

// Level names one tier of a table's aggregation key hierarchy. The level
// string doubles as the column-name suffix of broadcast statistics, so
// nightly tables use LevelNightly where day-based tables use LevelDaily.
type Level string

const (
	LevelHourly  Level = "hourly"
	LevelDaily   Level = "daily"
	LevelNightly Level = "nightly"
	LevelOverall Level = "overall"
)

// Descriptor fixes, per table type, everything the pipeline stages need to
// know: value columns, timestamp layout, validity rule, key hierarchy and
// whether quality scoring applies. Descriptors are static; there is no
// runtime column-name dispatch.
type Descriptor struct {
	Type domain.TableType

	// ValueColumns are the metric columns statistics are computed over.
	ValueColumns []string

	// Timestamp layout: either a single combined column, or a date column
	// optionally paired with a time-of-day column.
	TimestampColumn string
	DateColumn      string
	TimeColumn      string

	// RequiredColumns must be present in an ingested table; their absence
	// is a schema error for that (user, table) unit.
	RequiredColumns []string

	// PassthroughColumns are known non-metric columns preserved in output
	// ordering after the required ones.
	PassthroughColumns []string

	// Valid decides whether a row's parsed metric values pass cleaning.
	// A nil rule means the table is not value-cleaned.
	Valid func(values map[string]float64) bool

	// RequireTimestamp makes the cleaner drop rows whose timestamp is
	// missing or unparseable (step_series semantics).
	RequireTimestamp bool

	// Levels is the key hierarchy, finest first, ending in LevelOverall.
	// Empty means the table is not aggregated.
	Levels []Level

	// RangeLevels are the levels that additionally carry a range column.
	RangeLevels []Level

	// SumLevels are the levels that additionally carry a sum column.
	SumLevels []Level

	// IgnoreZeroInStats excludes zero values of each metric column from
	// its statistics while keeping the rows themselves.
	IgnoreZeroInStats bool

	// Quality enables per-day coverage scoring.
	Quality bool
}

// GroupLevel returns the table's day- or night-level tier, or "" when the
// hierarchy has none.
func (d Descriptor) GroupLevel() Level {
	for _, lv := range d.Levels {
		if lv == LevelDaily || lv == LevelNightly {
			return lv
		}
	}
	return ""
}

func (d Descriptor) hasLevel(levels []Level, lv Level) bool {
	for _, l := range levels {
		if l == lv {
			return true
		}
	}
	return false
}

// RangeAt reports whether the range column is produced at the given level.
func (d Descriptor) RangeAt(lv Level) bool { return d.hasLevel(d.RangeLevels, lv) }

// SumAt reports whether the sum column is produced at the given level.
func (d Descriptor) SumAt(lv Level) bool { return d.hasLevel(d.SumLevels, lv) }

// ValidateSchema checks that every required column is present.
func (d Descriptor) ValidateSchema(t *domain.Table) error {
	for _, col := range d.RequiredColumns {
		if !t.HasColumn(col) {
			return errors.NewSchemaError(
				fmt.Sprintf("table %s is missing expected column %q", d.Type, col), nil)
		}
	}
	return nil
}

// Timestamp derives a row's full timestamp from the descriptor's layout.
func (d Descriptor) Timestamp(row domain.Row) (time.Time, error) {
	if d.TimestampColumn != "" {
		return parseTimestamp(row[d.TimestampColumn])
	}
	dateStr := strings.TrimSpace(row[d.DateColumn])
	if dateStr == "" {
		return time.Time{}, errors.NewParsingError(
			fmt.Sprintf("row has no %s value", d.DateColumn), nil)
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, errors.NewParsingError("invalid date "+dateStr, err)
	}
	if d.TimeColumn == "" {
		return date, nil
	}
	tod, err := parseTimeOfDay(row[d.TimeColumn])
	if err != nil {
		return time.Time{}, err
	}
	return date.Add(tod), nil
}

// Value parses a metric cell. Missing and malformed cells are errors so the
// cleaner can treat them as sensor-invalid.
func (d Descriptor) Value(row domain.Row, column string) (float64, error) {
	cell := strings.TrimSpace(row[column])
	if cell == "" {
		return 0, errors.NewParsingError(fmt.Sprintf("empty %s value", column), nil)
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, errors.NewParsingError(fmt.Sprintf("invalid %s value %q", column, cell), err)
	}
	return v, nil
}

// parseTimestamp accepts the combined-timestamp forms found in the watch
// exports: ISO 8601 with or without a zone, and the space-separated form.
func parseTimestamp(cell string) (time.Time, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, errors.NewParsingError("empty timestamp", nil)
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		time.RFC3339,
		"2006-01-02T15:04:05.999",
		"2006-01-02",
	} {
		if ts, err := time.Parse(layout, cell); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.NewParsingError("invalid timestamp "+cell, nil)
}

func parseTimeOfDay(cell string) (time.Duration, error) {
	cell = strings.TrimSpace(cell)
	for _, layout := range []string{"15:04:05", "15:04:05.999", "15:04"} {
		if tod, err := time.Parse(layout, cell); err == nil {
			return time.Duration(tod.Hour())*time.Hour +
				time.Duration(tod.Minute())*time.Minute +
				time.Duration(tod.Second())*time.Second, nil
		}
	}
	return 0, errors.NewParsingError("invalid time of day "+cell, nil)
}

// descriptors is the static TableType registry, resolved once at startup.
var descriptors = map[domain.TableType]Descriptor{
	domain.TableActivityHR: {
		Type:            domain.TableActivityHR,
		ValueColumns:    []string{"heartRate"},
		DateColumn:      "date",
		TimeColumn:      "timeOfDay",
		RequiredColumns: []string{"date", "timeOfDay", "heartRate"},
		Valid:           func(v map[string]float64) bool { return v["heartRate"] != 0 },
		Levels:          []Level{LevelHourly, LevelDaily, LevelOverall},
		RangeLevels:     []Level{LevelDaily, LevelOverall},
		Quality:         true,
	},
	domain.TableActivitySummary: {
		Type:               domain.TableActivitySummary,
		ValueColumns:       []string{"calories", "step_total"},
		DateColumn:         "date",
		RequiredColumns:    []string{"date", "calories", "step_total"},
		PassthroughColumns: []string{"start", "end"},
		// Removed only when both metrics read zero.
		Valid:             func(v map[string]float64) bool { return v["calories"] != 0 || v["step_total"] != 0 },
		Levels:            []Level{LevelOverall},
		IgnoreZeroInStats: true,
	},
	domain.TableStepSeries: {
		Type:             domain.TableStepSeries,
		ValueColumns:     []string{"step_count"},
		DateColumn:       "date",
		TimeColumn:       "time",
		RequiredColumns:  []string{"date", "time", "step_count"},
		Valid:            func(v map[string]float64) bool { return v["step_count"] != 0 },
		RequireTimestamp: true,
		Levels:           []Level{LevelDaily, LevelOverall},
		SumLevels:        []Level{LevelDaily, LevelOverall},
	},
	domain.TableTrainingHRSamples: {
		Type:            domain.TableTrainingHRSamples,
		ValueColumns:    []string{"heartRate"},
		TimestampColumn: "dateTime",
		RequiredColumns: []string{"dateTime", "heartRate"},
		Valid:           func(v map[string]float64) bool { return v["heartRate"] != 0 },
		Levels:          []Level{LevelHourly, LevelDaily, LevelOverall},
		RangeLevels:     []Level{LevelDaily, LevelOverall},
	},
	domain.TableTrainingSummary: {
		Type:            domain.TableTrainingSummary,
		TimestampColumn: "start",
		RequiredColumns: []string{"start", "stop"},
		PassthroughColumns: []string{
			"duration", "calories", "hr_avg", "hr_min", "hr_max", "sport",
		},
	},
	domain.TableNightlyBreathing: {
		Type:            domain.TableNightlyBreathing,
		ValueColumns:    []string{"breathing_rate"},
		TimestampColumn: "datetime",
		RequiredColumns: []string{"datetime", "breathing_rate"},
		PassthroughColumns: []string{
			"sampling_interval_ms", "sample_index",
		},
		Valid:       func(v map[string]float64) bool { return v["breathing_rate"] > 0 && v["breathing_rate"] <= 50 },
		Levels:      []Level{LevelHourly, LevelNightly, LevelOverall},
		RangeLevels: []Level{LevelNightly, LevelOverall},
	},
	domain.TableNightlyHRV: {
		Type:            domain.TableNightlyHRV,
		ValueColumns:    []string{"hrv_value"},
		TimestampColumn: "datetime",
		RequiredColumns: []string{"datetime", "hrv_value"},
		PassthroughColumns: []string{
			"sampling_interval_ms", "sample_index",
		},
		Valid:       func(v map[string]float64) bool { return v["hrv_value"] > 0 && v["hrv_value"] <= 200 },
		Levels:      []Level{LevelHourly, LevelNightly, LevelOverall},
		RangeLevels: []Level{LevelNightly, LevelOverall},
	},
}

// ForType returns the descriptor for a table type.
func ForType(tt domain.TableType) (Descriptor, error) {
	desc, ok := descriptors[tt]
	if !ok {
		return Descriptor{}, errors.NewValidationError(
			fmt.Sprintf("unknown table type %q", tt))
	}
	return desc, nil
}
