package dataprocessing

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polarcli/internal/config"
	apperrors "polarcli/internal/errors"
	"polarcli/internal/shared/testutil"
	"polarcli/pkg/contracts/domain"
)

func TestProcessor_FullUserRun(t *testing.T) {
	tables := UserTables{
		domain.TableActivityHR: newTestTable(domain.TableActivityHR,
			[]string{"date", "timeOfDay", "heartRate"},
			[]string{"2025-01-10", "00:00:00", "0"}, // sensor-invalid
			[]string{"2025-01-10", "06:00:00", "60"},
			[]string{"2025-01-10", "12:00:00", "70"},
			[]string{"2025-01-10", "18:00:00", "80"},
		),
		domain.TableTrainingSummary: newTestTable(domain.TableTrainingSummary,
			[]string{"start", "stop", "duration"},
			[]string{"2025-02-01T08:00:00", "2025-02-01T09:00:00", "PT1H"},
		),
	}

	processor := NewProcessor(nil)
	summary := NewRunSummary()
	out, err := processor.ProcessUser(context.Background(), "706293", tables, openFilterConfig(), summary)
	require.NoError(t, err)
	require.Len(t, out, 2)

	hr := out[domain.TableActivityHR]
	require.NotNil(t, hr)
	require.Len(t, hr.Rows, 3)
	row := hr.Rows[0]
	assert.Equal(t, "70", row["heartRate_mean_daily"])
	assert.Equal(t, "20", row["heartRate_range_daily"])
	assert.Equal(t, "3", row["hours_covered"])
	assert.Equal(t, "12.5", row["coverage_percentage"])
	assert.Equal(t, QualityPoor, row["daily_quality"])
	assert.Equal(t, "18:00:00", row["heartRate_max_timeOfDay_daily"])

	training := out[domain.TableTrainingSummary]
	require.NotNil(t, training)
	assert.Equal(t, "Saturday", training.Rows[0]["start_day_name"])

	assert.Equal(t, 2, summary.Processed())
	assert.Empty(t, summary.Skipped())
}

func TestProcessor_TrainingOnlyPartition(t *testing.T) {
	tables := UserTables{
		domain.TableActivityHR: newTestTable(domain.TableActivityHR,
			[]string{"date", "timeOfDay", "heartRate"},
			[]string{"2025-02-01", "07:59:00", "70"},
			[]string{"2025-02-01", "08:30:00", "72"},
			[]string{"2025-02-01", "09:00:00", "73"},
		),
		domain.TableTrainingSummary: newTestTable(domain.TableTrainingSummary,
			[]string{"start", "stop"},
			[]string{"2025-02-01T08:00:00", "2025-02-01T09:00:00"},
		),
	}

	cfg := openFilterConfig()
	cfg.TrainingMode = config.TrainingOnly

	processor := NewProcessor(nil)
	out, err := processor.ProcessUser(context.Background(), "706293", tables, cfg, NewRunSummary())
	require.NoError(t, err)

	hr := out[domain.TableActivityHR]
	require.NotNil(t, hr)
	require.Len(t, hr.Rows, 2)
	assert.Equal(t, "72", hr.Rows[0]["heartRate"])
	assert.Equal(t, "73", hr.Rows[1]["heartRate"])
}

func TestProcessor_UnparseableSessionStartIsConfigError(t *testing.T) {
	// An unusable session interval must not fall through to the generic
	// unparseable-timestamp drop: that would silently misclassify every
	// reading inside the vanished session as non-training.
	tables := UserTables{
		domain.TableActivityHR: newTestTable(domain.TableActivityHR,
			[]string{"date", "timeOfDay", "heartRate"},
			[]string{"2025-02-01", "08:30:00", "72"},
		),
		domain.TableTrainingSummary: newTestTable(domain.TableTrainingSummary,
			[]string{"start", "stop"},
			[]string{"garbage", "2025-02-01T09:00:00"},
		),
	}

	cfg := openFilterConfig()
	cfg.TrainingMode = config.NonTrainingOnly

	processor := NewProcessor(nil)
	summary := NewRunSummary()
	out, err := processor.ProcessUser(context.Background(), "706293", tables, cfg, summary)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	assert.Nil(t, out)

	skipped := summary.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, domain.TableTrainingSummary, skipped[0].Table)
}

func TestProcessor_UnparseableSessionStopIsConfigError(t *testing.T) {
	tables := UserTables{
		domain.TableActivityHR: newTestTable(domain.TableActivityHR,
			[]string{"date", "timeOfDay", "heartRate"},
			[]string{"2025-02-01", "08:30:00", "72"},
		),
		domain.TableTrainingSummary: newTestTable(domain.TableTrainingSummary,
			[]string{"start", "stop"},
			[]string{"2025-02-01T08:00:00", "not-a-time"},
		),
	}

	cfg := openFilterConfig()
	cfg.TrainingMode = config.TrainingOnly

	processor := NewProcessor(nil)
	out, err := processor.ProcessUser(context.Background(), "706293", tables, cfg, NewRunSummary())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	assert.Nil(t, out)
}

func TestProcessor_BadSessionRowToleratedWithoutTrainingFilter(t *testing.T) {
	// Without a training filter the sessions are never consulted, so a bad
	// interval only costs the training_summary table itself.
	tables := UserTables{
		domain.TableActivityHR: newTestTable(domain.TableActivityHR,
			[]string{"date", "timeOfDay", "heartRate"},
			[]string{"2025-02-01", "08:30:00", "72"},
		),
		domain.TableTrainingSummary: newTestTable(domain.TableTrainingSummary,
			[]string{"start", "stop"},
			[]string{"2025-02-01T08:00:00", "not-a-time"},
		),
	}

	processor := NewProcessor(nil)
	summary := NewRunSummary()
	out, err := processor.ProcessUser(context.Background(), "706293", tables, openFilterConfig(), summary)
	require.NoError(t, err)

	assert.NotNil(t, out[domain.TableActivityHR])
	require.Len(t, out[domain.TableActivityHR].Rows, 1)
}

func TestProcessor_MissingTrainingSummaryIsConfigError(t *testing.T) {
	tables := UserTables{
		domain.TableActivityHR: newTestTable(domain.TableActivityHR,
			[]string{"date", "timeOfDay", "heartRate"},
			[]string{"2025-01-10", "06:00:00", "60"},
		),
	}

	cfg := openFilterConfig()
	cfg.TrainingMode = config.TrainingOnly

	processor := NewProcessor(nil)
	summary := NewRunSummary()
	_, err := processor.ProcessUser(context.Background(), "706293", tables, cfg, summary)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	assert.Len(t, summary.Skipped(), 1)
}

func TestProcessor_SchemaErrorSkipsTableNotUser(t *testing.T) {
	tables := UserTables{
		// heartRate column missing: schema error for this table only.
		domain.TableActivityHR: newTestTable(domain.TableActivityHR,
			[]string{"date", "timeOfDay"},
			[]string{"2025-01-10", "06:00:00"},
		),
		domain.TableStepSeries: newTestTable(domain.TableStepSeries,
			[]string{"date", "time", "step_count"},
			[]string{"2025-01-10", "08:00:00", "120"},
		),
	}

	logger, captured := testutil.NewCaptureLogger()
	processor := NewProcessor(logger)
	summary := NewRunSummary()
	out, err := processor.ProcessUser(context.Background(), "706293", tables, openFilterConfig(), summary)
	require.NoError(t, err)

	assert.Nil(t, out[domain.TableActivityHR])
	assert.NotNil(t, out[domain.TableStepSeries])

	skipped := summary.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "706293", skipped[0].UserID)
	assert.Equal(t, domain.TableActivityHR, skipped[0].Table)

	assert.True(t, captured.ContainsMessage("skipping table"))
	assert.True(t, captured.ContainsAttr("table", string(domain.TableActivityHR)))
	assert.NotEmpty(t, captured.RecordsAt(slog.LevelWarn))
}

func TestProcessor_EmptyAfterCleaningWarns(t *testing.T) {
	tables := UserTables{
		domain.TableActivityHR: newTestTable(domain.TableActivityHR,
			[]string{"date", "timeOfDay", "heartRate"},
			[]string{"2025-01-10", "06:00:00", "0"},
		),
	}

	processor := NewProcessor(nil)
	summary := NewRunSummary()
	out, err := processor.ProcessUser(context.Background(), "706293", tables, openFilterConfig(), summary)
	require.NoError(t, err)

	hr := out[domain.TableActivityHR]
	require.NotNil(t, hr)
	assert.Empty(t, hr.Rows)
	// Schema-complete empty output still carries the broadcast columns.
	assert.True(t, hr.HasColumn("heartRate_mean_daily"))
	assert.True(t, hr.HasColumn("daily_quality"))

	warnings := summary.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.TableActivityHR, warnings[0].Table)
}

func TestRunSummary_HasRunID(t *testing.T) {
	summary := NewRunSummary()
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 0, summary.Processed())
}

func TestRunSummary_AddSkippedFromCaller(t *testing.T) {
	// Read failures happen before the processor runs; the caller records
	// them on the same summary so they show up in the end-of-run report.
	summary := NewRunSummary()
	summary.AddSkipped(UnitIssue{
		UserID:  "706293",
		Table:   domain.TableStepSeries,
		Message: "[SCHEMA] table step_series is missing expected column \"step_count\"",
	})

	skipped := summary.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "706293", skipped[0].UserID)
	assert.Equal(t, domain.TableStepSeries, skipped[0].Table)
}
