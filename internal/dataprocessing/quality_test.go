package dataprocessing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polarcli/pkg/contracts/domain"
)

func TestClassifyCoverage_Boundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{pct: 0, want: QualityPoor},
		{pct: 49.9, want: QualityPoor},
		{pct: 50, want: QualityFair},
		{pct: 50.1, want: QualityFair},
		{pct: 80, want: QualityFair},
		{pct: 80.1, want: QualityGood},
		{pct: 100, want: QualityGood},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ClassifyCoverage(tc.pct), "coverage %.1f", tc.pct)
	}
}

func TestQualityScorer_DailyCoverageScenario(t *testing.T) {
	// Three cleaned readings spread over hours 6, 12 and 18.
	table := newTestTable(domain.TableActivityHR,
		[]string{"date", "timeOfDay", "heartRate"},
		[]string{"2025-01-10", "06:00:00", "60"},
		[]string{"2025-01-10", "12:00:00", "70"},
		[]string{"2025-01-10", "18:00:00", "80"},
	)

	scorer := NewQualityScorer(nil)
	out, err := scorer.Apply(context.Background(), mustDescriptor(domain.TableActivityHR), table)
	require.NoError(t, err)
	require.Len(t, out.Rows, 3)

	for _, row := range out.Rows {
		assert.Equal(t, "3", row["hours_covered"])
		assert.Equal(t, "12.5", row["coverage_percentage"])
		assert.Equal(t, "6", row["first_reading_hour"])
		assert.Equal(t, "18", row["last_reading_hour"])
		assert.Equal(t, QualityPoor, row["daily_quality"])
		assert.Equal(t, "18:00:00", row["heartRate_max_timeOfDay_daily"])
	}
}

func TestQualityScorer_MaxTimeTieBreakIsChronological(t *testing.T) {
	table := newTestTable(domain.TableActivityHR,
		[]string{"date", "timeOfDay", "heartRate"},
		[]string{"2025-01-10", "21:00:00", "95"}, // later duplicate of the max
		[]string{"2025-01-10", "09:15:00", "95"},
		[]string{"2025-01-10", "12:00:00", "70"},
	)

	scorer := NewQualityScorer(nil)
	out, err := scorer.Apply(context.Background(), mustDescriptor(domain.TableActivityHR), table)
	require.NoError(t, err)

	for _, row := range out.Rows {
		assert.Equal(t, "09:15:00", row["heartRate_max_timeOfDay_daily"])
	}
}

func TestQualityScorer_GroupsPerDay(t *testing.T) {
	table := newTestTable(domain.TableActivityHR,
		[]string{"date", "timeOfDay", "heartRate"},
		[]string{"2025-01-10", "06:00:00", "60"},
		[]string{"2025-01-11", "07:00:00", "65"},
		[]string{"2025-01-11", "20:00:00", "90"},
	)

	scorer := NewQualityScorer(nil)
	out, err := scorer.Apply(context.Background(), mustDescriptor(domain.TableActivityHR), table)
	require.NoError(t, err)

	assert.Equal(t, "1", out.Rows[0]["hours_covered"])
	assert.Equal(t, "2", out.Rows[1]["hours_covered"])
	assert.Equal(t, "7", out.Rows[1]["first_reading_hour"])
	assert.Equal(t, "20", out.Rows[2]["last_reading_hour"])
	assert.Equal(t, "20:00:00", out.Rows[1]["heartRate_max_timeOfDay_daily"])
}

func TestQualityScorer_SkipsUnscoredTables(t *testing.T) {
	table := newTestTable(domain.TableTrainingHRSamples,
		[]string{"dateTime", "heartRate"},
		[]string{"2025-02-01T08:00:00", "120"},
	)

	scorer := NewQualityScorer(nil)
	out, err := scorer.Apply(context.Background(), mustDescriptor(domain.TableTrainingHRSamples), table)
	require.NoError(t, err)
	assert.False(t, out.HasColumn("daily_quality"))
}

func TestQualityScorer_EmptyTableGainsSchema(t *testing.T) {
	table := newTestTable(domain.TableActivityHR,
		[]string{"date", "timeOfDay", "heartRate"})

	scorer := NewQualityScorer(nil)
	out, err := scorer.Apply(context.Background(), mustDescriptor(domain.TableActivityHR), table)
	require.NoError(t, err)
	assert.True(t, out.HasColumn("coverage_percentage"))
	assert.True(t, out.HasColumn("daily_quality"))
	assert.Empty(t, out.Rows)
}
