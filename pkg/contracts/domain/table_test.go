package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllTableTypes(t *testing.T) {
	types := AllTableTypes()
	assert.Len(t, types, 7)
	assert.Equal(t, TableActivityHR, types[0])
	assert.Equal(t, TableNightlyHRV, types[6])
}

func TestTable_SchemaGrowth(t *testing.T) {
	table := NewTable(TableStepSeries, "date", "time")
	assert.True(t, table.HasColumn("date"))
	assert.False(t, table.HasColumn("step_count"))

	table.EnsureColumn("step_count")
	table.EnsureColumn("step_count")
	assert.Equal(t, []string{"date", "time", "step_count"}, table.Columns)
}

func TestTable_SetGet(t *testing.T) {
	table := NewTable(TableActivityHR, "date")
	table.Append(Row{"date": "2025-01-10"})

	table.Set(0, "heartRate", "72")
	assert.Equal(t, "72", table.Get(0, "heartRate"))
	assert.Equal(t, "", table.Get(0, "missing"))
	assert.True(t, table.HasColumn("heartRate"))
}

func TestTable_Clone(t *testing.T) {
	table := NewTable(TableActivityHR, "date", "heartRate")
	table.Append(Row{"date": "2025-01-10", "heartRate": "72"})

	clone := table.Clone()
	clone.Set(0, "heartRate", "99")
	clone.EnsureColumn("extra")

	assert.Equal(t, "72", table.Get(0, "heartRate"))
	assert.False(t, table.HasColumn("extra"))
}

func TestTable_Empty(t *testing.T) {
	table := NewTable(TableActivityHR, "date")
	assert.True(t, table.Empty())
	table.Append(Row{"date": "2025-01-10"})
	assert.False(t, table.Empty())
}

func TestTrainingSession_Contains(t *testing.T) {
	session := TrainingSession{
		Start: time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC),
		Stop:  time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name string
		ts   time.Time
		want bool
	}{
		{"before start", time.Date(2025, 2, 1, 7, 59, 59, 0, time.UTC), false},
		{"at start", session.Start, true},
		{"inside", time.Date(2025, 2, 1, 8, 30, 0, 0, time.UTC), true},
		{"at stop", session.Stop, true},
		{"after stop", time.Date(2025, 2, 1, 9, 0, 1, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, session.Contains(tt.ts))
		})
	}
}

func TestInAnySession(t *testing.T) {
	sessions := []TrainingSession{
		{Start: time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC), Stop: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)},
		{Start: time.Date(2025, 2, 2, 18, 0, 0, 0, time.UTC), Stop: time.Date(2025, 2, 2, 19, 0, 0, 0, time.UTC)},
	}

	assert.True(t, InAnySession(sessions, time.Date(2025, 2, 2, 18, 30, 0, 0, time.UTC)))
	assert.False(t, InAnySession(sessions, time.Date(2025, 2, 3, 12, 0, 0, 0, time.UTC)))
	assert.False(t, InAnySession(nil, time.Now()))
}

func TestRow_Clone(t *testing.T) {
	row := Row{"date": "2025-01-10"}
	clone := row.Clone()
	clone["date"] = "2025-01-11"
	require.Equal(t, "2025-01-10", row["date"])
}
