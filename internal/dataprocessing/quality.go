package dataprocessing

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"polarcli/pkg/contracts/domain"
)

// Quality classification tiers for per-day heart-rate coverage.
const (
	QualityPoor = "poor"
	QualityFair = "fair"
	QualityGood = "good"
)

// Quality column names broadcast onto every row of a (user, date) group.
const (
	colHoursCovered     = "hours_covered"
	colCoveragePercent  = "coverage_percentage"
	colFirstReadingHour = "first_reading_hour"
	colLastReadingHour  = "last_reading_hour"
	colDailyQuality     = "daily_quality"
)

// QualityScorer attaches per-day coverage metrics to high-frequency
// heart-rate tables. Coverage counts the distinct hour-of-day buckets with
// at least one reading.
type QualityScorer struct {
	logger *slog.Logger
}

// NewQualityScorer creates a new coverage-based quality scorer.
func NewQualityScorer(logger *slog.Logger) *QualityScorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &QualityScorer{logger: logger}
}

// ClassifyCoverage maps a coverage percentage to its quality tier.
// 50 and 80 both classify as fair.
func ClassifyCoverage(pct float64) string {
	switch {
	case pct < 50:
		return QualityPoor
	case pct <= 80:
		return QualityFair
	default:
		return QualityGood
	}
}

// Apply broadcasts the coverage fields onto every row of each day group.
// Tables whose descriptor does not enable quality scoring pass through
// untouched.
func (q *QualityScorer) Apply(ctx context.Context, desc Descriptor, table *domain.Table) (*domain.Table, error) {
	out := table.Clone()
	if !desc.Quality {
		return out, nil
	}

	valueCol := desc.ValueColumns[0]
	maxTimeCol := valueCol + "_max_timeOfDay_" + string(desc.GroupLevel())
	for _, col := range []string{
		colHoursCovered, colCoveragePercent,
		colFirstReadingHour, colLastReadingHour,
		colDailyQuality, maxTimeCol,
	} {
		out.EnsureColumn(col)
	}
	if out.Empty() {
		return out, nil
	}

	type member struct {
		index int
		ts    time.Time
		value float64
		ok    bool
	}
	groups := make(map[string][]member)
	for i, row := range out.Rows {
		ts, err := desc.Timestamp(row)
		if err != nil {
			continue
		}
		v, verr := desc.Value(row, valueCol)
		groups[ts.Format("2006-01-02")] = append(groups[ts.Format("2006-01-02")], member{
			index: i,
			ts:    ts,
			value: v,
			ok:    verr == nil,
		})
	}

	for _, members := range groups {
		// Chronological order fixes the tie-break for the day's maximum.
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].ts.Before(members[j].ts)
		})

		seen := make(map[int]bool)
		firstHour, lastHour := 24, -1
		var maxTime string
		maxValue := 0.0
		haveMax := false
		for _, m := range members {
			hour := m.ts.Hour()
			seen[hour] = true
			if hour < firstHour {
				firstHour = hour
			}
			if hour > lastHour {
				lastHour = hour
			}
			if m.ok && (!haveMax || m.value > maxValue) {
				maxValue = m.value
				maxTime = m.ts.Format("15:04:05")
				haveMax = true
			}
		}

		hoursCovered := len(seen)
		coverage := float64(hoursCovered) / 24 * 100
		quality := ClassifyCoverage(coverage)

		for _, m := range members {
			out.Set(m.index, colHoursCovered, formatCount(hoursCovered))
			out.Set(m.index, colCoveragePercent, formatStat(coverage))
			out.Set(m.index, colFirstReadingHour, formatCount(firstHour))
			out.Set(m.index, colLastReadingHour, formatCount(lastHour))
			out.Set(m.index, colDailyQuality, quality)
			if haveMax {
				out.Set(m.index, maxTimeCol, maxTime)
			}
		}
	}

	q.logger.DebugContext(ctx, "scored table quality",
		slog.String("table", string(desc.Type)),
		slog.Int("days", len(groups)))

	return out, nil
}
