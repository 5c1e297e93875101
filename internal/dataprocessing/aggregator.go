package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"polarcli/pkg/contracts/domain"
)

// AggregateResult holds the descriptive statistics of one group. Std is NaN
// for groups with fewer than two members (sample definition).
type AggregateResult struct {
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	Std    float64
	Sum    float64
	Range  float64
	Count  int
}

// ComputeStats computes the descriptive statistics of a value slice.
func ComputeStats(values []float64) (AggregateResult, error) {
	res := AggregateResult{Count: len(values), Std: math.NaN()}
	if len(values) == 0 {
		return res, nil
	}

	data := stats.Float64Data(values)
	var err error
	if res.Mean, err = stats.Mean(data); err != nil {
		return res, err
	}
	if res.Median, err = stats.Median(data); err != nil {
		return res, err
	}
	if res.Min, err = stats.Min(data); err != nil {
		return res, err
	}
	if res.Max, err = stats.Max(data); err != nil {
		return res, err
	}
	if res.Sum, err = stats.Sum(data); err != nil {
		return res, err
	}
	if len(values) >= 2 {
		if res.Std, err = stats.StandardDeviationSample(data); err != nil {
			return res, err
		}
	}
	res.Range = res.Max - res.Min
	return res, nil
}

// Aggregator computes statistics at every level of a table's key hierarchy
// and broadcasts them back onto the rows, so each row carries its hourly,
// daily/nightly and overall summary columns simultaneously. Rows are never
// collapsed; aggregation augments.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates a new hierarchical aggregator.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

// statColumns is the fixed per-level stat order of the broadcast columns.
var statColumns = []string{"mean", "median", "min", "max", "std", "count"}

// Apply returns a new table with all broadcast aggregate columns attached.
// The broadcast columns are added to the schema even when the table is
// empty, so schemas stay identical across users.
func (a *Aggregator) Apply(ctx context.Context, desc Descriptor, table *domain.Table) (*domain.Table, error) {
	out := table.Clone()
	if len(desc.Levels) == 0 {
		return out, nil
	}

	// Declare the full broadcast schema up front, in deterministic order.
	for _, col := range desc.ValueColumns {
		for _, lv := range desc.Levels {
			for _, stat := range statColumns {
				out.EnsureColumn(broadcastColumn(col, stat, lv))
			}
			if desc.RangeAt(lv) {
				out.EnsureColumn(broadcastColumn(col, "range", lv))
			}
			if desc.SumAt(lv) {
				out.EnsureColumn(broadcastColumn(col, "sum", lv))
			}
		}
	}
	if out.Empty() {
		return out, nil
	}

	// Timestamps are parsed once; upstream filtering has already dropped
	// unparseable rows, so a miss here just leaves the row unbroadcast.
	timestamps := make([]time.Time, len(out.Rows))
	hasTS := make([]bool, len(out.Rows))
	for i, row := range out.Rows {
		if ts, err := desc.Timestamp(row); err == nil {
			timestamps[i] = ts
			hasTS[i] = true
		}
	}

	for _, col := range desc.ValueColumns {
		for _, lv := range desc.Levels {
			groups := make(map[string][]int)
			for i := range out.Rows {
				if !hasTS[i] {
					continue
				}
				key := groupKey(lv, timestamps[i])
				groups[key] = append(groups[key], i)
			}

			for _, members := range groups {
				values := make([]float64, 0, len(members))
				for _, i := range members {
					v, err := desc.Value(out.Rows[i], col)
					if err != nil {
						continue
					}
					if desc.IgnoreZeroInStats && v == 0 {
						continue
					}
					values = append(values, v)
				}

				res, err := ComputeStats(values)
				if err != nil {
					return nil, err
				}
				a.broadcast(out, desc, col, lv, members, res)
			}
		}
	}

	a.logger.DebugContext(ctx, "aggregated table",
		slog.String("table", string(desc.Type)),
		slog.Int("rows", len(out.Rows)),
		slog.Int("levels", len(desc.Levels)))

	return out, nil
}

// broadcast writes one group's statistics onto every member row.
func (a *Aggregator) broadcast(t *domain.Table, desc Descriptor, col string, lv Level, members []int, res AggregateResult) {
	for _, i := range members {
		if res.Count == 0 {
			// Every metric cell in the group was excluded from the
			// statistics; the broadcast cells stay empty.
			t.Set(i, broadcastColumn(col, "count", lv), formatCount(0))
			continue
		}
		t.Set(i, broadcastColumn(col, "mean", lv), formatStat(res.Mean))
		t.Set(i, broadcastColumn(col, "median", lv), formatStat(res.Median))
		t.Set(i, broadcastColumn(col, "min", lv), formatStat(res.Min))
		t.Set(i, broadcastColumn(col, "max", lv), formatStat(res.Max))
		t.Set(i, broadcastColumn(col, "std", lv), formatStat(res.Std))
		t.Set(i, broadcastColumn(col, "count", lv), formatCount(res.Count))
		if desc.RangeAt(lv) {
			t.Set(i, broadcastColumn(col, "range", lv), formatStat(res.Range))
		}
		if desc.SumAt(lv) {
			t.Set(i, broadcastColumn(col, "sum", lv), formatStat(res.Sum))
		}
	}
}

// broadcastColumn builds the {valueColumn}_{stat}_{level} column name.
func broadcastColumn(col, stat string, lv Level) string {
	return col + "_" + stat + "_" + string(lv)
}

// groupKey maps a timestamp to its group key at the given level. The
// overall level has a single group.
func groupKey(lv Level, ts time.Time) string {
	switch lv {
	case LevelHourly:
		return ts.Format("2006-01-02T15")
	case LevelDaily, LevelNightly:
		return ts.Format("2006-01-02")
	default:
		return "all"
	}
}
