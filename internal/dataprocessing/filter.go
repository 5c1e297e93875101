package dataprocessing

import (
	"context"
	"log/slog"

	"polarcli/internal/config"
	"polarcli/pkg/contracts/domain"
)

// TemporalFilter bounds rows to the configured date range and, for tables
// other than training_summary, partitions them by training-session
// membership. Session intervals are passed in explicitly; the filter never
// reaches into another table.
type TemporalFilter struct {
	logger *slog.Logger
}

// NewTemporalFilter creates a new temporal/category filter.
func NewTemporalFilter(logger *slog.Logger) *TemporalFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemporalFilter{logger: logger}
}

// Apply returns the subset of rows inside [max(start, cutoff), end] whose
// training membership matches the configured mode. Rows whose timestamp
// cannot be parsed are dropped and counted, not fatal. The training_summary
// table defines the partition and is therefore only date-filtered.
func (f *TemporalFilter) Apply(ctx context.Context, desc Descriptor, table *domain.Table,
	cfg config.FilterConfig, sessions []domain.TrainingSession) (*domain.Table, error) {

	out := domain.NewTable(table.Type, table.Columns...)
	applyTraining := cfg.TrainingMode != config.TrainingAll &&
		desc.Type != domain.TableTrainingSummary

	unparseable := 0
	for _, row := range table.Rows {
		ts, err := desc.Timestamp(row)
		if err != nil {
			unparseable++
			continue
		}
		if !cfg.InRange(ts) {
			continue
		}
		if applyTraining {
			inSession := domain.InAnySession(sessions, ts)
			if cfg.TrainingMode == config.TrainingOnly && !inSession {
				continue
			}
			if cfg.TrainingMode == config.NonTrainingOnly && inSession {
				continue
			}
		}
		out.Rows = append(out.Rows, row.Clone())
	}

	if unparseable > 0 {
		f.logger.WarnContext(ctx, "dropped rows with unparseable timestamps",
			slog.String("table", string(desc.Type)),
			slog.Int("count", unparseable))
	}

	return out, nil
}

// TrainingSessions extracts the [start, stop] intervals from a (date
// filtered) training_summary table.
func TrainingSessions(table *domain.Table) ([]domain.TrainingSession, error) {
	sessions := make([]domain.TrainingSession, 0, len(table.Rows))
	for _, row := range table.Rows {
		start, err := parseTimestamp(row["start"])
		if err != nil {
			return nil, err
		}
		stop, err := parseTimestamp(row["stop"])
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, domain.TrainingSession{Start: start, Stop: stop})
	}
	return sessions, nil
}
