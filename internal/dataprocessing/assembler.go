package dataprocessing

import (
	"context"
	"log/slog"

	"polarcli/pkg/contracts/domain"
)

// Assembler finalizes a per-user table. For training_summary it derives the
// split start/stop date and time columns plus the weekday name of the start
// date; other tables pass through with their broadcast columns already in
// place. No row is added or removed here.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler creates a new table assembler.
func NewAssembler(logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{logger: logger}
}

// Assemble produces the final per-user table for a table type.
func (a *Assembler) Assemble(ctx context.Context, desc Descriptor, table *domain.Table) (*domain.Table, error) {
	out := table.Clone()
	if desc.Type != domain.TableTrainingSummary {
		return out, nil
	}

	for _, col := range []string{
		"start_date", "start_time", "stop_date", "stop_time", "start_day_name",
	} {
		out.EnsureColumn(col)
	}

	for i, row := range out.Rows {
		if start, err := parseTimestamp(row["start"]); err == nil {
			out.Set(i, "start_date", start.Format("2006-01-02"))
			out.Set(i, "start_time", start.Format("15:04:05"))
			out.Set(i, "start_day_name", start.Weekday().String())
		}
		if stop, err := parseTimestamp(row["stop"]); err == nil {
			out.Set(i, "stop_date", stop.Format("2006-01-02"))
			out.Set(i, "stop_time", stop.Format("15:04:05"))
		}
	}

	a.logger.DebugContext(ctx, "assembled training summary",
		slog.Int("sessions", len(out.Rows)))

	return out, nil
}
