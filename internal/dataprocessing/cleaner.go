package dataprocessing

import (
	"context"
	"log/slog"

	"polarcli/pkg/contracts/domain"
)

// Cleaner removes sensor-invalid rows according to the table's descriptor.
// Surviving rows are copied, never mutated; an input reduced to zero rows
// still yields an empty table with the full schema.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a new metric cleaner.
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger}
}

// Clean applies the descriptor's validity rule and returns the surviving
// rows as a new table.
func (c *Cleaner) Clean(ctx context.Context, desc Descriptor, table *domain.Table) (*domain.Table, error) {
	if err := desc.ValidateSchema(table); err != nil {
		return nil, err
	}

	out := domain.NewTable(table.Type, table.Columns...)
	if desc.Valid == nil && !desc.RequireTimestamp {
		// Pass-through table (training_summary): row removal does not apply.
		out.Rows = make([]domain.Row, len(table.Rows))
		for i, row := range table.Rows {
			out.Rows[i] = row.Clone()
		}
		return out, nil
	}

	dropped := 0
	for _, row := range table.Rows {
		if desc.RequireTimestamp {
			if _, err := desc.Timestamp(row); err != nil {
				dropped++
				continue
			}
		}
		if desc.Valid != nil && !c.rowValid(desc, row) {
			dropped++
			continue
		}
		out.Rows = append(out.Rows, row.Clone())
	}

	c.logger.DebugContext(ctx, "cleaned table",
		slog.String("table", string(desc.Type)),
		slog.Int("kept", len(out.Rows)),
		slog.Int("dropped", dropped))

	return out, nil
}

// rowValid parses the metric columns and applies the validity rule. A cell
// that cannot be parsed counts as sensor-invalid.
func (c *Cleaner) rowValid(desc Descriptor, row domain.Row) bool {
	values := make(map[string]float64, len(desc.ValueColumns))
	for _, col := range desc.ValueColumns {
		v, err := desc.Value(row, col)
		if err != nil {
			return false
		}
		values[col] = v
	}
	return desc.Valid(values)
}
