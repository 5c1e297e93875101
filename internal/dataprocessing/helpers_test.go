package dataprocessing

import (
	"time"

	"polarcli/internal/config"
	"polarcli/pkg/contracts/domain"
)

// newTestTable builds a table from a column list and cell tuples.
func newTestTable(tt domain.TableType, cols []string, rows ...[]string) *domain.Table {
	table := domain.NewTable(tt, cols...)
	for _, cells := range rows {
		row := make(domain.Row, len(cols))
		for i, col := range cols {
			if i < len(cells) {
				row[col] = cells[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// openFilterConfig covers all of 2025 with no training filtering.
func openFilterConfig() config.FilterConfig {
	return config.FilterConfig{
		EndDate:      time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		TrainingMode: config.TrainingAll,
		Cutoff:       config.CutoffDate,
	}
}

func mustDescriptor(tt domain.TableType) Descriptor {
	desc, err := ForType(tt)
	if err != nil {
		panic(err)
	}
	return desc
}
