package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"polarcli/internal/errors"
	"polarcli/pkg/contracts/domain"
)

// MasterMerger concatenates the per-user assembled tables of one table type
// into a single cross-user master table. Each row is tagged with its
// user_id; users are visited in sorted order so the result is identical
// regardless of the completion order of parallel per-user runs.
type MasterMerger struct {
	logger *slog.Logger
}

// NewMasterMerger creates a new master merger.
func NewMasterMerger(logger *slog.Logger) *MasterMerger {
	if logger == nil {
		logger = slog.Default()
	}
	return &MasterMerger{logger: logger}
}

// Merge builds the master table for one table type. A user missing the
// table contributes zero rows. The per-user schemas must be identical;
// a mismatch is a schema error because the comparison stage depends on
// stable per-stat column names.
func (m *MasterMerger) Merge(ctx context.Context, tt domain.TableType, perUser map[string]*domain.Table) (*domain.Table, error) {
	users := make([]string, 0, len(perUser))
	for user := range perUser {
		users = append(users, user)
	}
	sort.Strings(users)

	master := domain.NewTable(tt, domain.UserIDColumn)
	var schema []string

	for _, user := range users {
		table := perUser[user]
		if table == nil {
			continue
		}
		cols := withoutUserID(table.Columns)
		if schema == nil {
			schema = cols
			for _, c := range schema {
				master.EnsureColumn(c)
			}
		} else if !equalColumns(schema, cols) {
			return nil, errors.NewSchemaError(
				fmt.Sprintf("table %s schema differs for user %s", tt, user), nil).
				WithContext("user_id", user).
				WithContext("table", string(tt))
		}

		for _, row := range table.Rows {
			merged := row.Clone()
			if merged[domain.UserIDColumn] == "" {
				merged[domain.UserIDColumn] = user
			}
			master.Rows = append(master.Rows, merged)
		}
	}

	m.logger.InfoContext(ctx, "merged master table",
		slog.String("table", string(tt)),
		slog.Int("users", len(users)),
		slog.Int("rows", len(master.Rows)))

	return master, nil
}

func withoutUserID(cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != domain.UserIDColumn {
			out = append(out, c)
		}
	}
	return out
}

func equalColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
