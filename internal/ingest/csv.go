// Package ingest reads the per-user CSV tables produced by the watch-export
// parser stage. Layout: one directory per user id, one <table_type>.csv per
// table the user has.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"polarcli/internal/dataprocessing"
	"polarcli/internal/errors"
	"polarcli/pkg/contracts/domain"
)

// Reader loads ingested tables from disk.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a new table reader.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// ReadUserDir loads every table type present in a user directory. A missing
// file means the user simply lacks that table; a present file with a broken
// schema is a schema error surfaced to the caller per table.
func (r *Reader) ReadUserDir(ctx context.Context, dir, userID string) (dataprocessing.UserTables, map[domain.TableType]error) {
	tables := make(dataprocessing.UserTables)
	failures := make(map[domain.TableType]error)

	for _, tt := range domain.AllTableTypes() {
		path := filepath.Join(dir, string(tt)+".csv")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		table, err := r.ReadTable(ctx, path, tt)
		if err != nil {
			failures[tt] = err
			continue
		}
		tables[tt] = table
	}

	r.logger.InfoContext(ctx, "read user directory",
		slog.String("user_id", userID),
		slog.String("dir", dir),
		slog.Int("tables", len(tables)),
		slog.Int("failures", len(failures)))

	return tables, failures
}

// ReadTable reads one CSV table and validates its schema against the table
// type's descriptor.
func (r *Reader) ReadTable(ctx context.Context, path string, tt domain.TableType) (*domain.Table, error) {
	desc, err := dataprocessing.ForType(tt)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewStorageError("failed to open table file", err).
			WithContext("path", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewSchemaError(
			fmt.Sprintf("table %s at %s has no header row", tt, path), nil)
	}
	if err != nil {
		return nil, errors.NewParsingError("failed to read CSV header", err).
			WithContext("path", path)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			// Exports written for Excel carry a UTF-8 BOM.
			h = strings.TrimPrefix(h, "\ufeff")
		}
		columns[i] = strings.TrimSpace(h)
	}

	table := domain.NewTable(tt, columns...)
	if err := desc.ValidateSchema(table); err != nil {
		return nil, err
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParsingError(
				fmt.Sprintf("failed to read CSV record at line %d", line+1), err).
				WithContext("path", path)
		}
		line++

		row := make(domain.Row, len(columns))
		for i, cell := range record {
			if i >= len(columns) {
				break
			}
			row[columns[i]] = cell
		}
		table.Rows = append(table.Rows, row)
	}

	r.logger.DebugContext(ctx, "read table",
		slog.String("table", string(tt)),
		slog.String("path", path),
		slog.Int("rows", len(table.Rows)))

	return table, nil
}

// ListUserDirs returns the user ids found under the input directory, sorted
// by directory name.
func ListUserDirs(inputDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, errors.NewStorageError("failed to read input directory", err).
			WithContext("path", inputDir)
	}
	var users []string
	for _, entry := range entries {
		if entry.IsDir() {
			users = append(users, entry.Name())
		}
	}
	return users, nil
}
