// Package exporter writes assembled tables to per-user and master output
// files in CSV and Excel form.
package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"polarcli/internal/errors"
	"polarcli/pkg/contracts/domain"
)

// Format selects the output file formats.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatBoth  Format = "both"
	FormatNone  Format = "none"
)

// ParseFormat validates a format selector string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatExcel, FormatBoth, FormatNone:
		return Format(s), nil
	default:
		return "", errors.NewConfigError(fmt.Sprintf("unknown output format %q", s), nil)
	}
}

// masterDir is the subdirectory master tables are written to.
const masterDir = "master"

// TableWriter writes named tables in the configured format. Layout:
// <outDir>/<user_id>/<table_type>.{csv,xlsx} for per-user tables and
// <outDir>/master/<table_type>_master.{csv,xlsx} for master tables.
type TableWriter struct {
	logger *slog.Logger
	csv    *CSVWriter
	excel  *ExcelWriter
	outDir string
	format Format
}

// NewTableWriter creates a writer rooted at outDir.
func NewTableWriter(logger *slog.Logger, outDir string, format Format) *TableWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableWriter{
		logger: logger,
		csv:    NewCSVWriter(logger),
		excel:  NewExcelWriter(logger),
		outDir: outDir,
		format: format,
	}
}

// WriteUserTable writes one user's assembled table.
func (w *TableWriter) WriteUserTable(ctx context.Context, userID string, table *domain.Table) error {
	return w.write(ctx, filepath.Join(w.outDir, userID), string(table.Type), table)
}

// WriteMaster writes a cross-user master table.
func (w *TableWriter) WriteMaster(ctx context.Context, table *domain.Table) error {
	return w.write(ctx, filepath.Join(w.outDir, masterDir), string(table.Type)+"_master", table)
}

func (w *TableWriter) write(ctx context.Context, dir, name string, table *domain.Table) error {
	if w.format == FormatNone {
		return nil
	}

	headers, records := Flatten(table)
	w.logger.InfoContext(ctx, "writing table",
		slog.String("name", name),
		slog.String("dir", dir),
		slog.String("format", string(w.format)),
		slog.Int("rows", len(records)))

	if w.format == FormatCSV || w.format == FormatBoth {
		path := filepath.Join(dir, name+".csv")
		if err := w.csv.WriteSimpleCSV(path, headers, records); err != nil {
			return errors.NewStorageError("failed to write CSV table", err).
				WithContext("path", path)
		}
	}
	if w.format == FormatExcel || w.format == FormatBoth {
		path := filepath.Join(dir, name+".xlsx")
		if err := w.excel.WriteSheet(path, name, headers, records); err != nil {
			return errors.NewStorageError("failed to write Excel table", err).
				WithContext("path", path)
		}
	}
	return nil
}

// Flatten turns a table into header and record slices in schema order.
// Cells absent from a row flatten to empty strings.
func Flatten(table *domain.Table) ([]string, [][]string) {
	headers := append([]string(nil), table.Columns...)
	records := make([][]string, len(table.Rows))
	for i, row := range table.Rows {
		record := make([]string, len(headers))
		for j, col := range headers {
			record[j] = row[col]
		}
		records[i] = record
	}
	return headers, records
}
