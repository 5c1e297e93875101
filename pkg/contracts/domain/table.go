package domain

// TableType identifies one of the physiological/activity table categories
// produced by the watch-export parser stage.
type TableType string

const (
	TableActivityHR        TableType = "activity_hr"
	TableActivitySummary   TableType = "activity_summary"
	TableStepSeries        TableType = "step_series"
	TableTrainingHRSamples TableType = "training_hr_samples"
	TableTrainingSummary   TableType = "training_summary"
	TableNightlyBreathing  TableType = "nightly_recovery_breathing"
	TableNightlyHRV        TableType = "nightly_recovery_hrv"
)

// AllTableTypes returns every table type in a fixed, deterministic order.
func AllTableTypes() []TableType {
	return []TableType{
		TableActivityHR,
		TableActivitySummary,
		TableStepSeries,
		TableTrainingHRSamples,
		TableTrainingSummary,
		TableNightlyBreathing,
		TableNightlyHRV,
	}
}

// UserIDColumn is the column under which the master merger tags row ownership.
const UserIDColumn = "user_id"

// Row holds one observation as column name to cell text. Cells are the
// canonical string form used for CSV and Excel output.
type Row map[string]string

// Clone returns a copy of the row that can be mutated independently.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of columns plus rows. An empty table keeps its
// column schema so downstream stages can still produce schema-complete
// output.
type Table struct {
	Type    TableType
	Columns []string
	Rows    []Row
}

// NewTable creates a table of the given type with an initial column schema.
func NewTable(tt TableType, columns ...string) *Table {
	return &Table{
		Type:    tt,
		Columns: append([]string(nil), columns...),
	}
}

// HasColumn reports whether the column is part of the schema.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// EnsureColumn appends the column to the schema if it is not present yet.
func (t *Table) EnsureColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Set writes a cell on row i, extending the schema when the column is new.
func (t *Table) Set(i int, column, value string) {
	t.EnsureColumn(column)
	if t.Rows[i] == nil {
		t.Rows[i] = Row{}
	}
	t.Rows[i][column] = value
}

// Get reads a cell on row i; absent cells read as the empty string.
func (t *Table) Get(i int, column string) string {
	return t.Rows[i][column]
}

// Append adds a row. Columns unknown to the schema are added to its end in
// no particular order, so callers that care about ordering should declare
// columns up front via NewTable or EnsureColumn.
func (t *Table) Append(row Row) {
	for col := range row {
		t.EnsureColumn(col)
	}
	t.Rows = append(t.Rows, row)
}

// Empty reports whether the table holds no rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := NewTable(t.Type, t.Columns...)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}
