package core

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Dataset holds one in-memory table: ordered rows plus an ordered column
// catalog. Every method leaves the catalog and the rows consistent: no
// duplicate column names, and each row has exactly one key per column.
//
// A Dataset is not safe for concurrent use. Callers that share one must
// serialize access; Service does so with a mutex per dataset.
type Dataset struct {
	rows       []Row
	columns    []Column
	sourceName string
	loading    bool
	lastErr    string
}

// DatasetState is a read-only summary of a dataset.
type DatasetState struct {
	SourceName string   `json:"sourceName"`
	Columns    []Column `json:"columns"`
	RowCount   int      `json:"rowCount"`
	Loading    bool     `json:"loading"`
	Error      string   `json:"error,omitempty"`
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{}
}

// Load replaces the whole dataset with raw. The catalog is inferred from the
// first record; values are stored as read and cast when an operation or an
// export needs them. Keys missing from a record are set to nil and keys not
// in the catalog are dropped.
func (d *Dataset) Load(sourceName string, raw RawRows) {
	var first map[string]any
	if len(raw.Records) > 0 {
		first = raw.Records[0]
	}
	columns := InferColumns(raw.Fields, first)

	rows := make([]Row, len(raw.Records))
	for i, rec := range raw.Records {
		row := make(Row, len(columns))
		for _, c := range columns {
			row[c.Name] = rec[c.Name]
		}
		rows[i] = row
	}

	d.rows = rows
	d.columns = columns
	d.sourceName = sourceName
	d.loading = false
	d.lastErr = ""
}

// AddColumn sets col on every row using mapper, whose results are cast to
// col.DataType. A nil mapper fills the column with nil. If a column of the
// same name exists its catalog entry is replaced in place and overwrote is
// true; otherwise the column is appended. sources, when given, must name
// existing columns.
func (d *Dataset) AddColumn(col Column, mapper func(Row, int) any, sources []string) (overwrote bool, err error) {
	col.Name = strings.TrimSpace(col.Name)
	if col.Name == "" {
		return false, &ValidationError{Field: "name", Message: "column name is required"}
	}
	if !col.DataType.Valid() {
		return false, &ValidationError{Field: "dataType", Value: string(col.DataType), Message: "unknown data type"}
	}
	for _, src := range sources {
		if _, ok := d.Column(src); !ok {
			return false, &ValidationError{Field: "sourceColumns", Value: src, Message: "column not found"}
		}
	}
	col.Format = FormatFor(col.DataType, col.Format)

	// Compute every value before touching the dataset.
	rows := make([]Row, len(d.rows))
	for i, row := range d.rows {
		var v any
		if mapper != nil {
			v = mapper(row.clone(), i)
		}
		r := row.clone()
		r[col.Name] = Cast(v, col.DataType)
		rows[i] = r
	}

	d.rows = rows
	d.columns, overwrote = withColumn(d.columns, col)
	return overwrote, nil
}

// Apply runs op against the dataset and commits the new column. Nothing
// changes if op is invalid.
func (d *Dataset) Apply(op Operation) (*Result, error) {
	res, err := Execute(d.rows, d.columns, op)
	if err != nil {
		return nil, err
	}
	d.rows = res.Rows
	d.columns, res.Overwrote = withColumn(d.columns, res.Column)
	return res, nil
}

// ApplyAll runs ops in order and commits them together. If any descriptor
// is invalid, none is applied.
func (d *Dataset) ApplyAll(ops []Operation) (*BatchResult, error) {
	batch, err := ExecuteAll(d.rows, d.columns, ops)
	if err != nil {
		return nil, err
	}
	d.rows = batch.Rows
	d.columns = batch.Columns
	return batch, nil
}

// DeleteColumn removes the named column from the catalog and every row.
// It reports whether the column existed.
func (d *Dataset) DeleteColumn(name string) bool {
	idx := d.columnIndex(name)
	if idx < 0 {
		return false
	}

	columns := make([]Column, 0, len(d.columns)-1)
	columns = append(columns, d.columns[:idx]...)
	columns = append(columns, d.columns[idx+1:]...)

	rows := make([]Row, len(d.rows))
	for i, row := range d.rows {
		r := row.clone()
		delete(r, name)
		rows[i] = r
	}

	d.columns = columns
	d.rows = rows
	return true
}

// UpdateColumnType changes the declared type of a column. Existing values
// are not re-cast. Any type other than Number resets the format to None.
func (d *Dataset) UpdateColumnType(name string, t DataType) error {
	if !t.Valid() {
		return &ValidationError{Field: "dataType", Value: string(t), Message: "unknown data type"}
	}
	idx := d.columnIndex(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	d.columns = cloneColumns(d.columns)
	d.columns[idx].DataType = t
	d.columns[idx].Format = FormatFor(t, d.columns[idx].Format)
	return nil
}

// UpdateColumnFormat changes only the display format of a column. Formats
// other than None are only accepted on Number columns.
func (d *Dataset) UpdateColumnFormat(name string, f DisplayFormat) error {
	if f == "" {
		f = FormatNone
	}
	if !f.Valid() {
		return &ValidationError{Field: "format", Value: string(f), Message: "unknown display format"}
	}
	idx := d.columnIndex(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	if f != FormatNone && d.columns[idx].DataType != TypeNumber {
		return &ValidationError{
			Field:   name,
			Value:   string(f),
			Message: fmt.Sprintf("format %s requires a Number column, column is %s", f, d.columns[idx].DataType),
		}
	}
	d.columns = cloneColumns(d.columns)
	d.columns[idx].Format = f
	return nil
}

// Reset restores the empty initial state.
func (d *Dataset) Reset() {
	*d = Dataset{}
}

// SetLoading records whether a load is in progress.
func (d *Dataset) SetLoading(loading bool) { d.loading = loading }

// SetError records the last error shown for the dataset. An empty message
// clears it.
func (d *Dataset) SetError(msg string) { d.lastErr = msg }

// Columns returns a copy of the column catalog.
func (d *Dataset) Columns() []Column {
	return cloneColumns(d.columns)
}

// Column returns the named column.
func (d *Dataset) Column(name string) (Column, bool) {
	if idx := d.columnIndex(name); idx >= 0 {
		return d.columns[idx], true
	}
	return Column{}, false
}

// Rows returns a copy of the rows.
func (d *Dataset) Rows() []Row {
	out := make([]Row, len(d.rows))
	for i, row := range d.rows {
		out[i] = row.clone()
	}
	return out
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// SourceName returns the name the dataset was loaded from.
func (d *Dataset) SourceName() string { return d.sourceName }

// State returns a summary of the dataset.
func (d *Dataset) State() DatasetState {
	return DatasetState{
		SourceName: d.sourceName,
		Columns:    d.Columns(),
		RowCount:   len(d.rows),
		Loading:    d.loading,
		Error:      d.lastErr,
	}
}

// Export returns the dataset in the shape a storage collaborator consumes.
// Every value is cast to its column's type.
func (d *Dataset) Export() Export {
	rows := make([]Row, len(d.rows))
	for i, row := range d.rows {
		r := make(Row, len(d.columns))
		for _, c := range d.columns {
			r[c.Name] = Cast(row[c.Name], c.DataType)
		}
		rows[i] = r
	}
	return Export{
		TableNameCandidate: TableNameCandidate(d.sourceName),
		Columns:            d.Columns(),
		Rows:               rows,
	}
}

// TableNameCandidate derives a table name from a file name by dropping the
// directory and extension.
func TableNameCandidate(sourceName string) string {
	base := filepath.Base(strings.TrimSpace(sourceName))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (d *Dataset) columnIndex(name string) int {
	for i, c := range d.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}
