package persist

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/easydata/internal/core"
)

// Format is a file export format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat parses an export format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "parquet":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	return "text/csv; charset=utf-8"
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// WriteFile writes exp to w in format f.
func WriteFile(w io.Writer, exp core.Export, f Format, opts ParquetOptions) error {
	if f == FormatParquet {
		return WriteParquet(w, exp, opts)
	}
	return WriteCSV(w, exp)
}

// WriteCSV writes exp as CSV with a header row. Values are rendered with
// their column's display format, so currency columns read "$1,200.50".
func WriteCSV(w io.Writer, exp core.Export) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(exp.Columns))
	for i, col := range exp.Columns {
		header[i] = col.Name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(exp.Columns))
	for _, row := range exp.Rows {
		for i, col := range exp.Columns {
			record[i] = core.Render(row[col.Name], col)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
