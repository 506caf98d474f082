package core

// ingest.go turns delimited text into RawRows for Dataset.Load.
//
// The input is cleaned before parsing:
//
//   - A UTF-8 byte order mark, common in files saved by Excel, is dropped
//   - Invalid UTF-8 sequences are replaced with U+FFFD
//   - The delimiter is detected from the header line unless one is given
//
// The whole table is held in memory, so MaxBytes and MaxRows bound what a
// single upload may cost.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyFile    = errors.New("empty file: no header row found")
	ErrFileTooLarge = errors.New("file too large")
	ErrTooManyRows  = errors.New("file has too many rows")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IngestOptions controls ReadTable.
type IngestOptions struct {
	// Delimiter separates fields. Zero means detect from the header line.
	Delimiter rune
	// MaxRows caps the number of data rows. Zero means no limit.
	MaxRows int
	// MaxBytes caps the input size. Zero means no limit.
	MaxBytes int64
	// KeepEmptyRows keeps rows whose cells are all blank.
	KeepEmptyRows bool
}

// ReadTable parses delimited text with a header row. Header names are
// cleaned and made unique; short rows are padded with empty strings and
// long rows truncated to the header width.
func ReadTable(r io.Reader, opts IngestOptions) (RawRows, error) {
	data, err := readAllLimited(r, opts.MaxBytes)
	if err != nil {
		return RawRows{}, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte("�"))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return RawRows{}, ErrEmptyFile
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = DetectDelimiter(data)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return RawRows{}, ErrEmptyFile
	}
	if err != nil {
		return RawRows{}, fmt.Errorf("invalid csv: %w", err)
	}
	fields := uniqueHeaders(header)

	var records []map[string]any
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return RawRows{}, fmt.Errorf("invalid csv: %w", err)
		}
		if !opts.KeepEmptyRows && isEmptyRow(rec) {
			continue
		}
		if opts.MaxRows > 0 && len(records) >= opts.MaxRows {
			return RawRows{}, fmt.Errorf("%w: limit is %d", ErrTooManyRows, opts.MaxRows)
		}

		row := make(map[string]any, len(fields))
		for i, name := range fields {
			cell := ""
			if i < len(rec) {
				cell = CleanCell(rec[i])
			}
			row[name] = cell
		}
		records = append(records, row)
	}

	return RawRows{Fields: fields, Records: records}, nil
}

// DetectDelimiter picks the most frequent of comma, semicolon, tab and pipe
// in the first line, defaulting to comma.
func DetectDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !sc.Scan() {
		return ','
	}
	line := sc.Text()

	best, bestCount := ',', 0
	for _, sep := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

// readAllLimited reads r fully, failing with ErrFileTooLarge past limit.
func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	}
	return data, nil
}

// uniqueHeaders cleans header cells, names blank ones column_N and suffixes
// repeats with _2, _3 and so on.
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := CleanCell(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		candidate := name
		for n := 2; seen[candidate]; n++ {
			candidate = name + "_" + strconv.Itoa(n)
		}
		seen[candidate] = true
		out[i] = candidate
	}
	return out
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
