package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReadTable(t *testing.T) {
	input := "\xEF\xBB\xBFname,amt,amt,\n" +
		"Ada,\"$1,200.50\",1,x\n" +
		"Bob,$0.00\n" +
		",,,\n" +
		"Cy,=\"007\",3,y,extra\n"

	raw, err := ReadTable(strings.NewReader(input), IngestOptions{})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	wantFields := []string{"name", "amt", "amt_2", "column_4"}
	if strings.Join(raw.Fields, "|") != strings.Join(wantFields, "|") {
		t.Errorf("Fields = %v, want %v", raw.Fields, wantFields)
	}
	if len(raw.Records) != 3 {
		t.Fatalf("got %d records, want 3 (blank row skipped)", len(raw.Records))
	}

	first := raw.Records[0]
	if first["amt"] != "$1,200.50" || first["amt_2"] != "1" || first["column_4"] != "x" {
		t.Errorf("first record = %v", first)
	}
	if second := raw.Records[1]; second["amt_2"] != "" || second["column_4"] != "" {
		t.Errorf("short row not padded: %v", second)
	}
	third := raw.Records[2]
	if third["amt"] != "007" || len(third) != 4 {
		t.Errorf("third record = %v", third)
	}
}

func TestReadTableDelimiters(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"comma", "a,b\n1,2\n"},
		{"semicolon", "a;b\n1;2\n"},
		{"tab", "a\tb\n1\t2\n"},
		{"pipe", "a|b\n1|2\n"},
		{"crlf", "a,b\r\n1,2\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ReadTable(strings.NewReader(tt.input), IngestOptions{})
			if err != nil {
				t.Fatalf("ReadTable: %v", err)
			}
			if len(raw.Fields) != 2 || raw.Records[0]["b"] != "2" {
				t.Errorf("got fields %v records %v", raw.Fields, raw.Records)
			}
		})
	}
}

func TestReadTableExplicitDelimiter(t *testing.T) {
	// Detection would pick the comma; the caller knows better.
	raw, err := ReadTable(strings.NewReader("a;b,c\n1;2,3\n"), IngestOptions{Delimiter: ';'})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if raw.Records[0]["b,c"] != "2,3" {
		t.Errorf("record = %v", raw.Records[0])
	}
}

func TestReadTableKeepEmptyRows(t *testing.T) {
	raw, err := ReadTable(strings.NewReader("a,b\n,\n1,2\n"), IngestOptions{KeepEmptyRows: true})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if len(raw.Records) != 2 {
		t.Errorf("got %d records, want 2", len(raw.Records))
	}
}

func TestReadTableInvalidUTF8(t *testing.T) {
	raw, err := ReadTable(bytes.NewReader([]byte("name\ncaf\xe9\n")), IngestOptions{})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got := raw.Records[0]["name"]; got != "caf�" {
		t.Errorf("name = %q", got)
	}
}

func TestReadTableErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  IngestOptions
		want  error
	}{
		{"empty", "", IngestOptions{}, ErrEmptyFile},
		{"whitespace only", "  \n\n", IngestOptions{}, ErrEmptyFile},
		{"bom only", "\xEF\xBB\xBF", IngestOptions{}, ErrEmptyFile},
		{"too many rows", "a\n1\n2\n3\n", IngestOptions{MaxRows: 2}, ErrTooManyRows},
		{"too large", "a,b\n1,2\n", IngestOptions{MaxBytes: 4}, ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTable(strings.NewReader(tt.input), tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadTable error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReadTableRowLimitBoundary(t *testing.T) {
	raw, err := ReadTable(strings.NewReader("a\n1\n2\n"), IngestOptions{MaxRows: 2})
	if err != nil {
		t.Fatalf("ReadTable at the limit: %v", err)
	}
	if len(raw.Records) != 2 {
		t.Errorf("got %d records", len(raw.Records))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestReadTableReaderError(t *testing.T) {
	if _, err := ReadTable(failingReader{}, IngestOptions{}); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("error = %v, want io.ErrClosedPipe", err)
	}
}

func TestDetectDelimiter(t *testing.T) {
	tests := map[string]rune{
		"a,b,c":     ',',
		"a;b;c":     ';',
		"a\tb":      '\t',
		"a|b|c":     '|',
		"single":    ',',
		"":          ',',
		"a;b,c;d":   ';',
		"x\ny;z;w;": ',',
	}
	for in, want := range tests {
		if got := DetectDelimiter([]byte(in)); got != want {
			t.Errorf("DetectDelimiter(%q) = %q, want %q", in, got, want)
		}
	}
}
