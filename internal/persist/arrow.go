package persist

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/JonMunkholm/easydata/internal/core"
)

// Field metadata keys carrying the catalog entry into the Arrow schema.
const (
	MetaDataType = "easydata.data_type"
	MetaFormat   = "easydata.format"
)

// ParquetOptions controls Parquet output.
type ParquetOptions struct {
	// Compression is one of none, snappy, gzip or zstd. Empty means snappy.
	Compression string
}

// ParseCompression maps a codec name onto its Parquet compression type.
func ParseCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	}
	return compress.Codecs.Uncompressed, fmt.Errorf("unknown parquet compression %q", name)
}

// arrowType maps a semantic type to its Arrow column type. Dates stay text
// so values round-trip exactly as the dataset holds them.
func arrowType(t core.DataType) arrow.DataType {
	switch t {
	case core.TypeNumber:
		return arrow.PrimitiveTypes.Float64
	case core.TypeBoolean:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// Schema builds the Arrow schema for exp's catalog. Every field is nullable.
func Schema(exp core.Export) *arrow.Schema {
	fields := make([]arrow.Field, len(exp.Columns))
	for i, col := range exp.Columns {
		fields[i] = arrow.Field{
			Name:     col.Name,
			Type:     arrowType(col.DataType),
			Nullable: true,
			Metadata: arrow.NewMetadata(
				[]string{MetaDataType, MetaFormat},
				[]string{string(col.DataType), string(col.Format)},
			),
		}
	}
	return arrow.NewSchema(fields, nil)
}

// NewRecord converts exp into one Arrow record. The caller must Release it.
func NewRecord(mem memory.Allocator, exp core.Export) arrow.Record {
	b := array.NewRecordBuilder(mem, Schema(exp))
	defer b.Release()

	for i, col := range exp.Columns {
		fb := b.Field(i)
		fb.Reserve(len(exp.Rows))
		for _, row := range exp.Rows {
			appendValue(fb, core.Cast(row[col.Name], col.DataType))
		}
	}
	return b.NewRecord()
}

func appendValue(b array.Builder, v any) {
	switch fb := b.(type) {
	case *array.Float64Builder:
		if f, ok := v.(float64); ok {
			fb.Append(f)
			return
		}
	case *array.BooleanBuilder:
		if x, ok := v.(bool); ok {
			fb.Append(x)
			return
		}
	case *array.StringBuilder:
		if s, ok := v.(string); ok {
			fb.Append(s)
			return
		}
	}
	b.AppendNull()
}

// WriteParquet writes exp to w as a single-row-group Parquet file with the
// Arrow schema stored alongside it.
func WriteParquet(w io.Writer, exp core.Export, opts ParquetOptions) error {
	codec, err := ParseCompression(opts.Compression)
	if err != nil {
		return err
	}

	mem := memory.NewGoAllocator()
	rec := NewRecord(mem, exp)
	defer rec.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithAllocator(mem),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(rec.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("write parquet record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
