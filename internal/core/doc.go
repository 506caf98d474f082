// Package core provides the typed column-transformation engine.
//
// This package is the heart of easydata, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Values: every cell is canonical once committed (nil, float64, bool or
//     string). [Cast] converts raw input to a [DataType] and never fails;
//     [CastValue] reports why a conversion was not possible.
//   - Inference: [Infer] picks a type and [DisplayFormat] for a single raw
//     value; [InferColumns] builds a catalog from the first record.
//   - Operations: an [Operation] describes one derived column. [Execute] and
//     [ExecuteAll] validate it against the catalog and produce new rows
//     without touching their input.
//   - Dataset: [Dataset] owns one catalog and its rows and keeps them in
//     step across loads, applies and deletes.
//   - Service: [Service] keeps many datasets open, serializes changes to
//     each one and records their history.
//
// # Operations
//
// Arithmetic operations fold left over their sources and yield null for
// any row where a source is not numeric. Division yields null only when a
// divisor is zero:
//
//	res, err := core.Execute(rows, columns, core.Operation{
//	    NewColumnName: "margin",
//	    Kind:          core.OpDivide,
//	    SourceColumns: []string{"profit", "revenue"},
//	})
//
// Custom operations compile a formula once and evaluate it per row with the
// row's values bound by column name. See package formula for the grammar.
//
// # Ingestion
//
// [ReadTable] turns delimited text into [RawRows]: the byte order mark is
// removed, invalid UTF-8 is replaced, the delimiter is detected from the
// header line and headers are made unique.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - OP001-OP006: Operation errors (descriptor, formula, sources)
//   - FILE001-FILE005: File errors (size, format, rows)
//   - DS001-DS003: Dataset errors (expired, unknown column, limits)
//   - DB001-DB005: Persistence errors (disabled, duplicates, connections)
//   - UPL001-UPL002: Upload errors (busy, cancelled)
//
// # History
//
// Every change to a dataset is recorded with a severity level:
//
//   - Low: Column type and format changes
//   - Medium: Applied operations, column deletes
//   - High: Loads, persists
//   - Critical: Resets
package core
