// Package persist writes exported datasets to durable storage: a new
// PostgreSQL table, a Parquet file or a CSV file.
package persist

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/easydata/internal/core"
	"github.com/JonMunkholm/easydata/internal/logging"
)

// maxIdentifierLen is PostgreSQL's NAMEDATALEN - 1.
const maxIdentifierLen = 63

// idColumn is the surrogate key added to every table.
const idColumn = "id"

// ErrInvalidTableName is returned when nothing is left of a table name
// after sanitizing.
var ErrInvalidTableName = errors.New("invalid table name: use only letters, numbers, and underscores")

var unsafeIdentifierChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Beginner starts transactions. *pgxpool.Pool and *pgx.Conn satisfy it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresWriter creates one table per exported dataset.
type PostgresWriter struct {
	db Beginner
}

// NewPostgresWriter returns a writer that uses db for every table.
func NewPostgresWriter(db Beginner) *PostgresWriter {
	return &PostgresWriter{db: db}
}

// tableColumn pairs a catalog column with its sanitized storage name.
type tableColumn struct {
	name     string
	dataType core.DataType
	source   string
}

// tablePlan is everything needed to create and fill one table.
type tablePlan struct {
	name    string
	columns []tableColumn
}

// SanitizeIdentifier drops every character outside [A-Za-z0-9_] and
// truncates the result to PostgreSQL's identifier length.
func SanitizeIdentifier(s string) string {
	s = unsafeIdentifierChars.ReplaceAllString(s, "")
	if len(s) > maxIdentifierLen {
		s = s[:maxIdentifierLen]
	}
	return s
}

// planTable sanitizes the table and column names. Columns whose names
// sanitize to nothing are skipped; collisions, including with the id
// column, get a numeric suffix.
func planTable(exp core.Export) (tablePlan, error) {
	name := SanitizeIdentifier(exp.TableNameCandidate)
	if name == "" {
		return tablePlan{}, fmt.Errorf("%w: %q", ErrInvalidTableName, exp.TableNameCandidate)
	}

	taken := map[string]bool{idColumn: true}
	plan := tablePlan{name: name}
	for _, col := range exp.Columns {
		base := SanitizeIdentifier(col.Name)
		if base == "" {
			continue
		}
		colName := base
		for n := 2; taken[strings.ToLower(colName)]; n++ {
			suffix := "_" + strconv.Itoa(n)
			if len(base)+len(suffix) > maxIdentifierLen {
				base = base[:maxIdentifierLen-len(suffix)]
			}
			colName = base + suffix
		}
		taken[strings.ToLower(colName)] = true
		plan.columns = append(plan.columns, tableColumn{name: colName, dataType: col.DataType, source: col.Name})
	}
	return plan, nil
}

// createSQL returns the CREATE TABLE statement for the plan.
func (p tablePlan) createSQL() string {
	defs := make([]string, 0, len(p.columns)+1)
	defs = append(defs, pgx.Identifier{idColumn}.Sanitize()+" serial primary key")
	for _, c := range p.columns {
		defs = append(defs, pgx.Identifier{c.name}.Sanitize()+" "+core.StorageType(c.dataType))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", pgx.Identifier{p.name}.Sanitize(), strings.Join(defs, ", "))
}

func (p tablePlan) columnNames() []string {
	names := make([]string, len(p.columns))
	for i, c := range p.columns {
		names[i] = c.name
	}
	return names
}

// copyRows converts the export's rows into CopyFrom input.
func (p tablePlan) copyRows(rows []core.Row) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		values := make([]any, len(p.columns))
		for j, c := range p.columns {
			values[j] = toPgValue(row[c.source], c.dataType)
		}
		out[i] = values
	}
	return out
}

// toPgValue maps a canonical value onto the pgtype for its storage type.
func toPgValue(v any, t core.DataType) any {
	v = core.Cast(v, t)
	switch t {
	case core.TypeNumber:
		f, ok := v.(float64)
		return pgtype.Float8{Float64: f, Valid: ok}
	case core.TypeBoolean:
		b, ok := v.(bool)
		return pgtype.Bool{Bool: b, Valid: ok}
	default:
		s, ok := v.(string)
		return pgtype.Text{String: s, Valid: ok}
	}
}

const tableExistsSQL = `SELECT EXISTS (
	SELECT 1 FROM information_schema.tables
	WHERE table_schema = current_schema() AND table_name = $1
)`

// WriteTable creates a table for exp and copies every row into it inside
// one transaction. It refuses to touch an existing table.
func (w *PostgresWriter) WriteTable(ctx context.Context, exp core.Export) (string, error) {
	plan, err := planTable(exp)
	if err != nil {
		return "", err
	}
	logger := logging.WithFields(ctx, "table", plan.name)

	tx, err := w.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, tableExistsSQL, plan.name).Scan(&exists); err != nil {
		return "", fmt.Errorf("check table %s: %w", plan.name, err)
	}
	if exists {
		return "", fmt.Errorf("%w: %s", core.ErrTableExists, plan.name)
	}

	if _, err := tx.Exec(ctx, plan.createSQL()); err != nil {
		return "", fmt.Errorf("create table %s: %w", plan.name, err)
	}

	if len(plan.columns) > 0 && len(exp.Rows) > 0 {
		copied, err := tx.CopyFrom(ctx, pgx.Identifier{plan.name}, plan.columnNames(), pgx.CopyFromRows(plan.copyRows(exp.Rows)))
		if err != nil {
			return "", fmt.Errorf("copy rows into %s: %w", plan.name, err)
		}
		logger.Debug("rows copied", "rows", copied)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	if skipped := len(exp.Columns) - len(plan.columns); skipped > 0 {
		logger.Warn("columns without a usable name were not stored", "skipped", skipped)
	}
	logger.Info("table created", "columns", len(plan.columns), "rows", len(exp.Rows))
	return plan.name, nil
}
