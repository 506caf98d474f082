package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/JonMunkholm/easydata/internal/core/formula"
)

// Result is the output of one operation: the rows with the new column set,
// the computed values in row order and the catalog entry for the column.
type Result struct {
	Rows   []Row  `json:"-"`
	Values []any  `json:"-"`
	Column Column `json:"column"`

	// Failed counts rows whose value degraded to null because an operand
	// could not be cast or the evaluation failed.
	Failed int `json:"failedCells"`

	// Overwrote is set when the column replaced an existing one of the same
	// name. Execute leaves it false; commits by Dataset or ExecuteAll set it.
	Overwrote bool `json:"overwrote"`
}

// Execute derives one new column from rows. Structural problems are reported
// as *ValidationError or *FormulaCompileError before any row is read; input
// rows are never modified.
func Execute(rows []Row, columns []Column, op Operation) (*Result, error) {
	p, err := validateOperation(op, columns)
	if err != nil {
		return nil, err
	}
	return p.run(rows, columns), nil
}

// BatchResult is the outcome of ExecuteAll.
type BatchResult struct {
	Rows    []Row     `json:"-"`
	Columns []Column  `json:"columns"`
	Results []*Result `json:"results"`
}

// ExecuteAll applies ops in order, each one seeing the columns produced by
// the ones before it. Every descriptor is validated first; if any is invalid
// all problems are returned together and nothing runs.
func ExecuteAll(rows []Row, columns []Column, ops []Operation) (*BatchResult, error) {
	var merr *multierror.Error
	plans := make([]*plan, 0, len(ops))

	catalog := cloneColumns(columns)
	for i, op := range ops {
		p, err := validateOperation(op, catalog)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("operation %d (%s): %w", i+1, op.NewColumnName, err))
			continue
		}
		plans = append(plans, p)
		catalog, _ = withColumn(catalog, p.column)
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	out := &BatchResult{Rows: rows, Columns: cloneColumns(columns)}
	for _, p := range plans {
		res := p.run(out.Rows, out.Columns)
		out.Columns, res.Overwrote = withColumn(out.Columns, res.Column)
		out.Rows = res.Rows
		out.Results = append(out.Results, res)
	}
	return out, nil
}

func (p *plan) run(rows []Row, columns []Column) *Result {
	res := &Result{Values: make([]any, len(rows))}

	var dataType DataType
	switch p.kind {
	case OpNegate, OpAbsolute:
		dataType = TypeNumber
		res.Failed = p.eachRow(rows, res.Values, p.unary)
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		dataType = TypeNumber
		res.Failed = p.eachRow(rows, res.Values, p.arithmetic)
	case OpCombine:
		dataType = TypeText
		res.Failed = p.eachRow(rows, res.Values, p.combine)
	case OpCustom:
		dataType, res.Failed = p.custom(rows, columns, res.Values)
	}

	if p.column.Format == FormatCurrencyUSD || p.column.Format == FormatPercentage {
		dataType = TypeNumber
	}
	res.Column = Column{
		Name:     p.column.Name,
		DataType: dataType,
		Format:   FormatFor(dataType, p.column.Format),
	}

	res.Rows = make([]Row, len(rows))
	for i, row := range rows {
		v := Cast(res.Values[i], dataType)
		res.Values[i] = v
		r := row.clone()
		r[res.Column.Name] = v
		res.Rows[i] = r
	}
	return res
}

// eachRow fills values with fn applied to every row and returns how many
// rows failed.
func (p *plan) eachRow(rows []Row, values []any, fn func(Row) (any, bool)) int {
	failed := 0
	for i, row := range rows {
		v, ok := fn(row)
		if !ok {
			failed++
		}
		values[i] = v
	}
	return failed
}

func (p *plan) unary(row Row) (any, bool) {
	n, ok := ToNumber(row[p.sources[0]])
	if !ok {
		return nil, false
	}
	if p.kind == OpNegate {
		return -n, true
	}
	return math.Abs(n), true
}

// arithmetic folds the operands left to right. The first operand that does
// not cast, or a zero divisor, makes the whole row null.
func (p *plan) arithmetic(row Row) (any, bool) {
	acc, ok := ToNumber(row[p.sources[0]])
	if !ok {
		return nil, false
	}
	for _, src := range p.sources[1:] {
		n, ok := ToNumber(row[src])
		if !ok {
			return nil, false
		}
		switch p.kind {
		case OpAdd:
			acc += n
		case OpSubtract:
			acc -= n
		case OpMultiply:
			acc *= n
		case OpDivide:
			if n == 0 {
				return nil, false
			}
			acc /= n
		}
	}
	if math.IsNaN(acc) || math.IsInf(acc, 0) {
		return nil, false
	}
	return acc, true
}

func (p *plan) combine(row Row) (any, bool) {
	parts := make([]string, len(p.sources))
	for i, src := range p.sources {
		if s, ok := ToText(row[src]).(string); ok {
			parts[i] = s
		}
	}
	return strings.Join(parts, " "), true
}

// custom evaluates the compiled formula per row. The column type is the
// inferred type of the last row that evaluated without error; a null result
// there makes the column Text. Rows with mixed result types can end up cast
// to a type that suits only some of them.
func (p *plan) custom(rows []Row, columns []Column, values []any) (DataType, int) {
	types := make(map[string]DataType, len(columns))
	for _, c := range columns {
		types[c.Name] = c.DataType
	}

	sources := p.sources
	if len(sources) == 0 {
		for _, name := range p.expr.Variables() {
			if _, ok := types[name]; ok {
				sources = append(sources, name)
			}
		}
	}

	dataType := TypeText
	failed := 0
	scope := make(formula.Scope, len(sources))
	for i, row := range rows {
		for _, src := range sources {
			raw := row[src]
			t := types[src]
			if !t.Valid() {
				t, _ = Infer(raw)
			}
			scope[src] = formula.FromAny(Cast(raw, t))
		}

		v, err := p.expr.Eval(scope)
		if err != nil {
			values[i] = nil
			failed++
			continue
		}
		values[i] = v.Interface()
		dataType, _ = Infer(values[i])
	}
	return dataType, failed
}

// withColumn replaces the entry named col.Name in place, or appends it.
// It reports whether an entry was replaced.
func withColumn(columns []Column, col Column) ([]Column, bool) {
	out := cloneColumns(columns)
	for i, c := range out {
		if c.Name == col.Name {
			out[i] = col
			return out, true
		}
	}
	return append(out, col), false
}

func cloneColumns(columns []Column) []Column {
	out := make([]Column, len(columns), len(columns)+1)
	copy(out, columns)
	return out
}
