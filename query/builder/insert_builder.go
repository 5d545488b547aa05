package builder

import (
	"strings"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/expression"
	"github.com/satishbabariya/dbal/query/types"
)

// InsertQuery builds INSERT statements
type InsertQuery struct {
	table   string
	columns []string
	types   []types.Type
	rows    [][]any
	source  *SelectQuery
	errs    errorList
}

// Insert starts an INSERT into table
func Insert(table string) *InsertQuery {
	q := &InsertQuery{table: table}
	if table == "" {
		q.errs.add("insert requires a table")
	}
	return q
}

// Columns sets the target columns
func (q *InsertQuery) Columns(columns ...string) *InsertQuery {
	q.columns = columns
	return q
}

// Types declares the binding type of each column, by position
func (q *InsertQuery) Types(ts ...types.Type) *InsertQuery {
	q.types = ts
	return q
}

// Values adds one row; its arity must match the columns
func (q *InsertQuery) Values(row ...any) *InsertQuery {
	if len(row) != len(q.columns) {
		q.errs.add("insert row has %d values for %d columns", len(row), len(q.columns))
		return q
	}
	q.rows = append(q.rows, row)
	return q
}

// FromSelect inserts the result of a query instead of literal rows
func (q *InsertQuery) FromSelect(s *SelectQuery) *InsertQuery {
	q.source = s
	return q
}

// Err returns the construction errors recorded so far
func (q *InsertQuery) Err() error {
	errs := append(errorList{}, q.errs...)
	if len(q.columns) == 0 {
		errs.add("insert into %s requires columns", q.table)
	}
	if len(q.rows) == 0 && q.source == nil {
		errs.add("insert into %s requires values or a select", q.table)
	}
	if len(q.rows) > 0 && q.source != nil {
		errs.add("insert into %s cannot mix values and a select", q.table)
	}
	return errs.err()
}

// Compile renders the statement against a fresh binder
func (q *InsertQuery) Compile() (Compiled, error) { return compile(q) }

func (q *InsertQuery) SQL(b *binder.ValueBinder) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(q.table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(q.columns, ", "))
	sb.WriteString(")")

	if q.source != nil {
		sb.WriteString(" ")
		sb.WriteString(q.source.SQL(b))
		return sb.String()
	}

	sb.WriteString(" VALUES ")
	for i, row := range q.rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		parts := make([]string, len(row))
		for k, v := range row {
			var t types.Type
			if k < len(q.types) {
				t = q.types[k]
			}
			parts[k] = bindOrRender(v, t, b)
		}
		sb.WriteString("(")
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString(")")
	}
	return sb.String()
}

func (q *InsertQuery) Traverse(visit func(expression.Node)) {
	for _, row := range q.rows {
		traverseItems(visit, row...)
	}
	if q.source != nil {
		traverseItems(visit, q.source)
	}
}
