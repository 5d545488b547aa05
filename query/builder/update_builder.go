package builder

import (
	"strings"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/expression"
	"github.com/satishbabariya/dbal/query/types"
)

type assignment struct {
	column string
	value  any
	typ    types.Type
}

// UpdateQuery builds UPDATE statements
type UpdateQuery struct {
	table string
	set   []assignment
	where *expression.QueryExpression
	errs  errorList
}

// Update starts an UPDATE of table
func Update(table string) *UpdateQuery {
	q := &UpdateQuery{table: table}
	if table == "" {
		q.errs.add("update requires a table")
	}
	return q
}

// Set assigns a value to a column. Node values are compiled in place.
func (q *UpdateQuery) Set(column string, value any, t types.Type) *UpdateQuery {
	if column == "" {
		q.errs.add("update assignment requires a column")
		return q
	}
	q.set = append(q.set, assignment{column: column, value: value, typ: t})
	return q
}

// Where adds conditions joined with AND
func (q *UpdateQuery) Where(conds ...expression.Node) *UpdateQuery {
	conditions(&q.where, conds...)
	return q
}

// Err returns the construction errors recorded so far
func (q *UpdateQuery) Err() error {
	errs := append(errorList{}, q.errs...)
	if len(q.set) == 0 {
		errs.add("update of %s requires at least one assignment", q.table)
	}
	return errs.err()
}

// Compile renders the statement against a fresh binder
func (q *UpdateQuery) Compile() (Compiled, error) { return compile(q) }

func (q *UpdateQuery) SQL(b *binder.ValueBinder) string {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(q.table)
	sb.WriteString(" SET ")
	for i, a := range q.set {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.column)
		sb.WriteString(" = ")
		sb.WriteString(bindOrRender(a.value, a.typ, b))
	}
	if q.where != nil {
		if where := q.where.SQL(b); where != "" {
			sb.WriteString(" WHERE ")
			sb.WriteString(where)
		}
	}
	return sb.String()
}

func (q *UpdateQuery) Traverse(visit func(expression.Node)) {
	for _, a := range q.set {
		traverseItems(visit, a.value)
	}
	if q.where != nil {
		traverseItems(visit, q.where)
	}
}

// bindOrRender compiles node values and binds everything else
func bindOrRender(v any, t types.Type, b *binder.ValueBinder) string {
	if n, ok := v.(expression.Node); ok && n != nil {
		return render(n, b)
	}
	return b.Bind(v, t)
}
