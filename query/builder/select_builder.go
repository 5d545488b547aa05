package builder

import (
	"strings"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/expression"
	"github.com/satishbabariya/dbal/query/types"
)

// SelectQuery builds SELECT statements
type SelectQuery struct {
	ctes     []CTE
	distinct bool
	fields   []any
	from     []any
	joins    []Join
	where    *expression.QueryExpression
	groupBy  []any
	having   *expression.QueryExpression
	orderBy  *expression.OrderBy
	limit    *int64
	offset   *int64
	errs     errorList
}

// Select starts a SELECT of fields; no fields selects `*`
func Select(fields ...any) *SelectQuery {
	q := &SelectQuery{}
	for _, f := range fields {
		if !validItem(f) {
			q.errs.add("select field must be a non-empty name or a node, got %T", f)
			continue
		}
		q.fields = append(q.fields, f)
	}
	return q
}

// Distinct selects distinct rows
func (q *SelectQuery) Distinct() *SelectQuery {
	q.distinct = true
	return q
}

// From sets the source tables; a SelectQuery source needs an alias via As
func (q *SelectQuery) From(tables ...any) *SelectQuery {
	for _, t := range tables {
		if !validItem(t) {
			q.errs.add("from source must be a non-empty name or a node, got %T", t)
			continue
		}
		q.from = append(q.from, t)
	}
	return q
}

// Join adds an INNER JOIN
func (q *SelectQuery) Join(table string, on expression.Node) *SelectQuery {
	return q.join(InnerJoin, table, on)
}

// LeftJoin adds a LEFT JOIN
func (q *SelectQuery) LeftJoin(table string, on expression.Node) *SelectQuery {
	return q.join(LeftJoin, table, on)
}

// RightJoin adds a RIGHT JOIN
func (q *SelectQuery) RightJoin(table string, on expression.Node) *SelectQuery {
	return q.join(RightJoin, table, on)
}

// CrossJoin adds a CROSS JOIN
func (q *SelectQuery) CrossJoin(table string) *SelectQuery {
	return q.join(CrossJoin, table, nil)
}

func (q *SelectQuery) join(kind JoinType, table string, on expression.Node) *SelectQuery {
	j, err := NewJoin(kind, table, on)
	if err != nil {
		q.errs = append(q.errs, err)
		return q
	}
	q.joins = append(q.joins, j)
	return q
}

// Where adds conditions joined with AND
func (q *SelectQuery) Where(conds ...expression.Node) *SelectQuery {
	conditions(&q.where, conds...)
	return q
}

// GroupBy adds grouping terms
func (q *SelectQuery) GroupBy(fields ...any) *SelectQuery {
	for _, f := range fields {
		if !validItem(f) {
			q.errs.add("group by term must be a non-empty name or a node, got %T", f)
			continue
		}
		q.groupBy = append(q.groupBy, f)
	}
	return q
}

// Having adds HAVING conditions joined with AND
func (q *SelectQuery) Having(conds ...expression.Node) *SelectQuery {
	conditions(&q.having, conds...)
	return q
}

// OrderBy adds a sort term
func (q *SelectQuery) OrderBy(expr any, direction string) *SelectQuery {
	if q.orderBy == nil {
		q.orderBy = &expression.OrderBy{}
	}
	if err := q.orderBy.Add(expr, direction); err != nil {
		q.errs = append(q.errs, err)
	}
	return q
}

// Limit caps the number of rows
func (q *SelectQuery) Limit(n int64) *SelectQuery {
	if n < 0 {
		q.errs.add("limit must not be negative, got %d", n)
		return q
	}
	q.limit = &n
	return q
}

// Offset skips rows
func (q *SelectQuery) Offset(n int64) *SelectQuery {
	if n < 0 {
		q.errs.add("offset must not be negative, got %d", n)
		return q
	}
	q.offset = &n
	return q
}

// With prepends a common table expression
func (q *SelectQuery) With(name string, sub *SelectQuery, columns ...string) *SelectQuery {
	return q.with(CTE{Name: name, Query: sub, Columns: columns})
}

// WithRecursive prepends a recursive common table expression
func (q *SelectQuery) WithRecursive(name string, sub expression.Node, columns ...string) *SelectQuery {
	return q.with(CTE{Name: name, Query: sub, Columns: columns, Recursive: true})
}

func (q *SelectQuery) with(c CTE) *SelectQuery {
	if err := c.validate(); err != nil {
		q.errs = append(q.errs, err)
		return q
	}
	q.ctes = append(q.ctes, c)
	return q
}

// Err returns the construction errors recorded so far
func (q *SelectQuery) Err() error { return q.errs.err() }

// IsQuery marks SelectQuery as embeddable sub-query
func (q *SelectQuery) IsQuery() bool { return true }

// Compile renders the statement against a fresh binder
func (q *SelectQuery) Compile() (Compiled, error) { return compile(q) }

func (q *SelectQuery) SQL(b *binder.ValueBinder) string {
	var sb strings.Builder

	if len(q.ctes) > 0 {
		sb.WriteString(renderCTEs(q.ctes, b))
		sb.WriteString(" ")
	}

	sb.WriteString("SELECT ")
	if q.distinct {
		sb.WriteString("DISTINCT ")
	}
	if len(q.fields) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(renderList(q.fields, b))
	}

	if len(q.from) > 0 {
		sb.WriteString(" FROM ")
		sb.WriteString(renderList(q.from, b))
	}
	for _, j := range q.joins {
		sb.WriteString(" ")
		sb.WriteString(j.SQL(b))
	}
	if q.where != nil {
		if where := q.where.SQL(b); where != "" {
			sb.WriteString(" WHERE ")
			sb.WriteString(where)
		}
	}
	if len(q.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(renderList(q.groupBy, b))
	}
	if q.having != nil {
		if having := q.having.SQL(b); having != "" {
			sb.WriteString(" HAVING ")
			sb.WriteString(having)
		}
	}
	if q.orderBy != nil && q.orderBy.Len() > 0 {
		sb.WriteString(" ")
		sb.WriteString(q.orderBy.SQL(b))
	}
	if q.limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.Bind(*q.limit, types.Integer))
	}
	if q.offset != nil {
		sb.WriteString(" OFFSET ")
		sb.WriteString(b.Bind(*q.offset, types.Integer))
	}
	return sb.String()
}

func (q *SelectQuery) Traverse(visit func(expression.Node)) {
	for _, c := range q.ctes {
		traverseItems(visit, c.Query)
	}
	traverseItems(visit, q.fields...)
	traverseItems(visit, q.from...)
	for _, j := range q.joins {
		traverseItems(visit, j.On)
	}
	if q.where != nil {
		traverseItems(visit, q.where)
	}
	traverseItems(visit, q.groupBy...)
	if q.having != nil {
		traverseItems(visit, q.having)
	}
	if q.orderBy != nil {
		traverseItems(visit, q.orderBy)
	}
}
