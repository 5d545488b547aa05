package builder

import (
	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/expression"
)

// DeleteQuery builds DELETE statements
type DeleteQuery struct {
	table string
	where *expression.QueryExpression
	errs  errorList
}

// Delete starts a DELETE from table
func Delete(table string) *DeleteQuery {
	q := &DeleteQuery{table: table}
	if table == "" {
		q.errs.add("delete requires a table")
	}
	return q
}

// Where adds conditions joined with AND
func (q *DeleteQuery) Where(conds ...expression.Node) *DeleteQuery {
	conditions(&q.where, conds...)
	return q
}

// Err returns the construction errors recorded so far
func (q *DeleteQuery) Err() error { return q.errs.err() }

// Compile renders the statement against a fresh binder
func (q *DeleteQuery) Compile() (Compiled, error) { return compile(q) }

func (q *DeleteQuery) SQL(b *binder.ValueBinder) string {
	sql := "DELETE FROM " + q.table
	if q.where != nil {
		if where := q.where.SQL(b); where != "" {
			sql += " WHERE " + where
		}
	}
	return sql
}

func (q *DeleteQuery) Traverse(visit func(expression.Node)) {
	if q.where != nil {
		traverseItems(visit, q.where)
	}
}
