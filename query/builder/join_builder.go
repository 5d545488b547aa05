package builder

import (
	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/expression"
)

// JoinType is the kind of JOIN
type JoinType string

const (
	InnerJoin JoinType = "INNER"
	LeftJoin  JoinType = "LEFT"
	RightJoin JoinType = "RIGHT"
	FullJoin  JoinType = "FULL"
	CrossJoin JoinType = "CROSS"
)

// Join is a single JOIN clause
type Join struct {
	Type  JoinType
	Table string
	On    expression.Node
}

// NewJoin validates a join clause. Every join except CROSS needs a condition.
func NewJoin(kind JoinType, table string, on expression.Node) (Join, error) {
	var errs errorList
	if table == "" {
		errs.add("join requires a table")
	}
	if kind != CrossJoin && on == nil {
		errs.add("%s JOIN %s requires a condition", kind, table)
	}
	if kind == CrossJoin && on != nil {
		errs.add("CROSS JOIN %s does not take a condition", table)
	}
	if err := errs.err(); err != nil {
		return Join{}, err
	}
	return Join{Type: kind, Table: table, On: on}, nil
}

// SQL renders the clause
func (j Join) SQL(b *binder.ValueBinder) string {
	s := string(j.Type) + " JOIN " + j.Table
	if j.On != nil {
		s += " ON " + j.On.SQL(b)
	}
	return s
}

// ColumnsEqual builds the usual `left = right` join condition between two
// qualified columns
func ColumnsEqual(leftTable, leftColumn, rightTable, rightColumn string) expression.Node {
	return expression.MustComparison(
		expression.QualifiedField(leftTable, leftColumn),
		expression.QualifiedField(rightTable, rightColumn),
		"", "=")
}
