package expression

import (
	"errors"
	"strings"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/types"
)

// Conjunctions
const (
	And = "AND"
	Or  = "OR"
)

// QueryExpression joins child conditions with AND or OR. It is the building
// block of WHERE and HAVING trees.
//
// The fluent helpers record construction errors instead of returning them;
// Err reports them and builders refuse to compile an erroneous tree.
type QueryExpression struct {
	conjunction string
	parts       []Node
	errs        []error
}

// NewQueryExpression creates an empty expression joined by conjunction
func NewQueryExpression(conjunction string, parts ...Node) *QueryExpression {
	if conjunction == "" {
		conjunction = And
	}
	q := &QueryExpression{conjunction: strings.ToUpper(conjunction)}
	return q.Add(parts...)
}

// AllOf joins parts with AND
func AllOf(parts ...Node) *QueryExpression { return NewQueryExpression(And, parts...) }

// AnyOf joins parts with OR
func AnyOf(parts ...Node) *QueryExpression { return NewQueryExpression(Or, parts...) }

// Conjunction returns AND or OR
func (q *QueryExpression) Conjunction() string { return q.conjunction }

// Len returns the number of direct children
func (q *QueryExpression) Len() int { return len(q.parts) }

// Err returns the construction errors recorded by the fluent helpers
func (q *QueryExpression) Err() error { return errors.Join(q.errs...) }

// Add appends conditions. Nil nodes are ignored.
func (q *QueryExpression) Add(parts ...Node) *QueryExpression {
	for _, p := range parts {
		if isNilNode(p) {
			continue
		}
		q.parts = append(q.parts, p)
	}
	return q
}

func (q *QueryExpression) compare(field any, value any, t types.Type, op string) *QueryExpression {
	c, err := NewComparison(field, value, t, op)
	if err != nil {
		q.errs = append(q.errs, err)
		return q
	}
	return q.Add(c)
}

// Eq adds `field = value`
func (q *QueryExpression) Eq(field any, value any, t types.Type) *QueryExpression {
	return q.compare(field, value, t, "=")
}

// NotEq adds `field != value`
func (q *QueryExpression) NotEq(field any, value any, t types.Type) *QueryExpression {
	return q.compare(field, value, t, "!=")
}

// Gt adds `field > value`
func (q *QueryExpression) Gt(field any, value any, t types.Type) *QueryExpression {
	return q.compare(field, value, t, ">")
}

// Gte adds `field >= value`
func (q *QueryExpression) Gte(field any, value any, t types.Type) *QueryExpression {
	return q.compare(field, value, t, ">=")
}

// Lt adds `field < value`
func (q *QueryExpression) Lt(field any, value any, t types.Type) *QueryExpression {
	return q.compare(field, value, t, "<")
}

// Lte adds `field <= value`
func (q *QueryExpression) Lte(field any, value any, t types.Type) *QueryExpression {
	return q.compare(field, value, t, "<=")
}

// Like adds `field LIKE value`
func (q *QueryExpression) Like(field any, value any, t types.Type) *QueryExpression {
	return q.compare(field, value, t, "LIKE")
}

// NotLike adds `field NOT LIKE value`
func (q *QueryExpression) NotLike(field any, value any, t types.Type) *QueryExpression {
	return q.compare(field, value, t, "NOT LIKE")
}

// In adds `field IN (...)`. values is a list or a sub-query; t is the
// element type.
func (q *QueryExpression) In(field any, values any, t types.Type) *QueryExpression {
	if _, ok := values.(Node); !ok {
		t = types.Multi(t)
	}
	return q.compare(field, values, t, "IN")
}

// NotIn adds `field NOT IN (...)`
func (q *QueryExpression) NotIn(field any, values any, t types.Type) *QueryExpression {
	if _, ok := values.(Node); !ok {
		t = types.Multi(t)
	}
	return q.compare(field, values, t, "NOT IN")
}

// IsNull adds `field IS NULL`
func (q *QueryExpression) IsNull(field any) *QueryExpression {
	if !validOperand(field) {
		q.errs = append(q.errs, invalid("IS NULL requires a field, got %T", field))
		return q
	}
	return q.Add(IsNull(field))
}

// IsNotNull adds `field IS NOT NULL`
func (q *QueryExpression) IsNotNull(field any) *QueryExpression {
	if !validOperand(field) {
		q.errs = append(q.errs, invalid("IS NOT NULL requires a field, got %T", field))
		return q
	}
	return q.Add(IsNotNull(field))
}

// Between adds `field BETWEEN from AND to`
func (q *QueryExpression) Between(field any, from, to any, t types.Type) *QueryExpression {
	e, err := NewBetween(field, from, to, t)
	if err != nil {
		q.errs = append(q.errs, err)
		return q
	}
	return q.Add(e)
}

// Tuple adds a tuple comparison
func (q *QueryExpression) Tuple(fields []any, values any, ts []types.Type, op string) *QueryExpression {
	t, err := NewTupleComparison(fields, values, ts, op)
	if err != nil {
		q.errs = append(q.errs, err)
		return q
	}
	return q.Add(t)
}

// Not adds the negation of cond
func (q *QueryExpression) Not(cond Node) *QueryExpression {
	if isNilNode(cond) {
		return q
	}
	return q.Add(Not(cond))
}

// And adds a nested AND group
func (q *QueryExpression) And(parts ...Node) *QueryExpression {
	return q.Add(AllOf(parts...))
}

// Or adds a nested OR group
func (q *QueryExpression) Or(parts ...Node) *QueryExpression {
	return q.Add(AnyOf(parts...))
}

func (q *QueryExpression) SQL(b *binder.ValueBinder) string {
	rendered := q.render(b)
	switch len(rendered) {
	case 0:
		return ""
	case 1:
		return rendered[0]
	}
	return "(" + strings.Join(rendered, " "+q.conjunction+" ") + ")"
}

// grouped renders q with surrounding parentheses whenever it is non-empty
func (q *QueryExpression) grouped(b *binder.ValueBinder) string {
	rendered := q.render(b)
	if len(rendered) == 0 {
		return ""
	}
	return "(" + strings.Join(rendered, " "+q.conjunction+" ") + ")"
}

func (q *QueryExpression) render(b *binder.ValueBinder) []string {
	rendered := make([]string, 0, len(q.parts))
	for _, p := range q.parts {
		var s string
		if sub, ok := p.(Query); ok {
			s = "(" + sub.SQL(b) + ")"
		} else {
			s = p.SQL(b)
		}
		if s != "" {
			rendered = append(rendered, s)
		}
	}
	return rendered
}

func (q *QueryExpression) Traverse(visit func(Node)) {
	for _, p := range q.parts {
		walk(visit, p)
	}
}
