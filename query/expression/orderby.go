package expression

import (
	"strings"

	"github.com/satishbabariya/dbal/query/binder"
)

// Sort directions
const (
	Asc  = "ASC"
	Desc = "DESC"
)

// OrderTerm pairs an expression with a sort direction
type OrderTerm struct {
	Expr      any
	Direction string
}

// OrderBy is an ordered list of sort terms
type OrderBy struct {
	terms []OrderTerm
}

// NewOrderBy validates every term. Expr is a column name or a Node; an empty
// direction renders without one.
func NewOrderBy(terms ...OrderTerm) (*OrderBy, error) {
	o := &OrderBy{}
	for _, t := range terms {
		if err := o.add(t); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// MustOrderBy is NewOrderBy that panics on construction errors
func MustOrderBy(terms ...OrderTerm) *OrderBy {
	o, err := NewOrderBy(terms...)
	if err != nil {
		panic(err)
	}
	return o
}

// Add appends a term
func (o *OrderBy) Add(expr any, direction string) error {
	return o.add(OrderTerm{Expr: expr, Direction: direction})
}

func (o *OrderBy) add(t OrderTerm) error {
	if !validOperand(t.Expr) {
		return invalid("order by term must be a non-empty name or a node, got %T", t.Expr)
	}
	dir := strings.ToUpper(strings.TrimSpace(t.Direction))
	if dir != "" && dir != Asc && dir != Desc {
		return invalid("invalid sort direction %q", t.Direction)
	}
	o.terms = append(o.terms, OrderTerm{Expr: t.Expr, Direction: dir})
	return nil
}

// Len returns the number of terms
func (o *OrderBy) Len() int { return len(o.terms) }

func (o *OrderBy) SQL(b *binder.ValueBinder) string {
	if len(o.terms) == 0 {
		return ""
	}
	parts := make([]string, len(o.terms))
	for i, t := range o.terms {
		var s string
		if n, ok := t.Expr.(Node); ok {
			s = group(n, b)
		} else {
			s = operand(t.Expr, b)
		}
		if t.Direction != "" {
			s += " " + t.Direction
		}
		parts[i] = s
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

func (o *OrderBy) Traverse(visit func(Node)) {
	for _, t := range o.terms {
		walk(visit, t.Expr)
	}
}
