package expression

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/types"
)

// Comparison is a binary predicate such as `field = :c0`.
//
// When the declared type is list-valued (ends in "[]") the value must be a
// non-empty slice and every element is bound separately:
// `field IN (:c0, :c1)`.
type Comparison struct {
	field    any
	value    any
	typ      types.Type
	operator string
	multiple bool
}

// NewComparison creates a comparison. field is a column name or a Node.
func NewComparison(field any, value any, t types.Type, operator string) (*Comparison, error) {
	if !validOperand(field) {
		return nil, invalid("comparison field must be a non-empty name or a node, got %T", field)
	}
	if operator == "" {
		operator = "="
	}

	c := &Comparison{field: field, value: value, typ: t, operator: operator}
	if _, isNode := value.(Node); !isNode && types.IsMulti(t) {
		items, ok := list(value)
		if !ok {
			return nil, invalid("type %s requires a list value for field %s, got %T", t, describe(field), value)
		}
		if len(items) == 0 {
			return nil, invalid("cannot generate condition with an empty list of values for field %s", describe(field))
		}
		c.multiple = true
	}
	return c, nil
}

// MustComparison is NewComparison that panics on construction errors
func MustComparison(field any, value any, t types.Type, operator string) *Comparison {
	c, err := NewComparison(field, value, t, operator)
	if err != nil {
		panic(err)
	}
	return c
}

// Field returns the left-hand side of the comparison
func (c *Comparison) Field() any { return c.field }

// Value returns the right-hand side of the comparison
func (c *Comparison) Value() any { return c.value }

// Operator returns the comparison operator
func (c *Comparison) Operator() string { return c.operator }

func (c *Comparison) SQL(b *binder.ValueBinder) string {
	field := operand(c.field, b)

	if n, ok := c.value.(Node); ok && !isNilNode(n) {
		return fmt.Sprintf("%s %s %s", field, c.operator, group(n, b))
	}
	if c.multiple {
		items, _ := list(c.value)
		names := b.BindMany(items, types.Base(c.typ))
		return fmt.Sprintf("%s %s (%s)", field, c.operator, strings.Join(names, ", "))
	}
	return fmt.Sprintf("%s %s %s", field, c.operator, b.Bind(c.value, c.typ))
}

func (c *Comparison) Traverse(visit func(Node)) {
	walk(visit, c.field, c.value)
}

// Unary applies an operator to a single operand, either as a prefix
// (`NOT (...)`, `EXISTS (...)`) or as a postfix (`field IS NULL`).
type Unary struct {
	operator string
	operand  any
	postfix  bool
}

// Not negates a condition
func Not(n Node) *Unary {
	return &Unary{operator: "NOT", operand: n}
}

// Exists checks a sub-query for rows
func Exists(q Node) *Unary {
	return &Unary{operator: "EXISTS", operand: q}
}

// IsNull tests a field for NULL
func IsNull(field any) *Unary {
	return &Unary{operator: "IS NULL", operand: field, postfix: true}
}

// IsNotNull tests a field for a non-NULL value
func IsNotNull(field any) *Unary {
	return &Unary{operator: "IS NOT NULL", operand: field, postfix: true}
}

func (u *Unary) SQL(b *binder.ValueBinder) string {
	if u.postfix {
		return operand(u.operand, b) + " " + u.operator
	}
	if qe, ok := u.operand.(*QueryExpression); ok {
		inner := qe.grouped(b)
		if inner == "" {
			return ""
		}
		return u.operator + " " + inner
	}
	return u.operator + " (" + operand(u.operand, b) + ")"
}

func (u *Unary) Traverse(visit func(Node)) {
	walk(visit, u.operand)
}

// Between renders `field BETWEEN :c0 AND :c1`
type Between struct {
	field any
	from  any
	to    any
	typ   types.Type
}

// NewBetween creates a range predicate
func NewBetween(field any, from, to any, t types.Type) (*Between, error) {
	if !validOperand(field) {
		return nil, invalid("between field must be a non-empty name or a node, got %T", field)
	}
	return &Between{field: field, from: from, to: to, typ: t}, nil
}

func (e *Between) SQL(b *binder.ValueBinder) string {
	return fmt.Sprintf("%s BETWEEN %s AND %s",
		operand(e.field, b),
		bindValue(e.from, e.typ, b),
		bindValue(e.to, e.typ, b))
}

func (e *Between) Traverse(visit func(Node)) {
	walk(visit, e.field, e.from, e.to)
}

func describe(field any) string {
	if s, ok := field.(string); ok {
		return s
	}
	return fmt.Sprintf("%T", field)
}
