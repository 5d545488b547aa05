package expression

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/types"
)

// TupleComparison compares an ordered list of fields against one tuple of
// values, or against a set of tuples for IN / NOT IN:
//
//	(a, b) = (:c0, :c1)
//	(a, b) IN ((:c0, :c1), (:c2, :c3))
//
// Multi-tuple mode is selected when the operator is IN or NOT IN (any case)
// or when any declared type carries the list marker. The two signals are
// independent; either one is enough.
type TupleComparison struct {
	fields   []any
	values   any
	types    []types.Type
	operator string
}

// NewTupleComparison validates arity and builds the node. values is a Node
// (typically a sub-query), a single tuple ([]any) or a list of tuples.
func NewTupleComparison(fields []any, values any, ts []types.Type, operator string) (*TupleComparison, error) {
	if len(fields) == 0 {
		return nil, invalid("tuple comparison requires at least one field")
	}
	for i, f := range fields {
		if !validOperand(f) {
			return nil, invalid("tuple field %d must be a non-empty name or a node, got %T", i, f)
		}
	}
	if operator == "" {
		operator = "="
	}

	t := &TupleComparison{fields: fields, values: values, types: ts, operator: operator}
	if n, ok := values.(Node); ok && !isNilNode(n) {
		return t, nil
	}

	tuples, ok := list(values)
	if !ok {
		return nil, invalid("tuple comparison values must be a list or a node, got %T", values)
	}

	if t.IsMulti() {
		if len(tuples) == 0 {
			return nil, invalid("multi-tuple comparison requires at least one tuple")
		}
		for i, row := range tuples {
			items, ok := list(row)
			if !ok {
				return nil, invalid("multi-tuple comparisons require a multi-tuple value, single-tuple given")
			}
			if len(items) != len(fields) {
				return nil, invalid("tuple %d has %d values for %d fields", i, len(items), len(fields))
			}
		}
		return t, nil
	}

	if len(tuples) != len(fields) {
		return nil, invalid("tuple has %d values for %d fields", len(tuples), len(fields))
	}
	for _, v := range tuples {
		if _, nested := list(v); nested {
			return nil, invalid("single-tuple comparisons require a single-tuple value, multi-tuple given")
		}
	}
	return t, nil
}

// MustTupleComparison is NewTupleComparison that panics on construction errors
func MustTupleComparison(fields []any, values any, ts []types.Type, operator string) *TupleComparison {
	t, err := NewTupleComparison(fields, values, ts, operator)
	if err != nil {
		panic(err)
	}
	return t
}

// IsMulti reports whether the values are a set of tuples
func (t *TupleComparison) IsMulti() bool {
	op := strings.ToLower(strings.Join(strings.Fields(t.operator), " "))
	if op == "in" || op == "not in" {
		return true
	}
	for _, typ := range t.types {
		if types.IsMulti(typ) {
			return true
		}
	}
	return false
}

func (t *TupleComparison) SQL(b *binder.ValueBinder) string {
	fields := make([]string, len(t.fields))
	for i, f := range t.fields {
		fields[i] = operand(f, b)
	}
	return fmt.Sprintf("(%s) %s (%s)", strings.Join(fields, ", "), t.operator, t.stringifyValues(b))
}

func (t *TupleComparison) stringifyValues(b *binder.ValueBinder) string {
	if n, ok := t.values.(Node); ok && !isNilNode(n) {
		return n.SQL(b)
	}

	tuples, _ := list(t.values)
	parts := make([]string, 0, len(tuples))

	if t.IsMulti() {
		for _, row := range tuples {
			items, _ := list(row)
			bound := make([]string, len(items))
			for k, v := range items {
				bound[k] = bindValue(v, typeAt(t.types, k), b)
			}
			parts = append(parts, "("+strings.Join(bound, ", ")+")")
		}
		return strings.Join(parts, ", ")
	}

	for i, v := range tuples {
		parts = append(parts, bindValue(v, typeAt(t.types, i), b))
	}
	return strings.Join(parts, ", ")
}

func (t *TupleComparison) Traverse(visit func(Node)) {
	walk(visit, t.fields...)
	if n, ok := t.values.(Node); ok {
		walk(visit, n)
		return
	}
	tuples, _ := list(t.values)
	for _, row := range tuples {
		if items, ok := list(row); ok {
			walk(visit, items...)
			continue
		}
		walk(visit, row)
	}
}
