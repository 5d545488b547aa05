// Package builder provides a fluent query builder API on top of the
// expression tree.
//
// Each Compile call renders the statement against a fresh binder, so a
// builder can be compiled repeatedly. A SelectQuery is also an expression
// node: embedded as a value it compiles into the enclosing binder.
package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/expression"
)

// Compiled is rendered SQL together with its bindings in placeholder order
type Compiled struct {
	SQL      string
	Bindings []binder.Binding
}

// Compilable is implemented by every statement builder
type Compilable interface {
	Compile() (Compiled, error)
}

type statement interface {
	expression.Node
	Err() error
}

func compile(s statement) (Compiled, error) {
	if err := expression.Validate(s); err != nil {
		return Compiled{}, err
	}
	b := binder.New()
	sql := s.SQL(b)
	return Compiled{SQL: sql, Bindings: b.Bindings()}, nil
}

// errorList records construction errors of a fluent builder
type errorList []error

func (e *errorList) add(format string, args ...any) {
	*e = append(*e, fmt.Errorf("%w: %s", expression.ErrInvalidExpression, fmt.Sprintf(format, args...)))
}

func (e errorList) err() error { return errors.Join(e...) }

// Aliased renders `expr AS alias`
type Aliased struct {
	Expr  any
	Alias string
}

// As aliases a column name or a node in a select list
func As(expr any, alias string) *Aliased {
	return &Aliased{Expr: expr, Alias: alias}
}

func (a *Aliased) SQL(b *binder.ValueBinder) string {
	return render(a.Expr, b) + " AS " + a.Alias
}

func (a *Aliased) Traverse(visit func(expression.Node)) {
	if n, ok := a.Expr.(expression.Node); ok {
		visit(n)
		n.Traverse(visit)
	}
}

// render renders a name or a node; sub-queries are parenthesized
func render(v any, b *binder.ValueBinder) string {
	switch x := v.(type) {
	case string:
		return x
	case expression.Query:
		return "(" + x.SQL(b) + ")"
	case expression.Node:
		return x.SQL(b)
	}
	return fmt.Sprint(v)
}

func renderList(items []any, b *binder.ValueBinder) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = render(it, b)
	}
	return strings.Join(parts, ", ")
}

func validItem(v any) bool {
	switch x := v.(type) {
	case string:
		return x != ""
	case expression.Node:
		return x != nil
	}
	return false
}

func traverseItems(visit func(expression.Node), items ...any) {
	for _, it := range items {
		if n, ok := it.(expression.Node); ok && n != nil {
			visit(n)
			n.Traverse(visit)
		}
	}
}

// conditions appends nodes to a lazily created AND group
func conditions(q **expression.QueryExpression, nodes ...expression.Node) {
	if *q == nil {
		*q = expression.AllOf()
	}
	(*q).Add(nodes...)
}
