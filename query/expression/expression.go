// Package expression defines the composable SQL expression tree.
//
// Every node renders itself against a binder.ValueBinder: literal values are
// never inlined, they are bound and replaced by the placeholder the binder
// hands out. Nodes are built bottom-up and must not be mutated once they have
// been compiled; compiling the same tree against two binders yields the same
// SQL shape with independent placeholder numbering.
package expression

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/types"
)

// ErrInvalidExpression marks malformed node construction
var ErrInvalidExpression = errors.New("invalid expression")

// Node is a compilable piece of SQL
type Node interface {
	// SQL renders the node, adding any bound values to b.
	SQL(b *binder.ValueBinder) string

	// Traverse calls visit for every expression-typed child and then
	// descends into that child. Scalar leaves are skipped.
	Traverse(visit func(Node))
}

// Query is implemented by complete statements that can be embedded in an
// expression as a sub-query. Sub-queries compile into the caller's binder.
type Query interface {
	Node
	IsQuery() bool
}

// Collect returns every node reachable from root, in visit order
func Collect(root Node) []Node {
	var out []Node
	root.Traverse(func(n Node) {
		out = append(out, n)
	})
	return out
}

// Validate reports the first construction error recorded anywhere in the
// tree rooted at root. Fluent builders record errors instead of returning them.
func Validate(root Node) error {
	if root == nil {
		return nil
	}
	if v, ok := root.(interface{ Err() error }); ok {
		if err := v.Err(); err != nil {
			return err
		}
	}
	var first error
	root.Traverse(func(n Node) {
		if first != nil {
			return
		}
		if v, ok := n.(interface{ Err() error }); ok {
			first = v.Err()
		}
	})
	return first
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidExpression, fmt.Sprintf(format, args...))
}

// walk visits the Node-typed members of children
func walk(visit func(Node), children ...any) {
	for _, c := range children {
		n, ok := c.(Node)
		if !ok || isNilNode(n) {
			continue
		}
		visit(n)
		n.Traverse(visit)
	}
}

func isNilNode(n Node) bool {
	if n == nil {
		return true
	}
	rv := reflect.ValueOf(n)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// operand renders a field reference, which is either a raw string or a Node
func operand(v any, b *binder.ValueBinder) string {
	switch f := v.(type) {
	case string:
		return f
	case Node:
		return f.SQL(b)
	default:
		return fmt.Sprint(v)
	}
}

func validOperand(v any) bool {
	switch f := v.(type) {
	case string:
		return f != ""
	case Node:
		return !isNilNode(f)
	}
	return false
}

// atomic reports whether n renders as a single operand that needs no grouping
func atomic(n Node) bool {
	switch n.(type) {
	case *Identifier, *Field, *Literal, *Function, *Aggregate:
		return true
	}
	return false
}

// group renders a node used as a value, parenthesizing compound nodes
func group(n Node, b *binder.ValueBinder) string {
	if atomic(n) {
		return n.SQL(b)
	}
	return "(" + n.SQL(b) + ")"
}

// bindValue binds v with type t. A list-valued type flattens a slice value
// into a parenthesized list of individually bound elements.
func bindValue(v any, t types.Type, b *binder.ValueBinder) string {
	if n, ok := v.(Node); ok && !isNilNode(n) {
		return n.SQL(b)
	}
	if types.IsMulti(t) {
		if items, ok := list(v); ok {
			names := b.BindMany(items, types.Base(t))
			return "(" + strings.Join(names, ", ") + ")"
		}
	}
	return b.Bind(v, types.Base(t))
}

// list unpacks slices and arrays other than []byte
func list(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if items, ok := v.([]any); ok {
		return items, true
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func typeAt(ts []types.Type, i int) types.Type {
	if i < len(ts) {
		return ts[i]
	}
	return ""
}
