package expression

import (
	"sort"
	"strings"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/types"
)

// Argument markers understood inside a Marked function argument
const (
	MarkLiteral    = "literal"
	MarkIdentifier = "identifier"
)

// Marked tags raw argument text by how it must be rendered, e.g.
// Marked{"created": MarkLiteral}. Only text marked MarkLiteral or
// MarkIdentifier is inlined verbatim, and the caller is responsible for its
// safety. Text with any other marker is bound as a value.
type Marked map[string]string

// Function is a SQL function call with an ordered argument list.
//
// Each argument is rendered by kind: Marked text and Literal/Identifier nodes
// are inlined, other nodes compile recursively and any other value is bound
// with the declared type at its position.
type Function struct {
	name       string
	args       []any
	argTypes   []types.Type
	returnType types.Type
}

// NewFunction creates a function call
func NewFunction(name string, args []any, argTypes ...types.Type) *Function {
	return &Function{name: name, args: args, argTypes: argTypes, returnType: types.String}
}

// Name returns the function name
func (f *Function) Name() string { return f.name }

// Add appends arguments bound with type t
func (f *Function) Add(t types.Type, args ...any) *Function {
	for _, a := range args {
		for len(f.argTypes) < len(f.args) {
			f.argTypes = append(f.argTypes, "")
		}
		f.args = append(f.args, a)
		f.argTypes = append(f.argTypes, t)
	}
	return f
}

// Returns sets the declared type of the function result
func (f *Function) Returns(t types.Type) *Function {
	f.returnType = t
	return f
}

// ReturnType is the declared type of the function result
func (f *Function) ReturnType() types.Type { return f.returnType }

func (f *Function) SQL(b *binder.ValueBinder) string {
	return f.name + "(" + f.renderArgs(b) + ")"
}

func (f *Function) renderArgs(b *binder.ValueBinder) string {
	if len(f.args) == 0 {
		return ""
	}
	parts := make([]string, 0, len(f.args))
	for i, arg := range f.args {
		switch a := arg.(type) {
		case Marked:
			parts = append(parts, a.render(b, typeAt(f.argTypes, i))...)
		case Node:
			if isNilNode(a) {
				parts = append(parts, b.Bind(nil, typeAt(f.argTypes, i)))
				continue
			}
			parts = append(parts, a.SQL(b))
		default:
			parts = append(parts, b.Bind(arg, typeAt(f.argTypes, i)))
		}
	}
	return strings.Join(parts, ", ")
}

func (f *Function) Traverse(visit func(Node)) {
	walk(visit, f.args...)
}

func (m Marked) render(b *binder.ValueBinder, t types.Type) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch m[k] {
		case MarkLiteral, MarkIdentifier:
			parts = append(parts, k)
		default:
			parts = append(parts, b.Bind(k, t))
		}
	}
	return parts
}

// Aggregate is a function call that also accepts DISTINCT, an ordered
// argument list and a FILTER clause:
//
//	STRING_AGG(DISTINCT name, :c0 ORDER BY name ASC) FILTER (WHERE active = :c1)
type Aggregate struct {
	Function
	distinct bool
	order    *OrderBy
	filter   Node
}

// NewAggregate creates an aggregate call
func NewAggregate(name string, args []any, argTypes ...types.Type) *Aggregate {
	return &Aggregate{Function: *NewFunction(name, args, argTypes...)}
}

// Count is COUNT(field); an empty field counts rows
func Count(field string) *Aggregate {
	if field == "" {
		field = "*"
	}
	return NewAggregate("COUNT", []any{NewLiteral(field)}).Returns(types.Integer)
}

// Distinct adds the DISTINCT modifier
func (a *Aggregate) Distinct() *Aggregate {
	a.distinct = true
	return a
}

// OrderBy orders the aggregated input
func (a *Aggregate) OrderBy(o *OrderBy) *Aggregate {
	a.order = o
	return a
}

// Filter restricts the aggregated rows
func (a *Aggregate) Filter(cond Node) *Aggregate {
	a.filter = cond
	return a
}

// Returns sets the declared type of the aggregate result
func (a *Aggregate) Returns(t types.Type) *Aggregate {
	a.Function.Returns(t)
	return a
}

func (a *Aggregate) SQL(b *binder.ValueBinder) string {
	var sb strings.Builder
	sb.WriteString(a.name)
	sb.WriteString("(")
	if a.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(a.renderArgs(b))
	if a.order != nil {
		if order := a.order.SQL(b); order != "" {
			sb.WriteString(" ")
			sb.WriteString(order)
		}
	}
	sb.WriteString(")")
	if a.filter != nil && !isNilNode(a.filter) {
		if cond := a.filter.SQL(b); cond != "" {
			sb.WriteString(" FILTER (WHERE ")
			sb.WriteString(cond)
			sb.WriteString(")")
		}
	}
	return sb.String()
}

func (a *Aggregate) Traverse(visit func(Node)) {
	a.Function.Traverse(visit)
	if a.order != nil {
		walk(visit, a.order)
	}
	walk(visit, a.filter)
}
