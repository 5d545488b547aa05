// Package binder allocates placeholders and records bound values for one
// compilation pass of an expression tree.
package binder

import (
	"strconv"

	"github.com/satishbabariya/dbal/query/types"
)

// Prefix starts every placeholder generated by a ValueBinder
const Prefix = ":c"

// Binding is a value recorded against a placeholder
type Binding struct {
	Placeholder string
	Value       any
	Type        types.Type
}

// ValueBinder hands out unique placeholders for a single compilation pass.
//
// A binder is shared by every node compiled in that pass, sub-queries
// included, and must not be reused for an unrelated compilation or shared
// between goroutines.
type ValueBinder struct {
	counter  int
	bindings []Binding
	index    map[string]int
}

// New returns an empty binder whose first placeholder is :c0
func New() *ValueBinder {
	return &ValueBinder{index: make(map[string]int)}
}

// Placeholder allocates a fresh placeholder name without binding a value
func (b *ValueBinder) Placeholder() string {
	name := Prefix + strconv.Itoa(b.counter)
	b.counter++
	return name
}

// Bind allocates a placeholder and records value with its declared type
func (b *ValueBinder) Bind(value any, t types.Type) string {
	name := b.Placeholder()
	b.index[name] = len(b.bindings)
	b.bindings = append(b.bindings, Binding{Placeholder: name, Value: value, Type: t})
	return name
}

// BindMany binds each value with the same declared type
func (b *ValueBinder) BindMany(values []any, t types.Type) []string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = b.Bind(v, t)
	}
	return names
}

// Bindings returns the recorded bindings in insertion order
func (b *ValueBinder) Bindings() []Binding {
	out := make([]Binding, len(b.bindings))
	copy(out, b.bindings)
	return out
}

// Lookup returns the binding recorded for a placeholder
func (b *ValueBinder) Lookup(name string) (Binding, bool) {
	i, ok := b.index[name]
	if !ok {
		return Binding{}, false
	}
	return b.bindings[i], true
}

// Len returns the number of recorded bindings
func (b *ValueBinder) Len() int {
	return len(b.bindings)
}

// Index builds a placeholder lookup table for an ordered binding list
func Index(bindings []Binding) map[string]Binding {
	m := make(map[string]Binding, len(bindings))
	for _, bnd := range bindings {
		m[bnd.Placeholder] = bnd
	}
	return m
}
