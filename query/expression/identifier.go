package expression

import "github.com/satishbabariya/dbal/query/binder"

// Identifier is a column, table or alias name rendered verbatim
type Identifier struct {
	name string
}

// NewIdentifier creates an identifier node
func NewIdentifier(name string) *Identifier {
	return &Identifier{name: name}
}

// Name returns the identifier text
func (i *Identifier) Name() string { return i.name }

func (i *Identifier) SQL(*binder.ValueBinder) string { return i.name }

func (i *Identifier) Traverse(func(Node)) {}

// Field references a column, optionally qualified by a table or alias
type Field struct {
	table string
	name  string
}

// NewField creates an unqualified field reference
func NewField(name string) *Field {
	return &Field{name: name}
}

// QualifiedField creates a table-qualified field reference
func QualifiedField(table, name string) *Field {
	return &Field{table: table, name: name}
}

func (f *Field) SQL(*binder.ValueBinder) string {
	if f.table == "" {
		return f.name
	}
	return f.table + "." + f.name
}

func (f *Field) Traverse(func(Node)) {}

// Literal is a caller-trusted SQL fragment rendered without binding.
// Never build one from user input.
type Literal struct {
	raw string
}

// NewLiteral wraps raw SQL
func NewLiteral(raw string) *Literal {
	return &Literal{raw: raw}
}

func (l *Literal) SQL(*binder.ValueBinder) string { return l.raw }

func (l *Literal) Traverse(func(Node)) {}
