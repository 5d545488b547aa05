package builder

import (
	"strings"

	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/expression"
)

// CTE represents a Common Table Expression
type CTE struct {
	Name      string
	Query     expression.Node
	Columns   []string // Optional column names for the CTE
	Recursive bool
}

func (c CTE) validate() error {
	var errs errorList
	if c.Name == "" {
		errs.add("common table expression requires a name")
	}
	if c.Query == nil {
		errs.add("common table expression %s requires a query", c.Name)
	} else if s, ok := c.Query.(*SelectQuery); ok && s == nil {
		errs.add("common table expression %s requires a query", c.Name)
	}
	return errs.err()
}

// renderCTEs renders the WITH prefix; RECURSIVE applies to the whole list
func renderCTEs(ctes []CTE, b *binder.ValueBinder) string {
	recursive := false
	parts := make([]string, len(ctes))
	for i, c := range ctes {
		if c.Recursive {
			recursive = true
		}
		head := c.Name
		if len(c.Columns) > 0 {
			head += " (" + strings.Join(c.Columns, ", ") + ")"
		}
		parts[i] = head + " AS (" + c.Query.SQL(b) + ")"
	}
	prefix := "WITH "
	if recursive {
		prefix = "WITH RECURSIVE "
	}
	return prefix + strings.Join(parts, ", ")
}
