package commands

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/dbal/database"
	"github.com/satishbabariya/dbal/database/querylog"
	"github.com/satishbabariya/dbal/internal/sqlscan"
	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/types"
)

func newExecCommand(a *app) *cobra.Command {
	var (
		params []string
		dryRun bool
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "exec [connection] SQL",
		Short: "Run a statement with bound parameters",
		Long: `Run a single statement. Values are always bound, never spliced into the SQL.

Parameters fill ? markers in order, or :name markers by name:

  dbal exec "SELECT * FROM users WHERE id = ?" -p 42:integer
  dbal exec reporting "SELECT * FROM users WHERE name = :name" -p :name=ann

The statement is previewed with its values inlined first. Statements that
may write ask for confirmation unless --yes is given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, query := "", args[0]
			if len(args) == 2 {
				name, query = args[0], args[1]
			}

			bindings := make([]binder.Binding, 0, len(params))
			for _, p := range params {
				b, err := parseParam(p)
				if err != nil {
					return err
				}
				bindings = append(bindings, b)
			}

			preview := querylog.LoggedQuery{Query: query, Params: bindings}.Interpolate()
			if err := a.printer.SQL(preview); err != nil {
				return err
			}
			if dryRun {
				return nil
			}

			readOnly, err := isReadOnly(query)
			if err != nil {
				return err
			}
			if !readOnly && !yes {
				ok, err := a.printer.Ask(fmt.Sprintf("Run this statement on %s?", a.cfg.Resolve(name)))
				if err != nil {
					return err
				}
				if !ok {
					a.printer.Warning("aborted")
					return nil
				}
			}

			ctx := cmd.Context()
			conn, err := a.connect(ctx, name)
			if err != nil {
				return err
			}

			if readOnly {
				rows, err := conn.Query(ctx, query, bindings)
				if err != nil {
					return err
				}
				return a.printRows(rows)
			}

			res, err := conn.Execute(ctx, query, bindings)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				a.printer.Success("done")
				return nil
			}
			a.printer.Success("%d row(s) affected", affected)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&params, "param", "p", nil, "bind value[:type], or :name=value[:type]; NULL binds null")
	flags.BoolVar(&dryRun, "dry-run", false, "only print the statement with its values inlined")
	flags.BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// parseParam reads value[:type] or :name=value[:type]. A suffix that is not
// a known type is part of the value, so "12:30" stays a string.
func parseParam(s string) (binder.Binding, error) {
	var b binder.Binding
	if strings.HasPrefix(s, ":") {
		name, rest, ok := strings.Cut(s, "=")
		if !ok || len(name) < 2 {
			return b, fmt.Errorf("invalid parameter %q: want :name=value", s)
		}
		b.Placeholder, s = name, rest
	}

	if i := strings.LastIndex(s, ":"); i >= 0 {
		if t := types.Type(s[i+1:]); types.Known(t) {
			if types.IsMulti(t) {
				return b, fmt.Errorf("invalid parameter %q: list types cannot fill a single marker", s)
			}
			b.Type, s = t, s[:i]
		}
	}

	if s == "NULL" {
		b.Value = nil
	} else {
		b.Value = s
	}
	return b, nil
}

var readOnlyKeywords = map[string]bool{
	"SELECT": true, "WITH": true, "SHOW": true, "EXPLAIN": true,
	"DESCRIBE": true, "PRAGMA": true, "VALUES": true,
}

var writeKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "REPLACE": true,
	"MERGE": true, "CREATE": true, "DROP": true, "ALTER": true, "TRUNCATE": true,
}

// isReadOnly reports whether query starts with a reading keyword and
// contains no writing one. Literals and comments are ignored. A PRAGMA only
// reads when it takes no argument: "PRAGMA foreign_keys = OFF" and
// "PRAGMA foreign_keys(OFF)" both write.
func isReadOnly(query string) (bool, error) {
	tokens, err := sqlscan.Tokenize(query)
	if err != nil {
		return false, err
	}
	var (
		words []string
		text  strings.Builder
	)
	for _, tok := range tokens {
		if tok.Kind != sqlscan.Text {
			continue
		}
		text.WriteString(tok.Value)
		words = append(words, strings.FieldsFunc(strings.ToUpper(tok.Value), func(r rune) bool {
			return !unicode.IsLetter(r) && r != '_'
		})...)
	}
	if len(words) == 0 || !readOnlyKeywords[words[0]] {
		return false, nil
	}
	if words[0] == "PRAGMA" && strings.ContainsAny(text.String(), "=(") {
		return false, nil
	}
	for _, w := range words[1:] {
		if writeKeywords[w] {
			return false, nil
		}
	}
	return true, nil
}

func (a *app) printRows(rows *database.Rows) error {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	var out [][]string
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if err := a.printer.Table(cols, out); err != nil {
		return err
	}
	a.printer.Success("%d row(s)", len(out))
	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}
