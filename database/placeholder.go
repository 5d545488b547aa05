package database

import (
	"github.com/satishbabariya/dbal/internal/sqlscan"
)

// BackslashEscaper is implemented by dialects whose string literals accept
// backslash escapes. Other dialects only escape quotes by doubling them.
type BackslashEscaper interface {
	BackslashEscapes() bool
}

func scannerFor(d Dialect) *sqlscan.Scanner {
	if e, ok := d.(BackslashEscaper); ok && e.BackslashEscapes() {
		return sqlscan.BackslashEscapes
	}
	return sqlscan.Standard
}

// Translate rewrites every :name and ? marker outside literals, comments and
// quoted identifiers into the marker produced by placeholder, numbered from 1.
// It returns the rewritten SQL and the original marker of each position.
func Translate(query string, placeholder func(n int) string) (string, []string, error) {
	return translate(sqlscan.Standard, query, placeholder)
}

// TranslateFor translates query with the placeholders and string literal
// syntax of d.
func TranslateFor(d Dialect, query string) (string, []string, error) {
	return translate(scannerFor(d), query, d.Placeholder)
}

func translate(s *sqlscan.Scanner, query string, placeholder func(n int) string) (string, []string, error) {
	var names []string
	out, err := s.Rewrite(query, func(tok sqlscan.Token) (string, error) {
		names = append(names, tok.Value)
		return placeholder(len(names)), nil
	})
	if err != nil {
		return "", nil, err
	}
	return out, names, nil
}
