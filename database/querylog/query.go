// Package querylog records executed statements for diagnostics. Records
// carry the interpolated SQL, which is for reading only and is never sent
// back to a server.
package querylog

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/satishbabariya/dbal/internal/sqlscan"
	"github.com/satishbabariya/dbal/query/binder"
	"github.com/satishbabariya/dbal/query/types"
)

// LoggedQuery describes one executed statement
type LoggedQuery struct {
	Query      string
	Params     []binder.Binding
	Took       time.Duration
	NumRows    int64
	Err        error
	Connection string
}

// String returns the interpolated query
func (q LoggedQuery) String() string {
	return q.Interpolate()
}

// Interpolate replaces :cN and ? markers outside literals and comments with
// their rendered values. Markers without a value are left as they are. If
// the query cannot be scanned it is returned unchanged.
func (q LoggedQuery) Interpolate() string {
	if len(q.Params) == 0 {
		return q.Query
	}

	index := binder.Index(q.Params)
	var positional []binder.Binding
	for _, b := range q.Params {
		if b.Placeholder == "" {
			positional = append(positional, b)
		}
	}

	next := 0
	out, err := sqlscan.Rewrite(q.Query, func(tok sqlscan.Token) (string, error) {
		if tok.Kind == sqlscan.Positional {
			if next >= len(positional) {
				return tok.Value, nil
			}
			b := positional[next]
			next++
			return Render(b.Value, b.Type), nil
		}
		if b, ok := index[tok.Value]; ok {
			return Render(b.Value, b.Type), nil
		}
		return tok.Value, nil
	})
	if err != nil {
		return q.Query
	}
	return out
}

// Render formats a single value as it would appear in SQL text
func Render(value any, t types.Type) string {
	if value == nil {
		return "NULL"
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "NULL"
		}
		return Render(rv.Elem().Interface(), t)
	}

	switch v := value.(type) {
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return quote(v.Format(timeLayout(t)))
	case []byte:
		if utf8.Valid(v) {
			return quote(string(v))
		}
		return "X'" + strings.ToUpper(hex.EncodeToString(v)) + "'"
	case string:
		if types.IsNumeric(t) {
			if _, err := strconv.ParseFloat(v, 64); err == nil {
				return v
			}
		}
		return quote(v)
	case fmt.Stringer:
		return quote(v.String())
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(value)
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = Render(rv.Index(i).Interface(), types.Base(t))
		}
		return strings.Join(parts, ", ")
	}
	return quote(fmt.Sprint(value))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func timeLayout(t types.Type) string {
	switch types.Base(t) {
	case types.Date:
		return types.DateLayout
	case types.Time:
		return types.TimeLayout
	}
	return types.DateTimeLayout
}
