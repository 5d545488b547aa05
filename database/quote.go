package database

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/satishbabariya/dbal/query/types"
)

// LiteralQuoter renders values as SQL literals for dialects that support
// quoting. Values are first converted by their declared type, so a numeric
// type never renders a quoted string.
type LiteralQuoter struct {
	// String quotes text. Defaults to single quotes with doubled escapes.
	String func(s string) string
	// Bytes renders binary data. Defaults to X'..' hex literals.
	Bytes func(b []byte) string
}

// Quote renders v according to t
func (q LiteralQuoter) Quote(v any, t types.Type) (string, error) {
	if types.IsMulti(t) {
		return "", fmt.Errorf("cannot quote list type %s as a single literal", t)
	}
	dv, err := types.ToDriver(v, t)
	if err != nil {
		return "", err
	}

	switch x := dv.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case time.Time:
		return q.quoteString(x.Format(types.DateTimeLayout)), nil
	case []byte:
		if q.Bytes != nil {
			return q.Bytes(x), nil
		}
		return "X'" + strings.ToUpper(hex.EncodeToString(x)) + "'", nil
	case string:
		if types.Base(t) == types.Decimal {
			return x, nil
		}
		return q.quoteString(x), nil
	}

	switch x := dv.(type) {
	case int, int8, int16, int32, uint, uint8, uint16, uint32, uint64, float32:
		return fmt.Sprint(x), nil
	}
	return q.quoteString(fmt.Sprint(dv)), nil
}

func (q LiteralQuoter) quoteString(s string) string {
	if q.String != nil {
		return q.String(s)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
