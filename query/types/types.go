// Package types names the declared value types understood by the binder and drivers.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Type is a declared SQL value type attached to a binding
type Type string

const (
	Integer    Type = "integer"
	BigInteger Type = "biginteger"
	Float      Type = "float"
	Decimal    Type = "decimal"
	String     Type = "string"
	Text       Type = "text"
	Boolean    Type = "boolean"
	DateTime   Type = "datetime"
	Date       Type = "date"
	Time       Type = "time"
	JSON       Type = "json"
	Binary     Type = "binary"
	UUID       Type = "uuid"
)

// MultiMarker is the suffix marking a list-valued type, e.g. "integer[]"
const MultiMarker = "[]"

// Layouts used when a time.Time is bound to a textual column
const (
	DateTimeLayout = "2006-01-02 15:04:05"
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
)

// IsMulti reports whether t is a list-valued type
func IsMulti(t Type) bool {
	return strings.HasSuffix(string(t), MultiMarker)
}

// Base strips the multi-value marker from t
func Base(t Type) Type {
	return Type(strings.TrimSuffix(string(t), MultiMarker))
}

// Multi returns the list-valued variant of t
func Multi(t Type) Type {
	if IsMulti(t) {
		return t
	}
	return t + MultiMarker
}

// Known reports whether t, ignoring the multi marker, is one of the
// declared types above.
func Known(t Type) bool {
	switch Base(t) {
	case Integer, BigInteger, Float, Decimal, String, Text, Boolean,
		DateTime, Date, Time, JSON, Binary, UUID:
		return true
	}
	return false
}

// IsNumeric reports whether values of t render without quotes
func IsNumeric(t Type) bool {
	switch Base(t) {
	case Integer, BigInteger, Float, Decimal:
		return true
	}
	return false
}

// Infer guesses a declared type from a Go value
func Infer(value any) Type {
	switch value.(type) {
	case int, int8, int16, int32, uint, uint8, uint16, uint32:
		return Integer
	case int64, uint64:
		return BigInteger
	case float32, float64:
		return Float
	case bool:
		return Boolean
	case time.Time, *time.Time:
		return DateTime
	case []byte:
		return Binary
	default:
		return String
	}
}

// ToDriver converts value into the representation a database/sql driver
// expects for the declared type t. An empty type passes the value through.
func ToDriver(value any, t Type) (any, error) {
	if value == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		value = rv.Elem().Interface()
	}

	switch Base(t) {
	case "":
		return value, nil
	case Integer, BigInteger:
		return toInt64(value)
	case Float:
		return toFloat64(value)
	case Decimal:
		return toDecimal(value)
	case Boolean:
		return toBool(value)
	case DateTime, Date, Time:
		return toTime(value, Base(t))
	case JSON:
		if s, ok := value.(string); ok {
			return s, nil
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("cannot encode %T as json: %w", value, err)
		}
		return string(raw), nil
	case Binary:
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			return []byte(v), nil
		}
		return nil, fmt.Errorf("cannot convert %T to binary", value)
	default:
		switch v := value.(type) {
		case string, []byte:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
		return fmt.Sprint(value), nil
	}
}

func toInt64(value any) (any, error) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("integer value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return nil, fmt.Errorf("cannot convert %v to integer without loss", f)
		}
		return int64(f), nil
	case reflect.Bool:
		if rv.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	case reflect.String:
		n, err := strconv.ParseInt(strings.TrimSpace(rv.String()), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to integer: %w", rv.String(), err)
		}
		return n, nil
	}
	return nil, fmt.Errorf("cannot convert %T to integer", value)
}

func toFloat64(value any) (any, error) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(rv.String()), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to float: %w", rv.String(), err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("cannot convert %T to float", value)
}

var decimalText = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// IsDecimalText reports whether s is a plain decimal number
func IsDecimalText(s string) bool { return decimalText.MatchString(s) }

// toDecimal keeps decimals as numeric text so no precision is lost on the
// way to the server.
func toDecimal(value any) (any, error) {
	var s string
	rv := reflect.ValueOf(value)
	switch v := value.(type) {
	case string:
		s = strings.TrimSpace(v)
	case []byte:
		s = strings.TrimSpace(string(v))
	case fmt.Stringer:
		s = strings.TrimSpace(v.String())
	default:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.FormatInt(rv.Int(), 10), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.FormatUint(rv.Uint(), 10), nil
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("cannot convert %v to decimal", f)
			}
			return strconv.FormatFloat(f, 'f', -1, rv.Type().Bits()), nil
		}
		return nil, fmt.Errorf("cannot convert %T to decimal", value)
	}
	if !IsDecimalText(s) {
		return nil, fmt.Errorf("cannot convert %q to decimal", s)
	}
	return s, nil
}

func toBool(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to boolean: %w", v, err)
		}
		return b, nil
	}
	n, err := toInt64(value)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %T to boolean", value)
	}
	return n.(int64) != 0, nil
}

func toTime(value any, t Type) (any, error) {
	switch v := value.(type) {
	case time.Time:
		switch t {
		case Date:
			return v.Format(DateLayout), nil
		case Time:
			return v.Format(TimeLayout), nil
		}
		return v, nil
	case string:
		return v, nil
	}
	return nil, fmt.Errorf("cannot convert %T to %s", value, t)
}
