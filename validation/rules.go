package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"
)

// DefaultRules returns a fresh copy of the built-in rule table
func DefaultRules() Table {
	return Table{
		"required":  required,
		"numeric":   numeric,
		"integer":   integer,
		"between":   between,
		"inList":    inList,
		"minLength": minLength,
		"maxLength": maxLength,
		"matches":   matches,
	}
}

func required(value any, _ Context) Result {
	if isEmpty(value) {
		return Failed("is required")
	}
	return Ok()
}

func numeric(value any, _ Context) Result {
	if _, ok := toFloat(value); !ok {
		return Failed("must be numeric")
	}
	return Ok()
}

func integer(value any, _ Context) Result {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Ok()
	case string:
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			return Ok()
		}
	}
	return Failed("must be an integer")
}

// between takes min and max arguments, inclusive
func between(value any, ctx Context) Result {
	if len(ctx.Args) != 2 {
		return Failed("between needs min and max")
	}
	n, ok := toFloat(value)
	lo, okLo := toFloat(ctx.Args[0])
	hi, okHi := toFloat(ctx.Args[1])
	if !ok || !okLo || !okHi {
		return Failed("must be numeric")
	}
	if n < lo || n > hi {
		return Failed("must be between %v and %v", ctx.Args[0], ctx.Args[1])
	}
	return Ok()
}

// inList takes the allowed values as arguments
func inList(value any, ctx Context) Result {
	for _, allowed := range ctx.Args {
		if fmt.Sprint(allowed) == fmt.Sprint(value) {
			return Ok()
		}
	}
	return Failed("must be one of %v", ctx.Args)
}

func minLength(value any, ctx Context) Result {
	n, ok := lengthArg(ctx)
	if !ok {
		return Failed("minLength needs a length")
	}
	if utf8.RuneCountInString(fmt.Sprint(value)) < n {
		return Failed("must be at least %d characters", n)
	}
	return Ok()
}

func maxLength(value any, ctx Context) Result {
	n, ok := lengthArg(ctx)
	if !ok {
		return Failed("maxLength needs a length")
	}
	if utf8.RuneCountInString(fmt.Sprint(value)) > n {
		return Failed("must be at most %d characters", n)
	}
	return Ok()
}

// matches takes a regular expression, as a string or *regexp.Regexp
func matches(value any, ctx Context) Result {
	if len(ctx.Args) != 1 {
		return Failed("matches needs a pattern")
	}
	var re *regexp.Regexp
	switch p := ctx.Args[0].(type) {
	case *regexp.Regexp:
		re = p
	case string:
		compiled, err := regexp.Compile(p)
		if err != nil {
			return Failed("invalid pattern: %v", err)
		}
		re = compiled
	default:
		return Failed("matches needs a pattern")
	}
	if !re.MatchString(fmt.Sprint(value)) {
		return Failed("has an invalid format")
	}
	return Ok()
}

func lengthArg(ctx Context) (int, bool) {
	if len(ctx.Args) != 1 {
		return 0, false
	}
	n, ok := ctx.Args[0].(int)
	return n, ok
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
