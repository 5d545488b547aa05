// Package validation implements field validation through an explicit table
// of named rules.
//
// Rules are looked up when they are added to a Validator, so a misspelt rule
// name fails at registration with UnknownRuleError instead of when data is
// validated. Rule outcomes are plain values: a failing rule returns
// Failed(message), it never panics or returns an error.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownRule is matched by UnknownRuleError
var ErrUnknownRule = errors.New("unknown validation rule")

// UnknownRuleError is returned by Validator.Add for an unregistered rule name
type UnknownRuleError struct {
	Rule  string
	Field string
}

func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("unknown validation rule %q for field %q", e.Rule, e.Field)
}

// Is matches ErrUnknownRule
func (e *UnknownRuleError) Is(target error) bool {
	return target == ErrUnknownRule
}

// Result is the outcome of one rule
type Result struct {
	OK      bool
	Message string
}

// Ok is a passing result
func Ok() Result { return Result{OK: true} }

// Failed is a failing result with a message
func Failed(format string, args ...any) Result {
	return Result{Message: fmt.Sprintf(format, args...)}
}

// Context is handed to a rule alongside the value
type Context struct {
	Field string
	Data  map[string]any
	Args  []any
}

// Rule checks a single value
type Rule func(value any, ctx Context) Result

// Table maps rule names to rules
type Table map[string]Rule

type check struct {
	name string
	rule Rule
	args []any
}

// Validator runs named rules against fields of a map
type Validator struct {
	rules  Table
	fields map[string][]check
	order  []string
}

// New creates a validator with the default rules plus extra
func New(extra Table) *Validator {
	rules := DefaultRules()
	for name, r := range extra {
		rules[name] = r
	}
	return &Validator{rules: rules, fields: make(map[string][]check)}
}

// Register adds or replaces a named rule
func (v *Validator) Register(name string, rule Rule) {
	v.rules[name] = rule
}

// Add attaches a named rule to field. The name is resolved immediately.
func (v *Validator) Add(field, ruleName string, args ...any) error {
	rule, ok := v.rules[ruleName]
	if !ok {
		return &UnknownRuleError{Rule: ruleName, Field: field}
	}
	if _, seen := v.fields[field]; !seen {
		v.order = append(v.order, field)
	}
	v.fields[field] = append(v.fields[field], check{name: ruleName, rule: rule, args: args})
	return nil
}

// MustAdd is Add that panics on unknown rules
func (v *Validator) MustAdd(field, ruleName string, args ...any) *Validator {
	if err := v.Add(field, ruleName, args...); err != nil {
		panic(err)
	}
	return v
}

// Validate runs every rule and collects failure messages per field
func (v *Validator) Validate(data map[string]any) Errors {
	errs := Errors{}
	for _, field := range v.order {
		value := data[field]
		for _, c := range v.fields[field] {
			if c.name != "required" && isEmpty(value) {
				continue
			}
			res := c.rule(value, Context{Field: field, Data: data, Args: c.args})
			if !res.OK {
				msg := res.Message
				if msg == "" {
					msg = fmt.Sprintf("failed rule %s", c.name)
				}
				errs[field] = append(errs[field], msg)
			}
		}
	}
	return errs
}

// Errors maps field names to failure messages
type Errors map[string][]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns e as an error, or nil when no rule failed
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}
