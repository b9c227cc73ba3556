package common

import (
	"fmt"
	"slices"
	"strings"
)

// FieldError is one failed rule for a named setting.
type FieldError struct {
	Field   string
	Value   any
	Message string
}

func (e FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s %s (got %v)", e.Field, e.Message, e.Value)
}

// Rule inspects a value and returns a failure message, or "" when it holds.
type Rule func(value any) string

// Validator accumulates field failures so every problem is reported at once.
type Validator struct {
	failures []FieldError
}

func NewValidator() *Validator { return &Validator{} }

// Field applies rules to value in order.
func (v *Validator) Field(name string, value any, rules ...Rule) *Validator {
	for _, rule := range rules {
		if msg := rule(value); msg != "" {
			v.failures = append(v.failures, FieldError{Field: name, Value: value, Message: msg})
		}
	}
	return v
}

// Check records msg against name unless ok holds. Used for rules spanning
// several fields.
func (v *Validator) Check(ok bool, name, msg string) *Validator {
	if !ok {
		v.failures = append(v.failures, FieldError{Field: name, Message: msg})
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.failures) > 0 }

func (v *Validator) ErrorMessage() string {
	msgs := make([]string, len(v.failures))
	for i, f := range v.failures {
		msgs[i] = f.Error()
	}
	return strings.Join(msgs, "; ")
}

// Required rejects blank strings and nil.
func Required(value any) string {
	switch s := value.(type) {
	case nil:
		return "is required"
	case string:
		if strings.TrimSpace(s) == "" {
			return "is required"
		}
	}
	return ""
}

// OneOf accepts only the listed values, case-insensitively. Blank passes.
func OneOf(allowed ...string) Rule {
	return func(value any) string {
		s, _ := value.(string)
		if s == "" || slices.Contains(allowed, strings.ToLower(s)) {
			return ""
		}
		return "must be one of " + strings.Join(allowed, ", ")
	}
}

// Between accepts float64 values in [lo, hi].
func Between(lo, hi float64) Rule {
	return func(value any) string {
		f, ok := value.(float64)
		switch {
		case !ok:
			return "must be a number"
		case f < lo || f > hi:
			return fmt.Sprintf("must be between %g and %g", lo, hi)
		}
		return ""
	}
}

// Positive accepts ints above zero.
func Positive(value any) string {
	if n, ok := value.(int); ok && n > 0 {
		return ""
	}
	return "must be a positive integer"
}
