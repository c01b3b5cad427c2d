package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var formats = validator.New()

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// FieldErrors collects every rule a payload breaks instead of stopping at the first.
type FieldErrors []FieldError

func (fe FieldErrors) Empty() bool { return len(fe) == 0 }

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}

func (fe *FieldErrors) Add(field, rule, param string) {
	*fe = append(*fe, FieldError{
		Field:   field,
		Rule:    rule,
		Param:   param,
		Message: Message(rule, param),
	})
}

func (fe *FieldErrors) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		fe.Add(field, "required", "")
		return false
	}
	return true
}

func (fe *FieldErrors) MinLen(field, value string, n int) {
	if utf8.RuneCountInString(value) < n {
		fe.Add(field, "min", strconv.Itoa(n))
	}
}

func (fe *FieldErrors) MaxLen(field, value string, n int) {
	if utf8.RuneCountInString(value) > n {
		fe.Add(field, "max", strconv.Itoa(n))
	}
}

func (fe *FieldErrors) Email(field, value string) {
	if formats.Var(value, "required,email") != nil {
		fe.Add(field, "email", "")
	}
}

func (fe *FieldErrors) NonNegativeFloat(field string, v float64) {
	if v < 0 {
		fe.Add(field, "gte", "0")
	}
}

func (fe *FieldErrors) NonNegativeInt(field string, v int) {
	if v < 0 {
		fe.Add(field, "gte", "0")
	}
}

func (fe *FieldErrors) OneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	fe.Add(field, "oneof", strings.Join(allowed, " "))
}

func Message(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "number":
		return "must be a number"
	case "integer":
		return "must be an integer"
	case "boolean":
		return "must be true or false"
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
