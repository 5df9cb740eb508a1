package shared

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors reports validation failures per offending field so callers
// can re-prompt field by field.
type FieldErrors map[string]string

// Error renders fields in stable order.
func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e FieldErrors) Unwrap() error {
	return ErrValidation
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs struct tag validation and converts the result into
// FieldErrors. A nil return means the input passed.
func ValidateStruct(v any) FieldErrors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	out := make(FieldErrors)
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			out[fe.Field()] = fmt.Sprintf("failed %q validation", fe.Tag())
		}
		return out
	}
	out["_"] = err.Error()
	return out
}
