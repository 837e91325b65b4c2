// Package validator checks request structs and renders readable messages.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// errorMessages maps validation tags to message templates.
var errorMessages = map[string]string{
	"required": "The field '%s' is required.",
	"notblank": "The field '%s' must not be blank.",
	"min":      "The field '%s' must be at least %s characters long.",
	"max":      "The field '%s' must be no longer than %s characters.",
	"oneof":    "The field '%s' must be one of [%s].",
	"uuid":     "The field '%s' must be a valid UUID.",
}

// parseMessage constructs a friendly error message for one failed rule.
func parseMessage(e validator.FieldError) string {
	if msg, ok := errorMessages[e.Tag()]; ok {
		if strings.Count(msg, "%s") == 2 {
			return fmt.Sprintf(msg, e.Field(), e.Param())
		}
		return fmt.Sprintf(msg, e.Field())
	}
	return fmt.Sprintf("Field '%s' is invalid: %s", e.Field(), e.Tag())
}

// ValidateStruct validates s and returns JSON field names mapped to messages.
func ValidateStruct(s any) map[string]string {
	validationErrors := make(map[string]string)

	var validationErrs validator.ValidationErrors
	if err := validate.Struct(s); errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors[e.Field()] = parseMessage(e)
		}
	}
	return validationErrors
}

// Error is returned by Validate when at least one rule failed.
type Error struct {
	Fields map[string]string
}

// Error joins the field messages in field order.
func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, len(keys))
	for i, k := range keys {
		msgs[i] = e.Fields[k]
	}
	return strings.Join(msgs, " ")
}

// Validate validates s and returns an *Error listing every failed field.
func Validate(s any) error {
	if fields := ValidateStruct(s); len(fields) > 0 {
		return &Error{Fields: fields}
	}
	return nil
}
