// Package validator checks request payloads against their validate tags and
// reports failures per JSON field.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks s. Tag violations come back as *ValidationError; anything
// else (a nil or non-struct value) is returned unchanged.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return &ValidationError{Errors: fieldErrs}
	}
	return err
}

// ValidationError lists the fields of a payload that failed validation.
// Fields are named by their JSON key, e.g. "names[0]".
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	for i, fe := range e.Errors {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s %s", fe.Field(), describe(fe))
	}
	return b.String()
}

// Fields maps each failing field to a short description.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		out[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	p := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("length must be %s %s", bound(fe.Tag()), p)
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have %s %s entries", bound(fe.Tag()), p)
		}
		return fmt.Sprintf("must be %s %s", bound(fe.Tag()), p)
	case "gte":
		return "must not be below " + p
	case "lte":
		return "must not exceed " + p
	case "url":
		return "must be an absolute URL"
	case "oneof":
		return "must be one of " + strings.Join(strings.Fields(p), ", ")
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

func bound(tag string) string {
	if tag == "min" {
		return "at least"
	}
	return "at most"
}
