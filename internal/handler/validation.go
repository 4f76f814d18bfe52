package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/Dan9191/loanflow/internal/models"
	"github.com/Dan9191/loanflow/internal/service"
	"github.com/go-playground/validator/v10"
)

// Validator checks request DTOs and reports problems by JSON field name
type Validator struct{ v *validator.Validate }

// NewValidator registers the custom rules used by the request types
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseRole(fl.Field().String())
		return ok
	})
	return &Validator{v: v}
}

// Struct validates s and converts failures into a *service.ValidationError
func (cv *Validator) Struct(s any) error {
	err := cv.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	return &service.ValidationError{Fields: toFieldErrors(ve)}
}

func toFieldErrors(ve validator.ValidationErrors) []service.FieldError {
	out := make([]service.FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, service.FieldError{Field: field, Message: "is required"})
		case "gt":
			out = append(out, service.FieldError{Field: field, Message: "must be greater than " + e.Param()})
		case "max":
			out = append(out, service.FieldError{Field: field, Message: "must be at most " + e.Param() + unit(e)})
		case "min":
			out = append(out, service.FieldError{Field: field, Message: "must be at least " + e.Param() + unit(e)})
		case "role":
			out = append(out, service.FieldError{Field: field, Message: "is not a known role"})
		default:
			out = append(out, service.FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}

// unit names what a length bound counts; numeric bounds have none
func unit(e validator.FieldError) string {
	if e.Kind() == reflect.String {
		return " characters"
	}
	return ""
}
