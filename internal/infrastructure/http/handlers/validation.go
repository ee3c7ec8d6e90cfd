package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	apperrors "github.com/alchemorsel/discovery/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// newValidator creates a validator that reports JSON field names
func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("query_text", validateQueryText)
	_ = validate.RegisterValidation("session_id", validateSessionID)
	return validate
}

// validateQueryText rejects control characters in free text
func validateQueryText(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsControl(r) && r != '\t' {
			return false
		}
	}
	return true
}

// validateSessionID accepts opaque printable IDs without whitespace
func validateSessionID(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// validationError converts validator errors into a VALIDATION_FAILED AppError
func validationError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(err.Error())
	}

	fields := make([]apperrors.ValidationError, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, apperrors.ValidationError{
			Field:   e.Namespace()[strings.Index(e.Namespace(), ".")+1:],
			Value:   e.Value(),
			Tag:     e.Tag(),
			Message: fieldMessage(e),
		})
	}
	return apperrors.NewValidationErrors(fields)
}

func fieldMessage(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "query_text":
		return fmt.Sprintf("%s contains control characters", field)
	case "session_id":
		return fmt.Sprintf("%s must not contain whitespace", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
