package api

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// BindingErrors converts struct-validation failures from request binding into
// a field-keyed response. Returns nil for anything that is not a validation
// error (malformed JSON and the like), so callers can fall back to a generic
// bad-request body.
func BindingErrors(err error) *FieldErrorResponse {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &FieldErrorResponse{Error: "validation failed", Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must have at least " + fe.Param()
	case "max":
		return fe.Field() + " must have at most " + fe.Param()
	case "gte":
		return fe.Field() + " must be greater than or equal to " + fe.Param()
	case "lte":
		return fe.Field() + " must be less than or equal to " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
