package validator

import (
	"errors"
	"strings"

	val "github.com/go-playground/validator/v10"
)

var messages = map[string]string{
	"required":   "{field} is required",
	"gte":        "{field} must be greater than or equal to {param}",
	"lte":        "{field} must be less than or equal to {param}",
	"oneof":      "{field} must be one of {param}",
	"max":        "{field} must be at most {param} long",
	"email":      "{field} must be a valid email address",
	"len":        "{field} must be exactly {param} characters long",
	"alpha":      "{field} must contain letters only",
	"gtfield":    "{field} must be after {param}",
	"identifier": "{field} may only contain letters, digits, dots, dashes and underscores",
}

// message renders the first failed rule. Var validations have no field name and read "value".
func message(err error) string {
	var valErrors val.ValidationErrors
	if !errors.As(err, &valErrors) || len(valErrors) == 0 {
		return err.Error()
	}

	first := valErrors[0]

	template, ok := messages[first.Tag()]
	if !ok {
		return first.Error()
	}

	field := first.Field()
	if field == "" {
		field = "value"
	}

	param := first.Param()
	if first.Tag() == "gtfield" {
		param = jsonName(first)
	}

	return strings.NewReplacer("{field}", field, "{param}", param).Replace(template)
}

// jsonName resolves the compared field of a cross-field rule to its JSON name.
func jsonName(fieldErr val.FieldError) string {
	param := fieldErr.Param()
	if param == "" {
		return param
	}

	return strings.ToLower(param[:1]) + param[1:]
}
