package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FormatValidationError turns binding failures into a readable message.
// Non-validation errors pass through unchanged.
func FormatValidationError(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, fieldError := range validationErrors {
			messages = append(messages, fieldErrorMessage(fieldError))
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must have at least %s items", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is not valid", field)
	}
}

func fieldName(field string) string {
	names := map[string]string{
		"Content":       "Content",
		"Options":       "Poll options",
		"ExpiresIn":     "Poll duration",
		"OptionIndex":   "Option index",
		"Category":      "Category",
		"Sources":       "Sources",
		"Rating":        "Rating",
		"DisplayName":   "Display name",
		"Bio":           "Bio",
		"MemberHandles": "Members",
		"Name":          "Name",
	}

	if name, ok := names[field]; ok {
		return name
	}
	return field
}
