package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context, creating a LecternError if the input is not already one.
// A wrapped LecternError keeps its path.
func Wrap(err error, errType ErrorType, code, message string) *LecternError {
	if err == nil {
		return nil
	}

	var le *LecternError
	if errors.As(err, &le) {
		return &LecternError{
			Type:    errType,
			Code:    code,
			Message: message,
			Cause:   le,
			Context: le.Context,
			Path:    le.Path,
		}
	}

	return &LecternError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapFilesystem wraps an error as a filesystem error about path.
func WrapFilesystem(err error, code, message, path string) *LecternError {
	le := Wrap(err, ErrorTypeFilesystem, code, message)
	if le != nil {
		le.Path = path
	}
	return le
}

// WrapTemplate wraps an error as a template error about the named template.
func WrapTemplate(err error, code, message, name string) *LecternError {
	le := Wrap(err, ErrorTypeTemplate, code, message)
	if le != nil {
		le.Path = name
	}
	return le
}

// FormatErrorWithSuggestions formats an error with suggestions for ValidationError types
func FormatErrorWithSuggestions(err error) string {
	if err == nil {
		return ""
	}

	var vec *ValidationErrorCollection
	if errors.As(err, &vec) && len(vec.Errors) > 1 {
		result := fmt.Sprintf("configuration has %d problems:", len(vec.Errors))
		for _, ve := range vec.Errors {
			result += "\n  • " + ve.Error()
			for _, suggestion := range ve.Suggestions() {
				result += fmt.Sprintf("\n      %s", suggestion)
			}
		}
		return result
	}

	var ve ValidationError
	if errors.As(err, &ve) {
		result := ve.Error()
		suggestions := ve.Suggestions()
		if len(suggestions) > 0 {
			result += "\n\nSuggestions:"
			for _, suggestion := range suggestions {
				result += fmt.Sprintf("\n  • %s", suggestion)
			}
		}
		return result
	}

	return err.Error()
}
