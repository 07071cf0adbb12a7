// Package errors defines the structured error kinds raised by the lectern
// build pipeline.
//
// Every stage of a build pass fails fast with a *LecternError whose Type
// names the failing concern (configuration, pattern, template, filesystem,
// watcher). Callers classify failures with IsType or errors.As instead of
// matching message text.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypePattern    ErrorType = "pattern"
	ErrorTypeTemplate   ErrorType = "template"
	ErrorTypeFilesystem ErrorType = "filesystem"
	ErrorTypeWatch      ErrorType = "watch"
	ErrorTypeInternal   ErrorType = "internal"
)

// LecternError is a structured error type with context.
type LecternError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
	Path    string
}

// Error implements the error interface.
func (e *LecternError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Path != "" {
		parts = append(parts, e.Path+":")
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *LecternError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *LecternError) Is(target error) bool {
	var t *LecternError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *LecternError) WithContext(key string, value interface{}) *LecternError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath records the file or directory the error is about.
func (e *LecternError) WithPath(path string) *LecternError {
	e.Path = path

	return e
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string, cause error) *LecternError {
	return &LecternError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewPatternError creates an error for a filter pattern that cannot be compiled.
func NewPatternError(code, message string, cause error) *LecternError {
	return &LecternError{
		Type:    ErrorTypePattern,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewTemplateError creates a template parse or render error.
func NewTemplateError(code, message string, cause error) *LecternError {
	return &LecternError{
		Type:    ErrorTypeTemplate,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewFilesystemError creates a read, write, mkdir or rmdir error.
func NewFilesystemError(code, message string, cause error) *LecternError {
	return &LecternError{
		Type:    ErrorTypeFilesystem,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewWatchError creates an error raised by the file watcher subsystem.
func NewWatchError(code, message string, cause error) *LecternError {
	return &LecternError{
		Type:    ErrorTypeWatch,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *LecternError {
	return &LecternError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// TypeOf reports the ErrorType of the outermost LecternError in err's chain,
// or the empty string when there is none.
func TypeOf(err error) ErrorType {
	var le *LecternError
	if errors.As(err, &le) {
		return le.Type
	}

	return ""
}

// IsType checks whether any LecternError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var le *LecternError
		if !errors.As(err, &le) {
			return false
		}
		if le.Type == errType {
			return true
		}
		err = le.Cause
	}

	return false
}

// ErrorHandler reports errors that must not stop the caller, such as a
// failed rebuild inside the watch loop.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle processes an error with appropriate logging.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var le *LecternError
	if !errors.As(err, &le) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	fields := []interface{}{"type", le.Type, "code", le.Code}
	if le.Path != "" {
		fields = append(fields, "path", le.Path)
	}

	switch le.Type {
	case ErrorTypeConfig, ErrorTypePattern, ErrorTypeTemplate:
		// Fixable by editing a source file; the next save retries.
		h.logger.Warn(ctx, err, "Build failed", fields...)
	default:
		h.logger.Error(ctx, err, "Build failed", fields...)
	}
}

// Common error codes.
const (
	ErrCodeConfigNotFound    = "ERR_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeInvalidPattern    = "ERR_INVALID_PATTERN"
	ErrCodeInvalidExpression = "ERR_INVALID_EXPRESSION"
	ErrCodeTemplateParse     = "ERR_TEMPLATE_PARSE"
	ErrCodeTemplateNotFound  = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodeTemplateRender    = "ERR_TEMPLATE_RENDER"
	ErrCodeRecordRead        = "ERR_RECORD_READ"
	ErrCodeRecordDecode      = "ERR_RECORD_DECODE"
	ErrCodeClearOutput       = "ERR_CLEAR_OUTPUT"
	ErrCodeWriteOutput       = "ERR_WRITE_OUTPUT"
	ErrCodePathTraversal     = "ERR_PATH_TRAVERSAL"
	ErrCodeWatchSetup        = "ERR_WATCH_SETUP"
	ErrCodeWatchFailed       = "ERR_WATCH_FAILED"
	ErrCodeFileExists        = "ERR_FILE_EXISTS"
	ErrCodeInternalError     = "ERR_INTERNAL"
)

// ValidationError interface for field-specific validation errors.
type ValidationError interface {
	error
	Field() string
	Value() interface{}
	Suggestions() []string
}

// FieldValidationError implements ValidationError for specific field errors.
type FieldValidationError struct {
	FieldName    string
	FieldValue   interface{}
	ErrorMessage string
	HelpText     []string
}

// Error implements the error interface.
func (fve *FieldValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", fve.FieldName, fve.ErrorMessage)
}

// Field returns the field name that failed validation.
func (fve *FieldValidationError) Field() string {
	return fve.FieldName
}

// Value returns the invalid value.
func (fve *FieldValidationError) Value() interface{} {
	return fve.FieldValue
}

// Suggestions returns helpful suggestions for fixing the error.
func (fve *FieldValidationError) Suggestions() []string {
	return fve.HelpText
}

// NewFieldValidationError creates a new field validation error.
func NewFieldValidationError(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) *FieldValidationError {
	return &FieldValidationError{
		FieldName:    field,
		FieldValue:   value,
		ErrorMessage: message,
		HelpText:     suggestions,
	}
}

// ValidationErrorCollection represents a collection of validation errors.
type ValidationErrorCollection struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	switch len(vec.Errors) {
	case 0:
		return "no validation errors"
	case 1:
		return vec.Errors[0].Error()
	}

	msgs := make([]string, 0, len(vec.Errors))
	for _, err := range vec.Errors {
		msgs = append(msgs, err.Error())
	}

	return fmt.Sprintf("validation failed with %d errors: %s", len(vec.Errors), strings.Join(msgs, "; "))
}

// Add adds a validation error to the collection.
func (vec *ValidationErrorCollection) Add(err ValidationError) {
	vec.Errors = append(vec.Errors, err)
}

// AddField adds a field validation error to the collection.
func (vec *ValidationErrorCollection) AddField(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) {
	vec.Add(NewFieldValidationError(field, value, message, suggestions...))
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Errors) > 0
}
