package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the layer that raised them
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStore         ErrorCategory = "store"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure within a category
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileWrite      ErrorCode = "file_write"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidJSON   ErrorCode = "invalid_json"

	// Validation errors
	CodeMissingDocNo ErrorCode = "missing_doc_no"
	CodeInvalidDate  ErrorCode = "invalid_date"
	CodeInvalidValue ErrorCode = "invalid_value"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Store errors
	CodeStoreUnavailable ErrorCode = "store_unavailable"
	CodeStoreRead        ErrorCode = "store_read"
	CodeStoreWrite       ErrorCode = "store_write"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries structured detail about the failure
type Context map[string]interface{}

func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode maps the category to a process exit code
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryStore:
		return 6
	case CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion replaces the suggestion shown to the user
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps err with category and code. Wrap(nil, ...) returns nil.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func build(category ErrorCategory, code ErrorCode, message, suggestion string, err error) *ReconcilerError {
	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, category, code, message)
	} else {
		result = New(category, code, message)
	}
	return result.WithSuggestion(suggestion)
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileWrite:
		message = fmt.Sprintf("cannot write file: %s", path)
		suggestion = "ensure the output directory exists and is writable"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	return build(CategoryFile, code, message, suggestion, err).
		WithContext("file_path", path)
}

// ParseError creates an error for an input file that cannot be decoded
func ParseError(code ErrorCode, file string, line int, detail string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvalidJSON:
		message = fmt.Sprintf("invalid JSON in %s", file)
		suggestion = "records must be a JSON object or an array of objects"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in %s", detail, file)
		suggestion = "statement files need doc_no, date and amount columns"
	case CodeInvalidFormat:
		if line > 0 {
			message = fmt.Sprintf("invalid format in %s at line %d: %s", file, line, detail)
		} else {
			message = fmt.Sprintf("invalid format in %s: %s", file, detail)
		}
		suggestion = "check the delimiter, quoting and syntax of the file"
	default:
		message = fmt.Sprintf("parse error in %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	result := build(CategoryParse, code, message, suggestion, err).
		WithContext("file", file)
	if line > 0 {
		result.WithContext("line", line)
	}
	return result
}

// ValidationError creates an error for a single rejected input value
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeMissingDocNo:
		message = fmt.Sprintf("record has no document number (%s)", field)
		suggestion = "the record is skipped; fix the upstream extraction to populate doc_no"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use YYYY-MM-DD or DD-Mon-YYYY"
	default:
		message = fmt.Sprintf("invalid value in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	return build(CategoryValidation, code, message, suggestion, err).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting as a flag, environment variable or in the config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return build(CategoryConfiguration, code, message, suggestion, err).
		WithContext("setting", setting).
		WithContext("value", value)
}

// StoreError creates an error raised by a review-state store backend
func StoreError(code ErrorCode, backend string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeStoreUnavailable:
		message = fmt.Sprintf("review store %s is unavailable", backend)
		suggestion = "check the store address and credentials"
	case CodeStoreRead:
		message = fmt.Sprintf("failed to read review state from %s", backend)
		suggestion = "retry, or run with --no-review to reconcile without saved reviews"
	case CodeStoreWrite:
		message = fmt.Sprintf("failed to write review state to %s", backend)
		suggestion = "retry once the store is reachable"
	default:
		message = fmt.Sprintf("review store error: %s", backend)
		suggestion = "check the store configuration"
	}

	return build(CategoryStore, code, message, suggestion, err).
		WithContext("backend", backend)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("unexpected error during %s", operation)
	suggestion := "this is likely a bug - please report it with the error details"
	return build(CategoryInternal, code, message, suggestion, err).
		WithContext("operation", operation)
}

// ErrorSummary aggregates many errors, typically skipped input records
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*ReconcilerError    `json:"errors"`
	SampleErrors []*ReconcilerError    `json:"sample_errors,omitempty"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*ReconcilerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	if summary.Errors == nil {
		summary.Errors = []*ReconcilerError{}
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	maxSamples := 5
	if len(errs) > maxSamples {
		summary.SampleErrors = errs[:maxSamples]
	} else if len(errs) > 0 {
		summary.SampleErrors = errs
	}

	return summary
}

func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}
	sort.Strings(categories)

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCode checks if the summary contains errors with the given code
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	return es.ByCode[code] > 0
}

// GetExitCode returns the highest exit code among the collected errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}

	return maxCode
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}
