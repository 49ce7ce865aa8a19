package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReconcilerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "parse error",
			category:   CategoryParse,
			code:       CodeInvalidJSON,
			message:    "invalid json",
			expectCode: 3,
		},
		{
			name:       "store error",
			category:   CategoryStore,
			code:       CodeStoreUnavailable,
			message:    "redis down",
			cause:      errors.New("dial tcp: connection refused"),
			expectCode: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ReconcilerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
			if len(err.StackTrace) == 0 {
				t.Error("expected a captured stack trace")
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CategoryFile, CodeFileNotFound, "x") != nil {
		t.Error("expected Wrap(nil) to return nil")
	}
}

func TestWithContextAndSuggestion(t *testing.T) {
	err := New(CategoryValidation, CodeMissingDocNo, "record skipped").
		WithContext("file", "utilities.json").
		WithContext("index", 3).
		WithSuggestion("populate doc_no")

	if err.Context["file"] != "utilities.json" {
		t.Errorf("expected file context, got %v", err.Context["file"])
	}
	if err.Context["index"] != 3 {
		t.Errorf("expected index context 3, got %v", err.Context["index"])
	}

	expected := "record skipped (suggestion: populate doc_no)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestConstructors(t *testing.T) {
	t.Run("FileError", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := FileError(CodeFilePermission, "/data/soa.csv", cause)

		if err.Category != CategoryFile {
			t.Errorf("expected file category, got %s", err.Category)
		}
		if err.Context["file_path"] != "/data/soa.csv" {
			t.Errorf("expected file_path context, got %v", err.Context["file_path"])
		}
		if err.Cause != cause {
			t.Errorf("expected cause to be %v, got %v", cause, err.Cause)
		}
	})

	t.Run("ParseError without line", func(t *testing.T) {
		err := ParseError(CodeMissingColumn, "ledger.csv", 0, "doc_no", nil)

		if !strings.Contains(err.Message, "doc_no") {
			t.Errorf("expected column name in message, got %s", err.Message)
		}
		if _, ok := err.Context["line"]; ok {
			t.Error("expected no line context when line is zero")
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeMissingDocNo, "records[2]", "", nil)

		if err.Category != CategoryValidation {
			t.Errorf("expected validation category, got %s", err.Category)
		}
		if err.Context["field"] != "records[2]" {
			t.Errorf("expected field context, got %v", err.Context["field"])
		}
	})

	t.Run("StoreError", func(t *testing.T) {
		err := StoreError(CodeStoreWrite, "postgres", errors.New("tx aborted"))

		if err.Context["backend"] != "postgres" {
			t.Errorf("expected backend context, got %v", err.Context["backend"])
		}
		if err.GetExitCode() != 6 {
			t.Errorf("expected exit code 6, got %d", err.GetExitCode())
		}
	})

	t.Run("ConfigurationError", func(t *testing.T) {
		err := ConfigurationError(CodeInvalidConfig, "review.store", "mongo", nil)

		if err.Suggestion == "" {
			t.Error("expected suggestion to be set")
		}
		if err.GetExitCode() != 4 {
			t.Errorf("expected exit code 4, got %d", err.GetExitCode())
		}
	})
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconcilerError{
		ValidationError(CodeMissingDocNo, "records[0]", "", nil),
		ValidationError(CodeMissingDocNo, "records[4]", "", nil),
		ParseError(CodeInvalidFormat, "soa.csv", 7, "wrong number of fields", nil),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 3 {
		t.Errorf("expected total 3, got %d", summary.Total)
	}
	if summary.ByCategory[CategoryValidation] != 2 {
		t.Errorf("expected 2 validation errors, got %d", summary.ByCategory[CategoryValidation])
	}
	if !summary.HasCode(CodeMissingDocNo) {
		t.Error("expected missing doc_no code")
	}
	if summary.HasCode(CodeStoreRead) {
		t.Error("did not expect store read code")
	}
	if got := summary.Error(); got != "3 errors occurred (parse: 1, validation: 2)" {
		t.Errorf("unexpected summary string %q", got)
	}
	if summary.GetExitCode() != 3 {
		t.Errorf("expected exit code 3, got %d", summary.GetExitCode())
	}
}

func TestErrorSummarySamples(t *testing.T) {
	var errs []*ReconcilerError
	for i := 0; i < 8; i++ {
		errs = append(errs, ValidationError(CodeMissingDocNo, fmt.Sprintf("records[%d]", i), "", nil))
	}

	summary := NewErrorSummary(errs)
	if len(summary.SampleErrors) != 5 {
		t.Errorf("expected 5 samples, got %d", len(summary.SampleErrors))
	}
}

func TestEmptyErrorSummary(t *testing.T) {
	summary := NewErrorSummary(nil)

	if summary.Error() != "no errors" {
		t.Errorf("expected 'no errors', got '%s'", summary.Error())
	}
	if summary.GetExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", summary.GetExitCode())
	}
	if summary.Errors == nil {
		t.Error("expected non-nil error slice")
	}
}

func TestAsReconcilerError(t *testing.T) {
	reconcilerErr := New(CategoryFile, CodeFileNotFound, "test")
	wrapped := fmt.Errorf("loading: %w", reconcilerErr)

	if extracted, ok := AsReconcilerError(wrapped); !ok || extracted != reconcilerErr {
		t.Error("expected AsReconcilerError to find the wrapped ReconcilerError")
	}
	if _, ok := AsReconcilerError(errors.New("generic")); ok {
		t.Error("expected AsReconcilerError to return false for generic error")
	}
	if _, ok := AsReconcilerError(nil); ok {
		t.Error("expected AsReconcilerError to return false for nil")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	reconcilerErr := New(CategoryFile, CodeFileNotFound, "test")
	genericErr := errors.New("generic error")

	if WrapIfNeeded(reconcilerErr, CategoryParse, CodeInvalidFormat, "wrapped") != reconcilerErr {
		t.Error("expected WrapIfNeeded to return original ReconcilerError")
	}

	result := WrapIfNeeded(genericErr, CategoryInternal, CodeUnexpectedError, "wrapped")
	if result.Cause != genericErr || result.Category != CategoryInternal {
		t.Error("expected WrapIfNeeded to wrap generic error")
	}

	if WrapIfNeeded(nil, CategoryParse, CodeInvalidFormat, "wrapped") != nil {
		t.Error("expected WrapIfNeeded to return nil for nil input")
	}
}
