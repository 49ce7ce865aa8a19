package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"document-reconciliation-service/cmd/docrecon/config"
	"document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

// CLIErrorHandler turns command errors into messages and exit codes
type CLIErrorHandler struct {
	out     io.Writer
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a handler that writes to out
func NewCLIErrorHandler(out io.Writer) *CLIErrorHandler {
	if out == nil {
		out = os.Stderr
	}
	return &CLIErrorHandler{
		out:     out,
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool(config.KeyVerbose),
	}
}

// HandleError prints err and returns the exit code; nil means success
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return h.handleReconcilerError(reconcilerErr)
	}
	return h.handleGenericError(err)
}

// handleReconcilerError prints message, context, suggestion and category help
func (h *CLIErrorHandler) handleReconcilerError(err *errors.ReconcilerError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles errors raised outside the application packages,
// such as cobra flag parsing
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if h.isFileNotFoundError(err) {
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if h.isPermissionError(err) {
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	fmt.Fprintf(h.out, "Run 'docrecon --help' for usage.\n")
	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check that the file exists and is readable
• Verify the path (use absolute paths if needed)
• For --output, make sure the directory is writable`

	case errors.CategoryParse:
		return `Parse error help:
• Statement and ledger CSVs need doc_no and amount columns (or debit/credit)
• Record files must be a JSON array or a single JSON object
• Save files as UTF-8`

	case errors.CategoryValidation:
		return `Validation error help:
• Every entry needs a document number
• Investigation states are under-investigation, resolved or approved
• Use 'docrecon <command> --help' to see the expected arguments`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and DOCRECON_ environment variables
• Verify configuration file syntax if using --config
• Dates use the YYYY-MM-DD format`

	case errors.CategoryStore:
		return `Review store help:
• Check that Redis or PostgreSQL is reachable with the given address or URL
• Use --review-backend file to keep review state in a local JSON file
• Use --no-review to reconcile without saved review state`

	default:
		return `For more help:
• Use 'docrecon --help' for general help
• Run again with --verbose for the underlying error`
	}
}

func (h *CLIErrorHandler) isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory")
}

func (h *CLIErrorHandler) isPermissionError(err error) bool {
	return os.IsPermission(err) ||
		strings.Contains(err.Error(), "permission denied") ||
		strings.Contains(err.Error(), "access denied")
}
