package reporter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"document-reconciliation-service/internal/reconciler"
	"document-reconciliation-service/pkg/errors"
	"document-reconciliation-service/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with validation, logging and a
// console fallback for text formats
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("check the report format and table settings")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely renders the report into memory first and only then
// copies it to writer, so a failed render never leaves partial output behind.
func (srg *SafeReportGenerator) GenerateReportSafely(result *reconciler.RunResult, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Debug("Starting report generation")

	if err := srg.ValidateOutput(result, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	var buf bytes.Buffer
	if err := srg.GenerateReport(result, &buf); err != nil {
		srg.logger.WithError(err).Warn("Primary report generation failed")
		if !srg.shouldAttemptFormatFallback() {
			return srg.wrapGenerationError(err)
		}

		buf.Reset()
		if ferr := srg.generateWithFormatFallback(result, &buf, err); ferr != nil {
			return ferr
		}
	}

	if _, err := buf.WriteTo(writer); err != nil {
		return errors.FileError(errors.CodeFileWrite, getWriterDescription(writer), err)
	}

	srg.logger.WithField("format", srg.config.Format).Debug("Report generation completed")
	return nil
}

// WriteToFile renders the report to path, creating parent directories.
// The file is only created once the report rendered successfully.
func (srg *SafeReportGenerator) WriteToFile(result *reconciler.RunResult, path string) error {
	var buf bytes.Buffer
	if err := srg.GenerateReportSafely(result, &buf); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.FileError(errors.CodeFileWrite, path, err)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		code := errors.CodeFileWrite
		if os.IsPermission(err) {
			code = errors.CodeFilePermission
		}
		return errors.FileError(code, path, err)
	}

	srg.logger.WithFields(logger.Fields{
		"file":   path,
		"format": srg.config.Format,
		"bytes":  buf.Len(),
	}).Info("Report written")
	return nil
}

// ValidateOutput checks that result carries what the configured format needs
func (srg *SafeReportGenerator) ValidateOutput(result *reconciler.RunResult, writer io.Writer) error {
	if result == nil {
		return errors.ValidationError(errors.CodeInvalidValue, "result", nil, nil).
			WithSuggestion("provide a reconciliation result")
	}

	if writer == nil {
		return errors.ValidationError(errors.CodeInvalidValue, "writer", nil, nil).
			WithSuggestion("provide an output writer")
	}

	switch srg.config.Format {
	case FormatTXT:
		if !result.HasReconciliation() {
			return errors.ValidationError(errors.CodeInvalidValue, "format", srg.config.Format, nil).
				WithSuggestion("the txt report needs --soa and --ledger inputs")
		}
	case FormatCSV:
		if srg.config.Table == TableRecords && !result.HasRecords() {
			return errors.ValidationError(errors.CodeInvalidValue, "table", srg.config.Table, nil).
				WithSuggestion("the records table needs --records input")
		}
		if srg.config.Table == TableReconciliation && !result.HasReconciliation() {
			return errors.ValidationError(errors.CodeInvalidValue, "table", srg.config.Table, nil).
				WithSuggestion("the reconciliation table needs --soa and --ledger inputs")
		}
	}

	if !result.HasReconciliation() && !result.HasRecords() {
		srg.logger.Warn("Result holds neither reconciliation items nor records")
	}

	return nil
}

// shouldAttemptFormatFallback reports whether the console layout can stand
// in for the requested format. Binary formats never fall back to text.
func (srg *SafeReportGenerator) shouldAttemptFormatFallback() bool {
	return srg.config.Format != FormatConsole && !srg.config.Format.IsBinary()
}

// generateWithFormatFallback renders the console layout in place of the requested format
func (srg *SafeReportGenerator) generateWithFormatFallback(result *reconciler.RunResult, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}
	fallbackGenerator.now = srg.now

	fmt.Fprintf(writer, "NOTE: %s report failed, showing console layout instead\n", srg.config.Format)
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := fallbackGenerator.GenerateReport(result, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}

	srg.logger.Info("Report generated using format fallback")
	return nil
}

// wrapGenerationError wraps generation errors with context
func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	return errors.WrapIfNeeded(err, errors.CategoryInternal, errors.CodeUnexpectedError, "report generation failed").
		WithContext("format", string(srg.config.Format))
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}
