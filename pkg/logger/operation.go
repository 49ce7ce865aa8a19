package logger

import (
	"fmt"
	"time"
)

// OperationLogger logs the steps of one pipeline run with shared fields and timing
type OperationLogger struct {
	logger    Logger
	operation string
	fields    Fields
	startTime time.Time
	now       func() time.Time
}

// NewOperationLogger creates a new operation logger
func NewOperationLogger(operation string, logger Logger) *OperationLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	ol := &OperationLogger{
		logger:    logger.WithComponent("operation"),
		operation: operation,
		fields:    make(Fields),
		now:       time.Now,
	}
	ol.startTime = ol.now()

	ol.logger.WithField("operation", operation).Info("Starting operation")
	return ol
}

// WithField adds a field to every subsequent entry of the operation
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.fields[key] = value
	return ol
}

// WithFields adds multiple fields to the operation context
func (ol *OperationLogger) WithFields(fields Fields) *OperationLogger {
	for k, v := range fields {
		ol.fields[k] = v
	}
	return ol
}

func (ol *OperationLogger) entry(extra Fields) Logger {
	fields := Fields{"operation": ol.operation}
	for k, v := range ol.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	return ol.logger.WithFields(fields)
}

// Step logs a step within the operation
func (ol *OperationLogger) Step(step string) {
	ol.entry(Fields{"step": step}).Info("Operation step")
}

// Progress logs a processed/total count
func (ol *OperationLogger) Progress(message string, processed, total int) {
	extra := Fields{"processed": processed, "total": total}
	if total > 0 {
		extra["percentage"] = fmt.Sprintf("%.1f%%", float64(processed)/float64(total)*100)
	}
	ol.entry(extra).Info(message)
}

// Warning logs a warning during the operation
func (ol *OperationLogger) Warning(message string, extra Fields) {
	ol.entry(extra).Warn(message)
}

// Success completes the operation successfully
func (ol *OperationLogger) Success(message string) {
	ol.entry(Fields{
		"duration": ol.now().Sub(ol.startTime).String(),
		"status":   "success",
	}).Info(message)
}

// Error completes the operation with an error
func (ol *OperationLogger) Error(err error, message string) {
	ol.entry(Fields{
		"duration": ol.now().Sub(ol.startTime).String(),
		"status":   "error",
	}).WithError(err).Error(message)
}

// TimedOperation executes fn and logs its outcome and duration
func TimedOperation(operation string, logger Logger, fn func() error) error {
	ol := NewOperationLogger(operation, logger)

	err := fn()
	if err != nil {
		ol.Error(err, "Operation failed")
	} else {
		ol.Success("Operation completed successfully")
	}

	return err
}
