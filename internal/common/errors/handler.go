// internal/common/errors/handler.go
package errors

import (
	stderrors "errors"
	"time"
)

// ErrorHandler turns per-entry errors into loggable, standardized errors.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleEntryError normalizes and logs an error raised while executing one
// template entry. The returned error is what gets recorded in the outcome.
func (h *ErrorHandler) HandleEntryError(service, query string, err error) *StandardError {
	stdErr := Normalize(err)

	fields := map[string]interface{}{
		"service":       service,
		"query":         query,
		"errorCode":     string(stdErr.Code),
		"errorCategory": GetErrorCategory(stdErr.Code),
		"message":       stdErr.Error(),
		"retryable":     stdErr.Retryable,
	}

	// Missing credentials are an operator setup problem, not a backend fault.
	if stdErr.Code == ErrCodeCredentialMissing {
		h.logger.Warn("query skipped: credential missing", fields)
	} else {
		h.logger.Error("query failed", fields)
	}
	return stdErr
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}
