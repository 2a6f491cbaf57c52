// Package errors provides standardized error handling for template runs.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Configuration errors abort a run before any request is sent.
const (
	ErrCodeTemplateNotFound     ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeQueryNotFound        ErrorCode = "QUERY_NOT_FOUND"
	ErrCodeAdapterNotFound      ErrorCode = "ADAPTER_NOT_FOUND"
	ErrCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
)

// Entry errors are recorded as failed outcomes and never abort a run.
const (
	ErrCodeCredentialMissing ErrorCode = "CREDENTIAL_MISSING"
	ErrCodeNetworkError      ErrorCode = "NETWORK_ERROR"
	ErrCodeQueryTimeout      ErrorCode = "QUERY_TIMEOUT"
	ErrCodeRequestBuild      ErrorCode = "REQUEST_BUILD_FAILED"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError target carrying the same code, so callers
// can test against the sentinels below with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrTemplateNotFound     = &StandardError{Code: ErrCodeTemplateNotFound}
	ErrQueryNotFound        = &StandardError{Code: ErrCodeQueryNotFound}
	ErrAdapterNotFound      = &StandardError{Code: ErrCodeAdapterNotFound}
	ErrInvalidConfiguration = &StandardError{Code: ErrCodeInvalidConfiguration}
	ErrCredentialMissing    = &StandardError{Code: ErrCodeCredentialMissing}
	ErrNetwork              = &StandardError{Code: ErrCodeNetworkError}
	ErrQueryTimeout         = &StandardError{Code: ErrCodeQueryTimeout}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewTemplateNotFoundError creates a configuration error for an unknown template.
func NewTemplateNotFoundError(templateName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   fmt.Sprintf("template %q not found", templateName),
		Retryable: false,
		Metadata:  map[string]interface{}{"template": templateName},
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryNotFoundError creates a configuration error for a template entry
// that references a query the service schema does not define.
func NewQueryNotFoundError(service, queryName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryNotFound,
		Message:   fmt.Sprintf("query %q not found for service %q", queryName, service),
		Retryable: false,
		Metadata:  map[string]interface{}{"service": service, "query": queryName},
		Timestamp: time.Now().UTC(),
	}
}

// NewAdapterNotFoundError creates a configuration error for an enabled
// service without a registered adapter.
func NewAdapterNotFoundError(service string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAdapterNotFound,
		Message:   fmt.Sprintf("no adapter registered for service %q", service),
		Retryable: false,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidConfiguration,
		Message:   "invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCredentialMissingError names the environment variable that was not set.
func NewCredentialMissingError(service, envName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCredentialMissing,
		Message:   fmt.Sprintf("%s environment variable is not set", envName),
		Retryable: false,
		Metadata:  map[string]interface{}{"service": service, "credential": envName},
		Timestamp: time.Now().UTC(),
	}
}

// NewNetworkError keeps the transport error message intact.
func NewNetworkError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNetworkError,
		Message:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewQueryTimeoutError wraps a deadline or client timeout for one backend.
func NewQueryTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   fmt.Sprintf("request to %s timed out", service),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewRequestBuildError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestBuild,
		Message:   fmt.Sprintf("failed to build request for %s", service),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInternalError records an unexpected failure, such as a recovered panic,
// inside one entry.
func NewInternalError(service, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   fmt.Sprintf("internal error while querying %s", service),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf returns the code of the first StandardError in err's chain.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// IsConfigurationError reports whether err must abort a whole run.
func IsConfigurationError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeTemplateNotFound, ErrCodeQueryNotFound, ErrCodeAdapterNotFound, ErrCodeInvalidConfiguration:
		return true
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "CREDENTIAL"):
		return "CREDENTIAL"
	case strings.Contains(codeStr, "NETWORK") || strings.Contains(codeStr, "TIMEOUT"):
		return "TRANSPORT"
	case strings.Contains(codeStr, "REQUEST"):
		return "REQUEST"
	default:
		return "OTHER"
	}
}
