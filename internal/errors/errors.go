// Package errors provides a lightweight structured error type (WeaverError)
// for category-based classification across the documentation pipeline and CLI.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a docweaver error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Pipeline stage errors
	CategoryAnalysis  ErrorCategory = "analysis"
	CategoryTranslate ErrorCategory = "translate"
	CategoryMerge     ErrorCategory = "merge"
	CategoryTransform ErrorCategory = "transform"
	CategoryPages     ErrorCategory = "pages"
	CategoryRender    ErrorCategory = "render"

	// External system integration errors
	CategoryNetwork   ErrorCategory = "network"
	CategoryGit       ErrorCategory = "git"
	CategoryLinkCheck ErrorCategory = "linkcheck"

	// Runtime and infrastructure errors
	CategoryStorage    ErrorCategory = "storage"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryDaemon     ErrorCategory = "daemon"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// WeaverError is a structured error with category, stage attribution, and context
type WeaverError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Stage     string        `json:"stage,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for WeaverError
type ContextFields map[string]any

// Error implements the error interface
func (e *WeaverError) Error() string {
	prefix := string(e.Category)
	if e.Stage != "" {
		prefix = fmt.Sprintf("%s [stage %s]", e.Category, e.Stage)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", prefix, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", prefix, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *WeaverError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *WeaverError) WithContext(key string, value any) *WeaverError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new WeaverError
func New(category ErrorCategory, severity ErrorSeverity, message string) *WeaverError {
	return &WeaverError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new WeaverError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *WeaverError {
	return &WeaverError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// WrapRetryable creates a new retryable WeaverError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *WeaverError {
	return &WeaverError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// Configuration creates a fatal configuration error. Configuration errors are
// raised before or during plugin initialization and always abort the run.
func Configuration(message string) *WeaverError {
	return &WeaverError{
		Category: CategoryConfig,
		Severity: SeverityFatal,
		Message:  message,
	}
}

// Configurationf creates a fatal configuration error with a formatted message
func Configurationf(format string, args ...any) *WeaverError {
	return Configuration(fmt.Sprintf(format, args...))
}

// WrapConfiguration wraps an existing error as a fatal configuration error
func WrapConfiguration(err error, message string) *WeaverError {
	return &WeaverError{
		Category: CategoryConfig,
		Severity: SeverityFatal,
		Message:  message,
		Cause:    err,
	}
}

// StageFailure wraps an error that aborted a pipeline stage, recording which
// stage failed so callers can report it without parsing messages.
func StageFailure(stage string, category ErrorCategory, err error) *WeaverError {
	var we *WeaverError
	if stderrors.As(err, &we) && we.Stage != "" {
		// Already attributed further down; keep the innermost stage.
		return we
	}
	return &WeaverError{
		Category: category,
		Severity: SeverityFatal,
		Message:  "stage failed",
		Cause:    err,
		Stage:    stage,
	}
}

// IsConfiguration checks if an error is (or wraps) a configuration error
func IsConfiguration(err error) bool {
	var we *WeaverError
	if stderrors.As(err, &we) {
		return we.Category == CategoryConfig || we.Category == CategoryValidation
	}
	return false
}

// IsStageFailure checks if an error carries stage attribution
func IsStageFailure(err error) bool {
	return FailedStage(err) != ""
}

// FailedStage extracts the failed stage name from an error, or "" if the
// error is not a stage failure.
func FailedStage(err error) string {
	var we *WeaverError
	if stderrors.As(err, &we) {
		return we.Stage
	}
	return ""
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	var we *WeaverError
	if stderrors.As(err, &we) {
		return we.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var we *WeaverError
	if stderrors.As(err, &we) {
		return we.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a WeaverError
func GetCategory(err error) ErrorCategory {
	var we *WeaverError
	if stderrors.As(err, &we) {
		return we.Category
	}
	return CategoryInternal
}

// ValidationError creates a new validation error
func ValidationError(message string) *WeaverError {
	return &WeaverError{
		Category: CategoryValidation,
		Severity: SeverityWarning,
		Message:  message,
	}
}

// DaemonError creates a new daemon error
func DaemonError(message string) *WeaverError {
	return &WeaverError{
		Category: CategoryDaemon,
		Severity: SeverityError,
		Message:  message,
	}
}
