package errors

import (
	"fmt"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if we, ok := err.(*WeaverError); ok {
		return a.exitCodeFromWeaver(we)
	}

	return 1
}

// exitCodeFromWeaver maps WeaverError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromWeaver(err *WeaverError) int {
	switch err.Category {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryNetwork, CategoryGit, CategoryLinkCheck:
		return 8 // External system error
	case CategoryAnalysis, CategoryTranslate, CategoryMerge,
		CategoryTransform, CategoryPages, CategoryRender, CategoryFileSystem:
		return 11 // Pipeline stage error
	case CategoryDaemon, CategoryStorage:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	if we, ok := err.(*WeaverError); ok {
		return a.formatWeaver(we)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatWeaver formats a WeaverError for display.
func (a *CLIErrorAdapter) formatWeaver(err *WeaverError) string {
	if a.verbose {
		return err.Error()
	}

	switch err.Category {
	case CategoryConfig, CategoryValidation:
		return err.Message
	default:
		if err.Stage != "" {
			return fmt.Sprintf("%s stage failed: %v", err.Stage, causeOrSelf(err))
		}
		return fmt.Sprintf("%s: %s", err.Category, err.Message)
	}
}

func causeOrSelf(err *WeaverError) error {
	if err.Cause != nil {
		return err.Cause
	}
	return err
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	fmt.Fprintf(os.Stderr, "%s\n", message)
	os.Exit(exitCode)
}

// shouldLog determines if an error should be logged.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}

	if we, ok := err.(*WeaverError); ok {
		return we.Category == CategoryInternal || we.Severity == SeverityFatal
	}

	return true
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	if we, ok := err.(*WeaverError); ok {
		level := a.slogLevelFromWeaverSeverity(we.Severity)
		attrs := []slog.Attr{
			slog.String("category", string(we.Category)),
		}
		if we.Stage != "" {
			attrs = append(attrs, slog.String("stage", we.Stage))
		}
		if we.Retryable {
			attrs = append(attrs, slog.Bool("retryable", true))
		}

		a.logger.LogAttrs(nil, level, we.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromWeaverSeverity converts WeaverError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromWeaverSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityFatal:
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
