package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *WeaverError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *WeaverError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *WeaverError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Extension point errors

func ExtensionMissing(point string) *WeaverError {
	return Configuration("no extension registered for required point").
		WithContext("point", point)
}

func ExtensionAmbiguous(point string, count int) *WeaverError {
	return Configuration("multiple extensions registered for single-cardinality point").
		WithContext("point", point).
		WithContext("registered", count)
}

// Analysis errors

func AnalysisSetupError(pass string, cause error) *WeaverError {
	return Wrap(cause, CategoryAnalysis, SeverityFatal, "platform analysis setup failed").
		WithContext("pass", pass)
}

// Git errors

func GitCloneError(repo string, cause error) *WeaverError {
	return Wrap(cause, CategoryGit, SeverityFatal, "repository clone failed").
		WithContext("repository", repo)
}

func GitNetworkError(repo string, cause error) *WeaverError {
	return WrapRetryable(cause, CategoryGit, SeverityWarning, "git network error").
		WithContext("repository", repo)
}

// Network errors

func NetworkTimeout(url string, cause error) *WeaverError {
	return WrapRetryable(cause, CategoryNetwork, SeverityWarning, "network timeout").
		WithContext("url", url)
}

// Storage errors

func StorageError(operation string, cause error) *WeaverError {
	return Wrap(cause, CategoryStorage, SeverityError, "run store operation failed").
		WithContext("operation", operation)
}

// Internal errors

func InternalError(message string, cause error) *WeaverError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
