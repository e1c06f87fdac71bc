package errors

import (
	"fmt"
)

// CoreError is the structured error type for the indexing core.
// It carries a Kind (spec §7 disposition class) plus enough context for
// logging and user presentation without leaking a stack trace across the
// tool-call boundary.
type CoreError struct {
	// Kind classifies disposition: retry, record-and-continue, or abort.
	Kind Kind

	// Op names the failing operation (e.g. "indexCodebase", "commitDiff").
	Op string

	// Target names the offending input: a path, collection, or commit
	// short-hash, per spec §7 ("names the failing operation and the
	// offending input").
	Target string

	// Message is the human-readable error message.
	Message string

	// Severity is derived from Kind.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s (%s): %s", e.Op, e.Target, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by kind.
func (e *CoreError) Is(target error) bool {
	if t, ok := target.(*CoreError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// WithDetail adds a key-value detail to the error. Returns the error for
// method chaining.
func (e *CoreError) WithDetail(key, value string) *CoreError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new CoreError for the given kind, operation, and target.
func New(kind Kind, op, target, message string, cause error) *CoreError {
	return &CoreError{
		Kind:      kind,
		Op:        op,
		Target:    target,
		Message:   message,
		Severity:  severityForKind(kind),
		Cause:     cause,
		Retryable: isRetryableKind(kind),
	}
}

// Wrap creates a CoreError from an existing error, preserving its message.
func Wrap(kind Kind, op, target string, err error) *CoreError {
	if err == nil {
		return nil
	}
	return New(kind, op, target, err.Error(), err)
}

// IsRetryable reports whether an error is a retryable CoreError.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(*CoreError); ok {
		return ce.Retryable
	}
	return false
}

// IsFatal reports whether an error has fatal severity.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(*CoreError); ok {
		return ce.Severity == SeverityFatal
	}
	return false
}

// GetKind extracts the Kind from a CoreError. Returns "" if not a CoreError.
func GetKind(err error) Kind {
	if ce, ok := err.(*CoreError); ok {
		return ce.Kind
	}
	return ""
}
