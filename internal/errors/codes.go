// Package errors provides structured error handling for the indexing core.
//
// Errors are classified by Kind (spec §7) rather than by ad-hoc type
// hierarchy, so callers can switch on Kind to decide whether to retry,
// record-and-continue, or abort. This mirrors the disposition table in
// spec §7.
package errors

// Kind identifies the disposition class of a CoreError.
type Kind string

const (
	KindInvalidPath      Kind = "invalid_path"
	KindNotARepository   Kind = "not_a_repository"
	KindFileReadError    Kind = "file_read_error"
	KindSecretDetected   Kind = "secret_detected"
	KindParseError       Kind = "parse_error"
	KindGitSubprocess    Kind = "git_subprocess_error"
	KindEmbeddingError   Kind = "embedding_error"
	KindRateLimit        Kind = "rate_limit_error"
	KindVectorStoreError Kind = "vector_store_error"
	KindInvalidFilter    Kind = "invalid_filter"
	KindInvalidDateRange Kind = "invalid_date_range"
	KindSnapshotCorrupt  Kind = "snapshot_corrupt"
	KindSnapshotMissing  Kind = "snapshot_missing"
	KindCancelled        Kind = "cancelled"
	KindInternal         Kind = "internal"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal means the run cannot continue.
	SeverityFatal Severity = "FATAL"
	// SeverityError means the operation failed but the run may continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning means a transient condition, usually retried.
	SeverityWarning Severity = "WARNING"
)

// retryableKinds are kinds that Retry/backoff acts on (spec §7: transient
// embedding errors, rate limits, vector store errors).
var retryableKinds = map[Kind]bool{
	KindEmbeddingError:   true,
	KindRateLimit:        true,
	KindVectorStoreError: true,
}

// fatalKinds are kinds whose severity aborts the current run.
var fatalKinds = map[Kind]bool{
	KindInvalidPath:     true,
	KindNotARepository:  true,
	KindSnapshotMissing: true,
	KindCancelled:       true,
}

func isRetryableKind(k Kind) bool { return retryableKinds[k] }

func severityForKind(k Kind) Severity {
	if fatalKinds[k] {
		return SeverityFatal
	}
	if retryableKinds[k] {
		return SeverityWarning
	}
	return SeverityError
}
