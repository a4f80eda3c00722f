package app

import (
	"errors"
	"fmt"
)

// Application-level errors. Callers map these to outcomes with errors.Is.
var (
	// ErrValidationFailed wraps a *payment.ValidationErrors.
	ErrValidationFailed = errors.New("payment batch failed validation")
	// ErrOwnershipMismatch means the payload claims an owner other than the caller.
	ErrOwnershipMismatch = errors.New("payload owner does not match authenticated organization")
	// ErrPersistenceFailed means the store rejected the batch; nothing was persisted.
	ErrPersistenceFailed = errors.New("failed to persist payment batch")
	// ErrExportFailed means the export transaction was rolled back; nothing was marked.
	ErrExportFailed = errors.New("payment export failed")
	// ErrHandoffFailed means the export committed but the file was not moved to the outbox.
	ErrHandoffFailed = errors.New("export committed but handoff to outbox failed")
	// ErrUnauthenticated means the bearer credential did not resolve to an organization.
	ErrUnauthenticated = errors.New("invalid or missing credential")
)

// HandoffError reports a committed export whose file is still in staging.
// Recover with ExportService.RetryHandoff(StagedPath), not by re-running the export.
type HandoffError struct {
	StagedPath string
	Result     *ExportResult
	Err        error
}

func (e *HandoffError) Error() string {
	return fmt.Sprintf("%v: %d payments recorded in export file %d, artifact left at %s: %v",
		ErrHandoffFailed, e.Result.Count, e.Result.ExportFileID, e.StagedPath, e.Err)
}

func (e *HandoffError) Unwrap() []error {
	return []error{ErrHandoffFailed, e.Err}
}
