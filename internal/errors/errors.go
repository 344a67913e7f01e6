// Package errors defines domain-level errors used throughout the application.
// These errors represent triage failures and are mapped to exit behavior at the command boundary
// and to HTTP status codes by the status API.
//
// NOTE: Important for developers
// When adding a new error here, you MUST consider how it should be handled when returned from API endpoints.
//
// Unmapped errors will default to HTTP 500 Internal Server Error.
//
// Don't forget to:
// 1. Add your error to mapError (internal/server/server.go)
// 2. Add a test case to TestMapError (internal/server/server_test.go)
package errors

import (
	"errors"
)

var (
	// ErrMissingLedger indicates that a ledger required before any work begins does not exist.
	// This is a configuration error and terminates the run immediately.
	// Recommended to map to HTTP 404 Not Found.
	ErrMissingLedger = errors.New("required ledger missing")

	// ErrLedgerCorrupt indicates that the backing content of a ledger could not be parsed,
	// or did not match the shape expected for that ledger.
	// Callers do not attempt partial recovery.
	// Recommended to map to HTTP 500 Internal Server Error.
	ErrLedgerCorrupt = errors.New("ledger corrupt")

	// ErrUnknownLedger indicates that a ledger name is not one of the enumerated ledgers.
	// Recommended to map to HTTP 400 Bad Request.
	ErrUnknownLedger = errors.New("unknown ledger")

	// ErrInvalidRepoURL indicates that a repository URL does not end in '<owner>/<name>'.
	// Recommended to map to HTTP 400 Bad Request.
	ErrInvalidRepoURL = errors.New("invalid repository url")

	// ErrAcquisitionFailed indicates that a local working copy of a repository could not be obtained.
	// The pipeline recovers from this locally by routing the record to manual review.
	ErrAcquisitionFailed = errors.New("repository acquisition failed")

	// ErrArchiveRelocation indicates that an expected file or directory was absent
	// while relocating storage into an archive.
	ErrArchiveRelocation = errors.New("archive relocation failed")
)
