package acquire

import (
	"context"

	"github.com/mozilla-ai/triage/internal/repo"
)

// Acquirer obtains a local working copy of a repository.
type Acquirer interface {
	// Acquire populates dest with a working copy of the repository identified by record.
	// dest must not exist, it is created by the implementation.
	// Failures wrap errors.ErrAcquisitionFailed.
	Acquire(ctx context.Context, record repo.Record, dest string) error
}
