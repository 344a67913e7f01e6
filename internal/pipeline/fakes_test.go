package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mozilla-ai/triage/internal/analyzer"
	"github.com/mozilla-ai/triage/internal/errors"
	"github.com/mozilla-ai/triage/internal/repo"
)

const (
	marker   = "SOURCE"
	artifact = "res.csv"
)

// fakeAcquirer creates a working area holding a marker file, failing for names in fail.
type fakeAcquirer struct {
	fail map[string]bool
}

func (f *fakeAcquirer) Acquire(_ context.Context, rec repo.Record, dest string) error {
	if f.fail[rec.Name()] {
		return fmt.Errorf("%w: simulated clone failure", errors.ErrAcquisitionFailed)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dest, marker), []byte(rec.URL), 0o644)
}

// fakeAdapter returns a scripted outcome per repository name, writing an artifact for findings.
// Names without a scripted outcome yield NoArtifact.
type fakeAdapter struct {
	outcomes map[string]analyzer.Outcome

	// block makes the named repository signal started, then wait on release before finishing.
	block   string
	started chan struct{}
	release chan struct{}

	mu      sync.Mutex
	invoked []string
	ctxErrs []error
}

func (f *fakeAdapter) Invoke(ctx context.Context, workDir string) (analyzer.Outcome, error) {
	name := filepath.Base(workDir)

	f.mu.Lock()
	f.invoked = append(f.invoked, name)
	f.mu.Unlock()

	if name == f.block {
		close(f.started)
		<-f.release
	}

	f.mu.Lock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()

	outcome, ok := f.outcomes[name]
	if !ok {
		return analyzer.NoArtifact(), nil
	}
	if outcome.Kind == analyzer.KindFindings {
		rows := strings.Repeat("finding\n", int(outcome.Rows))
		if err := os.WriteFile(filepath.Join(workDir, artifact), []byte(rows), 0o644); err != nil {
			return analyzer.Outcome{}, err
		}
	}

	return outcome, nil
}

// contextErrs returns ctx.Err() as observed by each invocation when it finished.
func (f *fakeAdapter) contextErrs() []error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]error(nil), f.ctxErrs...)
}

func (f *fakeAdapter) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.invoked...)
}

// fakeMerger records the keys it was asked to merge.
type fakeMerger struct {
	keys []string
	n    int
	err  error
}

func (f *fakeMerger) MergeApproved(key string) (int, error) {
	f.keys = append(f.keys, key)
	return f.n, f.err
}
