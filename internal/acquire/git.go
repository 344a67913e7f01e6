package acquire

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/triage/internal/errors"
	"github.com/mozilla-ai/triage/internal/files"
	"github.com/mozilla-ai/triage/internal/perms"
	"github.com/mozilla-ai/triage/internal/repo"
)

var _ Acquirer = (*Git)(nil)

// Git acquires working copies with 'git clone'.
// NewGit should be used to create instances of Git.
type Git struct {
	git        string
	depth      int
	setupFiles []string
	logger     hclog.Logger
}

// NewGit creates a new Git acquirer.
func NewGit(logger hclog.Logger, opts ...Option) (*Git, error) {
	options, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	return &Git{
		git:        options.git,
		depth:      options.depth,
		setupFiles: options.setupFiles,
		logger:     logger.Named("acquire"),
	}, nil
}

// Acquire clones the repository into dest and copies the setup files alongside the sources.
func (g *Git) Acquire(ctx context.Context, record repo.Record, dest string) error {
	l := g.logger.With("repo", record.Name(), "dest", dest)

	args := []string{"clone"}
	if g.depth > 0 {
		args = append(args, "--depth", strconv.Itoa(g.depth))
	}
	args = append(args, record.URL, dest)

	l.Debug("Cloning repository", "url", record.URL, "depth", g.depth)
	cmd := exec.CommandContext(ctx, g.git, args...)
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0")
	output, err := cmd.CombinedOutput()
	if err != nil {
		out := strings.TrimSpace(string(output))
		l.Warn("Clone failed", "error", err, "output", out)
		return fmt.Errorf("%w: git clone '%s': %w\nOutput: %s", errors.ErrAcquisitionFailed, record.URL, err, out)
	}

	for _, src := range g.setupFiles {
		dst := filepath.Join(dest, filepath.Base(src))
		if err := files.CopyFile(src, dst, perms.RegularFile); err != nil {
			l.Warn("Failed to copy setup file", "file", src, "error", err)
			return fmt.Errorf("%w: setup file '%s': %w", errors.ErrAcquisitionFailed, src, err)
		}
	}

	l.Info("Acquired working copy")

	return nil
}
