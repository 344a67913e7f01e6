package archive

import (
	stdErrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/errors"
	"github.com/mozilla-ai/triage/internal/files"
	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/repo"
)

// dateKeyLayout renders day, month and year without separators, e.g. 14102026.
const dateKeyLayout = "02012006"

// Mode selects which archival steps run.
type Mode int

const (
	// ModeFresh relocates the working ledger files into the archive.
	ModeFresh Mode = iota

	// ModeManual merges the working approved ledger into the archive instead.
	ModeManual
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeFresh:
		return "fresh"
	case ModeManual:
		return "manual"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Handle describes what an archival run produced.
type Handle struct {
	// Key is the date key naming the archive.
	Key string `json:"key" yaml:"key"`

	// Dir is the archive root.
	Dir string `json:"dir" yaml:"dir"`

	// ArtifactDir holds the relocated analyzer artifacts.
	ArtifactDir string `json:"artifactDir" yaml:"artifactDir"`

	// Ledgers are the ledger files relocated into Dir.
	Ledgers []string `json:"ledgers" yaml:"ledgers"`

	// Artifacts are the repository names whose artifacts were relocated.
	Artifacts []string `json:"artifacts" yaml:"artifacts"`

	// Merged is the number of approved records merged into the archive.
	Merged int `json:"merged" yaml:"merged"`
}

// DateKey returns the archive key for t.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// Archiver snapshots ledgers and retained analyzer artifacts into date-keyed archive roots.
// NewArchiver should be used to create instances of Archiver.
type Archiver struct {
	cfg    config.Config
	store  *ledger.Store
	logger hclog.Logger
}

// NewArchiver creates an Archiver over the working ledger store.
func NewArchiver(logger hclog.Logger, cfg config.Config, store *ledger.Store) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store cannot be nil")
	}

	return &Archiver{
		cfg:    cfg,
		store:  store,
		logger: logger.Named("archive"),
	}, nil
}

// Archive creates the archive root for key and relocates storage into it.
// Missing artifacts and relocation conflicts do not stop the run: they are collected,
// and returned joined, each wrapping errors.ErrArchiveRelocation.
func (a *Archiver) Archive(key string, mode Mode) (Handle, error) {
	l := a.logger.With("key", key, "mode", mode.String())

	root := a.cfg.ArchiveDir(key)
	h := Handle{
		Key:         key,
		Dir:         root,
		ArtifactDir: filepath.Join(root, a.cfg.Archive.ArtifactDir),
	}

	if err := files.EnsureAtLeastRegularDir(h.ArtifactDir); err != nil {
		return h, err
	}
	l.Info("Created archive", "dir", root)

	var errs []error

	switch mode {
	case ModeFresh:
		for _, n := range []ledger.Name{ledger.Pending, ledger.Approved, ledger.Denied} {
			moved, err := a.relocateLedger(l, n, root)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if moved {
				h.Ledgers = append(h.Ledgers, n.FileName())
			}
		}
	case ModeManual:
		ok, err := a.store.Exists(ledger.Approved)
		if err != nil {
			return h, err
		}
		if ok {
			merged, err := a.MergeApproved(key)
			if err != nil {
				return h, err
			}
			h.Merged = merged
		}
	default:
		return h, fmt.Errorf("unknown archive mode: %s", mode)
	}

	artifacts, relocationErrs, err := a.relocateArtifacts(l, h.ArtifactDir)
	if err != nil {
		return h, err
	}
	h.Artifacts = artifacts
	errs = append(errs, relocationErrs...)

	l.Info("Archive finished", "ledgers", h.Ledgers, "artifacts", len(h.Artifacts), "merged", h.Merged, "errors", len(errs))

	return h, stdErrors.Join(errs...)
}

// MergeApproved appends every working approved record to the approved ledger archived under key,
// creating it if needed, then deletes the working approved ledger.
// Duplicate names are kept and logged. The number of merged records is returned.
func (a *Archiver) MergeApproved(key string) (int, error) {
	l := a.logger.With("key", key)

	working, ok, err := a.store.Peek(ledger.Approved)
	if err != nil {
		return 0, err
	}
	if !ok {
		l.Debug("No working approved ledger to merge")
		return 0, nil
	}

	root := a.cfg.ArchiveDir(key)
	if err := files.EnsureAtLeastRegularDir(root); err != nil {
		return 0, err
	}

	archived, err := ledger.NewStore(a.logger, root)
	if err != nil {
		return 0, err
	}

	err = archived.Update(ledger.Approved, func(current []repo.Record) ([]repo.Record, error) {
		seen := make(map[string]struct{}, len(current))
		for _, r := range current {
			seen[r.Name()] = struct{}{}
		}
		for _, r := range working {
			if _, dup := seen[r.Name()]; dup {
				l.Warn("Archived approved ledger already holds repository, keeping both", "repo", r.Name())
			}
			seen[r.Name()] = struct{}{}
		}

		return append(current, working...), nil
	})
	if err != nil {
		return 0, err
	}

	if err := a.store.Delete(ledger.Approved); err != nil {
		return 0, err
	}

	l.Info("Merged approved ledger", "count", len(working), "path", archived.Path(ledger.Approved))

	return len(working), nil
}

// relocateLedger moves a working ledger file into root, reporting whether anything was moved.
// An existing archived file is never overwritten.
func (a *Archiver) relocateLedger(l hclog.Logger, n ledger.Name, root string) (bool, error) {
	src := a.store.Path(n)
	ok, err := files.Exists(src)
	if err != nil {
		return false, err
	}
	if !ok {
		l.Debug("Ledger absent, skipping", "ledger", n)
		return false, nil
	}

	dst := filepath.Join(root, n.FileName())
	if err := files.Move(src, dst); err != nil {
		return false, fmt.Errorf("%w: ledger '%s': %w", errors.ErrArchiveRelocation, n, err)
	}
	l.Debug("Relocated ledger", "ledger", n, "dst", dst)

	return true, nil
}

// relocateArtifacts moves approved/<name>/<artifact> to <artifactDir>/<name><ext> and removes approved/<name>.
func (a *Archiver) relocateArtifacts(l hclog.Logger, artifactDir string) ([]string, []error, error) {
	approvedDir := a.cfg.ApprovedDir()

	entries, err := os.ReadDir(approvedDir)
	if err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read '%s': %w", approvedDir, err)
	}

	ext := filepath.Ext(a.cfg.Analyzer.Artifact)

	var (
		relocated []string
		errs      []error
	)
	for _, e := range entries {
		if !e.IsDir() {
			l.Warn("Ignoring non-directory entry", "path", filepath.Join(approvedDir, e.Name()))
			continue
		}

		name := e.Name()
		repoDir := filepath.Join(approvedDir, name)
		src := filepath.Join(repoDir, a.cfg.Analyzer.Artifact)
		dst := filepath.Join(artifactDir, name+ext)

		ok, err := files.Exists(src)
		if err != nil {
			return relocated, errs, err
		}
		if !ok {
			l.Error("Approved repository has no artifact", "repo", name, "path", src)
			errs = append(errs, fmt.Errorf("%w: '%s' has no artifact at '%s'", errors.ErrArchiveRelocation, name, src))
			continue
		}

		if err := files.Move(src, dst); err != nil {
			errs = append(errs, fmt.Errorf("%w: artifact for '%s': %w", errors.ErrArchiveRelocation, name, err))
			continue
		}
		if err := os.RemoveAll(repoDir); err != nil {
			return relocated, errs, fmt.Errorf("failed to remove '%s': %w", repoDir, err)
		}

		l.Debug("Relocated artifact", "repo", name, "dst", dst)
		relocated = append(relocated, name)
	}

	return relocated, errs, nil
}
