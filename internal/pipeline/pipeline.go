package pipeline

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/mozilla-ai/triage/internal/acquire"
	"github.com/mozilla-ai/triage/internal/analyzer"
	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/files"
	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/metrics"
	"github.com/mozilla-ai/triage/internal/repo"
)

// Store is the ledger persistence the pipeline depends on.
type Store interface {
	Peek(n ledger.Name) ([]repo.Record, bool, error)
	Append(n ledger.Name, records ...repo.Record) error
	Remove(n ledger.Name, repoNames ...string) (int, error)
	Contains(n ledger.Name, repoName string) (bool, error)
}

// Merger folds the working approved ledger into the archive identified by key.
type Merger interface {
	MergeApproved(key string) (int, error)
}

// recordFunc processes a single record to a placement.
// An error aborts the whole pass.
type recordFunc func(ctx context.Context, l hclog.Logger, rec repo.Record) (placement, error)

// Pipeline moves repositories through acquisition, analysis and ledger placement.
// New should be used to create instances of Pipeline.
type Pipeline struct {
	cfg      config.Config
	store    Store
	acquirer acquire.Acquirer
	adapter  analyzer.Adapter
	metrics  *metrics.Recorder
	merger   Merger
	options  Options
	logger   hclog.Logger

	// outMu serializes progress output from concurrent workers.
	outMu sync.Mutex
	out   io.Writer
}

// New creates a Pipeline from an immutable configuration and its collaborators.
func New(
	logger hclog.Logger,
	cfg config.Config,
	store Store,
	acquirer acquire.Acquirer,
	adapter analyzer.Adapter,
	opt ...Option,
) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store cannot be nil")
	}
	if acquirer == nil {
		return nil, fmt.Errorf("acquirer cannot be nil")
	}
	if adapter == nil {
		return nil, fmt.Errorf("analyzer adapter cannot be nil")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:      cfg,
		store:    store,
		acquirer: acquirer,
		adapter:  adapter,
		metrics:  opts.metrics,
		merger:   opts.merger,
		options:  opts,
		logger:   logger.Named("pipeline"),
		out:      opts.out,
	}, nil
}

// runLogger returns a logger scoped to a single pass.
func (p *Pipeline) runLogger(mode Mode) hclog.Logger {
	return p.logger.With("run_id", uuid.NewString(), "mode", string(mode))
}

// process runs fn over records with at most cfg.Workers in flight.
// Records not started before ctx is done are counted as cancelled.
func (p *Pipeline) process(
	ctx context.Context,
	l hclog.Logger,
	mode Mode,
	records []repo.Record,
	t *tally,
	fn recordFunc,
) error {
	p.printf("Analyzing %d repositories\n", len(records))
	if len(records) == 0 {
		p.printf("Done!\n")
		return nil
	}

	var (
		mu        sync.Mutex
		remaining = len(records)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, rec := range records {
		if gctx.Err() != nil {
			for range records[i:] {
				t.add(placedCancelled)
				p.metrics.RecordPlacement(string(mode), string(placedCancelled))
			}
			break
		}

		g.Go(func() error {
			pl, err := fn(gctx, l.With("repo", rec.Name()), rec)
			if err != nil {
				return fmt.Errorf("repository '%s': %w", rec.Name(), err)
			}

			t.add(pl)
			p.metrics.RecordPlacement(string(mode), string(pl))
			if pl == placedCancelled {
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			remaining--
			if remaining > 0 {
				p.printf("%d repos to go\n", remaining)
			} else {
				p.printf("Done!\n")
			}

			return nil
		})
	}

	return g.Wait()
}

// placedNames returns the names already held by any classification bucket.
func (p *Pipeline) placedNames(buckets ...ledger.Name) (map[string]ledger.Name, error) {
	placed := make(map[string]ledger.Name)
	for _, b := range buckets {
		records, _, err := p.store.Peek(b)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if _, ok := placed[r.Name()]; !ok {
				placed[r.Name()] = b
			}
		}
	}
	return placed, nil
}

// dedupe keeps the first record for each name.
// Every dropped record is counted as skipped and announced.
func (p *Pipeline) dedupe(l hclog.Logger, mode Mode, records []repo.Record, t *tally) []repo.Record {
	kept := make(map[string]repo.Record, len(records))
	out := make([]repo.Record, 0, len(records))
	for _, r := range records {
		if first, ok := kept[r.Name()]; ok {
			l.Warn("Dropping duplicate repository", "repo", r.Name(), "url", r.URL, "kept_url", first.URL)
			p.printf("Skipping %s, repository name '%s' is already queued from %s\n", r.URL, r.Name(), first.URL)
			t.add(placedSkipped)
			p.metrics.RecordPlacement(string(mode), string(placedSkipped))
			continue
		}
		kept[r.Name()] = r
		out = append(out, r)
	}
	return out
}

// relocate moves a working area to dst, replacing an orphaned destination left by an interrupted run.
func relocate(l hclog.Logger, src string, dst string) error {
	ok, err := files.Exists(dst)
	if err != nil {
		return err
	}
	if ok {
		l.Warn("Replacing orphaned directory", "path", dst)
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("failed to remove orphaned directory '%s': %w", dst, err)
		}
	}

	return files.Move(src, dst)
}

// discard deletes a working area.
func discard(path string) error {
	if err := os.RemoveAll(path); err != nil && !stdErrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove working area '%s': %w", path, err)
	}
	return nil
}

func (p *Pipeline) printf(format string, args ...any) {
	p.outMu.Lock()
	defer p.outMu.Unlock()

	_, _ = fmt.Fprintf(p.out, format, args...)
}
