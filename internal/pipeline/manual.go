package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/triage/internal/analyzer"
	"github.com/mozilla-ai/triage/internal/archive"
	"github.com/mozilla-ai/triage/internal/files"
	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/repo"
)

// RunManual re-analyzes every record held for manual review, in place.
// Records that reach a terminal outcome are removed from the manual-review ledger;
// the rest stay there, unresolved. A completed pass is followed by the configured merge.
// When ctx is cancelled the pass stops at the next record boundary, no merge runs, and ctx.Err() is returned.
func (p *Pipeline) RunManual(ctx context.Context) (Summary, error) {
	l := p.runLogger(ModeManual)
	t := &tally{summary: Summary{Mode: ModeManual}}

	if err := p.reconcile(l); err != nil {
		return t.result(), err
	}

	held, _, err := p.store.Peek(ledger.ManualReview)
	if err != nil {
		return t.result(), err
	}

	t.summary.Total = len(held)
	records := p.dedupe(l, ModeManual, held, t)

	if err := files.EnsureAtLeastRegularDir(p.cfg.ApprovedDir()); err != nil {
		return t.result(), err
	}

	l.Info("Starting manual review", "held", len(records), "workers", p.cfg.Workers)

	if err := p.process(ctx, l, ModeManual, records, t, p.triageManual); err != nil {
		return t.result(), err
	}

	if err := ctx.Err(); err != nil {
		summary := t.result()
		l.Info("Manual review interrupted", "summary", summary.String())
		return summary, err
	}

	if p.merger != nil {
		key := archive.DateKey(p.options.now())
		merged, err := p.merger.MergeApproved(key)
		if err != nil {
			return t.result(), err
		}
		t.summary.Merged = merged
		l.Info("Merged approved records into archive", "key", key, "count", merged)
	}

	summary := t.result()
	l.Info("Manual review finished", "summary", summary.String())

	return summary, nil
}

// reconcile drops manual-review entries whose names already reached a terminal bucket.
// This repairs a pass that was interrupted between appending to a bucket and removing from manual review.
func (p *Pipeline) reconcile(l hclog.Logger) error {
	held, ok, err := p.store.Peek(ledger.ManualReview)
	if err != nil || !ok {
		return err
	}

	placed, err := p.placedNames(ledger.Approved, ledger.Denied)
	if err != nil {
		return err
	}

	var stale []string
	for _, r := range held {
		if _, ok := placed[r.Name()]; ok {
			stale = append(stale, r.Name())
		}
	}
	if len(stale) == 0 {
		return nil
	}

	removed, err := p.store.Remove(ledger.ManualReview, stale...)
	if err != nil {
		return err
	}
	l.Warn("Reconciled manual review ledger", "removed", removed, "repos", stale)

	return nil
}

// triageManual re-analyzes a single held record and places it if the outcome is terminal.
// As in the fresh pass, cancellation is only observed before the record starts.
func (p *Pipeline) triageManual(ctx context.Context, l hclog.Logger, rec repo.Record) (placement, error) {
	if ctx.Err() != nil {
		return placedCancelled, nil
	}

	workArea := filepath.Join(p.cfg.ManualDir(), rec.Name())
	p.printf("Processing repo at %s\n", workArea)

	ok, err := files.Exists(workArea)
	if err != nil {
		return "", err
	}
	if !ok {
		l.Warn("Working area missing, leaving unresolved", "path", workArea)
		p.printf("Repo %s has no working area at %s, please check manually\n", rec.URL, workArea)
		return p.unresolved(l, rec)
	}

	p.printf("Analyzing for code smells..\n")
	started := time.Now()
	outcome, err := p.adapter.Invoke(context.WithoutCancel(ctx), workArea)
	if err != nil {
		return "", fmt.Errorf("analyzer invocation failed: %w", err)
	}
	p.metrics.RecordAnalysis(string(ModeManual), time.Since(started))

	return p.placeManual(l, rec, workArea, outcome)
}

// placeManual places a re-analyzed record. Terminal placements are moves out of manual review.
func (p *Pipeline) placeManual(l hclog.Logger, rec repo.Record, workArea string, outcome analyzer.Outcome) (placement, error) {
	p.printf("Checking results..\n")
	l = l.With("outcome", outcome.String())

	if outcome.Kind != analyzer.KindFindings {
		p.printf("Repo %s did not produce a results file, please check manually\n", rec.URL)
		l.Info("Still unresolved", "exit_code", outcome.ExitCode, "timed_out", outcome.TimedOut, "reason", outcome.Err)
		return p.unresolved(l, rec)
	}

	rec = rec.WithSmells(int(outcome.Rows)).MarkCheckedManually()

	var (
		target ledger.Name
		result placement
	)
	if outcome.Rows > 0 {
		p.printf("Repo %s contains %d detections, moving to approved\n", rec.URL, outcome.Rows)
		if err := relocate(l, workArea, filepath.Join(p.cfg.ApprovedDir(), rec.Name())); err != nil {
			return "", err
		}
		target, result = ledger.Approved, placedApproved
	} else {
		p.printf("Repo %s did not contain any code smells, removing\n", rec.URL)
		if err := discard(workArea); err != nil {
			return "", err
		}
		target, result = ledger.Denied, placedDenied
	}

	if err := p.store.Append(target, rec); err != nil {
		return "", err
	}
	if _, err := p.store.Remove(ledger.ManualReview, rec.Name()); err != nil {
		return "", err
	}
	if p.cfg.Pipeline.TrackUnresolved {
		if _, err := p.store.Remove(ledger.SecondPass, rec.Name()); err != nil {
			return "", err
		}
	}

	l.Info("Resolved from manual review", "ledger", target)

	return result, nil
}

// unresolved leaves rec in manual review, optionally recording it for a further review cycle.
func (p *Pipeline) unresolved(l hclog.Logger, rec repo.Record) (placement, error) {
	if !p.cfg.Pipeline.TrackUnresolved {
		return placedUnresolved, nil
	}

	ok, err := p.store.Contains(ledger.SecondPass, rec.Name())
	if err != nil {
		return "", err
	}
	if !ok {
		if err := p.store.Append(ledger.SecondPass, rec); err != nil {
			return "", err
		}
		l.Info("Recorded for second pass")
	}

	return placedUnresolved, nil
}
