package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/triage/internal/analyzer"
	"github.com/mozilla-ai/triage/internal/errors"
	"github.com/mozilla-ai/triage/internal/files"
	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/perms"
	"github.com/mozilla-ai/triage/internal/repo"
)

// RunFresh triages every record of the pending ledger.
// The pending ledger is read once and never rewritten. Records already placed in a bucket are skipped,
// so an interrupted run can simply be started again.
// When ctx is cancelled the pass stops at the next record boundary and ctx.Err() is returned.
func (p *Pipeline) RunFresh(ctx context.Context) (Summary, error) {
	l := p.runLogger(ModeFresh)
	t := &tally{summary: Summary{Mode: ModeFresh}}

	pending, ok, err := p.store.Peek(ledger.Pending)
	if err != nil {
		return t.result(), err
	}
	if !ok {
		return t.result(), fmt.Errorf("%w: '%s' is required for fresh triage", errors.ErrMissingLedger, ledger.Pending.FileName())
	}

	placed, err := p.placedNames(ledger.Buckets()...)
	if err != nil {
		return t.result(), err
	}

	t.summary.Total = len(pending)
	records := p.dedupe(l, ModeFresh, pending, t)
	todo := make([]repo.Record, 0, len(records))
	for _, r := range records {
		if b, ok := placed[r.Name()]; ok {
			l.Info("Skipping already triaged repository", "repo", r.Name(), "ledger", b)
			t.add(placedSkipped)
			p.metrics.RecordPlacement(string(ModeFresh), string(placedSkipped))
			continue
		}
		todo = append(todo, r)
	}

	for _, dir := range []string{p.cfg.ApprovedDir(), p.cfg.ManualDir()} {
		if err := files.EnsureAtLeastRegularDir(dir); err != nil {
			return t.result(), err
		}
	}
	if err := files.EnsureAtLeastWorkDir(p.cfg.WorkDir()); err != nil {
		return t.result(), err
	}

	l.Info("Starting fresh triage", "pending", len(pending), "queued", len(todo), "workers", p.cfg.Workers)

	if err := p.process(ctx, l, ModeFresh, todo, t, p.triageFresh); err != nil {
		return t.result(), err
	}

	summary := t.result()
	l.Info("Fresh triage finished", "summary", summary.String())

	return summary, ctx.Err()
}

// triageFresh acquires, analyzes and places a single pending record.
// Cancellation is only observed before acquisition starts; a record in flight runs to its placement.
func (p *Pipeline) triageFresh(ctx context.Context, l hclog.Logger, rec repo.Record) (placement, error) {
	if ctx.Err() != nil {
		return placedCancelled, nil
	}

	workArea := filepath.Join(p.cfg.WorkDir(), rec.Name())
	if err := discard(workArea); err != nil {
		return "", err
	}

	p.printf("Retrieving repo %s\n", rec.URL)
	outcome, err := p.acquireAndAnalyze(context.WithoutCancel(ctx), l, rec, workArea)
	if err != nil {
		return "", err
	}

	return p.placeFresh(l, rec, workArea, outcome)
}

// acquireAndAnalyze obtains the working area and runs the analyzer against it.
// Acquisition is bounded by the analyzer timeout, the analyzer bounds itself.
// An acquisition failure is reported as a NoArtifact outcome with an empty working area.
func (p *Pipeline) acquireAndAnalyze(
	ctx context.Context,
	l hclog.Logger,
	rec repo.Record,
	workArea string,
) (analyzer.Outcome, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.cfg.Analyzer.Timeout.Std())
	defer cancel()

	if err := p.acquirer.Acquire(acquireCtx, rec, workArea); err != nil {
		l.Warn("Acquisition failed, routing to manual review", "error", err)
		p.metrics.RecordAcquisitionFailure()
		if err := os.MkdirAll(workArea, perms.RegularDir); err != nil {
			return analyzer.Outcome{}, fmt.Errorf("failed to create working area '%s': %w", workArea, err)
		}

		outcome := analyzer.NoArtifact()
		outcome.Err = err
		return outcome, nil
	}

	p.printf("Analyzing for code smells..\n")
	started := time.Now()
	outcome, err := p.adapter.Invoke(ctx, workArea)
	if err != nil {
		return analyzer.Outcome{}, fmt.Errorf("analyzer invocation failed: %w", err)
	}
	p.metrics.RecordAnalysis(string(ModeFresh), time.Since(started))

	return outcome, nil
}

// placeFresh relocates the working area and appends the record to the ledger matching outcome.
func (p *Pipeline) placeFresh(l hclog.Logger, rec repo.Record, workArea string, outcome analyzer.Outcome) (placement, error) {
	p.printf("Checking results..\n")
	l = l.With("outcome", outcome.String())

	switch {
	case outcome.Kind == analyzer.KindFindings && outcome.Rows > 0:
		p.printf("Repo %s contains %d detections, moving to approved\n", rec.URL, outcome.Rows)
		if err := relocate(l, workArea, filepath.Join(p.cfg.ApprovedDir(), rec.Name())); err != nil {
			return "", err
		}
		if err := p.store.Append(ledger.Approved, rec.WithSmells(int(outcome.Rows))); err != nil {
			return "", err
		}
		l.Info("Approved")
		return placedApproved, nil

	case outcome.Kind == analyzer.KindFindings:
		p.printf("Repo %s did not contain any code smells, removing\n", rec.URL)
		if err := discard(workArea); err != nil {
			return "", err
		}
		if err := p.store.Append(ledger.Denied, rec.WithSmells(0)); err != nil {
			return "", err
		}
		l.Info("Denied")
		return placedDenied, nil

	default:
		p.printf("Repo %s did not produce a results file, please check manually\n", rec.URL)
		if err := relocate(l, workArea, filepath.Join(p.cfg.ManualDir(), rec.Name())); err != nil {
			return "", err
		}
		if err := p.store.Append(ledger.ManualReview, rec); err != nil {
			return "", err
		}
		l.Info("Held for manual review", "exit_code", outcome.ExitCode, "timed_out", outcome.TimedOut, "reason", outcome.Err)
		return placedManual, nil
	}
}
