package cmd

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/mozilla-ai/triage/internal/acquire"
	"github.com/mozilla-ai/triage/internal/analyzer"
	"github.com/mozilla-ai/triage/internal/archive"
	"github.com/mozilla-ai/triage/internal/cmd"
	cmdopts "github.com/mozilla-ai/triage/internal/cmd/options"
	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/errors"
	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/metrics"
	"github.com/mozilla-ai/triage/internal/pipeline"
)

const (
	flagAnalyze     = "analyze"
	flagManualCheck = "manual-check"
	flagCleanup     = "cleanup"
)

// RunCmd should be used to represent the 'run' command.
type RunCmd struct {
	*cmd.BaseCmd
	Analyze     bool
	ManualCheck bool
	Cleanup     bool
	MetricsFile string
	cfgLoader   config.Loader
	acquirer    acquire.Acquirer
	adapter     analyzer.Adapter
	clock       func() time.Time
}

// NewRunCmd creates a newly configured (Cobra) command.
func NewRunCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &RunCmd{
		BaseCmd:   baseCmd,
		cfgLoader: opts.ConfigLoader,
		acquirer:  opts.Acquirer,
		adapter:   opts.Adapter,
		clock:     opts.Clock,
	}

	cobraCommand := &cobra.Command{
		Use:   "run [--analyze] [--manual-check] [--cleanup]",
		Short: "Runs triage over the ledgers",
		Long:  c.longDescription(),
		RunE:  c.run,
		Args:  cobra.NoArgs,
	}

	cobraCommand.Flags().BoolVarP(
		&c.Analyze,
		flagAnalyze,
		"a",
		false,
		"Triage every repository in the pending ledger",
	)
	cobraCommand.Flags().BoolVarP(
		&c.ManualCheck,
		flagManualCheck,
		"m",
		false,
		"Re-analyze every repository held for manual review",
	)
	cobraCommand.Flags().BoolVarP(
		&c.Cleanup,
		flagCleanup,
		"c",
		false,
		"Archive ledgers and approved results into a date-keyed snapshot",
	)
	cobraCommand.Flags().StringVar(
		&c.MetricsFile,
		"metrics-file",
		"",
		"Write Prometheus text metrics for the run to this file",
	)

	cobraCommand.MarkFlagsOneRequired(flagAnalyze, flagManualCheck, flagCleanup)

	return cobraCommand, nil
}

func (c *RunCmd) longDescription() string {
	return fmt.Sprintf(
		"Runs one or more triage modes, always in the order analyze, manual check, cleanup.\n\n"+
			"--%s requires the %s ledger to exist. "+
			"--%s archives as a fresh batch when combined with --%s, otherwise it merges the manual-review results.\n\n"+
			"An interrupt stops the run once the repositories in flight are placed.",
		flagAnalyze,
		ledger.Pending.FileName(),
		flagCleanup,
		flagAnalyze,
	)
}

// run is configured (via NewRunCmd) to be called by the Cobra framework when the command is executed.
func (c *RunCmd) run(cmd *cobra.Command, _ []string) error {
	logger, err := c.Logger()
	if err != nil {
		return err
	}

	loader := c.cfgLoader
	if c.acquirer == nil || c.adapter == nil {
		loader = config.NewValidatingLoader(loader, config.RequireExecutables)
	}

	cfg, err := c.LoadConfig(loader)
	if err != nil {
		return err
	}

	store, err := c.OpenStore(cfg)
	if err != nil {
		return err
	}

	if c.Analyze {
		ok, err := store.Exists(ledger.Pending)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf(
				"%w: '%s' is required to analyze, create it with 'triage init' or 'triage ledger add'",
				errors.ErrMissingLedger,
				store.Path(ledger.Pending),
			)
		}
	}

	acquirer, adapter, err := c.collaborators(logger, cfg)
	if err != nil {
		return err
	}

	recorder, err := metrics.NewRecorder()
	if err != nil {
		return err
	}

	archiver, err := archive.NewArchiver(logger, cfg, store)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p, err := pipeline.New(
		logger,
		cfg,
		store,
		acquirer,
		adapter,
		pipeline.WithOutput(out),
		pipeline.WithMetrics(recorder),
		pipeline.WithMerger(archiver),
		pipeline.WithClock(c.clock),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	// Create the signal handling context for the run.
	runCtx, runCtxCancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer runCtxCancel()

	runErr := c.runModes(runCtx, out, p, archiver)

	if c.MetricsFile != "" {
		if err := recorder.WriteToTextfile(c.MetricsFile); err != nil {
			logger.Error("Failed to write metrics", "path", c.MetricsFile, "error", err)
			runErr = stdErrors.Join(runErr, err)
		}
	}

	return runErr
}

// runModes runs the selected modes in order, stopping at the first failure.
func (c *RunCmd) runModes(ctx context.Context, out io.Writer, p *pipeline.Pipeline, archiver *archive.Archiver) error {
	if c.Analyze {
		summary, err := p.RunFresh(ctx)
		if err := printSummary(out, summary); err != nil {
			return err
		}
		if err != nil {
			return cancelled(err)
		}
	}

	if c.ManualCheck {
		summary, err := p.RunManual(ctx)
		if err := printSummary(out, summary); err != nil {
			return err
		}
		if err != nil {
			return cancelled(err)
		}
	}

	if c.Cleanup {
		mode := archive.ModeManual
		if c.Analyze {
			mode = archive.ModeFresh
		}

		h, err := archiver.Archive(archive.DateKey(c.clock()), mode)
		if _, werr := fmt.Fprintf(
			out,
			"🗄️ Archive %s: %d ledgers, %d artifacts, %d merged\n",
			h.Dir,
			len(h.Ledgers),
			len(h.Artifacts),
			h.Merged,
		); werr != nil {
			return werr
		}
		if err != nil {
			return fmt.Errorf("cleanup incomplete: %w", err)
		}
	}

	return nil
}

func printSummary(w io.Writer, s pipeline.Summary) error {
	_, err := fmt.Fprintf(w, "📋 %s\n", s.String())
	return err
}

// cancelled gives an interrupted run a readable error.
func cancelled(err error) error {
	if stdErrors.Is(err, context.Canceled) {
		return fmt.Errorf("run interrupted, remaining repositories were left for the next run: %w", err)
	}
	return err
}

// collaborators returns the injected acquirer and adapter, building any that are absent from cfg.
func (c *RunCmd) collaborators(logger hclog.Logger, cfg config.Config) (acquire.Acquirer, analyzer.Adapter, error) {
	acquirer := c.acquirer
	if acquirer == nil {
		git, err := acquire.NewGit(
			logger,
			acquire.WithGit(cfg.Acquire.Git),
			acquire.WithDepth(cfg.Acquire.Depth),
			acquire.WithSetupFiles(cfg.Acquire.SetupFiles...),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to configure acquisition: %w", err)
		}
		acquirer = git
	}

	adapter := c.adapter
	if adapter == nil {
		command, err := analyzer.NewCommand(
			logger,
			analyzer.WithCommand(strings.TrimSpace(cfg.Analyzer.Command), cfg.AnalyzerArgs()...),
			analyzer.WithArtifact(cfg.Analyzer.Artifact),
			analyzer.WithTimeout(cfg.Analyzer.Timeout.Std()),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to configure analyzer: %w", err)
		}
		adapter = command
	}

	return acquirer, adapter, nil
}
