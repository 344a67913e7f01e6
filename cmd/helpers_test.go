package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/triage/internal/analyzer"
	"github.com/mozilla-ai/triage/internal/cmd"
	cmdopts "github.com/mozilla-ai/triage/internal/cmd/options"
	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/repo"
)

// testNow renders the archive key 14102026.
var testNow = time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)

type fakeLoader struct {
	cfg config.Config
	err error
}

func (f *fakeLoader) Load(string) (config.Config, error) {
	return f.cfg, f.err
}

// fakeAcquirer creates the destination with a marker file instead of cloning.
type fakeAcquirer struct{}

func (fakeAcquirer) Acquire(_ context.Context, record repo.Record, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dest, "SOURCE"), []byte(record.URL), 0o644)
}

// fakeAdapter reports the configured outcome for the repository named by the working area.
// A findings outcome leaves a res.csv with that many rows behind.
type fakeAdapter struct {
	outcomes map[string]analyzer.Outcome
}

func (f *fakeAdapter) Invoke(ctx context.Context, workDir string) (analyzer.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return analyzer.Outcome{}, err
	}

	outcome, ok := f.outcomes[filepath.Base(workDir)]
	if !ok {
		return analyzer.NoArtifact(), nil
	}

	if outcome.Kind == analyzer.KindFindings {
		rows := strings.Repeat("finding\n", int(outcome.Rows))
		if err := os.WriteFile(filepath.Join(workDir, "res.csv"), []byte(rows), 0o644); err != nil {
			return analyzer.Outcome{}, err
		}
	}

	return outcome, nil
}

// testEnv is a triage root under a temp dir together with the options that point commands at it.
type testEnv struct {
	root  string
	cfg   config.Config
	store *ledger.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default()
	cfg.Root = root

	store, err := ledger.NewStore(hclog.NewNullLogger(), root)
	require.NoError(t, err)

	return &testEnv{root: root, cfg: cfg, store: store}
}

func (e *testEnv) options(adapter *fakeAdapter) []cmdopts.CmdOption {
	return []cmdopts.CmdOption{
		cmdopts.WithConfigLoader(&fakeLoader{cfg: e.cfg}),
		cmdopts.WithAcquirer(fakeAcquirer{}),
		cmdopts.WithAdapter(adapter),
		cmdopts.WithClock(func() time.Time { return testNow }),
	}
}

func (e *testEnv) pending(t *testing.T, urls ...string) {
	t.Helper()

	records := make([]repo.Record, 0, len(urls))
	for _, u := range urls {
		r, err := repo.New(u)
		require.NoError(t, err)
		records = append(records, r)
	}
	require.NoError(t, e.store.Put(ledger.Pending, records))
}

func (e *testEnv) names(t *testing.T, n ledger.Name) []string {
	t.Helper()

	records, ok, err := e.store.Peek(n)
	require.NoError(t, err)
	require.True(t, ok, "ledger %s should exist", n)

	return repo.Names(records)
}

func baseCmd() *cmd.BaseCmd {
	c := &cmd.BaseCmd{}
	c.SetLogger(hclog.NewNullLogger())
	return c
}

func execute(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	c.SetOut(buf)
	c.SetErr(buf)
	c.SetArgs(args)

	err := c.Execute()
	return buf.String(), err
}

func findings(n uint) analyzer.Outcome {
	return analyzer.Findings(n)
}

func urlFor(name string) string {
	return fmt.Sprintf("https://github.com/acme/%s", name)
}
