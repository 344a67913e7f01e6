package ledger

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/triage/internal/cmd"
	cmdopts "github.com/mozilla-ai/triage/internal/cmd/options"
	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/ledger"
)

type mockConfigLoader struct {
	cfg config.Config
	err error
}

func (m *mockConfigLoader) Load(string) (config.Config, error) {
	return m.cfg, m.err
}

// newStoreAndOptions returns a store rooted at a temp dir and the options that point commands at it.
func newStoreAndOptions(t *testing.T) (*ledger.Store, []cmdopts.CmdOption) {
	t.Helper()

	cfg := config.Default()
	cfg.Root = t.TempDir()

	store, err := ledger.NewStore(hclog.NewNullLogger(), cfg.Root)
	require.NoError(t, err)

	return store, []cmdopts.CmdOption{cmdopts.WithConfigLoader(&mockConfigLoader{cfg: cfg})}
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
