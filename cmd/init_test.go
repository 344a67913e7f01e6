package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	cmdopts "github.com/mozilla-ai/triage/internal/cmd/options"
	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/flags"
	"github.com/mozilla-ai/triage/internal/ledger"
)

// setConfigFile points the global config file flag at path for the duration of the test.
// Tests using it must not be parallel.
func setConfigFile(t *testing.T, path string) {
	t.Helper()

	prev := flags.ConfigFile
	flags.ConfigFile = path
	t.Cleanup(func() {
		flags.ConfigFile = prev
	})
}

func TestInitCmd(t *testing.T) {
	env := newTestEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "triage.toml")
	setConfigFile(t, cfgPath)

	c, err := NewInitCmd(
		baseCmd(),
		cmdopts.WithConfigInitializer(&config.DefaultLoader{}),
		cmdopts.WithConfigLoader(&fakeLoader{cfg: env.cfg}),
	)
	require.NoError(t, err)

	out, err := execute(t, c)
	require.NoError(t, err)
	require.Contains(t, out, "🚀 Initializing triage project at: "+cfgPath+"\n")
	require.Contains(t, out, "✅ Config file created: "+cfgPath+"\n")
	require.Contains(t, out, "✅ Ledger created: "+env.store.Path(ledger.Pending)+"\n")

	require.FileExists(t, cfgPath)
	records, ok, err := env.store.Peek(ledger.Pending)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, records)

	// A second init refuses to overwrite the config file.
	again, err := NewInitCmd(
		baseCmd(),
		cmdopts.WithConfigInitializer(&config.DefaultLoader{}),
		cmdopts.WithConfigLoader(&fakeLoader{cfg: env.cfg}),
	)
	require.NoError(t, err)
	_, err = execute(t, again)
	require.ErrorContains(t, err, "already exists")
}

func TestInitCmd_RefusesToOverwritePending(t *testing.T) {
	env := newTestEnv(t)
	env.pending(t, urlFor("foo"))
	cfgPath := filepath.Join(t.TempDir(), "triage.toml")
	setConfigFile(t, cfgPath)

	c, err := NewInitCmd(
		baseCmd(),
		cmdopts.WithConfigInitializer(&config.DefaultLoader{}),
		cmdopts.WithConfigLoader(&fakeLoader{cfg: env.cfg}),
	)
	require.NoError(t, err)

	_, err = execute(t, c)
	require.ErrorContains(t, err, "already exists")

	data, err := os.ReadFile(env.store.Path(ledger.Pending))
	require.NoError(t, err)
	require.Contains(t, string(data), urlFor("foo"))
}
