package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/triage/internal/flags"
)

// TestNewRootCmd is not parallel: registering the global flags seeds package-level state.
func TestNewRootCmd(t *testing.T) {
	prevConfig, prevPath, prevLevel := flags.ConfigFile, flags.LogPath, flags.LogLevel
	t.Cleanup(func() {
		flags.ConfigFile, flags.LogPath, flags.LogLevel = prevConfig, prevPath, prevLevel
	})

	root, err := NewRootCmd(&RootCmd{BaseCmd: baseCmd()})
	require.NoError(t, err)

	for _, name := range []string{"init", "run", "serve", "ledger"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, sub.Name())
	}

	for _, name := range []string{flags.FlagNameConfigFile, flags.FlagNameLogPath, flags.FlagNameLogLevel} {
		require.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}

	list, _, err := root.Find([]string{"ledger", "list"})
	require.NoError(t, err)
	require.Equal(t, "list", list.Name())
}
