package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mozilla-ai/triage/cmd/ledger"
	"github.com/mozilla-ai/triage/internal/cmd"
	cmdopts "github.com/mozilla-ai/triage/internal/cmd/options"
	"github.com/mozilla-ai/triage/internal/flags"
)

var version = "dev" // Set at build time using -ldflags

// RootCmd should be used to represent the 'triage' command.
type RootCmd struct {
	*cmd.BaseCmd
}

// Execute builds the root command and runs it against the process arguments.
func Execute() error {
	rootCmd, err := NewRootCmd(&RootCmd{BaseCmd: &cmd.BaseCmd{}})
	if err != nil {
		return err
	}

	return rootCmd.Execute()
}

// NewRootCmd creates the root command and registers every sub-command on it.
func NewRootCmd(c *RootCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:           "triage <command> [args]",
		Short:         "'triage' classifies candidate repositories by running a static analyzer over them.",
		Long:          c.longDescription(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	// Global flags
	flags.InitFlags(rootCmd.PersistentFlags())

	fns := []func(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error){
		NewInitCmd,
		NewRunCmd,
		NewServeCmd,
		ledger.NewCmd,
	}

	for _, fn := range fns {
		tempCmd, err := fn(c.BaseCmd, opt...)
		if err != nil {
			return nil, err
		}
		rootCmd.AddCommand(tempCmd)
	}

	return rootCmd, nil
}

func (c *RootCmd) longDescription() string {
	return `The 'triage' CLI takes a list of candidate repositories, acquires each one,
runs an external static analyzer over it, and sorts it into the approved, denied
or manual_check ledger according to the findings. Approved results can then be
archived into a date-keyed snapshot.`
}
