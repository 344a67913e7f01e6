package ledger

import (
	"github.com/spf13/cobra"

	"github.com/mozilla-ai/triage/internal/cmd"
	"github.com/mozilla-ai/triage/internal/cmd/options"
)

type Cmd struct {
	*cmd.BaseCmd
}

func NewCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	cobraCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspects and edits the triage ledgers",
		Long: "Inspects and edits the triage ledgers, " +
			"dealing with listing any ledger and adding candidates to the pending ledger",
	}

	// Sub-commands for: triage ledger
	fns := []func(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error){
		NewListCmd, // list
		NewAddCmd,  // add
	}

	for _, fn := range fns {
		tempCmd, err := fn(baseCmd, opt...)
		if err != nil {
			return nil, err
		}
		cobraCmd.AddCommand(tempCmd)
	}

	return cobraCmd, nil
}
