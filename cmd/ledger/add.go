package ledger

import (
	"fmt"

	"github.com/spf13/cobra"

	internalcmd "github.com/mozilla-ai/triage/internal/cmd"
	cmdopts "github.com/mozilla-ai/triage/internal/cmd/options"
	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/repo"
)

type AddCmd struct {
	*internalcmd.BaseCmd
	cfgLoader config.Loader
}

func NewAddCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &AddCmd{
		BaseCmd:   baseCmd,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCmd := &cobra.Command{
		Use:   "add <url>...",
		Short: "Adds repositories to the pending ledger",
		Long: "Adds repositories to the pending ledger, creating it if needed. " +
			"Every URL must end in '<owner>/<name>'. Repositories already pending are skipped.",
		RunE: c.run,
		Args: cobra.MinimumNArgs(1),
	}

	return cobraCmd, nil
}

func (c *AddCmd) run(cmd *cobra.Command, args []string) error {
	logger, err := c.Logger()
	if err != nil {
		return err
	}

	// Validate every URL before touching the ledger.
	candidates := make([]repo.Record, 0, len(args))
	for _, arg := range args {
		r, err := repo.New(arg)
		if err != nil {
			return err
		}
		candidates = append(candidates, r)
	}

	cfg, err := c.LoadConfig(c.cfgLoader)
	if err != nil {
		return err
	}

	store, err := c.OpenStore(cfg)
	if err != nil {
		return err
	}

	var added, skipped []string
	err = store.Update(ledger.Pending, func(current []repo.Record) ([]repo.Record, error) {
		seen := make(map[string]struct{}, len(current)+len(candidates))
		for _, r := range current {
			seen[r.Name()] = struct{}{}
		}

		for _, r := range candidates {
			if _, ok := seen[r.Name()]; ok {
				skipped = append(skipped, r.URL)
				continue
			}
			seen[r.Name()] = struct{}{}
			added = append(added, r.URL)
			current = append(current, r)
		}

		return current, nil
	})
	if err != nil {
		logger.Error("Failed to update pending ledger", "error", err)
		return err
	}

	logger.Info("Added to pending ledger", "added", added, "skipped", skipped)

	for _, u := range skipped {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "⏭️ Already pending: %s\n", u); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(
		cmd.OutOrStdout(),
		"✅ Added %d repositories to %s\n", len(added), store.Path(ledger.Pending),
	)
	return err
}
