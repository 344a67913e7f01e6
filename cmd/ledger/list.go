package ledger

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	internalcmd "github.com/mozilla-ai/triage/internal/cmd"
	cmdopts "github.com/mozilla-ai/triage/internal/cmd/options"
	"github.com/mozilla-ai/triage/internal/cmd/output"
	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/errors"
	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/repo"
)

type ListCmd struct {
	*internalcmd.BaseCmd
	cfgLoader     config.Loader
	Format        internalcmd.OutputFormat
	recordPrinter output.Printer[repo.Record]
}

func NewListCmd(baseCmd *internalcmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ListCmd{
		BaseCmd:       baseCmd,
		cfgLoader:     opts.ConfigLoader,
		Format:        internalcmd.FormatText, // Default to plain text
		recordPrinter: opts.RecordPrinter,
	}

	cobraCmd := &cobra.Command{
		Use:   "list <ledger>",
		Short: "Lists the records of a ledger",
		Long: fmt.Sprintf(
			"Lists the records of a ledger without modifying it (ledger is one of: %s)",
			ledgerNames(),
		),
		RunE: c.run,
		Args: cobra.ExactArgs(1),
	}

	allowed := internalcmd.AllowedOutputFormats()
	cobraCmd.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowed.String()),
	)

	return cobraCmd, nil
}

func (c *ListCmd) run(cmd *cobra.Command, args []string) error {
	handler, err := internalcmd.NewHandler(c.Format, cmd.OutOrStdout(), c.recordPrinter)
	if err != nil {
		return err
	}

	n, err := ledger.ParseName(args[0])
	if err != nil {
		return handler.HandleError(err)
	}

	cfg, err := c.LoadConfig(c.cfgLoader)
	if err != nil {
		return handler.HandleError(err)
	}

	store, err := c.OpenStore(cfg)
	if err != nil {
		return handler.HandleError(err)
	}

	records, ok, err := store.Peek(n)
	if err != nil {
		return handler.HandleError(err)
	}
	if !ok {
		return handler.HandleError(fmt.Errorf("%w: '%s' does not exist", errors.ErrMissingLedger, store.Path(n)))
	}

	if th, ok := handler.(*output.TextHandler[repo.Record]); ok {
		th.WithEmptyMessage(fmt.Sprintf("No records in '%s'\n", n))
	}
	c.recordPrinter.SetHeader(func(w io.Writer, count int) {
		_, _ = fmt.Fprintf(w, "Records in '%s' (%d total):\n", n, count)
	})

	return handler.HandleResults(records...)
}

func ledgerNames() string {
	names := make([]string, 0, len(ledger.Names()))
	for _, n := range ledger.Names() {
		names = append(names, n.String())
	}
	return strings.Join(names, ", ")
}
