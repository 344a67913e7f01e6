package cmd

import (
	"context"
	stdErrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/triage/internal/cmd"
	cmdopts "github.com/mozilla-ai/triage/internal/cmd/options"
	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/server"
)

// ServeCmd should be used to represent the 'serve' command.
type ServeCmd struct {
	*cmd.BaseCmd
	Addr        string
	CORSOrigins []string
	cfgLoader   config.Loader
}

// NewServeCmd creates a newly configured (Cobra) command.
func NewServeCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ServeCmd{
		BaseCmd:   baseCmd,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCommand := &cobra.Command{
		Use:   "serve [--addr] [--cors-origin]",
		Short: "Serves a read-only HTTP status API over the ledgers",
		Long: "Serves a read-only HTTP status API over the ledgers under /api/v1, " +
			"with ledger sizes as Prometheus metrics under /metrics",
		RunE: c.run,
		Args: cobra.NoArgs,
	}

	cobraCommand.Flags().StringVar(
		&c.Addr,
		"addr",
		"localhost:8091",
		"Address for the status API to bind",
	)

	cobraCommand.Flags().StringArrayVar(
		&c.CORSOrigins,
		"cors-origin",
		nil,
		"Allow cross-origin requests from this origin (can be repeated, '*' allows any)",
	)

	return cobraCommand, nil
}

func (c *ServeCmd) run(cmd *cobra.Command, _ []string) error {
	logger, err := c.Logger()
	if err != nil {
		return err
	}

	addr := strings.TrimSpace(c.Addr)
	if err := server.IsValidAddr(addr); err != nil {
		return err
	}

	cfg, err := c.LoadConfig(c.cfgLoader)
	if err != nil {
		return err
	}

	store, err := c.OpenStore(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(logger, store, addr, server.WithCORSAllowOrigins(c.CORSOrigins...))
	if err != nil {
		return fmt.Errorf("failed to create status server: %w", err)
	}

	// Create the signal handling context for the server.
	serveCtx, serveCtxCancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer serveCtxCancel()

	if _, err := fmt.Fprintf(
		cmd.OutOrStdout(),
		"🚀 Serving ledgers from %s on http://%s/api/v1/ledgers\n", store.Dir(), addr,
	); err != nil {
		return err
	}

	if err := srv.Start(serveCtx); err != nil && !stdErrors.Is(err, context.Canceled) {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), "✅ Status server stopped")
	return err
}
