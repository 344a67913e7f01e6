package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mozilla-ai/triage/internal/cmd"
	cmdopts "github.com/mozilla-ai/triage/internal/cmd/options"
	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/flags"
	"github.com/mozilla-ai/triage/internal/ledger"
)

type InitCmd struct {
	*cmd.BaseCmd
	cfgInitializer config.Initializer
	cfgLoader      config.Loader
}

func NewInitCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &InitCmd{
		BaseCmd:        baseCmd,
		cfgInitializer: opts.ConfigInitializer,
		cfgLoader:      opts.ConfigLoader,
	}

	cobraCommand := &cobra.Command{
		Use:   "init",
		Short: "Initializes the current directory as a `triage` project",
		Long:  c.longDescription(),
		RunE:  c.run,
	}

	return cobraCommand, nil
}

func (c *InitCmd) longDescription() string {
	return fmt.Sprintf(
		"Initializes the current directory as a `triage` project, creating a %s configuration file "+
			"and an empty %s ledger under the configured root.\n\n"+
			"Neither file is overwritten if it already exists.\n\n"+
			"The configuration file path can be overridden using the `--%s` flag or the `%s` environment variable",
		flags.DefaultConfigFile,
		ledger.Pending.FileName(),
		flags.FlagNameConfigFile,
		flags.EnvVarConfigFile,
	)
}

func (c *InitCmd) run(cmd *cobra.Command, _ []string) error {
	logger, err := c.Logger()
	if err != nil {
		return err
	}

	var initFilePath string

	// If the config file flag just has the default value, we're expecting to create it in the current working directory.
	if flags.UsingDefaultConfigFile() {
		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"📄 Using default config file: '%s' in the current directory\n", flags.DefaultConfigFile,
		); err != nil {
			return err
		}
		cwd, err := os.Getwd()
		if err != nil {
			logger.Error("Failed to get working directory", "error", err)
			return fmt.Errorf("error getting current directory: %w", err)
		}
		initFilePath = filepath.Join(cwd, flags.DefaultConfigFile)
	} else {
		initFilePath = flags.ConfigFile
	}

	if _, err := fmt.Fprintf(
		cmd.OutOrStdout(),
		"🚀 Initializing triage project at: %s\n", initFilePath,
	); err != nil {
		return err
	}
	if err := c.cfgInitializer.Init(initFilePath); err != nil {
		logger.Error("Project initialization failed", "error", err)
		return fmt.Errorf("error initializing triage project: %w", err)
	}
	if _, err := fmt.Fprintf(
		cmd.OutOrStdout(),
		"✅ Config file created: %s\n", initFilePath,
	); err != nil {
		return err
	}

	cfg, err := c.cfgLoader.Load(initFilePath)
	if err != nil {
		return err
	}

	store, err := c.OpenStore(cfg)
	if err != nil {
		return err
	}

	pendingPath := store.Path(ledger.Pending)
	exists, err := store.Exists(ledger.Pending)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("error initializing triage project: %s already exists", pendingPath)
	}

	if err := store.Put(ledger.Pending, nil); err != nil {
		logger.Error("Failed to create pending ledger", "path", pendingPath, "error", err)
		return fmt.Errorf("error initializing triage project: %w", err)
	}
	if _, err := fmt.Fprintf(
		cmd.OutOrStdout(),
		"✅ Ledger created: %s\n", pendingPath,
	); err != nil {
		return err
	}

	return nil
}
