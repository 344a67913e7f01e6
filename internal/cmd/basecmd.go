package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/flags"
	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/perms"
)

type BaseCmd struct {
	logger hclog.Logger
}

// SetLogger updates the command's logger
func (c *BaseCmd) SetLogger(logger hclog.Logger) {
	c.logger = logger
}

// Logger returns the current logger for the command.
// Unless one was set, it is built from the log flags: output goes to the log file when one is configured
// and is discarded otherwise.
func (c *BaseCmd) Logger() (hclog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}

	logLevel := strings.ToLower(strings.TrimSpace(flags.LogLevel))
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "off":
	case "":
		logLevel = flags.DefaultLogLevel
	default:
		return nil, fmt.Errorf("invalid log level '%s'", flags.LogLevel)
	}

	var output io.Writer = io.Discard
	if logPath := strings.TrimSpace(flags.LogPath); logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, perms.RegularFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file (%s): %w", logPath, err)
		}
		output = f
	}

	c.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "triage",
		Level:  hclog.LevelFromString(logLevel),
		Output: output,
	})

	return c.logger, nil
}

// LoadConfig loads the configuration named by the config file flag.
// A missing file is only tolerated when the default path is in use, in which case defaults apply.
func (c *BaseCmd) LoadConfig(loader config.Loader) (config.Config, error) {
	if flags.UsingDefaultConfigFile() {
		loader = config.NewDefaultingLoader(loader)
	}

	cfg, err := loader.Load(flags.ConfigFile)
	if err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}

// OpenStore opens the working ledger store for cfg.
func (c *BaseCmd) OpenStore(cfg config.Config) (*ledger.Store, error) {
	logger, err := c.Logger()
	if err != nil {
		return nil, err
	}

	return ledger.NewStore(logger, cfg.LedgerDir())
}
