package flags

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
)

const (
	// Env vars
	EnvVarConfigFile = "TRIAGE_CONFIG_FILE"
	EnvVarLogPath    = "TRIAGE_LOG_PATH"
	EnvVarLogLevel   = "TRIAGE_LOG_LEVEL"

	// Defaults
	DefaultConfigFile = ".triage.toml"
	DefaultLogPath    = ""
	DefaultLogLevel   = "info"

	// Flag names
	FlagNameConfigFile = "config-file"
	FlagNameLogPath    = "log-path"
	FlagNameLogLevel   = "log-level"
)

var (
	ConfigFile string
	LogPath    string
	LogLevel   string
)

// InitFlags registers the global flags on fs, seeding their defaults from the environment.
func InitFlags(fs *pflag.FlagSet) {
	initConfigFile(fs)
	initLogger(fs)
}

// UsingDefaultConfigFile reports whether neither the flag nor the environment chose a config file.
func UsingDefaultConfigFile() bool {
	return ConfigFile == DefaultConfigFile
}

func initConfigFile(fs *pflag.FlagSet) {
	if ConfigFile == "" {
		ConfigFile = fromEnv(EnvVarConfigFile, DefaultConfigFile)
	}
	fs.StringVar(&ConfigFile, FlagNameConfigFile, ConfigFile, "path to config file")
}

func initLogger(fs *pflag.FlagSet) {
	if LogPath == "" {
		LogPath = fromEnv(EnvVarLogPath, DefaultLogPath)
	}
	fs.StringVar(&LogPath, FlagNameLogPath, LogPath, "path to generated log file")

	if LogLevel == "" {
		LogLevel = strings.ToLower(fromEnv(EnvVarLogLevel, DefaultLogLevel))
	}
	fs.StringVar(&LogLevel, FlagNameLogLevel, LogLevel, "log level for triage logs (trace, debug, info, warn, error, off)")
}

// fromEnv returns the trimmed value of the environment variable, or fallback when it is blank.
func fromEnv(key string, fallback string) string {
	if env := strings.TrimSpace(os.Getenv(key)); env != "" {
		return env
	}
	return fallback
}
