package config

import (
	stdErrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/mozilla-ai/triage/internal/perms"
)

// DefaultAnalyzerTimeout bounds a single analyzer invocation when no timeout is configured.
const DefaultAnalyzerTimeout = 30 * time.Minute

// skeleton is written by Init. It mirrors Default.
const skeleton = `# Directory holding ledgers, storage roots, working areas and archives.
root = "."

# Number of repositories acquired and analyzed concurrently.
workers = 1

[analyzer]
command = "bash"
args = ["run-codeql.sh"]
artifact = "res.csv"
timeout = "30m"

[acquire]
git = "git"
depth = 0
setup_files = ["codeql.sh"]

[archive]
artifact_dir = "codeql"

[pipeline]
track_unresolved = false
`

// Init creates the base skeleton configuration file for a triage project.
func (d *DefaultLoader) Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(skeleton), perms.RegularFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// Load decodes the configuration file at path on top of Default and validates the result.
// A missing file is reported with an error wrapping fs.ErrNotExist.
func (d *DefaultLoader) Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Config{}, fmt.Errorf("%w: path cannot be empty", ErrConfigLoadFailed)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: config file '%s' cannot be found, run: 'triage init': %w",
				ErrConfigLoadFailed, path, fs.ErrNotExist)
		}
		return Config{}, fmt.Errorf("%w: failed to stat config file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%w: failed to decode config from file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%w: unknown keys in config file (%s): %s",
			ErrConfigLoadFailed, path, strings.Join(keys, ", "))
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%w: failed to validate config (%s): %w", ErrConfigLoadFailed, path, err)
	}

	cfg.configFilePath = path

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	return c.validate()
}

// validate runs struct tag validation, then checks the artifact is a plain file name.
func (c Config) validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !stdErrors.As(err, &fieldErrs) {
			return err
		}

		errs := make([]error, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			errs = append(errs, NewErrInvalidValue(fieldKey(fe), fmt.Sprint(fe.Value())))
		}
		return stdErrors.Join(errs...)
	}

	a := c.Analyzer.Artifact
	if filepath.Base(a) != a || a == "." || a == ".." {
		return NewErrInvalidValue("analyzer.artifact", c.Analyzer.Artifact)
	}

	return nil
}

// fieldKey converts a validator namespace such as 'Config.Analyzer.Timeout' into the TOML key 'analyzer.timeout'.
func fieldKey(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}

	keys := map[string]string{
		"Root":                "root",
		"Workers":             "workers",
		"Analyzer.Command":    "analyzer.command",
		"Analyzer.Artifact":   "analyzer.artifact",
		"Analyzer.Timeout":    "analyzer.timeout",
		"Acquire.Git":         "acquire.git",
		"Acquire.Depth":       "acquire.depth",
		"Archive.ArtifactDir": "archive.artifact_dir",
	}
	if k, ok := keys[ns]; ok {
		return k
	}
	if strings.HasPrefix(ns, "Acquire.SetupFiles") {
		return "acquire.setup_files"
	}

	return strings.ToLower(ns)
}
