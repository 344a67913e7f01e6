package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// ValidationPredicate evaluates a loaded Config and returns an error if invalid.
type ValidationPredicate func(Config) error

// validatingLoader wraps a Loader to run additional validation predicates at load time.
// Uses decorator pattern to preserve custom loader implementations while adding validation.
type validatingLoader struct {
	Loader
	predicates []ValidationPredicate
}

// NewValidatingLoader creates a loader that runs validation predicates after Load().
func NewValidatingLoader(inner Loader, predicates ...ValidationPredicate) *validatingLoader {
	return &validatingLoader{
		Loader:     inner,
		predicates: predicates,
	}
}

// Load delegates to inner loader, then runs validation predicates.
func (l *validatingLoader) Load(path string) (Config, error) {
	cfg, err := l.Loader.Load(path)
	if err != nil {
		return Config{}, err
	}

	for _, predicate := range l.predicates {
		if predicate == nil {
			continue
		}
		if err := predicate(cfg); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// RequireExecutables is a ValidationPredicate that checks the analyzer and git executables can be found.
// It is used by commands that run triage, but not by commands that only read ledgers.
func RequireExecutables(cfg Config) error {
	executables := []struct {
		key string
		bin string
	}{
		{"analyzer.command", cfg.Analyzer.Command},
		{"acquire.git", cfg.Acquire.Git},
	}

	for _, e := range executables {
		if _, err := exec.LookPath(e.bin); err != nil {
			return fmt.Errorf("%w: executable for '%s' not found: %w", ErrInvalidValue, e.key, err)
		}
	}

	return nil
}

// defaultingLoader wraps a Loader so that a missing configuration file yields Default.
type defaultingLoader struct {
	Loader
}

// NewDefaultingLoader creates a loader that falls back to Default when the file does not exist.
// Any other load failure, including an invalid file, is still returned.
func NewDefaultingLoader(inner Loader) *defaultingLoader {
	return &defaultingLoader{Loader: inner}
}

// Load delegates to inner loader, returning Default if the file cannot be found.
func (l *defaultingLoader) Load(path string) (Config, error) {
	cfg, err := l.Loader.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}
