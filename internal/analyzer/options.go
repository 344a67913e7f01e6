package analyzer

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Option defines a functional option for configuring Command.
type Option func(*Options) error

// Options contains optional configuration for the analyzer command.
type Options struct {
	// command is the executable to run.
	command string

	// args are passed before the working area path.
	args []string

	// artifact is the file name of the result artifact inside the working area.
	artifact string

	// timeout bounds a single invocation.
	timeout time.Duration

	// waitDelay bounds how long output pipes are drained after the process is killed.
	waitDelay time.Duration
}

// NewOptions returns Options with defaults applied, followed by opts.
func NewOptions(opts ...Option) (Options, error) {
	o := Options{
		command:   "bash",
		args:      []string{"run-codeql.sh"},
		artifact:  "res.csv",
		timeout:   30 * time.Minute,
		waitDelay: 5 * time.Second,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&o); err != nil {
			return Options{}, err
		}
	}

	return o, nil
}

// WithCommand sets the executable and the arguments that precede the working area path.
func WithCommand(command string, args ...string) Option {
	return func(o *Options) error {
		command = strings.TrimSpace(command)
		if command == "" {
			return fmt.Errorf("analyzer command cannot be empty")
		}
		o.command = command
		o.args = slices.Clone(args)
		return nil
	}
}

// WithArtifact sets the result artifact file name.
func WithArtifact(name string) Option {
	return func(o *Options) error {
		name = strings.TrimSpace(name)
		if name == "" || filepath.Base(name) != name {
			return fmt.Errorf("artifact must be a plain file name, got '%s'", name)
		}
		o.artifact = name
		return nil
	}
}

// WithTimeout sets the time bound for a single invocation.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", timeout)
		}
		o.timeout = timeout
		return nil
	}
}

// WithWaitDelay sets how long to wait for output to drain after the process is killed.
func WithWaitDelay(d time.Duration) Option {
	return func(o *Options) error {
		if d < 0 {
			return fmt.Errorf("wait delay cannot be negative, got %v", d)
		}
		o.waitDelay = d
		return nil
	}
}
