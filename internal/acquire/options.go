package acquire

import (
	"fmt"
	"slices"
	"strings"
)

// Option defines a functional option for configuring Git.
type Option func(*Options) error

// Options contains optional configuration for Git acquisition.
type Options struct {
	// git is the executable used for cloning.
	git string

	// depth limits clone history, zero clones everything.
	depth int

	// setupFiles are copied into every working area after cloning.
	setupFiles []string
}

// NewOptions returns Options with defaults applied, followed by opts.
func NewOptions(opts ...Option) (Options, error) {
	o := Options{
		git:        "git",
		setupFiles: []string{"codeql.sh"},
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

// WithGit sets the git executable.
func WithGit(git string) Option {
	return func(o *Options) error {
		git = strings.TrimSpace(git)
		if git == "" {
			return fmt.Errorf("git executable cannot be empty")
		}
		o.git = git
		return nil
	}
}

// WithDepth sets the clone depth. Zero means full history.
func WithDepth(depth int) Option {
	return func(o *Options) error {
		if depth < 0 {
			return fmt.Errorf("clone depth cannot be negative, got %d", depth)
		}
		o.depth = depth
		return nil
	}
}

// WithSetupFiles replaces the files copied into each working area.
func WithSetupFiles(paths ...string) Option {
	return func(o *Options) error {
		for _, p := range paths {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("setup file path cannot be empty")
			}
		}
		o.setupFiles = slices.Clone(paths)
		return nil
	}
}
