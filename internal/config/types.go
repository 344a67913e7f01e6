package config

import (
	"path/filepath"
	"slices"
)

var _ Provider = (*DefaultLoader)(nil)

type Loader interface {
	Load(path string) (Config, error)
}

type Initializer interface {
	Init(path string) error
}

type Provider interface {
	Initializer
	Loader
}

type DefaultLoader struct{}

// Config represents the .triage.toml file structure.
// It is constructed once at startup and passed by value, so components never observe changes.
type Config struct {
	// Root is the directory holding the ledgers, storage roots, working areas and archives.
	Root string `toml:"root" validate:"required"`

	// Workers is the number of records acquired and analyzed concurrently.
	Workers int `toml:"workers" validate:"min=1,max=64"`

	Analyzer AnalyzerConfig `toml:"analyzer"`
	Acquire  AcquireConfig  `toml:"acquire"`
	Archive  ArchiveConfig  `toml:"archive"`
	Pipeline PipelineConfig `toml:"pipeline"`

	configFilePath string `toml:"-"`
}

// AnalyzerConfig describes how the external static-analysis tool is invoked.
type AnalyzerConfig struct {
	// Command is the executable to run, e.g. 'bash'.
	Command string `toml:"command" validate:"required"`

	// Args are passed before the working area path, e.g. ['run-codeql.sh'].
	Args []string `toml:"args"`

	// Artifact is the file name of the tabular result artifact the tool leaves in the working area.
	Artifact string `toml:"artifact" validate:"required,excludesall=/\\"`

	// Timeout bounds a single invocation. A timed out invocation counts as producing no artifact.
	Timeout Duration `toml:"timeout" validate:"gt=0"`
}

// AcquireConfig describes how working copies are obtained.
type AcquireConfig struct {
	// Git is the git executable.
	Git string `toml:"git" validate:"required"`

	// Depth limits clone history when greater than zero.
	Depth int `toml:"depth" validate:"min=0"`

	// SetupFiles are copied into each working area after cloning, e.g. ['codeql.sh'].
	SetupFiles []string `toml:"setup_files" validate:"dive,required"`
}

// ArchiveConfig describes the layout of archives.
type ArchiveConfig struct {
	// ArtifactDir is the name of the artifact sub-root inside each archive.
	ArtifactDir string `toml:"artifact_dir" validate:"required,excludesall=/\\"`
}

// PipelineConfig holds optional pipeline behavior.
type PipelineConfig struct {
	// TrackUnresolved appends records left unresolved by a manual-review pass to the second_pass ledger.
	TrackUnresolved bool `toml:"track_unresolved"`
}

// Default returns the configuration used when no configuration file is present.
func Default() Config {
	return Config{
		Root:    ".",
		Workers: 1,
		Analyzer: AnalyzerConfig{
			Command:  "bash",
			Args:     []string{"run-codeql.sh"},
			Artifact: "res.csv",
			Timeout:  Duration(DefaultAnalyzerTimeout),
		},
		Acquire: AcquireConfig{
			Git:        "git",
			SetupFiles: []string{"codeql.sh"},
		},
		Archive: ArchiveConfig{
			ArtifactDir: "codeql",
		},
	}
}

// FilePath returns the path of the file this configuration was loaded from, empty for defaults.
func (c Config) FilePath() string {
	return c.configFilePath
}

// LedgerDir returns the directory holding the working ledgers.
func (c Config) LedgerDir() string {
	return c.Root
}

// WorkDir returns the directory holding in-flight working areas.
func (c Config) WorkDir() string {
	return filepath.Join(c.Root, "work")
}

// ApprovedDir returns the storage root for approved repositories.
func (c Config) ApprovedDir() string {
	return filepath.Join(c.Root, "approved")
}

// ManualDir returns the storage root for repositories awaiting manual review.
func (c Config) ManualDir() string {
	return filepath.Join(c.Root, "manual_check")
}

// ArchiveDir returns the archive root for the given key.
func (c Config) ArchiveDir(key string) string {
	return filepath.Join(c.Root, key)
}

// AnalyzerArgs returns a copy of the analyzer arguments.
func (c Config) AnalyzerArgs() []string {
	return slices.Clone(c.Analyzer.Args)
}
