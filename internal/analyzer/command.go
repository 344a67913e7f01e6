package analyzer

import (
	"bufio"
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/hashicorp/go-hclog"
)

var _ Adapter = (*Command)(nil)

// Command is an Adapter that runs the analyzer as a subprocess,
// passing the working area path as its final argument.
// NewCommand should be used to create instances of Command.
type Command struct {
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

	// logger receives diagnostics and the tool's own output.
	logger hclog.Logger
}

// NewCommand creates a new analyzer Command.
func NewCommand(logger hclog.Logger, opts ...Option) (*Command, error) {
	options, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	return &Command{
		command:   options.command,
		args:      options.args,
		artifact:  options.artifact,
		timeout:   options.timeout,
		waitDelay: options.waitDelay,
		logger:    logger.Named("analyzer"),
	}, nil
}

// Artifact returns the file name of the result artifact.
func (c *Command) Artifact() string {
	return c.artifact
}

// Invoke runs the analyzer against workDir and inspects the result artifact it leaves behind.
// An artifact already present before the run is removed first,
// so findings are only ever attributed to this invocation.
func (c *Command) Invoke(ctx context.Context, workDir string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	l := c.logger.With("work_dir", workDir)
	artifactPath := filepath.Join(workDir, c.artifact)

	if err := os.Remove(artifactPath); err != nil && !stdErrors.Is(err, fs.ErrNotExist) {
		l.Error("Failed to remove stale artifact", "path", artifactPath, "error", err)
		outcome := NoArtifact()
		outcome.Err = fmt.Errorf("failed to remove stale artifact: %w", err)
		return outcome, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := append(slices.Clone(c.args), workDir)
	cmd := exec.CommandContext(runCtx, c.command, args...)

	// Use the analyzer logger to capture the tool's output.
	stdWriter := func() io.Writer {
		return l.StandardWriter(&hclog.StandardLoggerOptions{
			InferLevels: true,
		})
	}
	cmd.Stdout = stdWriter()
	cmd.Stderr = stdWriter()
	cmd.WaitDelay = c.waitDelay

	l.Debug("Starting analyzer", "command", c.command, "args", args, "timeout", c.timeout)
	started := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(started)

	if err := ctx.Err(); err != nil {
		l.Info("Analyzer interrupted", "elapsed", elapsed)
		return Outcome{}, err
	}

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if stdErrors.Is(runCtx.Err(), context.DeadlineExceeded) {
		l.Warn("Analyzer timed out, discarding any partial artifact", "timeout", c.timeout)
		if err := os.Remove(artifactPath); err != nil && !stdErrors.Is(err, fs.ErrNotExist) {
			l.Error("Failed to remove partial artifact", "path", artifactPath, "error", err)
		}
		outcome := NoArtifact()
		outcome.TimedOut = true
		outcome.Err = fmt.Errorf("analyzer exceeded timeout of %s", c.timeout)
		return outcome, nil
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !stdErrors.As(runErr, &exitErr) {
			l.Error("Analyzer could not be run", "command", c.command, "error", runErr)
			outcome := NoArtifact()
			outcome.Err = fmt.Errorf("analyzer could not be run: %w", runErr)
			return outcome, nil
		}
		l.Warn("Analyzer exited with non-zero status", "exit_code", exitCode)
	}

	rows, found, err := countRows(artifactPath)
	if err != nil {
		l.Error("Failed to read artifact", "path", artifactPath, "error", err)
		outcome := NoArtifact()
		outcome.ExitCode = exitCode
		outcome.Err = err
		return outcome, nil
	}

	if !found {
		l.Info("Analyzer produced no artifact", "exit_code", exitCode, "elapsed", elapsed)
		outcome := NoArtifact()
		outcome.ExitCode = exitCode
		return outcome, nil
	}

	l.Info("Analyzer produced artifact", "rows", rows, "exit_code", exitCode, "elapsed", elapsed)
	outcome := Findings(rows)
	outcome.ExitCode = exitCode

	return outcome, nil
}

// countRows returns the number of lines in the file at path, and whether it exists.
// A final line without a trailing newline is counted.
func countRows(path string) (uint, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to open artifact '%s': %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return 0, false, fmt.Errorf("failed to stat artifact '%s': %w", path, err)
	}
	if info.IsDir() {
		return 0, false, nil
	}

	var (
		rows uint
		last byte = '\n'
	)
	r := bufio.NewReader(f)
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			if b == '\n' {
				rows++
			}
		}
		if n > 0 {
			last = buf[n-1]
		}
		if stdErrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, false, fmt.Errorf("failed to read artifact '%s': %w", path, err)
		}
	}

	if last != '\n' {
		rows++
	}

	return rows, true, nil
}
