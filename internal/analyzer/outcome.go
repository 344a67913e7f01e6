package analyzer

import (
	"context"
	"fmt"
)

// Adapter runs the external static-analysis tool against a working area.
// Only the presence of a result artifact and its row count are observable to callers.
type Adapter interface {
	// Invoke analyzes the working area at workDir.
	// An error is returned only when ctx was cancelled before or during the invocation.
	Invoke(ctx context.Context, workDir string) (Outcome, error)
}

// Kind distinguishes a produced result artifact from a missing one.
type Kind int

const (
	// KindNoArtifact means the tool produced no result artifact.
	// This is a tool or environment failure, not 'no findings'.
	KindNoArtifact Kind = iota

	// KindFindings means the tool produced a result artifact, possibly with zero rows.
	KindFindings
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindFindings:
		return "findings"
	case KindNoArtifact:
		return "no-artifact"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the structured result of one analyzer invocation.
type Outcome struct {
	// Kind determines classification.
	Kind Kind

	// Rows is the number of findings in the result artifact, meaningful when Kind is KindFindings.
	Rows uint

	// ExitCode of the tool process, -1 when it did not start or was killed.
	// It is diagnostic only and never used for classification.
	ExitCode int

	// TimedOut is true when the invocation exceeded its time bound.
	TimedOut bool

	// Err holds the reason a process could not be run, if any. Diagnostic only.
	Err error
}

// Findings returns an Outcome for a result artifact with the given number of rows.
func Findings(rows uint) Outcome {
	return Outcome{Kind: KindFindings, Rows: rows}
}

// NoArtifact returns an Outcome for an invocation that left no result artifact.
func NoArtifact() Outcome {
	return Outcome{Kind: KindNoArtifact, ExitCode: -1}
}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	if o.Kind == KindFindings {
		return fmt.Sprintf("findings(%d)", o.Rows)
	}
	return o.Kind.String()
}
