package ledger

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mozilla-ai/triage/internal/errors"
)

// Name identifies one of the durable ledgers.
type Name string

const (
	// Pending holds the raw URLs of candidates waiting for a fresh-batch run.
	// It is read once per run and is never a destination.
	Pending Name = "pending"

	// Approved holds records whose analysis produced at least one finding.
	Approved Name = "approved"

	// Denied holds records whose analysis produced a result artifact with no findings.
	Denied Name = "denied"

	// ManualReview holds records whose analysis produced no result artifact.
	ManualReview Name = "manual_check"

	// SecondPass holds records left unresolved by a manual-review pass, when tracking is enabled.
	SecondPass Name = "second_pass"
)

// Names returns every ledger, in a stable order.
func Names() []Name {
	return []Name{Pending, Approved, Denied, ManualReview, SecondPass}
}

// Buckets returns the classification ledgers that partition repositories:
// a repository name appears in at most one of them.
func Buckets() []Name {
	return []Name{Approved, Denied, ManualReview}
}

// ParseName converts user input into a ledger Name.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	if !n.valid() {
		return "", fmt.Errorf("%w: '%s' (must be one of %s)", errors.ErrUnknownLedger, s, joinNames(Names()))
	}
	return n, nil
}

// String implements fmt.Stringer.
func (n Name) String() string {
	return string(n)
}

// FileName returns the name of the file backing the ledger.
func (n Name) FileName() string {
	return string(n) + ".json"
}

// storesURLs reports whether the ledger stores raw URLs rather than full records.
func (n Name) storesURLs() bool {
	return n == Pending
}

func (n Name) valid() bool {
	return slices.Contains(Names(), n)
}

func joinNames(names []Name) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return strings.Join(out, ", ")
}
