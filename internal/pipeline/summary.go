package pipeline

import (
	"fmt"
	"sync"
)

// Mode identifies which ledger a pass draws its records from.
type Mode string

const (
	// ModeFresh processes the pending ledger.
	ModeFresh Mode = "fresh"

	// ModeManual re-processes records held for manual review.
	ModeManual Mode = "manual"
)

// placement is the result of processing one record.
type placement string

const (
	placedApproved   placement = "approved"
	placedDenied     placement = "denied"
	placedManual     placement = "manual"
	placedUnresolved placement = "unresolved"
	placedSkipped    placement = "skipped"
	placedCancelled  placement = "cancelled"
)

// Summary counts how the records of a pass were handled.
type Summary struct {
	Mode       Mode `json:"mode" yaml:"mode"`
	Total      int  `json:"total" yaml:"total"`
	Approved   int  `json:"approved" yaml:"approved"`
	Denied     int  `json:"denied" yaml:"denied"`
	Manual     int  `json:"manual" yaml:"manual"`
	Unresolved int  `json:"unresolved" yaml:"unresolved"`
	Skipped    int  `json:"skipped" yaml:"skipped"`
	Cancelled  int  `json:"cancelled" yaml:"cancelled"`
	Merged     int  `json:"merged" yaml:"merged"`
}

// String implements fmt.Stringer.
func (s Summary) String() string {
	return fmt.Sprintf(
		"%s: %d total, %d approved, %d denied, %d manual, %d unresolved, %d skipped, %d cancelled",
		s.Mode, s.Total, s.Approved, s.Denied, s.Manual, s.Unresolved, s.Skipped, s.Cancelled,
	)
}

// tally accumulates placements from concurrent workers.
type tally struct {
	mu      sync.Mutex
	summary Summary
}

func (t *tally) add(p placement) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch p {
	case placedApproved:
		t.summary.Approved++
	case placedDenied:
		t.summary.Denied++
	case placedManual:
		t.summary.Manual++
	case placedUnresolved:
		t.summary.Unresolved++
	case placedSkipped:
		t.summary.Skipped++
	case placedCancelled:
		t.summary.Cancelled++
	}
}

func (t *tally) result() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.summary
}
