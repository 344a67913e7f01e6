package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/mozilla-ai/triage/internal/metrics"
)

// Option defines a functional option for configuring a Pipeline.
type Option func(*Options) error

// Options contains optional configuration for a Pipeline.
type Options struct {
	// out receives narrative progress.
	out io.Writer

	// metrics records per-record outcomes, nil disables recording.
	metrics *metrics.Recorder

	// merger folds the working approved ledger into the archive after a manual pass.
	merger Merger

	// now supplies the current time for archive date keys.
	now func() time.Time
}

// NewOptions returns Options with defaults applied, followed by opts.
func NewOptions(opts ...Option) (Options, error) {
	o := Options{
		out: io.Discard,
		now: time.Now,
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

// WithOutput sets the writer that receives progress messages.
func WithOutput(w io.Writer) Option {
	return func(o *Options) error {
		if w == nil {
			return fmt.Errorf("output writer cannot be nil")
		}
		o.out = w
		return nil
	}
}

// WithMetrics sets the recorder for pipeline metrics.
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Options) error {
		o.metrics = r
		return nil
	}
}

// WithMerger sets the merge step that follows a completed manual-review pass.
func WithMerger(m Merger) Option {
	return func(o *Options) error {
		o.merger = m
		return nil
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Options) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.now = now
		return nil
	}
}
