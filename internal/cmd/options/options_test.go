package options

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/triage/internal/analyzer"
	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/printer"
	"github.com/mozilla-ai/triage/internal/repo"
)

type fakeLoader struct {
	config.Loader
}

type fakeAcquirer struct{}

func (fakeAcquirer) Acquire(context.Context, repo.Record, string) error { return nil }

type fakeAdapter struct{}

func (fakeAdapter) Invoke(context.Context, string) (analyzer.Outcome, error) {
	return analyzer.NoArtifact(), nil
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := defaultOptions()

	require.NotNil(t, opts.ConfigLoader)
	require.NotNil(t, opts.ConfigInitializer)
	require.IsType(t, &printer.RecordPrinter{}, opts.RecordPrinter)
	require.NotNil(t, opts.Clock)

	// Collaborators are built from configuration unless overridden.
	require.Nil(t, opts.Acquirer)
	require.Nil(t, opts.Adapter)
}

func TestNewOptions_WithOverrides(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	now := time.Date(2026, time.October, 14, 0, 0, 0, 0, time.UTC)

	opts, err := NewOptions(
		WithConfigLoader(loader),
		WithAcquirer(fakeAcquirer{}),
		WithAdapter(fakeAdapter{}),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	require.Equal(t, loader, opts.ConfigLoader)
	require.Equal(t, fakeAcquirer{}, opts.Acquirer)
	require.Equal(t, fakeAdapter{}, opts.Adapter)
	require.Equal(t, now, opts.Clock())
}

func TestNewOptions_RejectsNil(t *testing.T) {
	t.Parallel()

	_, err := NewOptions(WithConfigLoader(nil))
	require.Error(t, err)

	_, err = NewOptions(WithConfigInitializer(nil))
	require.Error(t, err)

	_, err = NewOptions(WithClock(nil))
	require.Error(t, err)
}

func TestNewOptions_WithNilOption(t *testing.T) {
	t.Parallel()

	opts, err := NewOptions(nil)
	require.NoError(t, err)
	require.NotNil(t, opts.ConfigLoader)
}

func TestNewOptions_WithFailingOption(t *testing.T) {
	t.Parallel()

	badOpt := func(*CmdOptions) error {
		return errors.New("fail")
	}

	_, err := NewOptions(badOpt)
	require.ErrorContains(t, err, "fail")
}
