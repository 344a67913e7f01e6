package options

import (
	"fmt"
	"time"

	"github.com/mozilla-ai/triage/internal/acquire"
	"github.com/mozilla-ai/triage/internal/analyzer"
	"github.com/mozilla-ai/triage/internal/cmd/output"
	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/printer"
	"github.com/mozilla-ai/triage/internal/repo"
)

type CmdOption func(*CmdOptions) error

type CmdOptions struct {
	ConfigLoader      config.Loader
	ConfigInitializer config.Initializer
	RecordPrinter     output.Printer[repo.Record]

	// Acquirer overrides the git acquirer built from configuration.
	Acquirer acquire.Acquirer

	// Adapter overrides the analyzer command built from configuration.
	Adapter analyzer.Adapter

	// Clock supplies the current time for archive keys.
	Clock func() time.Time
}

func defaultOptions() CmdOptions {
	configLoader := &config.DefaultLoader{}
	return CmdOptions{
		ConfigLoader:      configLoader,
		ConfigInitializer: configLoader,
		RecordPrinter:     &printer.RecordPrinter{},
		Clock:             time.Now,
	}
}

func NewOptions(opt ...CmdOption) (CmdOptions, error) {
	opts := defaultOptions()

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return CmdOptions{}, err
		}
	}
	return opts, nil
}

func WithConfigLoader(l config.Loader) CmdOption {
	return func(o *CmdOptions) error {
		if l == nil {
			return fmt.Errorf("config loader cannot be nil")
		}
		o.ConfigLoader = l
		return nil
	}
}

func WithConfigInitializer(i config.Initializer) CmdOption {
	return func(o *CmdOptions) error {
		if i == nil {
			return fmt.Errorf("config initializer cannot be nil")
		}
		o.ConfigInitializer = i
		return nil
	}
}

func WithRecordPrinter(p output.Printer[repo.Record]) CmdOption {
	return func(o *CmdOptions) error {
		o.RecordPrinter = p
		return nil
	}
}

func WithAcquirer(a acquire.Acquirer) CmdOption {
	return func(o *CmdOptions) error {
		o.Acquirer = a
		return nil
	}
}

func WithAdapter(a analyzer.Adapter) CmdOption {
	return func(o *CmdOptions) error {
		o.Adapter = a
		return nil
	}
}

func WithClock(now func() time.Time) CmdOption {
	return func(o *CmdOptions) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.Clock = now
		return nil
	}
}
