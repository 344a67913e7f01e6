package metrics

import (
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/repo"
)

// LedgerReader is the read-only view of a ledger store needed to report sizes.
type LedgerReader interface {
	Peek(n ledger.Name) ([]repo.Record, bool, error)
}

var _ prometheus.Collector = (*LedgerCollector)(nil)

// LedgerCollector reports one gauge per ledger, read from the store at scrape time.
// Ledgers whose files are absent or unreadable are omitted.
type LedgerCollector struct {
	store  LedgerReader
	desc   *prometheus.Desc
	logger hclog.Logger
}

// NewLedgerCollector creates a collector backed by store.
func NewLedgerCollector(logger hclog.Logger, store LedgerReader) *LedgerCollector {
	return &LedgerCollector{
		store: store,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ledger", "records"),
			"Number of records currently held by each ledger",
			[]string{"ledger"},
			nil,
		),
		logger: logger.Named("metrics"),
	}
}

// Describe implements prometheus.Collector.
func (c *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	for _, n := range ledger.Names() {
		records, ok, err := c.store.Peek(n)
		if err != nil {
			c.logger.Warn("Skipping unreadable ledger", "ledger", n, "error", err)
			continue
		}
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(len(records)), n.String())
	}
}
