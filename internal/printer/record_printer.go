package printer

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mozilla-ai/triage/internal/cmd/output"
	"github.com/mozilla-ai/triage/internal/repo"
)

var _ output.Printer[repo.Record] = (*RecordPrinter)(nil)

// RecordPrinter handles text output for ledger records.
type RecordPrinter struct {
	// headerFunc is an optional custom header function.
	headerFunc output.WriteFunc[repo.Record]

	// footerFunc is an optional custom footer function.
	footerFunc output.WriteFunc[repo.Record]
}

// Header writes a custom header if one has been configured via SetHeader.
func (p *RecordPrinter) Header(w io.Writer, count int) {
	if p.headerFunc != nil {
		p.headerFunc(w, count)
	}
}

// SetHeader configures a custom header function for the printer.
func (p *RecordPrinter) SetHeader(fn output.WriteFunc[repo.Record]) {
	p.headerFunc = fn
}

// Item writes one record.
func (p *RecordPrinter) Item(w io.Writer, r repo.Record) error {
	smells := "unknown"
	if n, ok := r.Smells(); ok {
		smells = strconv.Itoa(n)
	}

	_, err := fmt.Fprintf(
		w,
		"  %s (%s)\n    URL: %s\n    Detected smells: %s\n    Checked manually: %t\n",
		r.Name(),
		r.Owner(),
		r.URL,
		smells,
		r.CheckedManually,
	)

	return err
}

// Footer writes a custom footer if one has been configured via SetFooter.
func (p *RecordPrinter) Footer(w io.Writer, count int) {
	if p.footerFunc != nil {
		p.footerFunc(w, count)
	}
}

// SetFooter configures a custom footer function for the printer.
func (p *RecordPrinter) SetFooter(fn output.WriteFunc[repo.Record]) {
	p.footerFunc = fn
}
