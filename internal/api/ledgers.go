package api

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mozilla-ai/triage/internal/errors"
	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/repo"
)

// DomainRecord is a wrapper that allows receivers to be declared in the API package that deal with domain types.
type DomainRecord repo.Record

// Record is the API representation of a ledger record.
type Record struct {
	URL             string `json:"url"`
	RepoName        string `json:"repoName"`
	Maintainer      string `json:"maintainer"`
	DetectedSmells  *int   `json:"detectedSmells,omitempty"`
	CheckedManually bool   `json:"checkedManually"`
}

// Ledger summarizes a single ledger.
type Ledger struct {
	Name    string `json:"name"`
	Exists  bool   `json:"exists"`
	Records int    `json:"records"`
	Corrupt bool   `json:"corrupt,omitempty"`
}

// LedgersResponse is the response for GET /ledgers.
type LedgersResponse struct {
	Body struct {
		Ledgers []Ledger `doc:"Every ledger with its record count" json:"ledgers"`
	}
}

// LedgerRequest represents the incoming request for the records of one ledger.
type LedgerRequest struct {
	Name string `doc:"Name of the ledger" example:"approved" path:"name"`
}

// LedgerResponse is the response for GET /ledgers/{name}.
type LedgerResponse struct {
	Body struct {
		Name    string   `doc:"Name of the ledger"    json:"name"`
		Records []Record `doc:"Records in the ledger" json:"records"`
	}
}

// ToAPIType can be used to convert a wrapped domain type to an API-safe type.
func (d DomainRecord) ToAPIType() Record {
	r := repo.Record(d)
	return Record{
		URL:             r.URL,
		RepoName:        r.Name(),
		Maintainer:      r.Owner(),
		DetectedSmells:  r.DetectedSmells,
		CheckedManually: r.CheckedManually,
	}
}

// RegisterLedgerRoutes sets up ledger-related API endpoint routes.
func RegisterLedgerRoutes(routerAPI huma.API, store LedgerReader, apiPathPrefix string) {
	tags := []string{"Ledgers"}

	huma.Register(
		routerAPI,
		huma.Operation{
			OperationID: "listLedgers",
			Method:      http.MethodGet,
			Path:        apiPathPrefix,
			Summary:     "List all ledgers and their sizes",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*LedgersResponse, error) {
			return handleListLedgers(store)
		},
	)

	huma.Register(
		routerAPI,
		huma.Operation{
			OperationID: "getLedger",
			Method:      http.MethodGet,
			Path:        apiPathPrefix + "/{name}",
			Summary:     "Get the records of a ledger",
			Tags:        tags,
		},
		func(ctx context.Context, input *LedgerRequest) (*LedgerResponse, error) {
			return handleGetLedger(store, input.Name)
		},
	)
}

// handleListLedgers is the handler for summarizing every ledger.
// A corrupt ledger is reported as such rather than failing the whole listing.
func handleListLedgers(store LedgerReader) (*LedgersResponse, error) {
	names := ledger.Names()
	ledgers := make([]Ledger, 0, len(names))

	for _, n := range names {
		records, exists, err := store.Peek(n)
		entry := Ledger{Name: n.String(), Exists: exists, Records: len(records)}
		if err != nil {
			if !stdErrors.Is(err, errors.ErrLedgerCorrupt) {
				return nil, err
			}
			entry.Corrupt = true
			entry.Records = 0
		}
		ledgers = append(ledgers, entry)
	}

	resp := &LedgersResponse{}
	resp.Body.Ledgers = ledgers

	return resp, nil
}

// handleGetLedger is the handler for retrieving the records of the named ledger.
func handleGetLedger(store LedgerReader, name string) (*LedgerResponse, error) {
	n, err := ledger.ParseName(name)
	if err != nil {
		return nil, err
	}

	records, exists, err := store.Peek(n)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", errors.ErrMissingLedger, n)
	}

	apiRecords := make([]Record, 0, len(records))
	for _, r := range records {
		apiRecords = append(apiRecords, DomainRecord(r).ToAPIType())
	}

	resp := &LedgerResponse{}
	resp.Body.Name = n.String()
	resp.Body.Records = apiRecords

	return resp, nil
}
