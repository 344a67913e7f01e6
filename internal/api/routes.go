package api

import (
	"fmt"
	"net/url"
	"reflect"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/repo"
)

// APIVersion is the version used in the OpenAPI spec and URL paths.
const APIVersion = "v1"

// LedgerReader is the read-only view of the ledger store served by the API.
// Implementations must never create ledger files when reading.
type LedgerReader interface {
	Peek(n ledger.Name) ([]repo.Record, bool, error)
}

// RegisterRoutes registers all API routes on the provided Huma router.
// Returns the API path prefix (e.g., "/api/v1") under which the routes are created.
func RegisterRoutes(router huma.API, store LedgerReader) (string, error) {
	if router == nil || reflect.ValueOf(router).IsNil() {
		return "", fmt.Errorf("router cannot be nil")
	}
	if store == nil || reflect.ValueOf(store).IsNil() {
		return "", fmt.Errorf("ledger store cannot be nil")
	}

	// Safe way to ensure /api/{version}.
	apiPathPrefix, err := url.JoinPath("/api", APIVersion)
	if err != nil {
		return "", fmt.Errorf("failed to construct API path prefix: %w", err)
	}

	versionedGroup := huma.NewGroup(router, apiPathPrefix)
	RegisterLedgerRoutes(versionedGroup, store, "/ledgers")

	return apiPathPrefix, nil
}
