package ledger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

var (
	schemasMu sync.Mutex
	schemas   = map[Name]*gojsonschema.Schema{}
)

// recordSchema describes one repository record object.
func recordSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"url", "repo_name", "maintainer", "detected_smells", "checked_manually"},
		"properties": map[string]any{
			"url":              map[string]any{"type": "string", "minLength": 1},
			"repo_name":        map[string]any{"type": "string", "minLength": 1},
			"maintainer":       map[string]any{"type": "string", "minLength": 1},
			"detected_smells":  map[string]any{"type": []string{"integer", "null"}, "minimum": 0},
			"checked_manually": map[string]any{"type": "boolean"},
		},
	}
}

// documentSchema returns the JSON schema for the whole document backing ledger n:
// an object with a single key matching the ledger name, holding an array.
func documentSchema(n Name) map[string]any {
	items := recordSchema()
	if n.storesURLs() {
		items = map[string]any{"type": "string", "minLength": 1}
	}

	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{string(n)},
		"properties": map[string]any{
			string(n): map[string]any{
				"type":  "array",
				"items": items,
			},
		},
	}
}

// schemaFor returns the compiled schema for ledger n, compiling it on first use.
func schemaFor(n Name) (*gojsonschema.Schema, error) {
	schemasMu.Lock()
	defer schemasMu.Unlock()

	if s, ok := schemas[n]; ok {
		return s, nil
	}

	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(documentSchema(n)))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for ledger '%s': %w", n, err)
	}
	schemas[n] = s

	return s, nil
}

// validateDocument checks data against the schema for ledger n.
func validateDocument(n Name, data []byte) error {
	s, err := schemaFor(n)
	if err != nil {
		return err
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("unparsable document: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return fmt.Errorf("document does not match ledger shape: %s", strings.Join(problems, "; "))
}
