package repo

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mozilla-ai/triage/internal/errors"
)

// Record is the identity and classification state of one candidate repository.
// Name and Owner are always derived from URL and are never assigned independently.
// New should be used to create instances of Record.
type Record struct {
	// URL is the origin location of the repository, e.g. 'https://github.com/acme/foo'.
	URL string `yaml:"url"`

	// DetectedSmells is the number of findings reported by the analyzer, nil until analysis completes.
	DetectedSmells *int `yaml:"detected_smells"`

	// CheckedManually is true once the record has passed through the manual-review pass.
	CheckedManually bool `yaml:"checked_manually"`
}

// recordJSON is the on-disk shape of a Record within a ledger.
type recordJSON struct {
	URL             string `json:"url"`
	RepoName        string `json:"repo_name"`
	Maintainer      string `json:"maintainer"`
	DetectedSmells  *int   `json:"detected_smells"`
	CheckedManually bool   `json:"checked_manually"`
}

// New returns a Record for the given URL, which must end in '<owner>/<name>'.
func New(url string) (Record, error) {
	url = normalizeURL(url)
	if _, _, err := split(url); err != nil {
		return Record{}, err
	}

	return Record{URL: url}, nil
}

// Name returns the final path segment of the URL.
func (r Record) Name() string {
	_, name, _ := split(r.URL)
	return name
}

// Owner returns the second-to-last path segment of the URL.
func (r Record) Owner() string {
	owner, _, _ := split(r.URL)
	return owner
}

// WithSmells returns a copy of the record with the detected smell count set.
func (r Record) WithSmells(n int) Record {
	r.DetectedSmells = &n
	return r
}

// MarkCheckedManually returns a copy of the record flagged as having passed the manual-review pass.
func (r Record) MarkCheckedManually() Record {
	r.CheckedManually = true
	return r
}

// Smells returns the detected smell count and whether analysis has completed.
func (r Record) Smells() (int, bool) {
	if r.DetectedSmells == nil {
		return 0, false
	}
	return *r.DetectedSmells, true
}

// MarshalJSON implements json.Marshaler, writing the derived name and owner alongside the URL.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		URL:             r.URL,
		RepoName:        r.Name(),
		Maintainer:      r.Owner(),
		DetectedSmells:  r.DetectedSmells,
		CheckedManually: r.CheckedManually,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
// Stored names that disagree with the URL are rejected rather than trusted.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rec, err := New(raw.URL)
	if err != nil {
		return err
	}

	if rec.Name() != raw.RepoName || rec.Owner() != raw.Maintainer {
		return fmt.Errorf(
			"record for '%s' stores repo_name '%s' and maintainer '%s', expected '%s' and '%s'",
			rec.URL,
			raw.RepoName,
			raw.Maintainer,
			rec.Name(),
			rec.Owner(),
		)
	}

	if raw.DetectedSmells != nil && *raw.DetectedSmells < 0 {
		return fmt.Errorf("record for '%s' has negative detected_smells: %d", rec.URL, *raw.DetectedSmells)
	}

	rec.DetectedSmells = raw.DetectedSmells
	rec.CheckedManually = raw.CheckedManually
	*r = rec

	return nil
}

// Names returns the repository names of the given records, in order.
func Names(records []Record) []string {
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name())
	}
	return names
}

func normalizeURL(url string) string {
	return strings.TrimRight(strings.TrimSpace(url), "/")
}

// split returns the owner and name segments of a normalized URL.
func split(url string) (owner string, name string, err error) {
	segments := strings.Split(url, "/")
	if len(segments) < 2 {
		return "", "", fmt.Errorf("%w: '%s' must end in '<owner>/<name>'", errors.ErrInvalidRepoURL, url)
	}

	owner = segments[len(segments)-2]
	name = segments[len(segments)-1]
	if owner == "" || name == "" || name == "." || name == ".." {
		return "", "", fmt.Errorf("%w: '%s' must end in '<owner>/<name>'", errors.ErrInvalidRepoURL, url)
	}

	return owner, name, nil
}
