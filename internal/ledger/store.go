package ledger

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/mozilla-ai/triage/internal/errors"
	"github.com/mozilla-ai/triage/internal/files"
	"github.com/mozilla-ai/triage/internal/perms"
	"github.com/mozilla-ai/triage/internal/repo"
)

// UpdateFunc receives the current collection of a ledger and returns its replacement.
type UpdateFunc func(records []repo.Record) ([]repo.Record, error)

// Store provides durable, named collections of repository records, one JSON document per ledger.
// Every read-modify-write of a ledger is serialized by a per-ledger lock,
// and every write replaces the backing file atomically.
// NewStore should be used to create instances of Store.
type Store struct {
	// dir is the directory holding the ledger files.
	dir string

	// locks guards read-modify-write per ledger. The map itself is never mutated after construction.
	locks map[Name]*sync.Mutex

	// logger is used for logging ledger operations.
	logger hclog.Logger
}

// CorruptError is returned when the backing content of a ledger cannot be parsed or has the wrong shape.
// errors.Is(err, errors.ErrLedgerCorrupt) holds for any CorruptError.
type CorruptError struct {
	Ledger Name
	Path   string
	Err    error
}

// Error implements error.
func (e *CorruptError) Error() string {
	return fmt.Sprintf("%s: '%s' (%s): %s", errors.ErrLedgerCorrupt, e.Ledger, e.Path, e.Err)
}

// Unwrap allows errors.Is and errors.As to match both the sentinel and the underlying cause.
func (e *CorruptError) Unwrap() []error {
	return []error{errors.ErrLedgerCorrupt, e.Err}
}

// NewStore returns a Store rooted at dir, creating dir if it does not exist.
func NewStore(logger hclog.Logger, dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("ledger directory cannot be empty")
	}

	if err := os.MkdirAll(dir, perms.RegularDir); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory '%s': %w", dir, err)
	}

	locks := make(map[Name]*sync.Mutex, len(Names()))
	for _, n := range Names() {
		locks[n] = &sync.Mutex{}
	}

	return &Store{
		dir:    dir,
		locks:  locks,
		logger: logger.Named("ledger"),
	}, nil
}

// Dir returns the directory holding the ledger files.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the path of the file backing the ledger.
func (s *Store) Path(n Name) string {
	return filepath.Join(s.dir, n.FileName())
}

// Exists reports whether the file backing the ledger is present, without creating it.
func (s *Store) Exists(n Name) (bool, error) {
	if !n.valid() {
		return false, unknown(n)
	}

	return files.Exists(s.Path(n))
}

// Get returns the current collection of the ledger.
// On first access the ledger is created on disk with an empty collection.
func (s *Store) Get(n Name) ([]repo.Record, error) {
	mu, err := s.lock(n)
	if err != nil {
		return nil, err
	}
	defer mu.Unlock()

	return s.load(n)
}

// Peek returns the current collection of the ledger and whether it exists, without ever creating it.
func (s *Store) Peek(n Name) ([]repo.Record, bool, error) {
	mu, err := s.lock(n)
	if err != nil {
		return nil, false, err
	}
	defer mu.Unlock()

	data, err := os.ReadFile(s.Path(n))
	if err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read ledger '%s': %w", n, err)
	}

	records, err := s.decode(n, data)
	if err != nil {
		return nil, true, err
	}

	return records, true, nil
}

// Put fully replaces the stored collection of the ledger.
func (s *Store) Put(n Name, records []repo.Record) error {
	mu, err := s.lock(n)
	if err != nil {
		return err
	}
	defer mu.Unlock()

	return s.write(n, records)
}

// Update applies fn to the current collection of the ledger and stores the result,
// holding the ledger's lock for the whole read-modify-write.
func (s *Store) Update(n Name, fn UpdateFunc) error {
	mu, err := s.lock(n)
	if err != nil {
		return err
	}
	defer mu.Unlock()

	current, err := s.load(n)
	if err != nil {
		return err
	}

	updated, err := fn(current)
	if err != nil {
		return err
	}

	return s.write(n, updated)
}

// Append adds records to the end of the ledger.
func (s *Store) Append(n Name, records ...repo.Record) error {
	err := s.Update(n, func(current []repo.Record) ([]repo.Record, error) {
		return append(current, records...), nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Appended to ledger", "ledger", n, "count", len(records), "repos", repo.Names(records))

	return nil
}

// Remove deletes every record with one of the given repository names from the ledger,
// returning how many were removed.
func (s *Store) Remove(n Name, repoNames ...string) (int, error) {
	removed := 0
	err := s.Update(n, func(current []repo.Record) ([]repo.Record, error) {
		kept := make([]repo.Record, 0, len(current))
		for _, r := range current {
			if slices.Contains(repoNames, r.Name()) {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.logger.Debug("Removed from ledger", "ledger", n, "count", removed, "repos", repoNames)
	}

	return removed, nil
}

// Contains reports whether a record with the given repository name is present in the ledger.
func (s *Store) Contains(n Name, repoName string) (bool, error) {
	records, _, err := s.Peek(n)
	if err != nil {
		return false, err
	}

	return slices.ContainsFunc(records, func(r repo.Record) bool {
		return r.Name() == repoName
	}), nil
}

// Delete removes the file backing the ledger. Deleting an absent ledger is not an error.
func (s *Store) Delete(n Name) error {
	mu, err := s.lock(n)
	if err != nil {
		return err
	}
	defer mu.Unlock()

	if err := os.Remove(s.Path(n)); err != nil && !stdErrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete ledger '%s': %w", n, err)
	}

	s.logger.Debug("Deleted ledger", "ledger", n, "path", s.Path(n))

	return nil
}

// lock validates the ledger name and acquires its lock. Callers must unlock.
func (s *Store) lock(n Name) (*sync.Mutex, error) {
	if !n.valid() {
		return nil, unknown(n)
	}

	mu := s.locks[n]
	mu.Lock()

	return mu, nil
}

// load reads the ledger, seeding an empty collection when the file is absent. Callers must hold the lock.
func (s *Store) load(n Name) ([]repo.Record, error) {
	data, err := os.ReadFile(s.Path(n))
	if err != nil {
		if !stdErrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read ledger '%s': %w", n, err)
		}

		s.logger.Debug("Ledger absent, creating", "ledger", n, "path", s.Path(n))
		if err := s.write(n, nil); err != nil {
			return nil, err
		}

		return []repo.Record{}, nil
	}

	return s.decode(n, data)
}

// write fully replaces the ledger file. Callers must hold the lock.
func (s *Store) write(n Name, records []repo.Record) error {
	data, err := encode(n, records)
	if err != nil {
		return fmt.Errorf("failed to encode ledger '%s': %w", n, err)
	}

	if err := files.WriteFileAtomic(s.Path(n), data, perms.RegularFile); err != nil {
		return fmt.Errorf("failed to write ledger '%s': %w", n, err)
	}

	return nil
}

// decode validates and parses the document backing ledger n.
func (s *Store) decode(n Name, data []byte) ([]repo.Record, error) {
	corrupt := func(err error) error {
		s.logger.Error("Ledger corrupt", "ledger", n, "path", s.Path(n), "error", err)
		return &CorruptError{Ledger: n, Path: s.Path(n), Err: err}
	}

	if err := validateDocument(n, data); err != nil {
		return nil, corrupt(err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, corrupt(err)
	}

	if n.storesURLs() {
		var urls []string
		if err := json.Unmarshal(doc[string(n)], &urls); err != nil {
			return nil, corrupt(err)
		}

		records := make([]repo.Record, 0, len(urls))
		for _, u := range urls {
			r, err := repo.New(u)
			if err != nil {
				return nil, corrupt(err)
			}
			records = append(records, r)
		}

		return records, nil
	}

	records := []repo.Record{}
	if err := json.Unmarshal(doc[string(n)], &records); err != nil {
		return nil, corrupt(err)
	}

	return records, nil
}

// encode renders the document backing ledger n.
func encode(n Name, records []repo.Record) ([]byte, error) {
	var doc any
	if n.storesURLs() {
		urls := make([]string, 0, len(records))
		for _, r := range records {
			urls = append(urls, r.URL)
		}
		doc = map[string][]string{string(n): urls}
	} else {
		if records == nil {
			records = []repo.Record{}
		}
		doc = map[string][]repo.Record{string(n): records}
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}

func unknown(n Name) error {
	return fmt.Errorf("%w: '%s'", errors.ErrUnknownLedger, n)
}
