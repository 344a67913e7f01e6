package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/triage/internal/config"
	"github.com/mozilla-ai/triage/internal/errors"
	"github.com/mozilla-ai/triage/internal/ledger"
	"github.com/mozilla-ai/triage/internal/repo"
)

const testKey = "14102026"

func newTestArchiver(t *testing.T) (*Archiver, *ledger.Store, config.Config) {
	t.Helper()

	cfg := config.Default()
	cfg.Root = t.TempDir()

	store, err := ledger.NewStore(hclog.NewNullLogger(), cfg.LedgerDir())
	require.NoError(t, err)

	a, err := NewArchiver(hclog.NewNullLogger(), cfg, store)
	require.NoError(t, err)

	return a, store, cfg
}

func record(t *testing.T, url string) repo.Record {
	t.Helper()

	r, err := repo.New(url)
	require.NoError(t, err)

	return r
}

// approvedArea creates approved/<name> holding an artifact with content.
func approvedArea(t *testing.T, cfg config.Config, name string, content string) {
	t.Helper()

	dir := filepath.Join(cfg.ApprovedDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, cfg.Analyzer.Artifact), []byte(content), 0o644))
}

func TestDateKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "14102026", DateKey(time.Date(2026, time.October, 14, 23, 59, 0, 0, time.UTC)))
	require.Equal(t, "01022025", DateKey(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)))
}

func TestMode_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "fresh", ModeFresh.String())
	require.Equal(t, "manual", ModeManual.String())
	require.Equal(t, "mode(9)", Mode(9).String())
}

func TestNewArchiver_NilStore(t *testing.T) {
	t.Parallel()

	_, err := NewArchiver(hclog.NewNullLogger(), config.Default(), nil)
	require.Error(t, err)
}

func TestArchiver_Archive_Fresh(t *testing.T) {
	t.Parallel()

	a, store, cfg := newTestArchiver(t)

	foo := record(t, "https://example.com/acme/foo")
	require.NoError(t, store.Put(ledger.Pending, []repo.Record{foo}))
	require.NoError(t, store.Append(ledger.Approved, foo.WithSmells(3)))
	approvedArea(t, cfg, "foo", "a\nb\nc\n")

	h, err := a.Archive(testKey, ModeFresh)
	require.NoError(t, err)

	root := filepath.Join(cfg.Root, testKey)
	require.Equal(t, root, h.Dir)
	require.Equal(t, filepath.Join(root, "codeql"), h.ArtifactDir)
	require.Equal(t, []string{"pending.json", "approved.json"}, h.Ledgers)
	require.Equal(t, []string{"foo"}, h.Artifacts)

	data, err := os.ReadFile(filepath.Join(root, "codeql", "foo.csv"))
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\n", string(data))
	require.NoDirExists(t, filepath.Join(cfg.ApprovedDir(), "foo"))

	require.FileExists(t, filepath.Join(root, "pending.json"))
	require.FileExists(t, filepath.Join(root, "approved.json"))
	require.NoFileExists(t, filepath.Join(root, "denied.json"))
	require.NoFileExists(t, store.Path(ledger.Pending))
	require.NoFileExists(t, store.Path(ledger.Approved))

	archived, err := ledger.NewStore(hclog.NewNullLogger(), root)
	require.NoError(t, err)
	got, err := archived.Get(ledger.Approved)
	require.NoError(t, err)
	require.Equal(t, []repo.Record{foo.WithSmells(3)}, got)
}

func TestArchiver_Archive_MissingArtifact(t *testing.T) {
	t.Parallel()

	a, _, cfg := newTestArchiver(t)

	approvedArea(t, cfg, "good", "x\n")
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.ApprovedDir(), "broken"), 0o755))

	h, err := a.Archive(testKey, ModeFresh)
	require.ErrorIs(t, err, errors.ErrArchiveRelocation)
	require.ErrorContains(t, err, "broken")

	// The remaining entries are still processed.
	require.Equal(t, []string{"good"}, h.Artifacts)
	require.FileExists(t, filepath.Join(h.ArtifactDir, "good.csv"))
	require.DirExists(t, filepath.Join(cfg.ApprovedDir(), "broken"))
}

func TestArchiver_Archive_NeverOverwritesArchivedLedger(t *testing.T) {
	t.Parallel()

	a, store, cfg := newTestArchiver(t)

	require.NoError(t, store.Put(ledger.Denied, nil))
	root := cfg.ArchiveDir(testKey)
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "denied.json"), []byte(`{"denied": []}`), 0o644))

	_, err := a.Archive(testKey, ModeFresh)
	require.ErrorIs(t, err, errors.ErrArchiveRelocation)
	require.FileExists(t, store.Path(ledger.Denied))
}

func TestArchiver_Archive_Manual(t *testing.T) {
	t.Parallel()

	a, store, cfg := newTestArchiver(t)

	foo := record(t, "https://example.com/acme/foo").WithSmells(2).MarkCheckedManually()
	require.NoError(t, store.Put(ledger.Pending, nil))
	require.NoError(t, store.Append(ledger.Approved, foo))
	approvedArea(t, cfg, "foo", "x\ny\n")

	h, err := a.Archive(testKey, ModeManual)
	require.NoError(t, err)
	require.Empty(t, h.Ledgers)
	require.Equal(t, 1, h.Merged)
	require.Equal(t, []string{"foo"}, h.Artifacts)

	// Manual archival leaves the other working ledgers in place.
	require.FileExists(t, store.Path(ledger.Pending))
	require.NoFileExists(t, store.Path(ledger.Approved))
}

func TestArchiver_Archive_NothingToDo(t *testing.T) {
	t.Parallel()

	a, _, _ := newTestArchiver(t)

	h, err := a.Archive(testKey, ModeFresh)
	require.NoError(t, err)
	require.Empty(t, h.Ledgers)
	require.Empty(t, h.Artifacts)
	require.DirExists(t, h.ArtifactDir)
}

func TestArchiver_MergeApproved(t *testing.T) {
	t.Parallel()

	a, store, cfg := newTestArchiver(t)

	root := cfg.ArchiveDir(testKey)
	require.NoError(t, os.MkdirAll(root, 0o755))
	archived, err := ledger.NewStore(hclog.NewNullLogger(), root)
	require.NoError(t, err)

	var prior []repo.Record
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		prior = append(prior, record(t, "https://example.com/acme/"+name).WithSmells(1))
	}
	require.NoError(t, archived.Put(ledger.Approved, prior))

	foo := record(t, "https://example.com/acme/foo").WithSmells(2).MarkCheckedManually()
	require.NoError(t, store.Append(ledger.Approved, foo))

	merged, err := a.MergeApproved(testKey)
	require.NoError(t, err)
	require.Equal(t, 1, merged)

	got, err := archived.Get(ledger.Approved)
	require.NoError(t, err)
	require.Len(t, got, 6)
	require.Equal(t, append(prior, foo), got)
	require.NoFileExists(t, store.Path(ledger.Approved))
}

func TestArchiver_MergeApproved_KeepsDuplicates(t *testing.T) {
	t.Parallel()

	a, store, _ := newTestArchiver(t)

	foo := record(t, "https://example.com/acme/foo").WithSmells(2)

	require.NoError(t, store.Append(ledger.Approved, foo))
	_, err := a.MergeApproved(testKey)
	require.NoError(t, err)

	require.NoError(t, store.Append(ledger.Approved, foo))
	_, err = a.MergeApproved(testKey)
	require.NoError(t, err)

	archived, err := ledger.NewStore(hclog.NewNullLogger(), a.cfg.ArchiveDir(testKey))
	require.NoError(t, err)
	got, err := archived.Get(ledger.Approved)
	require.NoError(t, err)
	require.Equal(t, []repo.Record{foo, foo}, got)
}

func TestArchiver_MergeApproved_NoWorkingLedger(t *testing.T) {
	t.Parallel()

	a, _, cfg := newTestArchiver(t)

	merged, err := a.MergeApproved(testKey)
	require.NoError(t, err)
	require.Zero(t, merged)
	require.NoDirExists(t, cfg.ArchiveDir(testKey))
}
