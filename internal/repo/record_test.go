package repo

import (
	"encoding/json"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mozilla-ai/triage/internal/errors"
)

func TestNew_DerivesNameAndOwner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		url       string
		wantURL   string
		wantName  string
		wantOwner string
	}{
		{
			name:      "https url",
			url:       "https://example.com/acme/foo",
			wantURL:   "https://example.com/acme/foo",
			wantName:  "foo",
			wantOwner: "acme",
		},
		{
			name:      "github url",
			url:       "https://github.com/mozilla-ai/triage",
			wantURL:   "https://github.com/mozilla-ai/triage",
			wantName:  "triage",
			wantOwner: "mozilla-ai",
		},
		{
			name:      "trailing slash and whitespace trimmed",
			url:       "  https://example.com/acme/foo/  ",
			wantURL:   "https://example.com/acme/foo",
			wantName:  "foo",
			wantOwner: "acme",
		},
		{
			name:      "deep path uses last two segments",
			url:       "https://gitlab.example.com/group/subgroup/project",
			wantURL:   "https://gitlab.example.com/group/subgroup/project",
			wantName:  "project",
			wantOwner: "subgroup",
		},
		{
			name:      "bare owner and name",
			url:       "acme/foo",
			wantURL:   "acme/foo",
			wantName:  "foo",
			wantOwner: "acme",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := New(tc.url)
			require.NoError(t, err)
			require.Equal(t, tc.wantURL, r.URL)
			require.Equal(t, tc.wantName, r.Name())
			require.Equal(t, tc.wantOwner, r.Owner())
			require.Nil(t, r.DetectedSmells)
			require.False(t, r.CheckedManually)
		})
	}
}

func TestNew_InvalidURL(t *testing.T) {
	t.Parallel()

	for _, url := range []string{"", "   ", "foo", "/foo", "https://example.com//foo", "https://example.com/acme/.."} {
		t.Run(url, func(t *testing.T) {
			t.Parallel()

			_, err := New(url)
			require.Error(t, err)
			require.True(t, stdErrors.Is(err, errors.ErrInvalidRepoURL))
		})
	}
}

func TestRecord_CopyModifiers(t *testing.T) {
	t.Parallel()

	r, err := New("https://example.com/acme/foo")
	require.NoError(t, err)

	withSmells := r.WithSmells(3)
	n, ok := withSmells.Smells()
	require.True(t, ok)
	require.Equal(t, 3, n)

	_, ok = r.Smells()
	require.False(t, ok, "original must be unchanged")

	checked := withSmells.MarkCheckedManually()
	require.True(t, checked.CheckedManually)
	require.False(t, withSmells.CheckedManually)
}

func TestRecord_MarshalJSON(t *testing.T) {
	t.Parallel()

	r, err := New("https://example.com/acme/foo")
	require.NoError(t, err)

	data, err := json.Marshal(r.WithSmells(3))
	require.NoError(t, err)
	require.JSONEq(t, `{
		"url": "https://example.com/acme/foo",
		"repo_name": "foo",
		"maintainer": "acme",
		"detected_smells": 3,
		"checked_manually": false
	}`, string(data))

	data, err = json.Marshal(r)
	require.NoError(t, err)
	require.Contains(t, string(data), `"detected_smells":null`)
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr string
		check   func(t *testing.T, r Record)
	}{
		{
			name:  "valid record",
			input: `{"url":"https://example.com/acme/foo","repo_name":"foo","maintainer":"acme","detected_smells":2,"checked_manually":true}`,
			check: func(t *testing.T, r Record) {
				require.Equal(t, "foo", r.Name())
				n, ok := r.Smells()
				require.True(t, ok)
				require.Equal(t, 2, n)
				require.True(t, r.CheckedManually)
			},
		},
		{
			name:  "null smells",
			input: `{"url":"https://example.com/acme/foo","repo_name":"foo","maintainer":"acme","detected_smells":null,"checked_manually":false}`,
			check: func(t *testing.T, r Record) {
				require.Nil(t, r.DetectedSmells)
			},
		},
		{
			name:    "stored name disagrees with url",
			input:   `{"url":"https://example.com/acme/foo","repo_name":"bar","maintainer":"acme","detected_smells":null,"checked_manually":false}`,
			wantErr: "stores repo_name 'bar'",
		},
		{
			name:    "negative smells",
			input:   `{"url":"https://example.com/acme/foo","repo_name":"foo","maintainer":"acme","detected_smells":-1,"checked_manually":false}`,
			wantErr: "negative detected_smells",
		},
		{
			name:    "invalid url",
			input:   `{"url":"foo","repo_name":"foo","maintainer":"","detected_smells":null,"checked_manually":false}`,
			wantErr: "invalid repository url",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var r Record
			err := json.Unmarshal([]byte(tc.input), &r)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			tc.check(t, r)
		})
	}
}

func TestNames(t *testing.T) {
	t.Parallel()

	a, err := New("https://example.com/acme/foo")
	require.NoError(t, err)
	b, err := New("https://example.com/other/bar")
	require.NoError(t, err)

	require.Equal(t, []string{"foo", "bar"}, Names([]Record{a, b}))
	require.Empty(t, Names(nil))
}
