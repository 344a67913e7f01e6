package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// ledgerCount is a sample payload for handler tests.
type ledgerCount struct {
	Ledger  string `json:"ledger" yaml:"ledger"`
	Records int    `json:"records" yaml:"records"`
}

func TestNewJSONHandler_Writer(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	h := NewJSONHandler[ledgerCount](buf, 2)
	require.Equal(t, buf, h.Writer())
}

func TestJSONHandler_HandleResults(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	h := NewJSONHandler[ledgerCount](buf, 2)

	err := h.HandleResults(ledgerCount{"approved", 3}, ledgerCount{"denied", 1})
	require.NoError(t, err)

	expected := `{
  "results": [
    {
      "ledger": "approved",
      "records": 3
    },
    {
      "ledger": "denied",
      "records": 1
    }
  ]
}` + "\n"
	require.Equal(t, expected, buf.String())
}

func TestJSONHandler_HandleResults_Empty(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	h := NewJSONHandler[ledgerCount](buf, 0)

	require.NoError(t, h.HandleResults())
	require.Equal(t, `{"results":null}`+"\n", buf.String())
}

func TestJSONHandler_HandleResult(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	h := NewJSONHandler[ledgerCount](buf, 0)

	require.NoError(t, h.HandleResult(ledgerCount{"manual_check", 2}))
	require.Equal(t, `{"result":{"ledger":"manual_check","records":2}}`+"\n", buf.String())
}

func TestJSONHandler_HandleError(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	h := NewJSONHandler[ledgerCount](buf, 4)

	err := h.HandleError(errors.New("ledger corrupt"))
	require.NoError(t, err)

	expected := `{
    "error": "ledger corrupt"
}` + "\n"
	require.Equal(t, expected, buf.String())
}
