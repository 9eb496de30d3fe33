package cliutil

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]any{"count": 3}))
	require.Equal(t, "{\n  \"count\": 3\n}\n", buf.String())
}

func TestPrintJSONReportsMarshalError(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, PrintJSON(&buf, map[string]any{"mean": math.NaN()}))
	require.Empty(t, buf.String())

	var stderr bytes.Buffer
	env := &Env{Stderr: &stderr}
	err := PrintJSON(&buf, func() {})
	require.Error(t, err)
	require.Equal(t, 1, env.Fail(err))
	require.Contains(t, stderr.String(), "unsupported type")
}
