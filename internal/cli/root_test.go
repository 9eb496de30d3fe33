package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const notAnd = `{"operator":"not","operands":{"operator":"and","operands":[
	{"operator":"<","operands":[{"identifier":"age","type":"integer"},30]},
	{"operator":"=","operands":[{"identifier":"sex"},"m"]}]}}`

func run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestHelp(t *testing.T) {
	code, out, _ := run(t, "")
	require.Equal(t, 0, code)
	require.Contains(t, out, "USAGE")

	code, _, errOut := run(t, "", "frobnicate")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "unknown command: frobnicate")
}

func TestCompileCommand(t *testing.T) {
	code, out, errOut := run(t, notAnd, "compile")
	require.Equal(t, 0, code, errOut)
	require.Equal(t, `{"$or":[{"age":{"$gte":30}},{"sex":{"$ne":"m"}}]}`, strings.TrimSpace(out))

	code, out, errOut = run(t, notAnd, "-dialect", "symbol", "compile")
	require.Equal(t, 0, code, errOut)
	require.Equal(t, `{"or":[{"age":{">=":30}},{"sex":{"!=":"m"}}]}`, strings.TrimSpace(out))

	code, _, errOut = run(t, `{"operator":"xor","operands":[]}`, "compile")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "xor")
}

func TestNormalizeCommand(t *testing.T) {
	code, out, errOut := run(t, notAnd, "-format", "json", "normalize")
	require.Equal(t, 0, code, errOut)

	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	require.Equal(t, "or", v["operator"])
}

func TestCastCommand(t *testing.T) {
	code, out, errOut := run(t, "", "cast", "-type", "date", "-value", "1577836800000")
	require.Equal(t, 0, code, errOut)
	require.Equal(t, `{"result":{"$date":"2020-01-01T00:00:00.000Z"}}`, strings.TrimSpace(out))

	code, out, _ = run(t, "", "cast", "-type", "integer", "-value", "abc")
	require.Equal(t, 0, code)
	require.Equal(t, `{"result":{"$numberDouble":"NaN"}}`, strings.TrimSpace(out))

	code, _, errOut = run(t, "", "cast", "-type", "uuid", "-value", "1")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "uuid")
}

func TestStoreWorkflow(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cli.db")
	filter := filepath.Join(dir, "filter.json")
	require.NoError(t, os.WriteFile(filter, []byte(notAnd), 0o600))

	docs := strings.Join([]string{
		`{"age": 25, "sex": "m"}`,
		`{"age": 25, "sex": "f"}`,
		``,
		`{"age": 40, "sex": "m"}`,
	}, "\n")

	global := []string{"-sqlite-path", db, "-log-level", "error"}
	args := func(cmd ...string) []string { return append(append([]string{}, global...), cmd...) }

	code, out, errOut := run(t, docs, args("store", "load", "-c", "people")...)
	require.Equal(t, 0, code, errOut)
	require.Equal(t, "loaded 3\n", out)

	code, out, errOut = run(t, "", args("count", "-c", "people")...)
	require.Equal(t, 0, code, errOut)
	require.Equal(t, "3\n", out)

	code, out, errOut = run(t, "", args("count", "-c", "people", "-w", filter)...)
	require.Equal(t, 0, code, errOut)
	require.Equal(t, "2\n", out)

	code, out, errOut = run(t, "", args("find", "-c", "people", "-w", filter)...)
	require.Equal(t, 0, code, errOut)
	require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	code, out, errOut = run(t, "", args("-format", "json", "histogram", "-c", "people", "-field", "age,sex", "-type", "")...)
	require.Equal(t, 0, code, errOut)
	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	require.Equal(t, "age", results[0]["field"])
	require.Equal(t, "sex", results[1]["field"])

	code, out, errOut = run(t, "", args("histogram", "-c", "people", "-field", "age", "-type", "integer", "-bins", "2")...)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "age: total 3, nulls 0, invalid 0")

	code, out, errOut = run(t, "", args("store", "collections")...)
	require.Equal(t, 0, code, errOut)
	require.Equal(t, "people\t3\n", out)

	code, out, errOut = run(t, "", args("store", "drop", "-c", "people")...)
	require.Equal(t, 0, code, errOut)
	require.Equal(t, "dropped 3\n", out)
}

func TestCountRequiresStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "missing.db")
	code, _, _ := run(t, "", "-sqlite-path", db, "-log-level", "error", "count", "-c", "x")
	require.Equal(t, 1, code)
}
