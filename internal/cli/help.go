package cli

import (
	"fmt"
	"io"
)

func PrintRootHelp(w io.Writer) {
	fmt.Fprintln(w, `docfilter - compile filter expressions and run them against a JSON document store

USAGE
  docfilter [global flags] <command> [args]

GLOBAL FLAGS
  -config <file.yaml>
  -backend sqlite|postgres
  -sqlite-path <file.db>
  -sqlite-driver sqlite|sqlite3
  -pg-dsn <dsn>
  -pg-schema <name>
  -dialect mongo|symbol
  -log-level debug|info|warn|error
  -log-format console|json
  -format text|json

COMMANDS
  compile [-f expr.json]              print the compiled filter document
  normalize [-f expr.json]            print the negation normal form
  cast -type <tag> -value <literal>   cast a literal to a field type
  store create
  store load -c <collection> [-f docs.jsonl]
  store collections
  store drop -c <collection>
  count -c <collection> [-w expr.json]
  find -c <collection> [-w expr.json] [-limit N] [-after cursor]
  histogram -c <collection> -field <f[,f...]> [-type <tag>] [-bins N] [-categorical] [-w expr.json]

Expressions use the JSON transport encoding, e.g.
  {"operator": "<", "operands": [{"identifier": "age", "type": "integer"}, 30]}`)
}
