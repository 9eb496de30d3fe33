package commands

import (
	"flag"
	"fmt"

	"github.com/nonibytes/docfilter/docfilter/cast"
	"github.com/nonibytes/docfilter/docfilter/compile"
	"github.com/nonibytes/docfilter/docfilter/query"
	"github.com/nonibytes/docfilter/internal/cliutil"
)

func RunCast(env *cliutil.Env, argv []string) int {
	fs := flag.NewFlagSet("cast", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	var typ, raw string
	fs.StringVar(&typ, "type", "", "type tag: objectid|integer|number|boolean|string|date")
	fs.StringVar(&typ, "t", "", "type tag")
	fs.StringVar(&raw, "value", "", "literal, as JSON or a bare string")
	fs.StringVar(&raw, "v", "", "literal")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	v, err := query.ParseValue(raw)
	if err != nil {
		return env.Fail(err)
	}
	out, err := cast.Cast(v, query.TypeTag(typ))
	if err != nil {
		return env.Fail(err)
	}

	// Document renders dates, identifiers and NaN in extended JSON.
	doc := compile.Document{"input": v.Interface(), "type": typ, "result": out}
	if env.Format == cliutil.FormatJSON {
		if err := cliutil.PrintJSON(env.Stdout, doc); err != nil {
			return env.Fail(err)
		}
		return 0
	}
	b, err := compile.Document{"result": out}.MarshalJSON()
	if err != nil {
		return env.Fail(err)
	}
	fmt.Fprintln(env.Stdout, string(b))
	return 0
}
