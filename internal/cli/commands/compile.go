package commands

import (
	"flag"
	"fmt"

	"github.com/nonibytes/docfilter/docfilter/query"
	"github.com/nonibytes/docfilter/internal/cliutil"
)

// RunCompile reads a transport-encoded expression and prints the compiled
// filter document.
func RunCompile(env *cliutil.Env, argv []string) int {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	var file string
	fs.StringVar(&file, "f", "", "expression file (default stdin)")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	data, err := env.ReadInput(file)
	if err != nil {
		return env.Fail(err)
	}
	expr, err := query.Decode(data)
	if err != nil {
		return env.Fail(err)
	}
	c, err := env.Compiler()
	if err != nil {
		return env.Fail(err)
	}
	doc, err := c.CompileFilter(expr)
	if err != nil {
		return env.Fail(err)
	}

	if env.Format == cliutil.FormatJSON {
		if err := cliutil.PrintJSON(env.Stdout, doc); err != nil {
			return env.Fail(err)
		}
		return 0
	}
	b, err := doc.MarshalJSON()
	if err != nil {
		return env.Fail(err)
	}
	fmt.Fprintln(env.Stdout, string(b))
	return 0
}

// RunNormalize prints the negation normal form of an expression.
func RunNormalize(env *cliutil.Env, argv []string) int {
	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	var file string
	fs.StringVar(&file, "f", "", "expression file (default stdin)")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	data, err := env.ReadInput(file)
	if err != nil {
		return env.Fail(err)
	}
	expr, err := query.Decode(data)
	if err != nil {
		return env.Fail(err)
	}
	nnf, err := query.Normalize(expr)
	if err != nil {
		return env.Fail(err)
	}

	if env.Format == cliutil.FormatJSON {
		b, err := query.Encode(nnf)
		if err != nil {
			return env.Fail(err)
		}
		fmt.Fprintln(env.Stdout, string(b))
		return 0
	}
	fmt.Fprintln(env.Stdout, nnf.String())
	return 0
}
