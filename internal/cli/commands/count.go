package commands

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/nonibytes/docfilter/docfilter/compile"
	"github.com/nonibytes/docfilter/internal/cliutil"
)

// queryFlags are shared by the commands that select documents.
type queryFlags struct {
	collection string
	where      string
}

func (q *queryFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&q.collection, "c", "", "collection")
	fs.StringVar(&q.where, "w", "", "filter expression file, - for stdin")
}

func (q *queryFlags) filter(env *cliutil.Env) (compile.Document, error) {
	expr, err := env.ReadFilter(q.where)
	if err != nil || expr == nil {
		return nil, err
	}
	c, err := env.Compiler()
	if err != nil {
		return nil, err
	}
	return c.CompileFilter(expr)
}

func RunCount(env *cliutil.Env, argv []string) int {
	fs := flag.NewFlagSet("count", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	var q queryFlags
	q.bind(fs)
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if q.collection == "" {
		fmt.Fprintln(env.Stderr, "missing -c")
		return 2
	}

	filter, err := q.filter(env)
	if err != nil {
		return env.Fail(err)
	}
	ctx := context.Background()
	st, err := env.OpenStore(ctx, false)
	if err != nil {
		return env.Fail(err)
	}
	defer st.Close()

	n, err := st.Count(ctx, q.collection, filter)
	if err != nil {
		return env.Fail(err)
	}
	if env.Format == cliutil.FormatJSON {
		if err := cliutil.PrintJSON(env.Stdout, map[string]any{"collection": q.collection, "count": n}); err != nil {
			return env.Fail(err)
		}
		return 0
	}
	fmt.Fprintln(env.Stdout, n)
	return 0
}

func RunFind(env *cliutil.Env, argv []string) int {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	var q queryFlags
	var limit int
	var after string
	q.bind(fs)
	fs.IntVar(&limit, "limit", 20, "max documents")
	fs.StringVar(&after, "after", "", "cursor from a previous page")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if q.collection == "" {
		fmt.Fprintln(env.Stderr, "missing -c")
		return 2
	}

	filter, err := q.filter(env)
	if err != nil {
		return env.Fail(err)
	}
	ctx := context.Background()
	st, err := env.OpenStore(ctx, false)
	if err != nil {
		return env.Fail(err)
	}
	defer st.Close()

	page, err := st.FindPage(ctx, q.collection, filter, limit, after)
	if err != nil {
		return env.Fail(err)
	}
	if env.Format == cliutil.FormatJSON {
		items := make([]json.RawMessage, len(page.Records))
		for i, r := range page.Records {
			items[i] = r.DocJSON
		}
		out := map[string]any{"items": items, "has_more": page.HasMore}
		if page.NextCursor != "" {
			out["next_cursor"] = page.NextCursor
		}
		if err := cliutil.PrintJSON(env.Stdout, out); err != nil {
			return env.Fail(err)
		}
		return 0
	}
	for _, r := range page.Records {
		fmt.Fprintf(env.Stdout, "%d\t%s\n", r.ID, r.DocJSON)
	}
	if page.HasMore {
		fmt.Fprintf(env.Stderr, "more available (cursor: %s)\n", page.NextCursor)
	}
	return 0
}
