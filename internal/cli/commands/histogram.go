package commands

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nonibytes/docfilter/docfilter/histogram"
	"github.com/nonibytes/docfilter/docfilter/query"
	"github.com/nonibytes/docfilter/internal/cliutil"
)

// RunHistogram bins one or more fields. -field takes a comma-separated list;
// every field gets the same -type.
func RunHistogram(env *cliutil.Env, argv []string) int {
	fs := flag.NewFlagSet("histogram", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	var q queryFlags
	var fields, typ string
	var bins int
	var categorical bool
	q.bind(fs)
	fs.StringVar(&fields, "field", "", "field identifier(s), comma-separated")
	fs.StringVar(&typ, "type", "", "type tag for the field values")
	fs.IntVar(&bins, "bins", histogram.DefaultBins, "bins for numeric and date fields")
	fs.BoolVar(&categorical, "categorical", false, "count distinct values even for numeric fields")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if q.collection == "" || fields == "" {
		fmt.Fprintln(env.Stderr, "missing -c or -field")
		return 2
	}

	expr, err := env.ReadFilter(q.where)
	if err != nil {
		return env.Fail(err)
	}
	compiler, err := env.Compiler()
	if err != nil {
		return env.Fail(err)
	}

	ctx := context.Background()
	st, err := env.OpenStore(ctx, false)
	if err != nil {
		return env.Fail(err)
	}
	defer st.Close()

	svc, err := histogram.NewService(st, histogram.Config{
		Compiler:    compiler,
		Logger:      env.Log,
		Registerer:  prometheus.NewRegistry(),
		MaxBins:     env.Config.Histogram.MaxBins,
		Concurrency: env.Config.Histogram.Concurrency,
	})
	if err != nil {
		return env.Fail(err)
	}

	var reqs []histogram.Request
	for _, f := range strings.Split(fields, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		reqs = append(reqs, histogram.Request{
			Collection:  q.collection,
			Field:       query.FieldRef{Identifier: f, Type: query.TypeTag(typ)},
			Bins:        bins,
			Filter:      expr,
			Categorical: categorical,
		})
	}
	results, err := svc.Histograms(ctx, reqs)
	if err != nil {
		return env.Fail(err)
	}

	if env.Format == cliutil.FormatJSON {
		if err := cliutil.PrintJSON(env.Stdout, results); err != nil {
			return env.Fail(err)
		}
		return 0
	}
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(env.Stdout)
		}
		fmt.Fprintf(env.Stdout, "%s: total %d, nulls %d, invalid %d\n", r.Field, r.Total, r.Nulls, r.Invalid)
		if st := r.Stats; st != nil {
			fmt.Fprintf(env.Stdout, "  min %g, max %g, mean %g, median %g\n", st.Min, st.Max, st.Mean, st.Median)
		}
		for _, b := range r.Bins {
			fmt.Fprintf(env.Stdout, "  %-40s %d\n", b.Label, b.Count)
		}
	}
	return 0
}
