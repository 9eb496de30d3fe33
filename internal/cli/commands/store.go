package commands

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/nonibytes/docfilter/internal/cliutil"
)

const loadBatchSize = 500

// RunStore handles store lifecycle: create, load, collections, drop.
func RunStore(env *cliutil.Env, argv []string) int {
	if len(argv) == 0 {
		fmt.Fprintln(env.Stderr, "usage: docfilter store <create|load|collections|drop>")
		return 2
	}
	ctx := context.Background()
	switch argv[0] {
	case "create":
		st, err := env.OpenStore(ctx, true)
		if err != nil {
			return env.Fail(err)
		}
		defer st.Close()
		fmt.Fprintln(env.Stdout, "created")
		return 0
	case "load":
		return runLoad(ctx, env, argv[1:])
	case "collections":
		st, err := env.OpenStore(ctx, false)
		if err != nil {
			return env.Fail(err)
		}
		defer st.Close()
		cols, err := st.Collections(ctx)
		if err != nil {
			return env.Fail(err)
		}
		if env.Format == cliutil.FormatJSON {
			if err := cliutil.PrintJSON(env.Stdout, cols); err != nil {
				return env.Fail(err)
			}
			return 0
		}
		names := make([]string, 0, len(cols))
		for name := range cols {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(env.Stdout, "%s\t%d\n", name, cols[name])
		}
		return 0
	case "drop":
		fs := flag.NewFlagSet("store drop", flag.ContinueOnError)
		fs.SetOutput(env.Stderr)
		var collection string
		fs.StringVar(&collection, "c", "", "collection")
		if err := fs.Parse(argv[1:]); err != nil {
			return 2
		}
		if collection == "" {
			fmt.Fprintln(env.Stderr, "missing -c")
			return 2
		}
		st, err := env.OpenStore(ctx, false)
		if err != nil {
			return env.Fail(err)
		}
		defer st.Close()
		n, err := st.Drop(ctx, collection)
		if err != nil {
			return env.Fail(err)
		}
		fmt.Fprintf(env.Stdout, "dropped %d\n", n)
		return 0
	default:
		fmt.Fprintf(env.Stderr, "unknown store command: %s\n", argv[0])
		return 2
	}
}

// runLoad imports JSON lines into a collection, creating the store if needed.
func runLoad(ctx context.Context, env *cliutil.Env, argv []string) int {
	fs := flag.NewFlagSet("store load", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	var collection, file string
	fs.StringVar(&collection, "c", "", "collection")
	fs.StringVar(&file, "f", "", "JSON lines file (default stdin)")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if collection == "" {
		fmt.Fprintln(env.Stderr, "missing -c")
		return 2
	}

	r := env.Stdin
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return env.Fail(err)
		}
		defer f.Close()
		r = f
	}

	st, err := env.OpenStore(ctx, true)
	if err != nil {
		return env.Fail(err)
	}
	defer st.Close()

	var (
		batch [][]byte
		total int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		ids, err := st.InsertMany(ctx, collection, batch)
		if err != nil {
			return err
		}
		total += len(ids)
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		batch = append(batch, append([]byte(nil), line...))
		if len(batch) >= loadBatchSize {
			if err := flush(); err != nil {
				return env.Fail(err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return env.Fail(err)
	}
	if err := flush(); err != nil {
		return env.Fail(err)
	}
	env.Log.Info("loaded documents", zap.String("collection", collection), zap.Int("count", total))
	fmt.Fprintf(env.Stdout, "loaded %d\n", total)
	return 0
}
