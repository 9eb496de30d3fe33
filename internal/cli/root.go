package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/nonibytes/docfilter/internal/cli/commands"
	"github.com/nonibytes/docfilter/internal/cliopt"
	"github.com/nonibytes/docfilter/internal/cliutil"
	"github.com/nonibytes/docfilter/internal/logging"
)

// Execute runs the CLI and returns an exit code.
func Execute(argv []string) int {
	return Run(argv, os.Stdin, os.Stdout, os.Stderr)
}

// Run is Execute with explicit streams.
func Run(argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	globalFS := flag.NewFlagSet("docfilter", flag.ContinueOnError)
	globalFS.SetOutput(stderr)
	g := cliopt.DefaultGlobalOptions()
	cliopt.BindGlobalFlags(globalFS, &g)

	if err := globalFS.Parse(argv); err != nil {
		// flag package already printed the error
		return 2
	}

	args := globalFS.Args()
	if len(args) == 0 {
		PrintRootHelp(stdout)
		return 0
	}

	verb := args[0]
	rest := args[1:]

	var run func(*cliutil.Env, []string) int
	switch verb {
	case "--help", "-h", "help":
		PrintRootHelp(stdout)
		return 0
	case "compile":
		run = commands.RunCompile
	case "normalize":
		run = commands.RunNormalize
	case "cast":
		run = commands.RunCast
	case "store":
		run = commands.RunStore
	case "count":
		run = commands.RunCount
	case "find":
		run = commands.RunFind
	case "histogram":
		run = commands.RunHistogram
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n", verb)
		PrintRootHelp(stderr)
		return 2
	}

	cfg, err := g.Resolve()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	env := &cliutil.Env{
		Config: cfg,
		Log:    log,
		Format: cliutil.ParseOutputFormat(g.Format),
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}
	return run(env, rest)
}
