package cliutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/nonibytes/docfilter/docfilter"
	"github.com/nonibytes/docfilter/docfilter/compile"
	"github.com/nonibytes/docfilter/docfilter/query"
	"github.com/nonibytes/docfilter/docfilter/storage"
	"github.com/nonibytes/docfilter/docfilter/storage/postgres"
	"github.com/nonibytes/docfilter/docfilter/storage/sqlite"
	"github.com/nonibytes/docfilter/internal/config"
)

type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(s) {
	case FormatText, FormatJSON:
		return OutputFormat(s)
	default:
		return FormatText
	}
}

// Env is what every command runs against.
type Env struct {
	Config config.Config
	Log    *zap.Logger
	Format OutputFormat

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Compiler returns a compiler for the configured dialect.
func (e *Env) Compiler() (*compile.Compiler, error) {
	ops, err := compile.DialectByName(e.Config.Dialect)
	if err != nil {
		return nil, err
	}
	return compile.New(ops)
}

// Adapter maps the configured backend onto a storage adapter.
func (e *Env) Adapter() storage.Adapter {
	switch strings.ToLower(e.Config.Backend) {
	case "postgres", "pg":
		schema := e.Config.Postgres.Schema
		if schema == "" {
			schema = "docfilter"
		}
		return postgres.New(e.Config.Postgres.DSN, schema)
	default:
		driver := e.Config.SQLite.Driver
		if driver == "" {
			driver = sqlite.DriverModernc
		}
		return sqlite.NewWithDriver(e.Config.SQLite.Path, driver)
	}
}

// OpenStore opens the configured store, creating it first when create is set.
func (e *Env) OpenStore(ctx context.Context, create bool) (*docfilter.Store, error) {
	ops, err := compile.DialectByName(e.Config.Dialect)
	if err != nil {
		return nil, err
	}
	opts := docfilter.Options{Logger: e.Log, Operators: ops}
	if create {
		return docfilter.Create(ctx, e.Adapter(), opts)
	}
	return docfilter.Open(ctx, e.Adapter(), opts)
}

// ReadInput reads path, or stdin when path is empty or "-".
func (e *Env) ReadInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(e.Stdin)
	}
	return os.ReadFile(path)
}

// ReadFilter decodes an optional filter expression file. An empty path
// means no filter.
func (e *Env) ReadFilter(path string) (query.Node, error) {
	if path == "" {
		return nil, nil
	}
	data, err := e.ReadInput(path)
	if err != nil {
		return nil, err
	}
	return query.Decode(data)
}

// Fail reports err on stderr and returns the exit code for it.
func (e *Env) Fail(err error) int {
	fmt.Fprintln(e.Stderr, err)
	return 1
}

// PrintJSON writes v as indented JSON. Nothing is written when v cannot be
// marshalled.
func PrintJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
