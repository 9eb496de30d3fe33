package cliopt

import (
	"flag"

	"github.com/nonibytes/docfilter/internal/config"
)

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
// Empty values leave the config file setting in place.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command router and per-command code.
type GlobalOptions struct {
	ConfigPath string

	Backend        string
	SQLitePath     string
	SQLiteDriver   string
	PostgresDSN    string
	PostgresSchema string

	Dialect   string
	LogLevel  string
	LogFormat string

	Format string
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{Format: "text"}
}

func BindGlobalFlags(fs *flag.FlagSet, g *GlobalOptions) {
	fs.StringVar(&g.ConfigPath, "config", g.ConfigPath, "YAML config file")

	fs.StringVar(&g.Backend, "backend", g.Backend, "backend: sqlite|postgres")
	fs.StringVar(&g.SQLitePath, "sqlite-path", g.SQLitePath, "sqlite database file")
	fs.StringVar(&g.SQLiteDriver, "sqlite-driver", g.SQLiteDriver, "sqlite driver: sqlite (pure Go) or sqlite3 (cgo)")
	fs.StringVar(&g.PostgresDSN, "pg-dsn", g.PostgresDSN, "postgres DSN")
	fs.StringVar(&g.PostgresSchema, "pg-schema", g.PostgresSchema, "postgres schema (default docfilter)")

	fs.StringVar(&g.Dialect, "dialect", g.Dialect, "operator dialect: mongo|symbol")
	fs.StringVar(&g.LogLevel, "log-level", g.LogLevel, "log level: debug|info|warn|error")
	fs.StringVar(&g.LogFormat, "log-format", g.LogFormat, "log encoding: console|json")

	fs.StringVar(&g.Format, "format", g.Format, "output format: text|json")
}

// Resolve loads the config file and applies the flags on top of it.
func (g GlobalOptions) Resolve() (config.Config, error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return cfg, err
	}
	override(&cfg.Backend, g.Backend)
	override(&cfg.SQLite.Path, g.SQLitePath)
	override(&cfg.SQLite.Driver, g.SQLiteDriver)
	override(&cfg.Postgres.DSN, g.PostgresDSN)
	override(&cfg.Postgres.Schema, g.PostgresSchema)
	override(&cfg.Dialect, g.Dialect)
	override(&cfg.Log.Level, g.LogLevel)
	override(&cfg.Log.Format, g.LogFormat)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
