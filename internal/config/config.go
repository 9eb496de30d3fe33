// Package config loads the CLI configuration file. Command-line flags
// override whatever the file sets.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nonibytes/docfilter/docfilter/compile"
	dferrors "github.com/nonibytes/docfilter/docfilter/errors"
	"github.com/nonibytes/docfilter/internal/logging"
)

type Config struct {
	Backend   string          `yaml:"backend"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Dialect   string          `yaml:"dialect"`
	Log       logging.Config  `yaml:"log"`
	Histogram HistogramConfig `yaml:"histogram"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo builds only).
	Driver string `yaml:"driver,omitempty"`
}

type PostgresConfig struct {
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema,omitempty"`
}

type HistogramConfig struct {
	MaxBins     int `yaml:"max_bins,omitempty"`
	Concurrency int `yaml:"concurrency,omitempty"`
}

func Default() Config {
	return Config{
		Backend:  "sqlite",
		SQLite:   SQLiteConfig{Path: "docfilter.db", Driver: "sqlite"},
		Postgres: PostgresConfig{Schema: "docfilter"},
		Dialect:  compile.MongoDialect.Name,
		Log:      logging.Config{Level: "info", Format: "console"},
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, dferrors.Wrap(dferrors.ErrConfig, "invalid YAML", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, dferrors.Wrap(dferrors.ErrConfig, fmt.Sprintf("cannot read %s", path), err)
	}
	return Parse(data)
}

func (c Config) Validate() error {
	switch c.Backend {
	case "sqlite":
		if c.SQLite.Path == "" {
			return dferrors.NewError(dferrors.ErrConfig, "sqlite.path is required")
		}
	case "postgres", "pg":
		if c.Postgres.DSN == "" {
			return dferrors.NewError(dferrors.ErrConfig, "postgres.dsn is required")
		}
	default:
		return dferrors.NewError(dferrors.ErrConfig, fmt.Sprintf("unknown backend %q", c.Backend))
	}
	if _, err := compile.DialectByName(c.Dialect); err != nil {
		return dferrors.Wrap(dferrors.ErrConfig, "dialect", err)
	}
	if c.Histogram.MaxBins < 0 || c.Histogram.Concurrency < 0 {
		return dferrors.NewError(dferrors.ErrConfig, "histogram limits must not be negative")
	}
	return nil
}
