package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	dferrors "github.com/nonibytes/docfilter/docfilter/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docfilter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: postgres
postgres:
  dsn: postgres://localhost/db
dialect: symbol
log:
  level: debug
histogram:
  max_bins: 20
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Backend)
	require.Equal(t, "postgres://localhost/db", cfg.Postgres.DSN)
	require.Equal(t, "docfilter", cfg.Postgres.Schema)
	require.Equal(t, "symbol", cfg.Dialect)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
	require.Equal(t, 20, cfg.Histogram.MaxBins)
	require.Equal(t, "docfilter.db", cfg.SQLite.Path)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.True(t, dferrors.Is(err, dferrors.ErrConfig))

	for name, doc := range map[string]string{
		"yaml":    "backend: [",
		"backend": "backend: redis",
		"dsn":     "backend: postgres",
		"dialect": "dialect: sql",
		"bins":    "histogram: {max_bins: -1}",
		"sqlite":  "sqlite: {path: ''}",
	} {
		_, err := Parse([]byte(doc))
		require.True(t, dferrors.Is(err, dferrors.ErrConfig), name)
	}
}
