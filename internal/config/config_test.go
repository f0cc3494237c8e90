package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes into dir for the duration of the test, restoring the previous
// working directory on cleanup. Stand-in for t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "pmt.db", cfg.Store.Path)
	assert.Equal(t, "PARCELNO", cfg.Contiguity.ParcelIDField)
	assert.Equal(t, 40.0, cfg.Contiguity.CellSize)
	assert.Equal(t, 20, cfg.Contiguity.Chunks)
	assert.Equal(t, "nn", cfg.Contiguity.Weights)
	assert.Equal(t, []string{"min", "max", "mean", "median"}, cfg.Contiguity.Stats)
	assert.True(t, cfg.Contiguity.AreaScaling)
	assert.Equal(t, 43560.0, cfg.Contiguity.AreaUnitDivisor)
	assert.Equal(t, 4, cfg.Contiguity.Workers)
	assert.Equal(t, 2881, cfg.Contiguity.SRID)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `store:
  driver: postgres
  database_url: postgres://localhost/pmt
contiguity:
  cell_size: 25
  weights: queen
  workers: 8
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/pmt", cfg.Store.DatabaseURL)
	assert.Equal(t, 25.0, cfg.Contiguity.CellSize)
	assert.Equal(t, "queen", cfg.Contiguity.Weights)
	assert.Equal(t, 8, cfg.Contiguity.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, 20, cfg.Contiguity.Chunks)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PMT_STORE_DRIVER", "postgres")
	t.Setenv("PMT_CONTIGUITY_WEIGHTS", "rook")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "rook", cfg.Contiguity.Weights)
}

func TestLoad_BadConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: ["), 0o644))
	chdir(t, dir)

	_, err := Load()
	require.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "json"}))
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "console"}))
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
}
