package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renaissanceplanning/pmt-cli/internal/config"
)

func TestResolveKernel_PresetAndFile(t *testing.T) {
	k, err := resolveKernel(config.ContiguityConfig{Weights: "queen"})
	require.NoError(t, err)
	assert.Equal(t, "queen", k.Name())
	assert.Equal(t, 13.0, k.Max())

	path := filepath.Join(t.TempDir(), "weights.yaml")
	content := `top_left: 1
top_center: 1
top_right: 1
middle_left: 1
self: 1
middle_right: 1
bottom_left: 1
bottom_center: 1
bottom_right: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// A weights file takes precedence over the preset.
	k, err = resolveKernel(config.ContiguityConfig{Weights: "queen", WeightsFile: path})
	require.NoError(t, err)
	assert.Equal(t, "custom", k.Name())
	assert.Equal(t, 9.0, k.Max())
}

func TestWriteSummaries_UnsupportedExtension(t *testing.T) {
	err := writeSummaries(filepath.Join(t.TempDir(), "out.parquet"), nil, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")

	err = writePolygons(filepath.Join(t.TempDir(), "out.json"), nil)
	require.Error(t, err)
}

func TestWriteSummaries_CSVAndXLSX(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, writeSummaries(filepath.Join(dir, "out.csv"), nil, nil, false))
	require.NoError(t, writeSummaries(filepath.Join(dir, "out.XLSX"), nil, nil, false))
	require.NoError(t, writePolygons(filepath.Join(dir, "polys.csv"), nil))
}
