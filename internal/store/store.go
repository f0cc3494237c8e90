// Package store persists contiguity runs, the polygon-level audit table, and
// parcel summaries behind a backend-agnostic interface.
package store

import (
	"context"
	"time"

	"github.com/renaissanceplanning/pmt-cli/internal/contiguity"
)

// Run records the parameters and scale of one pipeline invocation.
type Run struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	CellSize     float64   `json:"cell_size"`
	Chunks       int       `json:"chunks"`
	Weights      string    `json:"weights"`
	Stats        []string  `json:"stats"`
	AreaScaling  bool      `json:"area_scaling"`
	ParcelCount  int       `json:"parcel_count"`
	PolygonCount int       `json:"polygon_count"`
}

// Store is the tabular persistence backend.
type Store interface {
	// Migrate creates the schema if needed.
	Migrate(ctx context.Context) error

	// SaveRun records a completed run's parameters.
	SaveRun(ctx context.Context, run Run) error

	// SavePolygons writes the polygon-level audit rows for a run. geoms may
	// carry EWKB geometry per polygon id; missing entries store NULL.
	SavePolygons(ctx context.Context, runID string, rows []contiguity.PolygonResult, geoms map[int32][]byte) error

	// SaveSummaries writes the parcel summary rows for a run.
	SaveSummaries(ctx context.Context, runID string, rows []contiguity.ParcelSummary) error

	// ListRuns returns all runs, newest first.
	ListRuns(ctx context.Context) ([]Run, error)

	// GetRun returns one run by id, or nil if absent.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// GetPolygons returns a run's audit rows ordered by polygon id.
	GetPolygons(ctx context.Context, runID string) ([]contiguity.PolygonResult, error)

	// GetSummaries returns a run's parcel summaries ordered by parcel id.
	GetSummaries(ctx context.Context, runID string) ([]contiguity.ParcelSummary, error)

	Close() error
}
