package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/renaissanceplanning/pmt-cli/internal/contiguity"
	"github.com/renaissanceplanning/pmt-cli/internal/db"
)

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	cell_size     DOUBLE PRECISION NOT NULL,
	chunks        INTEGER NOT NULL,
	weights       TEXT NOT NULL,
	stats         JSONB NOT NULL,
	area_scaling  BOOLEAN NOT NULL DEFAULT false,
	parcel_count  INTEGER NOT NULL DEFAULT 0,
	polygon_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS polygon_contiguity (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	poly_id          INTEGER NOT NULL,
	parcel_id        TEXT NOT NULL,
	chunk_id         INTEGER NOT NULL,
	contiguity       DOUBLE PRECISION NOT NULL,
	developable_area DOUBLE PRECISION NOT NULL,
	geom             BYTEA,
	PRIMARY KEY (run_id, poly_id)
);

CREATE TABLE IF NOT EXISTS parcel_summary (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	parcel_id        TEXT NOT NULL,
	developable_area DOUBLE PRECISION NOT NULL,
	contiguity       JSONB NOT NULL,
	scaled_area      JSONB,
	PRIMARY KEY (run_id, parcel_id)
);

CREATE INDEX IF NOT EXISTS idx_polygon_contiguity_parcel ON polygon_contiguity(run_id, parcel_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run Run) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal stats")
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, created_at, cell_size, chunks, weights, stats, area_scaling, parcel_count, polygon_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, createdAt, run.CellSize, run.Chunks, run.Weights, stats,
		run.AreaScaling, run.ParcelCount, run.PolygonCount,
	)
	return eris.Wrap(err, "postgres: save run")
}

func (s *PostgresStore) SavePolygons(ctx context.Context, runID string, rows []contiguity.PolygonResult, geoms map[int32][]byte) error {
	copyRows := make([][]any, 0, len(rows))
	for _, r := range rows {
		var geom any
		if g, ok := geoms[r.PolyID]; ok {
			geom = g
		}
		copyRows = append(copyRows, []any{runID, r.PolyID, r.ParcelID, r.ChunkID, r.Contiguity, r.DevelopableArea, geom})
	}
	_, err := db.CopyFrom(ctx, s.pool, "polygon_contiguity",
		[]string{"run_id", "poly_id", "parcel_id", "chunk_id", "contiguity", "developable_area", "geom"},
		copyRows,
	)
	return err
}

func (s *PostgresStore) SaveSummaries(ctx context.Context, runID string, rows []contiguity.ParcelSummary) error {
	copyRows := make([][]any, 0, len(rows))
	for _, r := range rows {
		ctgy, scaled, err := marshalSummary(r)
		if err != nil {
			return err
		}
		copyRows = append(copyRows, []any{runID, r.ParcelID, r.DevelopableArea, ctgy, scaled})
	}
	_, err := db.CopyFrom(ctx, s.pool, "parcel_summary",
		[]string{"run_id", "parcel_id", "developable_area", "contiguity", "scaled_area"},
		copyRows,
	)
	return err
}

func (s *PostgresStore) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, created_at, cell_size, chunks, weights, stats, area_scaling, parcel_count, polygon_count
		 FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanPGRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, created_at, cell_size, chunks, weights, stats, area_scaling, parcel_count, polygon_count
		 FROM runs WHERE id = $1`, runID)
	run, err := scanPGRun(row)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (s *PostgresStore) GetPolygons(ctx context.Context, runID string) ([]contiguity.PolygonResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT poly_id, parcel_id, chunk_id, contiguity, developable_area
		 FROM polygon_contiguity WHERE run_id = $1 ORDER BY poly_id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get polygons")
	}
	defer rows.Close()

	var out []contiguity.PolygonResult
	for rows.Next() {
		var r contiguity.PolygonResult
		if err := rows.Scan(&r.PolyID, &r.ParcelID, &r.ChunkID, &r.Contiguity, &r.DevelopableArea); err != nil {
			return nil, eris.Wrap(err, "postgres: scan polygon")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate polygons")
}

func (s *PostgresStore) GetSummaries(ctx context.Context, runID string) ([]contiguity.ParcelSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT parcel_id, developable_area, contiguity, scaled_area
		 FROM parcel_summary WHERE run_id = $1 ORDER BY parcel_id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get summaries")
	}
	defer rows.Close()

	var out []contiguity.ParcelSummary
	for rows.Next() {
		var (
			r      contiguity.ParcelSummary
			ctgy   []byte
			scaled []byte
		)
		if err := rows.Scan(&r.ParcelID, &r.DevelopableArea, &ctgy, &scaled); err != nil {
			return nil, eris.Wrap(err, "postgres: scan summary")
		}
		if err := unmarshalSummary(&r, string(ctgy), string(scaled)); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate summaries")
}

func scanPGRun(row pgx.Row) (*Run, error) {
	var (
		run   Run
		stats []byte
	)
	if err := row.Scan(&run.ID, &run.CreatedAt, &run.CellSize, &run.Chunks, &run.Weights, &stats, &run.AreaScaling, &run.ParcelCount, &run.PolygonCount); err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	if err := json.Unmarshal(stats, &run.Stats); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal stats")
	}
	return &run, nil
}
