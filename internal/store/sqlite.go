package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/renaissanceplanning/pmt-cli/internal/contiguity"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	cell_size     REAL NOT NULL,
	chunks        INTEGER NOT NULL,
	weights       TEXT NOT NULL,
	stats         TEXT NOT NULL,
	area_scaling  INTEGER NOT NULL DEFAULT 0,
	parcel_count  INTEGER NOT NULL DEFAULT 0,
	polygon_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS polygon_contiguity (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	poly_id          INTEGER NOT NULL,
	parcel_id        TEXT NOT NULL,
	chunk_id         INTEGER NOT NULL,
	contiguity       REAL NOT NULL,
	developable_area REAL NOT NULL,
	geom             BLOB,
	PRIMARY KEY (run_id, poly_id)
);

CREATE TABLE IF NOT EXISTS parcel_summary (
	run_id           TEXT NOT NULL REFERENCES runs(id),
	parcel_id        TEXT NOT NULL,
	developable_area REAL NOT NULL,
	contiguity       TEXT NOT NULL,
	scaled_area      TEXT,
	PRIMARY KEY (run_id, parcel_id)
);

CREATE INDEX IF NOT EXISTS idx_polygon_contiguity_parcel ON polygon_contiguity(run_id, parcel_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, cell_size, chunks, weights, stats, area_scaling, parcel_count, polygon_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, createdAt, run.CellSize, run.Chunks, run.Weights, string(stats),
		boolInt(run.AreaScaling), run.ParcelCount, run.PolygonCount,
	)
	return eris.Wrap(err, "sqlite: save run")
}

func (s *SQLiteStore) SavePolygons(ctx context.Context, runID string, rows []contiguity.PolygonResult, geoms map[int32][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO polygon_contiguity (run_id, poly_id, parcel_id, chunk_id, contiguity, developable_area, geom)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare polygon insert")
	}
	defer stmt.Close()

	for _, r := range rows {
		var geom any
		if g, ok := geoms[r.PolyID]; ok {
			geom = g
		}
		if _, err := stmt.ExecContext(ctx, runID, r.PolyID, r.ParcelID, r.ChunkID, r.Contiguity, r.DevelopableArea, geom); err != nil {
			return eris.Wrapf(err, "sqlite: insert polygon %d", r.PolyID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit polygons")
}

func (s *SQLiteStore) SaveSummaries(ctx context.Context, runID string, rows []contiguity.ParcelSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO parcel_summary (run_id, parcel_id, developable_area, contiguity, scaled_area)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare summary insert")
	}
	defer stmt.Close()

	for _, r := range rows {
		ctgy, scaled, err := marshalSummary(r)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, runID, r.ParcelID, r.DevelopableArea, ctgy, scaled); err != nil {
			return eris.Wrapf(err, "sqlite: insert summary %s", r.ParcelID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit summaries")
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, cell_size, chunks, weights, stats, area_scaling, parcel_count, polygon_count
		 FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, cell_size, chunks, weights, stats, area_scaling, parcel_count, polygon_count
		 FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) GetPolygons(ctx context.Context, runID string) ([]contiguity.PolygonResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT poly_id, parcel_id, chunk_id, contiguity, developable_area
		 FROM polygon_contiguity WHERE run_id = ? ORDER BY poly_id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get polygons")
	}
	defer rows.Close()

	var out []contiguity.PolygonResult
	for rows.Next() {
		var r contiguity.PolygonResult
		if err := rows.Scan(&r.PolyID, &r.ParcelID, &r.ChunkID, &r.Contiguity, &r.DevelopableArea); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan polygon")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate polygons")
}

func (s *SQLiteStore) GetSummaries(ctx context.Context, runID string) ([]contiguity.ParcelSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT parcel_id, developable_area, contiguity, scaled_area
		 FROM parcel_summary WHERE run_id = ? ORDER BY parcel_id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get summaries")
	}
	defer rows.Close()

	var out []contiguity.ParcelSummary
	for rows.Next() {
		var (
			r      contiguity.ParcelSummary
			ctgy   string
			scaled sql.NullString
		)
		if err := rows.Scan(&r.ParcelID, &r.DevelopableArea, &ctgy, &scaled); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan summary")
		}
		if err := unmarshalSummary(&r, ctgy, scaled.String); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate summaries")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run     Run
		stats   string
		scaling int
	)
	if err := row.Scan(&run.ID, &run.CreatedAt, &run.CellSize, &run.Chunks, &run.Weights, &stats, &scaling, &run.ParcelCount, &run.PolygonCount); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := json.Unmarshal([]byte(stats), &run.Stats); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal stats")
	}
	run.AreaScaling = scaling != 0
	return &run, nil
}

func marshalSummary(r contiguity.ParcelSummary) (string, any, error) {
	ctgy, err := json.Marshal(r.Contiguity)
	if err != nil {
		return "", nil, eris.Wrapf(err, "store: marshal contiguity for %s", r.ParcelID)
	}
	var scaled any
	if r.ScaledArea != nil {
		b, err := json.Marshal(r.ScaledArea)
		if err != nil {
			return "", nil, eris.Wrapf(err, "store: marshal scaled area for %s", r.ParcelID)
		}
		scaled = string(b)
	}
	return string(ctgy), scaled, nil
}

func unmarshalSummary(r *contiguity.ParcelSummary, ctgy, scaled string) error {
	if err := json.Unmarshal([]byte(ctgy), &r.Contiguity); err != nil {
		return eris.Wrapf(err, "store: unmarshal contiguity for %s", r.ParcelID)
	}
	if scaled != "" {
		if err := json.Unmarshal([]byte(scaled), &r.ScaledArea); err != nil {
			return eris.Wrapf(err, "store: unmarshal scaled area for %s", r.ParcelID)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
