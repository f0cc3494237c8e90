package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renaissanceplanning/pmt-cli/internal/contiguity"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgres(mock), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun(t *testing.T) {
	st, mock := newMockStore(t)

	run := Run{
		ID:          "run-1",
		CreatedAt:   time.Now().UTC(),
		CellSize:    40,
		Chunks:      20,
		Weights:     "queen",
		Stats:       []string{"mean"},
		AreaScaling: true,
	}
	mock.ExpectExec("INSERT INTO runs").
		WithArgs(run.ID, run.CreatedAt, run.CellSize, run.Chunks, run.Weights,
			[]byte(`["mean"]`), run.AreaScaling, run.ParcelCount, run.PolygonCount).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.SaveRun(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePolygons_Copy(t *testing.T) {
	st, mock := newMockStore(t)

	rows := []contiguity.PolygonResult{
		{PolyID: 1, ParcelID: "A", ChunkID: 0, Contiguity: 0.5, DevelopableArea: 9},
		{PolyID: 2, ParcelID: "B", ChunkID: 1},
	}
	mock.ExpectCopyFrom(pgx.Identifier{"polygon_contiguity"},
		[]string{"run_id", "poly_id", "parcel_id", "chunk_id", "contiguity", "developable_area", "geom"}).
		WillReturnResult(2)

	require.NoError(t, st.SavePolygons(context.Background(), "run-1", rows, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePolygons_Empty(t *testing.T) {
	st, mock := newMockStore(t)

	// No COPY is issued for an empty batch.
	require.NoError(t, st.SavePolygons(context.Background(), "run-1", nil, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSummaries_Copy(t *testing.T) {
	st, mock := newMockStore(t)

	rows := []contiguity.ParcelSummary{
		{ParcelID: "A", DevelopableArea: 9, Contiguity: map[contiguity.Stat]float64{contiguity.StatMean: 0.5}},
	}
	mock.ExpectCopyFrom(pgx.Identifier{"parcel_summary"},
		[]string{"run_id", "parcel_id", "developable_area", "contiguity", "scaled_area"}).
		WillReturnResult(1)

	require.NoError(t, st.SaveSummaries(context.Background(), "run-1", rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	st, mock := newMockStore(t)
	created := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM runs WHERE id").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "created_at", "cell_size", "chunks", "weights", "stats", "area_scaling", "parcel_count", "polygon_count"}).
			AddRow("run-1", created, 40.0, 20, "nn", []byte(`["mean","median"]`), true, 3, 5))

	run, err := st.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, []string{"mean", "median"}, run.Stats)
	assert.True(t, run.AreaScaling)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_Missing(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM runs WHERE id").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	run, err := st.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, run)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPolygons(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM polygon_contiguity").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(
			[]string{"poly_id", "parcel_id", "chunk_id", "contiguity", "developable_area"}).
			AddRow(int32(1), "A", 0, 0.5, 9.0).
			AddRow(int32(2), "B", 1, 0.0, 0.0))

	got, err := st.GetPolygons(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].ParcelID)
	assert.Equal(t, 0.5, got[0].Contiguity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSummaries(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM parcel_summary").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(
			[]string{"parcel_id", "developable_area", "contiguity", "scaled_area"}).
			AddRow("A", 9.0, []byte(`{"mean":0.5}`), []byte(`{"mean":4.5}`)).
			AddRow("B", 0.0, []byte(`{"mean":0}`), []byte(nil)))

	got, err := st.GetSummaries(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, map[contiguity.Stat]float64{contiguity.StatMean: 0.5}, got[0].Contiguity)
	assert.Equal(t, map[contiguity.Stat]float64{contiguity.StatMean: 4.5}, got[0].ScaledArea)
	assert.Nil(t, got[1].ScaledArea)
	require.NoError(t, mock.ExpectationsWereMet())
}
