package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renaissanceplanning/pmt-cli/internal/contiguity"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRun(id string) Run {
	return Run{
		ID:           id,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		CellSize:     40,
		Chunks:       20,
		Weights:      "nn",
		Stats:        []string{"mean", "median"},
		AreaScaling:  true,
		ParcelCount:  3,
		PolygonCount: 5,
	}
}

func TestSQLiteStore_RunRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	want := testRun("run-1")
	require.NoError(t, st.SaveRun(ctx, want))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.CellSize, got.CellSize)
	assert.Equal(t, want.Chunks, got.Chunks)
	assert.Equal(t, want.Weights, got.Weights)
	assert.Equal(t, want.Stats, got.Stats)
	assert.True(t, got.AreaScaling)
	assert.Equal(t, want.ParcelCount, got.ParcelCount)
	assert.Equal(t, want.PolygonCount, got.PolygonCount)
	assert.WithinDuration(t, want.CreatedAt, got.CreatedAt, time.Second)
}

func TestSQLiteStore_GetRun_Missing(t *testing.T) {
	st := newTestStore(t)

	got, err := st.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := testRun("run-a")
	a.CreatedAt = time.Now().UTC().Add(-time.Hour)
	b := testRun("run-b")
	require.NoError(t, st.SaveRun(ctx, a))
	require.NoError(t, st.SaveRun(ctx, b))

	runs, err := st.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID, "newest first")
	assert.Equal(t, "run-a", runs[1].ID)
}

func TestSQLiteStore_Polygons(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, testRun("run-1")))

	rows := []contiguity.PolygonResult{
		{PolyID: 2, ParcelID: "B", ChunkID: 1, Contiguity: 0, DevelopableArea: 0},
		{PolyID: 1, ParcelID: "A", ChunkID: 0, Contiguity: 5.0 / 9.0, DevelopableArea: 9},
	}
	geoms := map[int32][]byte{1: {0x01, 0x02}}
	require.NoError(t, st.SavePolygons(ctx, "run-1", rows, geoms))

	got, err := st.GetPolygons(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int32(1), got[0].PolyID, "ordered by poly id")
	assert.Equal(t, "A", got[0].ParcelID)
	assert.InDelta(t, 5.0/9.0, got[0].Contiguity, 1e-12)
	assert.Equal(t, int32(2), got[1].PolyID)
}

func TestSQLiteStore_Summaries(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, testRun("run-1")))

	rows := []contiguity.ParcelSummary{
		{
			ParcelID:        "A",
			DevelopableArea: 9,
			Contiguity:      map[contiguity.Stat]float64{contiguity.StatMean: 0.5},
			ScaledArea:      map[contiguity.Stat]float64{contiguity.StatMean: 4.5},
		},
		{
			ParcelID:        "B",
			DevelopableArea: 0,
			Contiguity:      map[contiguity.Stat]float64{contiguity.StatMean: 0},
		},
	}
	require.NoError(t, st.SaveSummaries(ctx, "run-1", rows))

	got, err := st.GetSummaries(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "A", got[0].ParcelID)
	assert.Equal(t, 9.0, got[0].DevelopableArea)
	assert.Equal(t, rows[0].Contiguity, got[0].Contiguity)
	assert.Equal(t, rows[0].ScaledArea, got[0].ScaledArea)

	assert.Equal(t, "B", got[1].ParcelID)
	assert.Nil(t, got[1].ScaledArea, "scaled area stays NULL when not computed")
}

func TestSQLiteStore_EmptySaves(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveRun(ctx, testRun("run-1")))
	require.NoError(t, st.SavePolygons(ctx, "run-1", nil, nil))
	require.NoError(t, st.SaveSummaries(ctx, "run-1", nil))

	polys, err := st.GetPolygons(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, polys)
}
