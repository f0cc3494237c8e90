package contiguity

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/renaissanceplanning/pmt-cli/internal/geometry"
)

// FeetPerAcre is the default area unit divisor: raster cell areas in square
// feet are reported as acres, matching the toolkit's Florida state plane
// inputs.
const FeetPerAcre = 43560.0

// PolygonResult is the polygon-level output row: one per developable polygon
// that covered at least one raster cell, zero-filled rows added later for the
// rest.
type PolygonResult struct {
	PolyID          int32   `json:"poly_id"`
	ParcelID        string  `json:"parcel_id"`
	ChunkID         int     `json:"chunk_id"`
	Contiguity      float64 `json:"contiguity"`
	DevelopableArea float64 `json:"developable_area"`
}

// Rasterizer scores one chunk at a time. It is a pure function of the
// chunk's polygons, the kernel, and the lattice, so chunks may be processed
// concurrently.
type Rasterizer struct {
	engine      geometry.Engine
	kernel      Kernel
	lattice     geometry.Lattice
	areaDivisor float64
}

// NewRasterizer builds a rasterizer. areaDivisor converts cell_size² units
// into reporting units (FeetPerAcre for ft² to acres); pass 1 to report in
// the squared input unit.
func NewRasterizer(engine geometry.Engine, kernel Kernel, lattice geometry.Lattice, areaDivisor float64) *Rasterizer {
	return &Rasterizer{
		engine:      engine,
		kernel:      kernel,
		lattice:     lattice,
		areaDivisor: areaDivisor,
	}
}

// RasterizeChunk rasterizes the chunk's polygons onto the shared lattice and
// returns one result row per polygon with at least one cell. An empty chunk
// (no polygons, or a raster with zero covered cells) contributes no rows and
// is not an error.
func (rz *Rasterizer) RasterizeChunk(chunkID int, polys []DevelopablePolygon) ([]PolygonResult, error) {
	log := zap.L().With(
		zap.String("component", "contiguity.raster"),
		zap.Int("chunk", chunkID),
	)
	if len(polys) == 0 {
		log.Debug("no polygons in chunk, skipping")
		return nil, nil
	}

	labeled := make([]geometry.LabeledPolygon, len(polys))
	byID := make(map[int32]*DevelopablePolygon, len(polys))
	for i := range polys {
		labeled[i] = geometry.LabeledPolygon{ID: polys[i].PolyID, Poly: polys[i].Poly}
		byID[polys[i].PolyID] = &polys[i]
	}
	// Deterministic burn order regardless of input ordering.
	sort.Slice(labeled, func(i, j int) bool { return labeled[i].ID < labeled[j].ID })

	grid, err := rz.engine.Rasterize(labeled, rz.lattice)
	if err != nil {
		return nil, eris.Wrapf(err, "contiguity: rasterize chunk %d", chunkID)
	}

	scores := scoreGrid(grid, rz.kernel)
	if len(scores) == 0 {
		log.Warn("empty chunk raster, no covered cells")
		return nil, nil
	}

	cellArea := rz.lattice.CellSize * rz.lattice.CellSize / rz.areaDivisor
	results := make([]PolygonResult, 0, len(scores))
	for _, s := range scores {
		src := byID[s.PolyID]
		results = append(results, PolygonResult{
			PolyID:          s.PolyID,
			ParcelID:        src.ParcelID,
			ChunkID:         chunkID,
			Contiguity:      s.Contiguity,
			DevelopableArea: float64(s.Cells) * cellArea,
		})
	}

	log.Debug("chunk scored",
		zap.Int("polygons", len(polys)),
		zap.Int("scored", len(results)),
		zap.Int("grid_rows", grid.Rows()),
		zap.Int("grid_cols", grid.Cols()),
	)
	return results, nil
}
