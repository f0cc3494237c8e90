package geometry

// EmptyCell is the raster label for background cells covered by no polygon.
const EmptyCell int32 = -1

// LabeledPolygon pairs a polygon with the id burned into raster cells.
type LabeledPolygon struct {
	ID   int32
	Poly Polygon
}

// Lattice anchors rasterization to a fixed cell grid so results do not
// depend on which chunk a polygon lands in. All rasters produced against the
// same lattice have coincident cell boundaries.
type Lattice struct {
	OriginX  float64
	OriginY  float64
	CellSize float64
}

// Grid is a rectangular integer label raster. Row 0 is the northernmost row,
// matching the usual raster-to-array convention.
type Grid struct {
	Labels [][]int32
	// MinCol/MinRow locate the grid window on the lattice.
	MinCol int
	MinRow int
}

// Rows returns the number of rows in the grid.
func (g *Grid) Rows() int { return len(g.Labels) }

// Cols returns the number of columns in the grid.
func (g *Grid) Cols() int {
	if len(g.Labels) == 0 {
		return 0
	}
	return len(g.Labels[0])
}

// Engine is the narrow geometry capability the pipeline needs. Backends must
// be safe for concurrent use: the chunk loop may call Rasterize from several
// goroutines at once.
type Engine interface {
	// Difference returns parcel minus the union of masks, exploded into
	// single-part polygons. With no masks the parcel itself is returned as
	// the only part. An empty result (parcel fully masked) is not an error.
	Difference(parcel Polygon, masks []Polygon) ([]Polygon, error)

	// Rasterize burns the labeled polygons onto the lattice and returns the
	// label grid covering their combined extent. Cells covered by no polygon
	// hold EmptyCell; where polygons overlap, the later label wins.
	Rasterize(polys []LabeledPolygon, lat Lattice) (*Grid, error)
}
