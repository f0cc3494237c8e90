package geometry

import (
	"math"

	"github.com/engelsjk/polygol"
	"github.com/rotisserie/eris"
)

// PlanarEngine is the default Engine backend. Boolean overlay is delegated to
// the polygol port of the Martinez-Rueda clipping algorithm; rasterization is
// a cell-center containment scan against the lattice.
type PlanarEngine struct{}

// NewPlanarEngine returns a ready-to-use planar engine.
func NewPlanarEngine() *PlanarEngine {
	return &PlanarEngine{}
}

// Difference implements Engine. The clipping result is a multipolygon whose
// elements are already single-part, so difference and singlepart explosion
// happen in one pass.
func (e *PlanarEngine) Difference(parcel Polygon, masks []Polygon) ([]Polygon, error) {
	if parcel.IsEmpty() {
		return nil, eris.New("geometry: difference of empty polygon")
	}
	if len(masks) == 0 {
		return []Polygon{parcel}, nil
	}

	subject := polygol.Geom{toGeom(parcel)}
	clip := make([]polygol.Geom, 0, len(masks))
	for _, m := range masks {
		if m.IsEmpty() {
			return nil, eris.New("geometry: difference against empty mask polygon")
		}
		clip = append(clip, polygol.Geom{toGeom(m)})
	}

	out, err := polygol.Difference(subject, clip...)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: polygon difference")
	}
	return fromGeom(out), nil
}

// Rasterize implements Engine.
func (e *PlanarEngine) Rasterize(polys []LabeledPolygon, lat Lattice) (*Grid, error) {
	if lat.CellSize <= 0 {
		return nil, eris.Errorf("geometry: invalid cell size %v", lat.CellSize)
	}
	if len(polys) == 0 {
		return &Grid{}, nil
	}

	window := polys[0].Poly.Extent()
	for _, lp := range polys[1:] {
		window = window.Union(lp.Poly.Extent())
	}

	minCol, minRow, maxCol, maxRow := lat.snap(window)
	rows := maxRow - minRow
	cols := maxCol - minCol
	if rows <= 0 || cols <= 0 {
		return &Grid{}, nil
	}

	labels := make([][]int32, rows)
	for i := range labels {
		row := make([]int32, cols)
		for j := range row {
			row[j] = EmptyCell
		}
		labels[i] = row
	}
	g := &Grid{Labels: labels, MinCol: minCol, MinRow: minRow}

	for _, lp := range polys {
		c0, r0, c1, r1 := lat.snap(lp.Poly.Extent())
		if c0 < minCol {
			c0 = minCol
		}
		if r0 < minRow {
			r0 = minRow
		}
		if c1 > maxCol {
			c1 = maxCol
		}
		if r1 > maxRow {
			r1 = maxRow
		}
		for r := r0; r < r1; r++ {
			y := lat.OriginY + (float64(r)+0.5)*lat.CellSize
			// Lattice rows count northward; grid rows count from the top.
			gi := maxRow - 1 - r
			for c := c0; c < c1; c++ {
				x := lat.OriginX + (float64(c)+0.5)*lat.CellSize
				if lp.Poly.Contains(Point{X: x, Y: y}) {
					labels[gi][c-minCol] = lp.ID
				}
			}
		}
	}
	return g, nil
}

// snap returns the half-open lattice cell range [minCol,maxCol)x[minRow,maxRow)
// covering the extent.
func (l Lattice) snap(e Extent) (minCol, minRow, maxCol, maxRow int) {
	minCol = int(math.Floor((e.MinX - l.OriginX) / l.CellSize))
	minRow = int(math.Floor((e.MinY - l.OriginY) / l.CellSize))
	maxCol = int(math.Ceil((e.MaxX - l.OriginX) / l.CellSize))
	maxRow = int(math.Ceil((e.MaxY - l.OriginY) / l.CellSize))
	if maxCol == minCol {
		maxCol++
	}
	if maxRow == minRow {
		maxRow++
	}
	return minCol, minRow, maxCol, maxRow
}

// toGeom converts a polygon to polygol's ring representation. Rings are
// explicitly closed.
func toGeom(p Polygon) [][][]float64 {
	rings := make([][][]float64, 0, 1+len(p.Holes))
	rings = append(rings, toRing(p.Shell))
	for _, h := range p.Holes {
		rings = append(rings, toRing(h))
	}
	return rings
}

func toRing(r Ring) [][]float64 {
	pts := make([][]float64, 0, len(r)+1)
	for _, p := range r {
		pts = append(pts, []float64{p.X, p.Y})
	}
	if len(r) > 0 && (r[0] != r[len(r)-1]) {
		pts = append(pts, []float64{r[0].X, r[0].Y})
	}
	return pts
}

// fromGeom converts a polygol multipolygon back into single-part polygons,
// dropping degenerate rings.
func fromGeom(g polygol.Geom) []Polygon {
	var out []Polygon
	for _, poly := range g {
		if len(poly) == 0 {
			continue
		}
		shell := fromRing(poly[0])
		if len(shell) < 3 {
			continue
		}
		p := Polygon{Shell: shell}
		for _, hole := range poly[1:] {
			h := fromRing(hole)
			if len(h) >= 3 {
				p.Holes = append(p.Holes, h)
			}
		}
		out = append(out, p)
	}
	return out
}

func fromRing(pts [][]float64) Ring {
	r := make(Ring, 0, len(pts))
	for _, pt := range pts {
		if len(pt) < 2 {
			continue
		}
		r = append(r, Point{X: pt[0], Y: pt[1]})
	}
	// Drop the closing vertex; rings are implicitly closed.
	if len(r) > 1 && r[0] == r[len(r)-1] {
		r = r[:len(r)-1]
	}
	return r
}
