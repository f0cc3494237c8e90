package contiguity

import (
	"github.com/renaissanceplanning/pmt-cli/internal/geometry"
)

// rect builds an axis-aligned rectangle polygon, counter-clockwise.
func rect(minX, minY, maxX, maxY float64) geometry.Polygon {
	return geometry.Polygon{Shell: geometry.Ring{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}}
}

// stubEngine is a test double whose Difference ignores geometry and returns
// canned parts per parcel, keyed by the parcel's min corner.
type stubEngine struct {
	// parts maps parcel MinX to the parts Difference returns. A nil entry
	// means the parcel is fully masked.
	parts map[float64][]geometry.Polygon
	// maskCounts records how many masks each Difference call received.
	maskCounts []int
}

func (s *stubEngine) Difference(parcel geometry.Polygon, masks []geometry.Polygon) ([]geometry.Polygon, error) {
	s.maskCounts = append(s.maskCounts, len(masks))
	if s.parts == nil {
		return []geometry.Polygon{parcel}, nil
	}
	return s.parts[parcel.Extent().MinX], nil
}

func (s *stubEngine) Rasterize(polys []geometry.LabeledPolygon, lat geometry.Lattice) (*geometry.Grid, error) {
	return geometry.NewPlanarEngine().Rasterize(polys, lat)
}
