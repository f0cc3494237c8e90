package shapefile

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/renaissanceplanning/pmt-cli/internal/geometry"
)

// DefaultSRID is Florida East state plane (US feet), the PMT input CRS.
const DefaultSRID = 2881

// EncodeEWKB converts a planar polygon to EWKB bytes for the audit table.
func EncodeEWKB(p geometry.Polygon, srid int) ([]byte, error) {
	if p.IsEmpty() {
		return nil, eris.New("shapefile: encode empty polygon")
	}

	poly := geom.NewPolygon(geom.XY).SetSRID(srid)
	rings := append([]geometry.Ring{p.Shell}, p.Holes...)
	for _, r := range rings {
		ring := geom.NewLinearRingFlat(geom.XY, flatCoords(r))
		if err := poly.Push(ring); err != nil {
			return nil, eris.Wrap(err, "shapefile: build polygon ring")
		}
	}

	data, err := ewkb.Marshal(poly, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "shapefile: encode EWKB")
	}
	return data, nil
}

// flatCoords closes the ring and flattens it for go-geom.
func flatCoords(r geometry.Ring) []float64 {
	flat := make([]float64, 0, (len(r)+1)*2)
	for _, p := range r {
		flat = append(flat, p.X, p.Y)
	}
	if len(r) > 0 {
		flat = append(flat, r[0].X, r[0].Y)
	}
	return flat
}
