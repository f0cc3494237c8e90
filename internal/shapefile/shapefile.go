// Package shapefile reads parcel and building polygon sets from ESRI
// shapefiles into the planar types the contiguity engine consumes.
package shapefile

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/renaissanceplanning/pmt-cli/internal/contiguity"
	"github.com/renaissanceplanning/pmt-cli/internal/geometry"
)

// DefaultParcelIDField matches the PMT parcel feature classes.
const DefaultParcelIDField = "PARCELNO"

// ReadParcels reads parcel polygons and their id attribute. Multipart
// records are exploded into one Parcel per part sharing the record's id.
// A record with no usable geometry is a fatal error: parcels are the source
// of truth and must not be silently dropped.
func ReadParcels(path, idField string) ([]contiguity.Parcel, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	if idField == "" {
		idField = DefaultParcelIDField
	}
	idIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, idField) {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return nil, eris.Errorf("shapefile: %s has no field %q", path, idField)
	}

	var parcels []contiguity.Parcel
	row := 0
	for reader.Next() {
		_, shape := reader.Shape()
		id := strings.TrimSpace(strings.TrimRight(reader.Attribute(idIdx), "\x00"))
		if id == "" {
			return nil, eris.Errorf("shapefile: parcel record %d has empty %s", row, idField)
		}

		polys := toPolygons(shape)
		if len(polys) == 0 {
			return nil, eris.Errorf("shapefile: parcel %s (record %d) has no polygon geometry", id, row)
		}
		for _, p := range polys {
			parcels = append(parcels, contiguity.Parcel{ID: id, Poly: p})
		}
		row++
	}

	zap.L().Info("shapefile: parcels loaded",
		zap.String("path", path),
		zap.Int("records", row),
		zap.Int("parts", len(parcels)),
	)
	return parcels, nil
}

// ReadBuildings reads building footprint polygons. Buildings are only used
// as a subtraction mask, so records without usable geometry are counted and
// skipped rather than failing the load.
func ReadBuildings(path string) ([]geometry.Polygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	var buildings []geometry.Polygon
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		polys := toPolygons(shape)
		if len(polys) == 0 {
			skipped++
			continue
		}
		buildings = append(buildings, polys...)
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: skipped building records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	zap.L().Info("shapefile: buildings loaded",
		zap.String("path", path),
		zap.Int("polygons", len(buildings)),
	)
	return buildings, nil
}

// toPolygons converts a shapefile shape into single-part polygons. Shapefile
// ring winding is clockwise for outer rings and counterclockwise for holes;
// holes are attached to the outer ring containing them.
func toPolygons(shape shp.Shape) []geometry.Polygon {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var shells []geometry.Polygon
	var holes []geometry.Ring

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		ring := make(geometry.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, geometry.Point{X: p.Points[j].X, Y: p.Points[j].Y})
		}
		// Drop the explicit closing vertex.
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		if len(ring) < 3 {
			continue
		}

		if ring.SignedArea() < 0 {
			shells = append(shells, geometry.Polygon{Shell: ring})
		} else {
			holes = append(holes, ring)
		}
	}

	// A file with inverted winding throughout still yields usable shells.
	if len(shells) == 0 && len(holes) > 0 {
		for _, h := range holes {
			shells = append(shells, geometry.Polygon{Shell: h})
		}
		return shells
	}

	for _, h := range holes {
		for i := range shells {
			if shells[i].Shell.Contains(h[0]) {
				shells[i].Holes = append(shells[i].Holes, h)
				break
			}
		}
	}
	return shells
}
