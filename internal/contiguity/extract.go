package contiguity

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/renaissanceplanning/pmt-cli/internal/geometry"
)

// Parcel is an input parcel. The engine never mutates parcels.
type Parcel struct {
	ID   string
	Poly geometry.Polygon
}

// DevelopablePolygon is a single-part piece of a parcel left after building
// footprints are subtracted. Each belongs to exactly one parcel and one
// chunk.
type DevelopablePolygon struct {
	PolyID   int32
	ParcelID string
	ChunkID  int
	Poly     geometry.Polygon
}

// Extractor subtracts building footprints from parcels and explodes the
// results into developable polygons. Polygon ids are minted from a counter
// owned by the extractor, so they are unique within a run and never shared
// across runs.
type Extractor struct {
	engine geometry.Engine
	nextID int32
}

// NewExtractor returns an extractor that mints polygon ids starting at 1.
func NewExtractor(engine geometry.Engine) *Extractor {
	return &Extractor{engine: engine, nextID: 1}
}

// Extract differences every parcel against the buildings whose extents
// overlap it and explodes each result into single-part polygons. It returns
// the developable polygons and the parcel-to-polygon reference table. Every
// parcel id appears in the reference table, with an empty entry when the
// parcel is entirely covered by buildings.
//
// A geometry failure on any parcel is fatal: there is no principled fallback
// for a corrupt geometry, so nothing is silently skipped.
func (x *Extractor) Extract(parcels []Parcel, buildings []geometry.Polygon, net *Fishnet) ([]DevelopablePolygon, map[string][]int32, error) {
	log := zap.L().With(zap.String("component", "contiguity.extract"))

	bldExtents := make([]geometry.Extent, len(buildings))
	for i, b := range buildings {
		bldExtents[i] = b.Extent()
	}

	var polys []DevelopablePolygon
	ref := make(map[string][]int32, len(parcels))

	for _, parcel := range parcels {
		if parcel.Poly.IsEmpty() {
			return nil, nil, eris.Errorf("contiguity: parcel %s has empty geometry", parcel.ID)
		}
		// Multipart source records arrive as one Parcel per part with a
		// shared id; all parts accumulate under that id.
		if _, ok := ref[parcel.ID]; !ok {
			ref[parcel.ID] = nil
		}

		chunkID := net.ChunkOf(parcel.Poly.Centroid())

		pExt := parcel.Poly.Extent()
		var masks []geometry.Polygon
		for i, b := range buildings {
			if pExt.Intersects(bldExtents[i]) {
				masks = append(masks, b)
			}
		}

		parts, err := x.engine.Difference(parcel.Poly, masks)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "contiguity: difference parcel %s", parcel.ID)
		}

		for _, part := range parts {
			id := x.nextID
			x.nextID++
			polys = append(polys, DevelopablePolygon{
				PolyID:   id,
				ParcelID: parcel.ID,
				ChunkID:  chunkID,
				Poly:     part,
			})
			ref[parcel.ID] = append(ref[parcel.ID], id)
		}
	}

	log.Info("developable polygons extracted",
		zap.Int("parcels", len(parcels)),
		zap.Int("buildings", len(buildings)),
		zap.Int("polygons", len(polys)),
	)
	return polys, ref, nil
}
