package contiguity

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Stat names a parcel-level summary statistic over polygon contiguity values.
type Stat string

// Supported summary statistics.
const (
	StatMin    Stat = "min"
	StatMax    Stat = "max"
	StatMean   Stat = "mean"
	StatMedian Stat = "median"
)

// AllStats is the default statistic set, in output column order.
var AllStats = []Stat{StatMin, StatMax, StatMean, StatMedian}

// ParseStats validates a list of statistic names.
func ParseStats(names []string) ([]Stat, error) {
	if len(names) == 0 {
		return append([]Stat(nil), AllStats...), nil
	}
	out := make([]Stat, 0, len(names))
	for _, n := range names {
		s := Stat(strings.ToLower(strings.TrimSpace(n)))
		switch s {
		case StatMin, StatMax, StatMean, StatMedian:
			out = append(out, s)
		default:
			return nil, eris.Wrapf(ErrConfig, "unknown summary statistic %q (want min, max, mean, or median)", n)
		}
	}
	return out, nil
}

// ParcelSummary is the final per-parcel output row.
type ParcelSummary struct {
	ParcelID        string  `json:"parcel_id"`
	DevelopableArea float64 `json:"developable_area"`
	// Contiguity holds one entry per requested statistic.
	Contiguity map[Stat]float64 `json:"contiguity"`
	// ScaledArea is contiguity times developable area, present only when
	// area scaling is requested.
	ScaledArea map[Stat]float64 `json:"scaled_area,omitempty"`
}

// FillMissing left-joins the raster results against the parcel-to-polygon
// reference table so every extracted polygon appears exactly once. Polygons
// that produced no raster cells (masked out entirely, or smaller than one
// cell) get contiguity 0 and developable area 0. Rows are ordered by polygon
// id.
func FillMissing(results []PolygonResult, ref map[string][]int32, chunkOf map[int32]int) []PolygonResult {
	byID := make(map[int32]PolygonResult, len(results))
	for _, r := range results {
		byID[r.PolyID] = r
	}

	var missing int
	filled := make([]PolygonResult, 0, len(results))
	for parcelID, polyIDs := range ref {
		for _, id := range polyIDs {
			if r, ok := byID[id]; ok {
				filled = append(filled, r)
				continue
			}
			missing++
			filled = append(filled, PolygonResult{
				PolyID:   id,
				ParcelID: parcelID,
				ChunkID:  chunkOf[id],
			})
		}
	}
	sort.Slice(filled, func(i, j int) bool { return filled[i].PolyID < filled[j].PolyID })

	if missing > 0 {
		zap.L().Debug("contiguity: zero-filled polygons absent from raster output",
			zap.Int("missing", missing),
		)
	}
	return filled
}

// Summarize reduces polygon-level rows to one row per parcel: developable
// area is summed, each requested statistic is applied to the parcel's polygon
// contiguity values, and scaled area is the statistic times the summed area.
// parcelIDs fixes the output order and guarantees parcels with no developable
// polygons at all still appear, filled with zeros.
func Summarize(polygons []PolygonResult, parcelIDs []string, stats []Stat, areaScaling bool) []ParcelSummary {
	type group struct {
		area   float64
		values []float64
	}
	groups := make(map[string]*group, len(parcelIDs))
	for _, r := range polygons {
		g := groups[r.ParcelID]
		if g == nil {
			g = &group{}
			groups[r.ParcelID] = g
		}
		g.area += r.DevelopableArea
		g.values = append(g.values, r.Contiguity)
	}

	out := make([]ParcelSummary, 0, len(parcelIDs))
	for _, id := range parcelIDs {
		s := ParcelSummary{ParcelID: id, Contiguity: make(map[Stat]float64, len(stats))}
		if areaScaling {
			s.ScaledArea = make(map[Stat]float64, len(stats))
		}
		g := groups[id]
		if g != nil {
			s.DevelopableArea = g.area
		}
		for _, stat := range stats {
			var v float64
			if g != nil {
				v = apply(stat, g.values)
			}
			s.Contiguity[stat] = v
			if areaScaling {
				s.ScaledArea[stat] = v * s.DevelopableArea
			}
		}
		out = append(out, s)
	}
	return out
}

func apply(stat Stat, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	switch stat {
	case StatMin:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case StatMax:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max
	case StatMean:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case StatMedian:
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		n := len(sorted)
		if n%2 == 1 {
			return sorted[n/2]
		}
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return 0
}
