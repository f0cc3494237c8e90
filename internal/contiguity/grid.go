package contiguity

import (
	"sort"

	"github.com/renaissanceplanning/pmt-cli/internal/geometry"
)

// neighborOffsets enumerates the nine kernel positions as (row, col) deltas,
// self included.
var neighborOffsets = [9][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 0}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// polygonScore aggregates per-cell kernel sums for one polygon id.
type polygonScore struct {
	PolyID     int32
	Cells      int
	Contiguity float64
}

// scoreGrid walks every covered cell of the label grid once, sums kernel
// weights over same-id neighbors clipped to the grid bounds, and reduces the
// per-cell sums to a per-polygon contiguity index:
//
//	(mean cell weight - 1) / (weight_max - 1)
//
// Subtracting 1 removes the guaranteed self weight; the division rescales to
// [0,1], where 0 is fully isolated single cells and 1 is maximal cohesion.
// Results are sorted by polygon id.
func scoreGrid(g *geometry.Grid, k Kernel) []polygonScore {
	rows, cols := g.Rows(), g.Cols()

	type acc struct {
		weight float64
		cells  int
	}
	sums := make(map[int32]*acc)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			id := g.Labels[r][c]
			if id == geometry.EmptyCell {
				continue
			}
			var w float64
			for _, off := range neighborOffsets {
				nr, nc := r+off[0], c+off[1]
				if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
					continue
				}
				if g.Labels[nr][nc] != id {
					continue
				}
				w += k.Weight(off[0], off[1])
			}
			a := sums[id]
			if a == nil {
				a = &acc{}
				sums[id] = a
			}
			a.weight += w
			a.cells++
		}
	}

	out := make([]polygonScore, 0, len(sums))
	for id, a := range sums {
		mean := a.weight / float64(a.cells)
		out = append(out, polygonScore{
			PolyID:     id,
			Cells:      a.cells,
			Contiguity: (mean - 1) / (k.Max() - 1),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PolyID < out[j].PolyID })
	return out
}
