package contiguity

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/renaissanceplanning/pmt-cli/internal/geometry"
)

// Fishnet partitions a study extent into a grid of rectangular chunks. The
// grid exists only to bound per-chunk raster memory; it never changes
// results.
type Fishnet struct {
	Extent geometry.Extent
	Rows   int
	Cols   int
	cellW  float64
	cellH  float64
}

// Chunk is one rectangular cell of the fishnet.
type Chunk struct {
	ID     int
	Extent geometry.Extent
}

// BuildFishnet splits the extent into chunkCount rectangles. Among all factor
// pairs (rows, cols) of chunkCount it picks the pair whose rows/cols ratio is
// closest to the extent's height/width ratio, keeping chunks near square.
func BuildFishnet(ext geometry.Extent, chunkCount int) (*Fishnet, error) {
	if chunkCount < 1 {
		return nil, eris.Wrapf(ErrConfig, "chunk count must be positive, got %d", chunkCount)
	}
	if ext.Width() <= 0 || ext.Height() <= 0 {
		return nil, eris.Errorf("contiguity: degenerate study extent %+v", ext)
	}

	hwRatio := ext.Height() / ext.Width()
	bestRows, bestCols := 1, chunkCount
	bestDiff := math.Inf(1)
	for r := 1; r <= chunkCount; r++ {
		if chunkCount%r != 0 {
			continue
		}
		c := chunkCount / r
		diff := math.Abs(float64(r)/float64(c) - hwRatio)
		if diff < bestDiff {
			bestDiff = diff
			bestRows, bestCols = r, c
		}
	}

	net := &Fishnet{
		Extent: ext,
		Rows:   bestRows,
		Cols:   bestCols,
		cellW:  ext.Width() / float64(bestCols),
		cellH:  ext.Height() / float64(bestRows),
	}
	zap.L().Debug("contiguity: fishnet built",
		zap.Int("rows", bestRows),
		zap.Int("cols", bestCols),
		zap.Float64("hw_ratio", hwRatio),
	)
	return net, nil
}

// Count returns the number of chunks.
func (f *Fishnet) Count() int { return f.Rows * f.Cols }

// ChunkOf assigns a point to exactly one chunk id. Points on the max edges of
// the extent fall into the last row or column.
func (f *Fishnet) ChunkOf(p geometry.Point) int {
	col := int((p.X - f.Extent.MinX) / f.cellW)
	row := int((p.Y - f.Extent.MinY) / f.cellH)
	if col < 0 {
		col = 0
	}
	if col >= f.Cols {
		col = f.Cols - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= f.Rows {
		row = f.Rows - 1
	}
	return row*f.Cols + col
}

// Chunks enumerates the chunk rectangles in id order.
func (f *Fishnet) Chunks() []Chunk {
	out := make([]Chunk, 0, f.Count())
	for row := 0; row < f.Rows; row++ {
		for col := 0; col < f.Cols; col++ {
			out = append(out, Chunk{
				ID: row*f.Cols + col,
				Extent: geometry.Extent{
					MinX: f.Extent.MinX + float64(col)*f.cellW,
					MinY: f.Extent.MinY + float64(row)*f.cellH,
					MaxX: f.Extent.MinX + float64(col+1)*f.cellW,
					MaxY: f.Extent.MinY + float64(row+1)*f.cellH,
				},
			})
		}
	}
	return out
}
