package contiguity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renaissanceplanning/pmt-cli/internal/geometry"
)

func TestBuildFishnet_SquareExtent(t *testing.T) {
	ext := geometry.Extent{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}

	net, err := BuildFishnet(ext, 16)
	require.NoError(t, err)
	// 4x4 has ratio 1, exactly the extent's.
	assert.Equal(t, 4, net.Rows)
	assert.Equal(t, 4, net.Cols)
	assert.Equal(t, 16, net.Count())
}

func TestBuildFishnet_WideExtent(t *testing.T) {
	// Height/width is 0.5. The factor pairs of 12 give row/col ratios
	// 1/12, 1/3, 3/4, 4/3, 3, 12; 2x6 at 1/3 is closest.
	ext := geometry.Extent{MinX: 0, MinY: 0, MaxX: 200, MaxY: 100}

	net, err := BuildFishnet(ext, 12)
	require.NoError(t, err)
	assert.Equal(t, 2, net.Rows)
	assert.Equal(t, 6, net.Cols)
}

func TestBuildFishnet_Prime(t *testing.T) {
	ext := geometry.Extent{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}

	net, err := BuildFishnet(ext, 7)
	require.NoError(t, err)
	// Only 1x7 and 7x1 divide 7; for a square extent both are equally far
	// from ratio 1 and the first candidate wins.
	assert.Equal(t, 1, net.Rows)
	assert.Equal(t, 7, net.Cols)
}

func TestBuildFishnet_One(t *testing.T) {
	ext := geometry.Extent{MinX: 0, MinY: 0, MaxX: 50, MaxY: 100}

	net, err := BuildFishnet(ext, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, net.Count())
	chunks := net.Chunks()
	require.Len(t, chunks, 1)
	assert.Equal(t, ext, chunks[0].Extent)
}

func TestBuildFishnet_Invalid(t *testing.T) {
	ext := geometry.Extent{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}

	_, err := BuildFishnet(ext, 0)
	assert.Error(t, err)

	_, err = BuildFishnet(geometry.Extent{MinX: 5, MinY: 5, MaxX: 5, MaxY: 10}, 4)
	assert.Error(t, err, "zero-width extent")
}

func TestFishnet_ChunkOf(t *testing.T) {
	ext := geometry.Extent{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	net, err := BuildFishnet(ext, 4)
	require.NoError(t, err)
	require.Equal(t, 2, net.Rows)
	require.Equal(t, 2, net.Cols)

	// Chunk ids are row-major from the south-west corner.
	assert.Equal(t, 0, net.ChunkOf(geometry.Point{X: 10, Y: 10}))
	assert.Equal(t, 1, net.ChunkOf(geometry.Point{X: 90, Y: 10}))
	assert.Equal(t, 2, net.ChunkOf(geometry.Point{X: 10, Y: 90}))
	assert.Equal(t, 3, net.ChunkOf(geometry.Point{X: 90, Y: 90}))

	// Max edges clamp into the last row and column.
	assert.Equal(t, 3, net.ChunkOf(geometry.Point{X: 100, Y: 100}))
	// Points outside the extent clamp rather than panic.
	assert.Equal(t, 0, net.ChunkOf(geometry.Point{X: -5, Y: -5}))
}

func TestFishnet_ChunksCoverExtent(t *testing.T) {
	ext := geometry.Extent{MinX: -30, MinY: 20, MaxX: 90, MaxY: 80}
	net, err := BuildFishnet(ext, 6)
	require.NoError(t, err)

	chunks := net.Chunks()
	require.Len(t, chunks, 6)

	union := chunks[0].Extent
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ID)
		union = union.Union(ch.Extent)
	}
	assert.Equal(t, ext, union)
}
