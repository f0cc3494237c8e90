package shapefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/renaissanceplanning/pmt-cli/internal/geometry"
)

func TestEncodeEWKB(t *testing.T) {
	p := geometry.Polygon{
		Shell: geometry.Ring{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
		Holes: []geometry.Ring{{{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}}},
	}

	data, err := EncodeEWKB(p, DefaultSRID)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	poly, ok := decoded.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, DefaultSRID, poly.SRID())
	assert.Equal(t, 2, poly.NumLinearRings())
	assert.InDelta(t, 96, poly.Area(), 1e-9)
}

func TestEncodeEWKB_Empty(t *testing.T) {
	_, err := EncodeEWKB(geometry.Polygon{}, DefaultSRID)
	require.Error(t, err)
}
