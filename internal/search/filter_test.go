package search

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBoxFor(t *testing.T) {
	box := BoundingBoxFor(41.25, -95.94, 10)
	require.NotNil(t, box)

	latDelta := (10.0 / earthRadiusMiles) * 180 / math.Pi
	assert.InDelta(t, 41.25-latDelta, box.LatMin, 0.0001)
	assert.InDelta(t, 41.25+latDelta, box.LatMax, 0.0001)

	// Longitude degrees shrink with latitude, so the box is wider in degrees
	// east-west than north-south.
	assert.Greater(t, box.LngMax-box.LngMin, box.LatMax-box.LatMin)

	assert.InDelta(t, -95.94, (box.LngMin+box.LngMax)/2, 0.0001)
	assert.InDelta(t, 41.25, (box.LatMin+box.LatMax)/2, 0.0001)
}

func TestBoundingBoxForZeroRadius(t *testing.T) {
	assert.Nil(t, BoundingBoxFor(41.25, -95.94, 0))
	assert.Nil(t, BoundingBoxFor(41.25, -95.94, -5))
}

func TestBoundingBoxGrowsWithRadius(t *testing.T) {
	small := BoundingBoxFor(41.25, -95.94, 5)
	large := BoundingBoxFor(41.25, -95.94, 50)
	require.NotNil(t, small)
	require.NotNil(t, large)

	assert.Less(t, large.LatMin, small.LatMin)
	assert.Greater(t, large.LatMax, small.LatMax)
	assert.Less(t, large.LngMin, small.LngMin)
	assert.Greater(t, large.LngMax, small.LngMax)
}
