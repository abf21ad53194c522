package search

import "math"

const earthRadiusMiles = 3959.0

// BoundingBox is a rectangular lat/lng region approximating a circular
// search radius. Box corners can include points slightly beyond the true
// radius; that imprecision is part of the contract, not a bug to fix.
type BoundingBox struct {
	LatMin float64
	LatMax float64
	LngMin float64
	LngMax float64
}

// BoundingBoxFor computes the box around a center using a spherical-earth
// approximation. A radius of zero or less yields nil: radius filtering is
// skipped entirely, not treated as a zero-width match.
func BoundingBoxFor(centerLat, centerLng, radiusMiles float64) *BoundingBox {
	if radiusMiles <= 0 {
		return nil
	}

	latDelta := radToDeg(radiusMiles / earthRadiusMiles)
	lngDelta := radToDeg(radiusMiles / earthRadiusMiles / math.Cos(degToRad(centerLat)))

	return &BoundingBox{
		LatMin: centerLat - latDelta,
		LatMax: centerLat + latDelta,
		LngMin: centerLng - lngDelta,
		LngMax: centerLng + lngDelta,
	}
}

func radToDeg(r float64) float64 {
	return r * 180 / math.Pi
}

func degToRad(d float64) float64 {
	return d * math.Pi / 180
}
