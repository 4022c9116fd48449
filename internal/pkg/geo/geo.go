// Package geo implements the proximity primitives shared by the
// location-based listing domains (garages, alerts).
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for all distance math.
const EarthRadiusKm = 6371.0

// minCosLat keeps the longitude half-width finite near the poles.
const minCosLat = 1e-9

// Point is a latitude/longitude pair with an optional free-text address.
type Point struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Validate rejects non-finite or out-of-range coordinates.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude out of range: %v", p.Lat)
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude out of range: %v", p.Lng)
	}
	return nil
}

// Bounds is a rectangular over-approximation of a disc around a center point.
// It is a cheap pre-filter: every point within the radius falls inside the
// bounds, but the bounds may contain points beyond the radius.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Contains reports whether p falls inside the bounds.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// BoundsAround computes the bounding box covering radiusKm around center.
// The longitude half-width grows with latitude; near the poles the cosine
// denominator collapses, so longitude filtering degrades to the full range
// instead of dividing by zero.
func BoundsAround(center Point, radiusKm float64) Bounds {
	angular := radiusKm / EarthRadiusKm
	dLat := angular * 180 / math.Pi

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	var dLng float64
	if math.Abs(cosLat) < minCosLat {
		dLng = 360
	} else {
		dLng = dLat / cosLat
	}

	b := Bounds{
		MinLat: center.Lat - dLat,
		MaxLat: center.Lat + dLat,
		MinLng: center.Lng - dLng,
		MaxLng: center.Lng + dLng,
	}
	if b.MinLng < -180 {
		b.MinLng = -180
	}
	if b.MaxLng > 180 {
		b.MaxLng = 180
	}
	return b
}

// Distance returns the great-circle distance between a and b in kilometers,
// via the spherical law of cosines. The acos argument is clamped to [-1, 1]
// to absorb floating-point drift for near-identical points.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	arg := math.Cos(lat1)*math.Cos(lat2)*math.Cos(dLng) + math.Sin(lat1)*math.Sin(lat2)
	if arg > 1 {
		arg = 1
	} else if arg < -1 {
		arg = -1
	}
	return EarthRadiusKm * math.Acos(arg)
}

// Strategy selects how Filter decides membership.
type Strategy int

const (
	// StrategyExact keeps only points truly within the radius.
	StrategyExact Strategy = iota
	// StrategyBoundingBox keeps everything inside the rectangular
	// over-approximation. May return false positives, never false negatives.
	StrategyBoundingBox
)

// Within reports whether p is within radiusKm of center under the strategy.
func Within(center, p Point, radiusKm float64, strategy Strategy) bool {
	if strategy == StrategyBoundingBox {
		return BoundsAround(center, radiusKm).Contains(p)
	}
	return Distance(center, p) <= radiusKm
}

// Filter narrows points to those within radiusKm of center. Order is
// preserved; callers sort by their own ranking key, not by distance.
func Filter(points []Point, center Point, radiusKm float64, strategy Strategy) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if Within(center, p, radiusKm, strategy) {
			out = append(out, p)
		}
	}
	return out
}
