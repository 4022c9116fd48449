package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceZeroForSamePoint(t *testing.T) {
	p := Point{Lat: 40.7128, Lng: -74.0060}
	assert.InDelta(t, 0, Distance(p, p), 1e-6)
}

func TestDistanceKnownPairs(t *testing.T) {
	nyc := Point{Lat: 40.7128, Lng: -74.0060}
	la := Point{Lat: 34.0522, Lng: -118.2437}
	// NYC -> LA is roughly 3936 km along the great circle.
	assert.InDelta(t, 3936, Distance(nyc, la), 30)

	paris := Point{Lat: 48.8566, Lng: 2.3522}
	london := Point{Lat: 51.5074, Lng: -0.1278}
	assert.InDelta(t, 344, Distance(paris, london), 10)
}

func TestBoundsContainCenter(t *testing.T) {
	center := Point{Lat: 40.7128, Lng: -74.0060}
	b := BoundsAround(center, 10)
	assert.True(t, b.Contains(center))
}

func TestBoundsNoFalseNegatives(t *testing.T) {
	// Any point within the radius must fall inside the bounding box.
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		center := Point{
			Lat: rng.Float64()*160 - 80,
			Lng: rng.Float64()*360 - 180,
		}
		radius := rng.Float64()*200 + 1
		p := Point{
			Lat: center.Lat + (rng.Float64()*2-1)*2,
			Lng: center.Lng + (rng.Float64()*2-1)*2,
		}
		if p.Lat > 90 || p.Lat < -90 || p.Lng > 180 || p.Lng < -180 {
			continue
		}
		if Distance(center, p) <= radius*0.98 {
			assert.True(t, BoundsAround(center, radius).Contains(p),
				"center=%+v p=%+v radius=%v", center, p, radius)
		}
	}
}

func TestBoundsAtPoles(t *testing.T) {
	for _, lat := range []float64{90, -90} {
		b := BoundsAround(Point{Lat: lat, Lng: 0}, 50)
		require.False(t, math.IsNaN(b.MinLat) || math.IsNaN(b.MaxLat))
		require.False(t, math.IsNaN(b.MinLng) || math.IsNaN(b.MaxLng))
		require.False(t, math.IsInf(b.MinLng, 0) || math.IsInf(b.MaxLng, 0))
		// Longitude filtering is meaningless at the pole, so the box must
		// span the whole longitude range.
		assert.Equal(t, -180.0, b.MinLng)
		assert.Equal(t, 180.0, b.MaxLng)
	}
}

func TestWithinExactVsBoundingBox(t *testing.T) {
	center := Point{Lat: 0, Lng: 0}
	// A box corner: inside the bounding box but outside the circle.
	corner := Point{Lat: 0.089, Lng: 0.089} // ~14 km away, box half-width ~0.09 deg for 10 km
	assert.True(t, Within(center, corner, 10, StrategyBoundingBox))
	assert.False(t, Within(center, corner, 10, StrategyExact))
}

func TestFilterPreservesOrder(t *testing.T) {
	center := Point{Lat: 40.7128, Lng: -74.0060}
	points := []Point{
		{Lat: 40.73, Lng: -74.00},
		{Lat: 51.50, Lng: -0.12}, // London, filtered out
		{Lat: 40.70, Lng: -74.01},
	}
	got := Filter(points, center, 10, StrategyExact)
	require.Len(t, got, 2)
	assert.Equal(t, points[0], got[0])
	assert.Equal(t, points[2], got[1])
}

func TestPointValidate(t *testing.T) {
	cases := []struct {
		name string
		p    Point
		ok   bool
	}{
		{"valid", Point{Lat: 40.7, Lng: -74.0}, true},
		{"north pole", Point{Lat: 90, Lng: 0}, true},
		{"lat too big", Point{Lat: 90.1, Lng: 0}, false},
		{"lng too small", Point{Lat: 0, Lng: -180.5}, false},
		{"nan lat", Point{Lat: math.NaN(), Lng: 0}, false},
		{"inf lng", Point{Lat: 0, Lng: math.Inf(1)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
