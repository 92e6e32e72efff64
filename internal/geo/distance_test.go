package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rescuegrid/internal/geocell"
)

func TestHaversineZeroForSamePoint(t *testing.T) {
	p := geocell.Coordinate{Lat: 18.52, Lng: 73.85}
	assert.Zero(t, Haversine(p, p))
}

func TestHaversineKnownDistance(t *testing.T) {
	// Pune railway station to Shivajinagar, roughly 2.3 km.
	a := geocell.Coordinate{Lat: 18.5289, Lng: 73.8745}
	b := geocell.Coordinate{Lat: 18.5308, Lng: 73.8520}

	d := Haversine(a, b)
	assert.InDelta(t, 2380, d, 200)
}

func TestHaversineSymmetric(t *testing.T) {
	a := geocell.Coordinate{Lat: 48.8566, Lng: 2.3522}
	b := geocell.Coordinate{Lat: 51.5074, Lng: -0.1278}
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 0.001)
}

func TestBoundingBoxCoversRadius(t *testing.T) {
	center := geocell.Coordinate{Lat: 18.52, Lng: 73.85}
	bounds := BoundingBox(center, 5)

	assert.Less(t, bounds.MinLat, center.Lat)
	assert.Greater(t, bounds.MaxLat, center.Lat)
	assert.Less(t, bounds.MinLng, center.Lng)
	assert.Greater(t, bounds.MaxLng, center.Lng)

	// A point 4 km north must fall inside the box.
	north := geocell.Coordinate{Lat: center.Lat + 4.0/111.0, Lng: center.Lng}
	assert.True(t, north.Lat >= bounds.MinLat && north.Lat <= bounds.MaxLat)
}

func TestBoundingBoxCoversHighLatitude(t *testing.T) {
	// At 60°N a longitude degree spans about half what it does at the
	// equator; the box must stretch east-west to compensate.
	center := geocell.Coordinate{Lat: 60.17, Lng: 24.94}
	bounds := BoundingBox(center, 5)

	east := geocell.Coordinate{Lat: center.Lat, Lng: center.Lng + 4.0/(111.0*0.497)}
	assert.LessOrEqual(t, Haversine(center, east), 5000.0)
	assert.True(t, east.Lng >= bounds.MinLng && east.Lng <= bounds.MaxLng,
		"4 km east at 60N must stay inside the box")
}

func TestBoundingBoxNearPoleSpansAllLongitudes(t *testing.T) {
	bounds := BoundingBox(geocell.Coordinate{Lat: 89.999, Lng: 0}, 5)
	assert.LessOrEqual(t, bounds.MinLng, -180.0)
	assert.GreaterOrEqual(t, bounds.MaxLng, 180.0)
}
