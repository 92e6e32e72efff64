package geo

import (
	"math"

	"rescuegrid/internal/geocell"
)

// EarthRadius in meters
const EarthRadius = 6378137

// kmPerDegreeLat is the rough north-south span of one degree of latitude.
const kmPerDegreeLat = 111.0

// Haversine distance between two points in meters
func Haversine(a, b geocell.Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180.0
	dLng := (b.Lng - a.Lng) * math.Pi / 180.0

	lat1 := a.Lat * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0

	sinDlat := math.Sin(dLat / 2)
	sinDlng := math.Sin(dLng / 2)

	h := sinDlat*sinDlat + sinDlng*sinDlng*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadius * c
}

// Bounds is an axis-aligned latitude/longitude box.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a box covering radiusKm around center. Longitude
// degrees shrink with cos(lat), so the east-west span widens with
// latitude to keep the box covering; near the poles it spans every
// longitude. Callers filter the result with Haversine for the exact
// radius.
func BoundingBox(center geocell.Coordinate, radiusKm float64) Bounds {
	latRadius := radiusKm / kmPerDegreeLat

	lngRadius := 180.0
	if cosLat := math.Cos(center.Lat * math.Pi / 180); cosLat > 1e-3 {
		lngRadius = math.Min(latRadius/cosLat, 180)
	}

	return Bounds{
		MinLat: center.Lat - latRadius,
		MaxLat: center.Lat + latRadius,
		MinLng: center.Lng - lngRadius,
		MaxLng: center.Lng + lngRadius,
	}
}
