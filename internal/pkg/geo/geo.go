// Package geo holds coordinates, distance math and the geocoding and routing
// clients used by navigation.
package geo

import (
	"context"
	"math"

	"homecare/internal/pkg/apperr"
)

const earthRadiusKm = 6371.0

var (
	ErrNoMatch = apperr.New(apperr.ErrGeocode, "address could not be geocoded")
	ErrNoRoute = apperr.New(apperr.ErrRouting, "no route found")
)

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return apperr.Validation("coordinates out of range: lat must be within [-90,90] and lon within [-180,180]")
	}
	return nil
}

// Route is a computed path between two points.
type Route struct {
	DistanceKm  float64
	DurationMin float64
	Path        []Point
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (Point, error)
}

type Router interface {
	Route(ctx context.Context, origin, destination Point) (Route, error)
}

// HaversineKm returns the great-circle distance between a and b.
func HaversineKm(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// RoundTo rounds v to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
