package domain

import (
	"math"
)

const (
	// EarthRadiusMeters is the IUGG mean Earth radius
	EarthRadiusMeters = 6371008.8
	// MaxRadiusMeters bounds radius queries to half the Earth's circumference
	MaxRadiusMeters = 20_000_000.0
)

// GeoPoint is a GeoJSON point. Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewPoint builds a GeoJSON point
func NewPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

func (p GeoPoint) Lng() float64 { return p.Coordinates[0] }
func (p GeoPoint) Lat() float64 { return p.Coordinates[1] }

// Validate checks the GeoJSON type and coordinate ranges
func (p GeoPoint) Validate(field string) error {
	if p.Type != "" && p.Type != "Point" {
		return NewValidationError(field+".type", "must be Point")
	}
	return ValidateCoordinates(field, p.Lng(), p.Lat())
}

// ValidateCoordinates checks longitude in [-180,180] and latitude in [-90,90]
func ValidateCoordinates(field string, lng, lat float64) error {
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return NewValidationError(field, "longitude %v out of range [-180, 180]", lng)
	}
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return NewValidationError(field, "latitude %v out of range [-90, 90]", lat)
	}
	return nil
}

// Normalize fills the GeoJSON type
func (p GeoPoint) Normalize() GeoPoint {
	p.Type = "Point"
	return p
}

// DistanceMeters is the haversine great-circle distance between two points
func DistanceMeters(a, b GeoPoint) float64 {
	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Lng() - a.Lng()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// BoundingBox is a lat/lng rectangle enclosing a circle
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	// WrapsLng is set when the box crosses the antimeridian or covers a pole,
	// in which case longitude is not constrained.
	WrapsLng bool
}

// BoundingBoxFor returns a rectangle that contains every point within radius of center
func BoundingBoxFor(center GeoPoint, radiusMeters float64) BoundingBox {
	angular := radiusMeters / EarthRadiusMeters
	if angular >= math.Pi/2 {
		return BoundingBox{MinLat: -90, MaxLat: 90, WrapsLng: true}
	}
	latDelta := angular * 180 / math.Pi

	box := BoundingBox{
		MinLat: center.Lat() - latDelta,
		MaxLat: center.Lat() + latDelta,
	}
	if box.MinLat <= -90 || box.MaxLat >= 90 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)
		box.WrapsLng = true
		return box
	}

	lngDelta := math.Asin(math.Min(1, math.Sin(angular)/math.Cos(center.Lat()*math.Pi/180))) * 180 / math.Pi
	box.MinLng = center.Lng() - lngDelta
	box.MaxLng = center.Lng() + lngDelta
	if box.MinLng < -180 || box.MaxLng > 180 {
		box.WrapsLng = true
	}
	return box
}

// Contains reports whether p lies inside the box
func (b BoundingBox) Contains(p GeoPoint) bool {
	if p.Lat() < b.MinLat || p.Lat() > b.MaxLat {
		return false
	}
	if b.WrapsLng {
		return true
	}
	return p.Lng() >= b.MinLng && p.Lng() <= b.MaxLng
}
