package utils

import "math"

// RadiusOfEarthInMeters is the mean earth radius used for station distances.
const RadiusOfEarthInMeters = 6371010.0

const degToRad = math.Pi / 180

// CoordinateBounds is a latitude/longitude box around a search point.
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Min and Max return the box corners in x/y (lon/lat) order, the layout the
// station spatial index is keyed on.
func (b CoordinateBounds) Min() [2]float64 { return [2]float64{b.MinLon, b.MinLat} }

func (b CoordinateBounds) Max() [2]float64 { return [2]float64{b.MaxLon, b.MaxLat} }

func (b CoordinateBounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Distance returns the distance in meters between two points. Points within
// ~0.2 degrees of each other, which covers any walk between stations, use the
// equirectangular approximation.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	if math.Abs(lat2-lat1) < 0.2 && math.Abs(lon2-lon1) < 0.2 {
		x := (lon2 - lon1) * degToRad * math.Cos((lat1+lat2)/2*degToRad)
		y := (lat2 - lat1) * degToRad
		return RadiusOfEarthInMeters * math.Sqrt(x*x+y*y)
	}

	phi1, phi2 := lat1*degToRad, lat2*degToRad
	dLon := (lon2 - lon1) * degToRad

	y := math.Hypot(math.Cos(phi2)*math.Sin(dLon),
		math.Cos(phi1)*math.Sin(phi2)-math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon))
	x := math.Sin(phi1)*math.Sin(phi2) + math.Cos(phi1)*math.Cos(phi2)*math.Cos(dLon)
	return RadiusOfEarthInMeters * math.Atan2(y, x)
}

// CalculateBounds returns the box enclosing a circle of radius meters.
func CalculateBounds(lat, lon, radius float64) CoordinateBounds {
	latOffset := radius / RadiusOfEarthInMeters / degToRad
	lonOffset := radius / (math.Cos(lat*degToRad) * RadiusOfEarthInMeters) / degToRad

	return CoordinateBounds{
		MinLat: lat - latOffset,
		MaxLat: lat + latOffset,
		MinLon: lon - lonOffset,
		MaxLon: lon + lonOffset,
	}
}

// ValidCoordinate reports whether lat/lon is a real point on the globe.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
