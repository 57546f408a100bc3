package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// earthRadiusKm is the mean Earth radius used for all great-circle math.
const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Distance returns the haversine great-circle distance between a and b in
// kilometers. Symmetric; zero for identical points.
func Distance(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// WithinGeofence reports whether p lies inside the circular geofence of
// radiusMeters around center.
func WithinGeofence(p, center Point, radiusMeters float64) bool {
	return Distance(p, center)*1000 <= radiusMeters
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	return math.Mod(toDegrees(math.Atan2(y, x))+360, 360)
}

// destination returns the point reached from origin after traveling
// distanceKm along the given bearing (degrees) on the great circle.
func destination(origin Point, bearingDeg, distanceKm float64) Point {
	lat1 := toRadians(origin.Lat)
	lng1 := toRadians(origin.Lng)
	brg := toRadians(bearingDeg)
	d := distanceKm / earthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) +
		math.Cos(lat1)*math.Sin(d)*math.Cos(brg))
	lng2 := lng1 + math.Atan2(
		math.Sin(brg)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))

	return Point{Lat: toDegrees(lat2), Lng: toDegrees(lng2)}
}

// CircleBoundary samples the boundary of the geofence circle around center
// every stepDegrees of bearing. Used for map visualization only, never for
// containment tests. A non-positive step falls back to 10 degrees.
func CircleBoundary(center Point, radiusMeters, stepDegrees float64) []Point {
	if stepDegrees <= 0 {
		stepDegrees = 10
	}
	radiusKm := radiusMeters / 1000

	var pts []Point
	for deg := 0.0; deg < 360; deg += stepDegrees {
		pts = append(pts, destination(center, deg, radiusKm))
	}
	return pts
}

// BoundaryRing returns the sampled geofence boundary as a closed go-geom
// linear ring (lng/lat order), ready for GeoJSON encoding.
func BoundaryRing(center Point, radiusMeters, stepDegrees float64) *geom.LinearRing {
	pts := CircleBoundary(center, radiusMeters, stepDegrees)

	coords := make([]geom.Coord, 0, len(pts)+1)
	for _, p := range pts {
		coords = append(coords, geom.Coord{p.Lng, p.Lat})
	}
	if len(pts) > 0 {
		coords = append(coords, geom.Coord{pts[0].Lng, pts[0].Lat})
	}

	ring := geom.NewLinearRing(geom.XY)
	ring.MustSetCoords(coords)
	return ring
}
