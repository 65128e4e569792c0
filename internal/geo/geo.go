// Package geo converts between the west-positive longitudes used in the
// sighting maths and the signed east-positive ones used at the boundary.
package geo

import (
	"fmt"
	"math"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"

	"github.com/thurmanmarka/skyfix/internal/timeutil"
)

// MeanEarthRadiusKm is the IUGG mean radius.
const MeanEarthRadiusKm = 6371.0088

// Position is a geographic position in degrees. Lon is east-positive in
// [-180, 180].
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SignedLongitude maps a west-positive longitude in any range to an
// east-positive one in [-180, 180]. The antimeridian maps to -180.
func SignedLongitude(lonWest float64) float64 {
	lw := timeutil.Mod(lonWest, 360)
	if lw <= 180 {
		return -lw + 0 // avoid -0
	}
	return 360 - lw
}

// WestLongitude is the inverse of SignedLongitude: it returns the
// west-positive longitude in [0, 360).
func WestLongitude(lonEast float64) float64 {
	return timeutil.Normalize360(-lonEast)
}

// FromWest builds a Position from a latitude and west-positive longitude.
func FromWest(lat, lonWest float64) Position {
	return Position{Lat: lat, Lon: SignedLongitude(lonWest)}
}

// Normalize returns p with its longitude folded into [-180, 180].
// Normalize(Normalize(p)) == Normalize(p).
func Normalize(p Position) Position {
	return Position{Lat: p.Lat, Lon: SignedLongitude(WestLongitude(p.Lon))}
}

// Distance returns the great-circle distance between a and b in km
// (haversine on a spherical Earth).
func Distance(a, b Position) float64 {
	dLat := timeutil.Deg2Rad(b.Lat - a.Lat)
	dLon := timeutil.Deg2Rad(b.Lon - a.Lon)
	h := math.Pow(math.Sin(dLat/2), 2) +
		timeutil.CosD(a.Lat)*timeutil.CosD(b.Lat)*math.Pow(math.Sin(dLon/2), 2)
	return 2 * MeanEarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// FormatDMS renders p as degrees, minutes and seconds with hemisphere
// letters, e.g. "51°28′38.0″N 0°0′5.3″W".
func FormatDMS(p Position) string {
	return fmt.Sprintf("%s %s",
		hemisphere(p.Lat, 'N', 'S'),
		hemisphere(p.Lon, 'E', 'W'))
}

func hemisphere(deg float64, pos, neg rune) string {
	h := pos
	if deg < 0 {
		h = neg
	}
	return fmt.Sprintf("%.1s%c", sexa.FmtAngle(unit.AngleFromDeg(math.Abs(deg))), h)
}
