package solver

import (
	"github.com/thurmanmarka/skyfix/internal/orientation"
	"github.com/thurmanmarka/skyfix/internal/sky"
	"github.com/thurmanmarka/skyfix/internal/timeutil"
)

// Prediction is the sighting an observer would take of a body.
type Prediction struct {
	// Observed is what the sensor would read: refraction included.
	Observed orientation.AltAz

	// Geocentric is the altitude seen from Earth's centre, before parallax
	// and refraction.
	Geocentric float64

	HourAngle float64 // local hour angle, degrees west
	Body      sky.SubPoint
}

// Predict is the inverse of Solve: given an observer (west-positive
// longitude) it returns the altitude/azimuth a sighting of the body at
// ecliptic position e on jd would read.
//
//	H      = subLon − obsLon
//	sin h  = sin φ sin δ + cos φ cos δ cos H
//	tan A  = −cos δ sin H / (sin δ cos φ − cos δ sin φ cos H)
//
// Parallax lowers the geocentric altitude; the refraction correction that
// Solve adds is then taken back out.
func Predict(observer sky.SubPoint, jd float64, e sky.Ecliptic, parallax float64) (Prediction, error) {
	if !timeutil.Finite(observer.Lat, observer.Lon, jd, e.Lat, e.Lon, parallax) {
		return Prediction{}, &Error{Kind: ErrNoSolution, Reason: "non-finite input"}
	}

	body, _ := sky.SubPointOf(jd, e)
	ha := timeutil.Normalize360(body.Lon - observer.Lon)

	sinPhi, cosPhi := timeutil.SinD(observer.Lat), timeutil.CosD(observer.Lat)
	sinDec, cosDec := timeutil.SinD(body.Lat), timeutil.CosD(body.Lat)
	cosH := timeutil.CosD(ha)

	h := timeutil.AsinD(sinPhi*sinDec + cosPhi*cosDec*cosH)
	az := timeutil.Atan2D(-cosDec*timeutil.SinD(ha), sinDec*cosPhi-cosDec*sinPhi*cosH)

	topo := h - parallax
	if topo < 0 {
		return Prediction{}, &Error{Kind: ErrBelowHorizon, Reason: "topocentric altitude negative"}
	}
	observed := RemoveRefraction(topo)
	if !timeutil.Finite(observed) || observed < 0 {
		return Prediction{}, &Error{Kind: ErrBelowHorizon, Reason: "refracted altitude negative"}
	}

	return Prediction{
		Observed:   orientation.AltAz{Altitude: observed, Azimuth: timeutil.Normalize360(az)},
		Geocentric: h,
		HourAngle:  ha,
		Body:       body,
	}, nil
}
