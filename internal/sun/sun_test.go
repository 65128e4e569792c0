package sun

import (
	"math"
	"testing"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/solar"

	"github.com/thurmanmarka/skyfix/internal/sky"
	"github.com/thurmanmarka/skyfix/internal/timeutil"
)

func angleDiff(a, b float64) float64 {
	d := math.Abs(timeutil.Normalize360(a) - timeutil.Normalize360(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// TestEcliptic_J2000 pins the model at the J2000.0 epoch.
func TestEcliptic_J2000(t *testing.T) {
	jd := timeutil.JulianDate(time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC))
	if jd != timeutil.J2000 {
		t.Fatalf("julian date of J2000.0 = %v", jd)
	}

	if m := MeanAnomaly(jd); math.Abs(m-357.5291) > 1e-9 {
		t.Errorf("mean anomaly = %.7f, want 357.5291", m)
	}

	e := Ecliptic(jd)
	if e.Lat != 0 {
		t.Errorf("ecliptic latitude = %v, want 0", e.Lat)
	}
	// 357.5291 + 102.9373 + 180 + C(M) - 360
	if math.Abs(e.Lon-280.3821) > 1e-3 {
		t.Errorf("ecliptic longitude = %.5f, want ~280.3821", e.Lon)
	}
}

func TestEcliptic_MatchesMeeusNearEpoch(t *testing.T) {
	const tol = 0.02 // degrees

	for day := -360.0; day <= 360; day += 30 {
		jd := timeutil.J2000 + day
		got := Ecliptic(jd).Lon
		ref, _ := solar.True(base.J2000Century(jd))
		if d := angleDiff(got, ref.Deg()); d > tol {
			t.Errorf("jd %.1f: λ = %.4f°, meeus %.4f° (diff %.4f°)", jd, got, ref.Deg(), d)
		}
	}
}

func TestEcliptic_Range(t *testing.T) {
	for jd := timeutil.J2000 - 20000; jd < timeutil.J2000+20000; jd += 97.3 {
		e := Ecliptic(jd)
		if e.Lon < 0 || e.Lon >= 360 {
			t.Fatalf("jd %v: λ = %v outside [0,360)", jd, e.Lon)
		}
	}
}

// TestSubPoint_Solstice checks the declination that falls out of the model
// plus the equatorial transform on a June solstice.
func TestSubPoint_Solstice(t *testing.T) {
	jd := timeutil.JulianDate(time.Date(2024, time.June, 20, 20, 51, 0, 0, time.UTC))
	sp, _ := sky.SubPointOf(jd, Ecliptic(jd))
	if math.Abs(sp.Lat-sky.Obliquity) > 0.05 {
		t.Errorf("solstice declination = %.4f, want ~%.4f", sp.Lat, sky.Obliquity)
	}
}

func TestEquationOfCenter(t *testing.T) {
	if c := EquationOfCenter(0); c != 0 {
		t.Errorf("C(0) = %v, want 0", c)
	}
	// Peaks near quadrature at about 1.9°.
	if c := EquationOfCenter(90); math.Abs(c-1.9145) > 1e-4 {
		t.Errorf("C(90) = %v, want 1.9145", c)
	}
}
