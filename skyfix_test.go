package skyfix

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

// Tolerance for recovering a synthetic observer, degrees.
const fixTol = 0.1

func lonDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

var sightingTimes = []time.Time{
	time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC),
	time.Date(2024, time.March, 20, 9, 30, 0, 0, time.UTC),
	time.Date(2024, time.June, 21, 17, 45, 0, 0, time.UTC),
	time.Date(2025, time.November, 30, 3, 10, 0, 0, time.UTC),
}

// Observers are placed around each sub-point so the body is comfortably
// above the horizon, east and west of the meridian, north and south of it.
func TestLocateRoundTrip(t *testing.T) {
	for _, f := range []Fixer{{Lunar: LunarMeeus}, {Lunar: LunarAbridged}} {
		for _, body := range []Body{Sun, Moon} {
			for _, tm := range sightingTimes {
				sp, err := f.SubPoint(body, tm)
				if err != nil {
					t.Fatalf("SubPoint(%v, %v): %v", body, tm, err)
				}
				for _, off := range []Position{{Lat: 20, Lon: 30}, {Lat: -25, Lon: -35}, {Lat: 15, Lon: -20}, {Lat: -10, Lon: 45}} {
					obs := NormalizePosition(Position{Lat: sp.Lat + off.Lat, Lon: sp.Lon + off.Lon})

					aa, err := f.Predict(body, obs, tm)
					if err != nil {
						t.Fatalf("%v %v %v: Predict: %v", f.Lunar, body, tm, err)
					}
					est, err := f.Locate(body, aa, tm)
					if err != nil {
						t.Fatalf("%v %v %v obs=%v: Locate(%+v): %v", f.Lunar, body, tm, obs, aa, err)
					}
					if d := math.Abs(est.Here.Lat - obs.Lat); d > fixTol {
						t.Errorf("%v %v obs=%v: lat %.4f", body, tm, obs, est.Here.Lat)
					}
					if d := lonDiff(est.Here.Lon, obs.Lon); d > fixTol {
						t.Errorf("%v %v obs=%v: lon %.4f", body, tm, obs, est.Here.Lon)
					}
					if est.Here.Lon < -180 || est.Here.Lon > 180 || est.SubPoint.Lon < -180 || est.SubPoint.Lon > 180 {
						t.Errorf("longitudes not normalized: %+v", est)
					}
				}
			}
		}
	}
}

func TestEstimateFields(t *testing.T) {
	tm := sightingTimes[2]
	sp, _ := SubPoint(Moon, tm)
	obs := NormalizePosition(Position{Lat: sp.Lat - 20, Lon: sp.Lon + 25})

	aa, err := Predict(Moon, obs, tm)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	est, err := Locate(Moon, aa, tm)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if est.Body != Moon || !est.Time.Equal(tm) || est.JulianDate != JulianDate(tm) {
		t.Errorf("bad identity fields %+v", est)
	}
	if est.Parallax < 0.85 || est.Parallax > 1.05 {
		t.Errorf("lunar parallax = %v", est.Parallax)
	}
	if est.Refraction <= 0 || math.Abs(est.Altitude-(aa.Altitude+est.Refraction)) > 1e-12 {
		t.Errorf("refraction %v altitude %v observed %v", est.Refraction, est.Altitude, aa.Altitude)
	}
	if est.SubPoint != sp || est.Declination != sp.Lat {
		t.Errorf("sub-point %+v, want %+v", est.SubPoint, sp)
	}
	if est.RightAscension < 0 || est.RightAscension >= 360 {
		t.Errorf("RA %v out of range", est.RightAscension)
	}
}

func TestSunEclipticJ2000(t *testing.T) {
	j2000 := time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)
	if jd := JulianDate(j2000); jd != 2451545.0 {
		t.Fatalf("JulianDate(J2000) = %v", jd)
	}
	e := SunEcliptic(j2000)
	if e.Lat != 0 || math.Abs(e.Lon-280.38) > 0.01 {
		t.Errorf("SunEcliptic(J2000) = %+v, want lon ~280.38", e)
	}
}

func TestMoonEcliptic(t *testing.T) {
	e, p, err := MoonEcliptic(sightingTimes[1])
	if err != nil {
		t.Fatalf("MoonEcliptic: %v", err)
	}
	if math.Abs(e.Lat) > 5.3 || e.Lon < 0 || e.Lon >= 360 {
		t.Errorf("MoonEcliptic = %+v", e)
	}
	if p < 0.85 || p > 1.05 {
		t.Errorf("parallax = %v", p)
	}
}

func TestUnknownLunarModel(t *testing.T) {
	f := Fixer{Lunar: LunarModel(99)}
	if _, _, err := f.Ecliptic(Moon, JulianDate(sightingTimes[1])); err == nil {
		t.Error("Ecliptic with unknown lunar model succeeded")
	}
	if _, err := f.Locate(Moon, AltAz{Altitude: 30, Azimuth: 120}, sightingTimes[1]); err == nil {
		t.Error("Locate with unknown lunar model succeeded")
	}
	// The Sun does not depend on the lunar model.
	if _, _, err := f.Ecliptic(Sun, JulianDate(sightingTimes[1])); err != nil {
		t.Errorf("Sun Ecliptic: %v", err)
	}
}

func TestLocateFailures(t *testing.T) {
	tm := sightingTimes[0]
	cases := []struct {
		name string
		obs  AltAz
	}{
		{"below horizon", AltAz{Altitude: -1, Azimuth: 100}},
		{"nan", AltAz{Altitude: math.NaN(), Azimuth: 100}},
		{"inconsistent", AltAz{Altitude: 2, Azimuth: 90}},
	}
	for _, c := range cases {
		if _, err := Locate(Sun, c.obs, tm); !errors.Is(err, ErrNoSolution) {
			t.Errorf("%s: err = %v, want ErrNoSolution", c.name, err)
		}
	}
	if _, err := Locate(Body(7), AltAz{Altitude: 30}, tm); !errors.Is(err, ErrUnknownBody) {
		t.Errorf("unknown body err = %v", err)
	}
}

func TestLocateReadingFoldsOrientationErrors(t *testing.T) {
	_, err := LocateReading(Sun, Reading{Quaternion: &[4]float64{}}, sightingTimes[0])
	if !errors.Is(err, ErrNoSolution) || !errors.Is(err, ErrDegenerateOrientation) {
		t.Fatalf("err = %v, want ErrNoSolution wrapping ErrDegenerateOrientation", err)
	}

	_, err = LocateReading(Sun, Reading{Euler: &Euler{Beta: 100}}, sightingTimes[0])
	if !errors.Is(err, ErrNoHeading) {
		t.Fatalf("err = %v, want ErrNoHeading", err)
	}
}

func TestPredictBelowHorizon(t *testing.T) {
	tm := sightingTimes[0]
	sp, _ := SubPoint(Sun, tm)
	antipode := NormalizePosition(Position{Lat: -sp.Lat, Lon: sp.Lon + 180})
	if _, err := Predict(Sun, antipode, tm); !errors.Is(err, ErrBelowHorizon) {
		t.Fatalf("err = %v, want ErrBelowHorizon", err)
	}
}

func TestNormalizeLongitude(t *testing.T) {
	for _, x := range []float64{-725, -540, -180, -179.5, -0.0, 0, 12.5, 180, 181, 359.9, 360, 1e6} {
		n := NormalizeLongitude(x)
		if n < -180 || n > 180 {
			t.Errorf("NormalizeLongitude(%v) = %v out of range", x, n)
		}
		if nn := NormalizeLongitude(n); nn != n {
			t.Errorf("not idempotent at %v: %v then %v", x, n, nn)
		}
	}
}

func TestParseBody(t *testing.T) {
	for in, want := range map[string]Body{"sun": Sun, " Moon ": Moon, "SUN": Sun} {
		got, err := ParseBody(in)
		if err != nil || got != want {
			t.Errorf("ParseBody(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseBody("venus"); !errors.Is(err, ErrUnknownBody) {
		t.Errorf("ParseBody(venus) err = %v", err)
	}
}

func TestBodyJSON(t *testing.T) {
	b, err := json.Marshal(struct{ B Body }{Moon})
	if err != nil || string(b) != `{"B":"moon"}` {
		t.Fatalf("Marshal = %s, %v", b, err)
	}
	var v struct{ B Body }
	if err := json.Unmarshal([]byte(`{"B":"sun"}`), &v); err != nil || v.B != Sun {
		t.Fatalf("Unmarshal = %+v, %v", v, err)
	}
	if _, err := json.Marshal(Body(9)); err == nil {
		t.Fatal("Marshal of unknown body succeeded")
	}
}
