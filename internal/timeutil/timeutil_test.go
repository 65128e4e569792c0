package timeutil

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/meeus/v3/julian"
)

func TestJulianDate_J2000(t *testing.T) {
	epoch := time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)
	if got := JulianDate(epoch); got != J2000 {
		t.Fatalf("JulianDate(J2000.0) = %.9f, want %.1f", got, J2000)
	}
	if got := JulianDate(time.Unix(0, 0)); got != J1970-0.5 {
		t.Fatalf("JulianDate(unix epoch) = %.9f, want %.1f", got, J1970-0.5)
	}
}

func TestJulianDate_MatchesReferences(t *testing.T) {
	times := []time.Time{
		time.Date(1992, time.April, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.November, 30, 21, 15, 30, 0, time.UTC),
		time.Date(2031, time.June, 21, 4, 0, 0, 0, time.UTC),
	}

	const tol = 1e-6 // days, ~0.1 s

	for _, tm := range times {
		got := JulianDate(tm)

		if ref := julian.TimeToJD(tm); math.Abs(got-ref) > tol {
			t.Errorf("%v: JulianDate = %.8f, meeus = %.8f", tm, got, ref)
		}

		ref := satellite.JDay(tm.Year(), int(tm.Month()), tm.Day(), tm.Hour(), tm.Minute(), tm.Second())
		if math.Abs(got-ref) > tol {
			t.Errorf("%v: JulianDate = %.8f, go-satellite = %.8f", tm, got, ref)
		}
	}
}

func TestJulianDate_TimeRoundTrip(t *testing.T) {
	tm := time.Date(2024, time.March, 3, 17, 45, 12, 250*int(time.Millisecond), time.UTC)
	if got := Time(JulianDate(tm)); !got.Equal(tm) {
		t.Fatalf("Time(JulianDate(%v)) = %v", tm, got)
	}
}

func TestJulianCenturies(t *testing.T) {
	if got := JulianCenturies(J2000 + DaysPerCentury); got != 1 {
		t.Fatalf("JulianCenturies = %v, want 1", got)
	}
	if got := DaysSinceJ2000(J2000 - 1.5); got != -1.5 {
		t.Fatalf("DaysSinceJ2000 = %v, want -1.5", got)
	}
}

func TestNormalize360(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{360, 0},
		{-90, 270},
		{725, 5},
		{-1e-15, 0},
	}
	for _, tt := range tests {
		got := Normalize360(tt.in)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Normalize360(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if got < 0 || got >= 360 {
			t.Errorf("Normalize360(%v) = %v out of [0,360)", tt.in, got)
		}
	}
}

func TestMod(t *testing.T) {
	if got := Mod(-30, 360); got != 330 {
		t.Fatalf("Mod(-30, 360) = %v, want 330", got)
	}
	if got := Mod(370, 360); got != 10 {
		t.Fatalf("Mod(370, 360) = %v, want 10", got)
	}
}

func TestFinite(t *testing.T) {
	if !Finite(1, -2, 0) {
		t.Fatal("Finite(1, -2, 0) = false")
	}
	if Finite(1, math.NaN()) || Finite(math.Inf(-1)) {
		t.Fatal("Finite accepted NaN or Inf")
	}
}
