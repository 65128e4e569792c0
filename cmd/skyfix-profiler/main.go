package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/thurmanmarka/skyfix"
)

type stats struct {
	count int
	sum   float64
	min   float64
	max   float64
}

func (s *stats) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	if s.count == 0 {
		s.min, s.max = v, v
	} else {
		if v < s.min {
			s.min = v
		}
		if v > s.max {
			s.max = v
		}
	}
	s.sum += v
	s.count++
}

func (s *stats) avg() float64 {
	if s.count == 0 {
		return math.NaN()
	}
	return s.sum / float64(s.count)
}

func (s *stats) print(title string) {
	fmt.Printf("\n%s:\n", title)
	fmt.Printf("  count: %d\n", s.count)
	fmt.Printf("  min:   %.3f\n", s.min)
	fmt.Printf("  max:   %.3f\n", s.max)
	fmt.Printf("  avg:   %.3f\n", s.avg())
}

// sighting is one row to reduce: where the observer really was and what
// the sensor read.
type sighting struct {
	label string
	body  skyfix.Body
	time  time.Time
	truth skyfix.Position
	obs   skyfix.AltAz
}

// CSV format:
//
// time,body,lat,lon,alt,az
// 2025-06-21T19:00:00Z,sun,33.4484,-112.0740,69.81,243.12
//
// - time is RFC3339
// - lat/lon are the observer's true position (east positive)
// - alt/az are the observed altitude and azimuth in degrees
//
// Without -refcsv the profiler generates synthetic sightings on a grid of
// observers and perturbs them with -noise degrees of Gaussian error.
func main() {
	var (
		refCSV  = flag.String("refcsv", "", "path to reference sightings CSV (time,body,lat,lon,alt,az)")
		lunar   = flag.String("lunar", "meeus", "lunar model: meeus or abridged")
		bodyS   = flag.String("body", "sun", "body for synthetic sightings: sun or moon")
		start   = flag.String("start", "2025-01-01T00:00:00Z", "first synthetic sighting time (RFC3339)")
		days    = flag.Int("days", 30, "days of synthetic sightings")
		noise   = flag.Float64("noise", 0, "synthetic sensor noise, degrees (1 sigma)")
		seed    = flag.Int64("seed", 1, "random seed for synthetic noise")
		verbose = flag.Bool("verbose", false, "log per-sighting errors instead of only summary")
		outCSV  = flag.String("outcsv", "", "optional path to write per-row error CSV")
	)
	flag.Parse()

	model, err := skyfix.ParseLunarModel(*lunar)
	if err != nil {
		log.Fatalf("%v", err)
	}
	fixer := skyfix.Fixer{Lunar: model}

	var (
		rows     []sighting
		modeDesc string
	)
	if *refCSV != "" {
		rows = readReference(*refCSV)
		modeDesc = "REFERENCE " + *refCSV
	} else {
		body, err := skyfix.ParseBody(*bodyS)
		if err != nil {
			log.Fatalf("%v", err)
		}
		t0, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			log.Fatalf("invalid -start %q: %v", *start, err)
		}
		rows = synthesize(fixer, body, t0, *days, *noise, rand.New(rand.NewSource(*seed)))
		modeDesc = fmt.Sprintf("SYNTHETIC %s (noise %.3f°)", strings.ToUpper(body.String()), *noise)
	}

	var outWriter *csv.Writer
	if *outCSV != "" {
		outFile, err := os.Create(*outCSV)
		if err != nil {
			log.Fatalf("failed to create outcsv %q: %v", *outCSV, err)
		}
		defer outFile.Close()

		outWriter = csv.NewWriter(outFile)
		defer outWriter.Flush()

		if err := outWriter.Write([]string{
			"label", "body", "time", "true_lat", "true_lon", "fix_lat", "fix_lon", "error_km", "outcome",
		}); err != nil {
			log.Fatalf("failed to write outcsv header: %v", err)
		}
	}

	var (
		distStats stats
		latStats  stats
		lonStats  stats
		noFix     int
	)

	for _, s := range rows {
		est, err := fixer.Locate(s.body, s.obs, s.time)
		outcome := "ok"
		errKm := math.NaN()
		if err != nil {
			outcome = "no_solution"
			if !errors.Is(err, skyfix.ErrNoSolution) {
				outcome = "error"
			}
			noFix++
			if *verbose {
				fmt.Printf("%s: %v\n", s.label, err)
			}
		} else {
			errKm = skyfix.Distance(est.Here, s.truth)
			distStats.add(errKm)
			latStats.add(math.Abs(est.Here.Lat - s.truth.Lat))
			lonStats.add(math.Abs(skyfix.NormalizeLongitude(est.Here.Lon - s.truth.Lon)))
			if *verbose {
				fmt.Printf("%s: err=%.2f km (got=%s ref=%s)\n", s.label, errKm,
					skyfix.FormatPosition(est.Here), skyfix.FormatPosition(s.truth))
			}
		}

		if outWriter != nil {
			rec := []string{
				s.label,
				s.body.String(),
				s.time.Format(time.RFC3339),
				fmt.Sprintf("%.6f", s.truth.Lat),
				fmt.Sprintf("%.6f", s.truth.Lon),
				fmt.Sprintf("%.6f", est.Here.Lat),
				fmt.Sprintf("%.6f", est.Here.Lon),
				fmt.Sprintf("%.3f", errKm),
				outcome,
			}
			if err := outWriter.Write(rec); err != nil {
				log.Printf("%s: failed to write outcsv: %v", s.label, err)
			}
		}
	}

	fmt.Println("=== skyfix profiler summary ===")
	fmt.Printf("Mode:   %s\n", modeDesc)
	fmt.Printf("Lunar:  %s\n", model)
	fmt.Printf("Rows:   %d (%d solved, %d no fix)\n", len(rows), len(rows)-noFix, noFix)

	if distStats.count == 0 {
		fmt.Println("No solved sightings to compute stats.")
		return
	}
	distStats.print("Position error (km)")
	latStats.print("Latitude error (degrees)")
	lonStats.print("Longitude error (degrees)")
}

func readReference(path string) []sighting {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open refcsv %q: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // allow variable, we validate

	records, err := r.ReadAll()
	if err != nil {
		log.Fatalf("failed to read CSV: %v", err)
	}
	if len(records) == 0 {
		log.Fatalf("empty CSV file")
	}

	// If first row looks like a header, skip it.
	startIdx := 0
	if len(records[0]) >= 1 && strings.EqualFold(strings.TrimSpace(records[0][0]), "time") {
		startIdx = 1
	}

	var out []sighting
	for i := startIdx; i < len(records); i++ {
		row := records[i]
		if len(row) < 6 {
			log.Printf("row %d: expected 6 columns (time,body,lat,lon,alt,az), got %d, skipping", i+1, len(row))
			continue
		}
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(row[0]))
		if err != nil {
			log.Printf("row %d: invalid time %q: %v, skipping", i+1, row[0], err)
			continue
		}
		body, err := skyfix.ParseBody(row[1])
		if err != nil {
			log.Printf("row %d: %v, skipping", i+1, err)
			continue
		}
		var nums [4]float64
		bad := false
		for j := range nums {
			nums[j], err = strconv.ParseFloat(strings.TrimSpace(row[2+j]), 64)
			if err != nil {
				log.Printf("row %d: invalid number %q: %v, skipping", i+1, row[2+j], err)
				bad = true
				break
			}
		}
		if bad {
			continue
		}
		out = append(out, sighting{
			label: fmt.Sprintf("row %d", i+1),
			body:  body,
			time:  t,
			truth: skyfix.Position{Lat: nums[0], Lon: nums[1]},
			obs:   skyfix.AltAz{Altitude: nums[2], Azimuth: nums[3]},
		})
	}
	return out
}

// synthesize places observers on a lat/lon grid every three hours and keeps
// the sightings where the body is at least 10° up.
func synthesize(fixer skyfix.Fixer, body skyfix.Body, t0 time.Time, days int, noise float64, rng *rand.Rand) []sighting {
	var out []sighting
	for h := 0; h < days*24; h += 3 {
		t := t0.Add(time.Duration(h) * time.Hour)
		for lat := -60.0; lat <= 60; lat += 20 {
			for lon := -180.0; lon < 180; lon += 30 {
				truth := skyfix.Position{Lat: lat, Lon: lon}
				aa, err := fixer.Predict(body, truth, t)
				if err != nil || aa.Altitude < 10 {
					continue
				}
				aa.Altitude += rng.NormFloat64() * noise
				aa.Azimuth = math.Mod(aa.Azimuth+rng.NormFloat64()*noise+360, 360)
				out = append(out, sighting{
					label: fmt.Sprintf("%s %+.0f/%+.0f", t.Format(time.RFC3339), lat, lon),
					body:  body,
					time:  t,
					truth: truth,
					obs:   aa,
				})
			}
		}
	}
	return out
}
