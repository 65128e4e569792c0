// Package observability holds the Prometheus metrics and OpenTelemetry
// tracing set-up for sightings.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sighting outcome labels.
const (
	OutcomeOK         = "ok"
	OutcomeNoSolution = "no_solution"
	OutcomeMissing    = "missing_reading"
	OutcomeError      = "error"
)

// Reading result labels.
const (
	ReadingAccepted = "accepted"
	ReadingRejected = "rejected"
)

// SightingCollector bundles the sighting and sensor metrics.
type SightingCollector struct {
	gatherer prometheus.Gatherer

	Sightings        *prometheus.CounterVec
	SightingDuration *prometheus.HistogramVec
	Readings         *prometheus.CounterVec
	ReadingAge       prometheus.Histogram
}

// NewSightingCollector registers sighting metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSightingCollector(reg prometheus.Registerer) (*SightingCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	sightings, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyfix_sightings_total",
		Help: "Sightings taken, labeled by body and outcome.",
	}, []string{"body", "outcome"}), "skyfix_sightings_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skyfix_sighting_duration_seconds",
		Help:    "Time spent reducing a sighting to a position.",
		Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3},
	}, []string{"body"}), "skyfix_sighting_duration_seconds")
	if err != nil {
		return nil, err
	}

	readings, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skyfix_readings_total",
		Help: "Orientation readings received, labeled by whether they were usable.",
	}, []string{"result"}), "skyfix_readings_total")
	if err != nil {
		return nil, err
	}

	age, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skyfix_reading_age_seconds",
		Help:    "Age of the orientation reading used by a sighting.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}), "skyfix_reading_age_seconds")
	if err != nil {
		return nil, err
	}

	return &SightingCollector{
		gatherer:         gatherer,
		Sightings:        sightings,
		SightingDuration: durations,
		Readings:         readings,
		ReadingAge:       age,
	}, nil
}

// ObserveSighting records one sighting. A nil collector is a no-op.
func (c *SightingCollector) ObserveSighting(body, outcome string, took time.Duration) {
	if c == nil {
		return
	}
	c.Sightings.WithLabelValues(body, outcome).Inc()
	c.SightingDuration.WithLabelValues(body).Observe(took.Seconds())
}

// ObserveReading counts one orientation reading.
func (c *SightingCollector) ObserveReading(accepted bool) {
	if c == nil {
		return
	}
	result := ReadingRejected
	if accepted {
		result = ReadingAccepted
	}
	c.Readings.WithLabelValues(result).Inc()
}

// ObserveReadingAge records how old the reading behind a sighting was.
func (c *SightingCollector) ObserveReadingAge(age time.Duration) {
	if c == nil || age < 0 {
		return
	}
	c.ReadingAge.Observe(age.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SightingCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
