package skyfix

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/thurmanmarka/skyfix/internal/logging"
	"github.com/thurmanmarka/skyfix/internal/observability"
	"github.com/thurmanmarka/skyfix/internal/sensor"
)

// SighterOptions configures a Sighter. The zero value is usable.
type SighterOptions struct {
	Lunar LunarModel

	// MaxAge makes readings older than this (relative to the sighting
	// time) count as missing. Zero accepts any age.
	MaxAge time.Duration

	Logger  logging.Logger
	Metrics *observability.SightingCollector
	Tracer  trace.Tracer

	// Now stamps readings that arrive without a time. Defaults to time.Now.
	Now func() time.Time
}

// Sighter keeps the latest orientation reading and turns it into a position
// when a sighting is taken.
//
// The sensor side (Observe, Run) and the sighting side (TakeSighting) share
// one last-writer-wins slot and never wait on each other.
type Sighter struct {
	cell    sensor.Cell
	fixer   Fixer
	maxAge  time.Duration
	log     logging.Logger
	metrics *observability.SightingCollector
	tracer  trace.Tracer
	now     func() time.Time
}

// NewSighter returns a Sighter with an empty reading slot.
func NewSighter(opts SighterOptions) *Sighter {
	s := &Sighter{
		fixer:   Fixer{Lunar: opts.Lunar},
		maxAge:  opts.MaxAge,
		log:     opts.Logger,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
		now:     opts.Now,
	}
	if s.log == nil {
		s.log = logging.Noop()
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer(observability.TracerName)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Observe converts r and makes it the latest reading. Unusable readings are
// returned as errors and leave the previous reading in place.
func (s *Sighter) Observe(r Reading) error {
	_, err := sensor.Ingest(&s.cell, r, s.now())
	s.metrics.ObserveReading(err == nil)
	if err != nil {
		s.log.Debug(context.Background(), "orientation reading rejected", logging.Err(err))
	}
	return err
}

// Run feeds readings from in until it is closed or ctx is done.
func (s *Sighter) Run(ctx context.Context, in <-chan Reading) error {
	return sensor.Run(ctx, in, &s.cell, func(_ Reading, err error) {
		s.metrics.ObserveReading(err == nil)
	}, s.now, s.log)
}

// Latest returns the most recent usable reading and when it was taken.
func (s *Sighter) Latest() (AltAz, time.Time, bool) {
	sample, ok := s.cell.Load()
	return sample.AltAz, sample.Time, ok
}

// Reset forgets the latest reading.
func (s *Sighter) Reset() {
	s.cell.Reset()
}

// TakeSighting reduces the latest reading of body at t to a position.
//
// It fails with ErrMissingReading if no reading has arrived (or the latest
// is older than MaxAge) and with ErrNoSolution if the reading does not
// give a consistent position.
func (s *Sighter) TakeSighting(ctx context.Context, body Body, t time.Time) (Estimate, error) {
	start := time.Now()
	ctx, log := logging.WithSightingLogger(ctx, s.log)
	ctx, span := s.tracer.Start(ctx, "skyfix.TakeSighting",
		trace.WithAttributes(
			attribute.String("skyfix.body", body.String()),
			attribute.Float64("skyfix.julian_date", JulianDate(t)),
		))
	defer span.End()

	est, err := s.takeSighting(ctx, body, t)
	outcome := outcomeOf(err)
	s.metrics.ObserveSighting(body.String(), outcome, time.Since(start))
	span.SetAttributes(attribute.String("skyfix.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		log.Info(ctx, "sighting failed",
			logging.String("body", body.String()),
			logging.String("outcome", outcome),
			logging.Err(err))
		return Estimate{}, err
	}

	log.Info(ctx, "sighting solved",
		logging.String("body", body.String()),
		logging.Float("julian_date", est.JulianDate),
		logging.Float("lat", est.Here.Lat),
		logging.Float("lon", est.Here.Lon))
	return est, nil
}

func (s *Sighter) takeSighting(ctx context.Context, body Body, t time.Time) (Estimate, error) {
	sample, ok := s.cell.Load()
	if !ok {
		return Estimate{}, ErrMissingReading
	}
	age := sample.Age(t)
	s.metrics.ObserveReadingAge(age)
	if s.maxAge > 0 && age > s.maxAge {
		return Estimate{}, ErrStaleReading
	}
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Float64("skyfix.altitude", sample.AltAz.Altitude),
		attribute.Float64("skyfix.azimuth", sample.AltAz.Azimuth),
	)
	return s.fixer.Locate(body, sample.AltAz, t)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, ErrMissingReading):
		return observability.OutcomeMissing
	case errors.Is(err, ErrNoSolution):
		return observability.OutcomeNoSolution
	default:
		return observability.OutcomeError
	}
}
