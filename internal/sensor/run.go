package sensor

import (
	"context"
	"time"

	"github.com/thurmanmarka/skyfix/internal/logging"
	"github.com/thurmanmarka/skyfix/internal/orientation"
)

// Sink receives every reading Run sees together with the result of
// converting it. err is non-nil for rejected readings.
type Sink func(r orientation.Reading, err error)

// Ingest converts r and, if it is usable, stores it in cell. Readings
// without a timestamp are stamped with now. Rejected readings leave the
// cell untouched.
func Ingest(cell *Cell, r orientation.Reading, now time.Time) (Sample, error) {
	aa, err := orientation.ToAltAz(r)
	if err != nil {
		return Sample{}, err
	}
	t := r.Time
	if t.IsZero() {
		t = now
	}
	s := Sample{AltAz: aa, Time: t}
	cell.Store(s)
	return s, nil
}

// Run consumes readings until in is closed or ctx is done, keeping cell
// holding the latest usable one. Readings without a timestamp are stamped
// with now(), which defaults to time.Now. sink may be nil.
func Run(ctx context.Context, in <-chan orientation.Reading, cell *Cell, sink Sink, now func() time.Time, log logging.Logger) error {
	if log == nil {
		log = logging.Noop()
	}
	if now == nil {
		now = time.Now
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-in:
			if !ok {
				return nil
			}
			_, err := Ingest(cell, r, now())
			if err != nil {
				log.Debug(ctx, "orientation reading rejected", logging.Err(err))
			}
			if sink != nil {
				sink(r, err)
			}
		}
	}
}
