// Package sensor holds the latest orientation sample and the plumbing that
// feeds it: a channel consumer and a paced replay of recorded readings.
package sensor

import (
	"sync/atomic"
	"time"

	"github.com/thurmanmarka/skyfix/internal/orientation"
)

// Sample is a converted orientation reading.
type Sample struct {
	AltAz orientation.AltAz
	// Time is when the reading was taken.
	Time time.Time
}

// Age returns how old the sample is at now.
func (s Sample) Age(now time.Time) time.Duration {
	return now.Sub(s.Time)
}

// Cell is a single-slot, last-writer-wins holder for the latest sample.
// Store and Load never block each other. The zero value is empty and ready
// to use.
type Cell struct {
	p atomic.Pointer[Sample]
}

// Store replaces the current sample.
func (c *Cell) Store(s Sample) {
	c.p.Store(&s)
}

// Load returns the current sample. ok is false if nothing was ever stored.
func (c *Cell) Load() (s Sample, ok bool) {
	p := c.p.Load()
	if p == nil {
		return Sample{}, false
	}
	return *p, true
}

// Reset empties the cell.
func (c *Cell) Reset() {
	c.p.Store(nil)
}
