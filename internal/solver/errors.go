package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSolution is returned when no geometrically consistent observer
	// position exists for a sighting. It usually means a garbled reading.
	ErrNoSolution = errors.New("no position solution for sighting")

	// ErrBelowHorizon is returned by Predict when the body cannot be seen
	// from the given observer.
	ErrBelowHorizon = errors.New("body is below the horizon")
)

// Error carries the step that failed alongside one of the sentinels above.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Kind }
