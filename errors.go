package gstroke

import (
	"errors"
	"fmt"

	"github.com/soypat/gstroke/gleval"
)

// InitializationError is returned when the stroke pipeline cannot be built.
// The session cannot proceed after it.
type InitializationError struct {
	// Stage names the resource that failed to build.
	Stage string
	Err   error
}

func (e *InitializationError) Error() string {
	return "gstroke: initializing " + e.Stage + ": " + e.Err.Error()
}

func (e *InitializationError) Unwrap() error { return e.Err }

// CapacityError reports a point rejected because the vertex texture is full.
// It matches [gleval.ErrOutOfCapacity] with errors.Is.
type CapacityError struct {
	// Index is the polyline index the rejected point would have taken.
	Index int
	// Capacity is the vertex texture capacity at the time of the append.
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("gstroke: point %d rejected: %v (capacity %d)", e.Index, gleval.ErrOutOfCapacity, e.Capacity)
}

func (e *CapacityError) Unwrap() error { return gleval.ErrOutOfCapacity }

var (
	errPassPending = errors.New("gstroke: previous pass not committed")
	errNoPass      = errors.New("gstroke: no pass pending")
)
