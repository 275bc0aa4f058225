// Package gstroke renders interactive anti-aliased strokes by evaluating the
// distance field of a growing polyline per pixel. Only segments added since the
// last accumulation pass are evaluated each frame; their contribution is
// composited onto a cached image held in a pair of ping-pong surfaces.
//
// The frame logic lives in [RendererState], a plain value that turns commands
// into draw operations. [Canvas] executes those operations on a
// [gleval.Backend] and presents the result every frame.
package gstroke

import (
	"time"

	"github.com/soypat/gstroke/gleval"
)

const (
	// DefaultMinDistance is the per-axis distance in pixels below which a new
	// point is considered a duplicate of the last one.
	DefaultMinDistance = 2
	// DefaultVertexCapacity is the number of vertex texture slots allocated at start.
	DefaultVertexCapacity = 4096
	// DefaultStrokeRadius is the stroke radius in pixels.
	DefaultStrokeRadius = 4
	// DefaultColorPeriod is the duration of one hue cycle of an animated stroke.
	DefaultColorPeriod = 4 * time.Second
)

var (
	defaultBackground  = gleval.RGBA{R: 1, G: 1, B: 1, A: 1}
	defaultStrokeColor = gleval.RGBA{R: 0.9, G: 0.1, B: 0.1, A: 1}
)
