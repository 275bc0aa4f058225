package gstroke

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

// PointStream is the append-only polyline being stroked. Segment i joins
// point i to point i+1.
type PointStream struct {
	pts []ms2.Vec
	// minDist is the per-axis duplicate threshold.
	minDist float32
}

// NewPointStream returns an empty stream that rejects points closer than
// minDistance on both axes to the last accepted point.
func NewPointStream(minDistance float32) *PointStream {
	return &PointStream{minDist: minDistance}
}

// Accepts reports whether Append(p) would add p.
func (ps *PointStream) Accepts(p ms2.Vec) bool {
	if math32.IsNaN(p.X) || math32.IsNaN(p.Y) || math32.IsInf(p.X, 0) || math32.IsInf(p.Y, 0) {
		return false
	}
	if len(ps.pts) == 0 {
		return true
	}
	last := ps.pts[len(ps.pts)-1]
	return math32.Abs(p.X-last.X) >= ps.minDist || math32.Abs(p.Y-last.Y) >= ps.minDist
}

// Append adds p to the end of the polyline and reports whether it was added.
// Near-duplicates of the last point and non-finite points are dropped.
func (ps *PointStream) Append(p ms2.Vec) bool {
	if !ps.Accepts(p) {
		return false
	}
	ps.pts = append(ps.pts, p)
	return true
}

// Len returns the number of points in the polyline.
func (ps *PointStream) Len() int { return len(ps.pts) }

// At returns point i.
func (ps *PointStream) At(i int) ms2.Vec { return ps.pts[i] }

// Last returns the most recently appended point. ok is false for an empty stream.
func (ps *PointStream) Last() (p ms2.Vec, ok bool) {
	if len(ps.pts) == 0 {
		return p, false
	}
	return ps.pts[len(ps.pts)-1], true
}

// PendingSince returns points [cursor, Len()). cursor is clipped to the valid range.
// The returned slice aliases internal storage and must not be modified.
func (ps *PointStream) PendingSince(cursor int) []ms2.Vec {
	cursor = max(0, min(cursor, len(ps.pts)))
	return ps.pts[cursor:len(ps.pts):len(ps.pts)]
}
