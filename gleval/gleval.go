package gleval

import (
	"errors"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
)

// Surface is an off-screen colour target the stroke stage reads from or writes to.
// Pixel (x,y) has its centre at (x+0.5, y+0.5) and y grows upward, as in gl_FragCoord.
type Surface interface {
	// Size returns the surface dimensions in pixels.
	Size() (width, height int)
	// Clear sets every pixel of the surface to c.
	Clear(c RGBA) error
	// ReadPixels copies the surface into dst, which must match the surface size.
	// Row y of dst holds surface row y (bottom row first), like glReadPixels.
	ReadPixels(dst *image.NRGBA) error
}

// VertexTexture is a 1D texture of polyline vertices addressed by integer index.
// Writes touch only the addressed range so growing polylines need not be re-uploaded.
type VertexTexture interface {
	// Capacity returns the number of addressable slots.
	Capacity() int
	// MaxCapacity is the largest capacity Grow can reach.
	MaxCapacity() int
	// Len returns one past the highest slot ever written.
	Len() int
	// WriteRange writes pts to slots [start, start+len(pts)). It fails with
	// an error wrapping [ErrOutOfCapacity] if the range does not fit.
	WriteRange(start int, pts []ms2.Vec) error
	// Grow reallocates the texture to hold at least minCapacity slots,
	// preserving written contents.
	Grow(minCapacity int) error
}

// StrokeUniforms are the inputs of a single accumulation pass.
type StrokeUniforms struct {
	// StartIndex is the first vertex of the first segment evaluated.
	StartIndex int
	// NumPoints is the number of valid vertices in the vertex texture.
	NumPoints int
	// Radius is the stroke radius in pixels.
	Radius float32
	Color  RGBA
	// Background is used as the previous pixel value when UsePrevious is false.
	Background  RGBA
	UsePrevious bool
}

// Segments returns the half-open range of segment indices [start, end) the pass evaluates.
// Segment i joins vertex i to vertex i+1. The range is empty for fewer than two points.
func (u StrokeUniforms) Segments() (start, end int) {
	start = max(0, u.StartIndex)
	end = u.NumPoints - 1
	if end < start {
		end = start
	}
	return start, end
}

func (u StrokeUniforms) validate(verts VertexTexture) error {
	switch {
	case u.NumPoints < 0 || u.StartIndex < 0:
		return errors.New("negative stroke index")
	case u.NumPoints > verts.Len():
		return errBadPointCount
	case u.Radius < 0 || math32.IsNaN(u.Radius):
		return errors.New("invalid stroke radius")
	}
	return nil
}

// StrokeProgram is the per-pixel SDF stage. Implementations evaluate one pass
// atomically: either dst is fully written or an error is returned.
type StrokeProgram interface {
	// Run composites segments u.Segments() of verts over src and writes the result to dst.
	// dst and src must be distinct surfaces of equal size.
	Run(dst, src Surface, verts VertexTexture, u StrokeUniforms) error
	// RunDiagnostic writes the signed distance field of the first numPoints vertices,
	// offset by radius, as a colour gradient to dst.
	RunDiagnostic(dst Surface, verts VertexTexture, numPoints int, radius float32) error
}

// Presenter blits a surface to a visible sink, unscaled.
type Presenter interface {
	Present(src Surface) error
}

// Backend creates pipeline resources. Resources of one backend may not be mixed with another's.
type Backend interface {
	NewSurface(width, height int) (Surface, error)
	NewVertexTexture(capacity int) (VertexTexture, error)
	// NewStrokeProgram builds the stroke stage. A failure here is fatal for the session.
	NewStrokeProgram() (StrokeProgram, error)
}

var (
	// ErrOutOfCapacity is returned when a vertex texture write exceeds its capacity.
	ErrOutOfCapacity = errors.New("vertex texture out of capacity")
	// ErrNoCGO is returned by the GPU backend in builds without cgo.
	ErrNoCGO = errors.New("GPU backend requires cgo")

	errSameSurface     = errors.New("stroke pass cannot read and write the same surface")
	errSizeMismatch    = errors.New("surface size mismatch")
	errForeignResource = errors.New("resource belongs to a different backend")
	errBadSize         = errors.New("invalid surface size")
	errBadPointCount   = errors.New("point count exceeds vertex texture contents")
)

// RGBA is a non-premultiplied colour with components in [0,1].
type RGBA struct {
	R, G, B, A float32
}

// RGBAFromColor converts c to [RGBA], undoing alpha premultiplication.
func RGBAFromColor(c color.Color) RGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGBA{
		R: float32(n.R) / 255,
		G: float32(n.G) / 255,
		B: float32(n.B) / 255,
		A: float32(n.A) / 255,
	}
}

// NRGBA quantizes c to 8 bits per channel, rounding to nearest like a unorm colour attachment.
func (c RGBA) NRGBA() color.NRGBA {
	return color.NRGBA{
		R: unorm8(c.R),
		G: unorm8(c.G),
		B: unorm8(c.B),
		A: unorm8(c.A),
	}
}

// Mix linearly interpolates from c to other by t.
func (c RGBA) Mix(other RGBA, t float32) RGBA {
	return RGBA{
		R: mixf(c.R, other.R, t),
		G: mixf(c.G, other.G, t),
		B: mixf(c.B, other.B, t),
		A: mixf(c.A, other.A, t),
	}
}

// StrokeAlpha returns the coverage of a stroke of the given radius at distance dist
// from the polyline. Coverage falls off linearly over the outermost pixel.
func StrokeAlpha(dist, radius float32) float32 {
	if !(dist < radius) {
		return 0
	}
	return clampf(1-(dist-radius+1), 0, 1)
}

// SegmentDistance2 returns the squared distance from p to segment ab.
func SegmentDistance2(p, a, b ms2.Vec) float32 {
	pa := ms2.Sub(p, a)
	ba := ms2.Sub(b, a)
	var h float32
	if den := ms2.Dot(ba, ba); den > 0 {
		h = clampf(ms2.Dot(pa, ba)/den, 0, 1)
	}
	dv := ms2.Sub(pa, ms2.Scale(h, ba))
	return ms2.Dot(dv, dv)
}

// PolylineDistance returns the distance from p to the polyline through pts.
// A single point is treated as a degenerate segment. It returns +Inf for no points.
func PolylineDistance(p ms2.Vec, pts []ms2.Vec) float32 {
	switch len(pts) {
	case 0:
		return math32.Inf(1)
	case 1:
		return math32.Sqrt(SegmentDistance2(p, pts[0], pts[0]))
	}
	d2 := float32(largenum)
	for i := 0; i < len(pts)-1; i++ {
		d2 = math32.Min(d2, SegmentDistance2(p, pts[i], pts[i+1]))
	}
	return math32.Sqrt(d2)
}

const largenum = 1e23

func unorm8(v float32) uint8 {
	return uint8(clampf(v, 0, 1)*255 + 0.5)
}

func clampf(v, Min, Max float32) float32 {
	if v < Min {
		return Min
	} else if v > Max {
		return Max
	}
	return v
}

func mixf(x, y, a float32) float32 {
	return x*(1-a) + y*a
}
