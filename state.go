package gstroke

import (
	"errors"
	"fmt"
	"time"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gstroke/gleval"
)

// RedrawState tells whether the accumulated image is missing polyline contributions.
type RedrawState uint8

const (
	// StateClean means every point is baked into the accumulated image.
	StateClean RedrawState = iota
	// StateDirty means points were appended or the surfaces were cleared since the last pass.
	StateDirty
)

func (s RedrawState) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	}
	return fmt.Sprintf("RedrawState(%d)", uint8(s))
}

// Flag is a boolean rendering toggle.
type Flag uint8

const (
	// FlagDiagnostic presents the distance field of the whole polyline instead of the stroke.
	// Accumulation continues underneath.
	FlagDiagnostic Flag = iota
	// FlagUseCache composites new segments onto the accumulated image. When unset every
	// pass redraws the whole polyline over the background.
	FlagUseCache
	// FlagAnimateColor cycles the stroke hue over time and forces a pass every frame.
	FlagAnimateColor
	numFlags
)

func (f Flag) String() string {
	switch f {
	case FlagDiagnostic:
		return "diagnostic"
	case FlagUseCache:
		return "use-cache"
	case FlagAnimateColor:
		return "animate-color"
	}
	return fmt.Sprintf("Flag(%d)", uint8(f))
}

// Command is an input to [RendererState.Step]. Commands are applied in order.
type Command interface {
	command()
}

type (
	// AppendPoint adds a point to the polyline.
	AppendPoint struct{ Point ms2.Vec }
	// FullClear clears both surfaces to the background and re-renders every point.
	FullClear struct{}
	// SetBackground changes the background colour. It implies a [FullClear].
	SetBackground struct{ Color gleval.RGBA }
	// SetFlag sets a rendering toggle.
	SetFlag struct {
		Flag  Flag
		Value bool
	}
	// ToggleFlag inverts a rendering toggle. Consecutive toggles in one
	// frame see each other's effect.
	ToggleFlag struct{ Flag Flag }
)

func (AppendPoint) command()   {}
func (FullClear) command()     {}
func (SetBackground) command() {}
func (SetFlag) command()       {}
func (ToggleFlag) command()    {}

// OpKind enumerates draw operations.
type OpKind uint8

const (
	_ OpKind = iota
	// OpClear clears both ping-pong surfaces to DrawOp.Color.
	OpClear
	// OpGrow reallocates the vertex texture to DrawOp.Capacity slots.
	OpGrow
	// OpUpload writes DrawOp.Points to the vertex texture starting at DrawOp.Start.
	OpUpload
	// OpStroke runs the stroke program with DrawOp.Uniforms from the read to the write surface.
	OpStroke
	// OpSwap swaps read and write surfaces.
	OpSwap
	// OpDiagnostic renders the distance field of DrawOp.Uniforms.NumPoints vertices.
	// It follows the accumulation pass and its failure does not abandon the pass;
	// see [RendererState.DiagnosticFailed].
	OpDiagnostic
	// OpPresent presents the read surface, or the diagnostic surface if DrawOp.Diagnostic is set.
	OpPresent
)

func (k OpKind) String() string {
	switch k {
	case OpClear:
		return "clear"
	case OpGrow:
		return "grow"
	case OpUpload:
		return "upload"
	case OpStroke:
		return "stroke"
	case OpSwap:
		return "swap"
	case OpDiagnostic:
		return "diagnostic"
	case OpPresent:
		return "present"
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

// DrawOp is a single operation for the raster pipeline. Only the fields
// named by the documentation of Kind are meaningful.
type DrawOp struct {
	Kind       OpKind
	Color      gleval.RGBA
	Capacity   int
	Start      int
	Points     []ms2.Vec
	Uniforms   gleval.StrokeUniforms
	Diagnostic bool
}

// RendererState holds the polyline and everything needed to decide what a frame draws.
// It performs no rendering itself; see [Canvas].
type RendererState struct {
	points *PointStream
	// cursor is the number of points baked into the accumulated image.
	cursor int
	redraw RedrawState
	// fresh is set while both surfaces hold only background.
	fresh bool
	// diagStale is set when the diagnostic surface does not reflect the polyline.
	diagStale bool
	flags     [numFlags]bool

	background  gleval.RGBA
	strokeColor gleval.RGBA
	radius      float32
	colorPeriod time.Duration

	policy CapacityPolicy
	// capacity is the vertex texture capacity once pending grows complete.
	capacity    int
	allocated   int
	maxCapacity int
	// uploaded is the number of points known to be written to the vertex texture.
	uploaded int

	pending *pendingPass
}

type pendingPass struct {
	numPoints  int
	capacity   int
	stroked    bool
	diagnostic bool
}

// NewRendererState returns the initial state for cfg. It starts dirty so the
// first frame establishes the background image. cfg must be valid.
func NewRendererState(cfg Config) *RendererState {
	rs := &RendererState{
		points:      NewPointStream(cfg.MinDistance),
		redraw:      StateDirty,
		fresh:       true,
		diagStale:   true,
		background:  gleval.RGBA(cfg.Background),
		strokeColor: gleval.RGBA(cfg.StrokeColor),
		radius:      cfg.StrokeRadius,
		colorPeriod: cfg.colorPeriod(),
		policy:      cfg.CapacityPolicy,
		capacity:    cfg.VertexCapacity,
		allocated:   cfg.VertexCapacity,
		maxCapacity: cfg.VertexCapacity,
	}
	if cfg.CapacityPolicy == CapacityGrow {
		rs.maxCapacity = maxVertexCapacity
	}
	rs.flags[FlagDiagnostic] = cfg.Diagnostic
	rs.flags[FlagUseCache] = cfg.UseCache
	rs.flags[FlagAnimateColor] = cfg.AnimateColor
	return rs
}

// Step applies cmds in order and returns the draw operations of one frame. The
// last operation is always an [OpPresent]. When any other operation is returned
// the caller must report its outcome with [RendererState.PassDone] or
// [RendererState.PassFailed] before the next Step.
//
// Rejected commands are reported in the returned error but do not prevent the
// rest of the frame from being planned.
func (rs *RendererState) Step(now time.Duration, cmds []Command) ([]DrawOp, error) {
	if rs.pending != nil {
		return nil, errPassPending
	}
	var errs []error
	clear := false
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case AppendPoint:
			if err := rs.appendPoint(c.Point); err != nil {
				errs = append(errs, err)
			}
		case FullClear:
			rs.fullClear()
			clear = true
		case SetBackground:
			rs.background = c.Color
			rs.fullClear()
			clear = true
		case SetFlag:
			rs.setFlag(c.Flag, c.Value)
		case ToggleFlag:
			rs.setFlag(c.Flag, !rs.Flag(c.Flag))
		default:
			errs = append(errs, fmt.Errorf("gstroke: unknown command %T", cmd))
		}
	}

	var ops []DrawOp
	if clear {
		ops = append(ops, DrawOp{Kind: OpClear, Color: rs.background})
	}
	accumulate := rs.redraw == StateDirty || rs.flags[FlagAnimateColor]
	diagnostic := rs.flags[FlagDiagnostic] && (accumulate || rs.diagStale)
	n := rs.points.Len()
	if accumulate || diagnostic {
		if rs.capacity > rs.allocated {
			ops = append(ops, DrawOp{Kind: OpGrow, Capacity: rs.capacity})
		}
		if rs.uploaded < n {
			ops = append(ops, DrawOp{Kind: OpUpload, Start: rs.uploaded, Points: rs.points.PendingSince(rs.uploaded)})
		}
	}
	if accumulate {
		u := gleval.StrokeUniforms{
			StartIndex:  max(0, rs.cursor-1),
			NumPoints:   n,
			Radius:      rs.radius,
			Color:       rs.strokeColor,
			Background:  rs.background,
			UsePrevious: !rs.fresh,
		}
		if !rs.flags[FlagUseCache] {
			u.StartIndex = 0
			u.UsePrevious = false
		}
		if rs.flags[FlagAnimateColor] {
			u.Color = cycleHue(u.Color, now, rs.colorPeriod)
		}
		ops = append(ops, DrawOp{Kind: OpStroke, Uniforms: u}, DrawOp{Kind: OpSwap})
	}
	if diagnostic {
		ops = append(ops, DrawOp{Kind: OpDiagnostic, Uniforms: gleval.StrokeUniforms{NumPoints: n, Radius: rs.radius}})
	}
	if len(ops) > 0 {
		rs.pending = &pendingPass{
			numPoints:  n,
			capacity:   rs.capacity,
			stroked:    accumulate,
			diagnostic: diagnostic,
		}
	}
	ops = append(ops, DrawOp{Kind: OpPresent, Diagnostic: rs.flags[FlagDiagnostic]})
	return ops, errors.Join(errs...)
}

// PassDone commits the operations returned by the last Step. The cursor
// advances to the number of points the pass evaluated and the state becomes clean.
func (rs *RendererState) PassDone() error {
	p := rs.pending
	if p == nil {
		return errNoPass
	}
	rs.pending = nil
	rs.allocated = max(rs.allocated, p.capacity)
	rs.uploaded = max(rs.uploaded, p.numPoints)
	if p.stroked {
		rs.cursor = p.numPoints
		rs.fresh = false
		rs.redraw = StateClean
	}
	if p.diagnostic {
		rs.diagStale = false
	}
	return nil
}

// DiagnosticFailed records that the diagnostic operation of the last Step
// failed. The rest of the pass may still be committed with [RendererState.PassDone];
// the diagnostic field is rendered again on the next frame.
func (rs *RendererState) DiagnosticFailed() error {
	if rs.pending == nil {
		return errNoPass
	}
	rs.pending.diagnostic = false
	return nil
}

// PassFailed abandons the operations returned by the last Step. The cursor
// is left untouched and the state stays dirty so the next frame retries.
func (rs *RendererState) PassFailed() error {
	if rs.pending == nil {
		return errNoPass
	}
	rs.pending = nil
	return nil
}

// Cursor returns the number of points baked into the accumulated image.
func (rs *RendererState) Cursor() int { return rs.cursor }

// Redraw returns the redraw state.
func (rs *RendererState) Redraw() RedrawState { return rs.redraw }

// Points returns the polyline. It must not be appended to directly.
func (rs *RendererState) Points() *PointStream { return rs.points }

// Flag returns the value of rendering toggle f.
func (rs *RendererState) Flag(f Flag) bool { return f < numFlags && rs.flags[f] }

// Background returns the current background colour.
func (rs *RendererState) Background() gleval.RGBA { return rs.background }

// Capacity returns the vertex texture capacity including pending growth.
func (rs *RendererState) Capacity() int { return rs.capacity }

func (rs *RendererState) appendPoint(p ms2.Vec) error {
	if !rs.points.Accepts(p) {
		return nil
	}
	idx := rs.points.Len()
	if idx >= rs.capacity {
		if rs.policy != CapacityGrow || rs.capacity >= rs.maxCapacity {
			return &CapacityError{Index: idx, Capacity: rs.capacity}
		}
		rs.capacity = min(2*rs.capacity, rs.maxCapacity)
	}
	rs.points.Append(p)
	rs.redraw = StateDirty
	return nil
}

func (rs *RendererState) fullClear() {
	rs.cursor = 0
	rs.fresh = true
	rs.redraw = StateDirty
}

func (rs *RendererState) setFlag(f Flag, v bool) {
	if f >= numFlags || rs.flags[f] == v {
		return
	}
	rs.flags[f] = v
	switch f {
	case FlagDiagnostic:
		rs.diagStale = true
	case FlagUseCache:
		rs.redraw = StateDirty
	}
}

// setMaxCapacity bounds growth to what the vertex texture supports.
func (rs *RendererState) setMaxCapacity(n int) {
	if rs.policy == CapacityGrow {
		rs.maxCapacity = max(rs.capacity, n)
	}
}
