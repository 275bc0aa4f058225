package gstroke

import (
	"errors"
	"testing"
	"time"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gstroke/gleval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opKinds(ops []DrawOp) []OpKind {
	kinds := make([]OpKind, len(ops))
	for i := range ops {
		kinds[i] = ops[i].Kind
	}
	return kinds
}

func findOp(t *testing.T, ops []DrawOp, kind OpKind) DrawOp {
	t.Helper()
	for _, op := range ops {
		if op.Kind == kind {
			return op
		}
	}
	t.Fatalf("no %v operation in %v", kind, opKinds(ops))
	return DrawOp{}
}

func step(t *testing.T, rs *RendererState, cmds ...Command) []DrawOp {
	t.Helper()
	ops, err := rs.Step(0, cmds)
	require.NoError(t, err)
	require.NotEmpty(t, ops)
	require.Equal(t, OpPresent, ops[len(ops)-1].Kind)
	return ops
}

func appendPts(pts ...ms2.Vec) []Command {
	cmds := make([]Command, len(pts))
	for i := range pts {
		cmds[i] = AppendPoint{Point: pts[i]}
	}
	return cmds
}

func TestStateInitialDirty(t *testing.T) {
	rs := NewRendererState(DefaultConfig(64, 64))
	assert.Equal(t, StateDirty, rs.Redraw())
	ops := step(t, rs)
	assert.Equal(t, []OpKind{OpStroke, OpSwap, OpPresent}, opKinds(ops))
	u := ops[0].Uniforms
	assert.Zero(t, u.NumPoints)
	assert.Zero(t, u.StartIndex)
	assert.False(t, u.UsePrevious, "first pass must not read an uninitialized surface")
	require.NoError(t, rs.PassDone())
	assert.Equal(t, StateClean, rs.Redraw())

	// Idle frames only present.
	ops = step(t, rs)
	assert.Equal(t, []OpKind{OpPresent}, opKinds(ops))
	assert.ErrorIs(t, rs.PassDone(), errNoPass)
}

func TestStateIncrementalPasses(t *testing.T) {
	rs := NewRendererState(DefaultConfig(800, 600))
	step(t, rs)
	require.NoError(t, rs.PassDone())

	ops := step(t, rs, appendPts(ms2.Vec{X: 200, Y: 300}, ms2.Vec{X: 400, Y: 500})...)
	assert.Equal(t, StateDirty, rs.Redraw())
	assert.Equal(t, []OpKind{OpUpload, OpStroke, OpSwap, OpPresent}, opKinds(ops))
	up := findOp(t, ops, OpUpload)
	assert.Equal(t, 0, up.Start)
	assert.Len(t, up.Points, 2)
	u := findOp(t, ops, OpStroke).Uniforms
	assert.Equal(t, 0, u.StartIndex)
	assert.Equal(t, 2, u.NumPoints)
	assert.True(t, u.UsePrevious)
	assert.Equal(t, 0, rs.Cursor(), "cursor moves only once the pass is committed")
	require.NoError(t, rs.PassDone())
	assert.Equal(t, 2, rs.Cursor())
	assert.Equal(t, StateClean, rs.Redraw())

	ops = step(t, rs, AppendPoint{Point: ms2.Vec{X: 600, Y: 400}})
	up = findOp(t, ops, OpUpload)
	assert.Equal(t, 2, up.Start, "only new vertices are uploaded")
	assert.Equal(t, []ms2.Vec{{X: 600, Y: 400}}, up.Points)
	u = findOp(t, ops, OpStroke).Uniforms
	assert.Equal(t, 1, u.StartIndex, "segment sharing the last baked vertex is re-evaluated")
	assert.Equal(t, 3, u.NumPoints)
	require.NoError(t, rs.PassDone())
	assert.Equal(t, 3, rs.Cursor())
}

func TestStateCursorMonotonic(t *testing.T) {
	rs := NewRendererState(DefaultConfig(100, 100))
	last := 0
	for i := 0; i < 50; i++ {
		var cmds []Command
		if i%3 != 0 {
			cmds = appendPts(ms2.Vec{X: float32(3 * i), Y: float32(i % 7)})
		}
		if i == 30 {
			cmds = append(cmds, SetBackground{Color: gleval.RGBA{A: 1}})
		}
		ops := step(t, rs, cmds...)
		if i == 30 {
			assert.Equal(t, OpClear, ops[0].Kind)
			assert.Zero(t, rs.Cursor())
			last = 0
		}
		if len(ops) > 1 {
			require.NoError(t, rs.PassDone())
		}
		assert.GreaterOrEqual(t, rs.Cursor(), last)
		assert.LessOrEqual(t, rs.Cursor(), rs.Points().Len())
		last = rs.Cursor()
	}
	assert.Equal(t, rs.Points().Len(), rs.Cursor())
}

func TestStateFullClear(t *testing.T) {
	rs := NewRendererState(DefaultConfig(100, 100))
	step(t, rs, appendPts(ms2.Vec{X: 10, Y: 10}, ms2.Vec{X: 50, Y: 50}, ms2.Vec{X: 90, Y: 10})...)
	require.NoError(t, rs.PassDone())
	require.Equal(t, 3, rs.Cursor())

	bg := gleval.RGBA{R: 0.2, G: 0.3, B: 0.4, A: 1}
	ops := step(t, rs, SetBackground{Color: bg})
	assert.Zero(t, rs.Cursor())
	assert.Equal(t, StateDirty, rs.Redraw())
	assert.Equal(t, bg, rs.Background())
	assert.Equal(t, []OpKind{OpClear, OpStroke, OpSwap, OpPresent}, opKinds(ops), "vertices are still uploaded")
	assert.Equal(t, bg, ops[0].Color)
	u := findOp(t, ops, OpStroke).Uniforms
	assert.Zero(t, u.StartIndex)
	assert.Equal(t, 3, u.NumPoints)
	assert.False(t, u.UsePrevious)
	assert.Equal(t, bg, u.Background)
	require.NoError(t, rs.PassDone())
	assert.Equal(t, 3, rs.Cursor())

	ops = step(t, rs, FullClear{}, AppendPoint{Point: ms2.Vec{X: 90, Y: 90}})
	assert.Equal(t, OpClear, ops[0].Kind)
	u = findOp(t, ops, OpStroke).Uniforms
	assert.Zero(t, u.StartIndex)
	assert.Equal(t, 4, u.NumPoints)
	assert.False(t, u.UsePrevious)
}

func TestStatePassFailed(t *testing.T) {
	rs := NewRendererState(DefaultConfig(100, 100))
	step(t, rs, appendPts(ms2.Vec{X: 10, Y: 10}, ms2.Vec{X: 50, Y: 50})...)
	require.NoError(t, rs.PassDone())

	ops := step(t, rs, AppendPoint{Point: ms2.Vec{X: 90, Y: 10}})
	_, err := rs.Step(0, nil)
	assert.ErrorIs(t, err, errPassPending)
	require.NoError(t, rs.PassFailed())
	assert.Equal(t, 2, rs.Cursor())
	assert.Equal(t, StateDirty, rs.Redraw())

	retry := step(t, rs)
	assert.Equal(t, ops, retry, "failed pass is planned again unchanged")
	require.NoError(t, rs.PassDone())
	assert.Equal(t, 3, rs.Cursor())
	assert.Equal(t, StateClean, rs.Redraw())
}

func TestStateCapacityReject(t *testing.T) {
	cfg := DefaultConfig(100, 100)
	cfg.VertexCapacity = 2
	rs := NewRendererState(cfg)
	ops, err := rs.Step(0, appendPts(ms2.Vec{X: 10}, ms2.Vec{X: 20}, ms2.Vec{X: 30}, ms2.Vec{X: 40}))
	require.Error(t, err)
	assert.ErrorIs(t, err, gleval.ErrOutOfCapacity)
	var capErr *CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, 2, capErr.Index)
	assert.Equal(t, 2, capErr.Capacity)
	assert.Equal(t, 2, rs.Points().Len(), "rejected points are not added")
	assert.Equal(t, 2, findOp(t, ops, OpStroke).Uniforms.NumPoints)
	assert.Equal(t, 2, rs.Capacity())
}

func TestStateCapacityGrow(t *testing.T) {
	cfg := DefaultConfig(100, 100)
	cfg.VertexCapacity = 2
	cfg.CapacityPolicy = CapacityGrow
	rs := NewRendererState(cfg)
	rs.setMaxCapacity(6)
	var pts []ms2.Vec
	for i := 0; i < 6; i++ {
		pts = append(pts, ms2.Vec{X: float32(10 * i)})
	}
	ops := step(t, rs, appendPts(pts...)...)
	assert.Equal(t, []OpKind{OpGrow, OpUpload, OpStroke, OpSwap, OpPresent}, opKinds(ops))
	assert.Equal(t, 6, ops[0].Capacity, "growth doubles and is bounded by the maximum")
	require.NoError(t, rs.PassFailed())

	// Growth is retried with the failed pass.
	ops = step(t, rs)
	assert.Equal(t, OpGrow, ops[0].Kind)
	require.NoError(t, rs.PassDone())

	_, err := rs.Step(0, appendPts(ms2.Vec{X: 100}))
	assert.ErrorIs(t, err, gleval.ErrOutOfCapacity)
	assert.Equal(t, 6, rs.Points().Len())
}

func TestStateNoCache(t *testing.T) {
	cfg := DefaultConfig(100, 100)
	cfg.UseCache = false
	rs := NewRendererState(cfg)
	step(t, rs, appendPts(ms2.Vec{X: 10}, ms2.Vec{X: 20})...)
	require.NoError(t, rs.PassDone())
	ops := step(t, rs, appendPts(ms2.Vec{X: 30})...)
	u := findOp(t, ops, OpStroke).Uniforms
	assert.Zero(t, u.StartIndex)
	assert.False(t, u.UsePrevious)
	require.NoError(t, rs.PassDone())

	// Enabling the cache forces a pass but the first one after may read the previous image.
	ops = step(t, rs, SetFlag{Flag: FlagUseCache, Value: true})
	u = findOp(t, ops, OpStroke).Uniforms
	assert.Equal(t, 2, u.StartIndex)
	assert.True(t, u.UsePrevious)
}

func TestStateAnimateColor(t *testing.T) {
	cfg := DefaultConfig(100, 100)
	cfg.AnimateColor = true
	cfg.ColorPeriod = 1
	rs := NewRendererState(cfg)
	var colors []gleval.RGBA
	for i := 0; i < 3; i++ {
		ops, err := rs.Step(time.Duration(i)*250*time.Millisecond, nil)
		require.NoError(t, err)
		colors = append(colors, findOp(t, ops, OpStroke).Uniforms.Color)
		require.NoError(t, rs.PassDone())
	}
	assert.NotEqual(t, colors[0], colors[1])
	assert.NotEqual(t, colors[1], colors[2])
	for _, c := range colors {
		assert.Equal(t, float32(1), c.A)
	}
}

func TestStateDiagnosticToggle(t *testing.T) {
	rs := NewRendererState(DefaultConfig(100, 100))
	step(t, rs, appendPts(ms2.Vec{X: 10}, ms2.Vec{X: 20})...)
	require.NoError(t, rs.PassDone())

	ops := step(t, rs, SetFlag{Flag: FlagDiagnostic, Value: true})
	assert.Equal(t, []OpKind{OpDiagnostic, OpPresent}, opKinds(ops))
	assert.True(t, ops[len(ops)-1].Diagnostic)
	assert.Equal(t, 2, ops[0].Uniforms.NumPoints)
	require.NoError(t, rs.PassDone())
	assert.Equal(t, 2, rs.Cursor())

	ops = step(t, rs)
	assert.Equal(t, []OpKind{OpPresent}, opKinds(ops), "diagnostic field is only recomputed on change")
	assert.True(t, ops[0].Diagnostic)

	// Accumulation continues while the diagnostic field is shown.
	ops = step(t, rs, AppendPoint{Point: ms2.Vec{X: 30}})
	assert.Equal(t, []OpKind{OpUpload, OpStroke, OpSwap, OpDiagnostic, OpPresent}, opKinds(ops))
	require.NoError(t, rs.PassDone())
	assert.Equal(t, 3, rs.Cursor())

	ops = step(t, rs, SetFlag{Flag: FlagDiagnostic, Value: false})
	assert.Equal(t, []OpKind{OpPresent}, opKinds(ops))
	assert.False(t, ops[0].Diagnostic)
}

func TestStateDiagnosticFailedKeepsPass(t *testing.T) {
	cfg := DefaultConfig(100, 100)
	cfg.Diagnostic = true
	rs := NewRendererState(cfg)
	ops := step(t, rs, appendPts(ms2.Vec{X: 10}, ms2.Vec{X: 20})...)
	assert.Equal(t, []OpKind{OpUpload, OpStroke, OpSwap, OpDiagnostic, OpPresent}, opKinds(ops))
	require.NoError(t, rs.DiagnosticFailed())
	require.NoError(t, rs.PassDone())
	assert.Equal(t, 2, rs.Cursor(), "stroke pass committed")
	assert.Equal(t, StateClean, rs.Redraw())

	ops = step(t, rs)
	assert.Equal(t, []OpKind{OpDiagnostic, OpPresent}, opKinds(ops), "diagnostic retried")
	require.NoError(t, rs.PassDone())
	ops = step(t, rs)
	assert.Equal(t, []OpKind{OpPresent}, opKinds(ops))
	assert.ErrorIs(t, rs.DiagnosticFailed(), errNoPass)
}

func TestStateToggleFlag(t *testing.T) {
	rs := NewRendererState(DefaultConfig(100, 100))
	step(t, rs)
	require.NoError(t, rs.PassDone())

	ops := step(t, rs, ToggleFlag{Flag: FlagDiagnostic})
	assert.True(t, rs.Flag(FlagDiagnostic))
	assert.Equal(t, []OpKind{OpDiagnostic, OpPresent}, opKinds(ops))
	require.NoError(t, rs.PassDone())

	// Two presses in one frame cancel out.
	step(t, rs, ToggleFlag{Flag: FlagAnimateColor}, ToggleFlag{Flag: FlagAnimateColor})
	assert.False(t, rs.Flag(FlagAnimateColor))
	step(t, rs, ToggleFlag{Flag: FlagDiagnostic}, ToggleFlag{Flag: FlagUseCache}, ToggleFlag{Flag: FlagUseCache})
	assert.False(t, rs.Flag(FlagDiagnostic))
	assert.True(t, rs.Flag(FlagUseCache))
	assert.False(t, rs.Flag(numFlags))
}

func TestCycleHue(t *testing.T) {
	red := gleval.RGBA{R: 1, A: 0.5}
	assert.Equal(t, red, cycleHue(red, time.Second, 0))
	got := cycleHue(red, time.Second, 3*time.Second)
	assert.InDelta(t, 0, got.R, 1e-5)
	assert.InDelta(t, 1, got.G, 1e-5)
	assert.InDelta(t, 0, got.B, 1e-5)
	assert.Equal(t, float32(0.5), got.A)
	assert.Equal(t, red, cycleHue(red, 3*time.Second, 3*time.Second))
}
