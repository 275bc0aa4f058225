package gstroke

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/soypat/gstroke/gleval"
)

// Canvas executes the frames planned by a [RendererState] on a raster backend.
// All methods must be called from the goroutine that owns the backend's resources.
type Canvas struct {
	state     *RendererState
	backend   gleval.Backend
	presenter gleval.Presenter
	program   gleval.StrokeProgram
	surfaces  *gleval.PingPong
	verts     gleval.VertexTexture
	// diag is created on first use.
	diag  gleval.Surface
	stats FrameStats
}

// FrameStats describes the last frame executed by [Canvas.Tick].
type FrameStats struct {
	// Accumulated is set if a stroke pass ran and was committed.
	Accumulated bool
	// StartIndex and NumPoints are the stroke pass uniforms.
	StartIndex int
	NumPoints  int
	// Cleared is set if the surfaces were cleared.
	Cleared bool
	// Diagnostic is set if the diagnostic field was presented.
	Diagnostic bool
	// Duration is the time spent executing the frame.
	Duration time.Duration
}

// NewCanvas creates the surfaces, vertex texture and stroke program described by cfg
// and clears the surfaces to the background. Failure to build the stroke program
// is returned as an [*InitializationError] and logged once. Resources created
// before a failure are released.
func NewCanvas(cfg Config, backend gleval.Backend, presenter gleval.Presenter) (_ *Canvas, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	} else if backend == nil || presenter == nil {
		return nil, errors.New("gstroke: nil backend or presenter")
	}
	initErr := func(stage string, err error) error {
		ierr := &InitializationError{Stage: stage, Err: err}
		Logger().Error("stroke pipeline unusable", slog.String("stage", stage), slog.Any("err", err))
		return ierr
	}
	var owned []any
	defer func() {
		if err != nil {
			release(owned...)
		}
	}()
	program, err := backend.NewStrokeProgram()
	if err != nil {
		return nil, initErr("stroke program", err)
	}
	owned = append(owned, program)
	a, err := backend.NewSurface(cfg.Width, cfg.Height)
	if err != nil {
		return nil, initErr("surface", err)
	}
	owned = append(owned, a)
	b, err := backend.NewSurface(cfg.Width, cfg.Height)
	if err != nil {
		return nil, initErr("surface", err)
	}
	owned = append(owned, b)
	pp, err := gleval.NewPingPong(a, b)
	if err != nil {
		return nil, initErr("surface", err)
	}
	verts, err := backend.NewVertexTexture(cfg.VertexCapacity)
	if err != nil {
		return nil, initErr("vertex texture", err)
	}
	owned = append(owned, verts)
	state := NewRendererState(cfg)
	state.setMaxCapacity(verts.MaxCapacity())
	if err = pp.Clear(state.Background()); err != nil {
		return nil, initErr("surface", err)
	}
	Logger().Info("canvas ready", slog.Int("width", cfg.Width), slog.Int("height", cfg.Height),
		slog.Int("capacity", verts.Capacity()), slog.String("policy", cfg.CapacityPolicy.String()))
	return &Canvas{
		state:     state,
		backend:   backend,
		presenter: presenter,
		program:   program,
		surfaces:  pp,
		verts:     verts,
	}, nil
}

// Delete releases the backend resources owned by the canvas. Resources that
// implement Delete, such as those of the GL backend, are deleted. The canvas
// must not be used afterwards.
func (c *Canvas) Delete() {
	if c.surfaces == nil {
		return
	}
	release(c.program, c.surfaces.Read(), c.surfaces.Write(), c.verts, c.diag)
	c.program, c.surfaces, c.verts, c.diag = nil, nil, nil, nil
}

func release(resources ...any) {
	for _, r := range resources {
		if d, ok := r.(interface{ Delete() }); ok {
			d.Delete()
		}
	}
}

// Tick runs one frame at time now. Commands are applied first, then an
// accumulation pass runs if needed and finally the current image is presented.
// Presentation happens even if the pass fails, in which case the last valid
// image is shown and the pass is retried on the next frame.
//
// The returned error joins rejected commands, pass failures, diagnostic failures
// and presentation failures. A diagnostic failure does not abandon the pass.
func (c *Canvas) Tick(now time.Duration, cmds ...Command) error {
	start := time.Now()
	ops, cmdErr := c.state.Step(now, cmds)
	if cmdErr != nil {
		Logger().Warn("commands rejected", slog.Any("err", cmdErr))
	}
	var stats FrameStats
	var passErr, diagErr, presentErr error
	for _, op := range ops {
		switch {
		case op.Kind == OpPresent:
			stats.Diagnostic = op.Diagnostic && c.diag != nil
			presentErr = c.present(stats.Diagnostic)
			continue
		case passErr != nil:
			continue
		case op.Kind == OpDiagnostic:
			// The stroke pass is already done; a diagnostic failure must not undo it.
			if diagErr = c.diagnostic(op); diagErr != nil {
				diagErr = fmt.Errorf("gstroke: %s: %w", op.Kind, diagErr)
				Logger().Warn("diagnostic failed", slog.Any("err", diagErr))
				diagErr = errors.Join(diagErr, c.state.DiagnosticFailed())
			}
			continue
		}
		passErr = c.exec(op, &stats)
		if passErr == nil {
			continue
		}
		// Swap is the last pass operation so the read surface is intact.
		passErr = fmt.Errorf("gstroke: %s: %w", op.Kind, passErr)
		if err := c.state.PassFailed(); err != nil {
			passErr = errors.Join(passErr, err)
		}
		Logger().Warn("accumulation pass failed", slog.Any("err", passErr))
	}
	if passErr == nil && len(ops) > 1 {
		passErr = c.state.PassDone()
		if passErr == nil && stats.Accumulated {
			Logger().Debug("pass done", slog.Int("start", stats.StartIndex),
				slog.Int("points", stats.NumPoints), slog.Int("cursor", c.state.Cursor()))
		}
	}
	if passErr != nil {
		stats.Accumulated = false
	}
	stats.Duration = time.Since(start)
	c.stats = stats
	return errors.Join(cmdErr, passErr, diagErr, presentErr)
}

func (c *Canvas) exec(op DrawOp, stats *FrameStats) error {
	switch op.Kind {
	case OpClear:
		stats.Cleared = true
		return c.surfaces.Clear(op.Color)
	case OpGrow:
		old := c.verts.Capacity()
		err := c.verts.Grow(op.Capacity)
		if err == nil {
			Logger().Info("vertex texture grown", slog.Int("from", old), slog.Int("to", op.Capacity))
		}
		return err
	case OpUpload:
		return c.verts.WriteRange(op.Start, op.Points)
	case OpStroke:
		stats.StartIndex = op.Uniforms.StartIndex
		stats.NumPoints = op.Uniforms.NumPoints
		return c.program.Run(c.surfaces.Write(), c.surfaces.Read(), c.verts, op.Uniforms)
	case OpSwap:
		c.surfaces.Swap()
		stats.Accumulated = true
		return nil
	}
	return fmt.Errorf("unknown draw operation %v", op.Kind)
}

func (c *Canvas) diagnostic(op DrawOp) error {
	if c.diag == nil {
		w, h := c.surfaces.Size()
		diag, err := c.backend.NewSurface(w, h)
		if err != nil {
			return err
		}
		c.diag = diag
	}
	return c.program.RunDiagnostic(c.diag, c.verts, op.Uniforms.NumPoints, op.Uniforms.Radius)
}

func (c *Canvas) present(diagnostic bool) error {
	src := c.surfaces.Read()
	if diagnostic {
		src = c.diag
	}
	if err := c.presenter.Present(src); err != nil {
		return fmt.Errorf("gstroke: present: %w", err)
	}
	return nil
}

// Snapshot copies the accumulated image into dst, bottom row first.
// dst must be the size of the canvas.
func (c *Canvas) Snapshot(dst *image.NRGBA) error {
	return c.surfaces.Read().ReadPixels(dst)
}

// Size returns the canvas size in pixels.
func (c *Canvas) Size() (width, height int) { return c.surfaces.Size() }

// State returns the renderer state. It must not be stepped directly.
func (c *Canvas) State() *RendererState { return c.state }

// Cursor returns the number of points baked into the accumulated image.
func (c *Canvas) Cursor() int { return c.state.Cursor() }

// Redraw returns the redraw state.
func (c *Canvas) Redraw() RedrawState { return c.state.Redraw() }

// Len returns the number of points in the polyline.
func (c *Canvas) Len() int { return c.state.Points().Len() }

// LastFrame returns statistics of the last call to Tick.
func (c *Canvas) LastFrame() FrameStats { return c.stats }
