//go:build !tinygo && cgo

package gstrokeaux

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/gstroke"
	"github.com/soypat/gstroke/gleval"
)

func ui(cfg gstroke.Config, uiCfg UIConfig) error {
	window, term, err := startGLFW(cfg.Width, cfg.Height, uiCfg.Title)
	if err != nil {
		return err
	}
	defer term()
	// Surfaces match the framebuffer, which differs from the window size on high DPI displays.
	fbw, fbh := window.GetFramebufferSize()
	scaleX := float32(fbw) / float32(cfg.Width)
	scaleY := float32(fbh) / float32(cfg.Height)
	cfg.Width, cfg.Height = fbw, fbh

	backend, err := gleval.NewGLBackend()
	if err != nil {
		return err
	}
	defer backend.Delete()
	canvas, err := gstroke.NewCanvas(cfg, backend, &gleval.ScreenPresenter{})
	if err != nil {
		return err
	}
	defer canvas.Delete()
	ic := gstroke.NewInputController(fbh)

	var (
		lastX, lastY float32
		bgIdx        int
		buttons      uint32
	)
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		switch action {
		case glfw.Press:
			buttons |= gstroke.ButtonPrimary
			x, y := w.GetCursorPos()
			lastX, lastY = float32(x)*scaleX, float32(y)*scaleY
			ic.PointerDown(lastX, lastY)
		case glfw.Release:
			buttons &^= gstroke.ButtonPrimary
		}
	})
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		x, y := float32(xpos)*scaleX, float32(ypos)*scaleY
		ic.PointerMove(x, y, buttons, x-lastX, y-lastY)
		lastX, lastY = x, y
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyD:
			ic.ToggleFlag(gstroke.FlagDiagnostic)
		case glfw.KeyC:
			ic.ToggleFlag(gstroke.FlagUseCache)
		case glfw.KeyA:
			ic.ToggleFlag(gstroke.FlagAnimateColor)
		case glfw.KeyB:
			bgIdx = (bgIdx + 1) % len(uiCfg.Backgrounds)
			ic.SetBackground(uiCfg.Backgrounds[bgIdx])
		case glfw.KeyR:
			ic.FullClear()
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		}
	})

	ctx := uiCfg.Context
	start := time.Now()
	frames := 0
	lastReport := start
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		glfw.PollEvents()
		err = canvas.Tick(time.Since(start), ic.Drain()...)
		var ierr *gstroke.InitializationError
		if errors.As(err, &ierr) {
			return err
		} else if err != nil {
			gstroke.Logger().Warn("frame", slog.Any("err", err))
		}
		window.SwapBuffers()
		frames++
		if since := time.Since(lastReport); since > 2*time.Second {
			gstroke.Logger().Debug("frame rate", slog.Float64("fps", float64(frames)/since.Seconds()),
				slog.Int("points", canvas.Len()), slog.Int("cursor", canvas.Cursor()))
			frames = 0
			lastReport = time.Now()
		}
	}
	return nil
}

func startGLFW(width, height int, title string) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	// Vsync paces the frame loop.
	glfw.SwapInterval(1)

	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
