package gstrokeaux

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/gstroke"
	"github.com/soypat/gstroke/gleval"
)

// UIConfig configures the interactive window started by [UI].
type UIConfig struct {
	// Context stops the window loop when done. May be nil.
	Context context.Context
	Title   string
	// Backgrounds is the palette cycled through with the B key.
	// Empty means black and white.
	Backgrounds []gleval.RGBA
}

// UI opens a window of the canvas size and lets the user draw on it with the
// left mouse button. It must be called from the main goroutine with the OS
// thread locked. Keys:
//
//	D  toggle diagnostic distance field
//	C  toggle use of the cached image
//	A  toggle stroke colour animation
//	B  cycle background colour (clears the canvas)
//	R  re-render the whole stroke
//	Esc close the window
func UI(cfg gstroke.Config, uiCfg UIConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if uiCfg.Title == "" {
		uiCfg.Title = "gstroke"
	}
	if len(uiCfg.Backgrounds) == 0 {
		uiCfg.Backgrounds = []gleval.RGBA{{A: 1}, {R: 1, G: 1, B: 1, A: 1}}
	}
	return ui(cfg, uiCfg)
}

// RenderConfig configures a headless replay.
type RenderConfig struct {
	Stroke gstroke.Config
	// PointsPerFrame is the number of pointer events delivered between frames.
	// Zero delivers every event in the first frame.
	PointsPerFrame int
	// FrameTime is the simulated time between frames.
	FrameTime time.Duration
	// Backend defaults to a CPU backend.
	Backend gleval.Backend
}

// Render replays a pointer drag along path, given in window coordinates
// (y grows downward), on a [gstroke.Canvas] and returns the presented image.
// The first point presses the pointer and the rest move it with the primary button held.
func Render(path []ms2.Vec, cfg RenderConfig) (*image.NRGBA, error) {
	if len(path) == 0 {
		return nil, errors.New("empty path")
	}
	backend := cfg.Backend
	if backend == nil {
		backend = &gleval.CPUBackend{}
	}
	screen := image.NewNRGBA(image.Rect(0, 0, cfg.Stroke.Width, cfg.Stroke.Height))
	canvas, err := gstroke.NewCanvas(cfg.Stroke, backend, &gleval.ImagePresenter{Dst: screen})
	if err != nil {
		return nil, err
	}
	perFrame := cfg.PointsPerFrame
	if perFrame <= 0 {
		perFrame = len(path)
	}
	watch := stopwatch()
	ic := gstroke.NewInputController(cfg.Stroke.Height)
	ic.PointerDown(path[0].X, path[0].Y)
	var now time.Duration
	var errs []error
	frames := 0
	for i := 1; i <= len(path); i++ {
		if i < len(path) {
			d := ms2.Sub(path[i], path[i-1])
			ic.PointerMove(path[i].X, path[i].Y, gstroke.ButtonPrimary, d.X, d.Y)
		}
		if i%perFrame != 0 && i != len(path) {
			continue
		}
		if err := canvas.Tick(now, ic.Drain()...); err != nil {
			errs = append(errs, err)
		}
		frames++
		now += cfg.FrameTime
	}
	gstroke.Logger().Info("replay done", slog.Int("frames", frames), slog.Int("points", canvas.Len()),
		slog.Duration("elapsed", watch()))
	return screen, errors.Join(errs...)
}

// RenderPNG replays path like [Render] and encodes the result as PNG to w.
func RenderPNG(w io.Writer, path []ms2.Vec, cfg RenderConfig) error {
	img, err := Render(path, cfg)
	if img == nil {
		return err
	}
	if perr := png.Encode(w, img); perr != nil {
		return errors.Join(err, fmt.Errorf("encoding PNG: %w", perr))
	}
	return err
}

// RenderPNGFile replays path and saves the result to a PNG file with said filename.
func RenderPNGFile(filename string, path []ms2.Vec, cfg RenderConfig) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = RenderPNG(fp, path, cfg)
	if err != nil {
		return err
	}
	return fp.Sync()
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
