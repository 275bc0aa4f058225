package gleval

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"golang.org/x/sync/errgroup"
)

// cpuStroke is the software rendition of the stroke fragment program
// generated by glbuild.
type cpuStroke struct {
	workers int
}

func (cs *cpuStroke) Run(dst, src Surface, verts VertexTexture, u StrokeUniforms) error {
	d, s, vt, err := cpuResources(dst, src, verts)
	if err != nil {
		return err
	}
	if d == s {
		return errSameSurface
	}
	w, h := d.Size()
	sw, sh := s.Size()
	if w != sw || h != sh {
		return errSizeMismatch
	}
	if err = u.validate(vt); err != nil {
		return err
	}
	var pts []ms2.Vec
	if start, end := u.Segments(); end > start {
		pts = vt.data[start : end+1]
	}
	// Pixels farther than the stroke radius from the new segments' bounds keep their previous value.
	bb := ms2.Box{
		Min: ms2.Vec{X: math32.Inf(1), Y: math32.Inf(1)},
		Max: ms2.Vec{X: math32.Inf(-1), Y: math32.Inf(-1)},
	}
	for _, p := range pts {
		bb.Min = ms2.Vec{X: math32.Min(bb.Min.X, p.X), Y: math32.Min(bb.Min.Y, p.Y)}
		bb.Max = ms2.Vec{X: math32.Max(bb.Max.X, p.X), Y: math32.Max(bb.Max.Y, p.Y)}
	}
	r := u.Radius
	bb.Min = ms2.Vec{X: bb.Min.X - r, Y: bb.Min.Y - r}
	bb.Max = ms2.Vec{X: bb.Max.X + r, Y: bb.Max.Y + r}

	bg := u.Background.NRGBA()
	shade := func(y int) {
		py := float32(y) + 0.5
		rowInBounds := len(pts) > 0 && py >= bb.Min.Y && py <= bb.Max.Y
		if u.UsePrevious && !rowInBounds {
			d.copyRow(s, y)
			return
		}
		for x := 0; x < w; x++ {
			var prev RGBA
			if u.UsePrevious {
				prev = s.pixel(x, y)
			} else {
				prev = u.Background
			}
			px := float32(x) + 0.5
			if !rowInBounds || px < bb.Min.X || px > bb.Max.X {
				if u.UsePrevious {
					d.img.SetNRGBA(x, y, s.img.NRGBAAt(x, y))
				} else {
					d.img.SetNRGBA(x, y, bg)
				}
				continue
			}
			dist := PolylineDistance(ms2.Vec{X: px, Y: py}, pts)
			alpha := StrokeAlpha(dist, r)
			if alpha > 0 {
				prev = prev.Mix(u.Color, alpha)
			}
			d.setPixel(x, y, prev)
		}
	}
	return cs.parallelRows(h, shade)
}

func (cs *cpuStroke) RunDiagnostic(dst Surface, verts VertexTexture, numPoints int, radius float32) error {
	d, ok := dst.(*CPUSurface)
	vt, ok2 := verts.(*CPUVertexTexture)
	if !ok || !ok2 {
		return errForeignResource
	} else if numPoints < 0 || numPoints > vt.Len() {
		return errBadPointCount
	}
	w, h := d.Size()
	diag := math32.Hypot(float32(w), float32(h))
	conv := DistanceColor(diag / 3)
	pts := vt.data[:numPoints]
	return cs.parallelRows(h, func(y int) {
		py := float32(y) + 0.5
		for x := 0; x < w; x++ {
			// With no points every pixel is as far as the surface allows.
			dist := diag
			if len(pts) > 0 {
				dist = PolylineDistance(ms2.Vec{X: float32(x) + 0.5, Y: py}, pts)
			}
			d.setPixel(x, y, conv(dist-radius))
		}
	})
}

// parallelRows calls shade for every row in [0,h), splitting rows in contiguous bands.
// It returns once every row is shaded.
func (cs *cpuStroke) parallelRows(h int, shade func(y int)) error {
	workers := max(1, min(cs.workers, h))
	band := (h + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := 0; y0 < h; y0 += band {
		y0 := y0
		y1 := min(h, y0+band)
		g.Go(func() error {
			for y := y0; y < y1; y++ {
				shade(y)
			}
			return nil
		})
	}
	return g.Wait()
}

func cpuResources(dst, src Surface, verts VertexTexture) (*CPUSurface, *CPUSurface, *CPUVertexTexture, error) {
	d, ok1 := dst.(*CPUSurface)
	s, ok2 := src.(*CPUSurface)
	vt, ok3 := verts.(*CPUVertexTexture)
	if !ok1 || !ok2 || !ok3 {
		return nil, nil, nil, errForeignResource
	}
	return d, s, vt, nil
}
