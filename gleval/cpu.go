package gleval

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"

	"github.com/soypat/geometry/ms2"
	"golang.org/x/image/draw"
)

// maxCPUCapacity bounds vertex texture growth on the CPU backend.
const maxCPUCapacity = 1 << 24

// CPUBackend runs the pipeline in system memory. Each pass is split in row
// bands evaluated concurrently, one unit of work per pixel.
type CPUBackend struct {
	// Workers limits concurrent row bands. Zero means runtime.GOMAXPROCS(0).
	Workers int
}

var _ Backend = (*CPUBackend)(nil) // Interface implementation compile-time check.

func (b *CPUBackend) NewSurface(width, height int) (Surface, error) {
	return NewCPUSurface(width, height)
}

func (b *CPUBackend) NewVertexTexture(capacity int) (VertexTexture, error) {
	return NewCPUVertexTexture(capacity)
}

func (b *CPUBackend) NewStrokeProgram() (StrokeProgram, error) {
	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &cpuStroke{workers: workers}, nil
}

// CPUSurface is a [Surface] backed by an 8-bit non-premultiplied image.
// Image row y holds surface row y, bottom row first.
type CPUSurface struct {
	img *image.NRGBA
}

// NewCPUSurface allocates a surface of the given size.
func NewCPUSurface(width, height int) (*CPUSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w %dx%d", errBadSize, width, height)
	}
	return &CPUSurface{img: image.NewNRGBA(image.Rect(0, 0, width, height))}, nil
}

func (s *CPUSurface) Size() (width, height int) {
	sz := s.img.Rect.Size()
	return sz.X, sz.Y
}

func (s *CPUSurface) Clear(c RGBA) error {
	q := c.NRGBA()
	pix := s.img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i+0] = q.R
		pix[i+1] = q.G
		pix[i+2] = q.B
		pix[i+3] = q.A
	}
	return nil
}

func (s *CPUSurface) ReadPixels(dst *image.NRGBA) error {
	if dst == nil {
		return errors.New("nil destination image")
	} else if dst.Rect.Size() != s.img.Rect.Size() {
		return fmt.Errorf("%w: read %v into %v", errSizeMismatch, s.img.Rect.Size(), dst.Rect.Size())
	}
	w, h := s.Size()
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+4*w], s.img.Pix[y*s.img.Stride:])
	}
	return nil
}

// At returns the pixel at (x,y) in surface coordinates.
func (s *CPUSurface) At(x, y int) color.NRGBA {
	return s.img.NRGBAAt(x, y)
}

func (s *CPUSurface) pixel(x, y int) RGBA {
	i := s.img.PixOffset(x, y)
	p := s.img.Pix[i : i+4 : i+4]
	return RGBA{
		R: float32(p[0]) / 255,
		G: float32(p[1]) / 255,
		B: float32(p[2]) / 255,
		A: float32(p[3]) / 255,
	}
}

func (s *CPUSurface) setPixel(x, y int, c RGBA) {
	i := s.img.PixOffset(x, y)
	q := c.NRGBA()
	p := s.img.Pix[i : i+4 : i+4]
	p[0], p[1], p[2], p[3] = q.R, q.G, q.B, q.A
}

func (s *CPUSurface) copyRow(src *CPUSurface, y int) {
	off := y * s.img.Stride
	copy(s.img.Pix[off:off+s.img.Stride], src.img.Pix[y*src.img.Stride:])
}

// CPUVertexTexture is a [VertexTexture] in system memory.
type CPUVertexTexture struct {
	data []ms2.Vec
	n    int
}

// NewCPUVertexTexture allocates a vertex texture with capacity slots.
func NewCPUVertexTexture(capacity int) (*CPUVertexTexture, error) {
	if capacity <= 0 || capacity > maxCPUCapacity {
		return nil, fmt.Errorf("invalid vertex texture capacity %d", capacity)
	}
	return &CPUVertexTexture{data: make([]ms2.Vec, capacity)}, nil
}

func (vt *CPUVertexTexture) Capacity() int    { return len(vt.data) }
func (vt *CPUVertexTexture) MaxCapacity() int { return maxCPUCapacity }
func (vt *CPUVertexTexture) Len() int         { return vt.n }

func (vt *CPUVertexTexture) WriteRange(start int, pts []ms2.Vec) error {
	end := start + len(pts)
	if start < 0 {
		return fmt.Errorf("negative vertex texture offset %d", start)
	} else if end > len(vt.data) {
		return fmt.Errorf("%w: writing [%d,%d) into %d slots", ErrOutOfCapacity, start, end, len(vt.data))
	}
	copy(vt.data[start:end], pts)
	vt.n = max(vt.n, end)
	return nil
}

func (vt *CPUVertexTexture) Grow(minCapacity int) error {
	if minCapacity <= len(vt.data) {
		return nil
	} else if minCapacity > maxCPUCapacity {
		return fmt.Errorf("%w: %d slots requested, maximum is %d", ErrOutOfCapacity, minCapacity, maxCPUCapacity)
	}
	newData := make([]ms2.Vec, minCapacity)
	copy(newData, vt.data[:vt.n])
	vt.data = newData
	return nil
}

// TexelFetch returns the vertex at slot i.
func (vt *CPUVertexTexture) TexelFetch(i int) ms2.Vec {
	return vt.data[i]
}

// ImagePresenter presents CPU surfaces into an image with the top row first,
// flipping the surface vertically.
type ImagePresenter struct {
	Dst draw.Image
}

var _ Presenter = (*ImagePresenter)(nil)

func (ip *ImagePresenter) Present(src Surface) error {
	s, ok := src.(*CPUSurface)
	if !ok {
		return errForeignResource
	} else if ip.Dst == nil {
		return errors.New("nil presenter destination")
	}
	w, h := s.Size()
	if ip.Dst.Bounds().Size() != (image.Point{X: w, Y: h}) {
		return fmt.Errorf("%w: presenting %dx%d into %v", errSizeMismatch, w, h, ip.Dst.Bounds().Size())
	}
	origin := ip.Dst.Bounds().Min
	for y := 0; y < h; y++ {
		row := image.Rect(0, y, w, y+1)
		draw.Copy(ip.Dst, image.Pt(origin.X, origin.Y+h-1-y), s.img, row, draw.Src, nil)
	}
	return nil
}
