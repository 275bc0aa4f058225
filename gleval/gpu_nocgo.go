//go:build tinygo || !cgo

package gleval

import (
	"image"

	"github.com/soypat/geometry/ms2"
)

// Init1x1GLFW starts a 1x1 sized GLFW window. Requires cgo.
func Init1x1GLFW() (terminate func(), err error) {
	return nil, ErrNoCGO
}

// GLBackend runs the pipeline on the GPU. Requires cgo.
type GLBackend struct{}

// NewGLBackend returns [ErrNoCGO] in builds without cgo.
func NewGLBackend() (*GLBackend, error) {
	return nil, ErrNoCGO
}

func (b *GLBackend) Delete() {}

func (b *GLBackend) NewSurface(width, height int) (Surface, error) {
	return nil, ErrNoCGO
}

func (b *GLBackend) NewVertexTexture(capacity int) (VertexTexture, error) {
	return nil, ErrNoCGO
}

func (b *GLBackend) NewStrokeProgram() (StrokeProgram, error) {
	return nil, ErrNoCGO
}

type GLSurface struct{}

func (s *GLSurface) Size() (width, height int)         { return 0, 0 }
func (s *GLSurface) Clear(c RGBA) error                { return ErrNoCGO }
func (s *GLSurface) ReadPixels(dst *image.NRGBA) error { return ErrNoCGO }

type GLVertexTexture struct{}

func (vt *GLVertexTexture) Capacity() int                             { return 0 }
func (vt *GLVertexTexture) MaxCapacity() int                          { return 0 }
func (vt *GLVertexTexture) Len() int                                  { return 0 }
func (vt *GLVertexTexture) WriteRange(start int, pts []ms2.Vec) error { return ErrNoCGO }
func (vt *GLVertexTexture) Grow(minCapacity int) error                { return ErrNoCGO }

// ScreenPresenter blits GL surfaces into a framebuffer. Requires cgo.
type ScreenPresenter struct {
	Framebuffer uint32
}

func (sp *ScreenPresenter) Present(src Surface) error { return ErrNoCGO }
