//go:build !tinygo && cgo

package gleval

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/gstroke/glbuild"
)

// Init1x1GLFW starts a 1x1 sized GLFW window so that user can start working with GPU
// surfaces off-screen. It returns a termination function that should be called when
// user is done running loads on GPU.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "gstroke",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// GLBackend runs the pipeline on the GPU through OpenGL 4.6 core. All methods,
// and all methods of the resources it creates, must be called from the thread
// holding the current GL context.
type GLBackend struct {
	vao, vbo uint32
}

var _ Backend = (*GLBackend)(nil)

// NewGLBackend creates the full screen quad shared by all passes.
// It requires a current GL context.
func NewGLBackend() (*GLBackend, error) {
	var b GLBackend
	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)
	gl.GenBuffers(1, &b.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	quad := []float32{
		-1, -1,
		1, -1,
		-1, 1,
		1, 1,
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(quad), gl.Ptr(quad), gl.STATIC_DRAW)
	gl.BindVertexArray(0)
	if err := glgl.Err(); err != nil {
		return nil, fmt.Errorf("creating full screen quad: %w", err)
	}
	return &b, nil
}

// Delete releases the quad buffers.
func (b *GLBackend) Delete() {
	gl.DeleteBuffers(1, &b.vbo)
	gl.DeleteVertexArrays(1, &b.vao)
}

func (b *GLBackend) NewSurface(width, height int) (Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w %dx%d", errBadSize, width, height)
	}
	s := &GLSurface{width: width, height: height}
	gl.GenTextures(1, &s.tex)
	gl.BindTexture(gl.TEXTURE_2D, s.tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	setNearestClamp()
	gl.GenFramebuffers(1, &s.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, s.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, s.tex, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		s.Delete()
		return nil, fmt.Errorf("incomplete framebuffer status 0x%x", status)
	}
	if err := glgl.Err(); err != nil {
		s.Delete()
		return nil, fmt.Errorf("creating surface: %w", err)
	}
	return s, nil
}

func (b *GLBackend) NewVertexTexture(capacity int) (VertexTexture, error) {
	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)
	if capacity <= 0 || capacity > int(maxSize) {
		return nil, fmt.Errorf("invalid vertex texture capacity %d, GL maximum is %d", capacity, maxSize)
	}
	vt := &GLVertexTexture{maxCap: int(maxSize)}
	tex, err := allocVertexTexture(capacity)
	if err != nil {
		return nil, err
	}
	vt.tex = tex
	vt.capacity = capacity
	return vt, nil
}

func (b *GLBackend) NewStrokeProgram() (StrokeProgram, error) {
	programmer := glbuild.NewDefaultProgrammer()
	var vertSrc, strokeSrc, diagSrc bytes.Buffer
	if _, err := programmer.WriteFullscreenVertex(&vertSrc); err != nil {
		return nil, err
	}
	if _, err := programmer.WriteStrokeFragment(&strokeSrc); err != nil {
		return nil, err
	}
	if _, err := programmer.WriteDiagnosticFragment(&diagSrc); err != nil {
		return nil, err
	}
	stroke, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vertSrc.String(),
		Fragment: strokeSrc.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s\n\ncompiling stroke program: %w", strokeSrc.String(), err)
	}
	diag, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vertSrc.String(),
		Fragment: diagSrc.String(),
	})
	if err != nil {
		stroke.Delete()
		return nil, fmt.Errorf("%s\n\ncompiling diagnostic program: %w", diagSrc.String(), err)
	}
	gs := &glStroke{backend: b, stroke: stroke, diag: diag}
	err = gs.lookupLocations()
	if err != nil {
		gs.Delete()
		return nil, err
	}
	return gs, nil
}

// GLSurface is a [Surface] held in an RGBA8 texture attached to its own framebuffer.
type GLSurface struct {
	tex, fbo      uint32
	width, height int
}

func (s *GLSurface) Size() (width, height int) { return s.width, s.height }

func (s *GLSurface) Clear(c RGBA) error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, s.fbo)
	gl.Viewport(0, 0, int32(s.width), int32(s.height))
	gl.ClearColor(c.R, c.G, c.B, c.A)
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return glgl.Err()
}

func (s *GLSurface) ReadPixels(dst *image.NRGBA) error {
	if dst == nil {
		return errors.New("nil destination image")
	} else if dst.Rect.Dx() != s.width || dst.Rect.Dy() != s.height {
		return fmt.Errorf("%w: read %dx%d into %v", errSizeMismatch, s.width, s.height, dst.Rect.Size())
	} else if dst.Stride != 4*s.width {
		return errors.New("destination image must be tightly packed")
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, s.fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(s.width), int32(s.height), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&dst.Pix[0]))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	return glgl.Err()
}

// Delete releases the surface's GPU resources.
func (s *GLSurface) Delete() {
	gl.DeleteFramebuffers(1, &s.fbo)
	gl.DeleteTextures(1, &s.tex)
}

// GLVertexTexture is a [VertexTexture] held in a capacity x 1 RG32F texture.
// Shaders address slot i with texelFetch(tex, ivec2(i, 0), 0).
type GLVertexTexture struct {
	tex      uint32
	capacity int
	n        int
	maxCap   int
}

func (vt *GLVertexTexture) Capacity() int    { return vt.capacity }
func (vt *GLVertexTexture) MaxCapacity() int { return vt.maxCap }
func (vt *GLVertexTexture) Len() int         { return vt.n }

func (vt *GLVertexTexture) WriteRange(start int, pts []ms2.Vec) error {
	end := start + len(pts)
	if start < 0 {
		return fmt.Errorf("negative vertex texture offset %d", start)
	} else if end > vt.capacity {
		return fmt.Errorf("%w: writing [%d,%d) into %d slots", ErrOutOfCapacity, start, end, vt.capacity)
	} else if len(pts) == 0 {
		return nil
	}
	gl.BindTexture(gl.TEXTURE_2D, vt.tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, int32(start), 0, int32(len(pts)), 1, gl.RG, gl.FLOAT, unsafe.Pointer(&pts[0]))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if err := glgl.Err(); err != nil {
		return fmt.Errorf("uploading vertices [%d,%d): %w", start, end, err)
	}
	vt.n = max(vt.n, end)
	return nil
}

func (vt *GLVertexTexture) Grow(minCapacity int) error {
	if minCapacity <= vt.capacity {
		return nil
	} else if minCapacity > vt.maxCap {
		return fmt.Errorf("%w: %d slots requested, GL maximum is %d", ErrOutOfCapacity, minCapacity, vt.maxCap)
	}
	tex, err := allocVertexTexture(minCapacity)
	if err != nil {
		return err
	}
	if vt.n > 0 {
		gl.CopyImageSubData(vt.tex, gl.TEXTURE_2D, 0, 0, 0, 0, tex, gl.TEXTURE_2D, 0, 0, 0, 0, int32(vt.n), 1, 1)
		if err = glgl.Err(); err != nil {
			gl.DeleteTextures(1, &tex)
			return fmt.Errorf("copying vertices to grown texture: %w", err)
		}
	}
	gl.DeleteTextures(1, &vt.tex)
	vt.tex = tex
	vt.capacity = minCapacity
	return nil
}

// Delete releases the texture.
func (vt *GLVertexTexture) Delete() {
	gl.DeleteTextures(1, &vt.tex)
}

func allocVertexTexture(capacity int) (tex uint32, err error) {
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RG32F, int32(capacity), 1, 0, gl.RG, gl.FLOAT, nil)
	setNearestClamp()
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if err = glgl.Err(); err != nil {
		gl.DeleteTextures(1, &tex)
		return 0, fmt.Errorf("allocating vertex texture of %d slots: %w", capacity, err)
	}
	return tex, nil
}

func setNearestClamp() {
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
}

type glStroke struct {
	backend *GLBackend
	stroke  glgl.Program
	diag    glgl.Program

	strokePos, diagPos uint32
	// Stroke program uniforms.
	uPrevious, uVertices, uStart, uNumPoints, uRadius int32
	uColor, uBackground, uUsePrevious                 int32
	// Diagnostic program uniforms.
	dVertices, dNumPoints, dRadius, dCharDist int32
}

func (gs *glStroke) lookupLocations() (err error) {
	uniform := func(prog glgl.Program, name string) int32 {
		if err != nil {
			return -1
		}
		var loc int32
		loc, err = prog.UniformLocation(name + "\x00")
		if err != nil {
			err = fmt.Errorf("uniform %s: %w", name, err)
		}
		return loc
	}
	gs.uPrevious = uniform(gs.stroke, glbuild.UniformPrevious)
	gs.uVertices = uniform(gs.stroke, glbuild.UniformVertices)
	gs.uStart = uniform(gs.stroke, glbuild.UniformStart)
	gs.uNumPoints = uniform(gs.stroke, glbuild.UniformNumPoints)
	gs.uRadius = uniform(gs.stroke, glbuild.UniformRadius)
	gs.uColor = uniform(gs.stroke, glbuild.UniformColor)
	gs.uBackground = uniform(gs.stroke, glbuild.UniformBackground)
	gs.uUsePrevious = uniform(gs.stroke, glbuild.UniformUsePrevious)
	gs.dVertices = uniform(gs.diag, glbuild.UniformVertices)
	gs.dNumPoints = uniform(gs.diag, glbuild.UniformNumPoints)
	gs.dRadius = uniform(gs.diag, glbuild.UniformRadius)
	gs.dCharDist = uniform(gs.diag, glbuild.UniformCharDist)
	if err != nil {
		return err
	}
	gs.strokePos, err = gs.stroke.AttribLocation(glbuild.AttribPosition + "\x00")
	if err != nil {
		return err
	}
	gs.diagPos, err = gs.diag.AttribLocation(glbuild.AttribPosition + "\x00")
	return err
}

func (gs *glStroke) Run(dst, src Surface, verts VertexTexture, u StrokeUniforms) error {
	d, ok1 := dst.(*GLSurface)
	s, ok2 := src.(*GLSurface)
	vt, ok3 := verts.(*GLVertexTexture)
	if !ok1 || !ok2 || !ok3 {
		return errForeignResource
	} else if d == s {
		return errSameSurface
	} else if d.width != s.width || d.height != s.height {
		return errSizeMismatch
	}
	if err := u.validate(vt); err != nil {
		return err
	}
	gs.stroke.Bind()
	defer gs.stroke.Unbind()
	gl.ActiveTexture(gl.TEXTURE0 + glbuild.TextureUnitPrevious)
	gl.BindTexture(gl.TEXTURE_2D, s.tex)
	gl.ActiveTexture(gl.TEXTURE0 + glbuild.TextureUnitVertices)
	gl.BindTexture(gl.TEXTURE_2D, vt.tex)
	gl.Uniform1i(gs.uPrevious, glbuild.TextureUnitPrevious)
	gl.Uniform1i(gs.uVertices, glbuild.TextureUnitVertices)
	gl.Uniform1i(gs.uStart, int32(u.StartIndex))
	gl.Uniform1i(gs.uNumPoints, int32(u.NumPoints))
	gl.Uniform1f(gs.uRadius, u.Radius)
	gl.Uniform4f(gs.uColor, u.Color.R, u.Color.G, u.Color.B, u.Color.A)
	gl.Uniform4f(gs.uBackground, u.Background.R, u.Background.G, u.Background.B, u.Background.A)
	gl.Uniform1i(gs.uUsePrevious, b2i(u.UsePrevious))
	return gs.backend.drawQuad(d, gs.strokePos)
}

func (gs *glStroke) RunDiagnostic(dst Surface, verts VertexTexture, numPoints int, radius float32) error {
	d, ok1 := dst.(*GLSurface)
	vt, ok2 := verts.(*GLVertexTexture)
	if !ok1 || !ok2 {
		return errForeignResource
	} else if numPoints < 0 || numPoints > vt.Len() {
		return errBadPointCount
	}
	gs.diag.Bind()
	defer gs.diag.Unbind()
	gl.ActiveTexture(gl.TEXTURE0 + glbuild.TextureUnitVertices)
	gl.BindTexture(gl.TEXTURE_2D, vt.tex)
	gl.Uniform1i(gs.dVertices, glbuild.TextureUnitVertices)
	gl.Uniform1i(gs.dNumPoints, int32(numPoints))
	gl.Uniform1f(gs.dRadius, radius)
	gl.Uniform1f(gs.dCharDist, math32.Hypot(float32(d.width), float32(d.height))/3)
	return gs.backend.drawQuad(d, gs.diagPos)
}

// Delete releases both programs.
func (gs *glStroke) Delete() {
	gs.stroke.Delete()
	gs.diag.Delete()
}

// drawQuad rasterizes the full screen quad into dst with the bound program.
func (b *GLBackend) drawQuad(dst *GLSurface, posAttrib uint32) error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, dst.fbo)
	defer gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(dst.width), int32(dst.height))
	// Compositing is done in the fragment program.
	gl.Disable(gl.BLEND)
	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)
	return glgl.Err()
}

// ScreenPresenter blits GL surfaces into a framebuffer, by default the window's.
type ScreenPresenter struct {
	Framebuffer uint32
}

var _ Presenter = (*ScreenPresenter)(nil)

func (sp *ScreenPresenter) Present(src Surface) error {
	s, ok := src.(*GLSurface)
	if !ok {
		return errForeignResource
	}
	w, h := int32(s.width), int32(s.height)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, s.fbo)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, sp.Framebuffer)
	gl.BlitFramebuffer(0, 0, w, h, 0, 0, w, h, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return glgl.Err()
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
