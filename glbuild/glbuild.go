package glbuild

import (
	"bytes"
	_ "embed"
	"errors"
	"io"
	"strconv"
)

const VersionStr = "#version 430\n"

// Names of the inputs shared by the generated programs. The GPU backend
// looks these up after linking.
const (
	AttribPosition = "aPos"

	UniformPrevious    = "uPrevious"
	UniformVertices    = "uVertices"
	UniformStart       = "uStart"
	UniformNumPoints   = "uNumPoints"
	UniformRadius      = "uRadius"
	UniformColor       = "uColor"
	UniformBackground  = "uBackground"
	UniformUsePrevious = "uUsePrevious"
	UniformCharDist    = "uCharDist"

	outputColor = "fragColor"
)

// Texture units the samplers are bound to.
const (
	TextureUnitPrevious = 0
	TextureUnitVertices = 1
)

// LargeNum is the initial squared distance of a polyline distance search.
const LargeNum = 1e23

var (
	//go:embed glsl/segment2.glsl
	segmentSrc []byte
	//go:embed glsl/stroke.glsl
	strokeMainSrc []byte
	//go:embed glsl/diagnostic.glsl
	diagnosticMainSrc []byte
	//go:embed glsl/fullscreen.glsl
	fullscreenMainSrc []byte
)

// Programmer generates the GLSL sources of the stroke pipeline.
type Programmer struct {
	scratch []byte
	// NullTerminate appends a NUL byte to written programs as required by C GL bindings.
	NullTerminate bool
}

// NewDefaultProgrammer returns a Programmer ready for use with glgl on the local machine.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratch:       make([]byte, 0, 4096),
		NullTerminate: true,
	}
}

// WriteFullscreenVertex writes the vertex program that passes clip-space
// quad corners through, so the fragment stage runs once per target pixel.
func (p *Programmer) WriteFullscreenVertex(w io.Writer) (int, error) {
	b := append(p.scratch[:0], VersionStr...)
	b = appendDecl(b, "in", "vec2", AttribPosition)
	b = append(b, '\n')
	b = append(b, fullscreenMainSrc...)
	return p.flush(w, b)
}

// WriteStrokeFragment writes the accumulation program. For each pixel it computes the
// distance to segments [uStart, uNumPoints-1) stored in the vertex texture and blends
// uColor over the previous surface value within uRadius, with a one pixel linear falloff.
func (p *Programmer) WriteStrokeFragment(w io.Writer) (int, error) {
	b := p.appendFragmentHeader(p.scratch[:0])
	b = appendDecl(b, "uniform", "sampler2D", UniformPrevious)
	b = appendDecl(b, "uniform", "int", UniformStart)
	b = appendDecl(b, "uniform", "vec4", UniformColor)
	b = appendDecl(b, "uniform", "vec4", UniformBackground)
	b = appendDecl(b, "uniform", "bool", UniformUsePrevious)
	b = append(b, '\n')
	b = append(b, segmentSrc...)
	b = append(b, '\n')
	b = append(b, strokeMainSrc...)
	return p.flush(w, b)
}

// WriteDiagnosticFragment writes the program that renders the signed distance to the
// whole polyline, offset by uRadius, as a colour gradient.
func (p *Programmer) WriteDiagnosticFragment(w io.Writer) (int, error) {
	b := p.appendFragmentHeader(p.scratch[:0])
	b = appendDecl(b, "uniform", "float", UniformCharDist)
	b = append(b, '\n')
	b = append(b, segmentSrc...)
	b = append(b, '\n')
	b = append(b, diagnosticMainSrc...)
	return p.flush(w, b)
}

func (p *Programmer) appendFragmentHeader(b []byte) []byte {
	b = append(b, VersionStr...)
	b = append(b, "precision highp float;\n"...)
	b = AppendDefineDecl(b, "GSTROKE_LARGENUM", string(AppendFloat(nil, '-', '.', LargeNum)))
	b = appendDecl(b, "uniform", "sampler2D", UniformVertices)
	b = appendDecl(b, "uniform", "int", UniformNumPoints)
	b = appendDecl(b, "uniform", "float", UniformRadius)
	b = appendDecl(b, "out", "vec4", outputColor)
	return b
}

func (p *Programmer) flush(w io.Writer, b []byte) (int, error) {
	if bytes.IndexByte(b, 0) >= 0 {
		return 0, errors.New("NUL byte in shader source")
	}
	if p.NullTerminate {
		b = append(b, 0)
	}
	p.scratch = b
	return w.Write(b)
}

func appendDecl(b []byte, qualifier, typename, name string) []byte {
	b = append(b, qualifier...)
	b = append(b, ' ')
	b = append(b, typename...)
	b = append(b, ' ')
	b = append(b, name...)
	b = append(b, ';', '\n')
	return b
}

func AppendDefineDecl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define "...)
	b = append(b, aliasToDefine...)
	b = append(b, ' ')
	b = append(b, aliasReplace...)
	b = append(b, '\n')
	return b
}

const decimalDigits = 9

// AppendFloat appends v as a GLSL float literal. neg and decimal replace the minus sign and
// decimal point, which lets the same routine build identifiers.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start+1 && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}
