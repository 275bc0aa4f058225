package gleval

import (
	"image/color"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/stretchr/testify/assert"
)

func TestStrokeAlpha(t *testing.T) {
	const r = 4
	tests := []struct {
		dist, want float32
	}{
		{dist: 0, want: 1},
		{dist: 3, want: 1},
		{dist: 3.25, want: 0.75},
		{dist: 3.5, want: 0.5},
		{dist: 4, want: 0},
		{dist: 100, want: 0},
		{dist: math32.Inf(1), want: 0},
		{dist: math32.NaN(), want: 0},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, StrokeAlpha(test.dist, r), "dist=%v", test.dist)
	}
}

func TestSegmentDistance(t *testing.T) {
	a, b := ms2.Vec{X: 0, Y: 0}, ms2.Vec{X: 10, Y: 0}
	assert.Equal(t, float32(9), SegmentDistance2(ms2.Vec{X: 5, Y: 3}, a, b))
	assert.Equal(t, float32(25), SegmentDistance2(ms2.Vec{X: 13, Y: 4}, a, b), "beyond endpoint")
	assert.Equal(t, float32(2), SegmentDistance2(ms2.Vec{X: 1, Y: 1}, a, a), "degenerate segment")

	pts := []ms2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}
	assert.True(t, math32.IsInf(PolylineDistance(a, nil), 1))
	assert.Equal(t, float32(5), PolylineDistance(ms2.Vec{X: 3, Y: 4}, pts[:1]))
	// Equidistant to both segments sharing the corner vertex.
	assert.InDelta(t, math32.Sqrt(2), PolylineDistance(ms2.Vec{X: 11, Y: -1}, pts), 1e-6)
	assert.Equal(t, float32(1), PolylineDistance(ms2.Vec{X: 9, Y: 5}, pts), "closest to second segment")
}

func TestUniformSegments(t *testing.T) {
	tests := []struct {
		start, num         int
		wantStart, wantEnd int
	}{
		{start: 0, num: 0, wantStart: 0, wantEnd: 0},
		{start: 0, num: 1, wantStart: 0, wantEnd: 0},
		{start: 0, num: 2, wantStart: 0, wantEnd: 1},
		{start: 1, num: 3, wantStart: 1, wantEnd: 2},
		{start: 2, num: 3, wantStart: 2, wantEnd: 2},
		{start: 5, num: 3, wantStart: 5, wantEnd: 5},
	}
	for _, test := range tests {
		s, e := StrokeUniforms{StartIndex: test.start, NumPoints: test.num}.Segments()
		assert.Equal(t, test.wantStart, s)
		assert.Equal(t, test.wantEnd, e)
	}
}

func TestRGBA(t *testing.T) {
	c := RGBAFromColor(color.NRGBA{R: 255, G: 128, B: 0, A: 255})
	assert.Equal(t, color.NRGBA{R: 255, G: 128, B: 0, A: 255}, c.NRGBA())
	assert.Equal(t, color.NRGBA{R: 255, A: 0}, RGBA{R: 2, G: -1}.NRGBA(), "out of range values are clamped")
	mid := RGBA{A: 1}.Mix(RGBA{R: 1, G: 1, B: 1, A: 1}, 0.5)
	assert.Equal(t, RGBA{R: 0.5, G: 0.5, B: 0.5, A: 1}, mid)
}

func TestDistanceColor(t *testing.T) {
	conv := DistanceColor(100)
	assert.Equal(t, nanColor, conv(math32.NaN()))
	zero := conv(0)
	assert.Equal(t, RGBA{R: 1, G: 1, B: 1, A: 1}, zero, "iso-line is white")
	out, in := conv(30), conv(-30)
	assert.Greater(t, out.R, out.B, "outside is warm")
	assert.Greater(t, in.B, in.R, "inside is cool")
	far := conv(1000)
	assert.False(t, math32.IsNaN(far.R))
	assert.Equal(t, float32(1), far.A)
}
