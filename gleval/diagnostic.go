package gleval

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

var nanColor = RGBA{R: 1, A: 1}

// DistanceColor returns a conversion from signed distance to colour in [Inigo Quilez]'s style:
// warm bands outside the stroke, cool bands inside and a white iso-line at zero.
// A good value for characteristicDistance is a third of the surface diagonal.
// The GLSL diagnostic program generated by glbuild implements the same mapping.
//
// [Inigo Quilez]: https://iquilezles.org/articles/distfunctions2d/
func DistanceColor(characteristicDistance float32) func(d float32) RGBA {
	inv := 1 / characteristicDistance
	return func(d float32) RGBA {
		if math32.IsNaN(d) {
			return nanColor
		}
		d *= inv
		var c ms3.Vec
		if d > 0 {
			c = ms3.Vec{X: 0.9, Y: 0.6, Z: 0.3}
		} else {
			c = ms3.Vec{X: 0.65, Y: 0.85, Z: 1.0}
		}
		ad := math32.Abs(d)
		c = ms3.Scale(1-math32.Exp(-6*ad), c)
		c = ms3.Scale(0.8+0.2*math32.Cos(150*d), c)
		white := 1 - smoothstep(0, 0.01, ad)
		return RGBA{
			R: mixf(c.X, 1, white),
			G: mixf(c.Y, 1, white),
			B: mixf(c.Z, 1, white),
			A: 1,
		}
	}
}

func smoothstep(edge0, edge1, x float32) float32 {
	t := clampf((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}
