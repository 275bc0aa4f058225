package gstroke

import (
	"time"

	"github.com/chewxy/math32"
	"github.com/soypat/gstroke/gleval"
)

// HSV conversions follow Esme Lamb's (@dedelala) colour work presented at
// Gophercon AU 2024. https://github.com/dedelala/disco/tree/main/color

// cycleHue returns c with its hue advanced by the fraction of period elapsed at now.
// Saturation, value and alpha of c are preserved. Grey colours get full saturation
// so that the cycle is visible.
func cycleHue(c gleval.RGBA, now, period time.Duration) gleval.RGBA {
	if period <= 0 {
		return c
	}
	h, s, v := rgbToHSV(c.R, c.G, c.B)
	if s == 0 {
		s = 1
		v = max(v, 0.5)
	}
	phase := float32(now%period) / float32(period)
	h = h + phase
	h -= math32.Floor(h)
	r, g, b := hsvToRGB(h, s, v)
	return gleval.RGBA{R: r, G: g, B: b, A: c.A}
}

// hsvToRGB converts hue, saturation and brightness values on the range of 0.0
// to 1.0 to RGB floating point values on the range of 0.0 to 1.0
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	var (
		c = s * v
		x = c * (1 - math32.Abs(math32.Mod(h*6, 2)-1))
		m = v - c
	)
	switch {
	case h >= 0 && h <= 1.0/6:
		r, g, b = c, x, 0
	case h > 1.0/6 && h <= 2.0/6:
		r, g, b = x, c, 0
	case h > 2.0/6 && h <= 3.0/6:
		r, g, b = 0, c, x
	case h > 3.0/6 && h <= 4.0/6:
		r, g, b = 0, x, c
	case h > 4.0/6 && h <= 5.0/6:
		r, g, b = x, 0, c
	case h > 5.0/6 && h <= 1.0:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

// rgbToHSV converts red, green, and blue floating point values on the range
// 0.0 to 1.0 to hue, saturation and brightness values on the range 0.0 to 1.0
func rgbToHSV(r, g, b float32) (h, s, v float32) {
	var (
		xmax = max(r, g, b)
		xmin = min(r, g, b)
		c    = xmax - xmin
	)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	case v == b:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = c / xmax
	}
	return h, s, v
}
