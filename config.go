package gstroke

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/soypat/gstroke/gleval"
)

const maxVertexCapacity = 1 << 24

// CapacityPolicy decides what happens to a point that does not fit in the vertex texture.
type CapacityPolicy uint8

const (
	// CapacityReject drops the point and reports a [*CapacityError].
	CapacityReject CapacityPolicy = iota
	// CapacityGrow doubles the vertex texture capacity, preserving its contents.
	CapacityGrow
)

func (p CapacityPolicy) String() string {
	switch p {
	case CapacityReject:
		return "reject"
	case CapacityGrow:
		return "grow"
	}
	return fmt.Sprintf("CapacityPolicy(%d)", uint8(p))
}

func (p CapacityPolicy) MarshalText() ([]byte, error) {
	if p > CapacityGrow {
		return nil, fmt.Errorf("invalid capacity policy %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *CapacityPolicy) UnmarshalText(b []byte) error {
	switch string(b) {
	case "reject", "":
		*p = CapacityReject
	case "grow":
		*p = CapacityGrow
	default:
		return fmt.Errorf("unknown capacity policy %q, want \"reject\" or \"grow\"", b)
	}
	return nil
}

// HexColor is a colour written as "#rrggbb" or "#rrggbbaa" in configuration files.
type HexColor gleval.RGBA

func (c HexColor) MarshalText() ([]byte, error) {
	q := gleval.RGBA(c).NRGBA()
	return fmt.Appendf(nil, "#%02x%02x%02x%02x", q.R, q.G, q.B, q.A), nil
}

func (c *HexColor) UnmarshalText(b []byte) error {
	s, ok := strings.CutPrefix(string(b), "#")
	if !ok || (len(s) != 6 && len(s) != 8) {
		return fmt.Errorf("bad colour %q, want #rrggbb or #rrggbbaa", b)
	}
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("bad colour %q: %w", b, err)
	}
	*c = HexColor{
		R: float32(uint8(v>>24)) / 255,
		G: float32(uint8(v>>16)) / 255,
		B: float32(uint8(v>>8)) / 255,
		A: float32(uint8(v)) / 255,
	}
	return nil
}

// Config configures a [Canvas].
type Config struct {
	// Width and Height are the size of the drawing surfaces in pixels.
	Width  int `toml:"width"`
	Height int `toml:"height"`
	// StrokeRadius is the stroke radius in pixels.
	StrokeRadius float32 `toml:"stroke_radius"`
	// MinDistance is the per-axis distance in pixels below which a point
	// duplicates the previous one.
	MinDistance float32 `toml:"min_distance"`
	// VertexCapacity is the initial number of vertex texture slots.
	VertexCapacity int            `toml:"vertex_capacity"`
	CapacityPolicy CapacityPolicy `toml:"capacity_policy"`
	Background     HexColor       `toml:"background"`
	StrokeColor    HexColor       `toml:"stroke_color"`
	UseCache       bool           `toml:"use_cache"`
	AnimateColor   bool           `toml:"animate_color"`
	// ColorPeriod is the duration of a hue cycle in seconds when AnimateColor is set.
	ColorPeriod float64 `toml:"color_period"`
	Diagnostic  bool    `toml:"diagnostic"`
}

// DefaultConfig returns a valid configuration for a width x height canvas.
func DefaultConfig(width, height int) Config {
	return Config{
		Width:          width,
		Height:         height,
		StrokeRadius:   DefaultStrokeRadius,
		MinDistance:    DefaultMinDistance,
		VertexCapacity: DefaultVertexCapacity,
		CapacityPolicy: CapacityReject,
		Background:     HexColor(defaultBackground),
		StrokeColor:    HexColor(defaultStrokeColor),
		UseCache:       true,
		ColorPeriod:    DefaultColorPeriod.Seconds(),
	}
}

// Validate checks cfg for values a [Canvas] cannot work with.
func (cfg Config) Validate() error {
	var errs []error
	if cfg.Width <= 0 || cfg.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid canvas size %dx%d", cfg.Width, cfg.Height))
	}
	if !(cfg.StrokeRadius > 0) {
		errs = append(errs, fmt.Errorf("stroke radius must be positive, got %v", cfg.StrokeRadius))
	}
	if !(cfg.MinDistance >= 0) {
		errs = append(errs, fmt.Errorf("negative minimum point distance %v", cfg.MinDistance))
	}
	if cfg.VertexCapacity <= 0 || cfg.VertexCapacity > maxVertexCapacity {
		errs = append(errs, fmt.Errorf("vertex capacity %d out of range (0, %d]", cfg.VertexCapacity, maxVertexCapacity))
	}
	if cfg.CapacityPolicy > CapacityGrow {
		errs = append(errs, fmt.Errorf("invalid capacity policy %d", uint8(cfg.CapacityPolicy)))
	}
	if cfg.AnimateColor && !(cfg.ColorPeriod > 0) {
		errs = append(errs, errors.New("animated colour requires a positive color_period"))
	}
	return errors.Join(errs...)
}

func (cfg Config) colorPeriod() time.Duration {
	return time.Duration(cfg.ColorPeriod * float64(time.Second))
}

// LoadConfig decodes a TOML configuration from r over cfg's values. Keys missing
// from r keep the value they have in cfg. Unknown keys are an error.
func LoadConfig(r io.Reader, cfg Config) (Config, error) {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return cfg, fmt.Errorf("config %d:%d: %w", row, col, err)
		}
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}
