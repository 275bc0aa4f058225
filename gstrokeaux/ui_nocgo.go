//go:build tinygo || !cgo

package gstrokeaux

import (
	"github.com/soypat/gstroke"
	"github.com/soypat/gstroke/gleval"
)

func ui(cfg gstroke.Config, uiCfg UIConfig) error {
	return gleval.ErrNoCGO
}
