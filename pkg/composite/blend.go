// Package composite combines a background channel image with an edit layer
// into a display frame.
//
// The blend rule is pluggable. The default, [Overlay], is a contrast-style
// approximation of "background + delta" that treats the neutral layer value
// 128 as its identity; it gives plausible visual feedback but is not a
// numerically exact preview of the reconstruction. [Additive] computes the
// exact clamped sum.
package composite

import (
	"fmt"
	"math"

	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/layer"
)

// BlendFunc maps a background sample and an edit-layer sample to an output
// sample. Implementations must return bg unchanged when delta is
// [layer.Neutral].
type BlendFunc func(bg, delta uint8) uint8

// Mode names a built-in blend rule.
type Mode int

const (
	ModeOverlay Mode = iota
	ModeAdditive
	ModeNormal
)

func (m Mode) String() string {
	switch m {
	case ModeOverlay:
		return "overlay"
	case ModeAdditive:
		return "additive"
	case ModeNormal:
		return "normal"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Func returns the blend function for m.
func (m Mode) Func() BlendFunc {
	switch m {
	case ModeAdditive:
		return Additive
	case ModeNormal:
		return Normal
	default:
		return Overlay
	}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{ModeOverlay, ModeAdditive, ModeNormal} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown blend mode %q", s)
}

// Overlay is the standard overlay blend with the layer as the top sample.
// The layer is normalized by 256 so that 128 maps to exactly 0.5, which makes
// the neutral value an exact identity for every background.
func Overlay(bg, delta uint8) uint8 {
	b := float64(bg) / 255
	s := float64(delta) / 256
	var out float64
	if b < 0.5 {
		out = 2 * b * s
	} else {
		out = 1 - 2*(1-b)*(1-s)
	}
	return clamp8(out * 255)
}

// Additive returns clamp(bg + delta - 128).
func Additive(bg, delta uint8) uint8 {
	v := int(bg) + int(delta) - int(layer.Neutral)
	return uint8(min(255, max(0, v)))
}

// Normal shows the raw layer and ignores the background. It is not an
// identity at 128 and exists for inspecting the delta buffer itself.
func Normal(_, delta uint8) uint8 {
	return delta
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
