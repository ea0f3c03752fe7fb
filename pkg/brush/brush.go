// Package brush rasterizes brush samples onto edit layers.
//
// A sample touches every pixel whose centre lies within the brush radius of
// the sample point. Additive tools blend white (or black when inverted) at
// opacity strength*[OpacityScale]; overlapping samples within one stroke
// compound, so the effect of a stroke depends on how many pointer samples it
// produced. [Segment] offers spacing-based interpolation for callers that want
// a path-length-independent stroke instead.
package brush

import (
	"math"

	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/layer"
	"github.com/matzehuels/gradlab/pkg/viewport"
)

// Brush limits, matching the lab's controls.
const (
	MinRadius     = 1
	MaxRadius     = 100
	DefaultRadius = 20

	MinStrength     = 0.1
	MaxStrength     = 1.0
	DefaultStrength = 0.5

	// OpacityScale converts strength into per-sample blend opacity.
	OpacityScale = 0.1
)

const strengthEps = 1e-9

// Spec describes one brush configuration.
type Spec struct {
	Tool     Tool
	Radius   int
	Strength float64
}

// DefaultSpec returns the lab's initial brush: dx, radius 20, strength 0.5.
func DefaultSpec() Spec {
	return Spec{Tool: ToolDX, Radius: DefaultRadius, Strength: DefaultStrength}
}

// Validate checks radius and strength bounds and the tool value.
func (s Spec) Validate() error {
	if s.Tool < ToolDX || s.Tool > ToolSmooth {
		return errors.New(errors.ErrCodeUnsupportedTool, "unknown tool %d", int(s.Tool))
	}
	if err := ValidateRadius(s.Radius); err != nil {
		return err
	}
	return ValidateStrength(s.Strength)
}

// ValidateRadius checks that r lies in [MinRadius, MaxRadius].
func ValidateRadius(r int) error {
	if r < MinRadius || r > MaxRadius {
		return errors.New(errors.ErrCodeInvalidInput, "brush radius %d outside [%d, %d]", r, MinRadius, MaxRadius)
	}
	return nil
}

// ValidateStrength checks that s lies in [MinStrength, MaxStrength].
func ValidateStrength(s float64) error {
	if math.IsNaN(s) || s < MinStrength-strengthEps || s > MaxStrength+strengthEps {
		return errors.New(errors.ErrCodeInvalidInput, "brush strength %g outside [%g, %g]", s, MinStrength, MaxStrength)
	}
	return nil
}

// Opacity is the per-sample blend opacity of additive tools.
func (s Spec) Opacity() float64 {
	return s.Strength * OpacityScale
}

// Modifier carries input modifiers held during a sample.
type Modifier struct {
	Invert bool // paint toward black instead of white (additive tools only)
}

// InDisc reports whether pixel (x, y) is covered by a brush of the given
// radius centred at c. Pixel centres sit at half-integer coordinates.
func InDisc(x, y int, c viewport.Point, radius int) bool {
	dx := float64(x) + 0.5 - c.X
	dy := float64(y) + 0.5 - c.Y
	r := float64(radius)
	return dx*dx+dy*dy <= r*r
}

// Apply paints one brush sample at center (buffer space) onto l.
//
// Per tool:
//   - dx, dy: blend toward 255, or toward 0 with mod.Invert, at spec.Opacity()
//   - erase: overwrite with exactly [layer.Neutral]
//   - sharpen: blend toward 255 at spec.Opacity(); mod.Invert is ignored
//   - smooth: move toward the 3×3 box mean of the layer at spec.Strength
//
// Apply does not check channel gating; see [CanEdit].
func Apply(l *layer.EditLayer, center viewport.Point, spec Spec, mod Modifier) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	switch spec.Tool {
	case ToolDX, ToolDY:
		target := uint8(255)
		if mod.Invert {
			target = 0
		}
		paint(l, center, spec.Radius, blendToward(target, spec.Opacity()))
	case ToolSharpen:
		paint(l, center, spec.Radius, blendToward(255, spec.Opacity()))
	case ToolErase:
		paint(l, center, spec.Radius, func(uint8) uint8 { return layer.Neutral })
	case ToolSmooth:
		smooth(l, center, spec.Radius, spec.Strength)
	default:
		return errors.New(errors.ErrCodeUnsupportedTool, "tool %s has no brush behavior", spec.Tool)
	}
	return nil
}

// blendToward returns a source-over blend of a constant color at opacity a.
func blendToward(target uint8, a float64) func(uint8) uint8 {
	t := float64(target)
	return func(v uint8) uint8 {
		return clamp8(float64(v)*(1-a) + t*a)
	}
}

// discBounds returns the pixel range [x0,x1)×[y0,y1) that may intersect the
// disc, clipped to the layer.
func discBounds(l *layer.EditLayer, c viewport.Point, radius int) (x0, y0, x1, y1 int) {
	r := float64(radius)
	x0 = max(0, int(math.Floor(c.X-r)))
	y0 = max(0, int(math.Floor(c.Y-r)))
	x1 = min(l.Width(), int(math.Ceil(c.X+r))+1)
	y1 = min(l.Height(), int(math.Ceil(c.Y+r))+1)
	return
}

func paint(l *layer.EditLayer, c viewport.Point, radius int, fn func(uint8) uint8) {
	x0, y0, x1, y1 := discBounds(l, c, radius)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if InDisc(x, y, c, radius) {
				l.Set(x, y, fn(l.At(x, y)))
			}
		}
	}
}

// smooth computes every covered pixel from the unmodified layer before writing,
// so the result does not depend on scan order.
func smooth(l *layer.EditLayer, c viewport.Point, radius int, strength float64) {
	x0, y0, x1, y1 := discBounds(l, c, radius)
	if x0 >= x1 || y0 >= y1 {
		return
	}
	w := x1 - x0
	out := make([]int16, w*(y1-y0))
	for i := range out {
		out[i] = -1
	}

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if !InDisc(x, y, c, radius) {
				continue
			}
			sum, n := 0, 0
			for ny := y - 1; ny <= y+1; ny++ {
				for nx := x - 1; nx <= x+1; nx++ {
					if l.In(nx, ny) {
						sum += int(l.At(nx, ny))
						n++
					}
				}
			}
			v := float64(l.At(x, y))
			mean := float64(sum) / float64(n)
			out[(y-y0)*w+(x-x0)] = int16(clamp8(v + (mean-v)*strength))
		}
	}

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if v := out[(y-y0)*w+(x-x0)]; v >= 0 {
				l.Set(x, y, uint8(v))
			}
		}
	}
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

// Segment returns evenly spaced sample points from (but excluding) from up to
// and including to, no further apart than spacing. A non-positive spacing
// returns just to, which reproduces per-event sampling.
func Segment(from, to viewport.Point, spacing float64) []viewport.Point {
	if spacing <= 0 {
		return []viewport.Point{to}
	}
	dist := math.Hypot(to.X-from.X, to.Y-from.Y)
	n := max(1, int(math.Ceil(dist/spacing)))
	pts := make([]viewport.Point, 0, n)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		pts = append(pts, viewport.Point{
			X: from.X + (to.X-from.X)*t,
			Y: from.Y + (to.Y-from.Y)*t,
		})
	}
	return pts
}
