package composite

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/layer"
)

// ErrNoBackground is returned when rendering without a background image.
var ErrNoBackground = errors.New(errors.ErrCodeInvalidState, "background not loaded")

// Renderer produces display frames from a background and an edit layer.
type Renderer struct {
	blend  BlendFunc
	scaler draw.Interpolator
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBlend sets the blend function. nil keeps the default [Overlay].
func WithBlend(fn BlendFunc) Option {
	return func(r *Renderer) {
		if fn != nil {
			r.blend = fn
		}
	}
}

// WithScaler sets the interpolator used when the background resolution
// differs from the layer.
func WithScaler(s draw.Interpolator) Option {
	return func(r *Renderer) {
		if s != nil {
			r.scaler = s
		}
	}
}

// NewRenderer returns a Renderer using Overlay and bilinear scaling unless
// overridden.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{blend: Overlay, scaler: draw.BiLinear}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prepare converts bg to an 8-bit grayscale image of exactly w×h. A
// background that already matches is copied; others are rescaled.
func (r *Renderer) Prepare(bg image.Image, w, h int) (*image.Gray, error) {
	if bg == nil {
		return nil, ErrNoBackground
	}
	if w <= 0 || h <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid frame size %dx%d", w, h)
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	sb := bg.Bounds()
	if sb.Dx() == w && sb.Dy() == h {
		draw.Draw(dst, dst.Bounds(), bg, sb.Min, draw.Src)
	} else {
		r.scaler.Scale(dst, dst.Bounds(), bg, sb, draw.Src, nil)
	}
	return dst, nil
}

// Render draws bg at the layer's resolution and blends the layer on top. A
// nil layer yields the prepared background alone, which is how view-only
// channels are displayed.
func (r *Renderer) Render(bg image.Image, l *layer.EditLayer) (*image.Gray, error) {
	if l == nil {
		if bg == nil {
			return nil, ErrNoBackground
		}
		b := bg.Bounds()
		return r.Prepare(bg, b.Dx(), b.Dy())
	}
	base, err := r.Prepare(bg, l.Width(), l.Height())
	if err != nil {
		return nil, err
	}
	r.blendInto(base, base, l)
	return base, nil
}

// blendInto writes Blend(bg, layer) into dst. dst and bg may alias.
func (r *Renderer) blendInto(dst, bg *image.Gray, l *layer.EditLayer) {
	src := l.Image()
	w, h := l.Width(), l.Height()
	for y := 0; y < h; y++ {
		bo := y * bg.Stride
		do := y * dst.Stride
		so := y * src.Stride
		for x := 0; x < w; x++ {
			dst.Pix[do+x] = r.blend(bg.Pix[bo+x], src.Pix[so+x])
		}
	}
}
