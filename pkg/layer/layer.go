// Package layer provides the per-channel edit layers of a gradient session.
//
// An [EditLayer] is a single-channel 8-bit buffer holding a signed delta d in
// [-128, 127] stored as d+128. A fresh layer is uniformly [Neutral] (zero delta).
// Layers are mutated in place by the brush engine and encoded only when a
// stroke is committed, so encoding cost is paid once per stroke.
package layer

import (
	"fmt"
	"image"

	"github.com/matzehuels/gradlab/pkg/errors"
)

// Neutral is the buffer value that encodes a zero delta.
const Neutral uint8 = 128

// Channel identifies a derivative direction, or the view-only magnitude tab.
type Channel int

const (
	DX        Channel = iota // horizontal derivative
	DY                       // vertical derivative
	Magnitude                // gradient magnitude; view only, never edited
)

// Channels lists the editable channels in request order.
var Channels = []Channel{DX, DY}

func (c Channel) String() string {
	switch c {
	case DX:
		return "dx"
	case DY:
		return "dy"
	case Magnitude:
		return "magnitude"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// Editable reports whether the channel owns an edit layer.
func (c Channel) Editable() bool {
	return c == DX || c == DY
}

// ParseChannel converts "dx", "dy" or "magnitude" to a Channel.
func ParseChannel(s string) (Channel, error) {
	switch s {
	case "dx":
		return DX, nil
	case "dy":
		return DY, nil
	case "magnitude", "mag":
		return Magnitude, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidInput, "unknown channel %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Channel) MarshalText() ([]byte, error) {
	if c < DX || c > Magnitude {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown channel %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Channel) UnmarshalText(b []byte) error {
	v, err := ParseChannel(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// EditLayer is a width×height buffer of signed deltas around [Neutral].
//
// EditLayer is not safe for concurrent use; the owning session serialises
// access to it.
type EditLayer struct {
	img     *image.Gray
	encoded string // data URL of the last commit, "" if none
}

// New creates a uniformly neutral layer of the given size.
func New(width, height int) (*EditLayer, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid layer size %dx%d", width, height)
	}
	l := &EditLayer{img: image.NewGray(image.Rect(0, 0, width, height))}
	l.Fill(Neutral)
	return l, nil
}

// FromGray wraps a copy of img as an edit layer, normalising its origin to (0,0).
func FromGray(img *image.Gray) *EditLayer {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], src[:b.Dx()])
	}
	return &EditLayer{img: dst}
}

// Width returns the layer width in pixels.
func (l *EditLayer) Width() int { return l.img.Rect.Dx() }

// Height returns the layer height in pixels.
func (l *EditLayer) Height() int { return l.img.Rect.Dy() }

// Bounds returns the layer rectangle, always anchored at (0,0).
func (l *EditLayer) Bounds() image.Rectangle { return l.img.Rect }

// Image exposes the underlying buffer for rendering and encoding.
// Callers must not retain it across a session reset.
func (l *EditLayer) Image() *image.Gray { return l.img }

// In reports whether (x, y) lies inside the layer.
func (l *EditLayer) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < l.Width() && y < l.Height()
}

// At returns the raw buffer value at (x, y). Out-of-range reads return Neutral.
func (l *EditLayer) At(x, y int) uint8 {
	if !l.In(x, y) {
		return Neutral
	}
	return l.img.Pix[y*l.img.Stride+x]
}

// Set stores a raw buffer value at (x, y). Out-of-range writes are ignored.
func (l *EditLayer) Set(x, y int, v uint8) {
	if !l.In(x, y) {
		return
	}
	l.img.Pix[y*l.img.Stride+x] = v
}

// Delta returns the signed delta at (x, y).
func (l *EditLayer) Delta(x, y int) int {
	return int(l.At(x, y)) - int(Neutral)
}

// Fill sets every pixel to v.
func (l *EditLayer) Fill(v uint8) {
	for i := range l.img.Pix {
		l.img.Pix[i] = v
	}
}

// Reset returns the layer to the neutral state and discards its encoding.
func (l *EditLayer) Reset() {
	l.Fill(Neutral)
	l.encoded = ""
}

// IsNeutral reports whether every pixel holds a zero delta.
func (l *EditLayer) IsNeutral() bool {
	for _, v := range l.img.Pix {
		if v != Neutral {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the layer, including its cached encoding.
func (l *EditLayer) Clone() *EditLayer {
	c := FromGray(l.img)
	c.encoded = l.encoded
	return c
}

// Equal reports whether two layers have identical size and pixels.
func (l *EditLayer) Equal(o *EditLayer) bool {
	if l.Width() != o.Width() || l.Height() != o.Height() {
		return false
	}
	for y := 0; y < l.Height(); y++ {
		for x := 0; x < l.Width(); x++ {
			if l.At(x, y) != o.At(x, y) {
				return false
			}
		}
	}
	return true
}

// Commit encodes the current pixels and caches the result as the layer's
// encoded form. It returns the data URL.
func (l *EditLayer) Commit() (string, error) {
	data, err := Encode(l)
	if err != nil {
		return "", err
	}
	l.encoded = DataURL(data)
	return l.encoded, nil
}

// Encoded returns the data URL cached by the last [EditLayer.Commit].
func (l *EditLayer) Encoded() (string, bool) {
	return l.encoded, l.encoded != ""
}
