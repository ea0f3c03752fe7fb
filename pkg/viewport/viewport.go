// Package viewport maps between display space and pixel-buffer space.
//
// An edit layer is shown scaled to fit its container. Pointer events arrive in
// display coordinates and must be converted back to buffer coordinates before
// a brush touches the layer. The conversion uses only the rendered bounding
// box of the buffer, so brush radius and strength stay in buffer pixels no
// matter how far the view is zoomed out.
package viewport

import (
	"math"

	"github.com/matzehuels/gradlab/pkg/errors"
)

// ErrLayoutNotReady is returned when the display rectangle has not been
// measured yet (zero width or height). Callers should drop the pointer event
// silently; the condition resolves itself once layout runs.
var ErrLayoutNotReady = errors.New(errors.ErrCodeLayoutNotReady, "display rectangle not measured")

// Point is a 2D coordinate in either display or buffer space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in display space.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the rectangle has no measurable area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0 || math.IsNaN(r.Width) || math.IsNaN(r.Height)
}

// Contains reports whether p lies inside r (right and bottom edges excluded).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Left+r.Width && p.Y >= r.Top && p.Y < r.Top+r.Height
}

// ToBufferSpace converts a pointer position in display space to buffer space.
//
// display must be the rendered bounding box of the buffer after scaling, and
// bufferW/bufferH the dimensions of the edit layer. The mapping is the affine
// inverse of the display scaling:
//
//	bx = (px - left) * bufferW / width
//	by = (py - top)  * bufferH / height
//
// Points outside the rectangle map outside the buffer; the brush clips them.
// Returns [ErrLayoutNotReady] if the rectangle is empty.
func ToBufferSpace(p Point, display Rect, bufferW, bufferH int) (Point, error) {
	if display.Empty() {
		return Point{}, ErrLayoutNotReady
	}
	return Point{
		X: (p.X - display.Left) * (float64(bufferW) / display.Width),
		Y: (p.Y - display.Top) * (float64(bufferH) / display.Height),
	}, nil
}

// Transform is the uniform fit-to-container scale applied to a buffer.
type Transform struct {
	Scale float64 // in (0, 1]; the buffer is never upscaled
}

// FitScale returns the transform that fits an image of imageW×imageH into a
// container of containerW×containerH without upscaling:
//
//	scale = min(containerW/imageW, containerH/imageH, 1)
//
// A zero-sized container or image yields a zero scale, which produces an empty
// display rectangle and therefore [ErrLayoutNotReady] on mapping.
func FitScale(containerW, containerH float64, imageW, imageH int) Transform {
	if containerW <= 0 || containerH <= 0 || imageW <= 0 || imageH <= 0 {
		return Transform{}
	}
	s := math.Min(containerW/float64(imageW), containerH/float64(imageH))
	return Transform{Scale: math.Min(s, 1)}
}

// DisplayRect returns the rectangle a bufferW×bufferH buffer occupies on screen
// when drawn at origin with this transform.
func (t Transform) DisplayRect(origin Point, bufferW, bufferH int) Rect {
	return Rect{
		Left:   origin.X,
		Top:    origin.Y,
		Width:  float64(bufferW) * t.Scale,
		Height: float64(bufferH) * t.Scale,
	}
}

// CenteredRect returns the display rectangle of a buffer centred inside a
// container, the way the lab canvas lays out its image.
func (t Transform) CenteredRect(containerW, containerH float64, bufferW, bufferH int) Rect {
	w := float64(bufferW) * t.Scale
	h := float64(bufferH) * t.Scale
	return Rect{
		Left:   (containerW - w) / 2,
		Top:    (containerH - h) / 2,
		Width:  w,
		Height: h,
	}
}

// ToDisplay maps a buffer point into the display rectangle; it is the inverse
// of [ToBufferSpace] for the same rectangle and buffer size.
func ToDisplay(p Point, display Rect, bufferW, bufferH int) (Point, error) {
	if display.Empty() || bufferW <= 0 || bufferH <= 0 {
		return Point{}, ErrLayoutNotReady
	}
	return Point{
		X: display.Left + p.X*(display.Width/float64(bufferW)),
		Y: display.Top + p.Y*(display.Height/float64(bufferH)),
	}, nil
}
