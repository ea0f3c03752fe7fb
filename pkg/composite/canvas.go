package composite

import (
	"image"
	"sync"

	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/layer"
)

// Canvas pairs one channel background with (at most) one edit layer and keeps
// the rendered frame current.
//
// Background loads are asynchronous. Each load calls [Canvas.Begin] to obtain
// a generation token and hands it back to [Canvas.SetBackground] on
// completion; only the newest generation is applied, so a slow stale load can
// never overwrite a newer image.
type Canvas struct {
	mu       sync.Mutex
	renderer *Renderer
	width    int
	height   int

	gen   uint64
	bg    *image.Gray // prepared at width×height
	layer *layer.EditLayer
	frame *image.Gray
}

// NewCanvas returns an empty canvas for a width×height image.
func NewCanvas(r *Renderer, width, height int) *Canvas {
	if r == nil {
		r = NewRenderer()
	}
	return &Canvas{renderer: r, width: width, height: height}
}

// Begin starts a new background load and returns its generation token.
// Any previously issued token becomes stale.
func (c *Canvas) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.gen
}

// SetBackground installs img if gen is the newest token and redraws. It
// reports whether the image was applied; stale loads are dropped silently.
func (c *Canvas) SetBackground(gen uint64, img image.Image) (bool, error) {
	prepared, err := c.renderer.Prepare(img, c.width, c.height)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false, nil
	}
	c.bg = prepared
	return true, c.redrawLocked()
}

// Attach sets the edit layer shown on top of the background and redraws.
// nil detaches the current layer.
func (c *Canvas) Attach(l *layer.EditLayer) error {
	if l != nil && (l.Width() != c.width || l.Height() != c.height) {
		return errors.New(errors.ErrCodeInvalidInput,
			"layer is %dx%d, canvas is %dx%d", l.Width(), l.Height(), c.width, c.height)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.layer = l
	return c.redrawLocked()
}

// Redraw re-renders the frame. It is a no-op until a background is present.
func (c *Canvas) Redraw() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redrawLocked()
}

func (c *Canvas) redrawLocked() error {
	if c.bg == nil {
		c.frame = nil
		return nil
	}
	if c.frame == nil {
		c.frame = image.NewGray(c.bg.Rect)
	}
	if c.layer == nil {
		copy(c.frame.Pix, c.bg.Pix)
		return nil
	}
	c.renderer.blendInto(c.frame, c.bg, c.layer)
	return nil
}

// Ready reports whether a background has been applied.
func (c *Canvas) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bg != nil
}

// Frame returns a copy of the current frame, or false before the background
// has loaded.
func (c *Canvas) Frame() (*image.Gray, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame == nil {
		return nil, false
	}
	out := image.NewGray(c.frame.Rect)
	copy(out.Pix, c.frame.Pix)
	return out, true
}
