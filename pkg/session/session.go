// Package session implements the gradient edit session: the state machine
// that owns the dx/dy edit layers, dispatches pointer events to the brush
// engine, keeps channel composites current and issues reconstruction
// requests.
//
// # Lifecycle
//
//	Empty ─LoadImage→ Loaded ─BeginStroke→ Editing ─EndStroke→ Loaded
//	                  Loaded ─Reconstruct→ Reconstructing → Loaded
//
// ResetEdits returns both layers to neutral and keeps the image. Loading a new
// image destroys every layer. Edit layers are created lazily, when a channel
// tab is first activated or first committed.
//
// # Concurrency
//
// A Session is safe for concurrent use. State is guarded by a mutex; the
// network round trips of LoadImage and Reconstruct run outside it. At most one
// reconstruction is outstanding: a second call returns RECONSTRUCT_IN_FLIGHT,
// and layer mutations during the round trip return SESSION_BUSY.
//
// # Usage
//
//	sess := session.New(labClient, session.Config{Logger: logger})
//	if err := sess.LoadImage(ctx, imageID); err != nil {
//	    return err
//	}
//	sess.SetDisplayRect(rect)
//	sess.BeginStroke(p0, brush.Modifier{})
//	sess.ContinueStroke(p1, brush.Modifier{})
//	sess.EndStroke()
//	res, err := sess.Reconstruct(ctx)
package session

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/gradlab/pkg/brush"
	"github.com/matzehuels/gradlab/pkg/composite"
	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/integrations/lab"
	"github.com/matzehuels/gradlab/pkg/layer"
	"github.com/matzehuels/gradlab/pkg/observability"
	"github.com/matzehuels/gradlab/pkg/viewport"
)

// Service is the subset of the lab service a session talks to.
// *lab.Client implements it.
type Service interface {
	Upload(ctx context.Context, filename string, data []byte) (*lab.Upload, error)
	Gradients(ctx context.Context, imageID string, refresh bool) (*lab.Gradients, error)
	Reconstruct(ctx context.Context, req lab.ReconstructRequest) (*lab.Reconstruction, error)
	FetchImage(ctx context.Context, ref string) (image.Image, error)
}

// Config holds optional session settings. The zero value is usable.
type Config struct {
	// Logger receives debug output. Nil discards it.
	Logger *log.Logger

	// Renderer composites layers over channel backgrounds. Nil uses
	// composite.NewRenderer() (overlay blend).
	Renderer *composite.Renderer

	// Brush is the initial brush. The zero value means brush.DefaultSpec().
	Brush brush.Spec

	// Mode is sent with every reconstruction; "" means lab.ModeFull.
	Mode lab.Mode

	// Spacing, when positive, interpolates samples every Spacing buffer pixels
	// between consecutive pointer positions, making stroke intensity
	// independent of the pointer event rate. Zero applies one sample per
	// event.
	Spacing float64
}

// Session is one interactive gradient edit session.
type Session struct {
	svc      Service
	logger   *log.Logger
	renderer *composite.Renderer
	mode     lab.Mode
	spacing  float64

	mu        sync.Mutex
	state     State
	loadGen   uint64
	imageID   string
	width     int
	height    int
	gradients *lab.Gradients
	canvases  map[layer.Channel]*composite.Canvas
	layers    map[layer.Channel]*layer.EditLayer
	tab       layer.Channel
	brush     brush.Spec
	display   viewport.Rect
	stroke    *stroke
	inFlight  bool
	result    *Result
	lastErr   error
}

type stroke struct {
	channel layer.Channel
	last    viewport.Point
	hasLast bool
	samples int
	start   time.Time
}

// New returns an empty session backed by svc.
func New(svc Service, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if cfg.Renderer == nil {
		cfg.Renderer = composite.NewRenderer()
	}
	if cfg.Brush == (brush.Spec{}) {
		cfg.Brush = brush.DefaultSpec()
	}
	if cfg.Mode == "" {
		cfg.Mode = lab.ModeFull
	}
	return &Session{
		svc:      svc,
		logger:   cfg.Logger,
		renderer: cfg.Renderer,
		mode:     cfg.Mode,
		spacing:  cfg.Spacing,
		brush:    cfg.Brush,
		tab:      layer.DX,
		canvases: make(map[layer.Channel]*composite.Canvas),
		layers:   make(map[layer.Channel]*layer.EditLayer),
	}
}

// Upload sends an image to the service and loads it.
func (s *Session) Upload(ctx context.Context, filename string, data []byte) (*lab.Upload, error) {
	if err := s.checkMutable(); err != nil {
		return nil, err
	}
	up, err := s.svc.Upload(ctx, filename, data)
	if err != nil {
		s.setLastErr(err)
		return nil, err
	}
	if err := s.LoadImage(ctx, up.ImageID); err != nil {
		return nil, err
	}
	return up, nil
}

// LoadImage fetches the gradient descriptors and channel rasters for imageID
// and makes it the session image. On success every previous layer, committed
// edit and result is discarded and the dx tab is active. On failure the
// session keeps its prior state; there is no partial load.
//
// Concurrent loads resolve last-load-wins: a load that was overtaken by a
// newer one returns nil without touching the session, whether it succeeded
// or failed.
func (s *Session) LoadImage(ctx context.Context, imageID string) error {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()

	start := time.Now()
	loaded, err := s.fetch(ctx, imageID)
	observability.Edit().OnImageLoad(ctx, imageID, loaded.width(), loaded.height(), time.Since(start), err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.loadGen {
		if err != nil {
			s.logger.Debug("dropping superseded load failure", "image", imageID, "error", err)
			return nil
		}
		s.logger.Debug("dropping superseded load", "image", imageID)
		return nil
	}
	if err != nil {
		s.lastErr = err
		return err
	}
	if s.inFlight {
		return ErrBusy
	}

	s.imageID = imageID
	s.width, s.height = loaded.g.Width, loaded.g.Height
	s.gradients = loaded.g
	s.canvases = loaded.canvases
	s.layers = make(map[layer.Channel]*layer.EditLayer)
	s.stroke = nil
	s.result = nil
	s.lastErr = nil
	s.state = StateLoaded
	s.logger.Debug("image loaded", "image", imageID, "width", s.width, "height", s.height)
	return s.activateLocked(layer.DX)
}

type loadResult struct {
	g        *lab.Gradients
	canvases map[layer.Channel]*composite.Canvas
}

func (r *loadResult) width() int {
	if r == nil || r.g == nil {
		return 0
	}
	return r.g.Width
}

func (r *loadResult) height() int {
	if r == nil || r.g == nil {
		return 0
	}
	return r.g.Height
}

// fetch loads the descriptors, then all channel rasters concurrently.
func (s *Session) fetch(ctx context.Context, imageID string) (*loadResult, error) {
	if err := errors.ValidateImageID(imageID); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "load image")
	}
	g, err := s.svc.Gradients(ctx, imageID, false)
	if err != nil {
		return nil, err
	}
	if g.Width <= 0 || g.Height <= 0 {
		return nil, errors.New(errors.ErrCodeFetchFailed, "gradients for %s report size %dx%d", imageID, g.Width, g.Height)
	}

	channels := []layer.Channel{layer.DX, layer.DY}
	if g.MagnitudeURL != "" {
		channels = append(channels, layer.Magnitude)
	}

	canvases := make(map[layer.Channel]*composite.Canvas, len(channels))
	for _, ch := range channels {
		canvases[ch] = composite.NewCanvas(s.renderer, g.Width, g.Height)
	}

	eg, ectx := errgroup.WithContext(ctx)
	for _, ch := range channels {
		ch := ch
		c := canvases[ch]
		ref := g.URL(ch)
		token := c.Begin()
		eg.Go(func() error {
			img, err := s.svc.FetchImage(ectx, ref)
			if err != nil {
				return errors.Wrap(errors.ErrCodeFetchFailed, err, "%s raster", ch)
			}
			if _, err := c.SetBackground(token, img); err != nil {
				return errors.Wrap(errors.ErrCodeFetchFailed, err, "%s raster", ch)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return &loadResult{g: g}, err
	}
	return &loadResult{g: g, canvases: canvases}, nil
}

// ActivateTab makes tab the visible channel. Activating an editable channel
// for the first time creates its neutral edit layer.
func (s *Session) ActivateTab(tab layer.Channel) error {
	if tab < layer.DX || tab > layer.Magnitude {
		return errors.New(errors.ErrCodeInvalidInput, "unknown tab %d", int(tab))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEmpty {
		return ErrNoImage
	}
	if s.stroke != nil {
		return ErrStrokeActive
	}
	return s.activateLocked(tab)
}

func (s *Session) activateLocked(tab layer.Channel) error {
	s.tab = tab
	if !tab.Editable() {
		return nil
	}
	_, err := s.layerLocked(tab)
	return err
}

// layerLocked returns the edit layer for ch, creating and attaching it on
// first use.
func (s *Session) layerLocked(ch layer.Channel) (*layer.EditLayer, error) {
	if l, ok := s.layers[ch]; ok {
		return l, nil
	}
	l, err := layer.New(s.width, s.height)
	if err != nil {
		return nil, err
	}
	if c, ok := s.canvases[ch]; ok {
		if err := c.Attach(l); err != nil {
			return nil, err
		}
	}
	s.layers[ch] = l
	return l, nil
}

// SetEditMode selects the brush tool.
func (s *Session) SetEditMode(tool brush.Tool) error {
	if tool < brush.ToolDX || tool > brush.ToolSmooth {
		return errors.New(errors.ErrCodeUnsupportedTool, "unknown tool %d", int(tool))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brush.Tool = tool
	return nil
}

// SetBrushSize sets the brush radius in buffer pixels.
func (s *Session) SetBrushSize(radius int) error {
	if err := brush.ValidateRadius(radius); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brush.Radius = radius
	return nil
}

// SetBrushStrength sets the brush strength.
func (s *Session) SetBrushStrength(strength float64) error {
	if err := brush.ValidateStrength(strength); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brush.Strength = strength
	return nil
}

// Brush returns the current brush.
func (s *Session) Brush() brush.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brush
}

// SetDisplayRect records the rendered bounding box of the buffer on screen.
// An empty rectangle means layout has not been measured; pointer samples are
// then dropped silently.
func (s *Session) SetDisplayRect(r viewport.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = r
}

// FitDisplay lays the image out centred in a containerW×containerH viewport,
// never upscaled, records the resulting rectangle and returns it.
func (s *Session) FitDisplay(containerW, containerH float64) (viewport.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEmpty {
		return viewport.Rect{}, ErrNoImage
	}
	t := viewport.FitScale(containerW, containerH, s.width, s.height)
	s.display = t.CenteredRect(containerW, containerH, s.width, s.height)
	return s.display, nil
}

// Frame returns a copy of the composite for tab, or false if the tab has no
// canvas yet.
func (s *Session) Frame(tab layer.Channel) (*image.Gray, bool) {
	s.mu.Lock()
	c, ok := s.canvases[tab]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return c.Frame()
}

// Layer returns a copy of the edit layer for ch, or false if it was never
// created.
func (s *Session) Layer(ch layer.Channel) (*layer.EditLayer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layers[ch]
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

// Gradients returns the descriptors of the loaded image, or nil.
func (s *Session) Gradients() *lab.Gradients {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gradients == nil {
		return nil
	}
	g := *s.gradients
	return &g
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a consistent view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:    s.state,
		ImageID:  s.imageID,
		Width:    s.width,
		Height:   s.height,
		Tab:      s.tab,
		Tool:     s.brush.Tool,
		Radius:   s.brush.Radius,
		Strength: s.brush.Strength,
		Display:  s.display,
		EditedDx: s.committedLocked(layer.DX) != "",
		EditedDy: s.committedLocked(layer.DY) != "",
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	if s.lastErr != nil {
		snap.LastError = errors.UserMessage(s.lastErr)
	}
	return snap
}

func (s *Session) committedLocked(ch layer.Channel) string {
	l, ok := s.layers[ch]
	if !ok {
		return ""
	}
	enc, _ := l.Encoded()
	return enc
}

func (s *Session) checkMutable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrBusy
	}
	return nil
}

func (s *Session) setLastErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
