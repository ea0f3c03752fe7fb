package session

import (
	"context"
	"time"

	"github.com/matzehuels/gradlab/pkg/brush"
	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/integrations/lab"
	"github.com/matzehuels/gradlab/pkg/layer"
	"github.com/matzehuels/gradlab/pkg/observability"
	"github.com/matzehuels/gradlab/pkg/viewport"
)

// BeginStroke starts a stroke at display-space point p on the active tab and
// applies the first sample.
//
// A stroke whose tool cannot edit the active tab (see [brush.CanEdit]) is a
// no-op: no layer changes and the session stays Loaded. If the display rect
// has not been measured the sample is dropped silently.
func (s *Session) BeginStroke(p viewport.Point, mod brush.Modifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateEmpty:
		return ErrNoImage
	case s.inFlight:
		return ErrBusy
	case s.stroke != nil:
		return ErrStrokeActive
	}
	if !brush.CanEdit(s.tab, s.brush.Tool) {
		s.logger.Debug("stroke gated", "tab", s.tab, "tool", s.brush.Tool)
		return nil
	}

	s.stroke = &stroke{channel: s.tab, start: time.Now()}
	s.state = StateEditing
	return s.sampleLocked(p, mod)
}

// ContinueStroke applies a sample at display-space point p. Without an active
// stroke it does nothing. Samples are applied strictly in call order.
func (s *Session) ContinueStroke(p viewport.Point, mod brush.Modifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stroke == nil {
		return nil
	}
	return s.sampleLocked(p, mod)
}

func (s *Session) sampleLocked(p viewport.Point, mod brush.Modifier) error {
	bp, err := viewport.ToBufferSpace(p, s.display, s.width, s.height)
	if errors.Is(err, errors.ErrCodeLayoutNotReady) {
		return nil
	}
	if err != nil {
		return err
	}

	l, err := s.layerLocked(s.stroke.channel)
	if err != nil {
		return err
	}

	points := []viewport.Point{bp}
	if s.spacing > 0 && s.stroke.hasLast {
		points = brush.Segment(s.stroke.last, bp, s.spacing)
	}
	for _, c := range points {
		if err := brush.Apply(l, c, s.brush, mod); err != nil {
			return err
		}
		s.stroke.samples++
	}
	s.stroke.last, s.stroke.hasLast = bp, true

	if c, ok := s.canvases[s.stroke.channel]; ok {
		return c.Redraw()
	}
	return nil
}

// EndStroke finishes the active stroke and commits its channel. Without an
// active stroke it does nothing.
func (s *Session) EndStroke(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stroke
	if st == nil {
		return nil
	}
	s.stroke = nil
	s.state = StateLoaded
	if err := s.commitLocked(st.channel); err != nil {
		return err
	}
	observability.Edit().OnStrokeCommit(ctx, st.channel.String(), st.samples, time.Since(st.start))
	return nil
}

// CommitStroke encodes the layer for ch and stores the encoding as the
// channel's current edit. The layer is created if the channel was never
// activated.
func (s *Session) CommitStroke(ch layer.Channel) error {
	if !ch.Editable() {
		return errors.New(errors.ErrCodeInvalidInput, "channel %s has no edit layer", ch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateEmpty:
		return ErrNoImage
	case s.inFlight:
		return ErrBusy
	}
	return s.commitLocked(ch)
}

func (s *Session) commitLocked(ch layer.Channel) error {
	l, err := s.layerLocked(ch)
	if err != nil {
		return err
	}
	if _, err := l.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode %s layer", ch)
	}
	s.logger.Debug("committed", "channel", ch)
	return nil
}

// ResetEdits returns every edit layer to neutral, discards committed
// encodings and the reconstruction result, and cancels any active stroke.
// The image stays loaded.
func (s *Session) ResetEdits() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrBusy
	}
	if s.state == StateEmpty {
		return nil
	}
	for _, l := range s.layers {
		l.Reset()
	}
	for _, c := range s.canvases {
		if err := c.Redraw(); err != nil {
			return err
		}
	}
	s.stroke = nil
	s.result = nil
	s.state = StateLoaded
	return nil
}

// Reconstruct submits the committed dx/dy encodings to the solver. A channel
// without a committed edit is omitted from the request, so the solver uses its
// unedited derivative.
//
// Only one request is ever outstanding: a call while another is pending
// returns [ErrInFlight] without contacting the service. On failure the session
// returns to Loaded and keeps its previous result.
func (s *Session) Reconstruct(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	switch {
	case s.state == StateEmpty:
		s.mu.Unlock()
		return nil, ErrNoImage
	case s.inFlight:
		s.mu.Unlock()
		return nil, ErrInFlight
	case s.stroke != nil:
		s.mu.Unlock()
		return nil, ErrStrokeActive
	}
	req := lab.ReconstructRequest{
		ImageID:  s.imageID,
		Mode:     s.mode,
		EditedDx: layer.StripEnvelope(s.committedLocked(layer.DX)),
		EditedDy: layer.StripEnvelope(s.committedLocked(layer.DY)),
	}
	s.inFlight = true
	s.state = StateReconstructing
	s.mu.Unlock()

	hooks := observability.Edit()
	hooks.OnReconstructStart(ctx, req.ImageID, req.EditedDx != "", req.EditedDy != "")
	start := time.Now()
	out, err := s.svc.Reconstruct(ctx, req)
	hooks.OnReconstructComplete(ctx, req.ImageID, time.Since(start), err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.state = StateLoaded
	if err != nil {
		s.lastErr = err
		return nil, err
	}
	s.result = &Result{ImageID: req.ImageID, URL: out.ReconstructedURL}
	s.lastErr = nil
	s.logger.Debug("reconstructed", "image", req.ImageID, "url", out.ReconstructedURL)
	r := *s.result
	return &r, nil
}
