// Package script replays stroke scripts against an edit session.
//
// A script is a TOML file describing the viewport the image is laid out in
// and a sequence of strokes. Each stroke is replayed through the same pointer
// pipeline an interactive client uses: display-space points are mapped to
// buffer space, tool gating applies, and the stroke is committed on release.
//
//	[container]
//	width = 800
//	height = 600
//
//	[[stroke]]
//	tab = "dx"
//	tool = "dx"
//	radius = 10
//	strength = 0.5
//	points = [[400, 300], [420, 300], [440, 305]]
//
//	[[stroke]]
//	tab = "dy"
//	tool = "erase"
//	space = "buffer"
//	points = [[50, 25]]
package script

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/gradlab/pkg/brush"
	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/layer"
	"github.com/matzehuels/gradlab/pkg/session"
	"github.com/matzehuels/gradlab/pkg/viewport"
)

// Coordinate spaces for stroke points.
const (
	SpaceDisplay = "display"
	SpaceBuffer  = "buffer"
)

// Script is a parsed stroke script.
type Script struct {
	Container Container `toml:"container"`
	Mode      string    `toml:"mode"` // optional reconstruction mode override
	Strokes   []Stroke  `toml:"stroke"`
}

// Container is the viewport size the image is fitted into.
type Container struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// Stroke is one pointer-down … pointer-up sequence.
type Stroke struct {
	Tab      layer.Channel `toml:"tab"`
	Tool     brush.Tool    `toml:"tool"`
	Radius   int           `toml:"radius"`   // 0 keeps the current radius
	Strength float64       `toml:"strength"` // 0 keeps the current strength
	Invert   bool          `toml:"invert"`
	Space    string        `toml:"space"` // display (default) or buffer
	Points   [][]float64   `toml:"points"`
}

// Report summarises a replay.
type Report struct {
	Strokes int
	Points  int
	Display viewport.Rect
}

// Load reads and validates a script file.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open script")
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a script.
func Parse(r io.Reader) (*Script, error) {
	var s Script
	md, err := toml.NewDecoder(r).Decode(&s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse script")
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown script key %q", keys[0].String())
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks every stroke before anything is replayed, so a bad script
// never leaves a half-applied edit.
func (s *Script) Validate() error {
	if s.Container.Width < 0 || s.Container.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "container size must not be negative")
	}
	for i, st := range s.Strokes {
		if len(st.Points) == 0 {
			return errors.New(errors.ErrCodeInvalidInput, "stroke %d: no points", i+1)
		}
		for j, p := range st.Points {
			if len(p) != 2 {
				return errors.New(errors.ErrCodeInvalidInput, "stroke %d point %d: want [x, y]", i+1, j+1)
			}
		}
		switch st.Space {
		case "", SpaceDisplay, SpaceBuffer:
		default:
			return errors.New(errors.ErrCodeInvalidInput, "stroke %d: unknown space %q", i+1, st.Space)
		}
		if st.Radius != 0 {
			if err := brush.ValidateRadius(st.Radius); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "stroke %d", i+1)
			}
		}
		if st.Strength != 0 {
			if err := brush.ValidateStrength(st.Strength); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "stroke %d", i+1)
			}
		}
	}
	return nil
}

// Run replays the script on sess, which must have an image loaded. The
// container defaults to defaultW×defaultH when the script leaves it unset.
func (s *Script) Run(ctx context.Context, sess *session.Session, defaultW, defaultH float64) (*Report, error) {
	w, h := s.Container.Width, s.Container.Height
	if w == 0 || h == 0 {
		w, h = defaultW, defaultH
	}
	rect, err := sess.FitDisplay(w, h)
	if err != nil {
		return nil, err
	}
	snap := sess.Snapshot()

	rep := &Report{Display: rect}
	for i, st := range s.Strokes {
		if err := applySettings(sess, st); err != nil {
			return rep, fmt.Errorf("stroke %d: %w", i+1, err)
		}
		mod := brush.Modifier{Invert: st.Invert}
		for j, raw := range st.Points {
			p := viewport.Point{X: raw[0], Y: raw[1]}
			if st.Space == SpaceBuffer {
				if p, err = viewport.ToDisplay(p, rect, snap.Width, snap.Height); err != nil {
					return rep, err
				}
			}
			if j == 0 {
				err = sess.BeginStroke(p, mod)
			} else {
				err = sess.ContinueStroke(p, mod)
			}
			if err != nil {
				return rep, fmt.Errorf("stroke %d point %d: %w", i+1, j+1, err)
			}
			rep.Points++
		}
		if err := sess.EndStroke(ctx); err != nil {
			return rep, fmt.Errorf("stroke %d: %w", i+1, err)
		}
		rep.Strokes++
	}
	return rep, nil
}

func applySettings(sess *session.Session, st Stroke) error {
	if err := sess.ActivateTab(st.Tab); err != nil {
		return err
	}
	if err := sess.SetEditMode(st.Tool); err != nil {
		return err
	}
	if st.Radius != 0 {
		if err := sess.SetBrushSize(st.Radius); err != nil {
			return err
		}
	}
	if st.Strength != 0 {
		if err := sess.SetBrushStrength(st.Strength); err != nil {
			return err
		}
	}
	return nil
}
