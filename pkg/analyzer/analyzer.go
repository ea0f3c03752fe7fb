// Package analyzer implements the synthetic-image compare mode: two images
// are uploaded, their gradients computed and their gradient-statistics
// fingerprints scored by the lab service, side by side.
//
// Scoring itself happens in the service. This package orchestrates the calls
// for both images concurrently, clamps scores to [0,1] for display and
// computes the signed difference B−A per metric.
package analyzer

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/integrations/lab"
)

// Service is the subset of the lab service the analyzer needs.
type Service interface {
	Upload(ctx context.Context, filename string, data []byte) (*lab.Upload, error)
	Gradients(ctx context.Context, imageID string, refresh bool) (*lab.Gradients, error)
	Analyze(ctx context.Context, imageID string, refresh bool) (*lab.Analysis, error)
}

// Input names one image. Either ImageID refers to an already uploaded image,
// or Filename and Data are uploaded first.
type Input struct {
	Label    string
	ImageID  string
	Filename string
	Data     []byte
}

// Side is the analysis of one image.
type Side struct {
	Label      string         `json:"label"`
	ImageID    string         `json:"imageId"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Raw        lab.Scores     `json:"raw"`
	Scores     lab.Scores     `json:"scores"` // clamped to [0,1]
	HeatmapURL string         `json:"heatmapUrl"`
	Gradients  *lab.Gradients `json:"gradients,omitempty"`
}

// Comparison is the result of [Analyzer.Compare].
type Comparison struct {
	A    Side       `json:"a"`
	B    Side       `json:"b"`
	Diff lab.Scores `json:"diff"` // B − A on clamped scores
}

// Metric is one row of a comparison.
type Metric struct {
	Name        string
	Description string
	A, B, Diff  float64
}

// Metrics lists the comparison row by row, in display order.
func (c *Comparison) Metrics() []Metric {
	rows := make([]Metric, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, Metric{
			Name:        m.name,
			Description: m.desc,
			A:           m.get(c.A.Scores),
			B:           m.get(c.B.Scores),
			Diff:        m.get(c.Diff),
		})
	}
	return rows
}

var metrics = []struct {
	name, desc string
	get        func(lab.Scores) float64
}{
	{"Edge Consistency", "How consistent edges are across the image. Low values might indicate artifacts.",
		func(s lab.Scores) float64 { return s.EdgeConsistency }},
	{"Smoothness", "Global smoothness. Synthetic images are often unnaturally smooth in certain frequency bands.",
		func(s lab.Scores) float64 { return s.SmoothnessScore }},
	{"Texture Anomaly", "Irregular texture patterns often found in diffusion generated backgrounds.",
		func(s lab.Scores) float64 { return s.TextureWeirdness }},
}

// Analyzer runs analyses against a lab service.
type Analyzer struct {
	svc    Service
	logger *log.Logger
}

// New returns an Analyzer. A nil logger discards output.
func New(svc Service, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Analyzer{svc: svc, logger: logger}
}

// Analyze runs upload (if needed), gradients and analyze for one image.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Side, error) {
	start := time.Now()
	side := Side{Label: in.Label, ImageID: in.ImageID}

	if side.ImageID == "" {
		if len(in.Data) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s: no image given", label(in))
		}
		up, err := a.svc.Upload(ctx, in.Filename, in.Data)
		if err != nil {
			return nil, err
		}
		side.ImageID = up.ImageID
	}

	g, err := a.svc.Gradients(ctx, side.ImageID, false)
	if err != nil {
		return nil, err
	}
	side.Width, side.Height, side.Gradients = g.Width, g.Height, g

	res, err := a.svc.Analyze(ctx, side.ImageID, false)
	if err != nil {
		return nil, err
	}
	side.Raw = res.Scores
	side.Scores = res.Scores.Clamped()
	side.HeatmapURL = res.HeatmapURL

	a.logger.Debug("analyzed", "image", side.ImageID, "label", label(in), "took", time.Since(start).Round(time.Millisecond))
	return &side, nil
}

// Compare analyzes a and b concurrently. If either fails the other is
// cancelled and the first error is returned.
func (a *Analyzer) Compare(ctx context.Context, in, other Input) (*Comparison, error) {
	if in.Label == "" {
		in.Label = "A"
	}
	if other.Label == "" {
		other.Label = "B"
	}

	var sa, sb *Side
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sa, err = a.Analyze(gctx, in)
		return err
	})
	g.Go(func() error {
		var err error
		sb, err = a.Analyze(gctx, other)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Comparison{A: *sa, B: *sb, Diff: Diff(sa.Scores, sb.Scores)}, nil
}

// Diff returns b − a per metric.
func Diff(a, b lab.Scores) lab.Scores {
	return lab.Scores{
		EdgeConsistency:  b.EdgeConsistency - a.EdgeConsistency,
		SmoothnessScore:  b.SmoothnessScore - a.SmoothnessScore,
		TextureWeirdness: b.TextureWeirdness - a.TextureWeirdness,
	}
}

func label(in Input) string {
	switch {
	case in.Label != "":
		return in.Label
	case in.Filename != "":
		return in.Filename
	default:
		return in.ImageID
	}
}
