package lab

import (
	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/layer"
)

// Upload is the service's answer to an image upload.
type Upload struct {
	ImageID string `json:"imageId"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// Gradients describes the derivative rasters computed for an image. The URLs
// may be relative to the service base.
type Gradients struct {
	ImageID      string `json:"imageId"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	DxURL        string `json:"dxUrl"`
	DyURL        string `json:"dyUrl"`
	MagnitudeURL string `json:"magnitudeUrl"`
}

// URL returns the raster reference for a channel tab.
func (g *Gradients) URL(c layer.Channel) string {
	switch c {
	case layer.DX:
		return g.DxURL
	case layer.DY:
		return g.DyURL
	case layer.Magnitude:
		return g.MagnitudeURL
	default:
		return ""
	}
}

// Mode selects how the solver applies edits.
type Mode string

const (
	ModeFull  Mode = "full"
	ModePatch Mode = "patch"
)

// ReconstructRequest is the body of POST /api/reconstruct. An empty edited
// field is omitted, which tells the solver to use the unedited derivative
// for that channel. Edited payloads are bare base64 with no data-URL envelope.
type ReconstructRequest struct {
	ImageID  string `json:"imageId"`
	Mode     Mode   `json:"mode"`
	EditedDx string `json:"editedDx,omitempty"`
	EditedDy string `json:"editedDy,omitempty"`
}

// Validate checks the image ID and mode.
func (r *ReconstructRequest) Validate() error {
	if err := errors.ValidateImageID(r.ImageID); err != nil {
		return err
	}
	switch r.Mode {
	case ModeFull, ModePatch:
		return nil
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown reconstruction mode %q", r.Mode)
	}
}

// Reconstruction is the solver's answer.
type Reconstruction struct {
	ImageID          string `json:"imageId"`
	ReconstructedURL string `json:"reconstructedUrl"`
}

// Scores are the analyzer's gradient-statistics scores. They are nominally in
// [0,1] but the service does not guarantee it; see [Scores.Clamped].
type Scores struct {
	EdgeConsistency  float64 `json:"edgeConsistency"`
	SmoothnessScore  float64 `json:"smoothnessScore"`
	TextureWeirdness float64 `json:"textureWeirdness"`
}

// Clamped returns the scores limited to [0,1] for display.
func (s Scores) Clamped() Scores {
	return Scores{
		EdgeConsistency:  clamp01(s.EdgeConsistency),
		SmoothnessScore:  clamp01(s.SmoothnessScore),
		TextureWeirdness: clamp01(s.TextureWeirdness),
	}
}

func clamp01(v float64) float64 {
	if v != v || v < 0 { // NaN or negative
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Analysis is the analyzer's answer for one image.
type Analysis struct {
	ImageID    string `json:"imageId"`
	Scores     Scores `json:"scores"`
	HeatmapURL string `json:"heatmapUrl"`
}
