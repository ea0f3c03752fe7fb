// Package lab is the client for the gradient lab service: image upload,
// gradient computation, Poisson reconstruction and the synthetic-image
// analyzer. The service owns all image processing; this package only speaks
// its HTTP contract.
package lab

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"time"

	// Raster decoders for uploads and fetched resources.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/gradlab/pkg/cache"
	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/integrations"
	"github.com/matzehuels/gradlab/pkg/layer"
)

// DefaultBaseURL is the service origin used when none is configured.
const DefaultBaseURL = "http://localhost:8000"

// Upload limits enforced before any bytes are sent.
const (
	MaxUploadBytes = 10 << 20
	MaxDimension   = 4096
)

// Client provides access to the lab service API.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
	keyer   cache.Keyer
}

// NewClient creates a lab client for the service at baseURL ("" for
// [DefaultBaseURL]). Gradient descriptors, analyses and fetched rasters are
// cached in backend for cacheTTL; reconstructions never are.
func NewClient(backend cache.Cache, baseURL string, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		Client:  integrations.NewClient(backend, "lab:", cacheTTL, map[string]string{"Accept": "application/json"}),
		baseURL: baseURL,
		keyer:   cache.NewScopedKeyer(cache.NewDefaultKeyer(), cache.Hash([]byte(baseURL))[:12]+":"),
	}
}

// BaseURL returns the service origin.
func (c *Client) BaseURL() string { return c.baseURL }

// Resolve turns a possibly relative resource reference into an absolute URL.
func (c *Client) Resolve(ref string) string {
	return integrations.ResolveURL(c.baseURL, ref)
}

// UploadFile reads path and uploads it. See [Client.Upload].
func (c *Client) UploadFile(ctx context.Context, path string) (*Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUploadFailed, err, "read %s", path)
	}
	return c.Upload(ctx, filepath.Base(path), data)
}

// Upload sends an image to POST /api/images.
//
// The payload must be at most [MaxUploadBytes], decode as a supported raster
// (PNG, JPEG, GIF, BMP, TIFF, WebP) and be no larger than [MaxDimension] on
// either side. Every failure carries code UPLOAD_FAILED.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (*Upload, error) {
	if err := CheckUpload(data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUploadFailed, err, "upload %s", filename)
	}

	var out Upload
	if err := c.PostMultipart(ctx, c.Resolve("/api/images"), "file", filename, data, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeUploadFailed, err, "upload %s", filename)
	}
	if out.ImageID == "" || out.Width <= 0 || out.Height <= 0 {
		return nil, errors.New(errors.ErrCodeUploadFailed, "upload %s: incomplete response %+v", filename, out)
	}
	return &out, nil
}

// CheckUpload applies the client-side upload limits to data.
func CheckUpload(data []byte) error {
	if len(data) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "empty image")
	}
	if len(data) > MaxUploadBytes {
		return errors.New(errors.ErrCodeInvalidInput,
			"image is %.1f MB, limit is %d MB", float64(len(data))/(1<<20), MaxUploadBytes>>20)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "unrecognised image")
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return errors.New(errors.ErrCodeInvalidInput,
			"%s image is %dx%d, limit is %d per side", format, cfg.Width, cfg.Height, MaxDimension)
	}
	return nil
}

// Gradients fetches the derivative descriptors for an uploaded image from
// GET /api/gradients. Failures carry code FETCH_FAILED.
func (c *Client) Gradients(ctx context.Context, imageID string, refresh bool) (*Gradients, error) {
	if err := errors.ValidateImageID(imageID); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "gradients")
	}

	var out Gradients
	key := c.keyer.HTTPKey("gradients", imageID)
	err := c.Cached(ctx, key, refresh, &out, func() error {
		return c.Get(ctx, c.Resolve("/api/gradients?imageId="+integrations.URLEncode(imageID)), &out)
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "gradients for %s", imageID)
	}
	if out.Width <= 0 || out.Height <= 0 || out.DxURL == "" || out.DyURL == "" {
		return nil, errors.New(errors.ErrCodeFetchFailed, "gradients for %s: incomplete response", imageID)
	}
	return &out, nil
}

// Reconstruct submits edited deltas to POST /api/reconstruct. Any data-URL
// envelope on the edited payloads is stripped before sending. Failures carry
// code RECONSTRUCTION_FAILED.
func (c *Client) Reconstruct(ctx context.Context, req ReconstructRequest) (*Reconstruction, error) {
	if req.Mode == "" {
		req.Mode = ModeFull
	}
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeReconstructionFailed, err, "reconstruct")
	}
	req.EditedDx = layer.StripEnvelope(req.EditedDx)
	req.EditedDy = layer.StripEnvelope(req.EditedDy)

	var out Reconstruction
	if err := c.PostJSON(ctx, c.Resolve("/api/reconstruct"), req, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeReconstructionFailed, err, "reconstruct %s", req.ImageID)
	}
	if out.ReconstructedURL == "" {
		return nil, errors.New(errors.ErrCodeReconstructionFailed, "reconstruct %s: no image in response", req.ImageID)
	}
	return &out, nil
}

// Analyze runs the analyzer via POST /api/analyze. Results are cached per
// image. Failures carry code FETCH_FAILED.
func (c *Client) Analyze(ctx context.Context, imageID string, refresh bool) (*Analysis, error) {
	if err := errors.ValidateImageID(imageID); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "analyze")
	}

	var out Analysis
	key := c.keyer.AnalysisKey(imageID, cache.AnalysisKeyOpts{BaseURL: c.baseURL})
	err := c.Cached(ctx, key, refresh, &out, func() error {
		return c.PostJSON(ctx, c.Resolve("/api/analyze"), map[string]string{"imageId": imageID}, &out)
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "analyze %s", imageID)
	}
	return &out, nil
}

// FetchBytes downloads a raster resource, resolving relative references.
// Bytes are cached by absolute URL unless refresh is set.
func (c *Client) FetchBytes(ctx context.Context, ref string, refresh bool) ([]byte, error) {
	u := c.Resolve(ref)
	if u == "" {
		return nil, errors.New(errors.ErrCodeFetchFailed, "empty resource reference")
	}
	if data, ok := decodeInline(u); ok {
		return data, nil
	}
	data, err := c.CachedBytes(ctx, c.keyer.RasterKey(u), refresh, func() ([]byte, error) {
		data, _, err := c.GetBytes(ctx, u)
		return data, err
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "fetch %s", u)
	}
	return data, nil
}

// FetchImage downloads and decodes a raster resource.
func (c *Client) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	data, err := c.FetchBytes(ctx, ref, false)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFetchFailed, err, "decode %s", c.Resolve(ref))
	}
	return img, nil
}
