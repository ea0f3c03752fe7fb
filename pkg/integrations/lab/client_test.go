package lab_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/gradlab/pkg/cache"
	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/integrations/lab"
	"github.com/matzehuels/gradlab/pkg/integrations/lab/labtest"
	"github.com/matzehuels/gradlab/pkg/layer"
)

func newClient(t *testing.T, srv *labtest.Server, backend cache.Cache) *lab.Client {
	t.Helper()
	c := lab.NewClient(backend, srv.URL, time.Hour)
	c.SetHTTPClient(srv.Client())
	c.SetRetry(cache.RetryPolicy{Attempts: 3, Delay: time.Millisecond})
	return c
}

func TestUpload(t *testing.T) {
	srv := labtest.New()
	defer srv.Close()
	c := newClient(t, srv, nil)

	up, err := c.Upload(context.Background(), "face.png", labtest.PNG(100, 50, 90))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if up.ImageID == "" || up.Width != 100 || up.Height != 50 {
		t.Errorf("Upload = %+v, want 100x50 with id", up)
	}
}

func TestUploadRejectsLocally(t *testing.T) {
	srv := labtest.New()
	defer srv.Close()
	c := newClient(t, srv, nil)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not an image", []byte("hello, world")},
		{"too large", make([]byte, lab.MaxUploadBytes+1)},
		{"too wide", labtest.PNG(lab.MaxDimension+1, 1, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Upload(context.Background(), "x.png", tt.data)
			if !errors.Is(err, errors.ErrCodeUploadFailed) {
				t.Fatalf("err = %v, want UPLOAD_FAILED", err)
			}
		})
	}
	if n := srv.Count("/api/images"); n != 0 {
		t.Errorf("server saw %d uploads, want 0", n)
	}
}

func TestUploadServerError(t *testing.T) {
	srv := labtest.New()
	defer srv.Close()
	c := newClient(t, srv, nil)

	srv.Fail("/api/images", http.StatusBadRequest)
	_, err := c.Upload(context.Background(), "x.png", labtest.PNG(4, 4, 0))
	if !errors.Is(err, errors.ErrCodeUploadFailed) {
		t.Fatalf("err = %v, want UPLOAD_FAILED", err)
	}
	if !strings.Contains(err.Error(), "injected 400") {
		t.Errorf("err = %v, want service message", err)
	}
	if n := srv.Count("/api/images"); n != 1 {
		t.Errorf("4xx retried: %d requests", n)
	}
}

func TestUploadNotRetried(t *testing.T) {
	srv := labtest.New()
	defer srv.Close()
	c := newClient(t, srv, nil)

	srv.Fail("/api/images", http.StatusServiceUnavailable)
	if _, err := c.Upload(context.Background(), "x.png", labtest.PNG(4, 4, 0)); !errors.Is(err, errors.ErrCodeUploadFailed) {
		t.Fatalf("err = %v, want UPLOAD_FAILED", err)
	}
	if n := srv.Count("/api/images"); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestGradientsCached(t *testing.T) {
	srv := labtest.New()
	defer srv.Close()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(t, srv, fc)
	id := srv.AddImage(100, 50)

	for i := 0; i < 2; i++ {
		g, err := c.Gradients(context.Background(), id, false)
		if err != nil {
			t.Fatalf("Gradients: %v", err)
		}
		if g.Width != 100 || g.Height != 50 {
			t.Errorf("size = %dx%d", g.Width, g.Height)
		}
	}
	if n := srv.Count("/api/gradients"); n != 1 {
		t.Errorf("requests = %d, want 1 (second served from cache)", n)
	}

	if _, err := c.Gradients(context.Background(), id, true); err != nil {
		t.Fatal(err)
	}
	if n := srv.Count("/api/gradients"); n != 2 {
		t.Errorf("refresh did not bypass cache: %d requests", n)
	}
}

func TestGradientsNotFound(t *testing.T) {
	srv := labtest.New()
	defer srv.Close()
	c := newClient(t, srv, nil)

	_, err := c.Gradients(context.Background(), "missing", false)
	if !errors.Is(err, errors.ErrCodeFetchFailed) {
		t.Fatalf("err = %v, want FETCH_FAILED", err)
	}
	if !strings.Contains(err.Error(), "No image missing") {
		t.Errorf("err = %v, want service detail", err)
	}

	_, err = c.Gradients(context.Background(), "../etc", false)
	if !errors.Is(err, errors.ErrCodeFetchFailed) || !errors.Is(err, errors.ErrCodeInvalidImageID) {
		t.Errorf("err = %v, want FETCH_FAILED wrapping INVALID_IMAGE_ID", err)
	}
}

func TestFetchImageResolvesRelative(t *testing.T) {
	srv := labtest.New()
	defer srv.Close()
	c := newClient(t, srv, nil)
	id := srv.AddImage(8, 6)

	g, err := c.Gradients(context.Background(), id, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, ch := range []layer.Channel{layer.DX, layer.DY, layer.Magnitude} {
		img, err := c.FetchImage(context.Background(), g.URL(ch))
		if err != nil {
			t.Fatalf("FetchImage(%s): %v", ch, err)
		}
		if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
			t.Errorf("%s bounds = %v", ch, b)
		}
	}
}

func TestFetchBytesInline(t *testing.T) {
	c := lab.NewClient(nil, "http://127.0.0.1:1", time.Hour)
	payload := labtest.PNG(2, 2, 7)
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)

	got, err := c.FetchBytes(context.Background(), ref, false)
	if err != nil {
		t.Fatalf("FetchBytes: %v", err)
	}
	if string(got) != string(payload) {
		t.Error("inline payload mismatch")
	}
}

func TestReconstruct(t *testing.T) {
	srv := labtest.New()
	defer srv.Close()
	c := newClient(t, srv, nil)
	id := srv.AddImage(10, 10)

	l, err := layer.New(10, 10)
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := l.Commit()
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Reconstruct(context.Background(), lab.ReconstructRequest{
		ImageID:  id,
		EditedDx: encoded,
	})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if res.ReconstructedURL == "" {
		t.Fatal("no reconstruction URL")
	}

	reqs := srv.Reconstructs()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d", len(reqs))
	}
	got := reqs[0]
	if got.Mode != lab.ModeFull {
		t.Errorf("mode = %q, want full", got.Mode)
	}
	if strings.HasPrefix(got.EditedDx, "data:") || got.EditedDx == "" {
		t.Errorf("editedDx = %.30q, want bare base64", got.EditedDx)
	}
	if got.EditedDy != "" {
		t.Errorf("editedDy = %q, want omitted", got.EditedDy)
	}

	img, err := c.FetchImage(context.Background(), res.ReconstructedURL)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 10 {
		t.Errorf("reconstruction bounds = %v", b)
	}
}

func TestReconstructFailure(t *testing.T) {
	srv := labtest.New()
	defer srv.Close()
	c := newClient(t, srv, nil)
	id := srv.AddImage(10, 10)

	srv.Fail("/api/reconstruct", 500)
	_, err := c.Reconstruct(context.Background(), lab.ReconstructRequest{ImageID: id})
	if !errors.Is(err, errors.ErrCodeReconstructionFailed) {
		t.Fatalf("err = %v, want RECONSTRUCTION_FAILED", err)
	}
	if n := srv.Count("/api/reconstruct"); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}

	_, err = c.Reconstruct(context.Background(), lab.ReconstructRequest{ImageID: id, Mode: "bogus"})
	if !errors.Is(err, errors.ErrCodeReconstructionFailed) {
		t.Errorf("bad mode err = %v", err)
	}
}

func TestAnalyze(t *testing.T) {
	srv := labtest.New()
	defer srv.Close()
	c := newClient(t, srv, cache.NewNullCache())
	id := srv.AddImage(10, 10)
	srv.SetScores(id, lab.Scores{EdgeConsistency: 1.4, SmoothnessScore: -0.2, TextureWeirdness: 0.3})

	a, err := c.Analyze(context.Background(), id, false)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	got := a.Scores.Clamped()
	want := lab.Scores{EdgeConsistency: 1, SmoothnessScore: 0, TextureWeirdness: 0.3}
	if got != want {
		t.Errorf("Clamped = %+v, want %+v", got, want)
	}
	if a.HeatmapURL == "" {
		t.Error("no heatmap")
	}

	if _, err := c.Analyze(context.Background(), "nope", false); !errors.Is(err, errors.ErrCodeFetchFailed) {
		t.Errorf("unknown image err = %v", err)
	}
}

func TestResolve(t *testing.T) {
	c := lab.NewClient(nil, "http://lab:8000/", time.Hour)
	tests := map[string]string{
		"/static/a.png":          "http://lab:8000/static/a.png",
		"static/a.png":           "http://lab:8000/static/a.png",
		"https://cdn/x.png":      "https://cdn/x.png",
		"data:image/png;base64,": "data:image/png;base64,",
	}
	for in, want := range tests {
		if got := c.Resolve(in); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", in, got, want)
		}
	}
}
